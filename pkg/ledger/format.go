package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// amountColumn is the column postings right-align their amounts to.
const amountColumn = 60

// FormatTransaction formats a Beancount transaction as a string.
func FormatTransaction(txn *Transaction) string {
	var sb strings.Builder

	// Transaction header
	sb.WriteString(txn.Date)
	flag := txn.Flag
	if flag == "" {
		flag = "*"
	}
	sb.WriteString(" ")
	sb.WriteString(flag)
	if txn.Payee != "" {
		sb.WriteString(fmt.Sprintf(" %s", quote(txn.Payee)))
	}
	sb.WriteString(fmt.Sprintf(" %s", quote(txn.Narration)))
	for _, tag := range txn.Tags {
		sb.WriteString(" #" + tag)
	}
	for _, link := range txn.Links {
		sb.WriteString(" ^" + link)
	}
	sb.WriteString("\n")

	writeMetadata(&sb, txn.Meta, "  ")

	// Postings
	for _, posting := range txn.Postings {
		sb.WriteString("  ")
		if posting.Flag != "" {
			sb.WriteString(posting.Flag + " ")
		}
		sb.WriteString(posting.Account)

		if posting.Amount != nil {
			number := FormatNumber(posting.Amount.Number)
			spaces := amountColumn - len(posting.Account) - len(number)
			if spaces < 2 {
				spaces = 2
			}
			sb.WriteString(strings.Repeat(" ", spaces))
			sb.WriteString(fmt.Sprintf("%s %s", number, posting.Amount.Currency))
		}
		sb.WriteString("\n")

		writeMetadata(&sb, posting.Meta, "    ")
	}

	return sb.String()
}

// FormatNumber renders an amount with at least two decimal places and
// never drops precision.
func FormatNumber(d decimal.Decimal) string {
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}

func writeMetadata(sb *strings.Builder, meta Metadata, indent string) {
	for _, key := range meta.Keys() {
		sb.WriteString(fmt.Sprintf("%s%s: %s\n", indent, key, quote(meta[key])))
	}
}

// quote renders s as a Beancount string literal on a single line.
func quote(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", " ")
	return `"` + escaped + `"`
}
