// Package ledger provides the in-memory Beancount journal model together
// with a reader, a formatter and a file repository for monthly ledger files.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Metadata holds key-value metadata attached to a directive or posting.
type Metadata map[string]string

// Get returns the value for key, or "" when absent.
func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}

// Keys returns the metadata keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Amount is an exact number with a currency.
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

// NewAmount creates an Amount.
func NewAmount(number decimal.Decimal, currency string) *Amount {
	return &Amount{Number: number, Currency: currency}
}

// Posting represents a posting in a Beancount transaction.
type Posting struct {
	Flag    string
	Account string  // Account name (e.g., "Assets:Mercury:Checking")
	Amount  *Amount // nil when the amount is left to be inferred
	Meta    Metadata
	Line    int // Source line number, 0 when not read from a file
}

// Transaction represents a Beancount transaction.
type Transaction struct {
	Date      string // YYYY-MM-DD
	Flag      string
	Payee     string
	Narration string
	Tags      []string
	Links     []string
	Meta      Metadata
	Postings  []*Posting
	File      string
	Line      int
}

// YearMonth returns the YYYY-MM part of the transaction date.
func (t *Transaction) YearMonth() string {
	if len(t.Date) < 7 {
		return ""
	}
	return t.Date[:7]
}

// Balanced reports whether the postings with explicit amounts sum to zero
// in every currency. A transaction with an elided amount is balanced by
// construction and also reports true.
func (t *Transaction) Balanced() bool {
	sums := make(map[string]decimal.Decimal)
	for _, p := range t.Postings {
		if p.Amount == nil {
			return true
		}
		sums[p.Amount.Currency] = sums[p.Amount.Currency].Add(p.Amount.Number)
	}
	for _, sum := range sums {
		if !sum.IsZero() {
			return false
		}
	}
	return true
}

// Open represents an account open directive.
type Open struct {
	Date       string
	Account    string
	Currencies []string
	Meta       Metadata
	File       string
	Line       int
}

// Ledger is the set of directives the reconciler cares about, in file order.
type Ledger struct {
	Opens        []*Open
	Transactions []*Transaction
}

// Merge appends the directives of other to l.
func (l *Ledger) Merge(other *Ledger) {
	l.Opens = append(l.Opens, other.Opens...)
	l.Transactions = append(l.Transactions, other.Transactions...)
}
