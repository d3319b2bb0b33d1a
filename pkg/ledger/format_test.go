package ledger

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0", "0.00"},
		{"5", "5.00"},
		{"-12.3", "-12.30"},
		{"1234.56", "1234.56"},
		{"1.50000", "1.50"},
		{"-0.125", "-0.125"},
		{"0.000001", "0.000001"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatNumber(decimal.RequireFromString(tt.input)))
		})
	}
}

func TestFormatTransaction(t *testing.T) {
	txn := &Transaction{
		Date:      "2024-01-15",
		Flag:      "*",
		Payee:     `Joe's "Cafe"`,
		Narration: "Coffee\nand cake",
		Meta:      Metadata{"source": "mercury"},
		Postings: []*Posting{
			{
				Account: "Assets:Mercury:Checking",
				Amount:  NewAmount(decimal.RequireFromString("-4.5"), "USD"),
				Meta:    Metadata{"kind": "debitCardTransaction", "external_id": "t1"},
			},
			{
				Account: "Expenses:FIXME",
				Amount:  NewAmount(decimal.RequireFromString("4.5"), "USD"),
			},
		},
	}

	expected := `2024-01-15 * "Joe's \"Cafe\"" "Coffee and cake"
  source: "mercury"
  Assets:Mercury:Checking` + strings.Repeat(" ", 60-len("Assets:Mercury:Checking")-len("-4.50")) + `-4.50 USD
    external_id: "t1"
    kind: "debitCardTransaction"
  Expenses:FIXME` + strings.Repeat(" ", 60-len("Expenses:FIXME")-len("4.50")) + `4.50 USD
`

	assert.Equal(t, expected, FormatTransaction(txn))
}

func TestFormatTransactionRoundTrip(t *testing.T) {
	txn := &Transaction{
		Date:      "2024-03-31",
		Flag:      "!",
		Payee:     "Stripe",
		Narration: `Payout \ batch`,
		Tags:      []string{"income"},
		Meta:      Metadata{},
		Postings: []*Posting{
			{
				Account: "Assets:Mercury:Checking",
				Amount:  NewAmount(decimal.RequireFromString("10000.123"), "USD"),
				Meta:    Metadata{"external_id": "t-round"},
			},
			{
				Account: "Income:Sales",
				Amount:  NewAmount(decimal.RequireFromString("-10000.123"), "USD"),
			},
		},
	}

	l, _, err := Parse(strings.NewReader(FormatTransaction(txn)), "round.beancount")
	require.NoError(t, err)
	require.Len(t, l.Transactions, 1)

	parsed := l.Transactions[0]
	assert.Equal(t, txn.Date, parsed.Date)
	assert.Equal(t, txn.Flag, parsed.Flag)
	assert.Equal(t, txn.Payee, parsed.Payee)
	assert.Equal(t, txn.Narration, parsed.Narration)
	assert.Equal(t, txn.Tags, parsed.Tags)
	require.Len(t, parsed.Postings, 2)
	assert.Equal(t, "t-round", parsed.Postings[0].Meta.Get("external_id"))
	assert.True(t, parsed.Postings[0].Amount.Number.Equal(txn.Postings[0].Amount.Number))
	assert.True(t, parsed.Balanced())
}

func TestTransactionHelpers(t *testing.T) {
	txn := &Transaction{Date: "2024-07-04"}
	assert.Equal(t, "2024-07", txn.YearMonth())
	assert.Equal(t, "", (&Transaction{}).YearMonth())

	unbalanced := &Transaction{Postings: []*Posting{
		{Account: "Assets:A", Amount: NewAmount(decimal.RequireFromString("1"), "USD")},
		{Account: "Assets:B", Amount: NewAmount(decimal.RequireFromString("-0.99"), "USD")},
	}}
	assert.False(t, unbalanced.Balanced())

	elided := &Transaction{Postings: []*Posting{
		{Account: "Assets:A", Amount: NewAmount(decimal.RequireFromString("1"), "USD")},
		{Account: "Assets:B"},
	}}
	assert.True(t, elided.Balanced())
}
