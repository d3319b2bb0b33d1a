package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/ledger"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/mercury"
)

const (
	// DefaultUncategorizedAccount receives the offsetting leg of every imported transaction.
	DefaultUncategorizedAccount = "Expenses:FIXME"

	// DefaultCurrency is used when the bound account declares no single currency.
	DefaultCurrency = "USD"
)

// Converter converts Mercury transactions to ledger transactions.
type Converter struct {
	uncategorizedAccount string
	currency             string
}

// NewConverter creates a new Converter. Empty arguments fall back to
// DefaultUncategorizedAccount and DefaultCurrency.
func NewConverter(uncategorizedAccount, currency string) *Converter {
	if uncategorizedAccount == "" {
		uncategorizedAccount = DefaultUncategorizedAccount
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Converter{
		uncategorizedAccount: uncategorizedAccount,
		currency:             currency,
	}
}

// UncategorizedAccount returns the account offsetting legs are posted to.
func (c *Converter) UncategorizedAccount() string {
	return c.uncategorizedAccount
}

// Convert builds a two-posting ledger transaction for txn on the bound account.
// The primary posting carries the signed amount as reported by Mercury and the
// uncategorized posting its exact negation.
func (c *Converter) Convert(txn mercury.Transaction, binding Binding) (*ledger.Transaction, error) {
	if txn.ID == "" {
		return nil, fmt.Errorf("transaction has no id")
	}

	date, err := settlementDate(txn)
	if err != nil {
		return nil, err
	}

	payee := payeeName(txn)
	if payee == "" {
		return nil, &MissingPayeeError{TransactionID: txn.ID}
	}

	currency := binding.Currency
	if currency == "" {
		currency = c.currency
	}

	meta := ledger.Metadata{
		TransactionIDKey:  txn.ID,
		SettlementDateKey: date,
	}
	if txn.Kind != "" {
		meta[KindKey] = txn.Kind
	}
	if txn.CounterpartyName != "" {
		meta[CounterpartyNameKey] = txn.CounterpartyName
	}

	return &ledger.Transaction{
		Date:      date,
		Flag:      "*",
		Payee:     payee,
		Narration: txn.BankDescription,
		Meta:      ledger.Metadata{SourceKey: SourceName},
		Postings: []*ledger.Posting{
			{
				Account: binding.Account,
				Amount:  ledger.NewAmount(txn.Amount, currency),
				Meta:    meta,
			},
			{
				Account: c.uncategorizedAccount,
				Amount:  ledger.NewAmount(txn.Amount.Neg(), currency),
			},
		},
	}, nil
}

// settlementDate returns the calendar date of postedAt in its own offset.
func settlementDate(txn mercury.Transaction) (string, error) {
	if txn.PostedAt == nil || *txn.PostedAt == "" {
		return "", fmt.Errorf("transaction %s has no settlement time", txn.ID)
	}

	t, err := time.Parse(time.RFC3339Nano, *txn.PostedAt)
	if err != nil {
		return "", fmt.Errorf("failed to parse settlement time of transaction %s: %w", txn.ID, err)
	}

	return t.Format("2006-01-02"), nil
}

func payeeName(txn mercury.Transaction) string {
	if txn.CounterpartyNickname != nil {
		if nickname := strings.TrimSpace(*txn.CounterpartyNickname); nickname != "" {
			return nickname
		}
	}
	return strings.TrimSpace(txn.CounterpartyName)
}
