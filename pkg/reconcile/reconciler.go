package reconcile

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/ledger"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/mercury"
)

// Options configures a reconciliation run.
type Options struct {
	UncategorizedAccount string // Default: DefaultUncategorizedAccount
	Currency             string // Default: DefaultCurrency
}

// Result is the outcome of a reconciliation run.
type Result struct {
	// Pending holds the new entries, grouped by account in input order and
	// in API order within each account.
	Pending []*ledger.Transaction

	// Touched lists the bound ledger accounts that were considered this run.
	Touched []string

	Failures []ConversionFailure

	// Skipped counts transactions that were already in the ledger.
	Skipped int
}

// Err joins all conversion failures, or returns nil when there are none.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Reconcile determines which fetched transactions are missing from l and
// converts them into pending entries. It never modifies l, so running it
// again against a ledger that contains the previous output yields nothing new.
//
// Accounts in data without a binding are skipped and not reported as touched.
// A binding conflict aborts the run before anything is converted. A
// transaction that fails to convert is reported in Result.Failures and does
// not stop the others.
func Reconcile(l *ledger.Ledger, data []mercury.AccountTransactions, opts Options) (*Result, error) {
	bindings, err := BuildBindings(l.Opens)
	if err != nil {
		return nil, fmt.Errorf("failed to build account bindings: %w", err)
	}
	seen := BuildSeenIDs(l.Transactions)
	converter := NewConverter(opts.UncategorizedAccount, opts.Currency)

	result := &Result{}
	emitted := make(map[string]bool)
	touched := make(map[string]bool)

	for _, account := range data {
		binding, ok := bindings.Account(account.AccountID)
		if !ok {
			slog.Debug("Skipping unbound account", "account_id", account.AccountID)
			continue
		}

		for _, txn := range account.Transactions {
			if seen.Contains(txn.ID) || emitted[txn.ID] {
				result.Skipped++
				continue
			}

			entry, err := converter.Convert(txn, binding)
			if err != nil {
				result.Failures = append(result.Failures, ConversionFailure{
					AccountID:     account.AccountID,
					TransactionID: txn.ID,
					Err:           err,
				})
				continue
			}

			emitted[txn.ID] = true
			result.Pending = append(result.Pending, entry)
		}

		if !touched[binding.Account] {
			touched[binding.Account] = true
			result.Touched = append(result.Touched, binding.Account)
		}
	}

	return result, nil
}
