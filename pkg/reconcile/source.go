package reconcile

import (
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/ledger"
)

// SourceName identifies entries produced by this importer.
const SourceName = "mercury"

// IsPostingCleared reports whether p was imported from Mercury.
func IsPostingCleared(p *ledger.Posting) bool {
	if p == nil {
		return false
	}
	if p.Meta.Get(TransactionIDKey) == "" {
		return false
	}
	return true
}

// ExampleKeyValuePairs returns the fields of an imported entry that are
// useful when classifying similar transactions. Empty fields are omitted.
func ExampleKeyValuePairs(txn *ledger.Transaction, p *ledger.Posting) map[string]string {
	pairs := make(map[string]string)

	if txn != nil {
		if txn.Narration != "" {
			pairs["description"] = txn.Narration
		}
		if txn.Payee != "" {
			pairs["payee"] = txn.Payee
		}
	}

	if p != nil {
		if kind := p.Meta.Get(KindKey); kind != "" {
			pairs["kind"] = kind
		}
		if name := p.Meta.Get(CounterpartyNameKey); name != "" {
			pairs["counterparty_name"] = name
		}
	}

	return pairs
}
