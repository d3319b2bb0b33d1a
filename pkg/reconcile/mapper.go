// Package reconcile converts Mercury transactions into ledger entries and
// reconciles them against an existing ledger without importing anything twice.
package reconcile

import (
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/ledger"
)

// Metadata keys written to and read from the ledger.
const (
	// AccountIDKey binds a ledger account to a Mercury account on its open directive.
	AccountIDKey = "external_account_id"

	// TransactionIDKey identifies the Mercury transaction a posting came from.
	TransactionIDKey = "external_id"

	SettlementDateKey   = "settlement_date"
	KindKey             = "kind"
	CounterpartyNameKey = "counterparty_name"
	SourceKey           = "source"
)

// Binding associates one ledger account with one Mercury account.
type Binding struct {
	Account    string
	ExternalID string
	Currency   string // Empty when the open directive declares no single currency
}

// Bindings is the bidirectional account mapping for one run.
type Bindings struct {
	ByAccount    map[string]Binding
	ByExternalID map[string]Binding
}

// Account returns the ledger account bound to an external account id.
func (b *Bindings) Account(externalID string) (Binding, bool) {
	binding, ok := b.ByExternalID[externalID]
	return binding, ok
}

// ExternalIDs returns the bound external account ids in ledger order.
func (b *Bindings) ExternalIDs(opens []*ledger.Open) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, open := range opens {
		id := open.Meta.Get(AccountIDKey)
		if id == "" || seen[id] {
			continue
		}
		if _, ok := b.ByExternalID[id]; ok {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	return ids
}

// BuildBindings reads the external_account_id metadata of every open
// directive. Accounts without it are left out. An external id on two
// accounts, or an account opened twice with different ids, is a
// *DuplicateBindingError.
func BuildBindings(opens []*ledger.Open) (*Bindings, error) {
	bindings := &Bindings{
		ByAccount:    make(map[string]Binding),
		ByExternalID: make(map[string]Binding),
	}

	for _, open := range opens {
		externalID := open.Meta.Get(AccountIDKey)
		if externalID == "" {
			continue
		}

		if existing, ok := bindings.ByExternalID[externalID]; ok && existing.Account != open.Account {
			return nil, &DuplicateBindingError{
				ExternalID: externalID,
				Accounts:   []string{existing.Account, open.Account},
			}
		}
		if existing, ok := bindings.ByAccount[open.Account]; ok && existing.ExternalID != externalID {
			return nil, &DuplicateBindingError{
				ExternalID: externalID,
				Accounts:   []string{open.Account, existing.ExternalID},
			}
		}

		binding := Binding{
			Account:    open.Account,
			ExternalID: externalID,
		}
		if len(open.Currencies) == 1 {
			binding.Currency = open.Currencies[0]
		}

		bindings.ByAccount[open.Account] = binding
		bindings.ByExternalID[externalID] = binding
	}

	return bindings, nil
}
