package reconcile

import (
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/ledger"
)

// SeenIDs is the set of Mercury transaction ids already present in the ledger.
type SeenIDs map[string]struct{}

// Contains reports whether id has already been imported.
func (s SeenIDs) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// BuildSeenIDs collects the external_id of every posting in txns.
// A posting that shares its source line with the posting before it was
// derived during booking and does not contribute an id.
func BuildSeenIDs(txns []*ledger.Transaction) SeenIDs {
	seen := make(SeenIDs)

	for _, txn := range txns {
		prevLine := 0
		for i, posting := range txn.Postings {
			if i > 0 && posting.Line != 0 && posting.Line == prevLine {
				continue
			}
			prevLine = posting.Line

			if id := posting.Meta.Get(TransactionIDKey); id != "" {
				seen[id] = struct{}{}
			}
		}
	}

	return seen
}
