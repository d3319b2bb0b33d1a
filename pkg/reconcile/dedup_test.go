package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/ledger"
)

func posting(line int, externalID string) *ledger.Posting {
	p := &ledger.Posting{Account: "Assets:Mercury", Line: line}
	if externalID != "" {
		p.Meta = ledger.Metadata{TransactionIDKey: externalID}
	}
	return p
}

func TestBuildSeenIDs(t *testing.T) {
	tests := []struct {
		name     string
		txns     []*ledger.Transaction
		expected []string
	}{
		{
			name:     "empty ledger",
			txns:     nil,
			expected: nil,
		},
		{
			name: "ids from every posting",
			txns: []*ledger.Transaction{
				{Postings: []*ledger.Posting{posting(3, "t1"), posting(5, "")}},
				{Postings: []*ledger.Posting{posting(9, "t2"), posting(11, "t3")}},
			},
			expected: []string{"t1", "t2", "t3"},
		},
		{
			name: "adjacent posting on the same line is skipped",
			txns: []*ledger.Transaction{
				{Postings: []*ledger.Posting{posting(3, "t1"), posting(3, "t1-derived"), posting(4, "")}},
			},
			expected: []string{"t1"},
		},
		{
			name: "same line only counts when adjacent",
			txns: []*ledger.Transaction{
				{Postings: []*ledger.Posting{posting(3, "t1"), posting(4, "t2"), posting(3, "t3")}},
			},
			expected: []string{"t1", "t2", "t3"},
		},
		{
			name: "line tracking restarts per entry",
			txns: []*ledger.Transaction{
				{Postings: []*ledger.Posting{posting(7, "t1")}},
				{Postings: []*ledger.Posting{posting(7, "t2")}},
			},
			expected: []string{"t1", "t2"},
		},
		{
			name: "postings built in memory have no line",
			txns: []*ledger.Transaction{
				{Postings: []*ledger.Posting{posting(0, "t1"), posting(0, "t2")}},
			},
			expected: []string{"t1", "t2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := BuildSeenIDs(tt.txns)
			assert.Len(t, seen, len(tt.expected))
			for _, id := range tt.expected {
				assert.True(t, seen.Contains(id), "missing %s", id)
			}
		})
	}
}
