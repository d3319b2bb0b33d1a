package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/ledger"
)

func open(account, externalID string, currencies ...string) *ledger.Open {
	meta := ledger.Metadata{}
	if externalID != "" {
		meta[AccountIDKey] = externalID
	}
	return &ledger.Open{
		Date:       "2024-01-01",
		Account:    account,
		Currencies: currencies,
		Meta:       meta,
	}
}

func TestBuildBindings(t *testing.T) {
	opens := []*ledger.Open{
		open("Assets:Mercury:Checking", "acc_1", "USD"),
		open("Assets:Mercury:Savings", "acc_2"),
		open("Assets:Cash", ""),
		open("Assets:Multi", "acc_3", "USD", "EUR"),
	}

	bindings, err := BuildBindings(opens)
	require.NoError(t, err)

	assert.Len(t, bindings.ByAccount, 3)
	assert.Len(t, bindings.ByExternalID, 3)

	checking, ok := bindings.Account("acc_1")
	require.True(t, ok)
	assert.Equal(t, "Assets:Mercury:Checking", checking.Account)
	assert.Equal(t, "USD", checking.Currency)

	savings := bindings.ByAccount["Assets:Mercury:Savings"]
	assert.Equal(t, "acc_2", savings.ExternalID)
	assert.Empty(t, savings.Currency)

	assert.Empty(t, bindings.ByExternalID["acc_3"].Currency)

	_, ok = bindings.Account("acc_missing")
	assert.False(t, ok)
	_, ok = bindings.ByAccount["Assets:Cash"]
	assert.False(t, ok)

	assert.Equal(t, []string{"acc_1", "acc_2", "acc_3"}, bindings.ExternalIDs(opens))
}

func TestBuildBindingsConflicts(t *testing.T) {
	tests := []struct {
		name       string
		opens      []*ledger.Open
		externalID string
	}{
		{
			name: "same id on two accounts",
			opens: []*ledger.Open{
				open("Assets:A", "acc_1"),
				open("Assets:B", "acc_1"),
			},
			externalID: "acc_1",
		},
		{
			name: "account reopened with another id",
			opens: []*ledger.Open{
				open("Assets:A", "acc_1"),
				open("Assets:A", "acc_2"),
			},
			externalID: "acc_2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildBindings(tt.opens)
			require.Error(t, err)

			var dup *DuplicateBindingError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, tt.externalID, dup.ExternalID)
		})
	}
}

func TestBuildBindingsSameAccountReopened(t *testing.T) {
	bindings, err := BuildBindings([]*ledger.Open{
		open("Assets:A", "acc_1"),
		open("Assets:A", "acc_1"),
	})
	require.NoError(t, err)
	assert.Len(t, bindings.ByAccount, 1)
}
