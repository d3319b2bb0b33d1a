package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/config"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/ledger"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/mercury"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/mockbank"
)

const (
	testToken  = "test-token"
	mainLedger = `option "operating_currency" "USD"

2024-01-01 open Assets:Mercury:Checking USD
  external_account_id: "acc_1"

2024-01-01 open Expenses:FIXME

2024-01-10 * "Blue Bottle" "COFFEE"
  Assets:Mercury:Checking                        -4.50 USD
    external_id: "t1"
  Expenses:FIXME                                  4.50 USD
`
)

type testEnv struct {
	store      *mockbank.Store
	cfg        *config.Config
	ledgerFile string
	dir        string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := mockbank.NewStore()
	server := httptest.NewServer(mockbank.NewRouter(store, testToken))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	ledgerFile := filepath.Join(dir, "main.beancount")
	require.NoError(t, os.WriteFile(ledgerFile, []byte(mainLedger), 0644))

	cfg := config.Defaults()
	cfg.Mercury.APIURL = server.URL
	cfg.Mercury.APIKey = testToken
	cfg.Mercury.PageSize = 2
	cfg.Ledger.File = ledgerFile

	store.AddAccount(mercury.Account{ID: "acc_1", Name: "Checking", Status: "active"})
	store.AddAccount(mercury.Account{ID: "acc_unbound", Name: "Savings", Status: "active"})

	require.NoError(t, store.AddTransactions("acc_1",
		settled("t1", "-4.50", "2024-01-10T16:00:00Z"),
		settled("t2", "1500.00", "2024-01-31T22:00:00-05:00"),
		settled("t3", "-0.125", "2024-02-01T09:00:00Z"),
		mercury.Transaction{ID: "t4", Amount: decimal.RequireFromString("-9"), CounterpartyName: "Pending", Status: mercury.StatusPending},
	))
	require.NoError(t, store.AddTransactions("acc_unbound",
		settled("u1", "100.00", "2024-01-05T12:00:00Z"),
	))

	return &testEnv{store: store, cfg: &cfg, ledgerFile: ledgerFile, dir: dir}
}

func settled(id, amount, postedAt string) mercury.Transaction {
	return mercury.Transaction{
		ID:               id,
		Amount:           decimal.RequireFromString(amount),
		BankDescription:  "Description " + id,
		CounterpartyName: "Counterparty " + id,
		Kind:             "externalTransfer",
		CreatedAt:        postedAt,
		PostedAt:         &postedAt,
		Status:           mercury.StatusSent,
	}
}

func TestSyncLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var out bytes.Buffer
	summary, err := syncLedger(ctx, env.cfg, false, &out)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, []string{"Assets:Mercury:Checking"}, summary.Touched)
	assert.Equal(t, []string{
		filepath.Join(env.dir, "mercury", "2024", "2024-01.beancount"),
		filepath.Join(env.dir, "mercury", "2024", "2024-02.beancount"),
	}, summary.FilesWritten)

	// The unbound account is never fetched.
	assert.Equal(t, 0, env.store.Requests("acc_unbound"))

	l, err := ledger.Load(env.ledgerFile)
	require.NoError(t, err)
	require.Len(t, l.Transactions, 3)

	t2 := l.Transactions[1]
	assert.Equal(t, "2024-01-31", t2.Date)
	assert.Equal(t, "Counterparty t2", t2.Payee)
	assert.Equal(t, "t2", t2.Postings[0].Meta.Get("external_id"))
	assert.True(t, t2.Balanced())

	t3 := l.Transactions[2]
	assert.True(t, t3.Postings[0].Amount.Number.Equal(decimal.RequireFromString("-0.125")))

	// A second run finds everything already imported.
	out.Reset()
	summary, err = syncLedger(ctx, env.cfg, false, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Imported)
	assert.Equal(t, 3, summary.Skipped)
	assert.Contains(t, out.String(), "No new transactions to import")

	l, err = ledger.Load(env.ledgerFile)
	require.NoError(t, err)
	assert.Len(t, l.Transactions, 3)

	var stats bytes.Buffer
	require.NoError(t, printStats(env.cfg, 5, &stats))
	assert.Contains(t, stats.String(), "Total runs:             2")
	assert.Contains(t, stats.String(), "Imported transactions:  2")
}

func TestSyncLedgerDryRun(t *testing.T) {
	env := newTestEnv(t)

	var out bytes.Buffer
	summary, err := syncLedger(context.Background(), env.cfg, true, &out)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Imported)
	assert.Empty(t, summary.FilesWritten)
	assert.Contains(t, out.String(), "[DRY RUN] Would append to")
	assert.Contains(t, out.String(), `external_id: "t2"`)

	_, err = os.Stat(filepath.Join(env.dir, "mercury", "2024", "2024-01.beancount"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(env.ledgerFile)
	require.NoError(t, err)
	assert.Equal(t, mainLedger, string(data))
}

func TestSyncLedgerRemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailAccount("acc_1", http.StatusInternalServerError)

	_, err := syncLedger(context.Background(), env.cfg, false, &bytes.Buffer{})
	require.Error(t, err)

	var fetchErr *mercury.RemoteFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "acc_1", fetchErr.AccountID)

	var stats bytes.Buffer
	require.NoError(t, printStats(env.cfg, 5, &stats))
	assert.Contains(t, stats.String(), "Failed runs:            1")
}

func TestSyncLedgerResumesAfterPartialWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// February cannot be written, January can.
	blocked := filepath.Join(env.dir, "mercury", "2024", "2024-02.beancount")
	require.NoError(t, os.MkdirAll(blocked, 0755))

	_, err := syncLedger(ctx, env.cfg, false, &bytes.Buffer{})
	require.Error(t, err)

	require.NoError(t, os.Remove(blocked))

	summary, err := syncLedger(ctx, env.cfg, false, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)

	l, err := ledger.Load(env.ledgerFile)
	require.NoError(t, err)
	require.Len(t, l.Transactions, 3)

	counts := map[string]int{}
	for _, txn := range l.Transactions {
		counts[txn.Postings[0].Meta.Get("external_id")]++
	}
	assert.Equal(t, map[string]int{"t1": 1, "t2": 1, "t3": 1}, counts)
}

func TestSyncLedgerDuplicateBinding(t *testing.T) {
	env := newTestEnv(t)

	f, err := os.OpenFile(env.ledgerFile, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("\n2024-01-01 open Assets:Mercury:Other\n  external_account_id: \"acc_1\"\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = syncLedger(context.Background(), env.cfg, false, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, 0, env.store.Requests("acc_1"))
}

func TestListAccounts(t *testing.T) {
	env := newTestEnv(t)

	var out bytes.Buffer
	require.NoError(t, listAccounts(context.Background(), env.cfg, &out))

	assert.Contains(t, out.String(), "Assets:Mercury:Checking")
	assert.Contains(t, out.String(), "(unbound)")
}
