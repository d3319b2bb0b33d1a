package mockbank

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/mercury"
)

const testToken = "emulator-token"

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store := NewStore()
	store.AddAccount(mercury.Account{ID: "acc_1", Name: "Checking", Status: "active"})

	postedAt := "2024-01-15T18:30:00Z"
	var txns []mercury.Transaction
	for _, id := range []string{"t1", "t2", "t3"} {
		txns = append(txns, mercury.Transaction{
			ID:               id,
			Amount:           decimal.RequireFromString("-10.005"),
			CounterpartyName: "Acme",
			PostedAt:         &postedAt,
			Status:           mercury.StatusSent,
		})
	}
	require.NoError(t, store.AddTransactions("acc_1", txns...))
	return store
}

func doRequest(t *testing.T, handler http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, NewRouter(NewStore(), testToken), "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	router := NewRouter(newTestStore(t), testToken)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "Missing Authorization header"},
		{"wrong scheme", "Basic abc", "Invalid Authorization header format"},
		{"wrong token", "Bearer nope", "Invalid API token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var resp mercury.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.message, resp.Errors.Message)
		})
	}
}

func TestListAccountsHandler(t *testing.T) {
	rec := doRequest(t, NewRouter(newTestStore(t), testToken), "/accounts", testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp mercury.AccountsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Accounts, 1)
	assert.Equal(t, "acc_1", resp.Accounts[0].ID)
}

func TestListTransactionsHandler(t *testing.T) {
	router := NewRouter(newTestStore(t), testToken)

	tests := []struct {
		name   string
		path   string
		status int
		ids    []string
	}{
		{"first page", "/account/acc_1/transactions?limit=2&offset=0", http.StatusOK, []string{"t1", "t2"}},
		{"second page", "/account/acc_1/transactions?limit=2&offset=2", http.StatusOK, []string{"t3"}},
		{"past the end", "/account/acc_1/transactions?limit=2&offset=10", http.StatusOK, []string{}},
		{"default limit", "/account/acc_1/transactions", http.StatusOK, []string{"t1", "t2", "t3"}},
		{"limit too large", "/account/acc_1/transactions?limit=501", http.StatusBadRequest, nil},
		{"zero limit", "/account/acc_1/transactions?limit=0", http.StatusBadRequest, nil},
		{"negative offset", "/account/acc_1/transactions?offset=-1", http.StatusBadRequest, nil},
		{"unknown account", "/account/acc_x/transactions", http.StatusNotFound, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, tt.path, testToken)
			require.Equal(t, tt.status, rec.Code)
			if tt.ids == nil {
				return
			}

			var resp mercury.TransactionsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, 3, resp.Total)

			ids := []string{}
			for _, txn := range resp.Transactions {
				ids = append(ids, txn.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestListTransactionsAmountIsJSONNumber(t *testing.T) {
	rec := doRequest(t, NewRouter(newTestStore(t), testToken), "/account/acc_1/transactions?limit=1", testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw struct {
		Transactions []map[string]json.RawMessage `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw.Transactions, 1)
	assert.Equal(t, "-10.005", string(raw.Transactions[0]["amount"]))
}

func TestFailAccount(t *testing.T) {
	store := newTestStore(t)
	router := NewRouter(store, testToken)

	store.FailAccount("acc_1", http.StatusServiceUnavailable)
	rec := doRequest(t, router, "/account/acc_1/transactions", testToken)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	store.FailAccount("acc_1", 0)
	rec = doRequest(t, router, "/account/acc_1/transactions", testToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2, store.Requests("acc_1"))
}
