package mockbank

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/mercury"
)

// MaxPageSize is the largest limit the emulator accepts.
const MaxPageSize = 500

// NewRouter returns the emulator's HTTP handler. Every endpoint requires
// "Authorization: Bearer <token>".
func NewRouter(store *Store, token string) http.Handler {
	h := &handler{store: store}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(token))

		r.Get("/accounts", h.listAccounts)
		r.Get("/account/{id}/transactions", h.listTransactions)
	})

	return r
}

// AuthMiddleware rejects requests that do not carry the expected bearer token.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSONError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			if parts[1] != token {
				writeJSONError(w, http.StatusUnauthorized, "Invalid API token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type handler struct {
	store *Store
}

// listAccounts handles GET /accounts.
func (h *handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": h.store.ListAccounts(),
	})
}

// listTransactions handles GET /account/{id}/transactions.
func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	limit, err := intParam(r, "limit", MaxPageSize)
	if err != nil || limit < 1 || limit > MaxPageSize {
		writeJSONError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		writeJSONError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	txns, total, failStatus, err := h.store.ListTransactions(accountID, offset, limit)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "Account not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if failStatus != 0 {
		writeJSONError(w, failStatus, http.StatusText(failStatus))
		return
	}

	wire := make([]wireTransaction, 0, len(txns))
	for _, txn := range txns {
		wire = append(wire, toWire(txn))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":        total,
		"transactions": wire,
	})
}

// wireTransaction mirrors mercury.Transaction but encodes the amount as a
// bare JSON number, the way the real API does.
type wireTransaction struct {
	ID                   string      `json:"id"`
	Amount               json.Number `json:"amount"`
	BankDescription      string      `json:"bankDescription"`
	CounterpartyID       string      `json:"counterpartyId,omitempty"`
	CounterpartyName     string      `json:"counterpartyName"`
	CounterpartyNickname *string     `json:"counterpartyNickname"`
	Kind                 string      `json:"kind"`
	Note                 *string     `json:"note"`
	CreatedAt            string      `json:"createdAt"`
	PostedAt             *string     `json:"postedAt"`
	Status               string      `json:"status"`
}

func toWire(txn mercury.Transaction) wireTransaction {
	return wireTransaction{
		ID:                   txn.ID,
		Amount:               json.Number(txn.Amount.String()),
		BankDescription:      txn.BankDescription,
		CounterpartyID:       txn.CounterpartyID,
		CounterpartyName:     txn.CounterpartyName,
		CounterpartyNickname: txn.CounterpartyNickname,
		Kind:                 txn.Kind,
		Note:                 txn.Note,
		CreatedAt:            txn.CreatedAt,
		PostedAt:             txn.PostedAt,
		Status:               txn.Status,
	}
}

func intParam(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	var resp mercury.ErrorResponse
	resp.Errors.Message = message
	writeJSON(w, status, resp)
}
