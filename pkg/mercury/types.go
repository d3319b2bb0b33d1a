// Package mercury provides a Mercury banking API client and types.
package mercury

import "github.com/shopspring/decimal"

// Transaction statuses reported by the Mercury API.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Account represents a bank account in Mercury.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Status         string          `json:"status"`
	Kind           string          `json:"kind"`
	AccountNumber  string          `json:"accountNumber,omitempty"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
}

// Transaction represents a transaction on a Mercury account.
type Transaction struct {
	ID                   string          `json:"id"`
	Amount               decimal.Decimal `json:"amount"`
	BankDescription      string          `json:"bankDescription"`
	CounterpartyID       string          `json:"counterpartyId,omitempty"`
	CounterpartyName     string          `json:"counterpartyName"`
	CounterpartyNickname *string         `json:"counterpartyNickname,omitempty"`
	Kind                 string          `json:"kind"`
	Note                 *string         `json:"note,omitempty"`
	CreatedAt            string          `json:"createdAt"`
	PostedAt             *string         `json:"postedAt,omitempty"` // RFC 3339, set once settled
	Status               string          `json:"status"`
}

// Settled reports whether the transaction reached final settlement.
func (t Transaction) Settled() bool {
	return t.Status == StatusSent
}

// AccountTransactions groups the settled transactions fetched for one account,
// in the order the API returned them.
type AccountTransactions struct {
	AccountID    string
	Transactions []Transaction
}

// AccountsResponse represents the response from /accounts endpoint.
type AccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

// TransactionsResponse represents the response from /account/{id}/transactions endpoint.
type TransactionsResponse struct {
	Total        int           `json:"total"`
	Transactions []Transaction `json:"transactions"`
}

// ErrorResponse represents an error response from Mercury API.
type ErrorResponse struct {
	Errors struct {
		Message string `json:"message"`
	} `json:"errors"`
}
