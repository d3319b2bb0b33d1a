// Package mockbank provides an in-memory emulator of the Mercury banking API
// for development and testing.
package mockbank

import (
	"errors"
	"sync"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/mercury"
)

// ErrNotFound is returned when an account does not exist.
var ErrNotFound = errors.New("record not found")

// Store holds emulated accounts and their transactions.
type Store struct {
	mu           sync.RWMutex
	accounts     []mercury.Account
	transactions map[string][]mercury.Transaction
	failures     map[string]int
	requests     map[string]int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		transactions: make(map[string][]mercury.Transaction),
		failures:     make(map[string]int),
		requests:     make(map[string]int),
	}
}

// AddAccount registers an account. Adding an existing id replaces it.
func (s *Store) AddAccount(account mercury.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.accounts {
		if existing.ID == account.ID {
			s.accounts[i] = account
			return
		}
	}
	s.accounts = append(s.accounts, account)
}

// AddTransactions appends transactions to an account, keeping API order.
func (s *Store) AddTransactions(accountID string, txns ...mercury.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasAccount(accountID) {
		return ErrNotFound
	}
	s.transactions[accountID] = append(s.transactions[accountID], txns...)
	return nil
}

// FailAccount makes every transaction request for the account answer with
// the given HTTP status. A zero status clears the failure.
func (s *Store) FailAccount(accountID string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status == 0 {
		delete(s.failures, accountID)
		return
	}
	s.failures[accountID] = status
}

// ListAccounts returns all accounts.
func (s *Store) ListAccounts() []mercury.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]mercury.Account, len(s.accounts))
	copy(result, s.accounts)
	return result
}

// ListTransactions returns one page of an account's transactions together
// with the total count. It also returns the injected failure status, if any.
func (s *Store) ListTransactions(accountID string, offset, limit int) ([]mercury.Transaction, int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasAccount(accountID) {
		return nil, 0, 0, ErrNotFound
	}
	s.requests[accountID]++

	if status, ok := s.failures[accountID]; ok {
		return nil, 0, status, nil
	}

	all := s.transactions[accountID]
	if offset >= len(all) {
		return []mercury.Transaction{}, len(all), 0, nil
	}

	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]mercury.Transaction, end-offset)
	copy(page, all[offset:end])
	return page, len(all), 0, nil
}

// Requests returns how many transaction pages were requested for an account.
func (s *Store) Requests(accountID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.requests[accountID]
}

func (s *Store) hasAccount(accountID string) bool {
	for _, account := range s.accounts {
		if account.ID == accountID {
			return true
		}
	}
	return false
}
