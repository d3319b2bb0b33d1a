package mockbank

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/mercury"
)

// Seed describes the initial emulator state loaded from YAML.
//
//	accounts:
//	  - id: acc_1
//	    name: Checking
//	    transactions:
//	      - id: t1
//	        amount: -12.50
//	        bank_description: COFFEE
//	        counterparty_name: Blue Bottle
//	        kind: debitCardTransaction
//	        posted_at: 2024-01-15T18:30:00Z
//	        status: sent
type Seed struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// SeedAccount is an account and its transactions in API order.
type SeedAccount struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Kind         string            `yaml:"kind"`
	Status       string            `yaml:"status"`
	Transactions []SeedTransaction `yaml:"transactions"`
}

// SeedTransaction is a single emulated transaction.
type SeedTransaction struct {
	ID                   string          `yaml:"id"`
	Amount               decimal.Decimal `yaml:"amount"`
	BankDescription      string          `yaml:"bank_description"`
	CounterpartyName     string          `yaml:"counterparty_name"`
	CounterpartyNickname string          `yaml:"counterparty_nickname"`
	Kind                 string          `yaml:"kind"`
	CreatedAt            string          `yaml:"created_at"`
	PostedAt             string          `yaml:"posted_at"`
	Status               string          `yaml:"status"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &seed, nil
}

// Apply loads the seed into the store.
func (s *Seed) Apply(store *Store) error {
	for _, account := range s.Accounts {
		status := account.Status
		if status == "" {
			status = "active"
		}
		store.AddAccount(mercury.Account{
			ID:     account.ID,
			Name:   account.Name,
			Kind:   account.Kind,
			Status: status,
		})

		txns := make([]mercury.Transaction, 0, len(account.Transactions))
		for _, t := range account.Transactions {
			txns = append(txns, t.toTransaction())
		}
		if err := store.AddTransactions(account.ID, txns...); err != nil {
			return fmt.Errorf("failed to add transactions for %s: %w", account.ID, err)
		}
	}
	return nil
}

func (t SeedTransaction) toTransaction() mercury.Transaction {
	txn := mercury.Transaction{
		ID:               t.ID,
		Amount:           t.Amount,
		BankDescription:  t.BankDescription,
		CounterpartyName: t.CounterpartyName,
		Kind:             t.Kind,
		CreatedAt:        t.CreatedAt,
		Status:           t.Status,
	}
	if t.CounterpartyNickname != "" {
		nickname := t.CounterpartyNickname
		txn.CounterpartyNickname = &nickname
	}
	if t.PostedAt != "" {
		postedAt := t.PostedAt
		txn.PostedAt = &postedAt
	}
	if txn.CreatedAt == "" {
		txn.CreatedAt = t.PostedAt
	}
	if txn.Status == "" {
		txn.Status = mercury.StatusSent
	}
	return txn
}
