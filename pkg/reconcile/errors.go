package reconcile

import (
	"fmt"
	"strings"
)

// DuplicateBindingError is returned when one external account id is bound
// to more than one ledger account, or one ledger account carries more than
// one external account id.
type DuplicateBindingError struct {
	ExternalID string
	Accounts   []string
}

func (e *DuplicateBindingError) Error() string {
	return fmt.Sprintf("external account %s is bound ambiguously: %s",
		e.ExternalID, strings.Join(e.Accounts, ", "))
}

// MissingPayeeError is returned when a transaction has neither a
// counterparty nickname nor a counterparty name.
type MissingPayeeError struct {
	TransactionID string
}

func (e *MissingPayeeError) Error() string {
	return fmt.Sprintf("transaction %s has no counterparty name", e.TransactionID)
}

// ConversionFailure records a transaction that could not be converted.
type ConversionFailure struct {
	AccountID     string
	TransactionID string
	Err           error
}

func (f ConversionFailure) Error() string {
	return fmt.Sprintf("account %s transaction %s: %v", f.AccountID, f.TransactionID, f.Err)
}

func (f ConversionFailure) Unwrap() error {
	return f.Err
}
