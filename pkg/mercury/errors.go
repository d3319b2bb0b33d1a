package mercury

import "fmt"

// RemoteFetchError is returned when the Mercury API answers with a
// non-success status or a body that cannot be decoded. AccountID is empty
// for account listing failures.
type RemoteFetchError struct {
	AccountID  string
	Offset     int
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteFetchError) Error() string {
	target := "accounts"
	if e.AccountID != "" {
		target = fmt.Sprintf("account %s (offset=%d)", e.AccountID, e.Offset)
	}

	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("mercury API error for %s (status %d): %s", target, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("mercury API error for %s (status %d)", target, e.StatusCode)
	default:
		return fmt.Sprintf("mercury API error for %s: %v", target, e.Err)
	}
}

func (e *RemoteFetchError) Unwrap() error {
	return e.Err
}
