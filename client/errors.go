package client

import (
	"errors"
	"fmt"
)

// ErrNotYetAvailable means the availability network has no record at the
// requested height yet. The record may still be propagating; callers should
// retry (the retriever package does this with a bounded backoff).
var ErrNotYetAvailable = errors.New("transition not yet available")

// RemoteError is a non-2xx response from the ledger service, carrying the
// service's own error string when the body had one.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger service returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ledger service returned %d", e.StatusCode)
}
