package backend

import (
	"errors"
	"fmt"
)

// ErrCodeMismatch is returned by VerifyCode when the backend rejects the code.
var ErrCodeMismatch = errors.New("verification code mismatch")

// Error describes a failed backend call: either a non-success HTTP status or a
// transport failure before any status was received.
type Error struct {
	Endpoint  string
	Status    int    // 0 for transport failures
	Message   string // backend "error" field, when present
	Transport bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Transport {
		return fmt.Sprintf("backend %s: request failed: %v", e.Endpoint, e.Cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("backend %s: status %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("backend %s: status %d", e.Endpoint, e.Status)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns the backend's own message, or fallback when it sent none.
func UserMessage(err error, fallback string) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}
