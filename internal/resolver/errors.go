package resolver

import (
	"context"
	"errors"
)

var (
	// ErrInvalidFormat reports a malformed domain name or account address.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrNotFound reports that no registered service issued the name.
	ErrNotFound = errors.New("domain not found")
	// ErrTransport wraps ledger enumeration failures.
	ErrTransport = errors.New("ledger transport error")
)

// resultLabel maps an operation outcome to its metrics label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidFormat):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case isContextErr(err):
		return "canceled"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "error"
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
