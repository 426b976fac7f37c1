package metadata

import (
	"errors"
	"fmt"
)

// Parse failures. They describe a single NFT and are never fatal to a scan.
var (
	ErrInvalidEncoding = errors.New("invalid uri encoding")
	ErrFetchFailed     = errors.New("metadata fetch failed")
	ErrMissingField    = errors.New("no domain name in metadata")
)

// StatusError is returned by HTTPFetcher for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: http status %d", e.URL, e.StatusCode)
}

// Reason maps a Parse error to a short label for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidEncoding):
		return "invalid_encoding"
	case errors.Is(err, ErrFetchFailed):
		return "fetch_failed"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	default:
		return "other"
	}
}
