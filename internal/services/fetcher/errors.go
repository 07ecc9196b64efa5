package fetcher

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a FetchError.
type ErrorKind string

const (
	KindNetwork        ErrorKind = "network"
	KindStatus         ErrorKind = "status"
	KindParse          ErrorKind = "parse"
	KindMissingSection ErrorKind = "missing_section"
)

// FetchError means no candidates could be produced this cycle.
// It is never fatal to the process.
type FetchError struct {
	URL    string
	Kind   ErrorKind
	Status int // HTTP status for KindStatus
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	case KindMissingSection:
		return fmt.Sprintf("fetch %s: content section not found: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// retryable reports whether another attempt could succeed.
func (e *FetchError) retryable() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindStatus:
		return e.Status >= 500 || e.Status == 429
	default:
		return false
	}
}

// IsFetchError reports whether err is (or wraps) a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
