package feed

import "fmt"

// ErrorKind classifies a refresh failure for status display and tallying.
type ErrorKind int

const (
	ErrNetwork ErrorKind = iota
	ErrTimeout
	ErrParse
	ErrStorage
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNetwork:
		return "network"
	case ErrTimeout:
		return "timeout"
	case ErrParse:
		return "parse"
	case ErrStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// FetchError wraps a refresh failure with its classification. All background
// fetch failures are reported as FetchError; none escape as process-level
// failures.
type FetchError struct {
	Kind ErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func newFetchError(kind ErrorKind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}
