package stage

import (
	"errors"
	"fmt"
)

// ErrSiteNotFound reports that a location code matched zero metadata records.
var ErrSiteNotFound = errors.New("site not found")

// InvalidArgumentError reports caller input the library cannot act on: a
// malformed date string, an unsupported dataset selector type, an inverted
// time range, an unrecognized offset unit. Never retried.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

func invalidArgf(format string, args ...any) error {
	return &InvalidArgumentError{Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidArgument reports whether err is an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var ia *InvalidArgumentError
	return errors.As(err, &ia)
}

// UpstreamError reports a transport-level failure or a non-success response
// from the remote mapping service. Distinct from "no data", which is an empty
// result, and from InvalidArgumentError, which is the caller's fault.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream %s failed: %s (status %d)", e.Operation, e.Message, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("upstream %s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("upstream %s failed with status %d", e.Operation, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
