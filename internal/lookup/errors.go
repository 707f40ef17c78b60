package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound reports that the upstream index has no result for a package.
	ErrNotFound = errors.New("package not found")
	// ErrEmptyBatch is returned when no package IDs were supplied.
	ErrEmptyBatch = errors.New("no IDs were provided")
	// ErrBatchTooLarge is returned when more than MaxBatchSize IDs were supplied.
	ErrBatchTooLarge = fmt.Errorf("the maximum number of IDs that can be searched is %d", MaxBatchSize)
	// ErrEmptyID is returned when one of the supplied IDs is blank.
	ErrEmptyID = errors.New("package IDs must not be empty")
)

// maxErrorBody bounds the upstream body kept for diagnostics.
const maxErrorBody = 2048

// UpstreamError reports a failed call to the search backend. StatusCode is zero
// when no response was received.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

// NewUpstreamError builds an UpstreamError, truncating body for diagnostics.
func NewUpstreamError(status int, body []byte, err error) *UpstreamError {
	b := string(body)
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return &UpstreamError{StatusCode: status, Body: strings.TrimSpace(b), Err: err}
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("upstream unavailable: %v", e.Err)
		}
		return "upstream unavailable"
	}
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports an upstream payload that does not match the
// expected envelope.
type MalformedResponseError struct {
	ID     PackageID
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("malformed response for %q: %s", e.ID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// Classify maps a lookup error onto the HTTP status and message shown to callers.
func Classify(err error) (int, string) {
	var (
		upstream  *UpstreamError
		malformed *MalformedResponseError
	)
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrEmptyBatch), errors.Is(err, ErrBatchTooLarge), errors.Is(err, ErrEmptyID):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &upstream):
		return http.StatusBadGateway, upstream.Error()
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.As(err, &malformed):
		return http.StatusInternalServerError, malformed.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
