package kosoku

import (
	"errors"
	"fmt"
)

// ErrServiceUnavailable is the transient upstream condition that catalog
// lookups retry on. An HTTP 503 maps here; every other non-2xx status is an
// *InvalidResponseError and fails immediately.
var ErrServiceUnavailable = errors.New("kosoku: service unavailable")

// ErrParse wraps malformed markup and missing required fields.
var ErrParse = errors.New("kosoku: parse error")

// InvalidResponseError is a non-2xx, non-503 HTTP response.
type InvalidResponseError struct {
	Status int
	URL    string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("kosoku: unexpected status %d from %s", e.Status, e.URL)
}
