package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for request outcomes.
var (
	// ErrTransport signals a connection, timeout or protocol failure.
	ErrTransport = errors.New("transport failure")
	// ErrNotFound signals a 404 from the node.
	ErrNotFound = errors.New("not found")
	// ErrRejected signals a request the node refused (4xx).
	ErrRejected = errors.New("request rejected")
	// ErrServer signals a 5xx or otherwise unexpected status.
	ErrServer = errors.New("server error")
)

// Op names used in error context.
const (
	OpPing         = "ping"
	OpGetProps     = "get_props"
	OpSetProps     = "set_props"
	OpStoreObject  = "store_object"
	OpFetchObject  = "fetch_object"
	OpDeleteObject = "delete_object"
	OpSolrUpdate   = "solr_update"
	OpSolrSelect   = "solr_select"
)

// Error wraps a failed request with enough context to diagnose it.
type Error struct {
	Op         string
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Method, e.Path, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s %s %s: status %d: %v", e.Op, e.Method, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s %s: status %d: %v: %s", e.Op, e.Method, e.Path, e.StatusCode, e.Err, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a response.
func StatusCode(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// classify maps an unexpected status to a sentinel.
func classify(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 400 && status < 500:
		return ErrRejected
	default:
		return ErrServer
	}
}

const maxErrorBody = 512

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
