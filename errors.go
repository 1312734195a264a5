package riak

import (
	"errors"

	"github.com/kailas-cloud/riak/internal/transport"
)

// Request outcome sentinels. Match them with errors.Is.
var (
	// ErrTransport signals a connection, timeout or protocol failure.
	// Such requests are never retried by the client.
	ErrTransport = transport.ErrTransport
	// ErrNotFound signals a missing object.
	ErrNotFound = transport.ErrNotFound
	// ErrRejected signals a request the node refused, e.g. a malformed document.
	ErrRejected = transport.ErrRejected
	// ErrServer signals a node-side failure.
	ErrServer = transport.ErrServer
)

// Local validation errors; no request is sent when one of these is returned.
var (
	ErrInvalidDocument = errors.New("riak: invalid document")
	ErrMissingKey      = errors.New("riak: object key required")
	ErrEmptyName       = errors.New("riak: bucket or index name required")
	ErrSearchState     = errors.New("riak: search state not reached")
)

// Error carries request context (operation, path, status, body) for a
// failed call. Retrieve it with errors.As.
type Error = transport.Error

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int { return transport.StatusCode(err) }
