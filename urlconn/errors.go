package urlconn

import "errors"

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Error sentinel values for common conditions.
var (
	// ErrNotFound indicates the addressed resource does not exist.
	ErrNotFound = errNotFound{}

	// ErrNotModified indicates a conditional fetch found no change since
	// the If-Modified-Since time.
	ErrNotModified = errNotModified{}
)

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

type errNotModified struct{}

func (errNotModified) Error() string { return "not modified" }

// ErrInvalidScheme indicates a URL whose scheme the connection does not serve.
var ErrInvalidScheme = errors.New("invalid scheme")

// ErrUnsupportedOperation indicates an operation outside the read-only
// contract, such as output on a connection.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// ErrUnknownProtocol indicates no handler is reachable for a URL scheme.
var ErrUnknownProtocol = errors.New("unknown protocol")

// ErrAlreadyConnected indicates a setter called after a connection attempt.
var ErrAlreadyConnected = errors.New("already connected")

// ErrUnsupportedEncoding indicates a Content-Encoding DecodedBody cannot decode.
var ErrUnsupportedEncoding = errors.New("unsupported content encoding")
