// Package urlconn provides URL-addressed resource loading.
//
// A caller opens a URL such as "file:///etc/hosts" or "s3://bucket/key" and
// receives a Connection. The connection is lazy: nothing is fetched until
// Connect, Body, or a metadata accessor is called. Schemes are served by
// Handlers that are discovered through a process-wide search path of
// namespaces (see HandlerPathEnv and RegisterNamespace).
//
// Connections are read-only and single-owner: one connection per logical
// request, never shared between goroutines.
package urlconn

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Connection contract
// -----------------------------------------------------------------------------

// Connection is an open (possibly not yet connected) link to the resource
// named by a URL.
//
// Connect and Body report fetch errors to the caller. Metadata accessors
// never do: they attempt a connection if none was made, absorb any error,
// and return a default value ("" for strings, -1 for lengths, the zero
// time.Time for timestamps, an empty Header).
type Connection interface {
	// URL returns the URL the connection was opened for.
	URL() *url.URL

	// SetDoInput controls whether the body is retained after Connect.
	// Defaults to true. Fails with ErrAlreadyConnected after a connection attempt.
	SetDoInput(doInput bool) error

	// SetDoOutput declares write intent. Defaults to false.
	// Fails with ErrAlreadyConnected after a connection attempt.
	SetDoOutput(doOutput bool) error

	// SetIfModifiedSince makes the fetch conditional. The zero time clears it.
	// Fails with ErrAlreadyConnected after a connection attempt.
	SetIfModifiedSince(t time.Time) error

	// Connect performs the fetch. It is idempotent once it succeeds and
	// returns the same error on every call once it has failed.
	Connect(ctx context.Context) error

	// Body connects and returns the resource contents. Repeated calls return
	// the same reader. The caller closes it.
	Body(ctx context.Context) (io.ReadCloser, error)

	ContentType() string
	ContentEncoding() string
	ContentLength() int64
	Date() time.Time
	LastModified() time.Time
	Expiration() time.Time

	// Header returns all response headers in a stable order.
	Header() Header

	// HeaderField returns the last value of the named header.
	HeaderField(name string) string

	// HeaderFieldAt returns the last value of the n-th header.
	HeaderFieldAt(n int) string

	// HeaderFieldKey returns the name of the n-th header.
	HeaderFieldKey(n int) string

	// Permission describes the access needed to use this connection.
	Permission() Permission
}

// Handler opens connections for the schemes it serves.
type Handler interface {
	OpenConnection(ctx context.Context, u *url.URL) (Connection, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, u *url.URL) (Connection, error)

// OpenConnection calls f(ctx, u).
func (f HandlerFunc) OpenConnection(ctx context.Context, u *url.URL) (Connection, error) {
	return f(ctx, u)
}

// Provider is what a namespace exposes to handler lookup. It returns nil
// for schemes the namespace does not serve.
type Provider func(scheme string) Handler

// -----------------------------------------------------------------------------
// Permission
// -----------------------------------------------------------------------------

// Permission is a capability descriptor for access control layers.
//
// Actions uses the "METHODS:HEADERS" form, e.g. "GET:*".
type Permission struct {
	Target  string
	Actions string
}

// ReadPermission returns a GET-scoped permission keyed by the URL string.
func ReadPermission(u *url.URL) Permission {
	return Permission{Target: u.String(), Actions: "GET:*"}
}

// Implies reports whether p grants method on target.
func (p Permission) Implies(method, target string) bool {
	if p.Target != target {
		return false
	}
	methods, _, _ := strings.Cut(p.Actions, ":")
	for _, m := range strings.Split(methods, ",") {
		if m == "*" || strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
