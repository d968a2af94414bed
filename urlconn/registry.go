package urlconn

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
)

// HandlerPathEnv names the process-wide handler search path: a list of
// namespaces separated by HandlerPathSeparator. Lookup consults them in order.
const HandlerPathEnv = "URLCONN_HANDLER_PKGS"

// HandlerPathSeparator separates entries in HandlerPathEnv.
const HandlerPathSeparator = "|"

var (
	namespacesMu sync.RWMutex
	namespaces   = make(map[string]Provider)
)

// builtin handlers are consulted after the search path.
var builtin = map[string]Handler{
	"file": fileHandler{},
}

// RegisterNamespace makes a namespace discoverable by handler lookup.
// It does not put the namespace on the search path; that is the job of the
// namespace's own registration call.
//
// Intended for package init. Panics if ns is empty, p is nil, or ns is
// already registered.
func RegisterNamespace(ns string, p Provider) {
	if ns == "" {
		panic("urlconn: RegisterNamespace with empty namespace")
	}
	if p == nil {
		panic("urlconn: RegisterNamespace provider is nil")
	}
	namespacesMu.Lock()
	defer namespacesMu.Unlock()
	if _, dup := namespaces[ns]; dup {
		panic("urlconn: RegisterNamespace called twice for " + ns)
	}
	namespaces[ns] = p
}

// HandlerPath returns the entries of the search path in order.
// Empty entries are dropped.
func HandlerPath() []string {
	return SplitHandlerPath(os.Getenv(HandlerPathEnv))
}

// SplitHandlerPath parses a search path value.
func SplitHandlerPath(value string) []string {
	var out []string
	for _, entry := range strings.Split(value, HandlerPathSeparator) {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// Lookup returns the handler for scheme.
//
// Namespaces on the search path are tried in order, then built-in handlers.
// Returns ErrUnknownProtocol when nothing serves the scheme.
func Lookup(scheme string) (Handler, error) {
	scheme = strings.ToLower(scheme)

	namespacesMu.RLock()
	for _, ns := range HandlerPath() {
		p, ok := namespaces[ns]
		if !ok {
			continue
		}
		if h := p(scheme); h != nil {
			namespacesMu.RUnlock()
			return h, nil
		}
	}
	namespacesMu.RUnlock()

	if h, ok := builtin[scheme]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("urlconn: %w: %s", ErrUnknownProtocol, scheme)
}

// Open parses rawURL and opens a connection through the handler for its scheme.
func Open(ctx context.Context, rawURL string) (Connection, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("urlconn: parse url: %w", err)
	}
	return OpenURL(ctx, u)
}

// OpenURL opens a connection through the handler for u's scheme.
func OpenURL(ctx context.Context, u *url.URL) (Connection, error) {
	if u.Scheme == "" {
		return nil, fmt.Errorf("urlconn: %w: no scheme in %q", ErrUnknownProtocol, u.String())
	}
	h, err := Lookup(u.Scheme)
	if err != nil {
		return nil, err
	}
	return h.OpenConnection(ctx, u)
}
