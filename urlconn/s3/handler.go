// Package s3 serves "s3://bucket/key" URLs for urlconn.
//
// # Usage
//
// Call Register once at startup, then open S3 URLs like any other:
//
//	if err := s3.Register(); err != nil {
//	    return err
//	}
//	conn, err := urlconn.Open(ctx, "s3://my-bucket/path/to/object.json")
//	body, err := conn.Body(ctx)
//
// The URL host is the bucket; the path, minus one leading "/", is the key.
//
// # Client
//
// Connections opened through the registered handler share one *s3.Client
// built on first use from S3URL_CONFIG (a YAML file) and S3URL_* environment
// overrides, falling back to the AWS default credential chain. The client
// lives for the rest of the process and is never closed. Use Handler or
// NewConn directly to supply a different client.
//
// # Behavior
//
// Each connection issues at most one GetObject. A failed fetch is stored and
// returned again by later Connect and Body calls without retrying. Metadata
// accessors never return errors; they report defaults when no response is
// available. Writes, listing, and range reads are not supported.
package s3

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/inconshreveable/log15"
	"go.opentelemetry.io/otel/trace"

	s3client "github.com/pithecene-io/s3url/internal/s3"
	"github.com/pithecene-io/s3url/urlconn"
)

// Scheme is the URL scheme served by this package.
const Scheme = "s3"

// Namespace is the entry Register places on the urlconn handler search path.
const Namespace = "github.com/pithecene-io/s3url/urlconn/s3"

// defaultHandler serves connections found through the search path.
var defaultHandler = &Handler{}

func init() {
	urlconn.RegisterNamespace(Namespace, func(scheme string) urlconn.Handler {
		if scheme == Scheme {
			return defaultHandler
		}
		return nil
	})
}

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

var registerMu sync.Mutex

// Register appends Namespace to the process-wide handler search path
// (urlconn.HandlerPathEnv) so urlconn.Open resolves "s3" URLs. It must run
// before the first S3 URL is opened.
//
// Register is idempotent: when Namespace is already on the path the path is
// left unchanged.
func Register() error {
	registerMu.Lock()
	defer registerMu.Unlock()

	path := os.Getenv(urlconn.HandlerPathEnv)
	if slices.Contains(urlconn.SplitHandlerPath(path), Namespace) {
		return nil
	}
	if path != "" {
		path += urlconn.HandlerPathSeparator
	}
	path += Namespace

	if err := os.Setenv(urlconn.HandlerPathEnv, path); err != nil {
		return fmt.Errorf("s3: register: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Handler
// -----------------------------------------------------------------------------

// Handler opens a new Conn per URL. It keeps no per-connection state and is
// safe for concurrent use.
type Handler struct {
	// Client performs fetches. Nil uses DefaultClient.
	Client API

	// Logger, Metrics, and Tracer are passed to every connection.
	// Nil values select the package defaults.
	Logger  log15.Logger
	Metrics *Metrics
	Tracer  trace.Tracer
}

// OpenConnection implements urlconn.Handler.
func (h *Handler) OpenConnection(ctx context.Context, u *url.URL) (urlconn.Connection, error) {
	if err := validateScheme(u); err != nil {
		return nil, err
	}

	client := h.Client
	if client == nil {
		c, err := DefaultClient()
		if err != nil {
			return nil, err
		}
		client = c
	}

	conn, err := NewConn(ctx, u, client,
		WithLogger(h.Logger),
		WithMetrics(h.Metrics),
		WithTracer(h.Tracer),
	)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

var _ urlconn.Handler = (*Handler)(nil)

// DefaultHandler returns the handler that serves URLs resolved through the
// search path. Set its fields before the first S3 URL is opened.
func DefaultHandler() *Handler {
	return defaultHandler
}

// -----------------------------------------------------------------------------
// Shared client
// -----------------------------------------------------------------------------

var defaultClient = sync.OnceValues(func() (*s3.Client, error) {
	cfg, err := s3client.LoadClientConfig(os.Getenv(s3client.EnvConfig))
	if err != nil {
		return nil, err
	}
	return s3client.NewClient(context.Background(), cfg)
})

// DefaultClient returns the process-wide client, building it on first call.
// A construction error is returned on every call.
func DefaultClient() (*s3.Client, error) {
	return defaultClient()
}
