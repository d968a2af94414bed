package urlconn_test

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/s3url/urlconn"
)

// -----------------------------------------------------------------------------
// In-memory connections for tests
// -----------------------------------------------------------------------------

const (
	memNamespace    = "example.com/urlconn/mem"
	shadowNamespace = "example.com/urlconn/shadow"
)

// memObjects is served by the "mem" scheme, keyed by URL host + path.
var memObjects = map[string]memObject{}

type memObject struct {
	body     []byte
	encoding string
}

func init() {
	urlconn.RegisterNamespace(memNamespace, func(scheme string) urlconn.Handler {
		if scheme != "mem" {
			return nil
		}
		return urlconn.HandlerFunc(func(_ context.Context, u *url.URL) (urlconn.Connection, error) {
			return newMemConn(u), nil
		})
	})
	// shadow serves "file" to show that the search path wins over built-ins.
	urlconn.RegisterNamespace(shadowNamespace, func(scheme string) urlconn.Handler {
		if scheme != "file" && scheme != "mem" {
			return nil
		}
		return urlconn.HandlerFunc(func(_ context.Context, u *url.URL) (urlconn.Connection, error) {
			c := newMemConn(u)
			c.shadow = true
			return c, nil
		})
	})
}

type memConn struct {
	urlconn.Base

	obj    memObject
	found  bool
	body   *closeTracker
	shadow bool
}

func newMemConn(u *url.URL) *memConn {
	return &memConn{Base: urlconn.NewBase(u)}
}

func (c *memConn) Connect(ctx context.Context) error {
	return c.Establish(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		obj, ok := memObjects[c.URL().Host+c.URL().Path]
		if !ok {
			return urlconn.ErrNotFound
		}
		c.obj, c.found = obj, true
		c.body = &closeTracker{Reader: bytes.NewReader(obj.body)}
		return nil
	})
}

func (c *memConn) Body(ctx context.Context) (io.ReadCloser, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c.body, nil
}

func (c *memConn) ContentType() string { return "" }
func (c *memConn) ContentEncoding() string { return c.obj.encoding }
func (c *memConn) ContentLength() int64 {
	if !c.found {
		return -1
	}
	return int64(len(c.obj.body))
}
func (c *memConn) Date() time.Time { return time.Time{} }
func (c *memConn) LastModified() time.Time { return time.Time{} }
func (c *memConn) Expiration() time.Time { return time.Time{} }
func (c *memConn) Header() urlconn.Header { return nil }
func (c *memConn) HeaderField(string) string { return "" }
func (c *memConn) HeaderFieldAt(int) string { return "" }
func (c *memConn) HeaderFieldKey(int) string { return "" }

type closeTracker struct {
	*bytes.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func joinPath(entries ...string) string {
	return strings.Join(entries, urlconn.HandlerPathSeparator)
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) failed: %v", raw, err)
	}
	return u
}
