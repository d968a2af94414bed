package urlconn

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// fileHandler serves "file" URLs from the local filesystem.
type fileHandler struct{}

func (fileHandler) OpenConnection(ctx context.Context, u *url.URL) (Connection, error) {
	if !strings.EqualFold(u.Scheme, "file") {
		return nil, fmt.Errorf("file: %w: %q", ErrInvalidScheme, u.Scheme)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &fileConn{Base: NewBase(u), baseCtx: ctx}, nil
}

// fileConn is a Connection over a local file.
type fileConn struct {
	Base

	baseCtx     context.Context
	body        io.ReadCloser
	info        fs.FileInfo
	contentType string
	header      Header
}

func (c *fileConn) path() string {
	p := c.URL().Path
	if p == "" {
		p = c.URL().Opaque
	}
	return filepath.FromSlash(p)
}

func (c *fileConn) Connect(ctx context.Context) error {
	return c.Establish(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.DoOutput() {
			return fmt.Errorf("file: %w: output", ErrUnsupportedOperation)
		}

		p := c.path()
		f, err := os.Open(p)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file: open %s: %w", p, ErrNotFound)
			}
			return fmt.Errorf("file: open %s: %w", p, err)
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("file: stat %s: %w", p, err)
		}
		if info.IsDir() {
			_ = f.Close()
			return fmt.Errorf("file: %s: %w: directory", p, ErrUnsupportedOperation)
		}

		ims := c.IfModifiedSince()
		if !ims.IsZero() && info.ModTime().UnixMilli() <= ims.UnixMilli() {
			_ = f.Close()
			return fmt.Errorf("file: %s: %w", p, ErrNotModified)
		}

		contentType := "application/octet-stream"
		if mt, err := mimetype.DetectFile(p); err == nil {
			contentType = mt.String()
		}

		var h Header
		h.Add("Content-Length", strconv.FormatInt(info.Size(), 10))
		h.Add("Content-Type", contentType)
		h.Add("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))

		c.info = info
		c.contentType = contentType
		c.header = h
		if c.DoInput() {
			c.body = f
		} else {
			_ = f.Close()
		}
		return nil
	})
}

func (c *fileConn) tryConnect() {
	if !c.Attempted() {
		_ = c.Connect(c.baseCtx)
	}
}

func (c *fileConn) Body(ctx context.Context) (io.ReadCloser, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	if c.body == nil {
		return nil, fmt.Errorf("file: %w: input disabled", ErrUnsupportedOperation)
	}
	return c.body, nil
}

func (c *fileConn) ContentType() string {
	c.tryConnect()
	return c.contentType
}

func (c *fileConn) ContentEncoding() string {
	c.tryConnect()
	return ""
}

func (c *fileConn) ContentLength() int64 {
	c.tryConnect()
	if c.info == nil {
		return -1
	}
	return c.info.Size()
}

func (c *fileConn) Date() time.Time {
	return c.LastModified()
}

func (c *fileConn) LastModified() time.Time {
	c.tryConnect()
	if c.info == nil {
		return time.Time{}
	}
	return c.info.ModTime()
}

func (c *fileConn) Expiration() time.Time {
	c.tryConnect()
	return time.Time{}
}

func (c *fileConn) Header() Header {
	c.tryConnect()
	return c.header
}

func (c *fileConn) HeaderField(name string) string {
	return c.Header().Get(name)
}

func (c *fileConn) HeaderFieldAt(n int) string {
	return c.Header().Value(n)
}

func (c *fileConn) HeaderFieldKey(n int) string {
	return c.Header().Key(n)
}

var _ Connection = (*fileConn)(nil)
