package urlconn

import (
	"context"
	"fmt"
	"io"

	"github.com/pithecene-io/s3url/internal/compress"
)

// DecodedBody returns c's body with its Content-Encoding removed.
// Closing the result closes the underlying body. On error the body is
// already closed.
//
// Returns ErrUnsupportedEncoding for codings other than gzip, zstd, and identity.
func DecodedBody(ctx context.Context, c Connection) (io.ReadCloser, error) {
	body, err := c.Body(ctx)
	if err != nil {
		return nil, err
	}

	encoding := c.ContentEncoding()
	d, ok := compress.ForEncoding(encoding)
	if !ok {
		_ = body.Close()
		return nil, fmt.Errorf("urlconn: %w: %q", ErrUnsupportedEncoding, encoding)
	}

	decoded, err := d.Decompress(body)
	if err != nil {
		_ = body.Close()
		return nil, fmt.Errorf("urlconn: %s decode: %w", d.Name(), err)
	}
	return &decodedBody{ReadCloser: decoded, body: body}, nil
}

type decodedBody struct {
	io.ReadCloser
	body io.Closer
}

func (d *decodedBody) Close() error {
	err := d.ReadCloser.Close()
	if cerr := d.body.Close(); err == nil {
		err = cerr
	}
	return err
}
