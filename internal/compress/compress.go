// Package compress provides decompressors keyed by HTTP Content-Encoding.
package compress

import (
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Decompressor unwraps one content coding.
type Decompressor interface {
	// Name returns the Content-Encoding token this decompressor handles.
	Name() string

	// Decompress wraps r with decompression.
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// ForEncoding returns the decompressor for a Content-Encoding value.
// An empty value and "identity" map to Noop. Matching ignores case and
// surrounding space. Reports false for unknown codings.
func ForEncoding(encoding string) (Decompressor, bool) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return NewNoop(), true
	case "gzip", "x-gzip":
		return NewGzip(), true
	case "zstd":
		return NewZstd(), true
	default:
		return nil, false
	}
}

// -----------------------------------------------------------------------------
// Gzip
// -----------------------------------------------------------------------------

// Gzip decodes gzip content.
type Gzip struct{}

// NewGzip creates a gzip decompressor.
func NewGzip() *Gzip {
	return &Gzip{}
}

// Name returns "gzip".
func (g *Gzip) Name() string {
	return "gzip"
}

// Decompress wraps a reader with gzip decompression.
func (g *Gzip) Decompress(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// -----------------------------------------------------------------------------
// Zstd
// -----------------------------------------------------------------------------

// Zstd decodes Zstandard content.
type Zstd struct{}

// NewZstd creates a zstd decompressor.
func NewZstd() *Zstd {
	return &Zstd{}
}

// Name returns "zstd".
func (z *Zstd) Name() string {
	return "zstd"
}

// Decompress wraps a reader with zstd decompression.
func (z *Zstd) Decompress(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// -----------------------------------------------------------------------------
// Noop
// -----------------------------------------------------------------------------

// Noop passes content through unchanged.
type Noop struct{}

// NewNoop creates a noop decompressor.
func NewNoop() *Noop {
	return &Noop{}
}

// Name returns "identity".
func (n *Noop) Name() string {
	return "identity"
}

// Decompress returns r unchanged.
func (n *Noop) Decompress(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

var (
	_ Decompressor = (*Gzip)(nil)
	_ Decompressor = (*Zstd)(nil)
	_ Decompressor = (*Noop)(nil)
)
