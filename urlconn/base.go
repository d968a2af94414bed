package urlconn

import (
	"net/url"
	"time"
)

// Base holds the URL, request settings, and lifecycle shared by Connection
// implementations. Embed it and supply Connect, Body, and the metadata
// accessors.
type Base struct {
	Lifecycle

	url             *url.URL
	doInput         bool
	doOutput        bool
	ifModifiedSince time.Time
}

// NewBase returns a Base for u with input enabled and output disabled.
func NewBase(u *url.URL) Base {
	return Base{url: u, doInput: true}
}

// URL returns the connection's URL.
func (b *Base) URL() *url.URL {
	return b.url
}

// SetDoInput implements Connection.
func (b *Base) SetDoInput(doInput bool) error {
	if b.Attempted() {
		return ErrAlreadyConnected
	}
	b.doInput = doInput
	return nil
}

// SetDoOutput implements Connection.
func (b *Base) SetDoOutput(doOutput bool) error {
	if b.Attempted() {
		return ErrAlreadyConnected
	}
	b.doOutput = doOutput
	return nil
}

// SetIfModifiedSince implements Connection. The value is kept at
// millisecond granularity.
func (b *Base) SetIfModifiedSince(t time.Time) error {
	if b.Attempted() {
		return ErrAlreadyConnected
	}
	if t.IsZero() {
		b.ifModifiedSince = time.Time{}
		return nil
	}
	b.ifModifiedSince = time.UnixMilli(t.UnixMilli()).UTC()
	return nil
}

// DoInput reports whether the body is retained after connecting.
func (b *Base) DoInput() bool { return b.doInput }

// DoOutput reports whether write intent was declared.
func (b *Base) DoOutput() bool { return b.doOutput }

// IfModifiedSince returns the conditional fetch time, or the zero time.
func (b *Base) IfModifiedSince() time.Time { return b.ifModifiedSince }

// Permission implements Connection with a GET permission on the URL.
func (b *Base) Permission() Permission {
	return ReadPermission(b.url)
}
