package main

import (
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/pithecene-io/s3url/urlconn"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// metadata is the --head output for one URL.
type metadata struct {
	URL             string              `json:"url"`
	ContentType     string              `json:"content_type,omitempty"`
	ContentEncoding string              `json:"content_encoding,omitempty"`
	ContentLength   int64               `json:"content_length"`
	Date            *time.Time          `json:"date,omitempty"`
	LastModified    *time.Time          `json:"last_modified,omitempty"`
	Expiration      *time.Time          `json:"expiration,omitempty"`
	Headers         map[string][]string `json:"headers,omitempty"`
}

func newMetadata(c urlconn.Connection) metadata {
	m := metadata{
		URL:             c.URL().String(),
		ContentType:     c.ContentType(),
		ContentEncoding: c.ContentEncoding(),
		ContentLength:   c.ContentLength(),
		Date:            optionalTime(c.Date()),
		LastModified:    optionalTime(c.LastModified()),
		Expiration:      optionalTime(c.Expiration()),
	}
	if h := c.Header(); h.Len() > 0 {
		m.Headers = make(map[string][]string, h.Len())
		for _, e := range h {
			m.Headers[e.Name] = e.Values
		}
	}
	return m
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func writeMetadata(w io.Writer, c urlconn.Connection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newMetadata(c))
}
