package urlconn

import (
	"net/http"
	"slices"
	"strings"
)

// HeaderEntry is one header name with all of its values in arrival order.
type HeaderEntry struct {
	Name   string
	Values []string
}

// Header is an ordered collection of response headers. A name appears at
// most once; repeated headers accumulate values on the same entry.
//
// Lookups return the last value when a name carries several.
type Header []HeaderEntry

// HeaderFromHTTP converts h into a Header ordered by name.
func HeaderFromHTTP(h http.Header) Header {
	if len(h) == 0 {
		return nil
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make(Header, 0, len(names))
	for _, name := range names {
		out = append(out, HeaderEntry{Name: name, Values: slices.Clone(h[name])})
	}
	return out
}

// Add appends value to the named entry, creating it at the end if absent.
func (h *Header) Add(name, value string) {
	for i := range *h {
		if strings.EqualFold((*h)[i].Name, name) {
			(*h)[i].Values = append((*h)[i].Values, value)
			return
		}
	}
	*h = append(*h, HeaderEntry{Name: name, Values: []string{value}})
}

// Len returns the number of distinct header names.
func (h Header) Len() int {
	return len(h)
}

// Values returns every value of the named header. Names match case-insensitively.
func (h Header) Values(name string) []string {
	for _, e := range h {
		if strings.EqualFold(e.Name, name) {
			return e.Values
		}
	}
	return nil
}

// Get returns the last value of the named header, or "".
func (h Header) Get(name string) string {
	return last(h.Values(name))
}

// Key returns the name of the n-th entry, or "" when n is out of range.
func (h Header) Key(n int) string {
	if n < 0 || n >= len(h) {
		return ""
	}
	return h[n].Name
}

// Value returns the last value of the n-th entry, or "" when n is out of range.
func (h Header) Value(n int) string {
	if n < 0 || n >= len(h) {
		return ""
	}
	return last(h[n].Values)
}

func last(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}
