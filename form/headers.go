package form

import "strings"

// Header is a single part header. Key keeps the casing it was received with.
type Header struct {
	Key   string
	Value string
}

// Headers is an ordered list of headers with case-insensitive lookup.
type Headers []Header

// Get returns the value of the first header named key, or "" if there is none.
func (h Headers) Get(key string) string {
	v, _ := h.Lookup(key)
	return v
}

// Lookup returns the value of the first header named key and whether it was present.
func (h Headers) Lookup(key string) (string, bool) {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Key, key) {
			return hdr.Value, true
		}
	}

	return "", false
}

// Has reports whether a header named key is present.
func (h Headers) Has(key string) bool {
	_, ok := h.Lookup(key)
	return ok
}
