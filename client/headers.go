package client

import (
	"iter"
	"strings"
)

// HeaderField is a single header name/value pair.
type HeaderField struct {
	Name  string
	Value string
}

// Headers is an ordered header list. New entries are inserted at the
// front, duplicate names are kept, and lookups return the first
// case-insensitive match in list order, so the most recently added
// entry for a name wins.
//
// The zero value is an empty list ready to use.
type Headers struct {
	// added holds entries in insertion order; list order is its reverse.
	added []HeaderField
}

// NewHeaders returns a list whose order matches fields.
func NewHeaders(fields ...HeaderField) Headers {
	added := make([]HeaderField, len(fields))
	for i, f := range fields {
		added[len(fields)-1-i] = f
	}

	return Headers{added: added}
}

// Prepend inserts name/value at the front of the list.
func (h *Headers) Prepend(name, value string) {
	h.added = append(h.added, HeaderField{Name: name, Value: value})
}

// Len returns the number of entries, duplicates included.
func (h Headers) Len() int {
	return len(h.added)
}

// Get returns the value of the first entry matching name.
func (h Headers) Get(name string) (string, bool) {
	for i := len(h.added) - 1; i >= 0; i-- {
		if strings.EqualFold(h.added[i].Name, name) {
			return h.added[i].Value, true
		}
	}

	return "", false
}

// Values returns every value for name in list order.
func (h Headers) Values(name string) []string {
	var values []string
	for i := len(h.added) - 1; i >= 0; i-- {
		if strings.EqualFold(h.added[i].Name, name) {
			values = append(values, h.added[i].Value)
		}
	}

	return values
}

// All iterates the list in order.
func (h Headers) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for i := len(h.added) - 1; i >= 0; i-- {
			if !yield(h.added[i].Name, h.added[i].Value) {
				return
			}
		}
	}
}

// Fields returns a copy of the list in order.
func (h Headers) Fields() []HeaderField {
	fields := make([]HeaderField, 0, len(h.added))
	for name, value := range h.All() {
		fields = append(fields, HeaderField{Name: name, Value: value})
	}

	return fields
}

// Clone returns an independent copy.
func (h Headers) Clone() Headers {
	if h.added == nil {
		return Headers{}
	}

	added := make([]HeaderField, len(h.added))
	copy(added, h.added)

	return Headers{added: added}
}
