package rest

import "strings"

// Field is a single header line as it appears on the wire.
type Field struct {
	Name  string
	Value string
}

// Headers keeps fields in insertion order. The parser stores names
// lowercase-normalized; lookups are case-insensitive either way, so
// response headers keep whatever casing the caller chose.
type Headers struct {
	fields []Field
}

func NewHeaders() *Headers {
	return &Headers{}
}

// HeadersOf builds Headers from name/value pairs, in order. It panics
// on an odd number of arguments, which is a programming error.
func HeadersOf(pairs ...string) *Headers {
	if len(pairs)%2 != 0 {
		panic("rest: HeadersOf requires name/value pairs")
	}
	h := NewHeaders()
	for i := 0; i < len(pairs); i += 2 {
		h.Add(pairs[i], pairs[i+1])
	}
	return h
}

// Add appends a field, keeping duplicates as separate entries.
func (h *Headers) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Set replaces every field of this name with a single entry.
func (h *Headers) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes all fields of this name.
func (h *Headers) Del(name string) {
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

// Get returns the first value for name and whether it was present.
func (h *Headers) Get(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Values returns every value for name in insertion order.
func (h *Headers) Values(name string) []string {
	if h == nil {
		return nil
	}
	var values []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Len is the number of header lines, duplicates included.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}

// Fields exposes the ordered entries for iteration. The slice is the
// internal one; callers must not mutate it.
func (h *Headers) Fields() []Field {
	if h == nil {
		return nil
	}
	return h.fields
}
