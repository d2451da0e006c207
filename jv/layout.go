// Package jv decodes fixed-width JV-Link feed records into field maps.
//
// Every record type is described by a declarative Layout: a prefix, a
// minimum payload width and a list of byte slices with transforms. The
// field positions were discovered empirically by sampling the raw archive
// (see cmd/inspect), not taken from formal wire documentation. Adding or
// correcting a record type is a data change here; nothing in the build
// pipeline branches on record types.
package jv

import "sort"

// Transform says how a sliced field is turned into a value.
type Transform int

const (
	// TransformRaw keeps the slice as-is, padding included.
	TransformRaw Transform = iota
	// TransformTrim strips surrounding whitespace; an all-blank slice
	// decodes to null, never to "".
	TransformTrim
	// TransformInt parses the trimmed slice as a decimal integer;
	// non-digit content decodes to null.
	TransformInt
	// TransformFixed parses as an integer and divides by Scale.
	TransformFixed
	// TransformCode maps the trimmed slice through Codes, falling back
	// to Fallback for unmapped values.
	TransformCode
)

// Field is one byte slice of a fixed-width record. Offset is zero-based
// from the start of the payload (or the enclosing block).
type Field struct {
	Name      string
	Offset    int
	Length    int
	Transform Transform

	Scale    float64           // TransformFixed divisor
	Codes    map[string]string // TransformCode table
	Fallback string            // TransformCode miss value
}

// Block describes a run of identical repeating groups, e.g. the per-horse
// odds blocks of an O1 record. Field offsets inside a block are relative
// to the block start. Groups past the end of a short payload are dropped.
type Block struct {
	Offset int
	Length int
	Count  int
	Fields []Field
}

// Layout is the decode specification for one record type prefix.
// Payloads shorter than MinLength are rejected as a whole; fields that
// fall beyond the payload of an accepted record decode to null.
type Layout struct {
	Prefix    string
	MinLength int
	Fields    []Field
	Block     *Block
}

// Catalog dispatches payloads to layouts by their leading characters.
// Longer prefixes win, so "SE7" can coexist with a plain "SE" layout.
type Catalog struct {
	layouts []Layout
}

// NewCatalog builds a catalog that tests prefixes longest-first.
func NewCatalog(layouts ...Layout) *Catalog {
	sorted := make([]Layout, len(layouts))
	copy(sorted, layouts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Catalog{layouts: sorted}
}

// Match returns the layout whose prefix matches the payload's leading
// characters, or false when the record type is unknown.
func (c *Catalog) Match(payload string) (*Layout, bool) {
	for i := range c.layouts {
		l := &c.layouts[i]
		if len(payload) >= len(l.Prefix) && payload[:len(l.Prefix)] == l.Prefix {
			return l, true
		}
	}
	return nil, false
}

// Prefixes returns the known prefixes in dispatch order.
func (c *Catalog) Prefixes() []string {
	out := make([]string, len(c.layouts))
	for i, l := range c.layouts {
		out[i] = l.Prefix
	}
	return out
}
