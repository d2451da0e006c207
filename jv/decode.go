package jv

import (
	"strconv"
	"strings"
)

// Fields maps field names to decoded values: string, int64, float64 or
// nil when the slice was missing, blank or failed its transform.
type Fields map[string]any

// Str returns a decoded string field.
func (f Fields) Str(name string) (string, bool) {
	s, ok := f[name].(string)
	return s, ok
}

// Int returns a decoded integer field.
func (f Fields) Int(name string) (int64, bool) {
	n, ok := f[name].(int64)
	return n, ok
}

// Float returns a decoded fixed-point field.
func (f Fields) Float(name string) (float64, bool) {
	v, ok := f[name].(float64)
	return v, ok
}

// Record is the transient result of decoding one payload. Blocks holds
// one Fields per repeating group when the layout declares a Block.
type Record struct {
	Prefix string
	Fields Fields
	Blocks []Fields
}

// Decode matches the payload against the catalog and applies the layout.
// The second return is false for unrecognized prefixes and for payloads
// below the layout's minimum width; callers skip (and count) those.
// Decoding itself never fails: malformed field content decodes to null.
func (c *Catalog) Decode(payload string) (*Record, bool) {
	layout, ok := c.Match(payload)
	if !ok || len(payload) < layout.MinLength {
		return nil, false
	}

	rec := &Record{
		Prefix: layout.Prefix,
		Fields: make(Fields, len(layout.Fields)),
	}
	for _, f := range layout.Fields {
		rec.Fields[f.Name] = decodeField(payload, f, 0)
	}

	if b := layout.Block; b != nil {
		for k := 0; k < b.Count; k++ {
			base := b.Offset + k*b.Length
			if base+b.Length > len(payload) {
				break
			}
			group := make(Fields, len(b.Fields))
			for _, f := range b.Fields {
				group[f.Name] = decodeField(payload, f, base)
			}
			rec.Blocks = append(rec.Blocks, group)
		}
	}

	return rec, true
}

func decodeField(payload string, f Field, base int) any {
	start := base + f.Offset
	end := start + f.Length
	if start < 0 || end > len(payload) {
		return nil
	}
	s := payload[start:end]

	switch f.Transform {
	case TransformRaw:
		return s
	case TransformTrim:
		t := strings.TrimSpace(s)
		if t == "" {
			return nil
		}
		return t
	case TransformInt:
		n, ok := parseDigits(s)
		if !ok {
			return nil
		}
		return n
	case TransformFixed:
		n, ok := parseDigits(s)
		if !ok {
			return nil
		}
		scale := f.Scale
		if scale == 0 {
			scale = 1
		}
		return float64(n) / scale
	case TransformCode:
		t := strings.TrimSpace(s)
		if t == "" {
			return nil
		}
		if v, ok := f.Codes[t]; ok {
			return v
		}
		return f.Fallback
	}
	return nil
}

// parseDigits accepts only a run of ASCII digits after trimming; feed
// fields pad with spaces but also carry markers like "**" in numeric
// slots, which must decode to null rather than zero.
func parseDigits(s string) (int64, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, false
	}
	for i := 0; i < len(t); i++ {
		if t[i] < '0' || t[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
