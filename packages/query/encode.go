package query

import (
	"strings"
)

// IncludeKey is the query key that carries the includes list.
const IncludeKey = "include"

type encoder struct {
	legacyEmptyLists bool
}

// EncodeOption configures Encode.
type EncodeOption func(*encoder)

// LegacyEmptyLists makes empty lists render as a bare "key[]=" instead of
// vanishing. Older API servers expect the key to be present.
func LegacyEmptyLists() EncodeOption {
	return func(e *encoder) {
		e.legacyEmptyLists = true
	}
}

// Encode renders p as a query string with a leading "?", or "" when nothing
// is renderable.
func Encode(p *Params, opts ...EncodeOption) string {
	raw := EncodeRaw(p, opts...)
	if raw == "" {
		return ""
	}
	return "?" + raw
}

// EncodeRaw renders p without the leading "?".
func EncodeRaw(p *Params, opts ...EncodeOption) string {
	if p.Len() == 0 {
		return ""
	}

	e := &encoder{}
	for _, opt := range opts {
		opt(e)
	}

	pairs := make([]string, 0, p.Len())
	for _, key := range p.keys {
		v := p.values[key]
		switch v.kind {
		case KindUnset:
			continue
		case KindScalar:
			pairs = append(pairs, escape(key)+"="+escape(v.scalar))
		case KindList:
			listKey := escape(key) + "[]"
			if len(v.list) == 0 {
				if e.legacyEmptyLists {
					pairs = append(pairs, listKey+"=")
				}
				continue
			}
			for _, item := range v.list {
				pairs = append(pairs, listKey+"="+escape(item))
			}
		}
	}

	return strings.Join(pairs, "&")
}

// WithIncludes returns a copy of p with includes folded in as a single
// comma-joined "include" parameter. The includes list replaces any include
// key already present. An empty includes list leaves p untouched.
func WithIncludes(p *Params, includes []string) *Params {
	out := p.Clone()
	if len(includes) == 0 {
		return out
	}
	return out.Set(IncludeKey, String(strings.Join(includes, ",")))
}

const upperhex = "0123456789ABCDEF"

// escape percent-encodes only the bytes that would change the meaning of a
// query string or are not printable ASCII.
func escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c) {
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func shouldEscape(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return false
	}
	switch c {
	case '-', '_', '.', '~', '[', ']', ',', '/', ':', '@', '!', '$', '\'', '(', ')', '*', ';':
		return false
	}
	return true
}
