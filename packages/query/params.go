package query

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	qs "github.com/google/go-querystring/query"
)

// Kind discriminates the shape of a query Value.
type Kind int

const (
	KindUnset Kind = iota
	KindScalar
	KindList
)

// Value is a single query parameter value: unset, a scalar or a list.
type Value struct {
	kind   Kind
	scalar string
	list   []string
}

// String returns a scalar value.
func String(s string) Value {
	return Value{kind: KindScalar, scalar: s}
}

// List returns a list value. An empty list is still a list, not unset.
func List(values ...string) Value {
	list := make([]string, len(values))
	copy(list, values)
	return Value{kind: KindList, list: list}
}

// Unset returns a value that is dropped when encoding.
func Unset() Value {
	return Value{}
}

func (v Value) Kind() Kind {
	return v.kind
}

// Scalar returns the scalar string, or "" for other kinds.
func (v Value) Scalar() string {
	return v.scalar
}

// Values returns a copy of the list elements, or nil for other kinds.
func (v Value) Values() []string {
	if v.kind != KindList {
		return nil
	}
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out
}

func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindList:
		return fmt.Sprintf("%v", v.list)
	default:
		return "<unset>"
	}
}

// Params is an insertion-ordered set of query parameters.
// The zero value is ready to use. Params is not safe for concurrent mutation.
type Params struct {
	keys   []string
	values map[string]Value
}

// New returns an empty parameter set.
func New() *Params {
	return &Params{values: make(map[string]Value)}
}

// FromPairs builds a parameter set from alternating key/value strings.
// It panics on an odd number of arguments.
func FromPairs(kv ...string) *Params {
	if len(kv)%2 != 0 {
		panic("query: FromPairs requires an even number of arguments")
	}
	p := New()
	for i := 0; i < len(kv); i += 2 {
		p.Set(kv[i], String(kv[i+1]))
	}
	return p
}

// FromStruct encodes a struct tagged with `url:"..."` into a parameter set.
// Keys come out sorted, since the tag encoder produces url.Values.
// Slice and array fields become lists whatever their length, unless their tag
// joins them into one value (comma, space, semicolon).
func FromStruct(v any) (*Params, error) {
	values, err := qs.Values(v)
	if err != nil {
		return nil, fmt.Errorf("query: encode struct: %w", err)
	}
	lists := listFields(reflect.ValueOf(v))

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := New()
	for _, k := range keys {
		vs := values[k]
		if lists[k] || len(vs) > 1 {
			p.Set(k, List(vs...))
		} else {
			p.Set(k, String(vs[0]))
		}
	}
	return p, nil
}

// listFields returns the url keys of the slice and array fields of a struct,
// following pointers and untagged embedded structs like the tag encoder does.
func listFields(v reflect.Value) map[string]bool {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	lists := make(map[string]bool)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() && !field.Anonymous {
			continue
		}
		tag := field.Tag.Get("url")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		ft := field.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if field.Anonymous && name == "" && ft.Kind() == reflect.Struct {
			for k := range listFields(v.Field(i)) {
				lists[k] = true
			}
			continue
		}
		if ft.Kind() != reflect.Slice && ft.Kind() != reflect.Array {
			continue
		}
		if joinsValues(opts) {
			continue
		}
		if name == "" {
			name = field.Name
		}
		lists[name] = true
	}
	return lists
}

func joinsValues(opts string) bool {
	for _, o := range strings.Split(opts, ",") {
		switch o {
		case "comma", "space", "semicolon":
			return true
		}
	}
	return false
}

// Set stores a value. Existing keys keep their position.
func (p *Params) Set(key string, v Value) *Params {
	if p.values == nil {
		p.values = make(map[string]Value)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
	return p
}

// Get returns the value stored under key.
func (p *Params) Get(key string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Delete removes key, if present.
func (p *Params) Delete(key string) *Params {
	if p == nil {
		return p
	}
	if _, ok := p.values[key]; !ok {
		return p
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
	return p
}

// Keys returns the keys in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Merge shallow-merges other into p. Keys from other overwrite in place,
// new keys are appended in other's order.
func (p *Params) Merge(other *Params) *Params {
	if other == nil {
		return p
	}
	for _, k := range other.keys {
		p.Set(k, other.values[k])
	}
	return p
}

// Clone returns an independent copy of p. Cloning nil yields an empty set.
func (p *Params) Clone() *Params {
	out := New()
	if p == nil {
		return out
	}
	out.keys = make([]string, len(p.keys))
	copy(out.keys, p.keys)
	for k, v := range p.values {
		if v.kind == KindList {
			v = List(v.list...)
		}
		out.values[k] = v
	}
	return out
}
