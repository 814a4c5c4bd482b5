package options

import (
	"sort"
)

// Value is an option tree node: a Literal, a Resolver or a nested Tree.
// The set of implementations is closed.
type Value interface {
	isValue()
}

type literal struct {
	v any
}

func (literal) isValue() {}

// Literal wraps a concrete option value.
func Literal(v any) Value {
	return literal{v: v}
}

// Resolver computes an option value at request time from the whole option
// tree being resolved.
type Resolver func(root View) (any, error)

func (Resolver) isValue() {}

// Tree is a nested option object.
type Tree map[string]Value

func (Tree) isValue() {}

// FromMap converts plain Go values into a Tree. Nested map[string]any and
// map[string]string become Trees, functions with the Resolver signature become
// Resolvers, Values are kept and everything else becomes a Literal.
func FromMap(m map[string]any) Tree {
	out := make(Tree, len(m))
	for k, v := range m {
		out[k] = valueOf(v)
	}
	return out
}

func valueOf(v any) Value {
	switch val := v.(type) {
	case Value:
		return val
	case func(View) (any, error):
		return Resolver(val)
	case map[string]any:
		return FromMap(val)
	case map[string]string:
		return Strings(val)
	default:
		return Literal(v)
	}
}

// Strings builds a flat Tree of string literals, typically headers.
func Strings(m map[string]string) Tree {
	out := make(Tree, len(m))
	for k, v := range m {
		out[k] = Literal(v)
	}
	return out
}

// Keys returns the tree's keys sorted, for deterministic walks.
func (t Tree) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep-copies the tree structure. Literal payloads are shared.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for k, v := range t {
		if sub, ok := v.(Tree); ok {
			out[k] = sub.Clone()
			continue
		}
		out[k] = v
	}
	return out
}

// Merge deep-merges override into a copy of base. Trees merge recursively,
// any other conflict is won by override (lists are replaced, not
// concatenated). Neither argument is modified.
func Merge(base, override Tree) Tree {
	out := base.Clone()
	if out == nil {
		out = make(Tree, len(override))
	}
	for k, v := range override {
		sub, isTree := v.(Tree)
		if !isTree {
			out[k] = v
			continue
		}
		if existing, ok := out[k].(Tree); ok {
			out[k] = Merge(existing, sub)
			continue
		}
		out[k] = sub.Clone()
	}
	return out
}

// Set stores v at the given path, creating intermediate trees. A non-tree
// node in the way is replaced.
func (t Tree) Set(v Value, path ...string) {
	if len(path) == 0 {
		return
	}
	node := t
	for _, key := range path[:len(path)-1] {
		next, ok := node[key].(Tree)
		if !ok {
			next = make(Tree)
			node[key] = next
		}
		node = next
	}
	node[path[len(path)-1]] = v
}

// Lookup returns the node at path.
func (t Tree) Lookup(path ...string) (Value, bool) {
	var node Value = t
	for _, key := range path {
		tree, ok := node.(Tree)
		if !ok {
			return nil, false
		}
		node, ok = tree[key]
		if !ok {
			return nil, false
		}
	}
	return node, true
}
