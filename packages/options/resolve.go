package options

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ConfigError reports an invalid option tree or request configuration.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// View gives resolvers read access to the option tree being resolved.
// Looking up a resolver leaf resolves it first, so resolvers may depend on
// each other as long as there is no cycle.
type View struct {
	r *resolution
}

// Context returns the context of the request being built, or
// context.Background when the tree is resolved outside a request.
func (v View) Context() context.Context {
	if v.r == nil || v.r.ctx == nil {
		return context.Background()
	}
	return v.r.ctx
}

// Lookup returns the resolved value at path. Nested trees come back as
// map[string]any.
func (v View) Lookup(path ...string) (any, bool) {
	if v.r == nil {
		return nil, false
	}
	node, ok := v.r.root.Lookup(path...)
	if !ok {
		return nil, false
	}
	out, err := v.r.node(node, path)
	if err != nil {
		v.r.fail(err)
		return nil, false
	}
	return out, true
}

// String returns the value at path formatted with %v, or "" when absent.
func (v View) String(path ...string) string {
	out, ok := v.Lookup(path...)
	if !ok || out == nil {
		return ""
	}
	return fmt.Sprintf("%v", out)
}

// Eval resolves a detached value against the same tree. Resolvers evaluated
// this way are not memoized.
func (v View) Eval(val Value) (any, error) {
	if v.r == nil {
		v = View{r: newResolution(context.Background(), nil)}
	}
	switch n := val.(type) {
	case Resolver:
		return v.r.call(n, nil)
	default:
		return v.r.node(val, nil)
	}
}

type resolution struct {
	ctx    context.Context
	root   Tree
	done   map[string]any
	active map[string]bool
	err    error
}

func newResolution(ctx context.Context, root Tree) *resolution {
	return &resolution{
		ctx:    ctx,
		root:   root,
		done:   make(map[string]any),
		active: make(map[string]bool),
	}
}

// Resolve walks the tree depth-first and returns a fully concrete copy.
// Every resolver leaf is invoked with a View over root. Resolution is single
// pass: a resolver returning another resolver or a function is an error.
func Resolve(root Tree) (map[string]any, error) {
	return ResolveContext(context.Background(), root)
}

// ResolveContext is Resolve with ctx exposed to resolvers through
// View.Context.
func ResolveContext(ctx context.Context, root Tree) (map[string]any, error) {
	r := newResolution(ctx, root)
	out, err := r.tree(root, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *resolution) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *resolution) tree(t Tree, prefix []string) (map[string]any, error) {
	out := make(map[string]any, len(t))
	for _, k := range t.Keys() {
		path := append(prefix[:len(prefix):len(prefix)], k)
		v, err := r.node(t[k], path)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (r *resolution) node(v Value, path []string) (any, error) {
	switch n := v.(type) {
	case literal:
		return n.v, nil
	case Tree:
		return r.tree(n, path)
	case Resolver:
		return r.leaf(n, path)
	case nil:
		return nil, &ConfigError{Path: joinPath(path), Reason: "nil option node"}
	default:
		return nil, &ConfigError{Path: joinPath(path), Reason: fmt.Sprintf("unsupported option node %T", v)}
	}
}

func (r *resolution) leaf(fn Resolver, path []string) (any, error) {
	key := strings.Join(path, "\x00")
	if v, ok := r.done[key]; ok {
		return v, nil
	}
	if r.active[key] {
		return nil, &ConfigError{Path: joinPath(path), Reason: "resolver depends on itself"}
	}

	r.active[key] = true
	defer delete(r.active, key)

	v, err := r.call(fn, path)
	if err != nil {
		return nil, err
	}
	r.done[key] = v
	return v, nil
}

func (r *resolution) call(fn Resolver, path []string) (any, error) {
	if fn == nil {
		return nil, &ConfigError{Path: joinPath(path), Reason: "nil resolver"}
	}

	v, err := fn(View{r: r})
	if r.err != nil {
		return nil, r.err
	}
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &ConfigError{Path: joinPath(path), Reason: "resolver failed", Err: err}
	}

	if _, ok := v.(Value); ok {
		return nil, &ConfigError{Path: joinPath(path), Reason: "resolver returned an unresolved option"}
	}
	if v != nil && reflect.ValueOf(v).Kind() == reflect.Func {
		return nil, &ConfigError{Path: joinPath(path), Reason: "resolver returned a function"}
	}
	return v, nil
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}
