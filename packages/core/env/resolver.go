package env

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/fetcher/packages/builtin"
	"github.com/abdul-hamid-achik/fetcher/packages/options"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver expands {{...}} placeholders:
//
//	{{$NAME}}       environment variable, then .env files
//	{{fn(args)}}    builtin function
//	{{@a.b}}        another request option, by dotted path
//	{{name}}        user variable
//
// Unresolved placeholders are left in place and reported through the
// WarnFunc.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]any
	dotenv    map[string]string
	funcs     *builtin.Registry
	lookupEnv func(string) (string, bool)
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]any),
		dotenv:    make(map[string]string),
		funcs:     builtin.NewRegistry(),
		lookupEnv: os.LookupEnv,
	}
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

// Functions exposes the builtin registry so callers can register more.
func (r *Resolver) Functions() *builtin.Registry {
	return r.funcs
}

func (r *Resolver) SetVariables(vars map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// AddDotEnv makes vars available to {{$NAME}} when the process environment
// does not define NAME.
func (r *Resolver) AddDotEnv(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.dotenv[k] = v
	}
}

// Resolve expands input without access to request options; {{@...}}
// placeholders stay unresolved.
func (r *Resolver) Resolve(input string) string {
	return r.expand(input, nil)
}

// HasPlaceholders reports whether input contains any {{...}}.
func HasPlaceholders(input string) bool {
	return variablePattern.MatchString(input)
}

// Value turns input into an option leaf. Plain strings become literals;
// strings with placeholders become resolvers expanded on every request, so
// functions like uuid() yield a fresh value each time.
func (r *Resolver) Value(input string) options.Value {
	if !HasPlaceholders(input) {
		return options.Literal(input)
	}
	return options.Resolver(func(v options.View) (any, error) {
		return r.expand(input, &v), nil
	})
}

// Tree converts a string map, typically headers, into option leaves.
func (r *Resolver) Tree(values map[string]string) options.Tree {
	out := make(options.Tree, len(values))
	for k, v := range values {
		out[k] = r.Value(v)
	}
	return out
}

func (r *Resolver) expand(input string, view *options.View) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])

		switch {
		case strings.HasPrefix(expr, "$"):
			name := expr[1:]
			if val, ok := r.env(name); ok {
				return val
			}
			r.warn("unresolved environment variable: $%s", name)
			return match

		case strings.HasPrefix(expr, "@"):
			path := expr[1:]
			if view != nil {
				if val, ok := view.Lookup(strings.Split(path, ".")...); ok && val != nil {
					return fmt.Sprintf("%v", val)
				}
			}
			r.warn("unresolved option reference: @%s", path)
			return match

		case builtin.IsCall(expr):
			result, err := r.funcs.Call(expr)
			if err != nil {
				r.warn("unresolved function call %s: %v", expr, err)
				return match
			}
			return fmt.Sprintf("%v", result)
		}

		if val, ok := r.GetVariable(expr); ok {
			return fmt.Sprintf("%v", val)
		}

		r.warn("unresolved variable: %s", expr)
		return match
	})
}

func (r *Resolver) env(name string) (string, bool) {
	if val, ok := r.lookupEnv(name); ok && val != "" {
		return val, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.dotenv[name]
	return val, ok
}

func (r *Resolver) HasVariable(name string) bool {
	_, ok := r.GetVariable(name)
	return ok
}

func (r *Resolver) GetVariable(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[name]
	return v, ok
}

func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewResolver()
	clone.lookupEnv = r.lookupEnv
	clone.warnFunc = r.warnFunc
	for k, v := range r.variables {
		clone.variables[k] = v
	}
	for k, v := range r.dotenv {
		clone.dotenv[k] = v
	}
	return clone
}
