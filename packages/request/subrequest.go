package request

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/fetcher/packages/options"
)

// SubrequestRef names a subrequest either by its registered name or by an
// existing Request.
type SubrequestRef interface {
	subrequest(parent *Request) (*Request, error)
}

type byName string

func (n byName) subrequest(parent *Request) (*Request, error) {
	parent.mu.Lock()
	factory, ok := parent.subrequests[string(n)]
	parent.mu.Unlock()

	if !ok || factory == nil {
		return nil, &options.ConfigError{Reason: fmt.Sprintf("no subrequest named %s defined", string(n))}
	}
	child := factory()
	if child == nil {
		return nil, &options.ConfigError{Reason: fmt.Sprintf("subrequest %s factory returned nil", string(n))}
	}
	return child, nil
}

type byValue struct {
	r *Request
}

func (v byValue) subrequest(*Request) (*Request, error) {
	if v.r == nil {
		return nil, &options.ConfigError{Reason: "nil subrequest"}
	}
	return v.r.Clone(), nil
}

// ByName refers to a subrequest registered with RegisterSubrequest or
// WithSubrequestFactory.
func ByName(name string) SubrequestRef {
	return byName(name)
}

// ByValue uses a copy of r as the subrequest. r itself is not modified.
func ByValue(r *Request) SubrequestRef {
	return byValue{r: r}
}

// RegisterSubrequest makes factory available under name.
func (r *Request) RegisterSubrequest(name string, factory func() *Request) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subrequests[name] = factory
	return r
}

// Subrequest returns a Request for a resource nested under one item of this
// one: its resource becomes "<resource>/<id>/<child resource>". The child
// keeps its own root, options and middlewares.
func (r *Request) Subrequest(ref SubrequestRef, id any) (*Request, error) {
	if ref == nil {
		return nil, &options.ConfigError{Reason: "nil subrequest"}
	}
	child, err := ref.subrequest(r)
	if err != nil {
		return nil, err
	}

	parts := []string{r.Resource(), fmt.Sprint(id), child.Resource()}
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	return child.SetResource(strings.Join(kept, "/")), nil
}
