// Package crud maps the five REST collection operations onto a named
// resource.
package crud

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/request"
)

// Resource issues index/store/show/update/destroy calls against one
// resource. Every request.Request method is available on it as well.
type Resource struct {
	*request.Request
}

// New returns a JSON resource named resource.
func New(resource string, opts ...request.Option) *Resource {
	opts = append(opts[:len(opts):len(opts)], request.WithResource(resource))
	return &Resource{Request: request.NewJSON(opts...)}
}

// Wrap turns an existing Request into a Resource. The Request keeps its
// configuration, including its resource.
func Wrap(r *request.Request) *Resource {
	return &Resource{Request: r}
}

// Index lists the collection: GET /{resource}.
func (r *Resource) Index(ctx context.Context) (*http.Response, error) {
	return r.Get(ctx, r.Resource())
}

// Store creates an item: POST /{resource}.
func (r *Resource) Store(ctx context.Context, payload any) (*http.Response, error) {
	return r.Post(ctx, r.Resource(), payload)
}

// Show fetches one item: GET /{resource}/{id}.
func (r *Resource) Show(ctx context.Context, id any) (*http.Response, error) {
	return r.Get(ctx, r.item(id))
}

// Update replaces one item: PUT /{resource}/{id}.
func (r *Resource) Update(ctx context.Context, id, payload any) (*http.Response, error) {
	return r.Put(ctx, r.item(id), payload)
}

// Destroy deletes one item: DELETE /{resource}/{id}.
func (r *Resource) Destroy(ctx context.Context, id any) (*http.Response, error) {
	return r.Delete(ctx, r.item(id))
}

// Nested returns the resource nested under item id, e.g. users/1/articles.
func (r *Resource) Nested(ref request.SubrequestRef, id any) (*Resource, error) {
	sub, err := r.Subrequest(ref, id)
	if err != nil {
		return nil, err
	}
	return Wrap(sub), nil
}

func (r *Resource) item(id any) string {
	return fmt.Sprintf("%s/%v", r.Resource(), id)
}
