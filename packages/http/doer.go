package http

import "context"

// Doer dispatches a request and returns the fully read response.
// Implementations must not interpret the status code: a 4xx or 5xx is a
// response, not an error.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(ctx context.Context, req *Request) (*Response, error)

func (f DoerFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
