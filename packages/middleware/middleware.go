// Package middleware implements the response processing chain applied after
// a request has been dispatched.
//
// A Chain runs its middlewares in order, each receiving the response returned
// by the previous one. The first error stops the chain.
package middleware

import (
	"context"

	"github.com/abdul-hamid-achik/fetcher/packages/http"
)

// Middleware transforms a response or turns it into an error. Returning a
// nil response with a nil error passes the previous response on unchanged.
type Middleware func(ctx context.Context, resp *http.Response) (*http.Response, error)

// Chain is an ordered list of middlewares.
type Chain []Middleware

// Default returns the chain a new request starts with.
func Default() Chain {
	return Chain{ParseJSON}
}

// With returns a new chain with more appended. Nil middlewares are dropped
// and the receiver's backing array is never shared.
func (c Chain) With(more ...Middleware) Chain {
	out := make(Chain, 0, len(c)+len(more))
	out = appendNonNil(out, c)
	out = appendNonNil(out, more)
	return out
}

// Run applies every middleware in order. An empty chain returns resp as is.
func (c Chain) Run(ctx context.Context, resp *http.Response) (*http.Response, error) {
	current := resp
	for _, mw := range c {
		if mw == nil {
			continue
		}
		next, err := mw(ctx, current)
		if err != nil {
			return nil, err
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}

func appendNonNil(dst Chain, src []Middleware) Chain {
	for _, mw := range src {
		if mw != nil {
			dst = append(dst, mw)
		}
	}
	return dst
}
