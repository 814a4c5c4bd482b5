// Package mock provides an in-process transport that answers requests from
// registered routes and records every call. It is meant for tests and for
// dry runs of the CLI.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	fhttp "github.com/abdul-hamid-achik/fetcher/packages/http"
)

// ErrNoRoute is returned for requests that match no route and no fallback.
var ErrNoRoute = errors.New("mock: no route matches request")

// MockResponse represents a mock HTTP response
type MockResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Responder builds the response for a matched request. Returning an error
// simulates a network failure.
type Responder func(req *fhttp.Request, params map[string]string) (*MockResponse, error)

// Call records one request seen by the transport.
type Call struct {
	Request *fhttp.Request
	Route   *Route
}

// Matched reports whether the call hit a registered route.
func (c Call) Matched() bool {
	return c.Route != nil
}

// Transport is a fhttp.Doer backed by a Router. It is safe for concurrent use.
type Transport struct {
	mu       sync.Mutex
	router   *Router
	fallback Responder
	calls    []Call
}

// New creates an empty transport.
func New() *Transport {
	return &Transport{router: NewRouter()}
}

// On registers a route. Routes are matched in registration order.
func (t *Transport) On(method, pattern string, respond Responder) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.router.AddRoute(&Route{Method: method, Pattern: pattern, Response: respond})
	return t
}

// Fallback answers requests that match no route.
func (t *Transport) Fallback(respond Responder) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fallback = respond
	return t
}

// Do implements fhttp.Doer.
func (t *Transport) Do(ctx context.Context, req *fhttp.Request) (*fhttp.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	route, params := t.router.Match(req.Method, req.URL)
	respond := t.fallback
	if route != nil {
		respond = route.Response
	}
	t.calls = append(t.calls, Call{Request: cloneRequest(req), Route: route})
	t.mu.Unlock()

	if respond == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNoRoute, req.Method, req.URL)
	}

	mr, err := respond(req, params)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(mr.Headers))
	for k, v := range mr.Headers {
		headers[k] = v
	}

	return &fhttp.Response{
		StatusCode: mr.StatusCode,
		Status:     fmt.Sprintf("%d %s", mr.StatusCode, http.StatusText(mr.StatusCode)),
		Headers:    headers,
		Body:       []byte(mr.Body),
		Request:    req,
	}, nil
}

// Calls returns every recorded call in order.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, len(t.calls))
	copy(out, t.calls)
	return out
}

// LastCall returns the most recent call.
func (t *Transport) LastCall() (Call, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.calls) == 0 {
		return Call{}, false
	}
	return t.calls[len(t.calls)-1], true
}

// Matched counts calls that hit a registered route.
func (t *Transport) Matched() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		if c.Matched() {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps routes.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = nil
}

func cloneRequest(req *fhttp.Request) *fhttp.Request {
	out := *req
	out.Headers = make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		out.Headers[k] = v
	}
	return &out
}

// Status answers with an empty body.
func Status(code int) Responder {
	return func(*fhttp.Request, map[string]string) (*MockResponse, error) {
		return &MockResponse{StatusCode: code}, nil
	}
}

// Text answers with a raw body.
func Text(code int, body string) Responder {
	return func(*fhttp.Request, map[string]string) (*MockResponse, error) {
		return &MockResponse{StatusCode: code, Body: body}, nil
	}
}

// JSON answers with v encoded as JSON.
func JSON(code int, v any) Responder {
	return func(*fhttp.Request, map[string]string) (*MockResponse, error) {
		body, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return &MockResponse{
			StatusCode: code,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       string(body),
		}, nil
	}
}

// Fail simulates a network failure.
func Fail(err error) Responder {
	return func(*fhttp.Request, map[string]string) (*MockResponse, error) {
		return nil, err
	}
}

// Echo answers 200 with a JSON description of the request:
// {"url": ..., "options": {"method": ..., "headers": {...}, "body": ...}}.
// The body key is omitted when the request has none.
func Echo() Responder {
	return func(req *fhttp.Request, params map[string]string) (*MockResponse, error) {
		opts := map[string]any{
			"method":  req.Method,
			"headers": req.Headers,
		}
		if req.HasBody {
			opts["body"] = req.Body
		}
		if len(params) > 0 {
			opts["params"] = params
		}
		return JSON(http.StatusOK, map[string]any{"url": req.URL, "options": opts})(req, params)
	}
}
