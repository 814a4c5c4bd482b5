package request

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abdul-hamid-achik/fetcher/packages/endpoint"
	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/options"
)

// Make merges overrides into the default options (overrides win), resolves
// every resolver leaf, builds the endpoint and dispatches the request through
// the transport and the middleware chain.
//
// Errors are returned unchanged: configuration problems as
// *options.ConfigError, transport failures as the transport returned them and
// middleware failures (such as *middleware.HTTPStatusError) as produced.
// Every failure is also logged at warn level.
func (r *Request) Make(ctx context.Context, path string, overrides options.Tree) (*http.Response, error) {
	s := r.snapshot()
	merged := options.Merge(s.options, overrides)
	return s.dispatch(ctx, path, merged)
}

// Fetch dispatches path with cfg as the complete option tree, ignoring the
// default options. Query parameters, includes and middlewares still apply.
func (r *Request) Fetch(ctx context.Context, path string, cfg options.Tree) (*http.Response, error) {
	s := r.snapshot()
	return s.dispatch(ctx, path, cfg.Clone())
}

func (r *Request) Get(ctx context.Context, path string) (*http.Response, error) {
	return r.Make(ctx, path, verb("GET"))
}

// Delete sends a DELETE without a body.
func (r *Request) Delete(ctx context.Context, path string) (*http.Response, error) {
	return r.Make(ctx, path, verb("DELETE"))
}

// Post sends payload as a JSON body. A nil payload sends no body;
// json.RawMessage and []byte payloads are sent as they are.
func (r *Request) Post(ctx context.Context, path string, payload any) (*http.Response, error) {
	return r.send(ctx, "POST", path, payload)
}

func (r *Request) Put(ctx context.Context, path string, payload any) (*http.Response, error) {
	return r.send(ctx, "PUT", path, payload)
}

func (r *Request) Patch(ctx context.Context, path string, payload any) (*http.Response, error) {
	return r.send(ctx, "PATCH", path, payload)
}

func (r *Request) send(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	overrides := verb(method)
	if payload != nil {
		body, err := encodePayload(payload)
		if err != nil {
			return nil, err
		}
		overrides[options.KeyBody] = options.Literal(body)
	}
	return r.Make(ctx, path, overrides)
}

func verb(method string) options.Tree {
	return options.Tree{options.KeyMethod: options.Literal(method)}
}

func encodePayload(payload any) (string, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return string(p), nil
	case []byte:
		return string(p), nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &options.ConfigError{Path: options.KeyBody, Reason: "encode payload", Err: err}
	}
	return string(body), nil
}

func (s *snapshot) dispatch(ctx context.Context, path string, tree options.Tree) (*http.Response, error) {
	url := s.endpoint(path)

	cfg, err := options.BuildContext(ctx, tree)
	if err != nil {
		s.logger.WarnContext(ctx, "invalid request options", "url", url, "error", err)
		return nil, err
	}

	req := &http.Request{
		Method:  cfg.Method,
		URL:     url,
		Headers: cfg.Headers,
		Body:    cfg.Body,
		HasBody: cfg.HasBody,
		Timeout: cfg.Timeout,
	}

	if s.doer == nil {
		err := &options.ConfigError{Reason: "no transport configured"}
		s.logger.WarnContext(ctx, "request failed", "method", req.Method, "url", url, "error", err)
		return nil, err
	}

	if _, ok := s.doer.(*http.Client); ok && !endpoint.Parse(url).Absolute() {
		err := &options.ConfigError{
			Reason: fmt.Sprintf("relative root %q needs a Doer that resolves it (use WithDoer or an absolute root)", s.rootURL),
		}
		s.logger.WarnContext(ctx, "request failed", "method", req.Method, "url", url, "error", err)
		return nil, err
	}

	s.logger.DebugContext(ctx, "dispatching request", "method", req.Method, "url", url)

	resp, err := s.doer.Do(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "request failed", "method", req.Method, "url", url, "error", err)
		return nil, err
	}
	if resp.Request == nil {
		resp.Request = req
	}

	out, err := s.middlewares.Run(ctx, resp)
	if err != nil {
		s.logger.WarnContext(ctx, "request failed",
			"method", req.Method,
			"url", url,
			"status", resp.StatusCode,
			"error", err,
		)
		return nil, err
	}

	return out, nil
}

// String describes the request for debugging.
func (r *Request) String() string {
	s := r.snapshot()
	return fmt.Sprintf("Request(%s)", s.rootURL)
}
