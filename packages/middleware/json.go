package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	fhttp "github.com/abdul-hamid-achik/fetcher/packages/http"
)

// HTTPStatusError is returned by ParseJSON for non-2xx responses.
type HTTPStatusError struct {
	// Message is the response's status text.
	Message  string
	Response *fhttp.Response
	// Data is the parsed body, or the raw text when it is not JSON.
	// HasData is false for empty and 204 bodies.
	Data    any
	HasData bool
}

func (e *HTTPStatusError) Error() string {
	return e.Message
}

// StatusCode returns the response status, or 0 without a response.
func (e *HTTPStatusError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// ParseJSON parses the body as JSON and attaches it as the response data,
// falling back to the raw text for bodies that are not JSON. 204 and empty
// bodies are passed through without data. Non-2xx responses become an
// *HTTPStatusError.
func ParseJSON(_ context.Context, resp *fhttp.Response) (*fhttp.Response, error) {
	if resp.StatusCode == http.StatusNoContent || len(resp.Body) == 0 {
		if resp.OK() {
			return resp, nil
		}
		return nil, &HTTPStatusError{Message: resp.StatusText(), Response: resp}
	}

	data := parseBody(resp.Body)
	resp.SetData(data)

	if !resp.OK() {
		return nil, &HTTPStatusError{
			Message:  resp.StatusText(),
			Response: resp,
			Data:     data,
			HasData:  true,
		}
	}

	return resp, nil
}

// ExtractData unwraps an envelope: when the data is an object with a "data"
// member, that member becomes the response data. Anything else is left as is.
func ExtractData(_ context.Context, resp *fhttp.Response) (*fhttp.Response, error) {
	if !resp.HasData() {
		if len(resp.Body) == 0 {
			return resp, nil
		}
		resp.SetData(parseBody(resp.Body))
	}

	if envelope, ok := resp.Data().(map[string]any); ok {
		if inner, ok := envelope["data"]; ok {
			resp.SetData(inner)
		}
	}
	return resp, nil
}

// parseBody decodes JSON, returning the raw text when decoding fails.
func parseBody(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

// documentOf returns the JSON document a middleware should look at: the
// attached data when present, the raw body otherwise.
func documentOf(resp *fhttp.Response) ([]byte, error) {
	if !resp.HasData() {
		return resp.Body, nil
	}
	raw, err := json.Marshal(resp.Data())
	if err != nil {
		return nil, fmt.Errorf("encode response data: %w", err)
	}
	return raw, nil
}
