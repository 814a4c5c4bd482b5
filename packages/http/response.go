package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
	// Request is the request that produced this response.
	Request *Request

	data    any
	hasData bool
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusText returns the reason phrase, e.g. "Unprocessable Entity".
func (r *Response) StatusText() string {
	code := fmt.Sprintf("%d ", r.StatusCode)
	if text := strings.TrimPrefix(r.Status, code); text != r.Status && text != "" {
		return text
	}
	if r.Status != "" && !strings.HasPrefix(r.Status, code) {
		return r.Status
	}
	return http.StatusText(r.StatusCode)
}

// Data returns the parsed body set by a middleware, if any.
func (r *Response) Data() any {
	return r.data
}

// HasData reports whether a middleware attached parsed body data.
func (r *Response) HasData() bool {
	return r.hasData
}

// SetData attaches parsed body data.
func (r *Response) SetData(v any) {
	r.data = v
	r.hasData = true
}

// ClearData removes attached data.
func (r *Response) ClearData() {
	r.data = nil
	r.hasData = false
}

// Decode unmarshals the attached data into v, or the raw body when no data
// is attached.
func (r *Response) Decode(v any) error {
	if !r.hasData {
		return json.Unmarshal(r.Body, v)
	}
	if s, ok := r.data.(string); ok {
		return json.Unmarshal([]byte(s), v)
	}
	raw, err := json.Marshal(r.data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

func (r *Response) Header(key string) string {
	return lookupHeader(r.Headers, key)
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json")
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

func lookupHeader(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
