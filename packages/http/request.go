package http

import (
	"time"
)

// Request is a fully built request, ready for a Doer.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
	HasBody bool
	Timeout time.Duration
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  method,
		URL:     requestURL,
		Headers: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = body
	r.HasBody = true
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

// Header returns a header value using a case-insensitive name match.
func (r *Request) Header(key string) string {
	return lookupHeader(r.Headers, key)
}
