package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
)

// settings collects what the ClientOptions configure.
type settings struct {
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	defaultHeaders map[string]string
	transport      http.RoundTripper
}

// Client is the net/http backed Doer. A Client is safe for concurrent use.
type Client struct {
	http    *http.Client
	headers map[string]string
	// err is a configuration error reported by every Do call.
	err error
}

type ClientOption func(*settings)

func NewClient(opts ...ClientOption) *Client {
	s := &settings{
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		defaultHeaders: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	c := &Client{headers: s.defaultHeaders}

	rt := s.transport
	if rt == nil {
		rt, c.err = newTransport(s)
	}

	c.http = &http.Client{
		Transport: rt,
		Timeout:   s.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if !s.followRedirect || len(via) >= s.maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return c
}

func newTransport(s *settings) (*http.Transport, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost

	if !s.validateSSL {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if s.proxyURL != "" {
		proxy, err := neturl.Parse(s.proxyURL)
		if err != nil || proxy.Host == "" {
			return t, fmt.Errorf("invalid proxy URL %q", s.proxyURL)
		}
		t.Proxy = http.ProxyURL(proxy)
	}
	return t, nil
}

// WithTimeout bounds every request, redirects and body read included.
// Zero disables the client-wide timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(s *settings) {
		s.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(s *settings) {
		s.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(s *settings) {
		s.maxRedirects = max
	}
}

// WithDefaultHeader sets a header sent with every request unless the request
// sets it itself.
func WithDefaultHeader(key, value string) ClientOption {
	return func(s *settings) {
		s.defaultHeaders[key] = value
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(s *settings) {
		s.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(s *settings) {
		s.proxyURL = proxyURL
	}
}

// WithTransport replaces the round tripper; TLS and proxy settings are then
// up to rt.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(s *settings) {
		s.transport = rt
	}
}

// Do sends req and reads the whole body. Network failures are returned
// unchanged so callers can match them with errors.Is.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	if err := ValidateURL(req.URL); err != nil {
		return nil, err
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    flattenHeader(httpResp.Header),
		Body:       body,
		Duration:   time.Since(start),
		Request:    req,
	}, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	if req.HasBody {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}

	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// flattenHeader joins repeated header values with ", ".
func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, values := range h {
		out[k] = strings.Join(values, ", ")
	}
	return out
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https are allowed)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}
