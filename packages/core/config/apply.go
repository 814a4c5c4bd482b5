package config

import (
	"time"

	"github.com/abdul-hamid-achik/fetcher/packages/auth/oauth2"
	"github.com/abdul-hamid-achik/fetcher/packages/core/env"
	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/middleware"
	"github.com/abdul-hamid-achik/fetcher/packages/options"
	"github.com/abdul-hamid-achik/fetcher/packages/query"
	"github.com/abdul-hamid-achik/fetcher/packages/request"
)

// RequestIDHeader carries the per-request id when the profile enables
// requestId. A profile header of the same name takes precedence.
const RequestIDHeader = "X-Request-Id"

// ClientOptions returns the transport settings of the profile.
func (c *Config) ClientOptions() []http.ClientOption {
	opts := []http.ClientOption{
		http.WithFollowRedirects(c.GetFollowRedirects()),
		http.WithValidateSSL(c.GetValidateSSL()),
	}
	if c.Timeout > 0 {
		opts = append(opts, http.WithTimeout(time.Duration(c.Timeout)*time.Millisecond))
	}
	if c.Proxy != "" {
		opts = append(opts, http.WithProxy(c.Proxy))
	}
	return opts
}

// Params converts the profile query into request parameters.
func (c *Config) Params() *query.Params {
	p := query.New()
	for _, qp := range c.Query {
		if qp.List {
			p.Set(qp.Key, query.List(qp.Values...))
			continue
		}
		p.Set(qp.Key, query.String(qp.Values[0]))
	}
	return p
}

// NewRequest builds a JSON request from the profile. Headers and the token
// may contain {{...}} placeholders; they are expanded by res on every call.
// Requests and OAuth2 token requests go through doer, or a client built from
// the profile when doer is nil. opts are applied after the profile settings.
func (c *Config) NewRequest(res *env.Resolver, doer http.Doer, opts ...request.Option) *request.Request {
	if res == nil {
		res = env.NewResolver()
	}
	if doer == nil {
		doer = http.NewClient(c.ClientOptions()...)
	}

	base := []request.Option{
		request.WithRootURL(c.RootURL),
		request.WithResource(c.Resource),
		request.WithDoer(doer),
	}
	r := request.NewJSON(append(base, opts...)...)

	if c.GetRequestID() {
		r.WithOptions(options.Tree{
			options.KeyHeaders: options.Tree{RequestIDHeader: options.RequestID()},
		})
	}
	if len(c.Headers) > 0 {
		r.WithOptions(options.Tree{options.KeyHeaders: res.Tree(c.Headers)})
	}
	if c.Token != "" {
		token := res.Value(c.Token)
		if fn, ok := token.(options.Resolver); ok {
			r.WithBearerTokenFunc(fn)
		} else {
			r.WithBearerToken(c.Token)
		}
	} else if c.OAuth2 != nil {
		r.WithBearerTokenFunc(oauth2.NewProvider(c.oauth2Config(res), doer).Resolver())
	}

	r.WithQueryParameters(c.Params())
	if len(c.Includes) > 0 {
		r.WithIncludes(c.Includes...)
	}
	if c.GetExtract() {
		r.WithMiddleware(middleware.ExtractData)
	}

	return r
}

// oauth2Config expands placeholders in the OAuth2 settings once.
func (c *Config) oauth2Config(res *env.Resolver) *oauth2.Config {
	o := *c.OAuth2
	o.TokenURL = res.Resolve(o.TokenURL)
	o.ClientID = res.Resolve(o.ClientID)
	o.ClientSecret = res.Resolve(o.ClientSecret)
	o.Username = res.Resolve(o.Username)
	o.Password = res.Resolve(o.Password)
	o.Scopes = append([]string(nil), o.Scopes...)
	return &o
}
