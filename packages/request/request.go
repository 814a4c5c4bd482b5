package request

import (
	"io"
	"log/slog"
	"sync"

	"github.com/abdul-hamid-achik/fetcher/packages/endpoint"
	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/middleware"
	"github.com/abdul-hamid-achik/fetcher/packages/options"
	"github.com/abdul-hamid-achik/fetcher/packages/query"
)

// DefaultRootURL is the root every request starts with.
const DefaultRootURL = "/api"

// Request builds and dispatches requests against one API root.
//
// Configuration methods mutate the Request and return it for chaining. Every
// dispatch snapshots the defaults first, so changing them while a request is
// in flight only affects later requests. A Request is safe for concurrent use.
type Request struct {
	mu sync.Mutex

	rootURL     string
	resource    string
	includes    []string
	options     options.Tree
	query       *query.Params
	middlewares middleware.Chain
	subrequests map[string]func() *Request
	encodeOpts  []query.EncodeOption

	doer   http.Doer
	logger *slog.Logger
}

// Option configures a Request at construction.
type Option func(*Request)

// New returns a Request with method GET, no query parameters, the JSON
// parsing middleware and the /api root. The default transport is a net/http
// Client, which only accepts absolute URLs: set an absolute root with
// WithRootURL, or pass a Doer that understands relative ones.
func New(opts ...Option) *Request {
	r := &Request{
		rootURL:     DefaultRootURL,
		options:     options.Tree{options.KeyMethod: options.Literal("GET")},
		query:       query.New(),
		middlewares: middleware.Default(),
		subrequests: make(map[string]func() *Request),
		doer:        http.NewClient(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewJSON returns a Request that also announces and sends JSON.
func NewJSON(opts ...Option) *Request {
	r := New()
	r.WithOptions(options.Tree{
		options.KeyType: options.Literal("json"),
		options.KeyHeaders: options.Strings(map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		}),
	})
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithRootURL sets the root all paths are appended to. Relative roots are
// used verbatim and need a Doer that understands them.
func WithRootURL(root string) Option {
	return func(r *Request) {
		r.rootURL = root
	}
}

// WithResource names the resource this Request represents.
func WithResource(resource string) Option {
	return func(r *Request) {
		r.resource = resource
	}
}

// WithDoer sets the transport.
func WithDoer(d http.Doer) Option {
	return func(r *Request) {
		r.doer = d
	}
}

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Request) {
		if l == nil {
			l = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		r.logger = l
	}
}

// WithLegacyEmptyLists keeps empty list query values as a bare "key[]=".
func WithLegacyEmptyLists() Option {
	return func(r *Request) {
		r.encodeOpts = append(r.encodeOpts, query.LegacyEmptyLists())
	}
}

// WithSubrequestFactory registers a named subrequest at construction.
func WithSubrequestFactory(name string, factory func() *Request) Option {
	return func(r *Request) {
		r.subrequests[name] = factory
	}
}

// RootURL returns the configured root.
func (r *Request) RootURL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rootURL
}

// SetRootURL replaces the root.
func (r *Request) SetRootURL(root string) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rootURL = root
	return r
}

// Resource returns the resource path.
func (r *Request) Resource() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resource
}

// SetResource replaces the resource path.
func (r *Request) SetResource(resource string) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resource = resource
	return r
}

// Options returns a copy of the default options.
func (r *Request) Options() options.Tree {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.options.Clone()
}

// SetOptions replaces the default options.
func (r *Request) SetOptions(t options.Tree) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options = t.Clone()
	if r.options == nil {
		r.options = options.Tree{}
	}
	return r
}

// WithOptions deep-merges t into the default options.
func (r *Request) WithOptions(t options.Tree) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options = options.Merge(r.options, t)
	return r
}

// WithBearerToken installs an Authorization header "Bearer <token>".
func (r *Request) WithBearerToken(token string) *Request {
	return r.withAuthorization(options.Literal(token))
}

// WithBearerTokenFunc installs an Authorization header whose token is
// computed at request time from the fully merged options.
func (r *Request) WithBearerTokenFunc(token options.Resolver) *Request {
	return r.withAuthorization(token)
}

func (r *Request) withAuthorization(token options.Value) *Request {
	return r.WithOptions(options.Tree{
		options.KeyHeaders: options.Tree{"Authorization": options.Bearer(token)},
	})
}

// Query returns a copy of the default query parameters.
func (r *Request) Query() *query.Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.query.Clone()
}

// SetQueryParameters replaces the default query parameters.
func (r *Request) SetQueryParameters(p *query.Params) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.query = p.Clone()
	return r
}

// WithQueryParameter sets a single default query parameter.
func (r *Request) WithQueryParameter(key string, v query.Value) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.query.Set(key, v)
	return r
}

// WithQueryParameters shallow-merges p into the default query parameters.
func (r *Request) WithQueryParameters(p *query.Params) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.query.Merge(p)
	return r
}

// WithQueryStruct merges a `url`-tagged struct into the default query.
func (r *Request) WithQueryStruct(v any) (*Request, error) {
	p, err := query.FromStruct(v)
	if err != nil {
		return r, err
	}
	return r.WithQueryParameters(p), nil
}

// Includes returns the related resources requested on every call.
func (r *Request) Includes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.includes...)
}

// WithIncludes asks for related resources. They are sent as a single
// comma-joined "include" parameter that overrides any include query value.
func (r *Request) WithIncludes(includes ...string) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.includes = append(r.includes, includes...)
	return r
}

// WithoutIncludes clears the includes list.
func (r *Request) WithoutIncludes() *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.includes = nil
	return r
}

// Middlewares returns a copy of the middleware chain.
func (r *Request) Middlewares() middleware.Chain {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.middlewares.With()
}

// SetMiddlewares replaces the middleware chain.
func (r *Request) SetMiddlewares(mws ...middleware.Middleware) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = middleware.Chain(nil).With(mws...)
	return r
}

// WithMiddleware appends to the middleware chain.
func (r *Request) WithMiddleware(mw middleware.Middleware) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = r.middlewares.With(mw)
	return r
}

// WithoutMiddlewares clears the chain; callers then get raw responses.
func (r *Request) WithoutMiddlewares() *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = nil
	return r
}

// Endpoint returns the URL a request for path would be sent to.
func (r *Request) Endpoint(path string) string {
	s := r.snapshot()
	return s.endpoint(path)
}

// Clone returns an independent copy sharing only the transport and logger.
func (r *Request) Clone() *Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	subrequests := make(map[string]func() *Request, len(r.subrequests))
	for k, v := range r.subrequests {
		subrequests[k] = v
	}

	return &Request{
		rootURL:     r.rootURL,
		resource:    r.resource,
		includes:    append([]string(nil), r.includes...),
		options:     r.options.Clone(),
		query:       r.query.Clone(),
		middlewares: r.middlewares.With(),
		subrequests: subrequests,
		encodeOpts:  append([]query.EncodeOption(nil), r.encodeOpts...),
		doer:        r.doer,
		logger:      r.logger,
	}
}

// snapshot is the per-call copy of the defaults.
type snapshot struct {
	rootURL     string
	includes    []string
	options     options.Tree
	query       *query.Params
	middlewares middleware.Chain
	encodeOpts  []query.EncodeOption
	doer        http.Doer
	logger      *slog.Logger
}

func (r *Request) snapshot() *snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &snapshot{
		rootURL:     r.rootURL,
		includes:    append([]string(nil), r.includes...),
		options:     r.options.Clone(),
		query:       r.query.Clone(),
		middlewares: r.middlewares.With(),
		encodeOpts:  append([]query.EncodeOption(nil), r.encodeOpts...),
		doer:        r.doer,
		logger:      r.logger,
	}
}

func (s *snapshot) endpoint(path string) string {
	params := query.WithIncludes(s.query, s.includes)
	return endpoint.Build(s.rootURL, path, params, s.encodeOpts...)
}
