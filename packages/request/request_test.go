package request

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/middleware"
	"github.com/abdul-hamid-achik/fetcher/packages/mock"
	"github.com/abdul-hamid-achik/fetcher/packages/options"
	"github.com/abdul-hamid-achik/fetcher/packages/query"
)

func newEcho(t *testing.T, root string) (*Request, *mock.Transport) {
	t.Helper()
	m := mock.New().Fallback(mock.Echo())
	r := New(WithRootURL(root), WithDoer(m), WithLogger(nil))
	return r, m
}

func lastCall(t *testing.T, m *mock.Transport) *http.Request {
	t.Helper()
	call, ok := m.LastCall()
	require.True(t, ok, "no request was sent")
	return call.Request
}

func TestRequest_Defaults(t *testing.T) {
	r := New()
	assert.Equal(t, DefaultRootURL, r.RootURL())
	assert.Equal(t, 0, r.Query().Len())
	assert.Len(t, r.Middlewares(), 1)

	resolved, err := options.Resolve(r.Options())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"method": "GET"}, resolved)
}

func TestRequest_Endpoints(t *testing.T) {
	tests := []struct {
		name string
		root string
		path string
		want string
	}{
		{"relative root", "/api", "options", "/api/options"},
		{"absolute root", "http://google.com", "options", "http://google.com/options"},
		{"absolute root with path", "http://x.com/foo/bar", "options", "http://x.com/foo/bar/options"},
		{"trailing slashes", "http://x.com/foo/", "/options/", "http://x.com/foo/options"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, m := newEcho(t, tt.root)
			_, err := r.Get(context.Background(), tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, lastCall(t, m).URL)
		})
	}
}

func TestRequest_QueryParameters(t *testing.T) {
	ctx := context.Background()

	t.Run("array parameters", func(t *testing.T) {
		r, m := newEcho(t, "http://google.com")
		r.WithQueryParameter("include", query.List("foo", "bar"))

		_, err := r.Get(ctx, "options")
		require.NoError(t, err)
		assert.Equal(t, "http://google.com/options?include[]=foo&include[]=bar", lastCall(t, m).URL)
	})

	t.Run("unset parameters vanish", func(t *testing.T) {
		r, m := newEcho(t, "http://google.com")
		r.WithQueryParameters(query.New().Set("a", query.String("1")).Set("b", query.Unset()))

		_, err := r.Get(ctx, "options")
		require.NoError(t, err)
		assert.Equal(t, "http://google.com/options?a=1", lastCall(t, m).URL)
	})

	t.Run("set replaces and with merges", func(t *testing.T) {
		r, m := newEcho(t, "http://google.com")
		r.WithQueryParameter("a", query.String("1")).
			SetQueryParameters(query.FromPairs("b", "2")).
			WithQueryParameters(query.FromPairs("c", "3", "b", "4"))

		_, err := r.Get(ctx, "options")
		require.NoError(t, err)
		assert.Equal(t, "http://google.com/options?b=4&c=3", lastCall(t, m).URL)
	})

	t.Run("struct parameters", func(t *testing.T) {
		r, m := newEcho(t, "http://google.com")
		_, err := r.WithQueryStruct(struct {
			Page int `url:"page"`
		}{Page: 2})
		require.NoError(t, err)

		_, err = r.Get(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, "http://google.com/users?page=2", lastCall(t, m).URL)
	})

	t.Run("legacy empty lists", func(t *testing.T) {
		m := mock.New().Fallback(mock.Echo())
		r := New(WithRootURL("/api"), WithDoer(m), WithLogger(nil), WithLegacyEmptyLists())
		r.WithQueryParameter("ids", query.List())

		_, err := r.Get(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, "/api/users?ids[]=", lastCall(t, m).URL)
	})
}

func TestRequest_Includes(t *testing.T) {
	r, m := newEcho(t, "http://google.com")
	r.WithQueryParameter("include", query.String("ignored")).
		WithQueryParameter("page", query.String("1")).
		WithIncludes("roles", "teams")

	_, err := r.Get(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "http://google.com/users?include=roles,teams&page=1", lastCall(t, m).URL)
	assert.Equal(t, []string{"roles", "teams"}, r.Includes())

	r.WithoutIncludes()
	_, err = r.Get(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "http://google.com/users?include=ignored&page=1", lastCall(t, m).URL)
}

func TestRequest_Options(t *testing.T) {
	ctx := context.Background()

	t.Run("with merges deeply", func(t *testing.T) {
		r, m := newEcho(t, "/api")
		r.WithOptions(options.Tree{"headers": options.Strings(map[string]string{"A": "1"})}).
			WithOptions(options.Tree{"headers": options.Strings(map[string]string{"B": "2"})})

		_, err := r.Get(ctx, "options")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"A": "1", "B": "2"}, lastCall(t, m).Headers)
	})

	t.Run("set replaces", func(t *testing.T) {
		r, m := newEcho(t, "/api")
		r.WithOptions(options.Tree{"headers": options.Strings(map[string]string{"A": "1"})}).
			SetOptions(options.Tree{"method": options.Literal("head")})

		_, err := r.Make(ctx, "options", nil)
		require.NoError(t, err)
		req := lastCall(t, m)
		assert.Equal(t, "HEAD", req.Method)
		assert.Empty(t, req.Headers)
	})

	t.Run("overrides are not mutated and do not leak", func(t *testing.T) {
		r, m := newEcho(t, "/api")
		override := options.Tree{"headers": options.Strings(map[string]string{"X-Once": "1"})}

		_, err := r.Make(ctx, "options", override)
		require.NoError(t, err)
		assert.Equal(t, "1", lastCall(t, m).Headers["X-Once"])

		_, err = r.Make(ctx, "options", nil)
		require.NoError(t, err)
		assert.NotContains(t, lastCall(t, m).Headers, "X-Once")

		assert.Equal(t, options.Tree{"headers": options.Strings(map[string]string{"X-Once": "1"})}, override)
		_, hasHeaders := r.Options()["headers"]
		assert.False(t, hasHeaders)
	})

	t.Run("timeout reaches the transport", func(t *testing.T) {
		r, m := newEcho(t, "/api")
		_, err := r.Make(ctx, "options", options.Tree{"timeout": options.Literal(1500)})
		require.NoError(t, err)
		assert.Equal(t, "1.5s", lastCall(t, m).Timeout.String())
	})
}

func TestRequest_BearerToken(t *testing.T) {
	ctx := context.Background()

	t.Run("literal", func(t *testing.T) {
		r, m := newEcho(t, "/api")
		r.WithBearerToken("X")

		_, err := r.Get(ctx, "options")
		require.NoError(t, err)
		assert.Equal(t, "Bearer X", lastCall(t, m).Headers["Authorization"])
	})

	t.Run("resolved from the whole option tree", func(t *testing.T) {
		r, m := newEcho(t, "/api")
		r.WithBearerTokenFunc(func(v options.View) (any, error) {
			return v.String("foo"), nil
		})

		_, err := r.Make(ctx, "options", options.Tree{"foo": options.Literal("bar")})
		require.NoError(t, err)
		assert.Equal(t, "Bearer bar", lastCall(t, m).Headers["Authorization"])
	})

	t.Run("overwrites an existing header", func(t *testing.T) {
		r, m := newEcho(t, "/api")
		r.WithBearerToken("old").WithBearerToken("new")

		_, err := r.Get(ctx, "options")
		require.NoError(t, err)
		assert.Equal(t, "Bearer new", lastCall(t, m).Headers["Authorization"])
	})

	t.Run("resolver failure is a config error", func(t *testing.T) {
		r, m := newEcho(t, "/api")
		r.WithBearerTokenFunc(func(options.View) (any, error) {
			return nil, errors.New("vault sealed")
		})

		_, err := r.Get(ctx, "options")
		var cfgErr *options.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Empty(t, m.Calls())
	})
}

func TestRequest_Verbs(t *testing.T) {
	ctx := context.Background()
	r, m := newEcho(t, "/api")

	tests := []struct {
		name    string
		call    func() (*http.Response, error)
		method  string
		body    string
		hasBody bool
	}{
		{"get", func() (*http.Response, error) { return r.Get(ctx, "users") }, "GET", "", false},
		{"delete", func() (*http.Response, error) { return r.Delete(ctx, "users") }, "DELETE", "", false},
		{"post", func() (*http.Response, error) { return r.Post(ctx, "users", map[string]string{"foo": "bar"}) }, "POST", `{"foo":"bar"}`, true},
		{"put", func() (*http.Response, error) { return r.Put(ctx, "users", []int{1}) }, "PUT", `[1]`, true},
		{"patch raw", func() (*http.Response, error) { return r.Patch(ctx, "users", []byte(`{"a":1}`)) }, "PATCH", `{"a":1}`, true},
		{"post without payload", func() (*http.Response, error) { return r.Post(ctx, "users", nil) }, "POST", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.call()
			require.NoError(t, err)

			req := lastCall(t, m)
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.hasBody, req.HasBody)
			assert.Equal(t, tt.body, req.Body)

			data, ok := resp.Data().(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "/api/users", data["url"])
		})
	}

	t.Run("unencodable payload", func(t *testing.T) {
		_, err := r.Post(ctx, "users", func() {})
		var cfgErr *options.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})
}

func TestRequest_JSON(t *testing.T) {
	m := mock.New().Fallback(mock.Echo())
	r := NewJSON(WithRootURL("/api"), WithDoer(m), WithLogger(nil))

	_, err := r.Get(context.Background(), "users")
	require.NoError(t, err)

	req := lastCall(t, m)
	assert.Equal(t, "application/json", req.Headers["Accept"])
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
}

func TestRequest_Middlewares(t *testing.T) {
	ctx := context.Background()

	t.Run("parses json by default", func(t *testing.T) {
		m := mock.New().On("GET", "/api/users", mock.JSON(200, map[string]any{"data": []int{1}}))
		r := New(WithDoer(m), WithLogger(nil))

		resp, err := r.Get(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"data": []any{float64(1)}}, resp.Data())
	})

	t.Run("with appends", func(t *testing.T) {
		m := mock.New().On("GET", "/api/users", mock.JSON(200, map[string]any{"data": []int{1}}))
		r := New(WithDoer(m), WithLogger(nil)).WithMiddleware(middleware.ExtractData)

		resp, err := r.Get(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, []any{float64(1)}, resp.Data())
	})

	t.Run("without returns the raw response", func(t *testing.T) {
		m := mock.New().On("GET", "/api/users", mock.Text(500, `{"foo":"bar"}`))
		r := New(WithDoer(m), WithLogger(nil)).WithoutMiddlewares()

		resp, err := r.Get(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
		assert.False(t, resp.HasData())
		assert.Equal(t, `{"foo":"bar"}`, resp.BodyString())
	})

	t.Run("set replaces", func(t *testing.T) {
		m := mock.New().On("GET", "/api/users", mock.Text(200, `{"data":{"id":1}}`))
		r := New(WithDoer(m), WithLogger(nil)).SetMiddlewares(middleware.ExtractData)

		resp, err := r.Get(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"id": float64(1)}, resp.Data())
	})
}

func TestRequest_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("204 resolves without data", func(t *testing.T) {
		m := mock.New().On("DELETE", "/api/users/1", mock.Status(204))
		r := New(WithDoer(m), WithLogger(nil))

		resp, err := r.Delete(ctx, "users/1")
		require.NoError(t, err)
		assert.Equal(t, 204, resp.StatusCode)
		assert.False(t, resp.HasData())
	})

	t.Run("422 carries parsed data", func(t *testing.T) {
		m := mock.New().On("POST", "/api/users", mock.JSON(422, map[string]string{"foo": "bar"}))
		r := New(WithDoer(m), WithLogger(nil))

		_, err := r.Post(ctx, "users", map[string]string{})
		var statusErr *middleware.HTTPStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "Unprocessable Entity", statusErr.Error())
		assert.Equal(t, map[string]any{"foo": "bar"}, statusErr.Data)
	})

	t.Run("transport errors are returned unchanged and logged", func(t *testing.T) {
		boom := errors.New("connection refused")
		m := mock.New().Fallback(mock.Fail(boom))

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
		r := New(WithDoer(m), WithLogger(logger))

		_, err := r.Get(ctx, "users")
		assert.Same(t, boom, err)
		assert.Contains(t, buf.String(), "request failed")
		assert.Contains(t, buf.String(), "connection refused")
		assert.Contains(t, buf.String(), "/api/users")
	})

	t.Run("relative root through the network client", func(t *testing.T) {
		r := New(WithLogger(nil))
		_, err := r.Get(ctx, "users")
		var cfgErr *options.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, `relative root "/api"`)
	})
}

func TestRequest_Fetch(t *testing.T) {
	r, m := newEcho(t, "/api")
	r.WithBearerToken("X").WithQueryParameter("page", query.String("2"))

	_, err := r.Fetch(context.Background(), "users", options.Tree{"method": options.Literal("POST")})
	require.NoError(t, err)

	req := lastCall(t, m)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/api/users?page=2", req.URL)
	assert.NotContains(t, req.Headers, "Authorization")
}

func TestRequest_Snapshot(t *testing.T) {
	release := make(chan struct{})
	seen := make(chan string, 1)

	m := mock.New().Fallback(func(req *http.Request, _ map[string]string) (*mock.MockResponse, error) {
		seen <- req.Headers["Authorization"]
		<-release
		return &mock.MockResponse{StatusCode: 204}, nil
	})
	r := New(WithDoer(m), WithLogger(nil)).WithBearerToken("first")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = r.Get(context.Background(), "users")
	}()

	assert.Equal(t, "Bearer first", <-seen)
	r.WithBearerToken("second")
	close(release)
	wg.Wait()

	_, err := r.Get(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "Bearer second", <-seen)
}

func TestRequest_Subrequest(t *testing.T) {
	ctx := context.Background()

	t.Run("by value", func(t *testing.T) {
		parent, m := newEcho(t, "/api")
		parent.SetResource("users")
		child := New(WithRootURL("/api"), WithDoer(m), WithLogger(nil), WithResource("articles"))

		sub, err := parent.Subrequest(ByValue(child), 1)
		require.NoError(t, err)
		assert.Equal(t, "users/1/articles", sub.Resource())
		assert.Equal(t, "articles", child.Resource())

		_, err = sub.Get(ctx, sub.Resource())
		require.NoError(t, err)
		assert.Equal(t, "/api/users/1/articles", lastCall(t, m).URL)
	})

	t.Run("by name", func(t *testing.T) {
		m := mock.New().Fallback(mock.Echo())
		parent := New(WithResource("users"), WithDoer(m), WithSubrequestFactory("articles", func() *Request {
			return New(WithResource("articles"), WithDoer(m))
		}))

		sub, err := parent.Subrequest(ByName("articles"), "abc")
		require.NoError(t, err)
		assert.Equal(t, "users/abc/articles", sub.Resource())
	})

	t.Run("registered later", func(t *testing.T) {
		parent := New(WithResource("users"))
		parent.RegisterSubrequest("teams", func() *Request { return New(WithResource("teams")) })

		sub, err := parent.Subrequest(ByName("teams"), 7)
		require.NoError(t, err)
		assert.Equal(t, "users/7/teams", sub.Resource())
	})

	t.Run("unknown name", func(t *testing.T) {
		parent := New(WithResource("users"))

		_, err := parent.Subrequest(ByName("nope"), 1)
		var cfgErr *options.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "no subrequest named nope defined", err.Error())
	})
}

func TestRequest_Clone(t *testing.T) {
	r := New(WithResource("users")).WithBearerToken("X").WithIncludes("roles")
	c := r.Clone()
	c.WithIncludes("teams").SetResource("teams").WithQueryParameter("a", query.String("1"))

	assert.Equal(t, []string{"roles"}, r.Includes())
	assert.Equal(t, "users", r.Resource())
	assert.Equal(t, 0, r.Query().Len())
	assert.Equal(t, "/api/users?a=1&include=roles,teams", c.Endpoint("users"))
}
