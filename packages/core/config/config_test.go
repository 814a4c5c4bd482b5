package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/fetcher/packages/auth/oauth2"
	"github.com/abdul-hamid-achik/fetcher/packages/core/env"
	"github.com/abdul-hamid-achik/fetcher/packages/mock"
	"github.com/abdul-hamid-achik/fetcher/packages/options"
	"github.com/abdul-hamid-achik/fetcher/packages/request"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".fetcher.yaml", `
rootUrl: https://api.example.com/v1
resource: users
headers:
  X-Client: cli
query:
  page: 2
  tags: [a, b]
  empty: ~
includes: [roles]
token: "{{$API_TOKEN}}"
timeout: 5000
followRedirects: false
extract: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.RootURL)
	assert.Equal(t, "users", cfg.Resource)
	assert.Equal(t, map[string]string{"X-Client": "cli"}, cfg.Headers)
	assert.Equal(t, Query{
		{Key: "page", Values: []string{"2"}},
		{Key: "tags", Values: []string{"a", "b"}, List: true},
	}, cfg.Query)
	assert.Equal(t, []string{"roles"}, cfg.Includes)
	assert.Equal(t, 5000, cfg.Timeout)
	assert.False(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.True(t, cfg.GetExtract())
	assert.Equal(t, path, cfg.Path)
}

func TestLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "fetcher.json", `{"rootUrl": "http://localhost:8080", "query": {"z": "1", "a": "2"}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.RootURL)
	assert.Equal(t, "z", cfg.Query[0].Key)
	assert.Equal(t, 30000, cfg.Timeout)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "not found")

	bad := writeFile(t, dir, "bad.yaml", "query: [1, 2]")
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "query must be a mapping")

	nested := writeFile(t, dir, "nested.yaml", "query:\n  a: {b: c}")
	_, err = LoadConfig(nested)
	assert.Error(t, err)

	empty := writeFile(t, dir, "empty.yaml", `rootUrl: ""`)
	_, err = LoadConfig(empty)
	assert.ErrorContains(t, err, "rootUrl")
}

func TestFindAndLoadConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".fetcher.yml", "rootUrl: http://found")
	child := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(child, 0755))

	cfg, err := FindAndLoadConfig(child)
	require.NoError(t, err)
	assert.Equal(t, "http://found", cfg.RootURL)

	cfg, err = FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().RootURL, cfg.RootURL)
}

func TestConfig_Merge(t *testing.T) {
	base := &Config{
		RootURL: "/api",
		Headers: map[string]string{"A": "1"},
		Query:   Query{{Key: "a", Values: []string{"1"}}},
	}
	other := &Config{
		RootURL:     "http://x.com",
		Headers:     map[string]string{"B": "2"},
		Query:       Query{{Key: "a", Values: []string{"2"}}, {Key: "b", Values: []string{"3"}}},
		ValidateSSL: BoolPtr(false),
	}

	merged := base.Merge(other)
	assert.Equal(t, "http://x.com", merged.RootURL)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, merged.Headers)
	assert.Equal(t, Query{{Key: "a", Values: []string{"2"}}, {Key: "b", Values: []string{"3"}}}, merged.Query)
	assert.False(t, merged.GetValidateSSL())
	assert.Equal(t, map[string]string{"A": "1"}, base.Headers)
	assert.Same(t, base, base.Merge(nil))
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".fetcher.yaml")
	cfg := &Config{
		RootURL: "http://x.com",
		Query:   Query{{Key: "b", Values: []string{"1"}}, {Key: "a", Values: []string{"x", "y"}, List: true}},
	}
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Query, loaded.Query)
}

func TestConfig_NewRequest(t *testing.T) {
	cfg := &Config{
		RootURL:  "http://x.com/v1",
		Resource: "users",
		Headers:  map[string]string{"X-Client": "{{client}}"},
		Query:    Query{{Key: "tags", Values: []string{"a"}, List: true}},
		Includes: []string{"roles"},
		Token:    "{{@token}}",
	}

	res := env.NewResolver()
	res.SetVariable("client", "cli")

	m := mock.New().Fallback(mock.Echo())
	r := cfg.NewRequest(res, m, request.WithLogger(nil))
	assert.Equal(t, "users", r.Resource())

	_, err := r.Make(context.Background(), r.Resource(), options.Tree{"token": options.Literal("secret")})
	require.NoError(t, err)

	call, ok := m.LastCall()
	require.True(t, ok)
	assert.Equal(t, "http://x.com/v1/users?tags[]=a&include=roles", call.Request.URL)
	assert.Equal(t, "cli", call.Request.Headers["X-Client"])
	assert.Equal(t, "Bearer secret", call.Request.Headers["Authorization"])
	assert.Equal(t, "application/json", call.Request.Headers["Accept"])
}

func TestConfig_NewRequestRequestID(t *testing.T) {
	cfg := &Config{RootURL: "http://x.com", RequestID: BoolPtr(true)}
	m := mock.New().Fallback(mock.Echo())
	r := cfg.NewRequest(env.NewResolver(), m, request.WithLogger(nil))

	ctx := context.Background()
	_, err := r.Get(ctx, "a")
	require.NoError(t, err)
	_, err = r.Get(ctx, "b")
	require.NoError(t, err)

	calls := m.Calls()
	require.Len(t, calls, 2)
	first := calls[0].Request.Headers[RequestIDHeader]
	assert.Len(t, first, 36)
	assert.NotEqual(t, first, calls[1].Request.Headers[RequestIDHeader], "fresh id per request")

	cfg.Headers = map[string]string{RequestIDHeader: "fixed"}
	r = cfg.NewRequest(env.NewResolver(), m, request.WithLogger(nil))
	_, err = r.Get(ctx, "c")
	require.NoError(t, err)
	call, _ := m.LastCall()
	assert.Equal(t, "fixed", call.Request.Headers[RequestIDHeader])
}

func TestConfig_ClientOptions(t *testing.T) {
	assert.Len(t, DefaultConfig().ClientOptions(), 3)
	assert.Len(t, (&Config{Proxy: "http://proxy"}).ClientOptions(), 3)
}

func TestConfig_NewRequestOAuth2(t *testing.T) {
	t.Setenv("FETCHER_TEST_SECRET", "s3cret")
	cfg := DefaultConfig()
	cfg.RootURL = "http://x.com"
	cfg.OAuth2 = &oauth2.Config{
		TokenURL:     "https://auth.test/token",
		ClientID:     "cli",
		ClientSecret: "{{$FETCHER_TEST_SECRET}}",
	}
	require.NoError(t, cfg.Validate())

	m := mock.New().
		On("POST", "https://auth.test/token", mock.JSON(200, map[string]any{"access_token": "tok", "expires_in": 3600})).
		Fallback(mock.Echo())

	r := cfg.NewRequest(env.NewResolver(), m, request.WithLogger(nil))
	for i := 0; i < 2; i++ {
		_, err := r.Get(context.Background(), "me")
		require.NoError(t, err)
	}

	calls := m.Calls()
	require.Len(t, calls, 3, "one token request, then two API calls")
	assert.Equal(t, "Basic Y2xpOnMzY3JldA==", calls[0].Request.Headers["Authorization"])
	assert.Equal(t, "Bearer tok", calls[1].Request.Headers["Authorization"])
	assert.Equal(t, "Bearer tok", calls[2].Request.Headers["Authorization"])

	cfg.OAuth2 = &oauth2.Config{}
	assert.Error(t, cfg.Validate())
}
