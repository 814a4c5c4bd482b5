// Package oauth2 obtains bearer tokens from an OAuth2 token endpoint and
// plugs them into requests as an Authorization resolver.
package oauth2

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/options"
)

// GrantType represents the OAuth2 grant type
type GrantType string

const (
	// ClientCredentials is the client_credentials grant type
	ClientCredentials GrantType = "client_credentials"
	// Password is the password (resource owner) grant type
	Password GrantType = "password"
)

// DefaultTokenTimeout bounds one token request.
const DefaultTokenTimeout = 30 * time.Second

// expirySkew is subtracted from token lifetimes to absorb clock drift.
const expirySkew = 30 * time.Second

// Config holds OAuth2 configuration
type Config struct {
	TokenURL     string    `yaml:"tokenUrl" json:"tokenUrl"`
	ClientID     string    `yaml:"clientId" json:"clientId"`
	ClientSecret string    `yaml:"clientSecret" json:"clientSecret"`
	Scopes       []string  `yaml:"scopes,omitempty" json:"scopes,omitempty"`
	Username     string    `yaml:"username,omitempty" json:"username,omitempty"` // For password grant
	Password     string    `yaml:"password,omitempty" json:"password,omitempty"` // For password grant
	GrantType    GrantType `yaml:"grantType,omitempty" json:"grantType,omitempty"`
}

// Validate reports missing settings.
func (c *Config) Validate() error {
	if c.TokenURL == "" {
		return fmt.Errorf("oauth2: tokenUrl is required")
	}
	switch c.GrantType {
	case "", ClientCredentials:
	case Password:
		if c.Username == "" {
			return fmt.Errorf("oauth2: password grant requires a username")
		}
	default:
		return fmt.Errorf("oauth2: unsupported grant type %q", c.GrantType)
	}
	return nil
}

// Token represents an OAuth2 access token
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"-"`
}

// expired reports whether t is unusable at now. Tokens without a lifetime
// never expire.
func (t *Token) expired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(expirySkew).After(t.ExpiresAt)
}

// TokenError is returned when the token endpoint rejects the request.
type TokenError struct {
	StatusCode  int
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *TokenError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("oauth2: token endpoint returned %d", e.StatusCode)
	}
	if e.Description == "" {
		return fmt.Sprintf("oauth2: %s", e.Code)
	}
	return fmt.Sprintf("oauth2: %s: %s", e.Code, e.Description)
}

// Provider fetches tokens and caches them until they expire. It is safe for
// concurrent use; concurrent callers share one token request.
type Provider struct {
	config  *Config
	doer    http.Doer
	now     func() time.Time
	timeout time.Duration

	// sem guards token; waiting on it honors the caller's context.
	sem   chan struct{}
	token *Token
}

// NewProvider returns a Provider that talks to the token endpoint through
// doer.
func NewProvider(config *Config, doer http.Doer) *Provider {
	return &Provider{
		config:  config,
		doer:    doer,
		now:     time.Now,
		timeout: DefaultTokenTimeout,
		sem:     make(chan struct{}, 1),
	}
}

// WithTimeout changes the bound on a single token request. Zero or less
// removes it.
func (p *Provider) WithTimeout(d time.Duration) *Provider {
	p.timeout = d
	return p
}

// Token returns a valid access token, fetching a new one when the cached
// token is missing or about to expire.
func (p *Provider) Token(ctx context.Context) (*Token, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.sem }()

	if p.token != nil && !p.token.expired(p.now()) {
		return p.token, nil
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	token, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	p.token = token
	return token, nil
}

// Invalidate drops the cached token.
func (p *Provider) Invalidate() {
	p.sem <- struct{}{}
	p.token = nil
	<-p.sem
}

// Resolver returns an option resolver producing the current access token,
// for use with Request.WithBearerTokenFunc. The token request runs under the
// context of the request being built.
func (p *Provider) Resolver() options.Resolver {
	return func(v options.View) (any, error) {
		token, err := p.Token(v.Context())
		if err != nil {
			return nil, err
		}
		return token.AccessToken, nil
	}
}

func (p *Provider) fetch(ctx context.Context) (*Token, error) {
	form := url.Values{}
	switch p.config.GrantType {
	case Password:
		form.Set("grant_type", string(Password))
		form.Set("username", p.config.Username)
		form.Set("password", p.config.Password)
	default:
		form.Set("grant_type", string(ClientCredentials))
	}
	if len(p.config.Scopes) > 0 {
		form.Set("scope", strings.Join(p.config.Scopes, " "))
	}

	req := http.NewRequest("POST", p.config.TokenURL).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeader("Accept", "application/json").
		SetBody(form.Encode())

	// Add client authentication
	if p.config.ClientID != "" && p.config.ClientSecret != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(p.config.ClientID + ":" + p.config.ClientSecret))
		req.SetHeader("Authorization", "Basic "+auth)
	}

	resp, err := p.doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}

	if !resp.OK() {
		tokenErr := &TokenError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(resp.Body, tokenErr)
		return nil, tokenErr
	}

	var token Token
	if err := json.Unmarshal(resp.Body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}
	if token.ExpiresIn > 0 {
		token.ExpiresAt = p.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	return &token, nil
}
