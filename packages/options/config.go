package options

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Well-known option keys.
const (
	KeyMethod  = "method"
	KeyHeaders = "headers"
	KeyBody    = "body"
	KeyTimeout = "timeout"
	KeyType    = "type"
)

// Config is a fully resolved request configuration.
type Config struct {
	Method  string
	Headers map[string]string
	Body    string
	HasBody bool
	Timeout time.Duration
	// Extra holds every key that is not one of the well-known ones.
	Extra map[string]any
}

// Build resolves the tree and converts the result into a Config.
func Build(t Tree) (*Config, error) {
	return BuildContext(context.Background(), t)
}

// BuildContext is Build for a tree resolved on behalf of a request bound to
// ctx.
func BuildContext(ctx context.Context, t Tree) (*Config, error) {
	resolved, err := ResolveContext(ctx, t)
	if err != nil {
		return nil, err
	}
	return ConfigFrom(resolved)
}

// ConfigFrom converts a resolved option map into a Config.
func ConfigFrom(resolved map[string]any) (*Config, error) {
	cfg := &Config{
		Method:  "GET",
		Headers: make(map[string]string),
		Extra:   make(map[string]any),
	}

	for key, v := range resolved {
		switch key {
		case KeyMethod:
			method, ok := v.(string)
			if !ok || method == "" {
				return nil, &ConfigError{Path: key, Reason: fmt.Sprintf("method must be a non-empty string, got %T", v)}
			}
			cfg.Method = strings.ToUpper(method)
		case KeyHeaders:
			if v == nil {
				continue
			}
			headers, ok := v.(map[string]any)
			if !ok {
				return nil, &ConfigError{Path: key, Reason: fmt.Sprintf("headers must be an object, got %T", v)}
			}
			for name, hv := range headers {
				switch hv.(type) {
				case nil:
				case string, bool, int, int8, int16, int32, int64,
					uint, uint8, uint16, uint32, uint64, float32, float64:
					cfg.Headers[name] = fmt.Sprintf("%v", hv)
				default:
					return nil, &ConfigError{
						Path:   key + "." + name,
						Reason: fmt.Sprintf("header value must be a scalar, got %T", hv),
					}
				}
			}
		case KeyBody:
			switch body := v.(type) {
			case nil:
			case string:
				cfg.Body, cfg.HasBody = body, true
			case []byte:
				cfg.Body, cfg.HasBody = string(body), true
			default:
				return nil, &ConfigError{Path: key, Reason: fmt.Sprintf("body must be a string, got %T", v)}
			}
		case KeyTimeout:
			d, err := toDuration(v)
			if err != nil {
				return nil, &ConfigError{Path: key, Reason: "invalid timeout", Err: err}
			}
			cfg.Timeout = d
		default:
			cfg.Extra[key] = v
		}
	}

	return cfg, nil
}

// toDuration accepts durations, duration strings and integer milliseconds.
func toDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return d, nil
	case int:
		return time.Duration(d) * time.Millisecond, nil
	case int64:
		return time.Duration(d) * time.Millisecond, nil
	case float64:
		return time.Duration(d) * time.Millisecond, nil
	case string:
		return time.ParseDuration(d)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// Bearer returns a resolver producing "Bearer <token>". The token may itself
// be a literal or a resolver; it is evaluated against the whole tree.
func Bearer(token Value) Resolver {
	return func(v View) (any, error) {
		t, err := v.Eval(token)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("Bearer %v", t), nil
	}
}

// RequestID returns a resolver producing a fresh UUID on every resolution.
func RequestID() Resolver {
	return func(View) (any, error) {
		return uuid.NewString(), nil
	}
}
