package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/abdul-hamid-achik/fetcher/packages/http"
)

var (
	// ErrPathNotFound is matched by errors returned from Pluck.
	ErrPathNotFound = errors.New("path not found in response")
	// ErrSchemaMismatch is matched by errors returned from ValidateSchema.
	ErrSchemaMismatch = errors.New("response does not match schema")
)

// PathError reports a gjson path missing from a response.
type PathError struct {
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v: %s", ErrPathNotFound, e.Path)
}

func (e *PathError) Is(target error) bool {
	return target == ErrPathNotFound
}

// SchemaError lists JSON schema violations.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v: %s", ErrSchemaMismatch, strings.Join(e.Violations, "; "))
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// Pluck replaces the response data with the value found at a gjson path,
// e.g. "users.0.name" or "items.#.id".
func Pluck(path string) Middleware {
	return func(_ context.Context, resp *http.Response) (*http.Response, error) {
		doc, err := documentOf(resp)
		if err != nil {
			return nil, err
		}

		result := gjson.GetBytes(doc, path)
		if !result.Exists() {
			return nil, &PathError{Path: path}
		}

		resp.SetData(result.Value())
		return resp, nil
	}
}

// ValidateSchema checks the response data (or raw body) against a JSON schema.
// The schema is compiled once, up front.
func ValidateSchema(schema []byte) (Middleware, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return func(_ context.Context, resp *http.Response) (*http.Response, error) {
		doc, err := documentOf(resp)
		if err != nil {
			return nil, err
		}

		result, err := compiled.Validate(gojsonschema.NewBytesLoader(doc))
		if err != nil {
			return nil, fmt.Errorf("validate schema: %w", err)
		}
		if result.Valid() {
			return resp, nil
		}

		violations := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}
		return nil, &SchemaError{Violations: violations}
	}, nil
}
