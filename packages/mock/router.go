package mock

import (
	"regexp"
	"strings"
)

var paramPattern = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// Route represents a mock route
type Route struct {
	// Method matches case-insensitively; "" or "*" matches any method.
	Method string
	// Pattern is the full request URL, optionally with {{name}} placeholders
	// that match a single path segment or query value.
	Pattern  string
	Name     string
	Response Responder

	regex *regexp.Regexp
}

// Router matches requests to routes in registration order.
type Router struct {
	routes []*Route
}

// NewRouter creates a new router
func NewRouter() *Router {
	return &Router{
		routes: make([]*Route, 0),
	}
}

// AddRoute adds a route to the router
func (r *Router) AddRoute(route *Route) {
	if route.regex == nil {
		route.regex = compilePattern(route.Pattern)
	}
	r.routes = append(r.routes, route)
}

// Match finds the first route matching method and url, with the values
// captured by its placeholders.
func (r *Router) Match(method, url string) (*Route, map[string]string) {
	for _, route := range r.routes {
		if route.Method != "" && route.Method != "*" && !strings.EqualFold(route.Method, method) {
			continue
		}

		if params := matchURL(route, url); params != nil {
			return route, params
		}
	}

	return nil, nil
}

func compilePattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")

	last := 0
	for _, loc := range paramPattern.FindAllStringSubmatchIndex(pattern, -1) {
		b.WriteString(regexp.QuoteMeta(pattern[last:loc[0]]))
		b.WriteString("(?P<" + pattern[loc[2]:loc[3]] + ">[^/?&]+)")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(pattern[last:]))
	b.WriteString("$")

	return regexp.MustCompile(b.String())
}

func matchURL(route *Route, url string) map[string]string {
	matches := route.regex.FindStringSubmatch(url)
	if matches == nil {
		return nil
	}

	params := make(map[string]string)
	for i, name := range route.regex.SubexpNames() {
		if i > 0 && name != "" {
			params[name] = matches[i]
		}
	}
	return params
}
