// Package endpoint composes request URLs from a root URL, a resource path
// and query parameters.
package endpoint

import (
	"net/url"
	"strings"

	"github.com/abdul-hamid-achik/fetcher/packages/query"
)

// Root is the parsed form of a root URL.
type Root struct {
	Scheme   string
	User     *url.Userinfo
	Host     string
	// Path is the escaped path, exactly as written in the root.
	Path     string
	RawQuery string
}

// Absolute reports whether the root carries a scheme and a host.
func (r Root) Absolute() bool {
	return r.Scheme != "" && r.Host != ""
}

// Parse splits a root URL into its components. Roots that do not parse are
// returned as a bare path.
func Parse(root string) Root {
	u, err := url.Parse(root)
	if err != nil {
		return Root{Path: root}
	}
	return Root{
		Scheme:   u.Scheme,
		User:     u.User,
		Host:     u.Host,
		Path:     u.EscapedPath(),
		RawQuery: u.RawQuery,
	}
}

// Build returns the final request URL.
//
// A host-qualified root yields an absolute URL whose path is the root path
// and the resource path joined by a single slash; a query already on the root
// is kept in front of the encoded params. Any other root is used literally:
// root + "/" + path + query.
func Build(root, path string, params *query.Params, opts ...query.EncodeOption) string {
	r := Parse(root)
	if !r.Absolute() {
		return root + "/" + path + query.Encode(params, opts...)
	}

	var b strings.Builder
	b.WriteString(r.Scheme)
	b.WriteString("://")
	if r.User != nil {
		b.WriteString(r.User.String())
		b.WriteByte('@')
	}
	b.WriteString(r.Host)
	b.WriteByte('/')
	b.WriteString(joinPath(r.Path, path))

	raw := query.EncodeRaw(params, opts...)
	switch {
	case r.RawQuery != "" && raw != "":
		b.WriteString("?" + r.RawQuery + "&" + raw)
	case r.RawQuery != "":
		b.WriteString("?" + r.RawQuery)
	case raw != "":
		b.WriteString("?" + raw)
	}

	return b.String()
}

func joinPath(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}
