// Package request is the request-building façade: it holds the defaults for
// one API root (options, query parameters, includes, middlewares), composes
// endpoints and dispatches calls through an http.Doer.
//
// A call snapshots the defaults, deep-merges the per-call overrides on top,
// resolves resolver leaves and sends the result:
//
//	users := request.NewJSON(request.WithRootURL("https://api.example.com"))
//	users.WithBearerToken(token).WithIncludes("roles")
//	resp, err := users.Get(ctx, "users/1")
//
// Failures are logged at warn level and returned unchanged.
package request
