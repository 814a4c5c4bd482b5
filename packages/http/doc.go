// Package http provides the transport used by fetcher requests.
//
// It wraps the standard library's http package with:
//   - A Doer interface so transports can be swapped (see packages/mock)
//   - Configurable timeouts, redirects, TLS verification and proxies
//   - Fully read responses with a slot for parsed body data
package http
