// Package builtin provides the functions available inside {{...}}
// placeholders of profile headers and tokens.
//
// Available functions:
//   - uuid(): random UUID v4
//   - now(): current time, RFC 3339
//   - timestamp(), timestampMs(): Unix time in seconds or milliseconds
//   - date(layout): current date, 2006-01-02 by default
//   - random(min, max): random integer in range, 0-100 by default
//   - base64(value), urlEncode(value)
package builtin
