// Package env loads .env files and expands {{...}} placeholders in profile
// values.
//
// It provides functionality for:
//   - Loading environment files (.env, .env.local, etc.)
//   - Variable interpolation using {{variable}} syntax
//   - Built-in function evaluation (uuid, timestamp, random, etc.)
//   - References to other request options with {{@path}}
//
// Placeholders in headers and tokens become option resolvers, so they are
// expanded per request against the fully merged options.
package env
