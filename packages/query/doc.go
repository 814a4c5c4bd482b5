// Package query encodes ordered query parameter sets into URL query strings.
//
// Encoding rules:
//   - Unset values are dropped
//   - List values render as repeated key[]=value pairs, in list order
//   - Empty lists vanish (see LegacyEmptyLists for the bare key[]= form)
//   - Keys keep insertion order, they are never sorted
//   - Values stay human readable: brackets, commas and slashes are not escaped
package query
