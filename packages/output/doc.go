// Package output renders responses, errors, benchmark summaries and history
// for the CLI.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output, one document per result
package output
