package cmd

import (
	"errors"

	"github.com/abdul-hamid-achik/fetcher/packages/middleware"
	"github.com/abdul-hamid-achik/fetcher/packages/options"
)

// Exit codes for fetcher CLI
const (
	// ExitSuccess indicates the request succeeded
	ExitSuccess = 0

	// ExitRequestFailure indicates a non-2xx response or a failed check
	// (--pick, --schema, bench thresholds)
	ExitRequestFailure = 1

	// ExitConfigError indicates a profile or request option error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// reportedError marks an error already printed by a formatter.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// usageError marks invalid flag or argument values.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// profileError wraps failures to load the profile or its env file.
type profileError struct {
	err error
}

func (e *profileError) Error() string { return e.err.Error() }
func (e *profileError) Unwrap() error { return e.err }

// errCheckFailed is returned when a response arrived but a check rejected it.
var errCheckFailed = errors.New("check failed")

func exitCode(err error) int {
	var (
		usage     *usageError
		cfgErr    *options.ConfigError
		statusErr *middleware.HTTPStatusError
		pathErr   *middleware.PathError
		schemaErr *middleware.SchemaError
		profErr   *profileError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.As(err, &statusErr),
		errors.As(err, &pathErr),
		errors.As(err, &schemaErr),
		errors.Is(err, errCheckFailed):
		return ExitRequestFailure
	case errors.As(err, &profErr):
		return ExitConfigError
	default:
		return ExitNetworkError
	}
}
