package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag    string
	rootURLFlag   string
	headerFlags   []string
	queryFlags    []string
	includeFlags  []string
	varFlags      []string
	tokenFlag     string
	timeoutFlag   string
	envFileFlag   string
	proxyFlag     string
	insecureFlag  bool
	verboseFlag   bool
	noColorFlag   bool
	outputFlag    string
	extractFlag   bool
	requestIDFlag bool
	pickFlag      string
	schemaFlag    string
	historyFlag   string
	dryRunFlag    bool
	watchFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "fetcher",
	Short: "Build and send REST requests from a profile.",
	Long: `fetcher sends JSON requests to a REST API using the defaults of a
profile file (.fetcher.yaml, .fetcher.yml, fetcher.json or .fetcher.json):
root URL, headers, bearer token, query parameters and includes.

Header and token values may use {{...}} placeholders:
  {{$NAME}}     process environment or .env value
  {{@a.b}}      another request option, e.g. {{@headers.X-Tenant}}
  {{uuid()}}    a builtin function
  {{name}}      a profile variable`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits with the code matching the failure.
func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var rep *reportedError
		if !errors.As(err, &rep) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&configFlag, "config", getEnvString("FETCHER_CONFIG", ""), "Path to profile file (env: FETCHER_CONFIG)")
	flags.StringVar(&rootURLFlag, "root", getEnvString("FETCHER_ROOT", ""), "Root URL requests are sent to (env: FETCHER_ROOT)")
	flags.StringArrayVarP(&headerFlags, "header", "H", nil, "Extra header as \"Name: value\" (repeatable)")
	flags.StringArrayVarP(&queryFlags, "query", "q", nil, "Query parameter as key=value, key[]=value for lists (repeatable)")
	flags.StringSliceVarP(&includeFlags, "include", "i", nil, "Related resources to include (comma-separated)")
	flags.StringArrayVar(&varFlags, "var", nil, "Placeholder variable as name=value (repeatable)")
	flags.StringVar(&tokenFlag, "token", getEnvString("FETCHER_TOKEN", ""), "Bearer token (env: FETCHER_TOKEN)")
	flags.StringVar(&timeoutFlag, "timeout", getEnvString("FETCHER_TIMEOUT", ""), "Request timeout (e.g., 30s, 1m) (env: FETCHER_TIMEOUT)")
	flags.StringVar(&envFileFlag, "env-file", getEnvString("FETCHER_ENV_FILE", ""), "Path to .env file for placeholders (env: FETCHER_ENV_FILE)")
	flags.StringVar(&proxyFlag, "proxy", getEnvString("FETCHER_PROXY", ""), "Proxy URL for HTTP requests (env: FETCHER_PROXY)")
	flags.BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("FETCHER_INSECURE", false), "Disable SSL certificate validation (env: FETCHER_INSECURE)")

	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Show response headers and debug logs")
	flags.BoolVar(&noColorFlag, "no-color", getEnvBool("FETCHER_NO_COLOR", false), "Disable colored output (env: FETCHER_NO_COLOR)")
	flags.StringVarP(&outputFlag, "output", "o", getEnvString("FETCHER_OUTPUT", "console"), "Output format: console, json (env: FETCHER_OUTPUT)")
	flags.BoolVar(&extractFlag, "extract", false, "Unwrap the \"data\" member of response envelopes")
	flags.BoolVar(&requestIDFlag, "request-id", false, "Send a fresh X-Request-Id header with every request")
	flags.StringVar(&pickFlag, "pick", "", "Print only the value at a JSON path (e.g., users.0.name)")
	flags.StringVar(&schemaFlag, "schema", "", "Validate responses against a JSON schema file")
	flags.StringVar(&historyFlag, "history", getEnvString("FETCHER_HISTORY", ""), "SQLite file recording every response (env: FETCHER_HISTORY)")
	flags.BoolVar(&dryRunFlag, "dry-run", false, "Echo the built request instead of sending it")
	flags.BoolVarP(&watchFlag, "watch", "w", false, "Re-run when the profile or env file changes")

	rootCmd.AddCommand(versionCmd)
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
