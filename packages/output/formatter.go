package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/abdul-hamid-achik/fetcher/packages/bench"
	"github.com/abdul-hamid-achik/fetcher/packages/history"
	"github.com/abdul-hamid-achik/fetcher/packages/http"
)

// Formatter renders CLI results.
type Formatter interface {
	FormatResponse(resp *http.Response)
	FormatError(err error)
	FormatBench(summary *bench.Summary, thresholds []bench.ThresholdResult)
	FormatHistory(entries []*history.Entry)
	FormatVersion(info VersionInfo)
}

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Options shared by all formatters.
type Options struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
}

// New returns the formatter for format: "console" (default) or "json".
func New(format string, opts Options) (Formatter, error) {
	switch format {
	case "", "console":
		return NewConsoleFormatter(
			WithWriter(opts.Writer),
			WithVerbose(opts.Verbose),
			WithNoColor(opts.NoColor),
		), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(opts.Writer)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want console or json)", format)
	}
}

// body returns what a response should display: its parsed data when a
// middleware set one, otherwise the raw body, indented when it is JSON.
func body(resp *http.Response) string {
	if resp.HasData() {
		if s, ok := resp.Data().(string); ok {
			return s
		}
		b, err := json.MarshalIndent(resp.Data(), "", "  ")
		if err == nil {
			return string(b)
		}
	}
	return indentJSON(resp.Body)
}

func indentJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
