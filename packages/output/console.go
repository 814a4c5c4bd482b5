package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/fetcher/packages/bench"
	"github.com/abdul-hamid-achik/fetcher/packages/history"
	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/middleware"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

// WithWriter sets the destination; nil keeps stdout.
func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgYellow, color.Bold)
	case code >= 300:
		return color.New(color.FgCyan, color.Bold)
	default:
		return color.New(color.FgGreen, color.Bold)
	}
}

func (f *ConsoleFormatter) FormatResponse(resp *http.Response) {
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	if req := resp.Request; req != nil {
		fmt.Fprintf(f.writer, "%s %s\n", cyan(req.Method), req.URL)
	}
	status := fmt.Sprintf("%d %s", resp.StatusCode, resp.StatusText())
	fmt.Fprintf(f.writer, "%s %s\n", statusColor(resp.StatusCode).Sprint(status), faint(fmt.Sprintf("(%dms)", resp.DurationMs())))

	if f.verbose {
		names := make([]string, 0, len(resp.Headers))
		for k := range resp.Headers {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(f.writer, "%s %s\n", faint(k+":"), resp.Headers[k])
		}
	}

	if out := body(resp); out != "" {
		fmt.Fprintf(f.writer, "\n%s\n", out)
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()

	var statusErr *middleware.HTTPStatusError
	if !errors.As(err, &statusErr) {
		fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
		return
	}

	fmt.Fprintf(f.writer, "%s %s\n", red("Error:"), statusColor(statusErr.StatusCode()).Sprintf("%d %s", statusErr.StatusCode(), statusErr.Message))
	if !statusErr.HasData {
		return
	}
	if s, ok := statusErr.Data.(string); ok {
		fmt.Fprintf(f.writer, "\n%s\n", s)
		return
	}
	if f.verbose && statusErr.Response != nil {
		fmt.Fprintf(f.writer, "\n%s\n", body(statusErr.Response))
		return
	}
	fmt.Fprintf(f.writer, "  %s\n", formatValue(statusErr.Data, 100))
}

func (f *ConsoleFormatter) FormatBench(s *bench.Summary, thresholds []bench.ThresholdResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Summary"))
	fmt.Fprintf(f.writer, "  Requests:   %d in %s (%.1f/s)\n", s.Total, s.Duration.Round(time.Millisecond), s.RPS)
	errs := fmt.Sprintf("%d (%.2f%%)", s.Errors, s.ErrorRate*100)
	if s.Errors > 0 {
		errs = red(errs)
	}
	fmt.Fprintf(f.writer, "  Errors:     %s\n", errs)

	fmt.Fprintf(f.writer, "\n%s\n", bold("Latency"))
	fmt.Fprintf(f.writer, "  min %s  mean %s  max %s\n", s.Min, s.Mean.Round(time.Microsecond), s.Max)
	fmt.Fprintf(f.writer, "  p50 %s  p95 %s  p99 %s\n", s.P50, s.P95, s.P99)

	fmt.Fprintf(f.writer, "\n%s\n", bold("Status codes"))
	for _, code := range s.StatusCodes() {
		label := "network error"
		if code != 0 {
			label = statusColor(code).Sprint(code)
		}
		fmt.Fprintf(f.writer, "  %s: %d\n", label, s.Statuses[code])
	}

	if len(thresholds) > 0 {
		fmt.Fprintf(f.writer, "\n%s\n", bold("Thresholds"))
		for _, t := range thresholds {
			symbol := green("✓")
			if !t.Passed {
				symbol = red("✗")
			}
			fmt.Fprintf(f.writer, "  %s %s %s (actual %s)\n", symbol, t.Name, t.Expected, t.Actual)
		}
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatHistory(entries []*history.Entry) {
	faint := color.New(color.Faint).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if len(entries) == 0 {
		fmt.Fprintln(f.writer, "No history entries")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(f.writer, "%s %s %s %s %s\n",
			faint(fmt.Sprintf("#%-4d", e.ID)),
			faint(e.CreatedAt.Local().Format("2006-01-02 15:04:05")),
			statusColor(e.Status).Sprintf("%3d", e.Status),
			cyan(fmt.Sprintf("%-6s", e.Method)),
			e.URL,
		)
	}
}

func (f *ConsoleFormatter) FormatVersion(info VersionInfo) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s version %s\n", bold("fetcher"), info.Version)
	if f.verbose {
		fmt.Fprintf(f.writer, "  built:    %s\n", info.BuildTime)
		fmt.Fprintf(f.writer, "  go:       %s\n", info.GoVersion)
		fmt.Fprintf(f.writer, "  platform: %s\n", info.Platform)
	}
}
