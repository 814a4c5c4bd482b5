package output

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/abdul-hamid-achik/fetcher/packages/bench"
	"github.com/abdul-hamid-achik/fetcher/packages/history"
	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/middleware"
)

// JSONRequest represents request details
type JSONRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    *string           `json:"body,omitempty"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Duration   float64           `json:"duration"`
	Data       any               `json:"data,omitempty"`
	Body       string            `json:"body,omitempty"`
	Request    *JSONRequest      `json:"request,omitempty"`
}

// JSONError represents a failed request
type JSONError struct {
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode,omitempty"`
	Data       any    `json:"data,omitempty"`
}

// JSONBench represents a benchmark summary
type JSONBench struct {
	Total      int64                   `json:"total"`
	Errors     int64                   `json:"errors"`
	Duration   float64                 `json:"duration"`
	RPS        float64                 `json:"rps"`
	ErrorRate  float64                 `json:"errorRate"`
	Latency    map[string]float64      `json:"latency"`
	Statuses   map[int]int64           `json:"statuses"`
	Thresholds []bench.ThresholdResult `json:"thresholds,omitempty"`
}

// JSONFormatter writes one JSON document per call.
type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

func (f *JSONFormatter) encode(v any) {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(v)
}

func (f *JSONFormatter) FormatResponse(resp *http.Response) {
	out := JSONResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.StatusText(),
		Headers:    resp.Headers,
		Duration:   float64(resp.DurationMs()),
	}
	if resp.HasData() {
		out.Data = resp.Data()
	} else {
		out.Body = resp.BodyString()
	}
	if req := resp.Request; req != nil {
		out.Request = &JSONRequest{Method: req.Method, URL: req.URL, Headers: req.Headers}
		if req.HasBody {
			b := req.Body
			out.Request.Body = &b
		}
	}
	f.encode(out)
}

func (f *JSONFormatter) FormatError(err error) {
	out := JSONError{Error: err.Error()}
	var statusErr *middleware.HTTPStatusError
	if errors.As(err, &statusErr) {
		out.StatusCode = statusErr.StatusCode()
		out.Data = statusErr.Data
	}
	f.encode(out)
}

func (f *JSONFormatter) FormatBench(s *bench.Summary, thresholds []bench.ThresholdResult) {
	ms := func(d interface{ Microseconds() int64 }) float64 {
		return float64(d.Microseconds()) / 1000
	}
	f.encode(JSONBench{
		Total:     s.Total,
		Errors:    s.Errors,
		Duration:  ms(s.Duration),
		RPS:       s.RPS,
		ErrorRate: s.ErrorRate,
		Latency: map[string]float64{
			"min":  ms(s.Min),
			"mean": ms(s.Mean),
			"max":  ms(s.Max),
			"p50":  ms(s.P50),
			"p95":  ms(s.P95),
			"p99":  ms(s.P99),
		},
		Statuses:   s.Statuses,
		Thresholds: thresholds,
	})
}

func (f *JSONFormatter) FormatHistory(entries []*history.Entry) {
	if entries == nil {
		entries = []*history.Entry{}
	}
	f.encode(entries)
}

func (f *JSONFormatter) FormatVersion(info VersionInfo) {
	f.encode(info)
}
