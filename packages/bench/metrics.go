package bench

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latencies are recorded in microseconds between 1us and 60s.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Recorder aggregates request outcomes. It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	total     int64
	errors    int64
	statuses  map[int]int64
	start     time.Time
	end       time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
		statuses:  make(map[int]int64),
	}
}

// Start marks the beginning of the run
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = time.Now()
}

// Stop marks the end of the run
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.end = time.Now()
}

// Record adds one request. status is 0 when no response arrived.
func (r *Recorder) Record(latency time.Duration, status int, failed bool) {
	us := latency.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_ = r.histogram.RecordValue(us)
	r.total++
	if failed {
		r.errors++
	}
	r.statuses[status]++
}

// Summary is the result of a run.
type Summary struct {
	Duration  time.Duration
	Total     int64
	Errors    int64
	RPS       float64
	ErrorRate float64

	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration

	// Statuses counts responses per status code; 0 counts transport failures.
	Statuses map[int]int64
}

// StatusCodes returns the observed status codes in ascending order.
func (s *Summary) StatusCodes() []int {
	codes := make([]int, 0, len(s.Statuses))
	for code := range s.Statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// Summary returns the aggregated metrics so far.
func (r *Recorder) Summary() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	end := r.end
	if end.IsZero() {
		end = time.Now()
	}
	duration := end.Sub(r.start)

	s := &Summary{
		Duration: duration,
		Total:    r.total,
		Errors:   r.errors,
		P50:      usDuration(r.histogram.ValueAtQuantile(50)),
		P95:      usDuration(r.histogram.ValueAtQuantile(95)),
		P99:      usDuration(r.histogram.ValueAtQuantile(99)),
		Min:      usDuration(r.histogram.Min()),
		Max:      usDuration(r.histogram.Max()),
		Mean:     time.Duration(r.histogram.Mean() * float64(time.Microsecond)),
		StdDev:   time.Duration(r.histogram.StdDev() * float64(time.Microsecond)),
		Statuses: make(map[int]int64, len(r.statuses)),
	}
	for code, n := range r.statuses {
		s.Statuses[code] = n
	}

	if duration > 0 {
		s.RPS = float64(r.total) / duration.Seconds()
	}
	if r.total > 0 {
		s.ErrorRate = float64(r.errors) / float64(r.total)
	}

	return s
}

func usDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

// ThresholdResult holds the result of evaluating a threshold
type ThresholdResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Evaluate checks the summary against t, in a fixed order.
func (s *Summary) Evaluate(t Thresholds) []ThresholdResult {
	var results []ThresholdResult

	latency := func(name string, limit, actual time.Duration) {
		if limit <= 0 {
			return
		}
		results = append(results, ThresholdResult{
			Name:     name,
			Passed:   actual <= limit,
			Expected: "<= " + limit.String(),
			Actual:   actual.String(),
		})
	}

	latency("p50", t.P50, s.P50)
	latency("p95", t.P95, s.P95)
	latency("p99", t.P99, s.P99)
	latency("max", t.MaxLatency, s.Max)

	if t.ErrorRate > 0 {
		results = append(results, ThresholdResult{
			Name:     "errors",
			Passed:   s.ErrorRate <= t.ErrorRate,
			Expected: formatPercent(t.ErrorRate),
			Actual:   formatPercent(s.ErrorRate),
		})
	}

	return results
}

func formatPercent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 2, 64) + "%"
}
