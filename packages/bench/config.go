// Package bench repeatedly sends one request and reports latency
// percentiles, throughput and status code counts.
package bench

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config controls a benchmark run. The run stops after Requests requests or
// when Duration elapses, whichever comes first; at least one must be set.
type Config struct {
	Requests    int
	Duration    time.Duration
	Rate        float64 // requests per second, 0 for unlimited
	Concurrency int
	Thresholds  Thresholds
}

// Thresholds defines pass/fail criteria for a run
type Thresholds struct {
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	MaxLatency time.Duration
	ErrorRate  float64 // 0.0 - 1.0
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Requests:    100,
		Concurrency: 1,
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Requests <= 0 && c.Duration <= 0 {
		return fmt.Errorf("either requests or duration must be positive")
	}
	if c.Requests < 0 {
		return fmt.Errorf("requests cannot be negative")
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate cannot be negative")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	return nil
}

var thresholdPattern = regexp.MustCompile(`^(\w+)\s*(<=?)\s*(.+)$`)

// ParseThresholds parses a threshold string like "p95<200ms,errors<1%".
func ParseThresholds(s string) (Thresholds, error) {
	var t Thresholds

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		matches := thresholdPattern.FindStringSubmatch(part)
		if matches == nil {
			return t, fmt.Errorf("invalid threshold format: %s", part)
		}
		metric, value := strings.ToLower(matches[1]), matches[3]

		switch metric {
		case "p50", "p95", "p99", "max":
			d, err := time.ParseDuration(value)
			if err != nil {
				return t, fmt.Errorf("invalid duration for %s: %s", metric, value)
			}
			switch metric {
			case "p50":
				t.P50 = d
			case "p95":
				t.P95 = d
			case "p99":
				t.P99 = d
			default:
				t.MaxLatency = d
			}

		case "errors":
			percent := strings.HasSuffix(value, "%")
			f, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
			if err != nil {
				return t, fmt.Errorf("invalid error rate: %s", value)
			}
			if percent {
				f /= 100
			}
			t.ErrorRate = f

		default:
			return t, fmt.Errorf("unknown threshold metric: %s", metric)
		}
	}

	return t, nil
}

// HasThresholds returns true if any thresholds are configured
func (t Thresholds) HasThresholds() bool {
	return t.P50 > 0 || t.P95 > 0 || t.P99 > 0 || t.MaxLatency > 0 || t.ErrorRate > 0
}
