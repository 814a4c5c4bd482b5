package bench

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/middleware"
)

func ok(ctx context.Context) (*http.Response, error) {
	return &http.Response{StatusCode: 200}, nil
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", *DefaultConfig(), false},
		{"duration only", Config{Duration: time.Second, Concurrency: 1}, false},
		{"no budget", Config{Concurrency: 1}, true},
		{"negative rate", Config{Requests: 1, Rate: -1, Concurrency: 1}, true},
		{"no workers", Config{Requests: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseThresholds(t *testing.T) {
	th, err := ParseThresholds("p95<200ms, p99<=1s,max<2s,errors<1%")
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, th.P95)
	assert.Equal(t, time.Second, th.P99)
	assert.Equal(t, 2*time.Second, th.MaxLatency)
	assert.InDelta(t, 0.01, th.ErrorRate, 1e-9)
	assert.True(t, th.HasThresholds())

	th, err = ParseThresholds("errors<0.5")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, th.ErrorRate, 1e-9)

	empty, err := ParseThresholds("")
	require.NoError(t, err)
	assert.False(t, empty.HasThresholds())

	for _, bad := range []string{"p95>1s", "p95<fast", "rps<3", "errors<x%"} {
		_, err := ParseThresholds(bad)
		assert.Error(t, err, bad)
	}
}

func TestRun_RequestBudget(t *testing.T) {
	var calls atomic.Int64
	target := func(ctx context.Context) (*http.Response, error) {
		n := calls.Add(1)
		if n%5 == 0 {
			return nil, &middleware.HTTPStatusError{Message: "Not Found", Response: &http.Response{StatusCode: 404}}
		}
		if n%7 == 0 {
			return nil, errors.New("connection reset")
		}
		return &http.Response{StatusCode: 200}, nil
	}

	summary, err := Run(context.Background(), &Config{Requests: 35, Concurrency: 4}, target)
	require.NoError(t, err)

	assert.Equal(t, int64(35), calls.Load())
	assert.Equal(t, int64(35), summary.Total)
	assert.Equal(t, int64(11), summary.Errors)
	assert.Equal(t, int64(7), summary.Statuses[404])
	assert.Equal(t, int64(4), summary.Statuses[0])
	assert.Equal(t, int64(24), summary.Statuses[200])
	assert.Equal(t, []int{0, 200, 404}, summary.StatusCodes())
	assert.InDelta(t, 11.0/35.0, summary.ErrorRate, 1e-9)
}

func TestRun_Duration(t *testing.T) {
	summary, err := Run(context.Background(), &Config{Duration: 50 * time.Millisecond, Rate: 100, Concurrency: 2}, ok)
	require.NoError(t, err)
	assert.Greater(t, summary.Total, int64(0))
	assert.LessOrEqual(t, summary.Total, int64(10))
	assert.GreaterOrEqual(t, summary.Duration, 50*time.Millisecond)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := Run(ctx, &Config{Requests: 10, Concurrency: 1}, ok)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, int64(0), summary.Total)
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), &Config{}, ok)
	assert.Error(t, err)
}

func TestSummary_Evaluate(t *testing.T) {
	rec := NewRecorder()
	rec.Start()
	for i := 1; i <= 100; i++ {
		rec.Record(time.Duration(i)*time.Millisecond, 200, i > 98)
	}
	rec.Stop()

	results := rec.Summary().Evaluate(Thresholds{
		P50:       60 * time.Millisecond,
		P99:       50 * time.Millisecond,
		ErrorRate: 0.05,
	})
	require.Len(t, results, 3)

	assert.Equal(t, "p50", results[0].Name)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "p99", results[1].Name)
	assert.False(t, results[1].Passed)
	assert.Equal(t, "errors", results[2].Name)
	assert.True(t, results[2].Passed)
	assert.Equal(t, "2.00%", results[2].Actual)
}
