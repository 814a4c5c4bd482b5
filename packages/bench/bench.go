package bench

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/fetcher/packages/http"
)

// Target sends one request.
type Target func(ctx context.Context) (*http.Response, error)

// Run calls target until the request budget or the duration is spent, with
// at most cfg.Concurrency calls in flight and at most cfg.Rate calls started
// per second. Requests already in flight when the duration ends complete
// normally. Canceling ctx stops the run early and returns the partial
// summary together with ctx.Err().
func Run(ctx context.Context, cfg *Config, target Target) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	feedCtx := ctx
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		feedCtx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}

	rec := NewRecorder()
	rec.Start()

	jobs := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				start := time.Now()
				resp, err := target(ctx)
				rec.Record(time.Since(start), statusOf(resp, err), err != nil)
			}
		}()
	}

feed:
	for n := 0; cfg.Requests == 0 || n < cfg.Requests; n++ {
		if feedCtx.Err() != nil {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(feedCtx); err != nil {
				break
			}
		}
		select {
		case jobs <- struct{}{}:
		case <-feedCtx.Done():
			break feed
		}
	}

	close(jobs)
	wg.Wait()
	rec.Stop()

	return rec.Summary(), ctx.Err()
}

type statusCoder interface {
	StatusCode() int
}

func statusOf(resp *http.Response, err error) int {
	if resp != nil {
		return resp.StatusCode
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}
