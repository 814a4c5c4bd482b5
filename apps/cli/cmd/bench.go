package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/fetcher/packages/bench"
	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/metrics"
	"github.com/abdul-hamid-achik/fetcher/packages/middleware"
	"github.com/abdul-hamid-achik/fetcher/packages/options"
	"github.com/abdul-hamid-achik/fetcher/packages/request"
)

var (
	benchRequestsFlag    int
	benchDurationFlag    string
	benchRateFlag        float64
	benchConcurrencyFlag int
	benchThresholdFlag   string
	benchMethodFlag      string
	benchMetricsAddrFlag string
)

var benchCmd = &cobra.Command{
	Use:   "bench <path>",
	Short: "Send a request repeatedly and report latency",
	Long: `Send one request repeatedly through the profile and report latency
percentiles, throughput and status codes.

Examples:
  fetcher bench users -n 500 -c 10
  fetcher bench users -d 1m -r 50
  fetcher bench users -n 200 --threshold "p95<200ms,errors<1%"
  fetcher bench users -d 5m --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildBenchConfig(cmd)
		if err != nil {
			return &usageError{err: err}
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			return runBench(ctx, cmd, s, cfg, args[0])
		})
	},
}

func init() {
	benchCmd.Flags().IntVarP(&benchRequestsFlag, "requests", "n", 100, "Number of requests to send (0 for no limit)")
	benchCmd.Flags().StringVar(&benchDurationFlag, "duration", "", "Stop after this long (e.g., 30s, 5m)")
	benchCmd.Flags().Float64VarP(&benchRateFlag, "rate", "r", 0, "Target requests per second (0 for unlimited)")
	benchCmd.Flags().IntVarP(&benchConcurrencyFlag, "concurrency", "c", getEnvInt("FETCHER_CONCURRENCY", 1), "Concurrent requests (env: FETCHER_CONCURRENCY)")
	benchCmd.Flags().StringVar(&benchThresholdFlag, "threshold", "", "Pass/fail thresholds (e.g., \"p95<200ms,errors<0.1%\")")
	benchCmd.Flags().StringVarP(&benchMethodFlag, "method", "X", "GET", "HTTP method")
	benchCmd.Flags().StringVar(&benchMetricsAddrFlag, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	benchCmd.Flags().StringVarP(&dataFlag, "data", "d", "", "JSON body, @file to read a file or - for stdin")

	rootCmd.AddCommand(benchCmd)
}

func buildBenchConfig(cmd *cobra.Command) (*bench.Config, error) {
	cfg := bench.DefaultConfig()
	cfg.Requests = benchRequestsFlag
	cfg.Rate = benchRateFlag
	cfg.Concurrency = benchConcurrencyFlag

	if benchDurationFlag != "" {
		d, err := time.ParseDuration(benchDurationFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", benchDurationFlag, err)
		}
		cfg.Duration = d
		if !cmd.Flags().Changed("requests") {
			cfg.Requests = 0
		}
	}

	if benchThresholdFlag != "" {
		t, err := bench.ParseThresholds(benchThresholdFlag)
		if err != nil {
			return nil, err
		}
		cfg.Thresholds = t
	}

	return cfg, cfg.Validate()
}

func runBench(ctx context.Context, cmd *cobra.Command, s *session, cfg *bench.Config, path string) error {
	body, err := readBody(cmd.InOrStdin(), dataFlag)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	r, err := s.request(collector.Instrument(s.doer()), request.WithLogger(nil))
	if err != nil {
		return err
	}
	r.SetMiddlewares(append(middleware.Chain{collector.Middleware()}, r.Middlewares()...)...)

	if benchMetricsAddrFlag != "" {
		stop, err := serveMetrics(benchMetricsAddrFlag, collector)
		if err != nil {
			return err
		}
		defer stop()
		fmt.Fprintf(cmd.ErrOrStderr(), "Serving metrics on http://%s/metrics\n", benchMetricsAddrFlag)
	}

	overrides := benchOverrides(strings.ToUpper(benchMethodFlag), body)
	target := func(ctx context.Context) (*http.Response, error) {
		return r.Make(ctx, path, overrides)
	}

	summary, err := bench.Run(ctx, cfg, target)
	if summary != nil {
		results := summary.Evaluate(cfg.Thresholds)
		s.formatter.FormatBench(summary, results)
		for _, res := range results {
			if !res.Passed {
				return fmt.Errorf("%w: threshold %s %s (actual %s)", errCheckFailed, res.Name, res.Expected, res.Actual)
			}
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveMetrics(addr string, collector *metrics.Collector) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := nethttp.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &nethttp.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func benchOverrides(method string, body json.RawMessage) options.Tree {
	t := options.Tree{options.KeyMethod: options.Literal(method)}
	if body != nil {
		t[options.KeyBody] = options.Literal(string(body))
	}
	return t
}
