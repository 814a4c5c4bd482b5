package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/fetcher/packages/core/config"
	"github.com/abdul-hamid-achik/fetcher/packages/core/env"
	"github.com/abdul-hamid-achik/fetcher/packages/history"
	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/middleware"
	"github.com/abdul-hamid-achik/fetcher/packages/mock"
	"github.com/abdul-hamid-achik/fetcher/packages/output"
	"github.com/abdul-hamid-achik/fetcher/packages/request"
)

// session holds everything one command invocation needs.
type session struct {
	cfg       *config.Config
	resolver  *env.Resolver
	logger    *slog.Logger
	formatter output.Formatter
	history   *history.Store
	echo      *mock.Transport
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadProfile(cmd)
	if err != nil {
		return nil, err
	}

	formatter, err := output.New(strings.ToLower(outputFlag), output.Options{
		Writer:  cmd.OutOrStdout(),
		Verbose: verboseFlag,
		NoColor: noColorFlag || cfg.GetNoColor(),
	})
	if err != nil {
		return nil, &usageError{err: err}
	}

	level := slog.LevelError
	if verboseFlag {
		level = slog.LevelDebug
	}

	s := &session{
		cfg:       cfg,
		logger:    slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})),
		formatter: formatter,
	}

	s.resolver, err = newResolver(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return nil, &profileError{err: err}
	}

	if cfg.History != "" {
		s.history, err = history.Open(cfg.History)
		if err != nil {
			return nil, &profileError{err: err}
		}
	}
	if dryRunFlag {
		s.echo = mock.New().Fallback(mock.Echo())
	}

	return s, nil
}

func (s *session) Close() error {
	if s.history != nil {
		return s.history.Close()
	}
	return nil
}

// loadProfile reads the profile and applies the command-line overrides.
func loadProfile(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, &profileError{err: err}
	}

	overrides, err := flagOverrides(cmd)
	if err != nil {
		return nil, &usageError{err: err}
	}
	cfg = cfg.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, &profileError{err: err}
	}
	return cfg, nil
}

func flagOverrides(cmd *cobra.Command) (*config.Config, error) {
	o := &config.Config{
		RootURL:  rootURLFlag,
		Token:    tokenFlag,
		Proxy:    proxyFlag,
		EnvFile:  envFileFlag,
		History:  historyFlag,
		Includes: includeFlags,
	}

	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		o.Timeout = int(d.Milliseconds())
	}
	if insecureFlag {
		o.ValidateSSL = config.BoolPtr(false)
	}
	if cmd.Flags().Changed("extract") {
		o.Extract = config.BoolPtr(extractFlag)
	}
	if cmd.Flags().Changed("request-id") {
		o.RequestID = config.BoolPtr(requestIDFlag)
	}

	var err error
	if o.Headers, err = parseHeaders(headerFlags); err != nil {
		return nil, err
	}
	if o.Query, err = parseQuery(queryFlags); err != nil {
		return nil, err
	}
	if o.Variables, err = parsePairs("--var", varFlags); err != nil {
		return nil, err
	}
	return o, nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (want \"Name: value\")", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// parseQuery turns key=value pairs into profile query parameters. Keys ending
// in [] collect every value into one list.
func parseQuery(raw []string) (config.Query, error) {
	var q config.Query
	index := make(map[string]int)

	for _, pair := range raw {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q (want key=value)", pair)
		}

		list := strings.HasSuffix(key, "[]")
		key = strings.TrimSuffix(key, "[]")

		if i, seen := index[key]; seen && list && q[i].List {
			q[i].Values = append(q[i].Values, value)
			continue
		}
		param := config.QueryParam{Key: key, Values: []string{value}, List: list}
		if i, seen := index[key]; seen {
			q[i] = param
			continue
		}
		index[key] = len(q)
		q = append(q, param)
	}
	return q, nil
}

func parsePairs(flag string, raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, pair := range raw {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid %s value %q (want name=value)", flag, pair)
		}
		out[key] = value
	}
	return out, nil
}

func newResolver(stderr io.Writer, cfg *config.Config) (*env.Resolver, error) {
	res := env.NewResolver()
	res.SetWarnFunc(func(format string, args ...any) {
		fmt.Fprintf(stderr, "warning: "+format+"\n", args...)
	})

	files := env.DefaultDotEnvFiles
	if cfg.EnvFile != "" {
		if _, err := os.Stat(cfg.EnvFile); err != nil {
			return nil, fmt.Errorf("env file: %w", err)
		}
		files = []string{cfg.EnvFile}
	}
	vars, err := env.LoadDotEnvFiles(files...)
	if err != nil {
		return nil, err
	}
	res.AddDotEnv(vars)

	for name, value := range cfg.Variables {
		res.SetVariable(name, value)
	}
	return res, nil
}

// doer returns the transport commands send through.
func (s *session) doer() http.Doer {
	if s.echo != nil {
		return s.echo
	}
	return http.NewClient(s.cfg.ClientOptions()...)
}

// request builds a Request from the profile with the output checks and
// history recording installed.
func (s *session) request(doer http.Doer, opts ...request.Option) (*request.Request, error) {
	base := []request.Option{request.WithLogger(s.logger)}
	r := s.cfg.NewRequest(s.resolver, doer, append(base, opts...)...)

	if s.history != nil {
		r.SetMiddlewares(append(middleware.Chain{s.history.Middleware()}, r.Middlewares()...)...)
	}
	if pickFlag != "" {
		r.WithMiddleware(middleware.Pluck(pickFlag))
	}
	if schemaFlag != "" {
		schema, err := os.ReadFile(schemaFlag)
		if err != nil {
			return nil, &usageError{err: fmt.Errorf("read schema: %w", err)}
		}
		validate, err := middleware.ValidateSchema(schema)
		if err != nil {
			return nil, &usageError{err: err}
		}
		r.WithMiddleware(validate)
	}
	return r, nil
}

// run executes action once, or on every profile change with --watch.
func run(cmd *cobra.Command, action func(ctx context.Context, s *session) error) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	once := func() error {
		s, err := newSession(cmd)
		if err != nil {
			output.NewConsoleFormatter(output.WithWriter(cmd.ErrOrStderr()), output.WithNoColor(noColorFlag)).FormatError(err)
			return &reportedError{err: err}
		}
		defer s.Close()

		if err := action(ctx, s); err != nil {
			s.formatter.FormatError(err)
			return &reportedError{err: err}
		}
		return nil
	}

	err := once()
	if !watchFlag {
		return err
	}
	return watch(ctx, cmd, once)
}
