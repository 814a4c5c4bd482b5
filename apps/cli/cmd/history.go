package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/fetcher/packages/http"
)

var historyLimitFlag int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded responses",
	Long: `Inspect the responses recorded in the history database configured with
--history or the profile's "history" setting.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded requests, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.requireHistory(); err != nil {
				return err
			}
			entries, err := s.history.List(ctx, historyLimitFlag)
			if err != nil {
				return err
			}
			s.formatter.FormatHistory(entries)
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a recorded response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return &usageError{err: fmt.Errorf("invalid history id %q", args[0])}
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.requireHistory(); err != nil {
				return err
			}
			e, err := s.history.Get(ctx, id)
			if err != nil {
				return err
			}

			req := http.NewRequest(e.Method, e.URL)
			req.Headers = e.RequestHeaders
			if e.RequestBody != nil {
				req.SetBody(*e.RequestBody)
			}
			s.formatter.FormatResponse(&http.Response{
				StatusCode: e.Status,
				Headers:    e.ResponseHeaders,
				Body:       []byte(e.ResponseBody),
				Duration:   e.Duration,
				Request:    req,
			})
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded response",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.requireHistory(); err != nil {
				return err
			}
			n, err := s.history.Clear(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", n)
			return nil
		})
	},
}

var errNoHistory = errors.New("history is not enabled (set \"history\" in the profile or pass --history)")

func (s *session) requireHistory() error {
	if s.history == nil {
		return &usageError{err: errNoHistory}
	}
	return nil
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Maximum entries to list (0 for all)")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
