package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/request"
)

var dataFlag string

// verbCommand builds the command for one HTTP method. withBody adds --data.
func verbCommand(method string, withBody bool, send func(ctx context.Context, r *request.Request, path string, body json.RawMessage) (*http.Response, error)) *cobra.Command {
	use := strings.ToLower(method) + " <path>"
	c := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Send a %s request", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *session) error {
				var body json.RawMessage
				if withBody {
					var err error
					if body, err = readBody(cmd.InOrStdin(), dataFlag); err != nil {
						return err
					}
				}

				r, err := s.request(s.doer())
				if err != nil {
					return err
				}
				resp, err := send(ctx, r, args[0], body)
				if err != nil {
					return err
				}
				s.formatter.FormatResponse(resp)
				return nil
			})
		},
	}
	if withBody {
		c.Flags().StringVarP(&dataFlag, "data", "d", "", "JSON body, @file to read a file or - for stdin")
	}
	return c
}

// readBody resolves --data. Empty means no body.
func readBody(stdin io.Reader, data string) (json.RawMessage, error) {
	var raw []byte
	switch {
	case data == "":
		return nil, nil
	case data == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, &usageError{err: fmt.Errorf("read body: %w", err)}
		}
		raw = b
	default:
		raw = []byte(data)
	}

	if !json.Valid(raw) {
		return nil, &usageError{err: fmt.Errorf("body is not valid JSON")}
	}
	return json.RawMessage(raw), nil
}

// payload keeps a missing body nil so no body is sent.
func payload(body json.RawMessage) any {
	if body == nil {
		return nil
	}
	return body
}

func init() {
	rootCmd.AddCommand(
		verbCommand("GET", false, func(ctx context.Context, r *request.Request, path string, _ json.RawMessage) (*http.Response, error) {
			return r.Get(ctx, path)
		}),
		verbCommand("DELETE", false, func(ctx context.Context, r *request.Request, path string, _ json.RawMessage) (*http.Response, error) {
			return r.Delete(ctx, path)
		}),
		verbCommand("POST", true, func(ctx context.Context, r *request.Request, path string, body json.RawMessage) (*http.Response, error) {
			return r.Post(ctx, path, payload(body))
		}),
		verbCommand("PUT", true, func(ctx context.Context, r *request.Request, path string, body json.RawMessage) (*http.Response, error) {
			return r.Put(ctx, path, payload(body))
		}),
		verbCommand("PATCH", true, func(ctx context.Context, r *request.Request, path string, body json.RawMessage) (*http.Response, error) {
			return r.Patch(ctx, path, payload(body))
		}),
	)
}
