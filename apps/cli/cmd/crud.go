package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/fetcher/packages/crud"
	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/request"
)

var underFlag string

var crudCmd = &cobra.Command{
	Use:   "crud",
	Short: "Run REST collection operations on a resource",
	Long: `Run index, store, show, update and destroy against a resource.

Examples:
  fetcher crud index users
  fetcher crud show users 1
  fetcher crud store users -d '{"name":"Ada"}'
  fetcher crud update users 1 -d @user.json
  fetcher crud destroy users 1
  fetcher crud index articles --under users/1`,
}

// crudAction runs one operation; args excludes the resource name.
type crudAction func(ctx context.Context, res *crud.Resource, args []string, body any) (*http.Response, error)

func crudCommand(use, short string, args cobra.PositionalArgs, withBody bool, action crudAction) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *session) error {
				var body any
				if withBody {
					raw, err := readBody(cmd.InOrStdin(), dataFlag)
					if err != nil {
						return err
					}
					body = payload(raw)
				}

				r, err := s.request(s.doer())
				if err != nil {
					return err
				}
				res, err := resolveResource(r, args[0], underFlag)
				if err != nil {
					return err
				}

				resp, err := action(ctx, res, args[1:], body)
				if err != nil {
					return err
				}
				s.formatter.FormatResponse(resp)
				return nil
			})
		},
	}
	c.Flags().StringVar(&underFlag, "under", "", "Parent item the resource is nested under, as resource/id")
	if withBody {
		c.Flags().StringVarP(&dataFlag, "data", "d", "", "JSON body, @file to read a file or - for stdin")
	}
	return c
}

// resolveResource names the resource, nesting it under parent when given.
func resolveResource(r *request.Request, name, parent string) (*crud.Resource, error) {
	if parent == "" {
		return crud.Wrap(r.SetResource(name)), nil
	}

	i := strings.LastIndex(parent, "/")
	if i <= 0 || i == len(parent)-1 {
		return nil, &usageError{err: fmt.Errorf("invalid --under %q (want resource/id)", parent)}
	}
	child := r.Clone().SetResource(name)
	owner := crud.Wrap(r.SetResource(parent[:i]))
	return owner.Nested(request.ByValue(child), parent[i+1:])
}

func init() {
	crudCmd.AddCommand(
		crudCommand("index <resource>", "List a collection", cobra.ExactArgs(1), false,
			func(ctx context.Context, res *crud.Resource, _ []string, _ any) (*http.Response, error) {
				return res.Index(ctx)
			}),
		crudCommand("store <resource>", "Create an item", cobra.ExactArgs(1), true,
			func(ctx context.Context, res *crud.Resource, _ []string, body any) (*http.Response, error) {
				return res.Store(ctx, body)
			}),
		crudCommand("show <resource> <id>", "Fetch one item", cobra.ExactArgs(2), false,
			func(ctx context.Context, res *crud.Resource, args []string, _ any) (*http.Response, error) {
				return res.Show(ctx, args[0])
			}),
		crudCommand("update <resource> <id>", "Replace one item", cobra.ExactArgs(2), true,
			func(ctx context.Context, res *crud.Resource, args []string, body any) (*http.Response, error) {
				return res.Update(ctx, args[0], body)
			}),
		crudCommand("destroy <resource> <id>", "Delete one item", cobra.ExactArgs(2), false,
			func(ctx context.Context, res *crud.Resource, args []string, _ any) (*http.Response, error) {
				return res.Destroy(ctx, args[0])
			}),
	)
	rootCmd.AddCommand(crudCmd)
}
