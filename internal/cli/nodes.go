package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/tree"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and its root node",
		Long: `Create the database schema and the root node {"name": "Root"}.

Running init on an initialized database changes nothing.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(f, true)
			if err != nil {
				return f.Fail(err)
			}
			defer s.close()

			created, err := s.tree.Initialize(cmd.Context())
			if err != nil {
				return f.Fail(err)
			}
			text := "already initialized " + s.cfg.Database.Path
			if created {
				text = "initialized " + s.cfg.Database.Path
			}
			return f.Success(map[string]any{"created": created, "db": s.cfg.Database.Path}, text)
		},
	}
}

// NewLsCommand creates the ls command.
func NewLsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ls [path]",
		Short:         "List the direct children of a node",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(f, false)
			if err != nil {
				return f.Fail(err)
			}
			defer s.close()

			return outputStream(f)(s.tree.Ls(cmd.Context(), optionalArg(args)))
		},
	}
}

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Field string // JSONPath into the node, e.g. data.owner.name
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Print a node",
		Long: `Print the node at path as canonical JSON.

With --field, print only the value at a JSONPath into the node:
  treestore get /users/ann/ --field data.email
  treestore get /users/ann/ --field '$.data.tags[0]'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			s, err := opts.open(f, false)
			if err != nil {
				return f.Fail(err)
			}
			defer s.close()

			n, err := s.tree.Get(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			if opts.Field == "" {
				b, err := n.MarshalJSON()
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(n, string(b))
			}

			v, err := n.Lookup(opts.Field)
			if err != nil {
				return f.Fail(err)
			}
			b, err := ir.MarshalCanonical(v)
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(ir.ToNative(v), string(b))
		},
	}

	cmd.Flags().StringVarP(&opts.Field, "field", "f", "", "print only the value at this JSONPath")

	return cmd
}

// NewExistsCommand creates the exists command.
func NewExistsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "exists <path>",
		Short:         "Report whether a node exists",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(f, false)
			if err != nil {
				return f.Fail(err)
			}
			defer s.close()

			p, err := s.tree.Resolve(args[0])
			if err != nil {
				return f.Fail(err)
			}
			ok, err := s.tree.Exists(cmd.Context(), p)
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(map[string]any{"path": p, "exists": ok}, fmt.Sprint(ok))
		},
	}
}

// ParentsOptions holds flags for the parents command.
type ParentsOptions struct {
	*RootOptions
	Top string
}

// NewParentsCommand creates the parents command.
func NewParentsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParentsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parents <path>",
		Short: "List a node and its ancestors, root first",
		Long: `List the stored ancestors of path and path itself, root first.

--top bounds the walk: only nodes at or below top are listed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			s, err := opts.open(f, false)
			if err != nil {
				return f.Fail(err)
			}
			defer s.close()

			return outputStream(f)(s.tree.Parents(cmd.Context(), args[0], opts.Top))
		},
	}

	cmd.Flags().StringVar(&opts.Top, "top", "/", "highest ancestor to include")

	return cmd
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find <query> [path]",
		Short: "Find nodes at or below path matching a query",
		Long: `Find nodes at or below path (default: --cwd) matching query.

Query language:
  data.size > 10 and name ~ 'report%'
  data.owner.name = "ann" or not data.archived = true
  data.tag in ("a", "b")
  mtime >= '2026-01-01T00:00:00.000000000Z'

An empty query matches every node in the subtree.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(f, false)
			if err != nil {
				return f.Fail(err)
			}
			defer s.close()

			return outputStream(f)(s.tree.Find(cmd.Context(), args[0], optionalArg(args[1:])))
		},
	}
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save <path> [json]",
		Short: "Create or update a node",
		Long: `Store a JSON object at path. The object is read from stdin when no json
argument is given or it is "-".

A new node needs an existing parent. Saving an existing node replaces its
data and mtime and keeps its id and ctime.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			raw, err := readPayload(cmd.InOrStdin(), args[1:])
			if err != nil {
				return f.Fail(err)
			}
			data, err := ir.ParseObject(raw)
			if err != nil {
				return f.Fail(&tree.Error{Code: tree.CodeInvalidPayload, Path: args[0], Message: "payload must be a JSON object", Err: err})
			}

			s, err := rootOpts.open(f, true)
			if err != nil {
				return f.Fail(err)
			}
			defer s.close()

			res, err := s.tree.Save(cmd.Context(), data, args[0])
			if err != nil {
				return f.Fail(err)
			}
			verb := "updated"
			if res.Created {
				verb = "created"
			}
			return f.Success(map[string]any{"created": res.Created, "node": res.Node}, verb+" "+res.Node.Path)
		},
	}
}

// NewRmCommand creates the rm command.
func NewRmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <path>",
		Short:         "Delete a node and its descendants",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(f, true)
			if err != nil {
				return f.Fail(err)
			}
			defer s.close()

			n, err := s.tree.Delete(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(map[string]any{"deleted": n}, fmt.Sprintf("removed %d node(s)", n))
		},
	}
}

// optionalArg returns the first arg, or "" to mean the current scope.
func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func readPayload(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) > 0 && args[0] != "-" {
		return []byte(args[0]), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return b, nil
}

// outputStream drains a stream: node objects in JSON mode, one path per
// line in text mode.
func outputStream(f *OutputFormatter) func(*tree.Stream, error) error {
	return func(st *tree.Stream, err error) error {
		if err != nil {
			return f.Fail(err)
		}
		nodes, err := st.Collect()
		if err != nil {
			return f.Fail(err)
		}
		if f.Format == "json" {
			return f.Success(nodes, "")
		}
		paths := make([]string, len(nodes))
		for i, n := range nodes {
			paths[i] = n.Path
		}
		if len(paths) == 0 {
			return nil
		}
		return f.Success(nil, strings.Join(paths, "\n"))
	}
}
