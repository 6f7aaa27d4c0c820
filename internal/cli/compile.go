package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/treestore/internal/queryir"
	"github.com/roach88/treestore/internal/querylang"
	"github.com/roach88/treestore/internal/querysql"
	"github.com/roach88/treestore/internal/tree"
	"github.com/roach88/treestore/internal/treepath"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Dialect string // overrides the config dialect
}

// CompilationResult is the rendered filter of a find.
type CompilationResult struct {
	Dialect string          `json:"dialect"`
	Scope   string          `json:"scope"`
	SQL     string          `json:"sql"`
	Params  []CompiledParam `json:"params"`
}

// CompiledParam is one bound parameter.
type CompiledParam struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query> [path]",
		Short: "Show the SQL filter a find would run",
		Long: `Compile a query, scoped to the subtree at path, into a parameterized
WHERE clause for a SQL dialect. No database is opened.

Examples:
  treestore compile 'data.size > 3' /docs/
  treestore compile 'name ~ "a%"' --dialect postgres --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", fmt.Sprintf("SQL dialect (%s)", strings.Join(querysql.Names(), "|")))

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return f.Fail(err)
	}
	name := cfg.Dialect
	if opts.Dialect != "" {
		name = opts.Dialect
	}
	dialect, err := querysql.Lookup(name)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "select dialect", err))
	}

	pred, err := querylang.Parse(args[0])
	if err != nil {
		return f.Fail(err)
	}
	scope, err := treepath.Collapse(optionalArg(args[1:]), opts.Cwd)
	if err != nil {
		return f.Fail(&tree.Error{Code: tree.CodeInvalidPath, Path: optionalArg(args[1:]), Err: err})
	}
	f.VerboseLog("predicate: %s", queryir.Format(pred))

	frag, err := querysql.NewCompiler(dialect).Compile(queryir.Conj(queryir.Under{Prefix: scope}, pred))
	if err != nil {
		return f.Fail(err)
	}

	result := CompilationResult{Dialect: dialect.Name(), Scope: scope, SQL: frag.SQL, Params: []CompiledParam{}}
	for _, p := range frag.Params {
		result.Params = append(result.Params, CompiledParam{Name: p.Name, Value: p.Value})
	}
	text := frag.SQL
	if len(frag.Params) > 0 {
		text += "\n-- " + frag.Params.String()
	}
	return f.Success(result, text)
}
