package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/treestore/internal/queryir"
	"github.com/roach88/treestore/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool        `json:"valid"`
	Checked    int         `json:"checked"`
	Violations []Violation `json:"violations,omitempty"`
}

// Violation is a stored node its schema rejects.
type Violation struct {
	Path    string `json:"path"`
	Prefix  string `json:"prefix,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Check stored nodes against the configured schemas",
		Long: `Re-check every stored node at or below path against the CUE schemas
bound in the config file. Useful after adding or tightening a schema,
since saves are only checked against the schemas loaded at the time.

Exits 1 when any node is rejected.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, optionalArg(args), cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	s, err := opts.open(f, false)
	if err != nil {
		return f.Fail(err)
	}
	defer s.close()

	if len(s.cfg.Schemas) == 0 {
		return f.Fail(NewExitError(ExitCommandError, "no schemas configured"))
	}
	v, err := schema.Load(s.cfg.Schemas)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "load schemas", err))
	}
	f.VerboseLog("loaded %d schema(s)", v.Len())

	st, err := s.tree.FindPredicate(cmd.Context(), queryir.True{}, path)
	if err != nil {
		return f.Fail(err)
	}
	result := ValidationResult{Valid: true}
	for p, n := range st.All() {
		result.Checked++
		if err := v.Validate(p, n.Data); err != nil {
			result.Violations = append(result.Violations, violation(p, err))
		}
	}
	if err := st.Err(); err != nil {
		return f.Fail(err)
	}

	if len(result.Violations) == 0 {
		return f.Success(result, fmt.Sprintf("✓ %d node(s) valid", result.Checked))
	}
	result.Valid = false
	return outputViolations(f, result)
}

func violation(path string, err error) Violation {
	out := Violation{Path: path, Message: err.Error()}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		out.Prefix = verr.Prefix
		out.Message = verr.Message
		if verr.Pos.IsValid() {
			out.Line = verr.Pos.Line()
		}
	}
	return out
}

func outputViolations(f *OutputFormatter, result ValidationResult) error {
	if f.Format == "json" {
		_ = f.Error(CLIError{
			Code:    "VALIDATION_FAILED",
			Message: fmt.Sprintf("%d of %d node(s) invalid", len(result.Violations), result.Checked),
			Details: result,
		})
		return &ExitError{Code: ExitFailure, Message: "validation failed", reported: true}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✗ %d of %d node(s) invalid:\n", len(result.Violations), result.Checked)
	for _, v := range result.Violations {
		fmt.Fprintf(&b, "  %s: %s\n", v.Path, v.Message)
	}
	fmt.Fprint(f.GetErrWriter(), b.String())
	return &ExitError{Code: ExitFailure, Message: "validation failed", reported: true}
}
