package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/queryir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool       `json:"valid"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []CLIError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query-file>",
		Short: "Check a query file without printing SQL",
		Long: `Check a query file's clause sequence and compile it against the
configured catalogue.

Reports structural warnings (clause order, a second flatten, negative
counts) and compile errors (unresolved members, unsupported expressions).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	addCatalogueFlags(cmd)

	return cmd
}

func runValidate(opts *RootOptions, queryPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ws, err := LoadWorkspace(opts, cmd, queryPath)
	if err != nil {
		return formatter.Fail(err)
	}

	result := validateWorkspace(ws)
	formatter.VerboseLog("Validated %s: %d warning(s), %d error(s)", queryPath, len(result.Warnings), len(result.Errors))

	if !result.Valid {
		return formatter.Reject(result, result.firstProblem(), len(result.Warnings)+len(result.Errors))
	}
	return formatter.Success(result)
}

// validateWorkspace runs the structural checks and a trial compile.
func validateWorkspace(ws *Workspace) ValidationResult {
	structural := queryir.Validate(ws.File.Query)
	result := ValidationResult{
		Valid:    structural.Valid,
		Warnings: structural.Warnings,
	}

	if _, err := compileWorkspace(ws); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, CLIError{
			Code:    ErrorCode(err),
			Message: ErrorMessage(err),
		})
	}
	return result
}

// firstProblem is the error reported alongside a failed validation: the
// first compile error, else the first structural warning.
func (r ValidationResult) firstProblem() CLIError {
	if len(r.Errors) > 0 {
		return r.Errors[0]
	}
	first := CLIError{Code: ErrCodeInvalidQuery}
	if len(r.Warnings) > 0 {
		first.Message = r.Warnings[0]
	}
	return first
}

// RenderText writes the validation report.
func (r ValidationResult) RenderText(w io.Writer) error {
	if r.Valid {
		_, err := fmt.Fprintln(w, "✓ Query valid")
		return err
	}

	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s: %s\n", e.Code, e.Message)
	}
	return nil
}
