package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled statement of one query file.
type CompilationResult struct {
	SQL         string `json:"sql"`
	Args        []any  `json:"args"`
	Selector    string `json:"selector"`
	Fingerprint string `json:"fingerprint"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query-file>",
		Short: "Compile a query file to SQL",
		Long: `Compile a query file to a parameterized PostgreSQL statement.

Prints the SQL, its positional arguments, the selector used to read rows
and a fingerprint that is stable for identical statements.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the statement JSON to a file")
	addCatalogueFlags(cmd)

	return cmd
}

func runCompile(opts *CompileOptions, queryPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	ws, err := LoadWorkspace(opts.RootOptions, cmd, queryPath)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Loaded %s: %d clause(s), %d include(s)", queryPath, ws.File.Query.Len(), len(ws.File.Includes))

	result, err := compileWorkspace(ws)
	if err != nil {
		return formatter.Fail(err)
	}

	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			return formatter.Fail(&LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err)})
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// addCatalogueFlags registers the flags that override config keys of the
// same name.
func addCatalogueFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 0, "statement limit hint (overrides config)")
	cmd.Flags().String("schema", "", "database schema of document tables (overrides config)")
	cmd.Flags().String("casing", "", "JSON key casing: default, camel or snake (overrides config)")
}

// compileWorkspace compiles the workspace query with its includes bound to
// discarding sinks.
func compileWorkspace(ws *Workspace) (*CompilationResult, error) {
	joins, err := ws.BindIncludes(nil)
	if err != nil {
		return nil, err
	}

	plan, err := querysql.Compile[any](ws.Compiler, ws.File.Query, ws.Limit(), joins...)
	if err != nil {
		return nil, err
	}

	fp, err := plan.Fingerprint()
	if err != nil {
		return nil, err
	}

	args := plan.Args
	if args == nil {
		args = []any{}
	}
	return &CompilationResult{
		SQL:         plan.SQL,
		Args:        args,
		Selector:    plan.Kind.String(),
		Fingerprint: fp,
	}, nil
}

// outputCompileSuccess outputs the compiled statement.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if err := formatter.Success(result); err != nil {
		return err
	}
	if outputFile != "" && formatter.Format != "json" {
		fmt.Fprintf(formatter.Writer, "\nWrote statement to %s\n", outputFile)
	}
	return nil
}

// RenderText writes the statement in sections: sql, typed args, selector
// and fingerprint.
func (r *CompilationResult) RenderText(w io.Writer) error {
	fmt.Fprintln(w, "-- sql --")
	fmt.Fprintln(w, r.SQL)
	fmt.Fprintln(w, "-- args --")
	for i, arg := range r.Args {
		fmt.Fprintf(w, "$%d %T %v\n", i+1, arg, arg)
	}
	fmt.Fprintln(w, "-- selector --")
	fmt.Fprintln(w, r.Selector)
	fmt.Fprintln(w, "-- fingerprint --")
	_, err := fmt.Fprintln(w, r.Fingerprint)
	return err
}

// writeResultToFile writes the statement as indented JSON.
func writeResultToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling statement: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
