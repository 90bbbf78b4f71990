package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/docstore"
	"github.com/roach88/docsql/internal/querysql"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Timeout time.Duration

	// Open allows overriding how the document store is opened (for testing).
	// If nil, defaults to docstore.Open.
	Open func(ctx context.Context, dsn string) (*docstore.Store, error)
}

// RunResult holds the materialized rows and the related documents collected
// by includes, keyed by alias.
type RunResult struct {
	Rows     []any            `json:"rows"`
	Included map[string][]any `json:"included,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <query-file>",
		Short: "Compile a query file and execute it",
		Long: `Compile a query file and execute it against PostgreSQL.

The connection string comes from the dsn config key, DOCSQL_DSN or --dsn.
Rows are printed one JSON value per line; documents loaded by includes are
listed per alias after the rows.

Example:
  docsql run --dsn postgres://localhost/docs ./queries/tags.cue
  docsql run --format json ./queries/comments.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().String("dsn", "", "PostgreSQL connection string (overrides config)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "statement timeout")
	addCatalogueFlags(cmd)

	return cmd
}

func runQuery(opts *RunOptions, queryPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	ws, err := LoadWorkspace(opts.RootOptions, cmd, queryPath)
	if err != nil {
		return formatter.Fail(err)
	}
	if ws.Config.DSN == "" {
		return formatter.Fail(&LoadError{
			Code:    ErrCodeConfig,
			Message: "no database configured: set dsn in the config file, DOCSQL_DSN or --dsn",
		})
	}

	included := map[string][]any{}
	joins, err := ws.BindIncludes(included)
	if err != nil {
		return formatter.Fail(err)
	}

	plan, err := querysql.Compile[any](ws.Compiler, ws.File.Query, ws.Limit(), joins...)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Compiled %s (%s selector)", queryPath, plan.Kind)

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	open := opts.Open
	if open == nil {
		open = docstore.Open
	}
	store, err := open(ctx, ws.Config.DSN)
	if err != nil {
		return formatter.Fail(&LoadError{Code: ErrCodeConnect, Message: err.Error()})
	}
	defer store.Close()

	start := time.Now()
	rows, err := docstore.Query(ctx, store, plan)
	if err != nil {
		return formatter.Fail(&LoadError{Code: ErrCodeExecute, Message: err.Error()})
	}
	slog.Debug("query executed", "file", queryPath, "rows", len(rows), "elapsed", time.Since(start))

	result := &RunResult{Rows: make([]any, 0, len(rows))}
	result.Rows = append(result.Rows, rows...)
	if len(included) > 0 {
		result.Included = included
	}
	return formatter.Success(result)
}

// RenderText prints rows as JSON lines, then the included documents of
// each alias, then the row count.
func (r *RunResult) RenderText(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, row := range r.Rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}

	aliases := make([]string, 0, len(r.Included))
	for alias := range r.Included {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		docs := r.Included[alias]
		fmt.Fprintf(w, "-- included %s (%d) --\n", alias, len(docs))
		for _, doc := range docs {
			if err := enc.Encode(doc); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintf(w, "(%d row(s))\n", len(r.Rows))
	return err
}
