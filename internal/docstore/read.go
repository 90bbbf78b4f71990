package docstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/docsql/internal/querysql"
)

// Query executes plan and materializes every row as a T.
//
// Rows are resolved in the order the database returns them; eager-load
// sinks fire once per row while rows are being read. Returns an empty
// slice (not nil) when no rows match.
func Query[T any](ctx context.Context, s *Store, plan *querysql.Plan[T]) ([]T, error) {
	if plan == nil {
		return nil, fmt.Errorf("query documents: nil plan")
	}

	rows, err := s.db.QueryContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	n := len(plan.Selector.SelectFields())
	var results []T
	for rows.Next() {
		values := make([]any, n)
		dest := make([]any, n)
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(results), err)
		}

		v, err := plan.Selector.Resolve(values)
		if err != nil {
			return nil, fmt.Errorf("resolve row %d: %w", len(results), err)
		}
		results = append(results, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	// Return empty slice instead of nil
	if results == nil {
		results = []T{}
	}

	slog.Debug("query executed", "rows", len(results), "selector", plan.Kind.String())
	return results, nil
}
