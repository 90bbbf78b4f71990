package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/docsql/internal/schema"
)

// Upsert stores doc under id in the table of mapping, replacing any
// existing document with the same id. A nil id is replaced by a new random
// one. Returns the id the document was stored under.
func (s *Store) Upsert(ctx context.Context, mapping *schema.DocumentMapping, id uuid.UUID, doc any) (uuid.UUID, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert %s: marshal document: %w", mapping.Name, err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, data)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data
	`, mapping.Table()), id, string(data))
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert %s: %w", mapping.Name, err)
	}

	return id, nil
}

// Delete removes the document stored under id. Deleting a missing
// document is not an error.
func (s *Store) Delete(ctx context.Context, mapping *schema.DocumentMapping, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", mapping.Table()), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", mapping.Name, err)
	}
	return nil
}
