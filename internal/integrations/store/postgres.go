package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notification-dispatcher/internal/models"

	"github.com/lib/pq"
)

// PostgresStore keeps documents as jsonb rows keyed by database,
// collection and id.
type PostgresStore struct {
	db    *sql.DB
	table string
}

func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	if table == "" {
		table = "documents"
	}
	return &PostgresStore{db: db, table: pq.QuoteIdentifier(table)}
}

func (s *PostgresStore) Get(ctx context.Context, database, collection, id string) (*models.Record, error) {
	query := fmt.Sprintf(
		`SELECT data, created_at, updated_at FROM %s WHERE database_id = $1 AND collection_id = $2 AND id = $3`,
		s.table,
	)

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, database, collection, id))
	if err != nil {
		return nil, err
	}
	return fillIdentity(rec, database, collection, id), nil
}

func (s *PostgresStore) Update(ctx context.Context, database, collection, id string, fields map[string]interface{}, pre *Precondition) (*models.Record, error) {
	patch, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal update: %w", err)
	}

	query := fmt.Sprintf(
		`UPDATE %s SET data = data || $4::jsonb, updated_at = NOW() WHERE database_id = $1 AND collection_id = $2 AND id = $3`,
		s.table,
	)
	args := []interface{}{database, collection, id, string(patch)}
	if pre != nil {
		query += ` AND COALESCE(data->>$5, '') = $6`
		args = append(args, pre.Field, pre.Value)
	}
	query += ` RETURNING data, created_at, updated_at`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, ErrNotFound) && pre != nil {
		// zero rows: either the row is gone or the guard rejected it
		if _, getErr := s.Get(ctx, database, collection, id); getErr == nil {
			return nil, ErrConflict
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fillIdentity(rec, database, collection, id), nil
}

func scanRecord(row *sql.Row) (*models.Record, error) {
	var (
		data      []byte
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	if err := row.Scan(&data, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query document: %w", err)
	}

	doc := map[string]interface{}{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	rec := models.RecordFromMap(doc)
	if createdAt.Valid {
		rec.CreatedAt = createdAt.Time.UTC().Format(time.RFC3339Nano)
	}
	if updatedAt.Valid {
		rec.UpdatedAt = updatedAt.Time.UTC().Format(time.RFC3339Nano)
	}
	return rec, nil
}
