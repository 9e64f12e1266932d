// Package directory resolves recipient users by id.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notification-dispatcher/internal/models"

	"github.com/lib/pq"
)

var ErrUserNotFound = errors.New("user not found")

type Directory interface {
	Get(ctx context.Context, userID string) (*models.User, error)
}

// PostgresDirectory reads users(id, email, name).
type PostgresDirectory struct {
	db    *sql.DB
	table string
}

func NewPostgresDirectory(db *sql.DB, table string) *PostgresDirectory {
	if table == "" {
		table = "users"
	}
	return &PostgresDirectory{db: db, table: pq.QuoteIdentifier(table)}
}

func (d *PostgresDirectory) Get(ctx context.Context, userID string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT id, COALESCE(email, ''), COALESCE(name, '') FROM %s WHERE id = $1`, d.table)

	var u models.User
	err := d.db.QueryRowContext(ctx, query, userID).Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
