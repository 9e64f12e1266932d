// Package store reads and conditionally updates documents in the backend
// database the change events originate from.
package store

import (
	"context"
	"errors"
	"strings"

	"notification-dispatcher/internal/models"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document precondition failed")
)

// Precondition guards an update: the stored Field must currently render as
// Value, with an absent or null field rendering as "".
type Precondition struct {
	Field string
	Value string
}

// Store is the document store as the dispatcher sees it.
type Store interface {
	Get(ctx context.Context, database, collection, id string) (*models.Record, error)
	Update(ctx context.Context, database, collection, id string, fields map[string]interface{}, pre *Precondition) (*models.Record, error)
}

// IndexName maps a database and collection onto a single index or key
// namespace.
func IndexName(database, collection string) string {
	return strings.ToLower(database + "_" + collection)
}

// fillIdentity backfills metadata a backend does not store inside the
// document body.
func fillIdentity(r *models.Record, database, collection, id string) *models.Record {
	if r.ID == "" {
		r.ID = id
	}
	if r.Collection == "" {
		r.Collection = collection
	}
	if r.Database == "" {
		r.Database = database
	}
	return r
}
