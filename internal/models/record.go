// internal/models/record.go
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a record and drives which fields and rules apply.
type Kind string

const (
	KindApplication Kind = "application"
	KindPayStub     Kind = "pay_stub"
)

// Record is a document under notification consideration.
type Record struct {
	ID         string                 `json:"$id"`
	Collection string                 `json:"$collectionId"`
	Database   string                 `json:"$databaseId"`
	CreatedAt  string                 `json:"$createdAt,omitempty"`
	UpdatedAt  string                 `json:"$updatedAt,omitempty"`
	Fields     map[string]interface{} `json:"-"`
}

// Value returns the raw field value, nil when absent.
func (r *Record) Value(name string) interface{} {
	if r == nil || r.Fields == nil {
		return nil
	}
	return r.Fields[name]
}

// String renders a scalar field as a string. Absent and null fields are "".
func (r *Record) String(name string) string {
	switch v := r.Value(name).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Text returns the trimmed field value, or nil if it is empty after trimming.
func (r *Record) Text(name string) *string {
	return NormalizeText(r.String(name))
}

// NormalizeText trims s and maps the empty result to nil.
func NormalizeText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Clone returns a copy whose field map can be mutated independently.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Fields = make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return &c
}

// State extracts the persisted notification state.
func (r *Record) State() NotificationState {
	return NotificationState{
		LastNotifiedAt:   r.String(FieldLastNotifiedAt),
		LastNotifiedHash: r.String(FieldLastNotifiedHash),
		LastNotifiedType: r.String(FieldLastNotifiedType),
	}
}

// Metadata key aliases, "$"-prefixed first.
var (
	idKeys         = []string{"$id", "id"}
	collectionKeys = []string{"$collectionId", "collectionId"}
	databaseKeys   = []string{"$databaseId", "databaseId"}
	createdAtKeys  = []string{"$createdAt", "createdAt"}
	updatedAtKeys  = []string{"$updatedAt", "updatedAt"}
)

// RecordFromMap splits a decoded document into metadata and fields.
// "$"-prefixed keys never land in Fields.
func RecordFromMap(doc map[string]interface{}) *Record {
	r := &Record{
		ID:         firstString(doc, idKeys),
		Collection: firstString(doc, collectionKeys),
		Database:   firstString(doc, databaseKeys),
		CreatedAt:  firstString(doc, createdAtKeys),
		UpdatedAt:  firstString(doc, updatedAtKeys),
		Fields:     make(map[string]interface{}, len(doc)),
	}
	for k, v := range doc {
		if strings.HasPrefix(k, "$") {
			continue
		}
		r.Fields[k] = v
	}
	return r
}

func firstString(doc map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if s, ok := doc[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
