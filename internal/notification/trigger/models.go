// internal/notification/trigger/models.go
package trigger

import (
	"errors"

	"notification-dispatcher/internal/models"
)

// EventKind is the coarse operation behind a trigger.
type EventKind string

const (
	KindCreate EventKind = "create"
	KindUpdate EventKind = "update"
	KindDelete EventKind = "delete"
	KindOther  EventKind = "other"
)

// Envelope tags how the record arrived in the request body.
type Envelope int

const (
	// EnvelopeRaw: the body is the changed record itself.
	EnvelopeRaw Envelope = iota
	// EnvelopeWrapped: the record sits under a "payload" key, either as an
	// object or as a JSON-encoded string.
	EnvelopeWrapped
)

func (e Envelope) String() string {
	if e == EnvelopeWrapped {
		return "wrapped"
	}
	return "raw"
}

// Event is a trigger resolved at the boundary. Downstream code never looks
// at the envelope again.
type Event struct {
	Name     string
	Kind     EventKind
	Envelope Envelope
	Record   *models.Record
}

var (
	ErrNoPayload       = errors.New("no payload")
	ErrMissingDocument = errors.New("missing document")
)

// DefaultEventHeaders are checked in order for the event name.
var DefaultEventHeaders = []string{"X-Appwrite-Event", "X-Event-Name", "X-Event"}
