// Package trigger turns a heterogeneous webhook request into an Event.
package trigger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"notification-dispatcher/internal/models"
)

type Normalizer struct {
	eventHeaders []string
}

func NewNormalizer(eventHeaders []string) *Normalizer {
	if len(eventHeaders) == 0 {
		eventHeaders = DefaultEventHeaders
	}
	return &Normalizer{eventHeaders: eventHeaders}
}

// Normalize has no side effects. headers may be nil.
func (n *Normalizer) Normalize(headers http.Header, body []byte) (*Event, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrNoPayload
	}

	var outer map[string]interface{}
	if err := json.Unmarshal(body, &outer); err != nil || outer == nil {
		return nil, ErrNoPayload
	}

	doc, envelope, err := unwrap(outer)
	if err != nil {
		return nil, err
	}

	if err := validateDocument(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingDocument, err)
	}

	record := models.RecordFromMap(doc)
	name := n.eventName(headers, outer, doc)

	return &Event{
		Name:     name,
		Kind:     ResolveKind(name, record.CreatedAt, record.UpdatedAt),
		Envelope: envelope,
		Record:   record,
	}, nil
}

// unwrap resolves the envelope union. A body carrying its own id is a raw
// record even if one of its fields happens to be called "payload".
func unwrap(outer map[string]interface{}) (map[string]interface{}, Envelope, error) {
	payload, wrapped := outer["payload"]
	if !wrapped || hasID(outer) {
		return outer, EnvelopeRaw, nil
	}

	switch p := payload.(type) {
	case map[string]interface{}:
		return p, EnvelopeWrapped, nil
	case string:
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(p), &doc); err != nil || doc == nil {
			return nil, EnvelopeWrapped, ErrNoPayload
		}
		return doc, EnvelopeWrapped, nil
	default:
		return nil, EnvelopeWrapped, ErrNoPayload
	}
}

func hasID(doc map[string]interface{}) bool {
	_, a := doc["$id"]
	_, b := doc["id"]
	return a || b
}

func (n *Normalizer) eventName(headers http.Header, outer, doc map[string]interface{}) string {
	for _, h := range n.eventHeaders {
		for _, v := range headers.Values(h) {
			if name := firstOf(v); name != "" {
				return name
			}
		}
	}
	if name := bodyEventName(outer); name != "" {
		return name
	}
	return bodyEventName(doc)
}

func bodyEventName(doc map[string]interface{}) string {
	if s, ok := doc["event"].(string); ok {
		if name := firstOf(s); name != "" {
			return name
		}
	}
	if list, ok := doc["events"].([]interface{}); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				if name := firstOf(s); name != "" {
					return name
				}
			}
		}
	}
	return ""
}

// firstOf returns the first non-empty entry of a comma-joined list.
func firstOf(v string) string {
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			return p
		}
	}
	return ""
}

// ResolveKind uses the last dot-separated segment of the event name, and
// falls back to comparing timestamps when there is no name.
func ResolveKind(name, createdAt, updatedAt string) EventKind {
	if name != "" {
		segment := name
		if i := strings.LastIndex(name, "."); i >= 0 {
			segment = name[i+1:]
		}
		switch strings.ToLower(strings.TrimSpace(segment)) {
		case "create":
			return KindCreate
		case "update":
			return KindUpdate
		case "delete":
			return KindDelete
		default:
			return KindOther
		}
	}

	if createdAt == "" || updatedAt == "" {
		return KindOther
	}
	if createdAt == updatedAt {
		return KindCreate
	}
	return KindUpdate
}
