// internal/models/status.go
package models

import "strings"

// Status is the canonical application status.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusInReview    Status = "in_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusNeedsAction Status = "needs_action"
)

// statusAliases maps lower-cased free text onto the canonical enumeration.
// The empty string is deliberately mapped to submitted.
var statusAliases = map[string]Status{
	"":                StatusSubmitted,
	"new":             StatusSubmitted,
	"pending":         StatusInReview,
	"in-review":       StatusInReview,
	"action_required": StatusNeedsAction,

	"draft":        StatusDraft,
	"submitted":    StatusSubmitted,
	"in_review":    StatusInReview,
	"approved":     StatusApproved,
	"rejected":     StatusRejected,
	"needs_action": StatusNeedsAction,
}

// NormalizeStatus maps free text onto Status. Unknown values become draft,
// which is never notifiable.
func NormalizeStatus(raw string) Status {
	if s, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusDraft
}

// Notifiable reports whether the status alone warrants a notification.
func (s Status) Notifiable() bool {
	switch s {
	case StatusInReview, StatusApproved, StatusRejected, StatusNeedsAction:
		return true
	}
	return false
}
