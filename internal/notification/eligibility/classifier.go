// Package eligibility decides whether a record state warrants a
// notification and labels what kind of notification it is.
package eligibility

import (
	"strings"

	"notification-dispatcher/internal/models"
)

// Label parts, joined in this order.
const (
	LabelAdminNote       = "admin_note"
	LabelNeedsActionNote = "needs_action_note"
	LabelRejectionReason = "rejection_reason"
	LabelStatusFallback  = "status"
	LabelPayStub         = "pay_stub"

	labelSeparator = "+"
)

var noteLabels = []struct {
	field string
	label string
}{
	{models.FieldAdminNotes, LabelAdminNote},
	{models.FieldNeedsActionNote, LabelNeedsActionNote},
	{models.FieldRejectionReason, LabelRejectionReason},
}

// IsNotifyWorthy reports whether the record's current state should produce
// a notification. Pay stubs are always worthy; the feature flag is the
// caller's concern.
func IsNotifyWorthy(kind models.Kind, r *models.Record) bool {
	switch kind {
	case models.KindApplication:
		if models.NormalizeStatus(r.String(models.FieldStatus)).Notifiable() {
			return true
		}
		for _, n := range noteLabels {
			if r.Text(n.field) != nil {
				return true
			}
		}
		return false
	case models.KindPayStub:
		return true
	default:
		return false
	}
}

// NotificationType builds the semantic label persisted as lastNotifiedType,
// e.g. "status:rejected+rejection_reason".
func NotificationType(kind models.Kind, r *models.Record) string {
	if kind == models.KindPayStub {
		return LabelPayStub
	}

	var parts []string
	if status := models.NormalizeStatus(r.String(models.FieldStatus)); status.Notifiable() {
		parts = append(parts, "status:"+string(status))
	}
	for _, n := range noteLabels {
		if r.Text(n.field) != nil {
			parts = append(parts, n.label)
		}
	}
	if len(parts) == 0 {
		return LabelStatusFallback
	}
	return strings.Join(parts, labelSeparator)
}
