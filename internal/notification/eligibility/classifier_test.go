package eligibility

import (
	"testing"

	"notification-dispatcher/internal/models"

	"github.com/stretchr/testify/assert"
)

func record(fields map[string]interface{}) *models.Record {
	return &models.Record{ID: "app-1", Fields: fields}
}

func TestIsNotifyWorthy_Application(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]interface{}
		expected bool
	}{
		{"in review", map[string]interface{}{"status": "in_review"}, true},
		{"pending alias", map[string]interface{}{"status": "pending"}, true},
		{"approved", map[string]interface{}{"status": "Approved"}, true},
		{"rejected", map[string]interface{}{"status": "rejected"}, true},
		{"action required alias", map[string]interface{}{"status": "action_required"}, true},
		{"draft without notes", map[string]interface{}{"status": "draft"}, false},
		{"submitted without notes", map[string]interface{}{"status": "submitted"}, false},
		{"empty status", map[string]interface{}{}, false},
		{"blank notes only", map[string]interface{}{"status": "draft", "adminNotes": "   "}, false},
		{"draft with admin note", map[string]interface{}{"status": "draft", "adminNotes": "see me"}, true},
		{"submitted with needs action note", map[string]interface{}{"status": "new", "needsActionNote": "upload"}, true},
		{"draft with rejection reason", map[string]interface{}{"status": "draft", "rejectionReason": "dup"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotifyWorthy(models.KindApplication, record(tt.fields)))
		})
	}
}

func TestIsNotifyWorthy_PayStubAlways(t *testing.T) {
	assert.True(t, IsNotifyWorthy(models.KindPayStub, record(nil)))
	assert.False(t, IsNotifyWorthy(models.Kind("invoice"), record(nil)))
}

func TestNotificationType_Application(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]interface{}
		expected string
	}{
		{"status only", map[string]interface{}{"status": "in_review"}, "status:in_review"},
		{"alias normalized", map[string]interface{}{"status": "pending"}, "status:in_review"},
		{
			"status and rejection reason",
			map[string]interface{}{"status": "rejected", "rejectionReason": "incomplete"},
			"status:rejected+rejection_reason",
		},
		{
			"all signals in fixed order",
			map[string]interface{}{
				"rejectionReason": "r",
				"needsActionNote": "n",
				"adminNotes":      "a",
				"status":          "needs_action",
			},
			"status:needs_action+admin_note+needs_action_note+rejection_reason",
		},
		{"note without notifiable status", map[string]interface{}{"status": "draft", "adminNotes": "hi"}, "admin_note"},
		{"nothing present", map[string]interface{}{"status": "draft"}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NotificationType(models.KindApplication, record(tt.fields)))
		})
	}
}

func TestNotificationType_PayStub(t *testing.T) {
	assert.Equal(t, "pay_stub", NotificationType(models.KindPayStub, record(map[string]interface{}{"status": "approved"})))
}
