package render

import (
	"testing"

	"notification-dispatcher/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(fields map[string]interface{}) *models.Record {
	return &models.Record{ID: "rec-1", Collection: "applications", Fields: fields}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name      string
		fields    map[string]interface{}
		directory string
		want      string
	}{
		{"applicant name wins", map[string]interface{}{"applicantName": " Jane Doe ", "firstName": "J"}, "Dir", "Jane Doe"},
		{"first and last", map[string]interface{}{"firstName": "Jane", "lastName": "Doe"}, "Dir", "Jane Doe"},
		{"first only", map[string]interface{}{"firstName": "Jane"}, "Dir", "Jane"},
		{"directory name", map[string]interface{}{"applicantName": "  "}, "Dir Name", "Dir Name"},
		{"fallback", map[string]interface{}{}, "", "there"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(record(tt.fields), tt.directory))
		})
	}
}

func TestDeepLink(t *testing.T) {
	assert.Equal(t, "https://portal.example.com/applications/a1", DeepLink("https://portal.example.com/", models.KindApplication, "a1"))
	assert.Equal(t, "https://portal.example.com/pay-stubs/p1", DeepLink("https://portal.example.com", models.KindPayStub, "p1"))
	assert.Empty(t, DeepLink("", models.KindApplication, "a1"))
	assert.Empty(t, DeepLink("https://portal.example.com", models.KindApplication, ""))
}

func TestTemplateRenderer_Application(t *testing.T) {
	r := record(map[string]interface{}{
		"status":          "needs_action",
		"needsActionNote": "Upload your ID <scan>",
		"referenceNumber": "REF-42",
		"applicantName":   "Jane",
	})
	data := NewData(models.KindApplication, r, "status:needs_action+needs_action_note", "", "https://portal.example.com")

	content, err := NewTemplateRenderer().Render(data)
	require.NoError(t, err)

	assert.Equal(t, "Your application needs your attention (REF-42)", content.Subject)
	assert.Contains(t, content.Text, "Hi Jane,")
	assert.Contains(t, content.Text, "Action needed: Upload your ID <scan>")
	assert.Contains(t, content.Text, "https://portal.example.com/applications/rec-1")
	assert.Contains(t, content.HTML, "Upload your ID &lt;scan&gt;")
	assert.Contains(t, content.HTML, `href="https://portal.example.com/applications/rec-1"`)
}

func TestTemplateRenderer_NotesOnlyApplication(t *testing.T) {
	r := record(map[string]interface{}{"status": "draft", "adminNotes": "Please check your inbox"})
	content, err := NewTemplateRenderer().Render(NewData(models.KindApplication, r, "admin_note", "", ""))
	require.NoError(t, err)

	assert.Equal(t, "Your application has a new update", content.Subject)
	assert.Contains(t, content.Text, "Note from our team: Please check your inbox")
	assert.NotContains(t, content.HTML, "href=")
}

func TestTemplateRenderer_PayStub(t *testing.T) {
	r := &models.Record{ID: "ps-1", Fields: map[string]interface{}{"netPay": 1234.5, "payPeriodId": "2024-05"}}
	content, err := NewTemplateRenderer().Render(NewData(models.KindPayStub, r, "pay_stub", "Jane", "https://portal.example.com"))
	require.NoError(t, err)

	assert.Equal(t, "Your new pay stub is available", content.Subject)
	assert.Contains(t, content.Text, "Hi Jane,")
	assert.Contains(t, content.Text, "Net pay: 1234.5.")
	assert.Contains(t, content.Text, "https://portal.example.com/pay-stubs/ps-1")
}

func TestTemplateRenderer_UnknownKind(t *testing.T) {
	_, err := NewTemplateRenderer().Render(&Data{Kind: "invoice"})
	assert.Error(t, err)

	_, err = NewTemplateRenderer().Render(nil)
	assert.Error(t, err)
}
