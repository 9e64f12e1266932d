// Package render turns a notification decision into email content.
package render

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"notification-dispatcher/internal/models"
)

// Content is a rendered email.
type Content struct {
	Subject string
	HTML    string
	Text    string
}

// Renderer produces content for one notification.
type Renderer interface {
	Render(data *Data) (*Content, error)
}

// Data is everything a template may reference.
type Data struct {
	Kind             models.Kind
	NotificationType string
	RecordID         string
	DisplayName      string
	Link             string

	// application
	Status          models.Status
	ReferenceNumber string
	AdminNote       string
	NeedsActionNote string
	RejectionReason string

	// pay stub
	NetPay      string
	PayPeriodID string
	GeneratedAt string
}

// NewData builds template data from the authoritative record. directoryName
// is the recipient's name from the user directory, possibly empty.
func NewData(kind models.Kind, r *models.Record, notificationType, directoryName, baseURL string) *Data {
	d := &Data{
		Kind:             kind,
		NotificationType: notificationType,
		RecordID:         r.ID,
		DisplayName:      DisplayName(r, directoryName),
		Link:             DeepLink(baseURL, kind, r.ID),
	}

	switch kind {
	case models.KindApplication:
		d.Status = models.NormalizeStatus(r.String(models.FieldStatus))
		d.ReferenceNumber = strings.TrimSpace(r.String(models.FieldReferenceNumber))
		d.AdminNote = strings.TrimSpace(r.String(models.FieldAdminNotes))
		d.NeedsActionNote = strings.TrimSpace(r.String(models.FieldNeedsActionNote))
		d.RejectionReason = strings.TrimSpace(r.String(models.FieldRejectionReason))
	case models.KindPayStub:
		d.NetPay = r.String(models.FieldNetPay)
		d.PayPeriodID = r.String(models.FieldPayPeriodID)
		d.GeneratedAt = r.String(models.FieldGeneratedAt)
	}
	return d
}

// DisplayName picks the greeting name: applicantName, then first and last
// name, then the directory name, then "there".
func DisplayName(r *models.Record, directoryName string) string {
	if name := r.Text(models.FieldApplicantName); name != nil {
		return *name
	}
	full := strings.TrimSpace(strings.TrimSpace(r.String(models.FieldFirstName)) + " " + strings.TrimSpace(r.String(models.FieldLastName)))
	if full != "" {
		return full
	}
	if name := models.NormalizeText(directoryName); name != nil {
		return *name
	}
	return "there"
}

// DeepLink points at the record in the portal. Empty without a base URL.
func DeepLink(baseURL string, kind models.Kind, id string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" || id == "" {
		return ""
	}
	switch kind {
	case models.KindApplication:
		return fmt.Sprintf("%s/applications/%s", base, id)
	case models.KindPayStub:
		return fmt.Sprintf("%s/pay-stubs/%s", base, id)
	}
	return ""
}

// TemplateRenderer renders the built-in email templates.
type TemplateRenderer struct {
	subjects *texttemplate.Template
	texts    *texttemplate.Template
	htmls    *htmltemplate.Template
}

var funcs = map[string]interface{}{
	"statusPhrase": statusPhrase,
}

func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{
		subjects: texttemplate.Must(texttemplate.New("subjects").Funcs(funcs).Parse(subjectTemplates)),
		texts:    texttemplate.Must(texttemplate.New("texts").Funcs(funcs).Parse(textTemplates)),
		htmls:    htmltemplate.Must(htmltemplate.New("htmls").Funcs(funcs).Parse(htmlTemplates)),
	}
}

func (t *TemplateRenderer) Render(data *Data) (*Content, error) {
	if data == nil {
		return nil, fmt.Errorf("render: nil data")
	}
	name := string(data.Kind)
	if t.subjects.Lookup(name) == nil {
		return nil, fmt.Errorf("render: no template for kind %q", data.Kind)
	}

	var subject, text, html bytes.Buffer
	if err := t.subjects.ExecuteTemplate(&subject, name, data); err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	if err := t.texts.ExecuteTemplate(&text, name, data); err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}
	if err := t.htmls.ExecuteTemplate(&html, name, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}

	return &Content{
		Subject: strings.TrimSpace(subject.String()),
		Text:    strings.TrimSpace(text.String()) + "\n",
		HTML:    html.String(),
	}, nil
}

func statusPhrase(s models.Status) string {
	switch s {
	case models.StatusInReview:
		return "is now under review"
	case models.StatusApproved:
		return "has been approved"
	case models.StatusRejected:
		return "was not approved"
	case models.StatusNeedsAction:
		return "needs your attention"
	}
	return "has a new update"
}
