package server

import (
	"net/http"

	"notification-dispatcher/internal/models"
	"notification-dispatcher/internal/notification/orchestrator"
)

// Response is the webhook reply body.
type Response struct {
	OK               bool        `json:"ok"`
	Ignored          string      `json:"ignored,omitempty"`
	Sent             bool        `json:"sent,omitempty"`
	DryRun           bool        `json:"dryRun,omitempty"`
	Type             models.Kind `json:"type,omitempty"`
	NotificationType string      `json:"notificationType,omitempty"`
	Error            string      `json:"error,omitempty"`
}

// ResponseFromOutcome maps an outcome onto the HTTP status and body. Every
// ignore is a success; only operational errors are reported as 500.
func ResponseFromOutcome(o *orchestrator.Outcome, err error) (int, Response) {
	if o == nil {
		msg := "internal_error"
		if err != nil {
			msg = err.Error()
		}
		return http.StatusInternalServerError, Response{OK: false, Error: msg}
	}

	resp := Response{
		OK:               true,
		Type:             o.Kind,
		NotificationType: o.NotificationType,
	}
	switch o.Status {
	case orchestrator.StatusIgnored:
		resp.Ignored = o.Reason
	case orchestrator.StatusSent:
		resp.Sent = true
	case orchestrator.StatusDryRun:
		resp.DryRun = true
	case orchestrator.StatusError:
		resp.OK = false
		resp.Error = o.Reason
		return http.StatusInternalServerError, resp
	}
	return http.StatusOK, resp
}
