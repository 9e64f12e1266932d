package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"notification-dispatcher/internal/models"
	"notification-dispatcher/internal/notification/orchestrator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockProcessor struct {
	HandleFunc func(ctx context.Context, headers http.Header, body []byte) (*orchestrator.Outcome, error)
	calls      int
}

func (m *MockProcessor) Handle(ctx context.Context, headers http.Header, body []byte) (*orchestrator.Outcome, error) {
	m.calls++
	return m.HandleFunc(ctx, headers, body)
}

func returning(o *orchestrator.Outcome, err error) *MockProcessor {
	return &MockProcessor{
		HandleFunc: func(context.Context, http.Header, []byte) (*orchestrator.Outcome, error) { return o, err },
	}
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestWebhook_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		outcome    *orchestrator.Outcome
		err        error
		wantStatus int
		want       Response
	}{
		{
			name:       "sent",
			outcome:    &orchestrator.Outcome{Status: orchestrator.StatusSent, Kind: models.KindApplication, NotificationType: "application_approved"},
			wantStatus: http.StatusOK,
			want:       Response{OK: true, Sent: true, Type: models.KindApplication, NotificationType: "application_approved"},
		},
		{
			name:       "ignored",
			outcome:    &orchestrator.Outcome{Status: orchestrator.StatusIgnored, Reason: orchestrator.ReasonDuplicate, Kind: models.KindPayStub},
			wantStatus: http.StatusOK,
			want:       Response{OK: true, Ignored: "duplicate", Type: models.KindPayStub},
		},
		{
			name:       "dry run",
			outcome:    &orchestrator.Outcome{Status: orchestrator.StatusDryRun, Kind: models.KindPayStub, NotificationType: "pay_stub_available"},
			wantStatus: http.StatusOK,
			want:       Response{OK: true, DryRun: true, Type: models.KindPayStub, NotificationType: "pay_stub_available"},
		},
		{
			name:       "operational error",
			outcome:    &orchestrator.Outcome{Status: orchestrator.StatusError, Reason: orchestrator.ReasonSendFailed, Kind: models.KindApplication},
			err:        errors.New("ses down"),
			wantStatus: http.StatusInternalServerError,
			want:       Response{OK: false, Error: "send_failed", Type: models.KindApplication},
		},
		{
			name:       "no outcome",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			want:       Response{OK: false, Error: "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{Processor: returning(tt.outcome, tt.err)})
			rec, resp := do(t, s.Handler(), http.MethodPost, "/webhook", `{"payload":{}}`, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.want, resp)
		})
	}
}

func TestWebhook_PassesHeadersAndBody(t *testing.T) {
	var gotEvent string
	var gotBody string
	p := &MockProcessor{HandleFunc: func(_ context.Context, h http.Header, body []byte) (*orchestrator.Outcome, error) {
		gotEvent = h.Get("X-Appwrite-Webhook-Events")
		gotBody = string(body)
		return &orchestrator.Outcome{Status: orchestrator.StatusIgnored, Reason: orchestrator.ReasonNoPayload}, nil
	}}
	s := New(Options{Processor: p})

	rec, _ := do(t, s.Handler(), http.MethodPost, "/", `{"a":1}`, map[string]string{
		"X-Appwrite-Webhook-Events": "databases.db.collections.apps.documents.1.update",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "databases.db.collections.apps.documents.1.update", gotEvent)
	assert.Equal(t, `{"a":1}`, gotBody)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestWebhook_CustomPath(t *testing.T) {
	p := returning(&orchestrator.Outcome{Status: orchestrator.StatusIgnored, Reason: orchestrator.ReasonNoPayload}, nil)
	s := New(Options{Processor: p, WebhookPath: "/hooks/records"})

	rec, _ := do(t, s.Handler(), http.MethodPost, "/hooks/records", `{}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s.Handler(), http.MethodPost, "/webhook", `{}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, p.calls)
}

func TestWebhook_Signature(t *testing.T) {
	const secret = "s3cret"
	body := `{"payload":{"$id":"1"}}`

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalls  int
	}{
		{name: "valid", header: Sign(secret, []byte(body)), wantStatus: http.StatusOK, wantCalls: 1},
		{name: "valid with prefix", header: "sha256=" + Sign(secret, []byte(body)), wantStatus: http.StatusOK, wantCalls: 1},
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: Sign("other", []byte(body)), wantStatus: http.StatusUnauthorized},
		{name: "not hex", header: "zz", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := returning(&orchestrator.Outcome{Status: orchestrator.StatusSent}, nil)
			s := New(Options{Processor: p, WebhookSecret: secret})

			headers := map[string]string{}
			if tt.header != "" {
				headers["X-Webhook-Signature"] = tt.header
			}
			rec, resp := do(t, s.Handler(), http.MethodPost, "/webhook", body, headers)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalls, p.calls)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, Response{OK: false, Error: "invalid_signature"}, resp)
			}
		})
	}
}

func TestWebhook_PayloadTooLarge(t *testing.T) {
	p := returning(&orchestrator.Outcome{Status: orchestrator.StatusSent}, nil)
	s := New(Options{Processor: p})

	rec, resp := do(t, s.Handler(), http.MethodPost, "/webhook", strings.Repeat("x", maxBodyBytes+1), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", resp.Error)
	assert.Zero(t, p.calls)
}

func TestHealthAndReady(t *testing.T) {
	s := New(Options{
		Processor: returning(nil, nil),
		Checks: map[string]Check{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		},
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"ready":false,"checks":{"postgres":"ok","redis":"connection refused"}}`, rec.Body.String())
}

func TestReady_NoChecks(t *testing.T) {
	s := New(Options{Processor: returning(nil, nil)})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(Options{Processor: returning(nil, nil)})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestShutdown_NotStarted(t *testing.T) {
	s := New(Options{Processor: returning(nil, nil)})
	assert.NoError(t, s.Shutdown(context.Background()))
}
