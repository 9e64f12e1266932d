// Package server exposes the dispatcher over HTTP.
package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/notification/orchestrator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// Processor handles one raw trigger.
type Processor interface {
	Handle(ctx context.Context, headers http.Header, body []byte) (*orchestrator.Outcome, error)
}

// Check is a readiness probe for one dependency.
type Check func(ctx context.Context) error

type Options struct {
	Processor       Processor
	WebhookPath     string
	WebhookSecret   string
	SignatureHeader string
	Checks          map[string]Check
	Logger          logger.Logger
}

type Server struct {
	opts   Options
	log    logger.Logger
	engine *gin.Engine
	http   *http.Server
}

func New(opts Options) *Server {
	if opts.WebhookPath == "" {
		opts.WebhookPath = "/webhook"
	}
	if opts.SignatureHeader == "" {
		opts.SignatureHeader = "X-Webhook-Signature"
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	s := &Server{opts: opts, log: log.WithFields(map[string]interface{}{"component": "server"})}
	s.engine = s.routes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST(s.opts.WebhookPath, s.webhook)
	if s.opts.WebhookPath != "/" {
		r.POST("/", s.webhook)
	}
	return r
}

func (s *Server) webhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, Response{OK: false, Error: "payload_too_large"})
			return
		}
		// unreadable bodies are treated as empty
		body = nil
	}

	if s.opts.WebhookSecret != "" && !validSignature(s.opts.WebhookSecret, body, c.GetHeader(s.opts.SignatureHeader)) {
		s.log.Warn("rejected webhook with invalid signature", map[string]interface{}{
			"requestId": c.GetString("requestId"),
		})
		c.JSON(http.StatusUnauthorized, Response{OK: false, Error: "invalid_signature"})
		return
	}

	outcome, err := s.opts.Processor.Handle(c.Request.Context(), c.Request.Header, body)
	status, resp := ResponseFromOutcome(outcome, err)
	c.JSON(status, resp)
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	results := gin.H{}
	healthy := true
	for name, check := range s.opts.Checks {
		if err := check(ctx); err != nil {
			healthy = false
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": healthy, "checks": results})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestId", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		if c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/health" {
			return
		}
		s.log.Info("request completed", map[string]interface{}{
			"requestId":  requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
		})
	}
}

// validSignature checks hex(HMAC-SHA256(secret, body)), tolerating a
// "sha256=" prefix.
func validSignature(secret string, body []byte, header string) bool {
	got := strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	if got == "" {
		return false
	}
	sig, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Start serves until ListenAndServe fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("http server listening", map[string]interface{}{"address": addr})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
