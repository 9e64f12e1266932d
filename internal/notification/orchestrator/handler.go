// Package orchestrator decides, for one change event, whether and how a
// notification goes out, and records the decision on the document.
package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/metrics"
	"notification-dispatcher/internal/common/observability"
	"notification-dispatcher/internal/integrations/audit"
	"notification-dispatcher/internal/integrations/directory"
	"notification-dispatcher/internal/integrations/guard"
	"notification-dispatcher/internal/integrations/sender"
	"notification-dispatcher/internal/integrations/store"
	"notification-dispatcher/internal/models"
	"notification-dispatcher/internal/notification/eligibility"
	"notification-dispatcher/internal/notification/fingerprint"
	"notification-dispatcher/internal/notification/render"
	"notification-dispatcher/internal/notification/throttle"
	"notification-dispatcher/internal/notification/trigger"
)

const component = "orchestrator"

// postSendTimeout bounds persistence and audit once a message is accepted.
const postSendTimeout = 10 * time.Second

type Handler struct {
	config     *Config
	logger     logger.Logger
	normalizer *trigger.Normalizer
	store      store.Store
	directory  directory.Directory
	sender     sender.Sender
	renderer   render.Renderer
	guard      guard.Guard
	audit      audit.Publisher
	obs        *observability.Observability
	now        func() time.Time
}

// HandlerOptions carries the collaborators. Guard, Audit and Observability
// are optional; Sender and Directory may be nil only in dry-run mode.
type HandlerOptions struct {
	Config        *Config
	Store         store.Store
	Directory     directory.Directory
	Sender        sender.Sender
	Renderer      render.Renderer
	Guard         guard.Guard
	Audit         audit.Publisher
	Observability *observability.Observability
	Logger        logger.Logger
	Clock         func() time.Time
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if opts.Store == nil {
		return nil, errors.NewInvalidConfigurationError("document store is required")
	}
	if !cfg.DryRun && (opts.Sender == nil || opts.Directory == nil) {
		return nil, errors.NewInvalidConfigurationError("sender and directory are required unless dry run is enabled")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.NewTemplateRenderer()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	headers := cfg.EventHeaders
	if len(headers) == 0 {
		headers = trigger.DefaultEventHeaders
	}

	return &Handler{
		config:     cfg,
		logger:     log.WithFields(map[string]interface{}{"component": component}),
		normalizer: trigger.NewNormalizer(headers),
		store:      opts.Store,
		directory:  opts.Directory,
		sender:     opts.Sender,
		renderer:   renderer,
		guard:      opts.Guard,
		audit:      opts.Audit,
		obs:        opts.Observability,
		now:        func() time.Time { return clock().UTC() },
	}, nil
}

// invocation carries what one event has resolved so far.
type invocation struct {
	log              logger.Logger
	event            *trigger.Event
	database         string
	collection       string
	kind             models.Kind
	record           *models.Record
	notificationType string
	fingerprint      string
	previousHash     string
	userID           string
	employee         *models.Employee
	email            string
}

// Handle normalizes a raw trigger request and processes it.
func (h *Handler) Handle(ctx context.Context, headers http.Header, body []byte) (*Outcome, error) {
	start := time.Now()
	metrics.EventsActive.Inc()
	defer metrics.EventsActive.Dec()

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	ctx, span := h.obs.StartSpan(ctx, "dispatcher.handle")
	defer span.End()

	event, err := h.normalizer.Normalize(headers, body)
	if err != nil {
		reason := ReasonNoPayload
		if stderrors.Is(err, trigger.ErrMissingDocument) {
			reason = ReasonMissingDocument
		}
		inv := &invocation{log: h.logger}
		outcome := h.ignore(inv, reason)
		h.report(ctx, inv, outcome, nil, start)
		return outcome, nil
	}

	return h.run(ctx, event, start)
}

// Execute processes an already normalized event.
func (h *Handler) Execute(ctx context.Context, event *trigger.Event) (*Outcome, error) {
	start := time.Now()
	metrics.EventsActive.Inc()
	defer metrics.EventsActive.Dec()

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	ctx, span := h.obs.StartSpan(ctx, "dispatcher.execute")
	defer span.End()

	return h.run(ctx, event, start)
}

func (h *Handler) run(ctx context.Context, event *trigger.Event, start time.Time) (*Outcome, error) {
	if event == nil || event.Record == nil {
		inv := &invocation{log: h.logger}
		outcome := h.ignore(inv, ReasonNoPayload)
		h.report(ctx, inv, outcome, nil, start)
		return outcome, nil
	}
	metrics.EventsReceived.WithLabelValues(string(event.Kind)).Inc()

	inv := &invocation{
		event: event,
		log: h.logger.WithFields(map[string]interface{}{
			"recordId":  event.Record.ID,
			"eventName": event.Name,
			"eventKind": string(event.Kind),
			"envelope":  event.Envelope.String(),
		}),
	}

	outcome, err := h.execute(ctx, inv)
	h.report(ctx, inv, outcome, err, start)
	return outcome, err
}

func (h *Handler) execute(ctx context.Context, inv *invocation) (*Outcome, error) {
	rec := inv.event.Record

	// 2. identifiers
	inv.database = rec.Database
	if inv.database == "" {
		inv.database = h.config.DefaultDatabase
	}
	inv.collection = rec.Collection
	if inv.database == "" || inv.collection == "" {
		return h.ignore(inv, ReasonMissingCollectionOrDatabase), nil
	}
	inv.log = inv.log.WithFields(map[string]interface{}{
		"databaseId": inv.database,
		"collection": inv.collection,
	})

	// 3. kind
	kind, ok := h.config.KindOf(inv.collection)
	if !ok {
		return h.ignore(inv, ReasonUnrecognizedCollection), nil
	}
	inv.kind = kind
	if kind == models.KindApplication && !h.config.ApplicationsEnabled {
		return h.ignore(inv, ReasonCollectionNotSupported), nil
	}

	// 4. event kind
	if inv.event.Kind == trigger.KindDelete {
		return h.ignore(inv, ReasonDeleteEvent), nil
	}
	if kind == models.KindApplication && inv.event.Kind != trigger.KindUpdate {
		return h.ignore(inv, ReasonNonUpdateEvent), nil
	}

	// The lease spans the authoritative read through persistence, so the
	// state checked below cannot be overtaken by another sender.
	if !h.config.DryRun {
		lease, held := h.acquire(ctx, inv)
		if held {
			return h.ignore(inv, ReasonDuplicate), nil
		}
		defer h.release(ctx, inv, lease)
	}

	// 5. authoritative state
	current, err := h.fetchRecord(ctx, inv)
	if stderrors.Is(err, store.ErrNotFound) {
		return h.ignore(inv, ReasonMissingDocument), nil
	}
	if err != nil {
		if !h.config.FallbackToPayload {
			return h.fail(inv, ReasonStoreUnavailable, errors.NewStoreUnavailableError("get", err))
		}
		inv.log.Warn("store fetch failed, using payload snapshot", map[string]interface{}{
			"error":    err,
			"degraded": true,
		})
		current = rec.Clone()
		current.Database = inv.database
	}
	inv.record = current

	// 6. eligibility
	if kind == models.KindPayStub && !h.config.PayStubsEnabled {
		return h.ignore(inv, ReasonPayStubDisabled), nil
	}
	if !eligibility.IsNotifyWorthy(kind, current) {
		return h.ignore(inv, ReasonNoMeaningfulChange), nil
	}
	inv.notificationType = eligibility.NotificationType(kind, current)

	// 7. dedup
	state := current.State()
	inv.previousHash = state.LastNotifiedHash
	inv.fingerprint = fingerprint.ForRecord(kind, current)
	if state.LastNotifiedHash != "" && state.LastNotifiedHash == inv.fingerprint {
		return h.ignore(inv, ReasonDuplicate), nil
	}

	// 8. throttle
	now := h.now()
	if !throttle.MayNotify(throttle.ParseTimestamp(state.LastNotifiedAt), now, h.config.ThrottleWindow) {
		return h.ignore(inv, ReasonThrottled), nil
	}

	// 9. recipient
	if reason, err := h.resolveRecipient(ctx, inv); reason != "" {
		if err != nil {
			return h.fail(inv, reason, err)
		}
		return h.ignore(inv, reason), nil
	}

	// 10. dry run
	if h.config.DryRun {
		fallback := h.fallbackEmail(inv)
		inv.log.Info("dry run, skipping delivery", map[string]interface{}{
			"userId":           inv.userID,
			"notificationType": inv.notificationType,
			"fallbackEmail":    logger.MaskEmail(fallback),
			"deliverable":      fallback != "",
		})
		return h.outcome(inv, StatusDryRun, ""), nil
	}

	// 11. directory
	user, err := h.directory.Get(ctx, inv.userID)
	if stderrors.Is(err, directory.ErrUserNotFound) {
		return h.ignore(inv, ReasonMissingUser), nil
	}
	if err != nil {
		return h.fail(inv, ReasonDirectoryUnavailable, errors.NewDirectoryUnavailableError(err))
	}
	inv.email = strings.TrimSpace(user.Email)
	if inv.email == "" {
		return h.ignore(inv, ReasonMissingEmail), nil
	}

	// 12. render, send
	receipt, err := h.deliver(ctx, inv, user)
	if err != nil {
		metrics.OperationFailures.WithLabelValues("send", string(errors.ErrCodeNotificationSendFailed)).Inc()
		return h.fail(inv, ReasonSendFailed, errors.NewNotificationSendFailedError(inv.notificationType, err))
	}
	metrics.NotificationsSent.WithLabelValues(string(kind), inv.notificationType).Inc()

	// The mail is out; state and audit must not depend on the caller
	// staying connected.
	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postSendTimeout)
	defer cancel()

	// 13. persist
	sentAt := now.Format(time.RFC3339Nano)
	if reason, err := h.persist(postCtx, inv, sentAt); err != nil {
		return h.fail(inv, reason, err)
	}

	// 14. audit
	h.publishAudit(postCtx, inv, receipt, sentAt)

	return h.outcome(inv, StatusSent, ""), nil
}

func (h *Handler) fetchRecord(ctx context.Context, inv *invocation) (*models.Record, error) {
	ctx, span := h.obs.StartSpan(ctx, "store.get")
	defer span.End()

	rec, err := h.store.Get(ctx, inv.database, inv.collection, inv.event.Record.ID)
	if err != nil && !stderrors.Is(err, store.ErrNotFound) {
		metrics.OperationFailures.WithLabelValues("store_get", string(errors.ErrCodeStoreUnavailable)).Inc()
	}
	return rec, err
}

// resolveRecipient sets inv.userID. A non-empty reason ends the invocation;
// a non-nil error marks it operational.
func (h *Handler) resolveRecipient(ctx context.Context, inv *invocation) (string, error) {
	switch inv.kind {
	case models.KindApplication:
		userID := inv.record.Text(models.FieldUserID)
		if userID == nil {
			return ReasonMissingUserID, nil
		}
		inv.userID = *userID
		return "", nil

	case models.KindPayStub:
		employeeID := inv.record.Text(models.FieldEmployeeID)
		if employeeID == nil || h.config.EmployeesCollection == "" {
			return ReasonMissingEmployee, nil
		}
		empRecord, err := h.store.Get(ctx, inv.database, h.config.EmployeesCollection, *employeeID)
		if stderrors.Is(err, store.ErrNotFound) {
			return ReasonMissingEmployee, nil
		}
		if err != nil {
			metrics.OperationFailures.WithLabelValues("store_get", string(errors.ErrCodeStoreUnavailable)).Inc()
			return ReasonStoreUnavailable, errors.NewStoreUnavailableError("employee get", err)
		}
		inv.employee = models.EmployeeFromRecord(empRecord)
		userID := models.NormalizeText(inv.employee.UserID)
		if userID == nil {
			return ReasonMissingUserID, nil
		}
		inv.userID = *userID
		return "", nil
	}
	return ReasonUnrecognizedCollection, nil
}

func (h *Handler) fallbackEmail(inv *invocation) string {
	if email := inv.record.Text(models.FieldEmail); email != nil {
		return *email
	}
	if inv.employee != nil {
		return strings.TrimSpace(inv.employee.Email)
	}
	return ""
}

// acquire takes the in-flight lease. held is true only when another
// invocation owns it; guard failures are logged and ignored.
func (h *Handler) acquire(ctx context.Context, inv *invocation) (*guard.Lease, bool) {
	if h.guard == nil {
		return nil, false
	}
	lease, err := h.guard.Acquire(ctx, guard.Key(inv.database, inv.collection, inv.event.Record.ID))
	if stderrors.Is(err, guard.ErrHeld) {
		return nil, true
	}
	if err != nil {
		metrics.OperationFailures.WithLabelValues("guard_acquire", string(errors.ErrCodeInternal)).Inc()
		inv.log.Warn("in-flight guard unavailable, continuing", map[string]interface{}{"error": err})
		return nil, false
	}
	return lease, false
}

func (h *Handler) release(ctx context.Context, inv *invocation, lease *guard.Lease) {
	if h.guard == nil || lease == nil {
		return
	}
	if err := h.guard.Release(context.WithoutCancel(ctx), lease); err != nil {
		inv.log.Warn("failed to release in-flight guard", map[string]interface{}{"error": err})
	}
}

func (h *Handler) deliver(ctx context.Context, inv *invocation, user *models.User) (*sender.Receipt, error) {
	ctx, span := h.obs.StartSpan(ctx, "sender.send")
	defer span.End()

	data := render.NewData(inv.kind, inv.record, inv.notificationType, user.Name, h.config.BaseURL)
	content, err := h.renderer.Render(data)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	return h.sender.Send(ctx, &sender.Message{
		RecipientUserID:  inv.userID,
		RecipientEmail:   inv.email,
		Subject:          content.Subject,
		HTMLBody:         content.HTML,
		TextBody:         content.Text,
		NotificationType: inv.notificationType,
	})
}

func (h *Handler) persist(ctx context.Context, inv *invocation, sentAt string) (string, error) {
	ctx, span := h.obs.StartSpan(ctx, "store.update")
	defer span.End()

	state := models.NotificationState{
		LastNotifiedAt:   sentAt,
		LastNotifiedHash: inv.fingerprint,
		LastNotifiedType: inv.notificationType,
	}
	_, err := h.store.Update(ctx, inv.database, inv.collection, inv.record.ID, state.Fields(),
		&store.Precondition{Field: models.FieldLastNotifiedHash, Value: inv.previousHash})
	switch {
	case err == nil:
		return "", nil
	case stderrors.Is(err, store.ErrConflict):
		metrics.OperationFailures.WithLabelValues("store_update", string(errors.ErrCodeStatePersistConflict)).Inc()
		return ReasonPersistConflict, errors.NewStatePersistConflictError(err)
	default:
		metrics.OperationFailures.WithLabelValues("store_update", string(errors.ErrCodeStatePersistFailed)).Inc()
		return ReasonPersistFailed, errors.NewStatePersistFailedError(err)
	}
}

func (h *Handler) publishAudit(ctx context.Context, inv *invocation, receipt *sender.Receipt, sentAt string) {
	if h.audit == nil {
		return
	}
	event := &audit.Event{
		RecordID:         inv.record.ID,
		Database:         inv.database,
		Collection:       inv.collection,
		Kind:             string(inv.kind),
		NotificationType: inv.notificationType,
		Fingerprint:      inv.fingerprint,
		RecipientUserID:  inv.userID,
		SentAt:           sentAt,
	}
	if receipt != nil {
		event.MessageID = receipt.MessageID
		event.CorrelationID = receipt.CorrelationID
	}
	if err := h.audit.Publish(ctx, event); err != nil {
		inv.log.Warn("audit publish failed", map[string]interface{}{"error": err})
	}
}

func (h *Handler) outcome(inv *invocation, status, reason string) *Outcome {
	o := &Outcome{
		Status:           status,
		Reason:           reason,
		Kind:             inv.kind,
		NotificationType: inv.notificationType,
	}
	if inv.event != nil && inv.event.Record != nil {
		o.RecordID = inv.event.Record.ID
	}
	return o
}

func (h *Handler) ignore(inv *invocation, reason string) *Outcome {
	return h.outcome(inv, StatusIgnored, reason)
}

func (h *Handler) fail(inv *invocation, reason string, err error) (*Outcome, error) {
	stdErr := errors.AsStandardError(err).
		WithMetadata("recordId", inv.event.Record.ID).
		WithMetadata("databaseId", inv.database).
		WithMetadata("collection", inv.collection)
	return h.outcome(inv, StatusError, reason), stdErr
}

func (h *Handler) report(ctx context.Context, inv *invocation, o *Outcome, err error, start time.Time) {
	elapsed := time.Since(start)
	kind := string(o.Kind)
	if kind == "" {
		kind = "unknown"
	}

	metrics.EventOutcomes.WithLabelValues(kind, o.Status, o.Reason).Inc()
	metrics.EventDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	h.obs.RecordEventProcessed(ctx, kind, o.Status)
	h.obs.RecordEventDuration(ctx, elapsed, o.Status)

	fields := map[string]interface{}{
		"status":     o.Status,
		"kind":       kind,
		"durationMs": elapsed.Milliseconds(),
	}
	if o.Reason != "" {
		fields["reason"] = o.Reason
	}
	if o.NotificationType != "" {
		fields["notificationType"] = o.NotificationType
	}
	if inv.email != "" {
		fields["recipient"] = logger.MaskEmail(inv.email)
	}

	switch o.Status {
	case StatusError:
		log := inv.log
		if stdErr := errors.AsStandardError(err); stdErr != nil {
			fields["errorCode"] = string(stdErr.Code)
			fields["errorCategory"] = errors.GetErrorCategory(stdErr.Code)
			fields["retryable"] = stdErr.Retryable
			log = log.WithError(stdErr)
		}
		log.Error("event failed", fields)
	case StatusIgnored:
		inv.log.Info("event ignored", fields)
	default:
		inv.log.Info("event processed", fields)
	}
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.config.Timeout > 0 {
		return context.WithTimeout(ctx, h.config.Timeout)
	}
	return context.WithCancel(ctx)
}
