package orchestrator

import "notification-dispatcher/internal/models"

// Outcome is the result of one invocation.
type Outcome struct {
	Status           string      `json:"status"`
	Reason           string      `json:"reason,omitempty"`
	Kind             models.Kind `json:"kind,omitempty"`
	NotificationType string      `json:"notificationType,omitempty"`
	RecordID         string      `json:"recordId,omitempty"`
}

const (
	StatusIgnored = "ignored"
	StatusSent    = "sent"
	StatusDryRun  = "dry_run"
	StatusError   = "error"
)

// Ignore reasons.
const (
	ReasonNoPayload                   = "no_payload"
	ReasonMissingDocument             = "missing_document"
	ReasonMissingCollectionOrDatabase = "missing_collection_or_database"
	ReasonUnrecognizedCollection      = "unrecognized_collection"
	ReasonCollectionNotSupported      = "collection_not_supported"
	ReasonDeleteEvent                 = "delete_event"
	ReasonNonUpdateEvent              = "non_update_event"
	ReasonNoMeaningfulChange          = "no_meaningful_change"
	ReasonDuplicate                   = "duplicate"
	ReasonThrottled                   = "throttled"
	ReasonMissingUserID               = "missing_userId"
	ReasonMissingEmployee             = "missing_employee"
	ReasonMissingUser                 = "missing_user"
	ReasonMissingEmail                = "missing_email"
	ReasonPayStubDisabled             = "pay_stub_disabled"
)

// Operational error reasons.
const (
	ReasonStoreUnavailable     = "store_unavailable"
	ReasonDirectoryUnavailable = "directory_unavailable"
	ReasonSendFailed           = "send_failed"
	ReasonPersistFailed        = "persist_failed"
	ReasonPersistConflict      = "persist_conflict"
)

// IsError reports whether the outcome is an operational failure.
func (o *Outcome) IsError() bool {
	return o != nil && o.Status == StatusError
}
