// internal/models/notification.go
package models

// Field names owned by the dispatcher on every notified record.
const (
	FieldLastNotifiedAt   = "lastNotifiedAt"
	FieldLastNotifiedHash = "lastNotifiedHash"
	FieldLastNotifiedType = "lastNotifiedType"
)

// Application and pay-stub field names.
const (
	FieldStatus          = "status"
	FieldAdminNotes      = "adminNotes"
	FieldNeedsActionNote = "needsActionNote"
	FieldRejectionReason = "rejectionReason"
	FieldUserID          = "userId"
	FieldApplicantName   = "applicantName"
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldReferenceNumber = "referenceNumber"
	FieldEmail           = "email"

	FieldHash        = "hash"
	FieldGeneratedAt = "generatedAt"
	FieldNetPay      = "netPay"
	FieldPayPeriodID = "payPeriodId"
	FieldEmployeeID  = "employeeId"
	FieldName        = "name"
)

// NotificationState is written as a unit after every successful send.
type NotificationState struct {
	LastNotifiedAt   string `json:"lastNotifiedAt,omitempty"`
	LastNotifiedHash string `json:"lastNotifiedHash,omitempty"`
	LastNotifiedType string `json:"lastNotifiedType,omitempty"`
}

// Fields returns the partial update carrying all three state fields.
func (s NotificationState) Fields() map[string]interface{} {
	return map[string]interface{}{
		FieldLastNotifiedAt:   s.LastNotifiedAt,
		FieldLastNotifiedHash: s.LastNotifiedHash,
		FieldLastNotifiedType: s.LastNotifiedType,
	}
}
