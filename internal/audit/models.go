// Package audit captures an append-only trail of compliance-relevant capture
// events. Events are transport-agnostic so stores and sinks can fan out.
package audit

import "time"

// Actions emitted by the capture pipeline.
const (
	EventDocumentValidated    = "document_validated"
	EventDocumentRejected     = "document_rejected"
	EventUploadStarted        = "upload_started"
	EventUploadCompleted      = "upload_completed"
	EventUploadFailed         = "upload_failed"
	EventUploadPartialFailure = "upload_partial_failure"
	EventUploadCancelled      = "upload_cancelled"
	EventSessionCreated       = "capture_session_created"
	EventSessionDiscarded     = "capture_session_discarded"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Timestamp   time.Time         `json:"timestamp"`
	ApplicantID string            `json:"applicant_id,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	Action      string            `json:"action"`
	Reason      string            `json:"reason,omitempty"`
	RequestID   string            `json:"request_id,omitempty"`
	Attrs       map[string]string `json:"attrs,omitempty"`
}

// AttrsFromList converts a slog-style [key1, value1, key2, value2] list into
// a string map, skipping non-string keys and stringless values.
func AttrsFromList(list []any) map[string]string {
	if len(list) < 2 {
		return nil
	}
	attrs := make(map[string]string)
	for i := 0; i+1 < len(list); i += 2 {
		key, ok := list[i].(string)
		if !ok {
			continue
		}
		switch v := list[i+1].(type) {
		case string:
			attrs[key] = v
		case interface{ String() string }:
			attrs[key] = v.String()
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
