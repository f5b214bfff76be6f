// Package ports defines shared interfaces for the capture module. Interfaces
// live here when consumed by more than one service to avoid duplication.
package ports

import (
	"context"
	"log/slog"
	"time"

	"veridoc/internal/audit"
	"veridoc/internal/capture/models"
	id "veridoc/pkg/domain"
	"veridoc/pkg/requestcontext"
)

// ProgressFunc receives 0..100 transfer progress for the side in flight.
type ProgressFunc func(percent int)

// StageFunc receives the named stage of the active network operation.
type StageFunc func(stage models.Stage)

// UploadRequest is the orchestrator's view of one side transfer. The
// presigned-URL / confirm / analyze staging is the collaborator's internal
// concern; progress and stage reports come back through the callbacks.
type UploadRequest struct {
	File            *models.CandidateFile
	ApplicantID     id.ApplicantID
	DocumentType    string
	TriggerAnalysis bool

	OnProgress ProgressFunc
	OnStage    StageFunc
}

// Uploader performs one opaque asynchronous upload operation: request target,
// transfer bytes, confirm, optionally trigger analysis.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (models.Document, error)
}

// Notifier is the fire-and-forget notification surface for terminal
// success/failure messages.
type Notifier interface {
	Publish(ctx context.Context, n models.Notification)
}

// DocumentStore persists uploaded document records.
type DocumentStore interface {
	Save(ctx context.Context, doc models.Document) error
	ListByApplicant(ctx context.Context, applicantID id.ApplicantID) ([]models.Document, error)
}

// StateStore persists upload-state snapshots so other dashboard instances can
// observe progress. Entries are ephemeral and TTL-bounded.
type StateStore interface {
	Put(ctx context.Context, sessionID id.CaptureSessionID, state models.UploadSessionState, ttl time.Duration) error
	Get(ctx context.Context, sessionID id.CaptureSessionID) (*models.UploadSessionState, error)
	Delete(ctx context.Context, sessionID id.CaptureSessionID) error
}

// AuditPublisher emits audit events for compliance-relevant operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit writes a structured audit log line and forwards the event to the
// audit publisher when one is configured.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event string, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}

	args := append(attrs, "event", event, "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, event, args...)
	}

	if publisher == nil {
		return
	}

	// Identity attrs move onto the event itself: stores group and key
	// records by applicant, so leaving them buried in Attrs loses them.
	attrsMap := audit.AttrsFromList(attrs)
	ev := audit.Event{
		Action:      event,
		Timestamp:   time.Now(),
		RequestID:   requestcontext.RequestID(ctx),
		ApplicantID: attrsMap["applicant_id"],
		SessionID:   attrsMap["session_id"],
		Reason:      attrsMap["reason"],
		Attrs:       attrsMap,
	}
	delete(attrsMap, "applicant_id")
	delete(attrsMap, "session_id")
	delete(attrsMap, "reason")

	_ = publisher.Emit(ctx, ev)
}
