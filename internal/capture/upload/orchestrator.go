// Package upload drives the multi-stage upload workflow for a capture
// session: request an upload target, transfer bytes with progress, confirm,
// and optionally trigger downstream analysis, side by side in a fixed order.
package upload

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veridoc/internal/audit"
	"veridoc/internal/capture/metrics"
	"veridoc/internal/capture/models"
	"veridoc/internal/capture/ports"
	"veridoc/internal/capture/session"
	dErrors "veridoc/pkg/domain-errors"
)

const (
	msgFrontRequired     = "Please upload a document before submitting"
	msgBothSidesRequired = "Please upload both front and back of the document"
	msgSingleUploaded    = "Document uploaded successfully"
	msgBothUploaded      = "Both document sides uploaded successfully"
)

const defaultStateTTL = 30 * time.Minute

// FailureFunc is the failure collaborator callback, invoked once per failed
// submission with the terminal error. Cancellation does not invoke it.
type FailureFunc func(ctx context.Context, err error)

// Orchestrator runs the upload state machine. Sides upload strictly
// sequentially: back never starts before front has succeeded.
type Orchestrator struct {
	uploader       ports.Uploader
	notifier       ports.Notifier
	documents      ports.DocumentStore
	states         ports.StateStore
	auditPublisher ports.AuditPublisher
	onFailure      FailureFunc
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	stateTTL       time.Duration
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithNotifier(notifier ports.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = notifier }
}

func WithDocumentStore(store ports.DocumentStore) Option {
	return func(o *Orchestrator) { o.documents = store }
}

func WithStateStore(store ports.StateStore) Option {
	return func(o *Orchestrator) { o.states = store }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(o *Orchestrator) { o.auditPublisher = publisher }
}

func WithFailureCallback(fn FailureFunc) Option {
	return func(o *Orchestrator) { o.onFailure = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func New(uploader ports.Uploader, opts ...Option) (*Orchestrator, error) {
	if uploader == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "uploader is required")
	}
	o := &Orchestrator{
		uploader: uploader,
		tracer:   otel.Tracer("veridoc/capture"),
		stateTTL: defaultStateTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes the workflow for a session whose required slots are valid.
// It returns the persisted document records in upload order: one for
// single-side types, front then back for two-sided types.
func (o *Orchestrator) Run(ctx context.Context, sess *session.Session, tracker *ProgressTracker, triggerAnalysis bool) ([]models.Document, error) {
	docType := sess.DocumentType()

	if err := o.CheckReady(sess); err != nil {
		return nil, err
	}

	// A second submit while one is in flight fails this transition.
	if err := sess.Transition(models.StagePreparing, models.SideNone); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sess.BindCancel(cancel)
	defer func() {
		if c := sess.TakeCancel(); c != nil {
			c()
		}
	}()

	o.snapshot(ctx, sess)
	ports.LogAudit(ctx, o.logger, o.auditPublisher, audit.EventUploadStarted,
		"session_id", sess.ID().String(),
		"applicant_id", sess.ApplicantID().String(),
		"document_type", docType.Value,
	)

	sides := []models.Side{models.SideFront}
	if docType.RequiresBack {
		sides = append(sides, models.SideBack)
	}

	for _, side := range sides {
		slot, err := sess.Slot(side)
		if err != nil {
			return nil, err
		}
		if err := sess.Transition(models.StageUploading, side); err != nil {
			return nil, err
		}
		o.snapshot(ctx, sess)
		if tracker != nil {
			tracker.StartSide(side, docType.RequiresBack)
		}

		doc, err := o.uploadSide(ctx, sess, tracker, slot, sideTag(docType, side), triggerAnalysis)
		if err != nil {
			return nil, o.fail(ctx, sess, err)
		}
		sess.AppendUploaded(doc)
	}

	// The collaborator ran the confirm and analyze legs inside each Upload
	// call; these transitions keep the session-level machine in step.
	if err := sess.Transition(models.StageConfirming, models.SideNone); err != nil {
		return nil, o.fail(ctx, sess, err)
	}
	o.snapshot(ctx, sess)
	if triggerAnalysis {
		if err := sess.Transition(models.StageAnalyzing, models.SideNone); err != nil {
			return nil, o.fail(ctx, sess, err)
		}
		o.snapshot(ctx, sess)
	}

	docs := sess.UploadedDocuments()
	o.persist(ctx, docs)

	message := msgSingleUploaded
	if docType.RequiresBack {
		message = msgBothUploaded
	}
	o.notify(ctx, models.NotificationSuccess, message)
	ports.LogAudit(ctx, o.logger, o.auditPublisher, audit.EventUploadCompleted,
		"session_id", sess.ID().String(),
		"applicant_id", sess.ApplicantID().String(),
		"document_type", docType.Value,
	)

	sess.ClearSlots()
	if err := sess.Transition(models.StageComplete, models.SideNone); err != nil {
		return nil, err
	}
	o.snapshot(ctx, sess)
	o.metrics.ObserveFinished("complete")

	return docs, nil
}

// CheckReady verifies the submission-time business rules without mutating
// the session: every required side must hold a validated file. This is
// separate from file validation; a missing required back side refuses the
// submission before any network traffic.
func (o *Orchestrator) CheckReady(sess *session.Session) error {
	front, err := sess.Slot(models.SideFront)
	if err != nil {
		return err
	}
	if !front.IsValid() {
		return dErrors.New(dErrors.CodeValidation, msgFrontRequired)
	}
	back, err := sess.Slot(models.SideBack)
	if err != nil {
		return err
	}
	if sess.DocumentType().RequiresBack && !back.IsValid() {
		return dErrors.New(dErrors.CodeValidation, msgBothSidesRequired)
	}
	return nil
}

// Cancel aborts the in-flight workflow and clears both slots, releasing
// preview handles synchronously. Cancel-all: already-uploaded sides are
// dropped locally too. Idempotent; a no-op when nothing is in flight.
func (o *Orchestrator) Cancel(ctx context.Context, sess *session.Session) {
	cancel := sess.TakeCancel()
	if cancel == nil {
		return
	}
	cancel()
	sess.ClearSlots()
	ports.LogAudit(ctx, o.logger, o.auditPublisher, audit.EventUploadCancelled,
		"session_id", sess.ID().String(),
		"applicant_id", sess.ApplicantID().String(),
	)
}

func (o *Orchestrator) uploadSide(ctx context.Context, sess *session.Session, tracker *ProgressTracker, slot *session.Slot, tag string, triggerAnalysis bool) (models.Document, error) {
	file := slot.File()
	if file == nil {
		return models.Document{}, dErrors.New(dErrors.CodeInvariantViolation, "slot lost its file mid-upload")
	}

	ctx, span := o.tracer.Start(ctx, "capture.upload_side",
		trace.WithAttributes(
			attribute.String("side", string(slot.Side())),
			attribute.String("document_type", tag),
		),
	)
	defer span.End()

	start := time.Now()
	doc, err := o.uploader.Upload(ctx, ports.UploadRequest{
		File:            file,
		ApplicantID:     sess.ApplicantID(),
		DocumentType:    tag,
		TriggerAnalysis: triggerAnalysis,
		OnProgress: func(percent int) {
			if tracker != nil {
				tracker.SetPercent(percent)
			}
			sess.SetProgress(percent)
		},
		OnStage: func(stage models.Stage) {
			if tracker != nil {
				tracker.SetStage(stage)
			}
		},
	})
	o.metrics.ObserveUpload(string(slot.Side()), time.Since(start))
	if err != nil {
		span.RecordError(err)
		return models.Document{}, err
	}
	return doc, nil
}

// fail moves the session to its terminal failure state. Cancellation is a
// deliberate terminal state, not a failure: it clears the slots and skips the
// failure callback and notification.
func (o *Orchestrator) fail(ctx context.Context, sess *session.Session, err error) error {
	// State writes must survive the cancelled workflow context.
	bg := context.WithoutCancel(ctx)

	if errors.Is(err, context.Canceled) {
		_ = sess.Transition(models.StageCancelled, models.SideNone)
		sess.ClearSlots()
		o.snapshot(bg, sess)
		o.metrics.ObserveFinished("cancelled")
		return dErrors.Wrap(err, dErrors.CodeCancelled, "upload cancelled")
	}

	uploaded := sess.UploadedDocuments()
	_ = sess.Transition(models.StageError, models.SideNone)
	o.snapshot(bg, sess)
	o.metrics.ObserveFinished("error")

	o.notify(bg, models.NotificationError, dErrors.MessageOf(err))
	if o.onFailure != nil {
		o.onFailure(bg, err)
	}

	action := audit.EventUploadFailed
	if len(uploaded) > 0 {
		// Front already persisted on the far end; flagged so compliance can
		// reconcile the orphaned side.
		action = audit.EventUploadPartialFailure
	}
	ports.LogAudit(bg, o.logger, o.auditPublisher, action,
		"session_id", sess.ID().String(),
		"applicant_id", sess.ApplicantID().String(),
		"reason", dErrors.MessageOf(err),
	)

	return err
}

func (o *Orchestrator) persist(ctx context.Context, docs []models.Document) {
	if o.documents == nil {
		return
	}
	for _, doc := range docs {
		if err := o.documents.Save(ctx, doc); err != nil && o.logger != nil {
			// The collaborator already holds the record; the local store is a
			// projection and must not fail the workflow.
			o.logger.WarnContext(ctx, "failed to persist document record",
				"document_id", doc.ID.String(),
				"error", err,
			)
		}
	}
}

func (o *Orchestrator) notify(ctx context.Context, kind models.NotificationKind, message string) {
	if o.notifier != nil {
		o.notifier.Publish(ctx, models.Notification{Kind: kind, Message: message})
	}
}

func (o *Orchestrator) snapshot(ctx context.Context, sess *session.Session) {
	if o.states == nil {
		return
	}
	if err := o.states.Put(ctx, sess.ID(), sess.State(), o.stateTTL); err != nil && o.logger != nil {
		o.logger.WarnContext(ctx, "failed to write upload state snapshot",
			"session_id", sess.ID().String(),
			"error", err,
		)
	}
}

// sideTag derives the stored-document identity for a side. Single-side types
// use the bare document-type key; two-sided types store two distinct
// identities with _front and _back suffixes.
func sideTag(docType models.DocumentTypeDescriptor, side models.Side) string {
	if !docType.RequiresBack {
		return docType.Value
	}
	if side == models.SideBack {
		return docType.Value + "_back"
	}
	return docType.Value + "_front"
}
