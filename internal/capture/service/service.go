// Package service coordinates the capture workflow: session lifecycle, file
// validation with preview handling, and submission to the upload
// orchestrator.
package service

import (
	"context"
	"log/slog"
	"sync"

	"veridoc/internal/audit"
	"veridoc/internal/capture/metrics"
	"veridoc/internal/capture/models"
	"veridoc/internal/capture/ports"
	"veridoc/internal/capture/preview"
	"veridoc/internal/capture/registry"
	"veridoc/internal/capture/session"
	"veridoc/internal/capture/upload"
	"veridoc/internal/capture/validator"
	id "veridoc/pkg/domain"
	dErrors "veridoc/pkg/domain-errors"
	"veridoc/pkg/requestcontext"
)

// Service is the capture module's application service. One live session
// exists per applicant; picking a new document type replaces it and releases
// everything the old one held.
type Service struct {
	types          *registry.DocumentTypeRegistry
	validator      *validator.Validator
	previews       *preview.Manager
	orchestrator   *upload.Orchestrator
	states         ports.StateStore
	documents      ports.DocumentStore
	auditPublisher ports.AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics

	mu          sync.Mutex
	sessions    map[id.CaptureSessionID]*entry
	byApplicant map[id.ApplicantID]id.CaptureSessionID
}

type entry struct {
	sess    *session.Session
	tracker *upload.ProgressTracker
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithStateStore(store ports.StateStore) Option {
	return func(s *Service) { s.states = store }
}

func WithDocumentStore(store ports.DocumentStore) Option {
	return func(s *Service) { s.documents = store }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(types *registry.DocumentTypeRegistry, fileValidator *validator.Validator, previews *preview.Manager, orchestrator *upload.Orchestrator, opts ...Option) (*Service, error) {
	if types == nil || fileValidator == nil || previews == nil || orchestrator == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "types, validator, previews and orchestrator are required")
	}
	s := &Service{
		types:        types,
		validator:    fileValidator,
		previews:     previews,
		orchestrator: orchestrator,
		sessions:     make(map[id.CaptureSessionID]*entry),
		byApplicant:  make(map[id.ApplicantID]id.CaptureSessionID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DocumentTypes lists the selectable document types in display order.
func (s *Service) DocumentTypes() []models.DocumentTypeDescriptor {
	return s.types.List()
}

// CreateSession opens a capture session for the applicant and document type.
// An existing session for the same applicant is discarded first: a document
// type change always starts from a clean form.
func (s *Service) CreateSession(ctx context.Context, applicantID id.ApplicantID, docTypeValue string) (*session.Session, error) {
	docType, ok := s.types.Lookup(docTypeValue)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "unknown document type %q", docTypeValue)
	}

	s.mu.Lock()
	previousID, hadPrevious := s.byApplicant[applicantID]
	var previous *entry
	if hadPrevious {
		previous = s.sessions[previousID]
		delete(s.sessions, previousID)
	}
	sess := session.New(applicantID, docType)
	s.sessions[sess.ID()] = &entry{sess: sess, tracker: upload.NewProgressTracker()}
	s.byApplicant[applicantID] = sess.ID()
	s.mu.Unlock()

	if previous != nil {
		s.discard(ctx, previous, "replaced by new session")
	}

	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventSessionCreated,
		"session_id", sess.ID().String(),
		"applicant_id", applicantID.String(),
		"document_type", docType.Value,
		"capture_source", requestcontext.CaptureSource(ctx),
		"user_agent", requestcontext.UserAgent(ctx),
	)
	return sess, nil
}

// AttachFile places a file in a slot and validates it. The validation verdict
// only lands if the slot still holds this file; selecting a replacement while
// validation runs discards the stale result.
func (s *Service) AttachFile(ctx context.Context, sessionID id.CaptureSessionID, side models.Side, file *models.CandidateFile) (models.ValidationVerdict, error) {
	ent, err := s.entryFor(sessionID)
	if err != nil {
		return models.ValidationVerdict{}, err
	}
	slot, err := ent.sess.Slot(side)
	if err != nil {
		return models.ValidationVerdict{}, err
	}

	generation := slot.SetFile(file)

	verdict, err := s.validator.Validate(ctx, file)
	if err != nil {
		return models.ValidationVerdict{}, err
	}

	if !slot.ApplyVerdict(generation, verdict) {
		return models.ValidationVerdict{}, dErrors.New(dErrors.CodeConflict, "file was replaced during validation")
	}

	action := audit.EventDocumentValidated
	outcome := "accepted"
	if !verdict.Valid {
		action = audit.EventDocumentRejected
		outcome = "rejected"
	}
	s.metrics.ObserveVerdict(outcome, verdict.Reason)
	ports.LogAudit(ctx, s.logger, s.auditPublisher, action,
		"session_id", sessionID.String(),
		"applicant_id", ent.sess.ApplicantID().String(),
		"side", string(side),
		"file_name", file.Name,
		"reason", verdict.Reason,
	)

	if verdict.Valid {
		s.attachPreview(ctx, slot, generation, file)
	}
	return verdict, nil
}

func (s *Service) attachPreview(ctx context.Context, slot *session.Slot, generation uint64, file *models.CandidateFile) {
	handle, err := s.previews.Attach(file)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to build preview", "file_name", file.Name, "error", err)
		}
		return
	}
	if handle == nil {
		return
	}
	// AttachPreview releases the handle itself when the slot moved on.
	slot.AttachPreview(generation, handle)
}

// ClearSlot drops a side's selection and releases its preview.
func (s *Service) ClearSlot(_ context.Context, sessionID id.CaptureSessionID, side models.Side) error {
	ent, err := s.entryFor(sessionID)
	if err != nil {
		return err
	}
	slot, err := ent.sess.Slot(side)
	if err != nil {
		return err
	}
	slot.Clear()
	return nil
}

// Submit starts the upload workflow. The business rules are checked
// synchronously so the caller gets an immediate refusal; the transfer itself
// runs in the background and is observed through Progress.
func (s *Service) Submit(ctx context.Context, sessionID id.CaptureSessionID, triggerAnalysis bool) error {
	ent, err := s.entryFor(sessionID)
	if err != nil {
		return err
	}
	if err := s.orchestrator.CheckReady(ent.sess); err != nil {
		return err
	}

	// A failed submission is retried from its terminal state.
	if ent.sess.State().Stage.Terminal() {
		if err := ent.sess.Reset(); err != nil {
			return err
		}
	}

	tracker := upload.NewProgressTracker()
	s.mu.Lock()
	ent.tracker = tracker
	s.mu.Unlock()

	// The workflow must outlive the request that started it.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.orchestrator.Run(runCtx, ent.sess, tracker, triggerAnalysis); err != nil {
			if s.logger != nil && !dErrors.HasCode(err, dErrors.CodeCancelled) {
				s.logger.WarnContext(runCtx, "upload workflow failed",
					"session_id", sessionID.String(),
					"error", err,
				)
			}
		}
	}()
	return nil
}

// Cancel aborts an in-flight submission. Idempotent.
func (s *Service) Cancel(ctx context.Context, sessionID id.CaptureSessionID) error {
	ent, err := s.entryFor(sessionID)
	if err != nil {
		return err
	}
	s.orchestrator.Cancel(ctx, ent.sess)
	return nil
}

// ProgressView is the polling surface for one session.
type ProgressView struct {
	Stage      models.Stage `json:"stage"`
	ActiveSide models.Side  `json:"active_side"`
	Percent    int          `json:"percent"`
	Label      string       `json:"label"`
}

// Progress reports the session's current state. When the session lives on
// another instance, the shared snapshot store answers instead (without the
// per-operation label, which is local).
func (s *Service) Progress(ctx context.Context, sessionID id.CaptureSessionID) (ProgressView, error) {
	ent, err := s.entryFor(sessionID)
	if err == nil {
		state := ent.sess.State()
		view := ProgressView{
			Stage:      state.Stage,
			ActiveSide: state.ActiveSide,
			Percent:    state.ProgressPercent,
		}
		s.mu.Lock()
		tracker := ent.tracker
		s.mu.Unlock()
		if state.Stage == models.StageUploading && tracker != nil {
			snap := tracker.Snapshot()
			view.Label = snap.Label
			view.Percent = snap.Percent
		}
		return view, nil
	}

	if s.states != nil {
		state, storeErr := s.states.Get(ctx, sessionID)
		if storeErr == nil && state != nil {
			return ProgressView{
				Stage:      state.Stage,
				ActiveSide: state.ActiveSide,
				Percent:    state.ProgressPercent,
			}, nil
		}
	}
	return ProgressView{}, err
}

// Discard tears the session down, releasing every held resource.
func (s *Service) Discard(ctx context.Context, sessionID id.CaptureSessionID) error {
	s.mu.Lock()
	ent, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
		if current, found := s.byApplicant[ent.sess.ApplicantID()]; found && current == sessionID {
			delete(s.byApplicant, ent.sess.ApplicantID())
		}
	}
	s.mu.Unlock()

	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "capture session not found")
	}
	s.discard(ctx, ent, "discarded by operator")
	return nil
}

func (s *Service) discard(ctx context.Context, ent *entry, reason string) {
	ent.sess.Teardown()
	if s.states != nil {
		if err := s.states.Delete(ctx, ent.sess.ID()); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to delete state snapshot",
				"session_id", ent.sess.ID().String(), "error", err)
		}
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventSessionDiscarded,
		"session_id", ent.sess.ID().String(),
		"applicant_id", ent.sess.ApplicantID().String(),
		"reason", reason,
	)
}

// LivePreviewHandles reports how many preview handles are currently held,
// for the leak gauge.
func (s *Service) LivePreviewHandles() int64 {
	return s.previews.LiveHandles()
}

// Documents lists the applicant's persisted document records.
func (s *Service) Documents(ctx context.Context, applicantID id.ApplicantID) ([]models.Document, error) {
	if s.documents == nil {
		return nil, nil
	}
	return s.documents.ListByApplicant(ctx, applicantID)
}

// Session returns the live session, for surfaces that need slot detail.
func (s *Service) Session(sessionID id.CaptureSessionID) (*session.Session, error) {
	ent, err := s.entryFor(sessionID)
	if err != nil {
		return nil, err
	}
	return ent.sess, nil
}

func (s *Service) entryFor(sessionID id.CaptureSessionID) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.sessions[sessionID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "capture session not found")
	}
	return ent, nil
}
