// Package session holds the capture form aggregate: two per-side slots, the
// document type being captured, and the single shared upload state. State
// changes go through explicit transitions so illegal combinations (uploading
// and idle at once) are unrepresentable.
package session

import (
	"context"
	"sync"
	"time"

	"veridoc/internal/capture/models"
	id "veridoc/pkg/domain"
	dErrors "veridoc/pkg/domain-errors"
)

// Session is one capture form for one applicant and document type. It is
// created when the operator picks a document type and destroyed (all held
// resources released) on type change, form clear, or upload success.
type Session struct {
	id        id.CaptureSessionID
	applicant id.ApplicantID
	docType   models.DocumentTypeDescriptor
	createdAt time.Time

	front *Slot
	back  *Slot

	mu       sync.Mutex
	state    models.UploadSessionState
	uploaded []models.Document
	cancel   context.CancelFunc
}

// New creates an idle session for the given applicant and document type.
func New(applicant id.ApplicantID, docType models.DocumentTypeDescriptor) *Session {
	return &Session{
		id:        id.NewCaptureSessionID(),
		applicant: applicant,
		docType:   docType,
		createdAt: time.Now(),
		front:     newSlot(models.SideFront),
		back:      newSlot(models.SideBack),
		state:     models.UploadSessionState{Stage: models.StageIdle, ActiveSide: models.SideNone},
	}
}

func (s *Session) ID() id.CaptureSessionID { return s.id }

func (s *Session) ApplicantID() id.ApplicantID { return s.applicant }

func (s *Session) DocumentType() models.DocumentTypeDescriptor { return s.docType }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Slot returns the holding area for a side.
func (s *Session) Slot(side models.Side) (*Slot, error) {
	switch side {
	case models.SideFront:
		return s.front, nil
	case models.SideBack:
		return s.back, nil
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "side must be front or back")
	}
}

// State returns a snapshot of the shared upload state.
func (s *Session) State() models.UploadSessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// legalTransitions encodes the workflow state machine. Error and Cancelled
// are additionally reachable from every non-terminal stage.
var legalTransitions = map[models.Stage][]models.Stage{
	models.StageIdle:       {models.StagePreparing},
	models.StagePreparing:  {models.StageUploading},
	models.StageUploading:  {models.StageUploading, models.StageConfirming},
	models.StageConfirming: {models.StageAnalyzing, models.StageComplete},
	models.StageAnalyzing:  {models.StageComplete},
	models.StageComplete:   {},
	models.StageError:      {},
	models.StageCancelled:  {},
}

// Transition moves the session to the target stage, enforcing legality.
// Only the upload orchestrator calls this.
func (s *Session) Transition(to models.Stage, activeSide models.Side) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state.Stage
	if to == models.StageError || to == models.StageCancelled {
		if from.Terminal() {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "illegal transition %s -> %s", from, to)
		}
	} else if !contains(legalTransitions[from], to) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "illegal transition %s -> %s", from, to)
	}

	s.state.Stage = to
	s.state.ActiveSide = activeSide
	if to != models.StageUploading {
		s.state.ProgressPercent = 0
	}
	return nil
}

// SetProgress updates the numeric progress for the side in flight.
func (s *Session) SetProgress(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	s.mu.Lock()
	s.state.ProgressPercent = percent
	s.mu.Unlock()
}

// Reset returns a terminal session to idle so a failed submission can be
// retried with the slots it still holds.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Stage.Terminal() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot reset during %s", s.state.Stage)
	}
	s.state = models.UploadSessionState{Stage: models.StageIdle, ActiveSide: models.SideNone}
	s.uploaded = nil
	return nil
}

// AppendUploaded records a document the collaborator has persisted, in order.
func (s *Session) AppendUploaded(doc models.Document) {
	s.mu.Lock()
	s.uploaded = append(s.uploaded, doc)
	s.mu.Unlock()
}

// UploadedDocuments returns the documents persisted so far, in upload order.
// After a two-sided failure this still contains the side that succeeded; the
// far end keeps that record and callers needing finer recovery inspect it.
func (s *Session) UploadedDocuments() []models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Document(nil), s.uploaded...)
}

// BindCancel installs the cancellation hook for the in-flight workflow.
func (s *Session) BindCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

// TakeCancel removes and returns the installed hook, if any. Taking it makes
// a second cancel a no-op.
func (s *Session) TakeCancel() context.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel := s.cancel
	s.cancel = nil
	return cancel
}

// ClearSlots drops both selections and releases every held preview handle.
func (s *Session) ClearSlots() {
	s.front.Clear()
	s.back.Clear()
}

// Teardown releases all held resources. Called when the document type
// changes, the form is discarded, or the session expires.
func (s *Session) Teardown() {
	if cancel := s.TakeCancel(); cancel != nil {
		cancel()
	}
	s.ClearSlots()
}

func contains(stages []models.Stage, target models.Stage) bool {
	for _, st := range stages {
		if st == target {
			return true
		}
	}
	return false
}
