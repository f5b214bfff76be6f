// Package models defines the data model for the document capture pipeline.
package models

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	id "veridoc/pkg/domain"
)

// Side identifies one physical face of an identity document.
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
	SideNone  Side = ""
)

// IsValid reports whether the side is one of the two capture sides.
func (s Side) IsValid() bool {
	return s == SideFront || s == SideBack
}

// Stage names the phase the upload workflow is in. The capture form holds
// exactly one of these at a time; sides never upload concurrently.
type Stage string

const (
	StageIdle       Stage = "idle"
	StagePreparing  Stage = "preparing"
	StageUploading  Stage = "uploading"
	StageConfirming Stage = "confirming"
	StageAnalyzing  Stage = "analyzing"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
	StageCancelled  Stage = "cancelled"
)

// Terminal reports whether no further transitions are allowed from the stage.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError || s == StageCancelled
}

// DocumentTypeDescriptor describes one recognized document category.
// Descriptors are immutable and defined at process start.
type DocumentTypeDescriptor struct {
	Value        string `json:"value"`
	Label        string `json:"label"`
	RequiresBack bool   `json:"requires_back"`
}

// CandidateFile is an ephemeral user-supplied file. The raw bytes are reached
// through an opener so validation can read a prefix without loading the whole
// file. A candidate is owned by the slot that received it and never shared.
type CandidateFile struct {
	Name         string
	DeclaredType string
	SizeBytes    int64

	open    func() (io.ReadCloser, error)
	cleanup func()
	discard sync.Once
}

// NewCandidateFile builds a candidate around a content opener. The opener may
// be invoked more than once (signature check, preview, transfer) and must
// return a fresh reader each time.
func NewCandidateFile(name, declaredType string, sizeBytes int64, open func() (io.ReadCloser, error)) *CandidateFile {
	return &CandidateFile{
		Name:         name,
		DeclaredType: declaredType,
		SizeBytes:    sizeBytes,
		open:         open,
	}
}

// SpoolCandidateFile copies content into a private temporary file so the
// candidate stays readable after the request that carried it is gone. The
// backing file lives until Discard.
func SpoolCandidateFile(name, declaredType string, content io.Reader) (*CandidateFile, error) {
	tmp, err := os.CreateTemp("", "veridoc-capture-*")
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(tmp, content)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, err
	}

	path := tmp.Name()
	file := NewCandidateFile(name, declaredType, size, func() (io.ReadCloser, error) {
		return os.Open(path)
	})
	file.cleanup = func() { _ = os.Remove(path) }
	return file, nil
}

// Open returns a fresh reader over the file content.
func (f *CandidateFile) Open() (io.ReadCloser, error) {
	return f.open()
}

// Discard releases the candidate's backing storage. Idempotent; a discarded
// candidate can no longer be opened.
func (f *CandidateFile) Discard() {
	f.discard.Do(func() {
		if f.cleanup != nil {
			f.cleanup()
		}
	})
}

// IsImage reports whether the declared type is an image type. Only images
// receive visual previews; PDFs fall back to a generic file card.
func (f *CandidateFile) IsImage() bool {
	return strings.HasPrefix(f.DeclaredType, "image/")
}

// ValidationVerdict is produced once per candidate per validation pass and is
// never mutated afterward. Reason is the stable machine code behind a
// rejection; ErrorMessage is what the operator sees.
type ValidationVerdict struct {
	Valid        bool   `json:"valid"`
	Reason       string `json:"reason,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Accept returns a passing verdict.
func Accept() ValidationVerdict {
	return ValidationVerdict{Valid: true}
}

// Reject returns a failing verdict with a machine reason and the user-facing
// message.
func Reject(reason, message string) ValidationVerdict {
	return ValidationVerdict{Valid: false, Reason: reason, ErrorMessage: message}
}

// UploadSessionState is the single shared state of one capture form. Only the
// orchestrator mutates it; everything else reads snapshots.
type UploadSessionState struct {
	Stage           Stage `json:"stage"`
	ActiveSide      Side  `json:"active_side"`
	ProgressPercent int   `json:"progress_percent"`
}

// Document is the record the upload collaborator returns once a side has been
// transferred, confirmed, and optionally queued for analysis.
type Document struct {
	ID           id.DocumentID  `json:"id"`
	ApplicantID  id.ApplicantID `json:"applicant_id"`
	DocumentType string         `json:"document_type"`
	FileName     string         `json:"file_name"`
	ContentType  string         `json:"content_type"`
	SizeBytes    int64          `json:"size_bytes"`
	StorageKey   string         `json:"storage_key"`
	UploadedAt   time.Time      `json:"uploaded_at"`
}

// Notification is a fire-and-forget message for the operator-facing
// notification surface.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)
