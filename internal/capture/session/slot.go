package session

import (
	"sync"

	"veridoc/internal/capture/models"
	"veridoc/internal/capture/preview"
)

// Slot is the per-side holding area for one in-progress file selection: the
// raw candidate, its preview handle (if any), and its validation verdict.
//
// Invariants:
//   - at most one live preview handle per slot
//   - a verdict only applies to the selection generation it was computed for;
//     stale verdicts are discarded rather than applied to a newer file
type Slot struct {
	side models.Side

	mu         sync.Mutex
	file       *models.CandidateFile
	preview    *preview.Handle
	verdict    *models.ValidationVerdict
	generation uint64
}

func newSlot(side models.Side) *Slot {
	return &Slot{side: side}
}

func (s *Slot) Side() models.Side {
	return s.side
}

// SetFile replaces the current selection and returns the new generation.
// Any existing preview handle and the replaced candidate's backing storage
// are released first, and the previous verdict no longer applies.
func (s *Slot) SetFile(file *models.CandidateFile) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releasePreviewLocked()
	s.releaseFileLocked()
	s.file = file
	s.verdict = nil
	s.generation++
	return s.generation
}

// ApplyVerdict records a verdict for the given generation. Returns false and
// discards the verdict when a newer selection has superseded it.
func (s *Slot) ApplyVerdict(generation uint64, verdict models.ValidationVerdict) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || s.file == nil {
		return false
	}
	s.verdict = &verdict
	return true
}

// AttachPreview hands the slot ownership of a preview handle. A stale handle
// (newer selection already in place) is released immediately instead of
// leaking; so is any handle the slot already held.
func (s *Slot) AttachPreview(generation uint64, handle *preview.Handle) bool {
	if handle == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || s.file == nil {
		handle.Release()
		return false
	}
	s.releasePreviewLocked()
	s.preview = handle
	return true
}

// Clear drops the selection and releases all held resources.
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releasePreviewLocked()
	s.releaseFileLocked()
	s.verdict = nil
	s.generation++
}

// File returns the current candidate, or nil.
func (s *Slot) File() *models.CandidateFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

// Verdict returns the verdict for the current selection, or nil when
// validation has not completed for it.
func (s *Slot) Verdict() *models.ValidationVerdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verdict
}

// Preview returns the live preview handle, or nil.
func (s *Slot) Preview() *preview.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// IsValid reports whether the slot holds a file whose validation passed.
func (s *Slot) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file != nil && s.verdict != nil && s.verdict.Valid
}

func (s *Slot) releasePreviewLocked() {
	if s.preview != nil {
		s.preview.Release()
		s.preview = nil
	}
}

func (s *Slot) releaseFileLocked() {
	if s.file != nil {
		s.file.Discard()
		s.file = nil
	}
}
