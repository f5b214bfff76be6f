// Package preview manages short-lived, memory-backed preview references for
// image candidates. A handle is an owned resource: it is released exactly
// once, on replace, clear, cancel, or teardown, and the manager keeps a live
// count so leaks are observable.
package preview

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"veridoc/internal/capture/models"
	dErrors "veridoc/pkg/domain-errors"
)

// Handle is an opaque, revocable reference to rendered preview data. Handles
// are owned by the capture slot they were attached to and are never shared.
type Handle struct {
	uri     string
	data    []byte
	release sync.Once
	freed   func()
}

// URI returns a stable reference usable by a rendering surface.
func (h *Handle) URI() string {
	return h.uri
}

// Bytes returns the preview content. Valid until Release.
func (h *Handle) Bytes() []byte {
	return h.data
}

// Release frees the backing data. Safe to call more than once; only the first
// call has effect.
func (h *Handle) Release() {
	h.release.Do(func() {
		h.data = nil
		if h.freed != nil {
			h.freed()
		}
	})
}

// Manager creates and releases preview handles and accounts for live ones.
type Manager struct {
	live atomic.Int64

	// maxBytes caps how much of a file is buffered for preview rendering.
	maxBytes int64
}

const defaultMaxPreviewBytes = 10 * 1024 * 1024

func NewManager() *Manager {
	return &Manager{maxBytes: defaultMaxPreviewBytes}
}

// Attach builds a preview handle for an image candidate. Non-image types
// (PDF) get no preview and return (nil, nil); callers fall back to a generic
// file card.
func (m *Manager) Attach(file *models.CandidateFile) (*Handle, error) {
	if file == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "candidate file is required")
	}
	if !file.IsImage() {
		return nil, nil
	}

	rc, err := file.Open()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "open file for preview")
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, m.maxBytes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read file for preview")
	}

	m.live.Add(1)
	return &Handle{
		uri:   "mem://" + uuid.NewString(),
		data:  data,
		freed: func() { m.live.Add(-1) },
	}, nil
}

// LiveHandles returns the number of handles attached but not yet released.
func (m *Manager) LiveHandles() int64 {
	return m.live.Load()
}
