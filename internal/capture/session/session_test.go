package session

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veridoc/internal/capture/models"
	"veridoc/internal/capture/preview"
	id "veridoc/pkg/domain"
	dErrors "veridoc/pkg/domain-errors"
)

func testFile(name string) *models.CandidateFile {
	content := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	return models.NewCandidateFile(name, "image/jpeg", int64(len(content)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(content)), nil
	})
}

func newTestSession(requiresBack bool) *Session {
	return New(id.ApplicantID{}, models.DocumentTypeDescriptor{
		Value:        "id_card",
		Label:        "ID Card",
		RequiresBack: requiresBack,
	})
}

func TestSlot_StaleVerdictDiscarded(t *testing.T) {
	s := newSlot(models.SideFront)

	gen1 := s.SetFile(testFile("first.jpg"))
	gen2 := s.SetFile(testFile("second.jpg"))
	require.NotEqual(t, gen1, gen2)

	// Slow validation for the first selection finishes after the replacement.
	applied := s.ApplyVerdict(gen1, models.Accept())
	assert.False(t, applied, "verdict keyed to a superseded selection must be discarded")
	assert.Nil(t, s.Verdict())
	assert.False(t, s.IsValid())

	applied = s.ApplyVerdict(gen2, models.Accept())
	assert.True(t, applied)
	assert.True(t, s.IsValid())
}

func TestSlot_ReplaceReleasesPreview(t *testing.T) {
	mgr := preview.NewManager()
	s := newSlot(models.SideFront)

	gen := s.SetFile(testFile("first.jpg"))
	h1, err := mgr.Attach(s.File())
	require.NoError(t, err)
	require.True(t, s.AttachPreview(gen, h1))
	assert.Equal(t, int64(1), mgr.LiveHandles())

	// Replace twice in succession: exactly one live handle at any time.
	gen = s.SetFile(testFile("second.jpg"))
	assert.Equal(t, int64(0), mgr.LiveHandles(), "replacement must release the old handle")
	h2, err := mgr.Attach(s.File())
	require.NoError(t, err)
	require.True(t, s.AttachPreview(gen, h2))
	assert.Equal(t, int64(1), mgr.LiveHandles())

	gen = s.SetFile(testFile("third.jpg"))
	h3, err := mgr.Attach(s.File())
	require.NoError(t, err)
	require.True(t, s.AttachPreview(gen, h3))
	assert.Equal(t, int64(1), mgr.LiveHandles())

	s.Clear()
	assert.Equal(t, int64(0), mgr.LiveHandles(), "clear must release the held handle")
}

func TestSlot_StalePreviewReleasedNotLeaked(t *testing.T) {
	mgr := preview.NewManager()
	s := newSlot(models.SideBack)

	gen1 := s.SetFile(testFile("first.jpg"))
	h, err := mgr.Attach(s.File())
	require.NoError(t, err)

	s.SetFile(testFile("second.jpg"))

	attached := s.AttachPreview(gen1, h)
	assert.False(t, attached)
	assert.Equal(t, int64(0), mgr.LiveHandles(), "stale handle must be released on rejection")
	assert.Nil(t, s.Preview())
}

func TestSlot_ReplaceAndClearDiscardCandidateStorage(t *testing.T) {
	spooled := func(name string) *models.CandidateFile {
		f, err := models.SpoolCandidateFile(name, "image/jpeg", bytes.NewReader([]byte{0xFF, 0xD8, 0xFF, 0xE0}))
		require.NoError(t, err)
		return f
	}

	s := newSlot(models.SideFront)

	first := spooled("first.jpg")
	s.SetFile(first)
	second := spooled("second.jpg")
	s.SetFile(second)

	_, err := first.Open()
	assert.Error(t, err, "replaced candidate must release its backing storage")

	rc, err := second.Open()
	require.NoError(t, err, "live candidate must stay readable")
	require.NoError(t, rc.Close())

	s.Clear()
	_, err = second.Open()
	assert.Error(t, err, "cleared candidate must release its backing storage")
}

func TestSession_TransitionLegality(t *testing.T) {
	s := newTestSession(true)

	require.NoError(t, s.Transition(models.StagePreparing, models.SideNone))
	require.NoError(t, s.Transition(models.StageUploading, models.SideFront))
	require.NoError(t, s.Transition(models.StageUploading, models.SideBack))
	require.NoError(t, s.Transition(models.StageConfirming, models.SideNone))
	require.NoError(t, s.Transition(models.StageComplete, models.SideNone))

	err := s.Transition(models.StagePreparing, models.SideNone)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestSession_ErrorReachableFromNonTerminalOnly(t *testing.T) {
	s := newTestSession(false)

	require.NoError(t, s.Transition(models.StagePreparing, models.SideNone))
	require.NoError(t, s.Transition(models.StageError, models.SideNone))

	err := s.Transition(models.StageCancelled, models.SideNone)
	require.Error(t, err, "terminal states must not transition again")
}

func TestSession_ResetAfterTerminal(t *testing.T) {
	s := newTestSession(false)

	require.Error(t, s.Reset(), "reset only applies to terminal stages")

	require.NoError(t, s.Transition(models.StagePreparing, models.SideNone))
	require.NoError(t, s.Transition(models.StageError, models.SideNone))
	require.NoError(t, s.Reset())
	assert.Equal(t, models.StageIdle, s.State().Stage)
	assert.Empty(t, s.UploadedDocuments())
}

func TestSession_ProgressResetOutsideUploading(t *testing.T) {
	s := newTestSession(false)

	require.NoError(t, s.Transition(models.StagePreparing, models.SideNone))
	require.NoError(t, s.Transition(models.StageUploading, models.SideFront))
	s.SetProgress(60)
	assert.Equal(t, 60, s.State().ProgressPercent)

	require.NoError(t, s.Transition(models.StageConfirming, models.SideNone))
	assert.Equal(t, 0, s.State().ProgressPercent)
}

func TestSession_TakeCancelIsOneShot(t *testing.T) {
	s := newTestSession(false)

	calls := 0
	s.BindCancel(func() { calls++ })

	if cancel := s.TakeCancel(); cancel != nil {
		cancel()
	}
	assert.Nil(t, s.TakeCancel(), "second take must return nil so cancel is idempotent")
	assert.Equal(t, 1, calls)
}

func TestSession_TeardownReleasesEverything(t *testing.T) {
	mgr := preview.NewManager()
	s := newTestSession(true)

	for _, side := range []models.Side{models.SideFront, models.SideBack} {
		slot, err := s.Slot(side)
		require.NoError(t, err)
		gen := slot.SetFile(testFile(string(side) + ".jpg"))
		h, err := mgr.Attach(slot.File())
		require.NoError(t, err)
		require.True(t, slot.AttachPreview(gen, h))
	}
	require.Equal(t, int64(2), mgr.LiveHandles())

	cancelled := false
	s.BindCancel(func() { cancelled = true })

	s.Teardown()
	assert.True(t, cancelled)
	assert.Equal(t, int64(0), mgr.LiveHandles())
	assert.Nil(t, s.front.File())
	assert.Nil(t, s.back.File())
}

func TestSession_SlotRejectsUnknownSide(t *testing.T) {
	s := newTestSession(false)
	_, err := s.Slot(models.Side("top"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
