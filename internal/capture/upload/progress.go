package upload

import (
	"sync"

	"veridoc/internal/capture/models"
)

// Progress is a read-only snapshot for the notification/rendering surface.
type Progress struct {
	Percent int          `json:"percent"`
	Stage   models.Stage `json:"stage"`
	Label   string       `json:"label"`
}

// ProgressTracker aggregates the 0..100 percentage and named stage of the
// side currently transferring. The numeric channel is shared and reset per
// side; the label distinguishes front from back for two-sided types.
type ProgressTracker struct {
	mu      sync.Mutex
	percent int
	stage   models.Stage
	side    models.Side
	twoSide bool
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{stage: models.StageIdle}
}

// StartSide resets the tracker for a new side transfer.
func (t *ProgressTracker) StartSide(side models.Side, twoSide bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.percent = 0
	t.stage = models.StagePreparing
	t.side = side
	t.twoSide = twoSide
}

// SetStage records the stage reported by the active network operation.
func (t *ProgressTracker) SetStage(stage models.Stage) {
	t.mu.Lock()
	t.stage = stage
	t.mu.Unlock()
}

// SetPercent records numeric progress, clamped to 0..100.
func (t *ProgressTracker) SetPercent(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	t.mu.Lock()
	t.percent = percent
	t.mu.Unlock()
}

// Snapshot returns the current progress view.
func (t *ProgressTracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Progress{
		Percent: t.percent,
		Stage:   t.stage,
		Label:   t.labelLocked(),
	}
}

func (t *ProgressTracker) labelLocked() string {
	switch t.stage {
	case models.StagePreparing:
		return "Preparing..."
	case models.StageUploading:
		if t.twoSide {
			if t.side == models.SideBack {
				return "Uploading back side..."
			}
			return "Uploading front side..."
		}
		return "Uploading..."
	case models.StageConfirming:
		return "Confirming..."
	case models.StageAnalyzing:
		return "Analyzing..."
	default:
		return ""
	}
}
