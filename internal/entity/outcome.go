package entity

import "time"

// RunStatus is the final state of a generation run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// ItemFailure records why one descriptor was left out of the gallery.
type ItemFailure struct {
	Index  int    `json:"index" yaml:"index"`
	Path   string `json:"path" yaml:"path"`
	Kind   string `json:"kind" yaml:"kind"`
	Reason string `json:"reason" yaml:"reason"`
}

// Outcome is the single result surfaced to whoever asked for a gallery.
type Outcome struct {
	RunID        string        `json:"run_id"`
	Status       RunStatus     `json:"status"`
	OutputPath   string        `json:"output_path"`
	Total        int           `json:"total"`
	Processed    int           `json:"processed"`
	Skipped      int           `json:"skipped"`
	Failures     []ItemFailure `json:"failures,omitempty"`
	FilesCreated []string      `json:"files_created,omitempty"`
	Message      string        `json:"message"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
}

func (o Outcome) Succeeded() bool { return o.Status == RunSucceeded }

func (o Outcome) Cancelled() bool { return o.Status == RunCancelled }

// GalleryRun mirrors the `gallery_runs` table.
type GalleryRun struct {
	ID         string
	OutputPath string
	Status     RunStatus
	Total      int
	Processed  int
	Skipped    int
	Message    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunFromOutcome projects an Outcome onto its persisted form.
func RunFromOutcome(o Outcome) *GalleryRun {
	return &GalleryRun{
		ID:         o.RunID,
		OutputPath: o.OutputPath,
		Status:     o.Status,
		Total:      o.Total,
		Processed:  o.Processed,
		Skipped:    o.Skipped,
		Message:    o.Message,
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
	}
}
