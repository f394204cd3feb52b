package response

import (
	"time"

	"github.com/user/photo-gallery/internal/entity"
)

// GenerateResponse is the outcome of one generation request.
type GenerateResponse struct {
	RunID        string               `json:"run_id"`
	Success      bool                 `json:"success"`
	Status       string               `json:"status"`
	Message      string               `json:"message"`
	OutputPath   string               `json:"output_path"`
	Total        int                  `json:"total"`
	Processed    int                  `json:"processed"`
	Skipped      int                  `json:"skipped"`
	Failures     []entity.ItemFailure `json:"failures,omitempty"`
	FilesCreated []string             `json:"files_created,omitempty"`
	DurationMS   int64                `json:"duration_ms"`
}

func FromOutcome(o entity.Outcome) GenerateResponse {
	return GenerateResponse{
		RunID:        o.RunID,
		Success:      o.Succeeded(),
		Status:       string(o.Status),
		Message:      o.Message,
		OutputPath:   o.OutputPath,
		Total:        o.Total,
		Processed:    o.Processed,
		Skipped:      o.Skipped,
		Failures:     o.Failures,
		FilesCreated: o.FilesCreated,
		DurationMS:   o.FinishedAt.Sub(o.StartedAt).Milliseconds(),
	}
}

// RunResponse is a DTO for run history, mirroring entity.GalleryRun
type RunResponse struct {
	ID         string    `json:"id"`
	OutputPath string    `json:"output_path"`
	Status     string    `json:"status"` // "succeeded", "failed", "cancelled"
	Total      int       `json:"total"`
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	Message    string    `json:"message"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func FromRun(r *entity.GalleryRun) RunResponse {
	return RunResponse{
		ID:         r.ID,
		OutputPath: r.OutputPath,
		Status:     string(r.Status),
		Total:      r.Total,
		Processed:  r.Processed,
		Skipped:    r.Skipped,
		Message:    r.Message,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

type RunListResponse struct {
	Runs []RunResponse `json:"runs"`
}
