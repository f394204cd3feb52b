package local

import (
	"context"
	"sort"
	"sync"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
)

const maxRuns = 500

// RunRepoImpl keeps run history in memory. The oldest runs are dropped once
// maxRuns is reached.
type RunRepoImpl struct {
	mu   sync.RWMutex
	runs map[string]entity.GalleryRun
}

// NewRunRepo creates a new instance of RunRepoImpl.
func NewRunRepo() *RunRepoImpl {
	return &RunRepoImpl{runs: make(map[string]entity.GalleryRun)}
}

var _ repository.RunRepository = (*RunRepoImpl)(nil)

// Save inserts the run or replaces the one with the same ID.
func (r *RunRepoImpl) Save(_ context.Context, run *entity.GalleryRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[run.ID] = *run
	if len(r.runs) > maxRuns {
		oldest := r.sortedLocked()[len(r.runs)-1]
		delete(r.runs, oldest.ID)
	}
	return nil
}

// FindByID returns a copy of the stored run.
func (r *RunRepoImpl) FindByID(_ context.Context, id string) (*entity.GalleryRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, repository.ErrRunNotFound
	}
	return &run, nil
}

// ListRecent returns up to limit runs, newest first.
func (r *RunRepoImpl) ListRecent(_ context.Context, limit int) ([]*entity.GalleryRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := r.sortedLocked()
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]*entity.GalleryRun, len(sorted))
	for i := range sorted {
		out[i] = &sorted[i]
	}
	return out, nil
}

func (r *RunRepoImpl) sortedLocked() []entity.GalleryRun {
	out := make([]entity.GalleryRun, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}
