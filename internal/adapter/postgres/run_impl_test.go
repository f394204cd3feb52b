package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
)

// These tests need a real database: set GALLERY_TEST_POSTGRES_URL to run them.
func setupDB(t *testing.T) *RunRepoImpl {
	t.Helper()
	url := os.Getenv("GALLERY_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("GALLERY_TEST_POSTGRES_URL not set")
	}
	db, err := Connect(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return NewRunRepo(db)
}

func TestRunRepo_SaveFindList(t *testing.T) {
	repo := setupDB(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Millisecond)

	run := &entity.GalleryRun{
		ID:         uuid.NewString(),
		OutputPath: "/tmp/gallery",
		Status:     entity.RunSucceeded,
		Total:      3,
		Processed:  2,
		Skipped:    1,
		Message:    "Gallery created",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
	}
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.FindByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Processed, got.Processed)
	assert.Equal(t, entity.RunSucceeded, got.Status)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))

	run.Status = entity.RunFailed
	require.NoError(t, repo.Save(ctx, run))
	got, err = repo.FindByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunFailed, got.Status)

	recent, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	_, err = repo.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrRunNotFound)
}
