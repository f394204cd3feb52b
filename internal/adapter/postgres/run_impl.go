package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
)

const defaultListLimit = 50

// RunRepoImpl provides a concrete implementation for the RunRepository interface using PostgreSQL.
type RunRepoImpl struct {
	db *pgxpool.Pool
}

// NewRunRepo creates a new instance of RunRepoImpl.
func NewRunRepo(db *pgxpool.Pool) *RunRepoImpl {
	return &RunRepoImpl{db: db}
}

var _ repository.RunRepository = (*RunRepoImpl)(nil)

// Save stores a run, replacing the previous record for the same ID.
func (r *RunRepoImpl) Save(ctx context.Context, run *entity.GalleryRun) error {
	query := `
		INSERT INTO gallery_runs (id, output_path, status, total, processed, skipped, message, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			output_path = EXCLUDED.output_path,
			status = EXCLUDED.status,
			total = EXCLUDED.total,
			processed = EXCLUDED.processed,
			skipped = EXCLUDED.skipped,
			message = EXCLUDED.message,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at;
	`
	_, err := r.db.Exec(ctx, query,
		run.ID,
		run.OutputPath,
		string(run.Status),
		run.Total,
		run.Processed,
		run.Skipped,
		run.Message,
		run.StartedAt,
		run.FinishedAt,
	)
	return err
}

// FindByID retrieves one run.
func (r *RunRepoImpl) FindByID(ctx context.Context, id string) (*entity.GalleryRun, error) {
	query := `
		SELECT id, output_path, status, total, processed, skipped, message, started_at, finished_at
		FROM gallery_runs
		WHERE id = $1;
	`
	run, err := scanRun(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrRunNotFound
	}
	return run, err
}

// ListRecent retrieves the newest runs first.
func (r *RunRepoImpl) ListRecent(ctx context.Context, limit int) ([]*entity.GalleryRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT id, output_path, status, total, processed, skipped, message, started_at, finished_at
		FROM gallery_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*entity.GalleryRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*entity.GalleryRun, error) {
	var (
		run    entity.GalleryRun
		status string
	)
	err := row.Scan(
		&run.ID,
		&run.OutputPath,
		&status,
		&run.Total,
		&run.Processed,
		&run.Skipped,
		&run.Message,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Status = entity.RunStatus(status)
	return &run, nil
}
