package recordings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetscribe/backend/internal/models"
)

// Repository handles recording persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordingColumns = `id, filename, storage_path, file_size, status, upload_time, processed_at, transcript, summary, created_at`

// Create inserts a new recording with the caller-assigned id.
func (r *Repository) Create(ctx context.Context, rec *models.Recording) error {
	const q = `INSERT INTO recordings (id, filename, storage_path, file_size, status, upload_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, q, rec.ID, rec.Filename, rec.StoragePath, rec.FileSize, rec.Status, rec.UploadTime).
		Scan(&rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID returns a recording by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	const q = `SELECT ` + recordingColumns + ` FROM recordings WHERE id = $1`
	var rec models.Recording
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&rec.ID, &rec.Filename, &rec.StoragePath, &rec.FileSize, &rec.Status,
		&rec.UploadTime, &rec.ProcessedAt, &rec.Transcript, &rec.Summary, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// List returns recordings ordered by creation time descending.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Recording, error) {
	const q = `SELECT ` + recordingColumns + ` FROM recordings ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.Recording, 0)
	for rows.Next() {
		var rec models.Recording
		if err := rows.Scan(
			&rec.ID, &rec.Filename, &rec.StoragePath, &rec.FileSize, &rec.Status,
			&rec.UploadTime, &rec.ProcessedAt, &rec.Transcript, &rec.Summary, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// UpdateStatus sets the recording status. Safe to repeat with the same status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	const q = `UPDATE recordings SET status = $1 WHERE id = $2`
	tag, err := r.pool.Exec(ctx, q, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkProcessed records a successful run: status, processed_at, transcript and
// summary change together in one statement so a reader never sees a partial result.
func (r *Repository) MarkProcessed(ctx context.Context, id uuid.UUID, transcript, summary string, processedAt time.Time) error {
	const q = `UPDATE recordings SET status = $1, processed_at = $2, transcript = $3, summary = $4 WHERE id = $5`
	tag, err := r.pool.Exec(ctx, q, models.RecordingStatusProcessed, processedAt, transcript, summary, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkFailed records an exhausted run. Transcript and summary stay absent.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	const q = `UPDATE recordings SET status = $1, processed_at = $2 WHERE id = $3`
	tag, err := r.pool.Exec(ctx, q, models.RecordingStatusFailed, processedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes a recording row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM recordings WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CountStaleProcessing counts recordings stuck in processing longer than maxAge.
// There is no automatic reconciliation; callers only log the count.
func (r *Repository) CountStaleProcessing(ctx context.Context, maxAge time.Duration) (int, error) {
	const q = `SELECT COUNT(*) FROM recordings WHERE status = $1 AND upload_time < $2`
	var n int
	err := r.pool.QueryRow(ctx, q, models.RecordingStatusProcessing, time.Now().Add(-maxAge)).Scan(&n)
	return n, err
}
