package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/video-upload-form/internal/models"
)

const videoColumns = `id, name, description, filename, size_bytes, mime_type, duration_seconds,
       file_path, detected_mime, status, submitted_at, deleted_at`

// VideoRepository persists accepted video submissions.
type VideoRepository struct {
	db *sqlx.DB
}

// NewVideoRepository constructs the repository.
func NewVideoRepository(db *sqlx.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create stores a submission row.
func (r *VideoRepository) Create(ctx context.Context, video *models.VideoSubmission) error {
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.SubmittedAt.IsZero() {
		video.SubmittedAt = time.Now().UTC()
	}
	if video.Status == "" {
		video.Status = models.VideoStatusPending
	}
	const query = `INSERT INTO video_submissions
	(id, name, description, filename, size_bytes, mime_type, duration_seconds, file_path, detected_mime, status, submitted_at, deleted_at)
	VALUES (:id, :name, :description, :filename, :size_bytes, :mime_type, :duration_seconds, :file_path, :detected_mime, :status, :submitted_at, :deleted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, video); err != nil {
		return fmt.Errorf("create video submission: %w", err)
	}
	return nil
}

// GetByID retrieves one submission, deleted or not.
func (r *VideoRepository) GetByID(ctx context.Context, id string) (*models.VideoSubmission, error) {
	query := `SELECT ` + videoColumns + ` FROM video_submissions WHERE id = $1`
	var video models.VideoSubmission
	if err := r.db.GetContext(ctx, &video, query, id); err != nil {
		return nil, err
	}
	return &video, nil
}

// List returns submissions newest first, excluding deleted rows by default.
func (r *VideoRepository) List(ctx context.Context, filter models.VideoFilter) ([]models.VideoSubmission, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + videoColumns + ` FROM video_submissions`)
	args := make([]interface{}, 0, 1)
	conditions := make([]string, 0, 2)

	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY submitted_at DESC")

	limit, offset := NormalizeWindow(filter.Limit, filter.Offset)
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	records := make([]models.VideoSubmission, 0)
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list video submissions: %w", err)
	}
	return records, nil
}

// UpdateVerification records the outcome of content sniffing.
func (r *VideoRepository) UpdateVerification(ctx context.Context, id string, status models.VideoStatus, detectedMime string) error {
	const query = `UPDATE video_submissions SET status = $2, detected_mime = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, detectedMime)
	if err != nil {
		return fmt.Errorf("update video verification: %w", err)
	}
	return requireAffected(res)
}

// SoftDelete marks a submission as deleted.
func (r *VideoRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	const query = `UPDATE video_submissions SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete video submission: %w", err)
	}
	return requireAffected(res)
}

// ListSweepable returns rows whose stored file can be removed: rejected or
// deleted submissions older than the cutoff.
func (r *VideoRepository) ListSweepable(ctx context.Context, before time.Time, limit int) ([]models.VideoSubmission, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + videoColumns + ` FROM video_submissions
	WHERE file_path IS NOT NULL AND (status = $1 OR deleted_at IS NOT NULL) AND submitted_at < $2
	ORDER BY submitted_at ASC LIMIT $3`
	records := make([]models.VideoSubmission, 0)
	if err := r.db.SelectContext(ctx, &records, query, models.VideoStatusRejected, before, limit); err != nil {
		return nil, fmt.Errorf("list sweepable videos: %w", err)
	}
	return records, nil
}

// ClearFilePath detaches the stored file from a submission.
func (r *VideoRepository) ClearFilePath(ctx context.Context, id string) error {
	const query = `UPDATE video_submissions SET file_path = NULL WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("clear video file path: %w", err)
	}
	return requireAffected(res)
}

// NormalizeWindow clamps listing limit and offset.
func NormalizeWindow(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
