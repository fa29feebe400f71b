package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/noah-isme/video-upload-form/internal/models"
	"github.com/noah-isme/video-upload-form/pkg/jobs"
)

type ingestStore interface {
	GetByID(ctx context.Context, id string) (*models.VideoSubmission, error)
	UpdateVerification(ctx context.Context, id string, status models.VideoStatus, detectedMime string) error
	ListSweepable(ctx context.Context, before time.Time, limit int) ([]models.VideoSubmission, error)
	ClearFilePath(ctx context.Context, id string) error
}

type ingestFiles interface {
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// IngestService verifies stored uploads by content and sweeps files that
// are no longer needed.
type IngestService struct {
	repo      ingestStore
	files     ingestFiles
	metrics   *MetricsService
	logger    *zap.Logger
	retention time.Duration
	now       func() time.Time
}

// NewIngestService constructs the service.
func NewIngestService(repo ingestStore, files ingestFiles, metrics *MetricsService, logger *zap.Logger, retention time.Duration) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &IngestService{repo: repo, files: files, metrics: metrics, logger: logger, retention: retention, now: time.Now}
}

// Handle processes one queue job.
func (s *IngestService) Handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case JobTypeVerify:
		return s.Verify(ctx, job.Payload)
	default:
		s.logger.Warn("unknown ingest job type", zap.String("type", job.Type), zap.String("job_id", job.ID))
		return nil
	}
}

// Verify sniffs the stored bytes of a submission and records whether they
// are actually a video.
func (s *IngestService) Verify(ctx context.Context, id string) error {
	video, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("video vanished before verification", zap.String("id", id))
			return nil
		}
		return fmt.Errorf("load video %s: %w", id, err)
	}
	if video.DeletedAt != nil || video.FilePath == nil || video.Status != models.VideoStatusPending {
		return nil
	}

	detected, err := s.detect(*video.FilePath)
	if err != nil {
		return err
	}
	status := models.VideoStatusRejected
	if strings.HasPrefix(detected, "video/") {
		status = models.VideoStatusVerified
	}
	if err := s.repo.UpdateVerification(ctx, video.ID, status, detected); err != nil {
		return fmt.Errorf("record verification for %s: %w", id, err)
	}
	s.metrics.RecordIngest(string(status))
	s.logger.Info("video verified",
		zap.String("id", video.ID),
		zap.String("status", string(status)),
		zap.String("declared_mime", video.MimeType),
		zap.String("detected_mime", detected),
	)
	return nil
}

func (s *IngestService) detect(path string) (string, error) {
	file, err := s.files.Open(path)
	if err != nil {
		return "", fmt.Errorf("open stored video: %w", err)
	}
	defer file.Close() //nolint:errcheck

	mtype, err := mimetype.DetectReader(io.LimitReader(file, 3072))
	if err != nil {
		return "", fmt.Errorf("detect video type: %w", err)
	}
	detected := mtype.String()
	if idx := strings.Index(detected, ";"); idx >= 0 {
		detected = detected[:idx]
	}
	return detected, nil
}

// Sweep removes stored files of rejected or deleted submissions older than
// the retention window and returns how many were cleared.
func (s *IngestService) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention)
	items, err := s.repo.ListSweepable(ctx, cutoff, 100)
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, item := range items {
		if item.FilePath == nil {
			continue
		}
		if err := s.files.Delete(*item.FilePath); err != nil {
			s.logger.Warn("sweep failed to delete file", zap.String("id", item.ID), zap.Error(err))
			continue
		}
		if err := s.repo.ClearFilePath(ctx, item.ID); err != nil {
			s.logger.Warn("sweep failed to clear file path", zap.String("id", item.ID), zap.Error(err))
			continue
		}
		cleared++
	}
	if cleared > 0 {
		s.logger.Info("swept stored videos", zap.Int("count", cleared))
	}
	return cleared, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *IngestService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("video sweep failed", zap.Error(err))
			}
		}
	}
}
