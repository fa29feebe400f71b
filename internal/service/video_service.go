package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/video-upload-form/internal/dto"
	"github.com/noah-isme/video-upload-form/internal/models"
	appErrors "github.com/noah-isme/video-upload-form/pkg/errors"
	"github.com/noah-isme/video-upload-form/pkg/export"
	"github.com/noah-isme/video-upload-form/pkg/jobs"
	"github.com/noah-isme/video-upload-form/pkg/storage"
)

// JobTypeVerify is the ingest job type that sniffs a stored upload.
const JobTypeVerify = "video.verify"

const listCachePattern = "list:*"

type videoStore interface {
	Create(ctx context.Context, video *models.VideoSubmission) error
	GetByID(ctx context.Context, id string) (*models.VideoSubmission, error)
	List(ctx context.Context, filter models.VideoFilter) ([]models.VideoSubmission, error)
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
}

type videoFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, int64, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type videoSigner interface {
	Generate(videoID, relPath string) (string, time.Time, error)
	Parse(token string) (videoID, relPath string, expiresAt time.Time, err error)
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

// VideoUpload carries the selected file. Content may be nil when storage is
// disabled.
type VideoUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// VideoStream bundles an opened stored file for streaming.
type VideoStream struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
	ExpiresAt time.Time
}

// VideoExport is a rendered listing export.
type VideoExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// VideoServiceConfig holds settings for optional storage.
type VideoServiceConfig struct {
	APIPrefix string
}

// VideoService validates upload form submissions, logs accepted payloads and,
// when storage is configured, persists them.
type VideoService struct {
	validator *VideoValidator
	repo      videoStore
	files     videoFileStorage
	signer    videoSigner
	cache     *CacheService
	ingest    jobEnqueuer
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       VideoServiceConfig
	now       func() time.Time
}

// NewVideoService constructs the service. repo, files, signer, cache and
// ingest may be nil; storage is enabled only when repo and files are set.
func NewVideoService(validator *VideoValidator, repo videoStore, files videoFileStorage, signer videoSigner, cache *CacheService, ingest jobEnqueuer, metrics *MetricsService, logger *zap.Logger, cfg VideoServiceConfig) *VideoService {
	if validator == nil {
		validator = NewVideoValidator(nil, DefaultVideoRules())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &VideoService{
		validator: validator,
		repo:      repo,
		files:     files,
		signer:    signer,
		cache:     cache,
		ingest:    ingest,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// StorageEnabled reports whether accepted submissions are persisted.
func (s *VideoService) StorageEnabled() bool {
	return s.repo != nil && s.files != nil
}

// Rules returns the limits enforced on the form.
func (s *VideoService) Rules() VideoRules {
	return s.validator.Rules()
}

// Validate checks current field values without accepting anything.
func (s *VideoService) Validate(ctx context.Context, req dto.ValidateVideoRequest) FieldErrors {
	return s.validator.ValidateRequest(req)
}

// Submit validates a form submission. Validation failures are returned as a
// VALIDATION_ERROR carrying per-field details.
func (s *VideoService) Submit(ctx context.Context, form dto.VideoForm, upload *VideoUpload) (*models.VideoSubmission, error) {
	var file *VideoFile
	if upload != nil {
		file = &VideoFile{Filename: upload.Filename, Size: upload.Size, ContentType: upload.MimeType}
	}
	if errs := s.validator.Validate(form, file); !errs.Empty() {
		s.metrics.RecordRejection(errs)
		s.logger.Debug("video submission rejected", zap.Strings("fields", errs.Fields()))
		return nil, appErrors.WithDetails(appErrors.ErrValidation, errs)
	}

	submission := &models.VideoSubmission{
		ID:          uuid.NewString(),
		Name:        form.Name,
		Description: form.Description,
		Filename:    filepath.Base(upload.Filename),
		SizeBytes:   upload.Size,
		MimeType:    upload.MimeType,
		Duration:    parseDuration(form.Duration),
		SubmittedAt: s.now().UTC(),
	}

	if s.StorageEnabled() {
		if err := s.persist(ctx, submission, upload); err != nil {
			return nil, err
		}
	}

	s.metrics.RecordSubmission(submission.SizeBytes)
	fields := []zap.Field{
		zap.String("id", submission.ID),
		zap.String("name", submission.Name),
		zap.String("description", submission.Description),
		zap.String("filename", submission.Filename),
		zap.Int64("size_bytes", submission.SizeBytes),
		zap.String("mime_type", submission.MimeType),
		zap.Bool("stored", submission.FilePath != nil),
	}
	if submission.Duration != nil {
		fields = append(fields, zap.Float64("duration_seconds", *submission.Duration))
	}
	s.logger.Info("video submission accepted", fields...)
	return submission, nil
}

func (s *VideoService) persist(ctx context.Context, submission *models.VideoSubmission, upload *VideoUpload) error {
	if upload.Content == nil {
		return appErrors.Clone(appErrors.ErrInternal, "upload stream missing")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	path, written, err := s.files.SaveStream(storagePath(submission), upload.Content)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store video file")
	}
	if written != upload.Size {
		s.logger.Warn("stored size differs from declared size", zap.String("id", submission.ID), zap.Int64("declared", upload.Size), zap.Int64("written", written))
		submission.SizeBytes = written
	}
	submission.FilePath = &path
	submission.Status = models.VideoStatusPending
	if err := s.repo.Create(ctx, submission); err != nil {
		_ = s.files.Delete(path)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record video submission")
	}
	s.cache.Invalidate(ctx, listCachePattern)

	if s.ingest != nil {
		if err := s.ingest.Enqueue(ctx, jobs.Job{Type: JobTypeVerify, Payload: submission.ID}); err != nil {
			s.logger.Warn("failed to enqueue video verification", zap.String("id", submission.ID), zap.Error(err))
		}
	}
	return nil
}

// List returns stored submissions newest first.
func (s *VideoService) List(ctx context.Context, filter models.VideoFilter) ([]models.VideoSubmission, error) {
	if !s.StorageEnabled() {
		return nil, errStorageDisabled()
	}
	key := fmt.Sprintf("list:%s:%d:%d", filter.Status, filter.Limit, filter.Offset)
	var cached []models.VideoSubmission
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list videos")
	}
	s.cache.Set(ctx, key, items)
	return items, nil
}

// Get returns a stored, non-deleted submission.
func (s *VideoService) Get(ctx context.Context, id string) (*models.VideoSubmission, error) {
	if !s.StorageEnabled() {
		return nil, errStorageDisabled()
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.ErrNotFound
	}
	video, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load video")
	}
	if video.DeletedAt != nil {
		return nil, appErrors.ErrNotFound
	}
	return video, nil
}

// Detail returns metadata with a signed stream URL when the file is playable.
func (s *VideoService) Detail(ctx context.Context, id string) (*dto.VideoDetailResponse, error) {
	video, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.VideoDetailResponse{VideoSubmission: *video}
	if s.signer == nil || video.FilePath == nil || video.Status == models.VideoStatusRejected {
		return resp, nil
	}
	token, _, err := s.signer.Generate(video.ID, *video.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate stream token")
	}
	resp.StreamURL = fmt.Sprintf("%s/videos/%s/stream?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), video.ID, token)
	return resp, nil
}

// Stream validates the token and opens the stored file.
func (s *VideoService) Stream(ctx context.Context, id, token string) (*VideoStream, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "stream signer unavailable")
	}
	video, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	videoID, relPath, expiresAt, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "stream token expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid stream token")
	}
	if video.FilePath == nil || videoID != video.ID || relPath != *video.FilePath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open video file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read video metadata")
	}
	mimeType := video.MimeType
	if video.DetectedMime != nil && *video.DetectedMime != "" {
		mimeType = *video.DetectedMime
	}
	return &VideoStream{
		File:      file,
		Filename:  video.Filename,
		MimeType:  mimeType,
		SizeBytes: info.Size(),
		ExpiresAt: expiresAt,
	}, nil
}

// Delete soft deletes a submission and removes its stored file.
func (s *VideoService) Delete(ctx context.Context, id string) error {
	video, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, video.ID, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete video")
	}
	if video.FilePath != nil {
		if err := s.files.Delete(*video.FilePath); err != nil {
			s.logger.Warn("failed to remove video file", zap.String("id", video.ID), zap.Error(err))
		}
	}
	s.cache.Invalidate(ctx, listCachePattern)
	s.logger.Info("video submission deleted", zap.String("id", video.ID))
	return nil
}

// Export renders the newest stored submissions as CSV or PDF.
func (s *VideoService) Export(ctx context.Context, format string) (*VideoExport, error) {
	if !s.StorageEnabled() {
		return nil, errStorageDisabled()
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "format must be csv or pdf")
	}
	items, err := s.repo.List(ctx, models.VideoFilter{Limit: 200})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list videos")
	}
	dataset := videoDataset(items)
	stamp := s.now().UTC().Format("20060102-150405")

	var out *VideoExport
	switch format {
	case "pdf":
		data, err := export.PDF(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
		}
		out = &VideoExport{Filename: "videos-" + stamp + ".pdf", ContentType: "application/pdf", Data: data}
	default:
		data, err := export.CSV(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
		}
		out = &VideoExport{Filename: "videos-" + stamp + ".csv", ContentType: "text/csv", Data: data}
	}
	return out, nil
}

func videoDataset(items []models.VideoSubmission) export.Dataset {
	headers := []string{"id", "name", "description", "filename", "size_bytes", "mime_type", "duration_seconds", "status", "submitted_at"}
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		duration := ""
		if item.Duration != nil {
			duration = strconv.FormatFloat(*item.Duration, 'f', -1, 64)
		}
		rows = append(rows, map[string]string{
			"id":               item.ID,
			"name":             item.Name,
			"description":      item.Description,
			"filename":         item.Filename,
			"size_bytes":       strconv.FormatInt(item.SizeBytes, 10),
			"mime_type":        item.MimeType,
			"duration_seconds": duration,
			"status":           string(item.Status),
			"submitted_at":     item.SubmittedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Title: "Video submissions", Headers: headers, Rows: rows}
}

func storagePath(video *models.VideoSubmission) string {
	ext := sanitizeExt(filepath.Ext(video.Filename))
	if ext == "" {
		ext = ".video"
	}
	return filepath.ToSlash(filepath.Join(video.SubmittedAt.Format("2006/01/02"), video.ID+ext))
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}

func parseDuration(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &seconds
}

func errStorageDisabled() *appErrors.Error {
	return appErrors.Clone(appErrors.ErrUnavailable, "video storage is disabled")
}
