package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/video-upload-form/internal/models"
	"github.com/noah-isme/video-upload-form/pkg/jobs"
	"github.com/noah-isme/video-upload-form/pkg/storage"
)

func storeFixture(t *testing.T, repo *videoRepoStub, files *storage.LocalStorage, id string, content []byte, submittedAt time.Time) string {
	t.Helper()
	path, _, err := files.SaveStream("2026/10/17/"+id+".mp4", bytes.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &models.VideoSubmission{
		ID:          id,
		Name:        "clip",
		Description: "clip",
		Filename:    "clip.mp4",
		SizeBytes:   int64(len(content)),
		MimeType:    "video/mp4",
		FilePath:    &path,
		Status:      models.VideoStatusPending,
		SubmittedAt: submittedAt,
	}))
	return path
}

func TestIngestServiceVerify(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newVideoRepoStub()
	svc := NewIngestService(repo, files, NewMetricsService(), nil, time.Hour)
	now := time.Now().UTC()

	storeFixture(t, repo, files, "real", mp4Header, now)
	storeFixture(t, repo, files, "fake", []byte("just some plain text pretending to be a video"), now)

	ctx := context.Background()
	require.NoError(t, svc.Handle(ctx, jobs.Job{Type: JobTypeVerify, Payload: "real"}))
	require.NoError(t, svc.Handle(ctx, jobs.Job{Type: JobTypeVerify, Payload: "fake"}))

	assert.Equal(t, models.VideoStatusVerified, repo.items["real"].Status)
	assert.Equal(t, "video/mp4", *repo.items["real"].DetectedMime)
	assert.Equal(t, models.VideoStatusRejected, repo.items["fake"].Status)
	assert.Equal(t, "text/plain", *repo.items["fake"].DetectedMime)
}

func TestIngestServiceSkipsMissingAndUnknown(t *testing.T) {
	svc := NewIngestService(newVideoRepoStub(), nil, nil, nil, 0)
	ctx := context.Background()

	assert.NoError(t, svc.Verify(ctx, "missing"))
	assert.NoError(t, svc.Handle(ctx, jobs.Job{Type: "video.transcode", Payload: "x"}))
}

func TestIngestServiceVerifyFailsWhenFileMissing(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newVideoRepoStub()
	path := storeFixture(t, repo, files, "gone", mp4Header, time.Now())
	require.NoError(t, files.Delete(path))

	svc := NewIngestService(repo, files, nil, nil, time.Hour)
	assert.Error(t, svc.Verify(context.Background(), "gone"))
	assert.Equal(t, models.VideoStatusPending, repo.items["gone"].Status)
}

func TestIngestServiceSweep(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newVideoRepoStub()
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	oldRejected := storeFixture(t, repo, files, "old-rejected", []byte("text"), now.Add(-48*time.Hour))
	repo.items["old-rejected"].Status = models.VideoStatusRejected
	storeFixture(t, repo, files, "old-verified", mp4Header, now.Add(-48*time.Hour))
	repo.items["old-verified"].Status = models.VideoStatusVerified
	storeFixture(t, repo, files, "fresh-rejected", []byte("text"), now.Add(-time.Hour))
	repo.items["fresh-rejected"].Status = models.VideoStatusRejected

	svc := NewIngestService(repo, files, nil, nil, 24*time.Hour)
	svc.now = func() time.Time { return now }

	cleared, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)
	assert.Nil(t, repo.items["old-rejected"].FilePath)
	assert.NotNil(t, repo.items["old-verified"].FilePath)
	assert.NotNil(t, repo.items["fresh-rejected"].FilePath)

	_, err = files.Open(oldRejected)
	assert.Error(t, err)
}

func TestIngestServiceRunSweeperStopsOnCancel(t *testing.T) {
	svc := NewIngestService(newVideoRepoStub(), nil, nil, nil, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
