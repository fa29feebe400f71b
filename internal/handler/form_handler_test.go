package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/video-upload-form/internal/service"
)

var allMessages = []string{
	"Video name is required",
	"Video name must be at most 50 characters",
	"Video description is required",
	"Video description must be at most 200 characters",
	"Please upload the video",
	"Video size is too large",
	"Invalid video format",
}

func assertNoMessages(t *testing.T, body string) {
	t.Helper()
	for _, msg := range allMessages {
		assert.NotContains(t, body, msg)
	}
}

func TestFormHandlerRendersForm(t *testing.T) {
	router, _ := newTestRouter(t, service.DefaultVideoRules())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, ">Video Name</label>")
	assert.Contains(t, body, ">Video Description</label>")
	assert.Contains(t, body, `rows="4"`)
	assert.Contains(t, body, `accept="video/*"`)
	assert.Contains(t, body, ">Create Video</button>")
	assert.Contains(t, body, `data-validate-url="/api/v1/videos/validate"`)
	assert.NotContains(t, body, `id="created-notice"`)
	assertNoMessages(t, body)
}

func TestFormHandlerEmptySubmitShowsRequiredMessages(t *testing.T) {
	router, logs := newTestRouter(t, service.DefaultVideoRules())
	rec := postMultipart(t, router, "/", map[string]string{"name": "", "description": ""}, nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Video name is required")
	assert.Contains(t, body, "Video description is required")
	assert.Contains(t, body, "Please upload the video")
	assert.Contains(t, body, `data-submitted="true"`)
	assert.Zero(t, logs.FilterMessage("video submission accepted").Len())
}

func TestFormHandlerLengthLimits(t *testing.T) {
	router, _ := newTestRouter(t, service.DefaultVideoRules())

	longName := strings.Repeat("a", 51)
	rec := postMultipart(t, router, "/", map[string]string{"name": longName, "description": "Test Description"}, validFile())
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Video name must be at most 50 characters")
	assert.Contains(t, rec.Body.String(), `value="`+longName+`"`)
	assert.Contains(t, rec.Body.String(), ">Test Description</textarea>")

	longDescription := strings.Repeat("a", 201)
	rec = postMultipart(t, router, "/", map[string]string{"name": "Test Name", "description": longDescription}, validFile())
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Video description must be at most 200 characters")
	assert.NotContains(t, rec.Body.String(), "Video name must be at most 50 characters")
	assert.Contains(t, rec.Body.String(), `value="Test Name"`)
}

func TestFormHandlerRejectsNonVideo(t *testing.T) {
	router, _ := newTestRouter(t, service.DefaultVideoRules())
	file := &uploadPart{filename: "notes.txt", contentType: "text/plain", content: []byte("hello")}

	rec := postMultipart(t, router, "/", map[string]string{"name": "Test Name", "description": "Test Description"}, file)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid video format")
}

func TestFormHandlerRejectsOversizedFile(t *testing.T) {
	router, _ := newTestRouter(t, service.VideoRules{MaxSizeBytes: 10})
	file := &uploadPart{filename: "large_video.mp4", contentType: "video/mp4", content: []byte(strings.Repeat("x", 11))}

	rec := postMultipart(t, router, "/", map[string]string{"name": "Test Name", "description": "Test Description"}, file)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Video size is too large")
	assert.NotContains(t, rec.Body.String(), "Invalid video format")
}

func TestFormHandlerRejectsOversizedBody(t *testing.T) {
	router, _ := newTestRouter(t, service.VideoRules{MaxSizeBytes: 10})
	file := &uploadPart{filename: "large_video.mp4", contentType: "video/mp4", content: make([]byte, multipartOverhead+64)}

	rec := postMultipart(t, router, "/", map[string]string{"name": "Test Name", "description": "Test Description"}, file)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Video size is too large")
}

func TestFormHandlerValidSubmitRedirectsToEmptyForm(t *testing.T) {
	router, logs := newTestRouter(t, service.DefaultVideoRules())
	rec := postMultipart(t, router, "/", map[string]string{"name": "Test Name", "description": "Test Description"}, validFile())

	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/?created="))
	_, err := uuid.Parse(strings.TrimPrefix(location, "/?created="))
	require.NoError(t, err)

	entries := logs.FilterMessage("video submission accepted").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Test Name", entries[0].ContextMap()["name"])

	follow := httptest.NewRecorder()
	router.ServeHTTP(follow, httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, follow.Code)
	body := follow.Body.String()
	assert.Contains(t, body, `id="created-notice"`)
	assert.Contains(t, body, `id="name" name="name" value=""`)
	assert.NotContains(t, body, "Test Description")
	assertNoMessages(t, body)
}

func TestFormHandlerEscapesValues(t *testing.T) {
	router, _ := newTestRouter(t, service.DefaultVideoRules())
	rec := postMultipart(t, router, "/", map[string]string{"name": `<script>alert(1)</script>`, "description": ""}, nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>alert(1)</script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}
