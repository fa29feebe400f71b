package handler

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/video-upload-form/internal/service"
)

type uploadPart struct {
	filename    string
	contentType string
	content     []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *uploadPart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video"; filename=%q`, file.filename))
		header.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func validFile() *uploadPart {
	return &uploadPart{filename: "test_video.mp4", contentType: "video/mp4", content: []byte("\x00\x00\x00\x18ftypmp42")}
}

func newTestRouter(t *testing.T, rules service.VideoRules) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	videos := service.NewVideoService(service.NewVideoValidator(nil, rules), nil, nil, nil, nil, nil, nil, log, service.VideoServiceConfig{APIPrefix: "/api/v1"})
	router := NewRouter(RouterConfig{
		Env:       "test",
		APIPrefix: "/api/v1",
		Logger:    log,
		Videos:    videos,
	})
	return router, logs
}

func postMultipart(t *testing.T, router http.Handler, path string, fields map[string]string, file *uploadPart) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, file)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
