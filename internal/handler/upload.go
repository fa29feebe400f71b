package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/video-upload-form/internal/dto"
	"github.com/noah-isme/video-upload-form/internal/service"
)

// multipartOverhead is the allowance for form fields and part headers on top
// of the largest accepted file.
const multipartOverhead = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

func limitBody(c *gin.Context, maxFileSize int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFileSize+multipartOverhead)
}

// readUpload returns the selected file, or nil when none was selected. The
// returned close func is always safe to call.
func readUpload(c *gin.Context, field string) (*service.VideoUpload, func(), error) {
	noop := func() {}
	header, err := c.FormFile(field)
	if err != nil {
		switch {
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, noop, nil
		case isBodyTooLarge(err):
			return nil, noop, errBodyTooLarge
		default:
			return nil, noop, err
		}
	}
	if header.Filename == "" && header.Size == 0 {
		return nil, noop, nil
	}
	file, err := header.Open()
	if err != nil {
		return nil, noop, err
	}
	upload := &service.VideoUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	}
	return upload, func() { _ = file.Close() }, nil
}

func readForm(c *gin.Context) dto.VideoForm {
	return dto.VideoForm{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Duration:    c.PostForm("duration"),
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func tooLargeErrors() service.FieldErrors {
	return service.FieldErrors{service.FieldVideo: "Video size is too large"}
}
