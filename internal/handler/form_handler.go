package handler

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/video-upload-form/internal/dto"
	"github.com/noah-isme/video-upload-form/internal/models"
	"github.com/noah-isme/video-upload-form/internal/service"
	appErrors "github.com/noah-isme/video-upload-form/pkg/errors"
	"github.com/noah-isme/video-upload-form/pkg/logger"
)

//go:embed templates/form.html
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/form.html"))

type formSubmitter interface {
	Rules() service.VideoRules
	Submit(ctx context.Context, form dto.VideoForm, upload *service.VideoUpload) (*models.VideoSubmission, error)
}

type formView struct {
	Values      dto.VideoForm
	Errors      service.FieldErrors
	Created     string
	ValidateURL string
	Submitted   bool
}

// FormHandler serves the upload form page.
type FormHandler struct {
	service     formSubmitter
	validateURL string
	logger      *zap.Logger
}

// NewFormHandler constructs the handler. apiPrefix locates the live
// re-validation endpoint used by the page script.
func NewFormHandler(service formSubmitter, apiPrefix string, logger *zap.Logger) *FormHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormHandler{
		service:     service,
		validateURL: strings.TrimRight(apiPrefix, "/") + "/videos/validate",
		logger:      logger,
	}
}

// Show renders an empty form. After a successful submit the created id is
// passed back as ?created= and shown as a notice.
func (h *FormHandler) Show(c *gin.Context) {
	view := h.view()
	created := strings.TrimSpace(c.Query("created"))
	if len(created) > 64 {
		created = created[:64]
	}
	view.Created = created
	h.render(c, http.StatusOK, view)
}

// Submit validates a posted form. Invalid submissions re-render the form
// with the entered text and inline messages; valid ones redirect back to an
// empty form.
func (h *FormHandler) Submit(c *gin.Context) {
	limitBody(c, h.service.Rules().MaxSizeBytes)

	upload, closeUpload, err := readUpload(c, "video")
	defer closeUpload()
	form := readForm(c)

	view := h.view()
	view.Values = form
	view.Submitted = true

	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			view.Errors = tooLargeErrors()
			h.render(c, http.StatusUnprocessableEntity, view)
			return
		}
		logger.FromContext(c, h.logger).Warn("failed to read upload form", zap.Error(err))
		view.Errors = service.FieldErrors{service.FieldVideo: "Please upload the video"}
		h.render(c, http.StatusBadRequest, view)
		return
	}

	video, err := h.service.Submit(c.Request.Context(), form, upload)
	if err != nil {
		appErr := appErrors.FromError(err)
		if len(appErr.Details) == 0 {
			_ = c.Error(err)
			c.String(appErr.Status, appErr.Message)
			return
		}
		view.Errors = service.FieldErrors(appErr.Details)
		h.render(c, appErr.Status, view)
		return
	}
	c.Redirect(http.StatusSeeOther, "/?created="+url.QueryEscape(video.ID))
}

func (h *FormHandler) view() formView {
	return formView{Errors: service.FieldErrors{}, ValidateURL: h.validateURL}
}

func (h *FormHandler) render(c *gin.Context, status int, view formView) {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, view); err != nil {
		logger.FromContext(c, h.logger).Error("failed to render form", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to render form")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
