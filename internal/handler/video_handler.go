package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/video-upload-form/internal/dto"
	"github.com/noah-isme/video-upload-form/internal/models"
	"github.com/noah-isme/video-upload-form/internal/repository"
	"github.com/noah-isme/video-upload-form/internal/service"
	appErrors "github.com/noah-isme/video-upload-form/pkg/errors"
	"github.com/noah-isme/video-upload-form/pkg/response"
)

type videoService interface {
	Rules() service.VideoRules
	StorageEnabled() bool
	Validate(ctx context.Context, req dto.ValidateVideoRequest) service.FieldErrors
	Submit(ctx context.Context, form dto.VideoForm, upload *service.VideoUpload) (*models.VideoSubmission, error)
	List(ctx context.Context, filter models.VideoFilter) ([]models.VideoSubmission, error)
	Detail(ctx context.Context, id string) (*dto.VideoDetailResponse, error)
	Stream(ctx context.Context, id, token string) (*service.VideoStream, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, format string) (*service.VideoExport, error)
}

// VideoHandler exposes the JSON video endpoints.
type VideoHandler struct {
	service videoService
}

// NewVideoHandler constructs the handler.
func NewVideoHandler(service videoService) *VideoHandler {
	return &VideoHandler{service: service}
}

// Create godoc
// @Summary Submit a video
// @Tags Videos
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Video name"
// @Param description formData string true "Video description"
// @Param duration formData number false "Duration in seconds"
// @Param video formData file true "Video file"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /videos [post]
func (h *VideoHandler) Create(c *gin.Context) {
	limitBody(c, h.service.Rules().MaxSizeBytes)

	upload, closeUpload, err := readUpload(c, "video")
	defer closeUpload()
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, tooLargeErrors()))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "invalid multipart payload"))
		return
	}
	video, err := h.service.Submit(c.Request.Context(), readForm(c), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, video)
}

// Validate godoc
// @Summary Re-validate form fields
// @Description Returns the message of each failing field without accepting anything.
// @Tags Videos
// @Accept json
// @Produce json
// @Param payload body dto.ValidateVideoRequest true "Current field values"
// @Success 200 {object} response.Envelope
// @Router /videos/validate [post]
func (h *VideoHandler) Validate(c *gin.Context) {
	var req dto.ValidateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "invalid JSON payload"))
		return
	}
	errs := h.service.Validate(c.Request.Context(), req)
	response.JSON(c, http.StatusOK, dto.ValidateVideoResponse{Valid: errs.Empty(), Errors: errs}, nil)
}

// List godoc
// @Summary List stored videos
// @Tags Videos
// @Produce json
// @Param status query string false "PENDING, VERIFIED or REJECTED"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /videos [get]
func (h *VideoHandler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, offset = repository.NormalizeWindow(limit, offset)
	filter := models.VideoFilter{Limit: limit, Offset: offset}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		filter.Status = models.VideoStatus(strings.ToUpper(status))
		switch filter.Status {
		case models.VideoStatusPending, models.VideoStatusVerified, models.VideoStatusRejected:
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "unknown status filter"))
			return
		}
	}
	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, &models.Pagination{Limit: limit, Offset: offset, Count: len(items)})
}

// Get godoc
// @Summary Get video metadata
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /videos/{id} [get]
func (h *VideoHandler) Get(c *gin.Context) {
	detail, err := h.service.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Stream godoc
// @Summary Stream a stored video via signed token
// @Tags Videos
// @Produce octet-stream
// @Param id path string true "Video ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /videos/{id}/stream [get]
func (h *VideoHandler) Stream(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "token is required"))
		return
	}
	result, err := h.service.Stream(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.File, nil)
}

// Delete godoc
// @Summary Delete a stored video
// @Tags Videos
// @Param id path string true "Video ID"
// @Success 204
// @Router /videos/{id} [delete]
func (h *VideoHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export stored videos
// @Tags Videos
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /videos/export [get]
func (h *VideoHandler) Export(c *gin.Context) {
	result, err := h.service.Export(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrBadRequest, key+" must be an integer")
	}
	return value, nil
}
