package service

import (
	"errors"
	"fmt"
	"math"
	"mime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/video-upload-form/internal/dto"
)

// Form field keys used in validation results.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldVideo       = "video"
	FieldDuration    = "duration"
)

// VideoFields lists form fields in display order.
var VideoFields = []string{FieldName, FieldDescription, FieldVideo, FieldDuration}

// FieldErrors maps a form field to the message of its first failing rule.
type FieldErrors map[string]string

// Empty reports whether no field failed.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Fields returns the failing fields in display order.
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for _, field := range VideoFields {
		if _, ok := f[field]; ok {
			out = append(out, field)
		}
	}
	return out
}

// VideoRules are the limits enforced on the upload form.
type VideoRules struct {
	MaxNameLength        int
	MaxDescriptionLength int
	MaxSizeBytes         int64
	MaxDurationSeconds   float64
}

// DefaultVideoRules mirrors the limits shown on the form.
func DefaultVideoRules() VideoRules {
	return VideoRules{
		MaxNameLength:        50,
		MaxDescriptionLength: 200,
		MaxSizeBytes:         100000000,
		MaxDurationSeconds:   600,
	}
}

// VideoFile is the selected file as declared by the client. A nil *VideoFile
// means no file was selected.
type VideoFile struct {
	Filename    string
	Size        int64
	ContentType string
}

// VideoValidator applies the upload form schema. Every field is checked and
// each reports only its first failing rule.
type VideoValidator struct {
	validate *validator.Validate
	rules    VideoRules

	nameTag        string
	descriptionTag string
	sizeTag        string
	durationTag    string
}

// NewVideoValidator constructs the validator, registering the video_mime rule.
func NewVideoValidator(validate *validator.Validate, rules VideoRules) *VideoValidator {
	if validate == nil {
		validate = validator.New()
	}
	defaults := DefaultVideoRules()
	if rules.MaxNameLength <= 0 {
		rules.MaxNameLength = defaults.MaxNameLength
	}
	if rules.MaxDescriptionLength <= 0 {
		rules.MaxDescriptionLength = defaults.MaxDescriptionLength
	}
	if rules.MaxSizeBytes <= 0 {
		rules.MaxSizeBytes = defaults.MaxSizeBytes
	}
	if rules.MaxDurationSeconds <= 0 {
		rules.MaxDurationSeconds = defaults.MaxDurationSeconds
	}
	_ = validate.RegisterValidation("video_mime", func(fl validator.FieldLevel) bool {
		return IsVideoMediaType(fl.Field().String())
	})
	return &VideoValidator{
		validate:       validate,
		rules:          rules,
		nameTag:        fmt.Sprintf("required,max=%d", rules.MaxNameLength),
		descriptionTag: fmt.Sprintf("required,max=%d", rules.MaxDescriptionLength),
		sizeTag:        fmt.Sprintf("lte=%d", rules.MaxSizeBytes),
		durationTag:    fmt.Sprintf("gte=0,lte=%s", formatSeconds(rules.MaxDurationSeconds)),
	}
}

// Rules returns the effective limits.
func (v *VideoValidator) Rules() VideoRules {
	return v.rules
}

// Validate checks the whole form.
func (v *VideoValidator) Validate(form dto.VideoForm, file *VideoFile) FieldErrors {
	errs := FieldErrors{}
	v.check(errs, FieldName, v.validate.Var(form.Name, v.nameTag), map[string]string{
		"required": "Video name is required",
		"max":      fmt.Sprintf("Video name must be at most %d characters", v.rules.MaxNameLength),
	})
	v.check(errs, FieldDescription, v.validate.Var(form.Description, v.descriptionTag), map[string]string{
		"required": "Video description is required",
		"max":      fmt.Sprintf("Video description must be at most %d characters", v.rules.MaxDescriptionLength),
	})
	v.validateFile(errs, file)
	v.validateDuration(errs, form.Duration)
	return errs
}

// ValidateRequest checks the values sent by the live re-validation endpoint.
func (v *VideoValidator) ValidateRequest(req dto.ValidateVideoRequest) FieldErrors {
	var file *VideoFile
	if req.Video != nil {
		file = &VideoFile{Filename: req.Video.Filename, Size: req.Video.Size, ContentType: req.Video.Type}
	}
	return v.Validate(dto.VideoForm{
		Name:        req.Name,
		Description: req.Description,
		Duration:    req.Duration,
	}, file)
}

func (v *VideoValidator) validateFile(errs FieldErrors, file *VideoFile) {
	if file == nil {
		errs[FieldVideo] = "Please upload the video"
		return
	}
	if err := v.validate.Var(file.Size, v.sizeTag); err != nil {
		errs[FieldVideo] = "Video size is too large"
		return
	}
	if err := v.validate.Var(file.ContentType, "video_mime"); err != nil {
		errs[FieldVideo] = "Invalid video format"
	}
}

func (v *VideoValidator) validateDuration(errs FieldErrors, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		errs[FieldDuration] = "Video duration must be a number"
		return
	}
	v.check(errs, FieldDuration, v.validate.Var(seconds, v.durationTag), map[string]string{
		"gte": "Video duration must not be negative",
		"lte": fmt.Sprintf("Video duration must be at most %s seconds", formatSeconds(v.rules.MaxDurationSeconds)),
	})
}

func (v *VideoValidator) check(errs FieldErrors, field string, err error, messages map[string]string) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := messages[verrs[0].Tag()]; ok {
			errs[field] = msg
			return
		}
	}
	errs[field] = "Invalid value"
}

// IsVideoMediaType reports whether a declared media type is a video type.
func IsVideoMediaType(contentType string) bool {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(contentType)
	}
	return strings.HasPrefix(mediaType, "video/")
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
