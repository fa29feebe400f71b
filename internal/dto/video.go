package dto

import "github.com/noah-isme/video-upload-form/internal/models"

// VideoForm holds the text fields of the upload form.
type VideoForm struct {
	Name        string `form:"name" json:"name"`
	Description string `form:"description" json:"description"`
	Duration    string `form:"duration" json:"duration"`
}

// VideoFileMeta describes the selected file as declared by the client.
type VideoFileMeta struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
}

// ValidateVideoRequest carries current field values for live re-validation.
type ValidateVideoRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Duration    string         `json:"duration"`
	Video       *VideoFileMeta `json:"video"`
}

// ValidateVideoResponse lists the message for each failing field.
type ValidateVideoResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// VideoDetailResponse enriches metadata with a signed stream URL.
type VideoDetailResponse struct {
	models.VideoSubmission
	StreamURL string `json:"streamUrl,omitempty"`
}
