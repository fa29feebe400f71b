package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := Wrap(stderrors.New("boom"), ErrNotFound.Code, ErrNotFound.Status, "video not found")
	got := FromError(wrapped)
	assert.Same(t, wrapped, got)
	assert.Equal(t, "video not found: boom", got.Error())
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	cause := stderrors.New("boom")
	got := FromError(cause)
	require.NotNil(t, got)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.ErrorIs(t, got, cause)
}

func TestWithDetailsCopies(t *testing.T) {
	details := map[string]string{"video": "Please upload the video"}
	got := WithDetails(ErrValidation, details)
	details["video"] = "changed"

	assert.Equal(t, "Please upload the video", got.Details["video"])
	assert.Nil(t, ErrValidation.Details)
}
