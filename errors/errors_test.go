package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "op only",
			err:  NewError("listBuckets", stderrors.New("boom")),
			want: "b2.listBuckets: boom",
		},
		{
			name: "with bucket",
			err:  NewBucketError("createBucket", "photos", stderrors.New("boom")),
			want: "b2.createBucket bucket photos: boom",
		},
		{
			name: "with file ID",
			err:  NewFileError("getFileInfo", "4_zabc", stderrors.New("boom")),
			want: "b2.getFileInfo file 4_zabc: boom",
		},
		{
			name: "with bucket and file ID",
			err:  NewError("uploadPart", stderrors.New("boom")).WithBucket("photos").WithFileID("4_zabc"),
			want: "b2.uploadPart photos/4_zabc: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := stderrors.New("inner")
	err := NewError("op", inner)
	assert.Equal(t, inner, stderrors.Unwrap(err))

	err = err.WithMessage("context")
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "context")
}

func TestNameSentinelsAreInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
	}{
		{"bucket name", ErrInvalidBucketName},
		{"file name", ErrInvalidFileName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := NewError("validate", tt.sentinel)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.True(t, IsInvalidInput(wrapped))
		})
	}
}

func TestAPIError_Classification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"401 maps to unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"404 maps to not found", http.StatusNotFound, ErrNotFound},
		{"400 maps to validation", http.StatusBadRequest, ErrValidation},
		{"422 maps to validation", http.StatusUnprocessableEntity, ErrValidation},
		{"429 maps to too many requests", http.StatusTooManyRequests, ErrTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := &APIError{Status: tt.status, Code: "code", Message: "msg"}
			assert.ErrorIs(t, apiErr, tt.sentinel)

			// Wrapping in a contextual Error preserves classification.
			wrapped := NewError("someOp", apiErr)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestAPIError_UnknownStatusHasNoSentinel(t *testing.T) {
	apiErr := &APIError{Status: http.StatusForbidden, Code: "cap_exceeded", Message: "usage cap"}
	assert.False(t, IsNotFound(apiErr))
	assert.False(t, IsUnauthorized(apiErr))
	assert.False(t, IsValidation(apiErr))
}

func TestAPIError_Retryable(t *testing.T) {
	assert.True(t, (&APIError{Status: 500}).Retryable())
	assert.True(t, (&APIError{Status: 503}).Retryable())
	assert.False(t, (&APIError{Status: 401}).Retryable())
	assert.False(t, (&APIError{Status: 429}).Retryable())
}

func TestAsAPIError(t *testing.T) {
	apiErr := &APIError{Status: 404, Code: "file_not_present", Message: "not there"}
	wrapped := NewFileError("deleteFileVersion", "4_z1", apiErr)

	got, ok := AsAPIError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "file_not_present", got.Code)

	_, ok = AsAPIError(stderrors.New("plain"))
	assert.False(t, ok)
}
