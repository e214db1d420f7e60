// Package errors provides error types and handling for Backblaze B2 operations.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a B2 operation error with context about the operation that failed.
// It wraps the underlying transport or API error with additional context for debugging.
type Error struct {
	// Op is the operation that failed (e.g., "uploadPart", "finishLargeFile")
	Op string

	// Bucket is the B2 bucket ID or name (if applicable)
	Bucket string

	// FileID is the B2 file ID (if applicable)
	FileID string

	// Err is the underlying error from the transport or another source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.FileID != "" {
		return fmt.Sprintf("b2.%s %s/%s: %v", e.Op, e.Bucket, e.FileID, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("b2.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.FileID != "" {
		return fmt.Sprintf("b2.%s file %s: %v", e.Op, e.FileID, e.Err)
	}
	return fmt.Sprintf("b2.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithFileID adds file ID context to an existing error.
func (e *Error) WithFileID(fileID string) *Error {
	e.FileID = fileID
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewBucketError creates a new Error with bucket context.
func NewBucketError(op, bucket string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Err:    err,
	}
}

// NewFileError creates a new Error with file ID context.
func NewFileError(op, fileID string, err error) *Error {
	return &Error{
		Op:     op,
		FileID: fileID,
		Err:    err,
	}
}

// Sentinel errors for common B2 operation failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrNotFound indicates that the requested file, bucket, or key does not exist
	ErrNotFound = errors.New("b2: not found")

	// ErrUnauthorized indicates that the authorization token was missing,
	// expired, or lacks the capability required by the operation
	ErrUnauthorized = errors.New("b2: unauthorized")

	// ErrValidation indicates that the remote service rejected the request
	// contents; the wrapped APIError carries the field-level detail
	ErrValidation = errors.New("b2: validation failed")

	// ErrInvalidInput indicates that the provided input failed a local
	// precondition and no request was sent
	ErrInvalidInput = errors.New("b2: invalid input")

	// ErrCustomInfoTooLarge indicates an attempt to attach more than the
	// allowed number of custom file info entries
	ErrCustomInfoTooLarge = errors.New("b2: too many file info entries")

	// ErrInvalidBucketName indicates that the bucket name is invalid.
	// It wraps ErrInvalidInput, so IsInvalidInput matches it too.
	ErrInvalidBucketName = fmt.Errorf("b2: invalid bucket name: %w", ErrInvalidInput)

	// ErrInvalidFileName indicates that the file name is invalid.
	// It wraps ErrInvalidInput, so IsInvalidInput matches it too.
	ErrInvalidFileName = fmt.Errorf("b2: invalid file name: %w", ErrInvalidInput)

	// ErrTooManyRequests indicates that the request rate is too high
	ErrTooManyRequests = errors.New("b2: too many requests")

	// ErrNotAuthorizedYet indicates an operation was attempted before the
	// client completed account authorization
	ErrNotAuthorizedYet = errors.New("b2: account not authorized")
)

// APIError is the machine-readable error body returned by the B2 service.
// HTTP status drives coarse classification; Code and Message carry the
// service's own diagnostics, and Body preserves the raw response for callers
// that need field-level detail.
type APIError struct {
	// Status is the HTTP status code of the response
	Status int `json:"status"`

	// Code is the machine-readable B2 error code (e.g. "expired_auth_token")
	Code string `json:"code"`

	// Message is the human-readable description from the service
	Message string `json:"message"`

	// Body is the raw response body, retained for diagnostics
	Body []byte `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("b2 api: %s (status %d, code %q)", e.Message, e.Status, e.Code)
}

// Unwrap maps the HTTP status onto the package sentinels so that callers can
// branch with errors.Is without inspecting status codes themselves.
func (e *APIError) Unwrap() error {
	return ClassifyStatus(e.Status)
}

// ClassifyStatus returns the sentinel matching an HTTP status code, or nil
// when the status has no coarse classification.
func ClassifyStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusTooManyRequests:
		return ErrTooManyRequests
	}
	return nil
}

// ValidationError reports a failed local precondition with the field that
// caused it. It always unwraps to ErrInvalidInput.
type ValidationError struct {
	// Field names the input that failed (e.g. "bucketName", "customInfo")
	Field string

	// Message describes the violated rule
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("b2: invalid %s: %s", e.Field, e.Message)
}

// Unwrap ties validation failures to the ErrInvalidInput sentinel.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a ValidationError for the named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Retryable reports whether the error represents a transient server-side
// failure that the transport may retry. Client errors are never retryable.
func (e *APIError) Retryable() bool {
	return e.Status >= 500
}

// IsNotFound checks if an error indicates that a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if an error indicates missing or expired authorization.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsValidation checks if an error indicates the service rejected the request contents.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidInput checks if an error indicates a failed local precondition.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// AsAPIError extracts the underlying APIError from an error chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
