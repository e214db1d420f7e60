// Package validation provides centralized input validation logic.
// This covers only what can be decided locally: bucket name rules, file name
// rules, and custom file info limits. Anything that needs service state,
// such as part number contiguity or hash correctness, is validated remotely.
package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/errors"
)

const (
	minBucketNameLen = 6
	maxBucketNameLen = 63
	maxFileNameBytes = 1024
	maxSegmentBytes  = 250
)

// ValidateBucketName validates that a bucket name meets the service rules.
// Returns ErrInvalidBucketName if it does not.
func ValidateBucketName(bucket string) error {
	if len(bucket) < minBucketNameLen || len(bucket) > maxBucketNameLen {
		return errors.NewBucketError("validateBucketName", bucket, errors.ErrInvalidBucketName).
			WithMessage("bucket name must be between 6 and 63 characters long")
	}

	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return errors.NewBucketError("validateBucketName", bucket, errors.ErrInvalidBucketName).
				WithMessage("bucket name can only contain lowercase letters, numbers, and hyphens")
		}
	}

	if bucket[0] == '-' || bucket[len(bucket)-1] == '-' {
		return errors.NewBucketError("validateBucketName", bucket, errors.ErrInvalidBucketName).
			WithMessage("bucket name cannot start or end with a hyphen")
	}

	// The b2- prefix is reserved by the service.
	if strings.HasPrefix(bucket, "b2-") {
		return errors.NewBucketError("validateBucketName", bucket, errors.ErrInvalidBucketName).
			WithMessage("bucket names starting with b2- are reserved")
	}

	return nil
}

// ValidateFileName validates that a file name meets the service rules.
// Returns ErrInvalidFileName if it does not.
func ValidateFileName(name string) error {
	if name == "" {
		return errors.NewError("validateFileName", errors.ErrInvalidFileName).
			WithMessage("file name cannot be empty")
	}

	if !utf8.ValidString(name) {
		return errors.NewError("validateFileName", errors.ErrInvalidFileName).
			WithMessage("file name must be valid UTF-8")
	}

	if len(name) > maxFileNameBytes {
		return errors.NewError("validateFileName", errors.ErrInvalidFileName).
			WithMessage("file name cannot exceed 1024 bytes")
	}

	if strings.HasPrefix(name, "/") {
		return errors.NewError("validateFileName", errors.ErrInvalidFileName).
			WithMessage("file name cannot start with /")
	}

	if strings.Contains(name, "//") {
		return errors.NewError("validateFileName", errors.ErrInvalidFileName).
			WithMessage("file name cannot contain //")
	}

	for _, segment := range strings.Split(name, "/") {
		if len(segment) > maxSegmentBytes {
			return errors.NewError("validateFileName", errors.ErrInvalidFileName).
				WithMessage("file name segments cannot exceed 250 bytes")
		}
	}

	if hasControlCharacters(name) {
		return errors.NewError("validateFileName", errors.ErrInvalidFileName).
			WithMessage("file name cannot contain control characters")
	}

	return nil
}

// ValidateCustomInfo validates custom file info keys and values.
// The entry cap itself is enforced by the CustomInfo type; this checks the
// header-compatibility rules each pair must meet.
func ValidateCustomInfo(info b2types.CustomInfo) error {
	for key, value := range info.Map() {
		if err := validateInfoKey(key); err != nil {
			return err
		}
		if err := validateInfoValue(key, value); err != nil {
			return err
		}
	}
	return nil
}

// isValidBucketChar checks if a character is valid in a bucket name
func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '-'
}

// hasControlCharacters checks for control characters in a name
func hasControlCharacters(s string) bool {
	for _, char := range s {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}

// validateInfoKey validates one custom info key; keys travel as header name
// suffixes, so they are restricted to header-safe characters.
func validateInfoKey(key string) error {
	if key == "" {
		return errors.NewError("validateCustomInfo", errors.ErrInvalidInput).
			WithMessage("file info key cannot be empty")
	}

	if len(key) > 50 {
		return errors.NewError("validateCustomInfo", errors.ErrInvalidInput).
			WithMessage("file info key cannot exceed 50 characters")
	}

	for _, char := range key {
		valid := (char >= '0' && char <= '9') ||
			(char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			char == '-' || char == '_'
		if !valid {
			return errors.NewError("validateCustomInfo", errors.ErrInvalidInput).
				WithMessage("file info key can only contain letters, numbers, hyphens, and underscores")
		}
	}

	return nil
}

// validateInfoValue validates one custom info value.
func validateInfoValue(key, value string) error {
	if !utf8.ValidString(value) {
		return errors.NewError("validateCustomInfo", errors.ErrInvalidInput).
			WithMessage("value for file info key " + key + " must be valid UTF-8")
	}
	return nil
}
