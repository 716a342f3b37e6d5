package errors

import (
	"strings"
	"unicode"
)

// maxReadoutIDLength bounds readout identifiers accepted from files and requests.
const maxReadoutIDLength = 128

// ValidateReadoutID validates a readout identifier supplied by a caller.
// Identifiers end up in cache keys, log lines and store documents, so the
// rules are conservative:
//   - No empty identifiers
//   - No control characters
//   - Maximum length of 128 characters
func ValidateReadoutID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "readout id cannot be empty")
	}

	if len(id) > maxReadoutIDLength {
		return New(ErrCodeInvalidInput, "readout id too long (max %d characters)", maxReadoutIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "readout id contains invalid control characters")
		}
	}

	return nil
}

// ValidatePath validates a user supplied file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateExtension checks that path ends in one of the allowed extensions
// (compared case-insensitively, including the leading dot).
func ValidateExtension(path string, allowed ...string) error {
	lower := strings.ToLower(path)
	for _, ext := range allowed {
		if strings.HasSuffix(lower, ext) {
			return nil
		}
	}
	return New(ErrCodeInvalidPath, "unsupported file extension for %q (want one of %s)", path, strings.Join(allowed, ", "))
}
