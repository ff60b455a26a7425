package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTemporary    = errors.New("temporary failure")

	ErrUnsupportedFormat   = errors.New("unsupported format")
	ErrCorruptDocument     = errors.New("corrupt document")
	ErrInsufficientText    = errors.New("insufficient text")
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
	ErrFormatting          = errors.New("formatting error")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorType returns the wire tag for the most specific known kind in err.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case IsKind(err, ErrCorruptDocument):
		return "corrupt_document"
	case IsKind(err, ErrInsufficientText):
		return "insufficient_text"
	case IsKind(err, ErrAnalysisUnavailable):
		return "analysis_unavailable"
	case IsKind(err, ErrFormatting):
		return "formatting_error"
	case IsKind(err, ErrInvalidInput):
		return "invalid_input"
	case IsKind(err, ErrNotFound):
		return "not_found"
	case IsKind(err, ErrUnauthorized):
		return "unauthorized"
	case IsKind(err, ErrTemporary):
		return "temporary"
	default:
		return "internal"
	}
}
