package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/core/usecase"
)

const (
	uploadNoFileMessage       = "No file uploaded. Please select a document to analyze."
	uploadNoSelectionMessage  = "No file selected. Please choose a document to upload."
	uploadUnsupportedMessage  = "File type not supported. Please upload PDF, Word (.docx), or text (.txt) files only."
	uploadEmptyMessage        = "The uploaded file appears to be empty. Please check the file and try again."
	uploadFileTooLargeMessage = "The file is too large. Please upload a document smaller than 16MB."
	uploadCorruptMessage      = "Could not read the document. Please ensure the file is not corrupted and try again."
	uploadInsufficientMessage = "The document appears to contain insufficient text for analysis. Please ensure the document contains readable text content."
	uploadUnavailableMessage  = "Unable to analyze the document at this time. Please try again later or contact support if the problem persists."
	uploadUnexpectedMessage   = "An unexpected error occurred while processing your document. Please try again or contact support."

	chatEmptyQueryMessage = "Please enter a legal query."
	chatTooLongMessage    = "Your message is too long. Please shorten your question and try again."
	chatFailureMessage    = "I apologize, but I encountered an error processing your query. Please try rephrasing your question or contact a qualified solicitor for assistance."
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrUnsupportedFormat),
		domain.IsKind(err, domain.ErrCorruptDocument),
		domain.IsKind(err, domain.ErrInsufficientText):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrAnalysisUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// uploadErrorMessage is the user-facing text for a failed upload.
func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, usecase.ErrNoFileSelected):
		return uploadNoSelectionMessage
	case errors.Is(err, usecase.ErrEmptyFile):
		return uploadEmptyMessage
	case errors.Is(err, usecase.ErrFileTooLarge):
		return uploadFileTooLargeMessage
	case domain.IsKind(err, domain.ErrUnsupportedFormat):
		return uploadUnsupportedMessage
	case domain.IsKind(err, domain.ErrCorruptDocument):
		return uploadCorruptMessage
	case domain.IsKind(err, domain.ErrInsufficientText):
		return uploadInsufficientMessage
	case domain.IsKind(err, domain.ErrAnalysisUnavailable):
		return uploadUnavailableMessage
	default:
		return uploadUnexpectedMessage
	}
}

func chatErrorMessage(err error) string {
	switch {
	case errors.Is(err, usecase.ErrEmptyQuery):
		return chatEmptyQueryMessage
	case errors.Is(err, usecase.ErrQueryTooLong):
		return chatTooLongMessage
	default:
		return chatFailureMessage
	}
}
