// Package document extracts plain text from uploaded PDF, Word and text files.
package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SupportedExtensions lists the accepted filename suffixes, without the dot.
var SupportedExtensions = domain.SupportedDocumentExtensions

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extension returns the lowercased suffix of filename without the dot.
func Extension(filename string) string {
	return domain.DocumentExtension(filename)
}

func IsSupported(filename string) bool {
	return domain.IsSupportedDocument(filename)
}

// Extract returns the trimmed text of content, dispatching on the suffix of filename.
func (e *Extractor) Extract(ctx context.Context, content []byte, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch ext := Extension(filename); ext {
	case "pdf":
		text, err = extractPDF(content)
	case "doc", "docx":
		text, err = extractDOCX(content)
	case "txt":
		text, err = extractText(content)
	case "":
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("file %q has no extension", filename))
	default:
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("unsupported file type: .%s", ext))
	}
	if err != nil {
		return "", domain.WrapError(domain.ErrCorruptDocument, "extract text", err)
	}
	// NUL is valid UTF-8 but cannot be stored in a Postgres TEXT column.
	// UTF-16 text without a BOM is mostly ASCII plus NULs and stays readable.
	return strings.TrimSpace(strings.ReplaceAll(text, "\x00", "")), nil
}

func extractText(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return "", fmt.Errorf("text file is not valid UTF-8")
	}
	return string(content), nil
}
