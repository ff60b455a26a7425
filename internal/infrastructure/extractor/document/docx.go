package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const wordDocumentPart = "word/document.xml"

// extractDOCX joins the text of every paragraph of an OOXML document in
// document order. Legacy binary .doc files are not zip archives and fail here.
func extractDOCX(content []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open word archive: %w", err)
	}

	var part *zip.File
	for _, f := range archive.File {
		if f.Name == wordDocumentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("word archive has no %s", wordDocumentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", wordDocumentPart, err)
	}
	defer rc.Close()

	paragraphs, err := readParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", wordDocumentPart, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// readParagraphs collects w:t runs per w:p element. Tabs and breaks inside a
// paragraph become whitespace. Paragraphs nested in another (text boxes) are
// emitted on their own when they close, and the enclosing paragraph keeps its text.
func readParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var (
		paragraphs []string
		open       []*strings.Builder
		inText     bool
	)
	top := func() *strings.Builder {
		if len(open) == 0 {
			return nil
		}
		return open[len(open)-1]
	}
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				inText = top() != nil
			case "tab":
				if b := top(); b != nil {
					b.WriteByte('\t')
				}
			case "br", "cr":
				if b := top(); b != nil {
					b.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if b := top(); b != nil {
					paragraphs = append(paragraphs, b.String())
					open = open[:len(open)-1]
				}
			}
		case xml.CharData:
			if b := top(); inText && b != nil {
				b.Write(el)
			}
		}
	}
	return paragraphs, nil
}
