package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a PDF parses but yields no extractable text,
// typically a scanned document without an OCR layer.
var ErrNoText = errors.New("no text extracted from pdf")

// FromPDF extracts, cleans, and titles a PDF upload. Pages that fail to
// extract are skipped; the document fails only when no page yields text.
func FromPDF(content []byte) (Document, error) {
	raw, err := extractPDF(content)
	if err != nil {
		return Document{}, err
	}
	text := Cleaner{}.Clean(raw)
	if text == "" {
		return Document{}, ErrNoText
	}
	return Document{Title: ExtractTitle(text), Text: text}, nil
}

func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var pages []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		if text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}
