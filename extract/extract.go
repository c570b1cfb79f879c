// Package extract pulls plain text out of uploaded files.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hubenschmidt/go-dossier/core"
)

// Page is the extracted text of one page. Plain-text files yield a single page
// numbered 0.
type Page struct {
	Number int
	Text   string
}

// Supported reports whether the file extension can be extracted.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// FromUpload extracts text from an uploaded file, dispatching on extension.
// Unsupported extensions fail with core.ErrUnsupportedFile.
func FromUpload(filename string, r io.Reader) ([]Page, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		return fromText(r)
	case ".pdf":
		return fromPDF(r)
	default:
		return nil, fmt.Errorf("%w: %s (want .pdf, .txt or .md)", core.ErrUnsupportedFile, filename)
	}
}

func fromText(r io.Reader) ([]Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return []Page{{Number: 0, Text: string(data)}}, nil
}

func fromPDF(r io.Reader) ([]Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	var pages []Page
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to decode rather than losing the document.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}
