// Package loader extracts plain text sections from uploaded documents.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arturoeanton/go-kb-answers/internal/port"
)

// Canonical mimetypes recorded in chunk payloads.
const (
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimePPTX     = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

var byExtension = map[string]string{
	".txt":      MimeText,
	".text":     MimeText,
	".csv":      MimeText,
	".md":       MimeMarkdown,
	".markdown": MimeMarkdown,
	".pdf":      MimePDF,
	".docx":     MimeDOCX,
	".xlsx":     MimeXLSX,
	".pptx":     MimePPTX,
}

type extractor func(ctx context.Context, data []byte) ([]port.Section, error)

// Loader implements port.DocumentLoader.
type Loader struct {
	extractors map[string]extractor
}

var _ port.DocumentLoader = (*Loader)(nil)

// New creates a loader for every supported format.
func New() *Loader {
	return &Loader{extractors: map[string]extractor{
		MimeText:     loadText,
		MimeMarkdown: loadMarkdown,
		MimePDF:      loadPDF,
		MimeDOCX:     loadDOCX,
		MimeXLSX:     loadXLSX,
		MimePPTX:     loadPPTX,
	}}
}

// DetectMimetype returns the canonical mimetype for a declared mimetype,
// falling back to the file extension. It returns "" for unsupported files.
func DetectMimetype(filename, declared string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	switch declared {
	case MimeText, MimeMarkdown, "text/x-markdown", MimePDF, MimeDOCX, MimeXLSX, MimePPTX:
		if declared == "text/x-markdown" {
			return MimeMarkdown
		}
		return declared
	}
	return byExtension[strings.ToLower(filepath.Ext(filename))]
}

// Load extracts the non-empty sections of a document in reading order.
func (l *Loader) Load(ctx context.Context, filename, mimetype string, data []byte) ([]port.Section, error) {
	mt := DetectMimetype(filename, mimetype)
	extract, ok := l.extractors[mt]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", port.ErrUnsupportedFormat, filename, mimetype)
	}

	sections, err := extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}

	out := sections[:0]
	for _, s := range sections {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", port.ErrEmptyResource, filename)
	}
	return out, nil
}

func loadText(_ context.Context, data []byte) ([]port.Section, error) {
	return []port.Section{{Text: strings.ToValidUTF8(string(data), "�")}}, nil
}

func pageIndex(i int) *int {
	return &i
}
