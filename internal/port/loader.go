package port

import "context"

// Section is a contiguous piece of extracted document text. PageIndex is set
// for paged formats (PDF pages, spreadsheet sheets).
type Section struct {
	Text      string
	PageIndex *int
}

// DocumentLoader extracts text from uploaded documents.
type DocumentLoader interface {
	// Load extracts the sections of a document, in reading order.
	Load(ctx context.Context, filename, mimetype string, data []byte) ([]Section, error)
}
