package loader

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/arturoeanton/go-kb-answers/internal/port"
)

// loadPDF yields one section per page; PageIndex is zero-based.
func loadPDF(ctx context.Context, data []byte) ([]port.Section, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var sections []port.Section
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("pdf page %d: %w", i, err)
		}
		sections = append(sections, port.Section{Text: text, PageIndex: pageIndex(i - 1)})
	}
	return sections, nil
}
