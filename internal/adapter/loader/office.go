package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"

	"github.com/arturoeanton/go-kb-answers/internal/port"
)

var (
	wordParagraph = regexp.MustCompile(`</w:p>`)
	wordRun       = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	slideRun      = regexp.MustCompile(`<a:t>([^<]*)</a:t>`)
	slideFile     = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
)

func loadDOCX(_ context.Context, data []byte) ([]port.Section, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	var sb strings.Builder
	for _, para := range wordParagraph.Split(r.Editable().GetContent(), -1) {
		for _, m := range wordRun.FindAllStringSubmatch(para, -1) {
			sb.WriteString(html.UnescapeString(m[1]))
		}
		sb.WriteByte('\n')
	}
	return []port.Section{{Text: sb.String()}}, nil
}

// loadXLSX yields one tab-separated section per sheet.
func loadXLSX(_ context.Context, data []byte) ([]port.Section, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var sections []port.Section
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("xlsx sheet %q: %w", sheet, err)
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Sheet: %s\n", sheet)
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteByte('\n')
		}
		if len(rows) > 0 {
			sections = append(sections, port.Section{Text: sb.String(), PageIndex: pageIndex(i)})
		}
	}
	return sections, nil
}

// loadPPTX yields one section per slide, in slide order.
func loadPPTX(_ context.Context, data []byte) ([]port.Section, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pptx: %w", err)
	}

	type slide struct {
		number int
		file   *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if m := slideFile.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{number: n, file: f})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	sections := make([]port.Section, 0, len(slides))
	for i, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return nil, fmt.Errorf("pptx slide %d: %w", s.number, err)
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("pptx slide %d: %w", s.number, err)
		}

		var parts []string
		for _, m := range slideRun.FindAllStringSubmatch(buf.String(), -1) {
			parts = append(parts, html.UnescapeString(m[1]))
		}
		sections = append(sections, port.Section{Text: strings.Join(parts, " "), PageIndex: pageIndex(i)})
	}
	return sections, nil
}
