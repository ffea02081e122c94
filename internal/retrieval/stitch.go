package retrieval

import (
	"cmp"
	"slices"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
)

// Stitch groups chunks by resource (first-encounter order), sorts each group
// by chunk index and merges every run of consecutive indices into a single
// passage, dropping the text a sliding-window splitter repeated at each
// boundary. A gap in the indices always starts a new passage.
func Stitch(chunks []domain.ResourceChunk) []domain.ResourcePassages {
	var order []string
	groups := make(map[string][]domain.ResourceChunk)
	for _, c := range chunks {
		if _, seen := groups[c.ResourceID]; !seen {
			order = append(order, c.ResourceID)
		}
		groups[c.ResourceID] = append(groups[c.ResourceID], c)
	}

	out := make([]domain.ResourcePassages, 0, len(order))
	for _, id := range order {
		group := groups[id]
		slices.SortStableFunc(group, func(a, b domain.ResourceChunk) int {
			return cmp.Compare(a.ChunkIndex, b.ChunkIndex)
		})
		out = append(out, domain.ResourcePassages{
			ResourceID:   id,
			ResourceName: group[0].ResourceName,
			Passages:     stitchResource(group),
		})
	}
	return out
}

// ByResource indexes stitched output by resource id.
func ByResource(stitched []domain.ResourcePassages) map[string][]domain.StitchedPassage {
	m := make(map[string][]domain.StitchedPassage, len(stitched))
	for _, rp := range stitched {
		m[rp.ResourceID] = rp.Passages
	}
	return m
}

// Flatten returns every passage in resource order, then reading order.
func Flatten(stitched []domain.ResourcePassages) []domain.StitchedPassage {
	var out []domain.StitchedPassage
	for _, rp := range stitched {
		out = append(out, rp.Passages...)
	}
	return out
}

func stitchResource(sorted []domain.ResourceChunk) []domain.StitchedPassage {
	var passages []domain.StitchedPassage
	for i, c := range sorted {
		if i > 0 && c.ChunkIndex == sorted[i-1].ChunkIndex {
			// same chunk retrieved twice
			continue
		}
		if i == 0 || c.ChunkIndex != sorted[i-1].ChunkIndex+1 {
			passages = append(passages, newPassage(c))
			continue
		}
		last := len(passages) - 1
		passages[last] = extend(passages[last], sorted[i-1].Text, c)
	}
	return passages
}

func newPassage(c domain.ResourceChunk) domain.StitchedPassage {
	return domain.StitchedPassage{
		ResourceID:   c.ResourceID,
		ResourceName: c.ResourceName,
		FirstIndex:   c.ChunkIndex,
		LastIndex:    c.ChunkIndex,
		ChunkIDs:     []string{c.ID},
		Text:         c.Text,
		Metadata:     c.Metadata,
	}
}

// extend returns a new passage; p is left untouched. Overlap is measured
// against the previous chunk's original text, not the merged passage.
func extend(p domain.StitchedPassage, previousText string, c domain.ResourceChunk) domain.StitchedPassage {
	next := p
	next.Text = p.Text + c.Text[overlapLen(previousText, c.Text):]
	next.LastIndex = c.ChunkIndex
	next.ChunkIDs = append(slices.Clip(p.ChunkIDs), c.ID)
	return next
}
