package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
)

func chunk(resource string, index int, text string) domain.ResourceChunk {
	return domain.ResourceChunk{
		ID:           resource + "-" + string(rune('a'+index)),
		ResourceID:   resource,
		ResourceName: resource + ".txt",
		Text:         text,
		ChunkIndex:   index,
		Metadata:     domain.ChunkMetadata{TotalChunks: 10, Mimetype: "text/plain"},
	}
}

func TestStitch_MergesOverlap(t *testing.T) {
	out := Stitch([]domain.ResourceChunk{
		chunk("r1", 0, "The quick brown fox jumps"),
		chunk("r1", 1, "fox jumps over the lazy dog"),
	})

	require.Len(t, out, 1)
	require.Len(t, out[0].Passages, 1)
	p := out[0].Passages[0]
	assert.Equal(t, "The quick brown fox jumps over the lazy dog", p.Text)
	assert.Equal(t, 0, p.FirstIndex)
	assert.Equal(t, 1, p.LastIndex)
	assert.Equal(t, []string{"r1-a", "r1-b"}, p.ChunkIDs)
}

func TestStitch_GapStartsNewPassage(t *testing.T) {
	out := Stitch([]domain.ResourceChunk{
		chunk("r1", 0, "zero "),
		chunk("r1", 1, "one "),
		chunk("r1", 3, "three "),
		chunk("r1", 4, "four"),
	})

	require.Len(t, out, 1)
	passages := out[0].Passages
	require.Len(t, passages, 2)
	assert.Equal(t, "zero one ", passages[0].Text)
	assert.Equal(t, 0, passages[0].FirstIndex)
	assert.Equal(t, 1, passages[0].LastIndex)
	assert.Equal(t, "three four", passages[1].Text)
	assert.Equal(t, 3, passages[1].FirstIndex)
	assert.Equal(t, 4, passages[1].LastIndex)
}

func TestStitch_OutOfOrderInput(t *testing.T) {
	out := Stitch([]domain.ResourceChunk{
		chunk("r1", 2, "cd ef"),
		chunk("r1", 0, "ab"),
		chunk("r1", 1, "b cd"),
	})

	require.Len(t, out[0].Passages, 1)
	assert.Equal(t, "ab cd ef", out[0].Passages[0].Text)
}

func TestStitch_ZeroOverlapAppendsFullText(t *testing.T) {
	out := Stitch([]domain.ResourceChunk{
		chunk("r1", 5, "first."),
		chunk("r1", 6, "Second."),
	})

	assert.Equal(t, "first.Second.", out[0].Passages[0].Text)
}

func TestStitch_CrossResourceIsolation(t *testing.T) {
	out := Stitch([]domain.ResourceChunk{
		chunk("r1", 0, "alpha beta"),
		chunk("r2", 1, "beta gamma"),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "r1", out[0].ResourceID)
	assert.Equal(t, "r2", out[1].ResourceID)
	assert.Equal(t, "alpha beta", out[0].Passages[0].Text)
	assert.Equal(t, "beta gamma", out[1].Passages[0].Text)
}

func TestStitch_FirstEncounterOrder(t *testing.T) {
	out := Stitch([]domain.ResourceChunk{
		chunk("b", 0, "x"),
		chunk("a", 0, "y"),
		chunk("b", 1, "z"),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ResourceID)
	assert.Equal(t, "a", out[1].ResourceID)
}

func TestStitch_SingleChunkResource(t *testing.T) {
	out := Stitch([]domain.ResourceChunk{chunk("r1", 3, "lonely")})

	require.Len(t, out[0].Passages, 1)
	p := out[0].Passages[0]
	assert.Equal(t, "lonely", p.Text)
	assert.Equal(t, 3, p.FirstIndex)
	assert.Equal(t, 3, p.LastIndex)
}

func TestStitch_DuplicateChunkIgnored(t *testing.T) {
	out := Stitch([]domain.ResourceChunk{
		chunk("r1", 0, "one two"),
		chunk("r1", 0, "one two"),
		chunk("r1", 1, "two three"),
	})

	require.Len(t, out[0].Passages, 1)
	assert.Equal(t, "one two three", out[0].Passages[0].Text)
}

func TestStitch_IdempotentOnStitchedOutput(t *testing.T) {
	first := Stitch([]domain.ResourceChunk{
		chunk("r1", 0, "zero "),
		chunk("r1", 1, "one "),
		chunk("r1", 3, "three "),
		chunk("r1", 4, "four"),
	})

	var restitch []domain.ResourceChunk
	for _, p := range Flatten(first) {
		restitch = append(restitch, domain.ResourceChunk{
			ID:           p.ChunkIDs[0],
			ResourceID:   p.ResourceID,
			ResourceName: p.ResourceName,
			Text:         p.Text,
			ChunkIndex:   p.FirstIndex,
			Metadata:     p.Metadata,
		})
	}
	second := Stitch(restitch)

	require.Len(t, second[0].Passages, len(first[0].Passages))
	for i := range first[0].Passages {
		assert.Equal(t, first[0].Passages[i].Text, second[0].Passages[i].Text)
	}
}

func TestStitch_DoesNotMutateEarlierPassages(t *testing.T) {
	c0 := chunk("r1", 0, "a")
	c1 := chunk("r1", 1, "b")
	p := newPassage(c0)
	merged := extend(p, c0.Text, c1)

	assert.Equal(t, "a", p.Text)
	assert.Equal(t, []string{"r1-a"}, p.ChunkIDs)
	assert.Equal(t, "ab", merged.Text)
}

func TestByResource(t *testing.T) {
	m := ByResource(Stitch([]domain.ResourceChunk{
		chunk("r1", 0, "a"),
		chunk("r2", 0, "b"),
	}))

	assert.Len(t, m, 2)
	assert.Equal(t, "b", m["r2"][0].Text)
}
