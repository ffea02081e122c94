package domain

// WisdomLevel selects candidate count and completion model. It is an
// enumeration, not a numeric scale.
type WisdomLevel string

const (
	WisdomMedium   WisdomLevel = "MEDIUM"
	WisdomHigh     WisdomLevel = "HIGH"
	WisdomVeryHigh WisdomLevel = "VERY_HIGH"
)

// AnswerRequest lives for the duration of one answer and is never persisted.
type AnswerRequest struct {
	KnowledgeBaseID string              `json:"knowledge_base_id"`
	Question        string              `json:"question"`
	Reference       string              `json:"reference"`
	Conversation    []ConversationEntry `json:"conversation,omitempty"`
	Language        string              `json:"language,omitempty"`
	WisdomLevel     WisdomLevel         `json:"wisdom_level,omitempty"`
}

// Source is a citation for one retrieved chunk that survived relevance filtering.
type Source struct {
	ChunkID          string  `json:"chunk_id"`
	ResourceName     string  `json:"resource_name"`
	ResourceID       string  `json:"resource_id"`
	ChunkNumber      int     `json:"chunk_number"`
	PercentageIn     float64 `json:"percentage_in"`
	ResourceMimetype string  `json:"resource_mimetype"`
	PageIndex        *int    `json:"page_index"`
}

// Answer is the final orchestrator response.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// SourceFromChunk builds the citation for a chunk.
func SourceFromChunk(c ResourceChunk) Source {
	return Source{
		ChunkID:          c.ID,
		ResourceName:     c.ResourceName,
		ResourceID:       c.ResourceID,
		ChunkNumber:      c.ChunkIndex,
		PercentageIn:     c.Metadata.PercentageIn,
		ResourceMimetype: c.Metadata.Mimetype,
		PageIndex:        c.Metadata.PageIndex,
	}
}
