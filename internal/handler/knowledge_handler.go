package handler

import (
	"context"
	"fmt"
	"io"

	"github.com/arturoeanton/go-kb-answers/internal/adapter/loader"
	"github.com/arturoeanton/go-kb-answers/internal/domain"
	"github.com/arturoeanton/go-kb-answers/internal/middleware"
	"github.com/arturoeanton/go-kb-answers/internal/port"
	"github.com/arturoeanton/go-kb-answers/internal/service"
	"github.com/gofiber/fiber/v3"
)

// KnowledgeManager maintains knowledge base contents.
type KnowledgeManager interface {
	Assimilate(ctx context.Context, res service.Resource) (int, error)
	RemoveResource(ctx context.Context, knowledgeBaseID, resourceID string) error
	RemoveKnowledgeBase(ctx context.Context, knowledgeBaseID string) error
	RetrieveChunks(ctx context.Context, knowledgeBaseID string, chunkIDs []string) ([]domain.StitchedPassage, error)
}

// KnowledgeHandler handles knowledge base and chunk endpoints.
type KnowledgeHandler struct {
	knowledge KnowledgeManager
}

// NewKnowledgeHandler creates a new knowledge handler.
func NewKnowledgeHandler(knowledge KnowledgeManager) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge}
}

// Register sets up knowledge base routes.
func (h *KnowledgeHandler) Register(router fiber.Router) {
	kb := router.Group("/knowledge-base")
	kb.Post("/:kbId/resource/:resourceId", h.AssimilateResource)
	kb.Delete("/:kbId/resource/:resourceId", h.RemoveResource)
	kb.Delete("/:kbId", h.RemoveKnowledgeBase)

	router.Post("/chunks-retrieval", h.RetrieveChunks)
}

// AssimilateResource indexes an uploaded file, replacing the resource's previous chunks.
func (h *KnowledgeHandler) AssimilateResource(c fiber.Ctx) error {
	kbID := c.Params("kbId")
	resourceID := c.Params("resourceId")
	middleware.SetAuditAction(c, domain.AuditActionResourceAssimilate, kbID+"/"+resourceID)

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "multipart field \"file\" is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fail(c, fmt.Errorf("read upload: %w", err))
	}

	name := c.FormValue("resource_name")
	if name == "" {
		name = fh.Filename
	}

	n, err := h.knowledge.Assimilate(c.Context(), service.Resource{
		KnowledgeBaseID: kbID,
		ResourceID:      resourceID,
		Name:            name,
		Mimetype:        loader.DetectMimetype(fh.Filename, fh.Header.Get("Content-Type")),
		Data:            data,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"knowledge_base_id": kbID,
		"resource_id":       resourceID,
		"chunks":            n,
	})
}

// RemoveResource deletes every chunk of a resource.
func (h *KnowledgeHandler) RemoveResource(c fiber.Ctx) error {
	kbID := c.Params("kbId")
	resourceID := c.Params("resourceId")
	middleware.SetAuditAction(c, domain.AuditActionResourceRemove, kbID+"/"+resourceID)

	if err := h.knowledge.RemoveResource(c.Context(), kbID, resourceID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// RemoveKnowledgeBase drops a whole knowledge base.
func (h *KnowledgeHandler) RemoveKnowledgeBase(c fiber.Ctx) error {
	kbID := c.Params("kbId")
	middleware.SetAuditAction(c, domain.AuditActionKnowledgeBaseRemove, kbID)

	if err := h.knowledge.RemoveKnowledgeBase(c.Context(), kbID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

type chunksRequestBody struct {
	KnowledgeBaseID string   `json:"knowledge_base_id"`
	ChunkIDs        []string `json:"chunk_ids"`
}

type chunkPayload struct {
	ChunkNumber      int     `json:"chunk_number"`
	LastChunkNumber  int     `json:"last_chunk_number"`
	TotalChunks      int     `json:"total_chunks"`
	PercentageIn     float64 `json:"percentage_in"`
	ResourceMimetype string  `json:"resource_mimetype"`
	PageIndex        *int    `json:"page_index"`
}

type chunkData struct {
	ID           string       `json:"id"`
	ChunkIDs     []string     `json:"chunk_ids"`
	ResourceID   string       `json:"resource_id"`
	ResourceName string       `json:"resource_name"`
	Data         string       `json:"data"`
	Payload      chunkPayload `json:"payload"`
}

// RetrieveChunks returns the requested chunks with contiguous ones merged.
func (h *KnowledgeHandler) RetrieveChunks(c fiber.Ctx) error {
	var body chunksRequestBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if len(body.ChunkIDs) == 0 {
		return fail(c, fmt.Errorf("%w: chunk_ids is required", port.ErrInvalidRequest))
	}

	passages, err := h.knowledge.RetrieveChunks(c.Context(), body.KnowledgeBaseID, body.ChunkIDs)
	if err != nil {
		return fail(c, err)
	}

	out := make([]chunkData, len(passages))
	for i, p := range passages {
		var id string
		if len(p.ChunkIDs) > 0 {
			id = p.ChunkIDs[0]
		}
		out[i] = chunkData{
			ID:           id,
			ChunkIDs:     p.ChunkIDs,
			ResourceID:   p.ResourceID,
			ResourceName: p.ResourceName,
			Data:         p.Text,
			Payload: chunkPayload{
				ChunkNumber:      p.FirstIndex,
				LastChunkNumber:  p.LastIndex,
				TotalChunks:      p.Metadata.TotalChunks,
				PercentageIn:     p.Metadata.PercentageIn,
				ResourceMimetype: p.Metadata.Mimetype,
				PageIndex:        p.Metadata.PageIndex,
			},
		}
	}
	return c.JSON(fiber.Map{"chunks_data": out})
}
