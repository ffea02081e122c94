package handler

import (
	"context"
	"fmt"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
	"github.com/arturoeanton/go-kb-answers/internal/middleware"
	"github.com/arturoeanton/go-kb-answers/internal/port"
	"github.com/gofiber/fiber/v3"
)

// Answerer produces grounded answers.
type Answerer interface {
	Answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error)
}

// AnswerHandler handles answer requests.
type AnswerHandler struct {
	answers Answerer
}

// NewAnswerHandler creates a new answer handler.
func NewAnswerHandler(answers Answerer) *AnswerHandler {
	return &AnswerHandler{answers: answers}
}

// Register sets up answer routes.
func (h *AnswerHandler) Register(router fiber.Router) {
	router.Post("/answer-request", h.Answer)
}

type conversationTurn struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type answerRequestBody struct {
	KnowledgeBaseID string             `json:"knowledge_base_id"`
	Question        string             `json:"question"`
	Reference       string             `json:"reference"`
	Conversation    []conversationTurn `json:"conversation"`
	Language        string             `json:"language"`
	WisdomLevel     string             `json:"wisdom_level"`
}

func (b answerRequestBody) toDomain() (domain.AnswerRequest, error) {
	req := domain.AnswerRequest{
		KnowledgeBaseID: b.KnowledgeBaseID,
		Question:        b.Question,
		Reference:       b.Reference,
		Language:        b.Language,
		WisdomLevel:     domain.WisdomLevel(b.WisdomLevel),
	}
	for i, turn := range b.Conversation {
		sender, err := domain.ParseSender(turn.Sender)
		if err != nil {
			return req, fmt.Errorf("%w: conversation[%d]: %v", port.ErrInvalidRequest, i, err)
		}
		req.Conversation = append(req.Conversation, domain.ConversationEntry{Sender: sender, Content: turn.Content})
	}
	return req, nil
}

// Answer runs the answer pipeline. Tokens are streamed on the request's
// reference while the final answer and its sources are returned here.
func (h *AnswerHandler) Answer(c fiber.Ctx) error {
	var body answerRequestBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	req, err := body.toDomain()
	if err != nil {
		return fail(c, err)
	}

	middleware.SetAuditAction(c, domain.AuditActionAnswerRequest, req.KnowledgeBaseID)

	answer, err := h.answers.Answer(c.Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(answer)
}
