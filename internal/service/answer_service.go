package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
	"github.com/arturoeanton/go-kb-answers/internal/port"
	"github.com/arturoeanton/go-kb-answers/internal/prompt"
	"github.com/arturoeanton/go-kb-answers/internal/retrieval"
)

// AnswerConfig holds the deployment-wide answer settings.
type AnswerConfig struct {
	MinTrustScore      float64
	ReformulationModel string
	Tiers              WisdomTiers
}

// AnswerService answers questions from a knowledge base, streaming the
// answer tokens to the request's reference.
type AnswerService struct {
	embedder  port.Embedder
	completer port.Completer
	store     port.VectorStore
	stream    port.AnswerStream
	cfg       AnswerConfig
	logger    *slog.Logger
}

// NewAnswerService creates a new answer service.
func NewAnswerService(embedder port.Embedder, completer port.Completer, store port.VectorStore, stream port.AnswerStream, cfg AnswerConfig, logger *slog.Logger) *AnswerService {
	if cfg.Tiers == nil {
		cfg.Tiers = DefaultWisdomTiers("", "", "")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerService{
		embedder:  embedder,
		completer: completer,
		store:     store,
		stream:    stream,
		cfg:       cfg,
		logger:    logger,
	}
}

// Answer runs the whole pipeline for one request. Unknown wisdom levels and
// locales are rejected before any upstream call.
func (s *AnswerService) Answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	tier, err := s.cfg.Tiers.Resolve(req.WisdomLevel)
	if err != nil {
		return nil, err
	}

	var language string
	if strings.TrimSpace(req.Language) != "" {
		if language, err = prompt.LanguageName(req.Language); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(req.KnowledgeBaseID) == "" || strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: knowledge_base_id and question are required", port.ErrInvalidRequest)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := s.stream.Attach(req.Reference, cancel); err != nil {
		return nil, fmt.Errorf("attach stream %q: %w", req.Reference, err)
	}

	answer, err := s.answer(ctx, req, tier, language)
	if err != nil {
		s.stream.StreamError(req.Reference, err)
		return nil, err
	}
	s.stream.Finish(req.Reference)
	return answer, nil
}

func (s *AnswerService) answer(ctx context.Context, req domain.AnswerRequest, tier Tier, language string) (*domain.Answer, error) {
	query, err := s.searchQuery(ctx, req)
	if err != nil {
		return nil, err
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	found, err := s.store.Search(ctx, req.KnowledgeBaseID, queryVector, tier.Candidates)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}

	relevant := make([]domain.ResourceChunk, 0, len(found))
	for _, sc := range found {
		if sc.Score >= s.cfg.MinTrustScore {
			relevant = append(relevant, sc.Chunk)
		}
	}
	s.logger.Info("retrieved chunks",
		"reference", req.Reference,
		"knowledge_base_id", req.KnowledgeBaseID,
		"candidates", len(found),
		"relevant", len(relevant),
	)

	passages := retrieval.Stitch(relevant)
	grounded := prompt.BuildGroundedAnswerPrompt(req.Question, passages, req.Conversation, language)

	text, err := s.completer.CompleteStream(ctx, port.CompletionRequest{
		Prompt:    grounded,
		Model:     tier.Model,
		Reference: req.Reference,
	}, s.stream)
	if err != nil {
		return nil, fmt.Errorf("answer completion: %w", err)
	}

	sources := make([]domain.Source, len(relevant))
	for i, c := range relevant {
		sources[i] = domain.SourceFromChunk(c)
	}
	return &domain.Answer{Text: text, Sources: sources}, nil
}

// searchQuery asks the model for a standalone query when there is a
// conversation. A null or unreadable reply falls back to the question.
func (s *AnswerService) searchQuery(ctx context.Context, req domain.AnswerRequest) (string, error) {
	if len(req.Conversation) == 0 {
		return req.Question, nil
	}

	reply, err := s.completer.Complete(ctx, prompt.BuildReformulationPrompt(req.Question, req.Conversation), s.cfg.ReformulationModel)
	if err != nil {
		return "", fmt.Errorf("reformulate question: %w", err)
	}

	query, err := prompt.ParseSearchQuery(reply)
	if err != nil {
		s.logger.Warn("unreadable reformulation reply, searching the question", "reference", req.Reference, "error", err)
		return req.Question, nil
	}
	if query == "" {
		return req.Question, nil
	}
	s.logger.Debug("reformulated question", "reference", req.Reference, "search_query", query)
	return query, nil
}
