package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
)

// Answerer produces grounded answers.
type Answerer interface {
	Answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error)
}

// ChunkRetriever fetches stitched chunks by id.
type ChunkRetriever interface {
	RetrieveChunks(ctx context.Context, knowledgeBaseID string, chunkIDs []string) ([]domain.StitchedPassage, error)
}

// AuditWriter persists one audit record per tool call.
type AuditWriter interface {
	WriteAudit(clientID, action, resource, resourceID, details, ip, userAgent string) error
}

// Server implements the Model Context Protocol (MCP) server.
// It exposes knowledge base tools to external AI agents.
type Server struct {
	answers Answerer
	chunks  ChunkRetriever
	audit   AuditWriter
	port    string
}

// NewServer creates a new MCP server. audit may be nil.
func NewServer(answers Answerer, chunks ChunkRetriever, audit AuditWriter, port string) *Server {
	return &Server{
		answers: answers,
		chunks:  chunks,
		audit:   audit,
		port:    port,
	}
}

// Tool represents an MCP tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Handler returns the MCP HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleRPC)
	mux.HandleFunc("/mcp/sse", s.handleSSE)
	return mux
}

// Start begins the MCP server on the configured port.
func (s *Server) Start() error {
	slog.Info("MCP server starting", "port", s.port)
	return http.ListenAndServe(":"+s.port, s.Handler())
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, -32700, "parse error")
		return
	}

	var result interface{}
	var err error

	switch req.Method {
	case "tools/list":
		result = s.listTools()
	case "tools/call":
		result, err = s.callTool(r.Context(), req.Params)
		s.record(r, req.Params, err)
	case "initialize":
		result = map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]string{
				"name":    "kb-answers",
				"version": "1.0.0",
			},
			"capabilities": map[string]interface{}{
				"tools": map[string]bool{"listChanged": false},
			},
		}
	default:
		writeError(w, req.ID, -32601, "method not found")
		return
	}

	if errors.Is(err, errInvalidParams) {
		writeError(w, req.ID, -32602, err.Error())
		return
	}
	if err != nil {
		writeError(w, req.ID, -32603, err.Error())
		return
	}

	writeResult(w, req.ID, result)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Send initial endpoint message
	fmt.Fprintf(w, "event: endpoint\ndata: /mcp\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	// Keep connection alive
	<-r.Context().Done()
}

func (s *Server) record(r *http.Request, params json.RawMessage, callErr error) {
	if s.audit == nil {
		return
	}
	var call struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(params, &call)
	details, _ := json.Marshal(map[string]interface{}{
		"tool": call.Name,
		"ok":   callErr == nil,
	})
	clientID := r.Header.Get("X-Client-Id")
	if clientID == "" {
		clientID = "anonymous"
	}
	ip, ua := r.RemoteAddr, r.UserAgent()
	go func() {
		if err := s.audit.WriteAudit(clientID, domain.AuditActionMCPCall, "mcp", call.Name, string(details), ip, ua); err != nil {
			slog.Error("failed to write audit log", "error", err)
		}
	}()
}

func (s *Server) listTools() map[string]interface{} {
	tools := []Tool{
		{
			Name:        "answer_question",
			Description: "Answer a question from the contents of a knowledge base, citing the chunks used",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"knowledge_base_id": {"type": "string", "description": "Knowledge base ID"},
					"question": {"type": "string", "description": "Question to answer"},
					"language": {"type": "string", "description": "Answer locale, e.g. pt-BR"},
					"wisdom_level": {"type": "string", "enum": ["MEDIUM", "HIGH", "VERY_HIGH"]},
					"reference": {"type": "string", "description": "Stream tokens to this reference (optional)"},
					"conversation": {
						"type": "array",
						"description": "Previous turns, oldest first",
						"items": {
							"type": "object",
							"properties": {
								"sender": {"type": "string", "enum": ["USER", "AI_ENGINE"]},
								"content": {"type": "string"}
							},
							"required": ["sender", "content"]
						}
					}
				},
				"required": ["knowledge_base_id", "question"]
			}`),
		},
		{
			Name:        "retrieve_chunks",
			Description: "Fetch chunks by id, merging contiguous chunks of the same resource",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"knowledge_base_id": {"type": "string", "description": "Knowledge base ID"},
					"chunk_ids": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["knowledge_base_id", "chunk_ids"]
			}`),
		},
	}
	return map[string]interface{}{"tools": tools}
}

var errInvalidParams = errors.New("invalid params")

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
	}

	switch req.Name {
	case "answer_question":
		var args struct {
			KnowledgeBaseID string `json:"knowledge_base_id"`
			Question        string `json:"question"`
			Language        string `json:"language"`
			WisdomLevel     string `json:"wisdom_level"`
			Reference       string `json:"reference"`
			Conversation    []struct {
				Sender  string `json:"sender"`
				Content string `json:"content"`
			} `json:"conversation"`
		}
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
		}

		var conversation []domain.ConversationEntry
		for i, turn := range args.Conversation {
			sender, err := domain.ParseSender(turn.Sender)
			if err != nil {
				return nil, fmt.Errorf("%w: conversation[%d]: %v", errInvalidParams, i, err)
			}
			conversation = append(conversation, domain.ConversationEntry{Sender: sender, Content: turn.Content})
		}

		answer, err := s.answers.Answer(ctx, domain.AnswerRequest{
			KnowledgeBaseID: args.KnowledgeBaseID,
			Question:        args.Question,
			Reference:       args.Reference,
			Conversation:    conversation,
			Language:        args.Language,
			WisdomLevel:     domain.WisdomLevel(strings.ToUpper(args.WisdomLevel)),
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": answer.Text},
			},
			"sources": answer.Sources,
		}, nil

	case "retrieve_chunks":
		var args struct {
			KnowledgeBaseID string   `json:"knowledge_base_id"`
			ChunkIDs        []string `json:"chunk_ids"`
		}
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
		}

		passages, err := s.chunks.RetrieveChunks(ctx, args.KnowledgeBaseID, args.ChunkIDs)
		if err != nil {
			return nil, err
		}
		content := make([]map[string]interface{}, len(passages))
		for i, p := range passages {
			content[i] = map[string]interface{}{
				"type": "text",
				"text": fmt.Sprintf("%s (chunks %d-%d)\n%s", p.ResourceName, p.FirstIndex, p.LastIndex, p.Text),
			}
		}
		return map[string]interface{}{
			"content":  content,
			"passages": passages,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown tool: %s", errInvalidParams, req.Name)
	}
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
