package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
	"github.com/arturoeanton/go-kb-answers/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnswerer struct {
	got domain.AnswerRequest
	err error
}

func (f *fakeAnswerer) Answer(_ context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Answer{Text: "42", Sources: []domain.Source{{ChunkID: "c9"}}}, nil
}

type fakeRetriever struct{}

func (fakeRetriever) RetrieveChunks(_ context.Context, _ string, ids []string) ([]domain.StitchedPassage, error) {
	return []domain.StitchedPassage{{ResourceName: "guide.md", FirstIndex: 3, LastIndex: 4, ChunkIDs: ids, Text: "merged"}}, nil
}

type recordingAudit struct {
	mu    sync.Mutex
	tools []string
}

func (a *recordingAudit) WriteAudit(_, action, _, resourceID, _, _, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tools = append(a.tools, action+":"+resourceID)
	return nil
}

func (a *recordingAudit) snapshot() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.tools...)
}

func call(t *testing.T, s *Server, body string) JSONRPCResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp JSONRPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestServer_ListTools(t *testing.T) {
	s := NewServer(&fakeAnswerer{}, fakeRetriever{}, nil, "0")
	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Nil(t, resp.Error)

	raw, _ := json.Marshal(resp.Result)
	assert.Contains(t, string(raw), `"answer_question"`)
	assert.Contains(t, string(raw), `"retrieve_chunks"`)
}

func TestServer_AnswerQuestion(t *testing.T) {
	answers := &fakeAnswerer{}
	audit := &recordingAudit{}
	s := NewServer(answers, fakeRetriever{}, audit, "0")

	resp := call(t, s, `{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"answer_question",
		"arguments":{"knowledge_base_id":"kb","question":"meaning?","wisdom_level":"high"}}}`)
	require.Nil(t, resp.Error)

	assert.Equal(t, domain.WisdomHigh, answers.got.WisdomLevel)
	assert.Empty(t, answers.got.Reference, "tokens are not routed without a reference")
	raw, _ := json.Marshal(resp.Result)
	assert.Contains(t, string(raw), `"text":"42"`)
	assert.Contains(t, string(raw), `"chunk_id":"c9"`)

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{domain.AuditActionMCPCall + ":answer_question"}, audit.snapshot())
	}, time.Second, 5*time.Millisecond)
}

func TestServer_AnswerQuestionWithConversation(t *testing.T) {
	answers := &fakeAnswerer{}
	s := NewServer(answers, fakeRetriever{}, nil, "0")

	resp := call(t, s, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"answer_question",
		"arguments":{"knowledge_base_id":"kb","question":"and its population?",
		"conversation":[{"sender":"user","content":"capital of France?"},{"sender":"AI_ENGINE","content":"Paris."}]}}}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, []domain.ConversationEntry{
		{Sender: domain.SenderUser, Content: "capital of France?"},
		{Sender: domain.SenderAIEngine, Content: "Paris."},
	}, answers.got.Conversation)

	answers.got = domain.AnswerRequest{}
	resp = call(t, s, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"answer_question",
		"arguments":{"knowledge_base_id":"kb","question":"q","conversation":[{"sender":"robot","content":"x"}]}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "conversation[0]")
	assert.Empty(t, answers.got.KnowledgeBaseID, "answerer must not be called")
}

func TestServer_RetrieveChunks(t *testing.T) {
	s := NewServer(&fakeAnswerer{}, fakeRetriever{}, nil, "0")
	resp := call(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"retrieve_chunks",
		"arguments":{"knowledge_base_id":"kb","chunk_ids":["x","y"]}}}`)
	require.Nil(t, resp.Error)

	raw, _ := json.Marshal(resp.Result)
	assert.Contains(t, string(raw), `guide.md (chunks 3-4)\nmerged`)
}

func TestServer_Errors(t *testing.T) {
	s := NewServer(&fakeAnswerer{err: port.ErrUnknownWisdomLevel}, fakeRetriever{}, nil, "0")

	resp := call(t, s, `{"jsonrpc":"2.0","id":3,"method":"nope"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32601, resp.Error.Code)

	resp = call(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"drop_tables"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)

	resp = call(t, s, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"answer_question",
		"arguments":{"knowledge_base_id":"kb","question":"q","wisdom_level":"LOW"}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32603, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "unknown wisdom level")

	resp = call(t, s, `{bad`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32700, resp.Error.Code)
}
