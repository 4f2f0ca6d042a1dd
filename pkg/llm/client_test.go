package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mood-diary-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type fakeChatServer struct {
	mu       sync.Mutex
	requests []capturedRequest
	hits     int
	reply    string
	status   int
}

func (f *fakeChatServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.hits++
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req capturedRequest
		assert.NoError(t, json.Unmarshal(body, &req))
		f.requests = append(f.requests, req)

		w.Header().Set("Content-Type", "application/json")
		if f.status != 0 && f.status != http.StatusOK {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		resp := map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]interface{}{"role": "assistant", "content": f.reply},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func newTestClient(t *testing.T, fake *fakeChatServer) Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(config.LLMConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL + "/v1",
		Model:          "test-model",
		TimeoutSeconds: 5,
	})
}

func TestAnalyzeConversation(t *testing.T) {
	fake := &fakeChatServer{reply: "  χαρά - 8 \n"}
	c := newTestClient(t, fake)

	out, err := c.AnalyzeConversation(context.Background(), []string{"ok", "fine"})
	require.NoError(t, err)
	assert.Equal(t, "χαρά - 8", out)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, "1. ok")
	assert.Contains(t, req.Messages[1].Content, "2. fine")
}

func TestGenerateAdaptiveQuestionIncludesMemory(t *testing.T) {
	fake := &fakeChatServer{reply: "What made you smile today?"}
	c := newTestClient(t, fake)

	q, err := c.GenerateAdaptiveQuestion(context.Background(), nil, 1, []string{"joy", "calm"})
	require.NoError(t, err)
	assert.Equal(t, "What made you smile today?", q)

	user := fake.requests[0].Messages[1].Content
	assert.Contains(t, user, "Question number: 1")
	assert.Contains(t, user, "joy, calm")
	assert.Contains(t, user, "none (this is the first question)")
}

func TestGenerateFollowupQuestionOmitsMemory(t *testing.T) {
	fake := &fakeChatServer{reply: "Why?"}
	c := newTestClient(t, fake)

	_, err := c.GenerateFollowupQuestion(context.Background(), []string{"tired"})
	require.NoError(t, err)

	user := fake.requests[0].Messages[1].Content
	assert.NotContains(t, user, "Recent moods")
	assert.Contains(t, user, "1. tired")
}

func TestEmptyCompletion(t *testing.T) {
	fake := &fakeChatServer{reply: "   "}
	c := newTestClient(t, fake)

	_, err := c.GenerateFollowupQuestion(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestServerErrorIsNotRetried(t *testing.T) {
	fake := &fakeChatServer{status: http.StatusInternalServerError}
	c := newTestClient(t, fake)

	_, err := c.AnalyzeConversation(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, 1, fake.hits)
}

func TestPromptOverrides(t *testing.T) {
	ps := newPromptSet(config.LLMPromptConfig{Analysis: "custom", Language: "Greek"})
	assert.Equal(t, "custom", ps.analysis)
	assert.Contains(t, ps.adaptive, "Greek")
	assert.Contains(t, ps.followup, "Greek")
}

func TestAnalyzeConversationWithNoAnswers(t *testing.T) {
	fake := &fakeChatServer{reply: "neutral - 5"}
	c := newTestClient(t, fake)

	_, err := c.AnalyzeConversation(context.Background(), []string{})
	require.NoError(t, err)

	user := fake.requests[0].Messages[1].Content
	assert.Contains(t, user, "stopped before answering")
	assert.NotContains(t, user, "first question")
}
