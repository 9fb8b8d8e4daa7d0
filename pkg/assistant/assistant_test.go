package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/semcache/pkg/config"
	"github.com/pario-ai/semcache/pkg/models"
)

const validAdvice = `{
  "intro": "Three editors that suit beginners.",
  "recommended_tools": [{
    "name": "VS Code", "category": "Editor", "description": "Free editor",
    "url": "https://code.visualstudio.com", "quick_guide": ["Install", "Open a folder"],
    "setup_time": "5 minutes", "difficulty_level": "Beginner",
    "advantages": ["Free"], "disadvantages": ["Heavy"], "pricing": "Free", "best_for": "Everyone"
  }],
  "comparison": ["VS Code: free and extensible"],
  "final_recommendation": ["Start with VS Code"],
  "next_steps": ["Install the Go extension"]
}`

// scriptedCompleter returns canned replies and records every request.
type scriptedCompleter struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []models.ChatCompletionRequest
}

func (s *scriptedCompleter) Complete(_ context.Context, req models.ChatCompletionRequest) (*models.ChatCompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	reply := ""
	if len(s.replies) > 0 {
		reply, s.replies = s.replies[0], s.replies[1:]
	}
	return &models.ChatCompletionResponse{
		Choices: []models.Choice{{Message: models.ChatMessage{Role: "assistant", Content: reply}}},
	}, nil
}

func (s *scriptedCompleter) last() models.ChatCompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newAssistant(t *testing.T, c Completer, limit int) *Assistant {
	t.Helper()
	a, err := New(c, config.AssistantConfig{
		ToolsModel:      "tools-model",
		ChatModel:       "chat-model",
		ClassifierModel: "classifier-model",
		HistoryLimit:    limit,
	}, nil)
	require.NoError(t, err)
	return a
}

func TestClassify(t *testing.T) {
	tests := []struct {
		reply string
		want  Mode
	}{
		{"TOOLS", ModeTools},
		{" tools\n", ModeTools},
		{"CHAT", ModeChat},
		{"I am not sure", ModeChat},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			c := &scriptedCompleter{replies: []string{tt.reply}}
			mode, err := newAssistant(t, c, 0).Classify(context.Background(), "best code editor")
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
			assert.Equal(t, "classifier-model", c.last().Model)
		})
	}
}

func TestClassifyEmptyQuery(t *testing.T) {
	c := &scriptedCompleter{}
	mode, err := newAssistant(t, c, 0).Classify(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, ModeChat, mode)
	assert.Empty(t, c.requests, "empty query must not reach upstream")
}

func TestClassifyUpstreamErrorIsChat(t *testing.T) {
	c := &scriptedCompleter{err: errors.New("boom")}
	mode, err := newAssistant(t, c, 0).Classify(context.Background(), "best code editor")
	require.NoError(t, err)
	assert.Equal(t, ModeChat, mode)
}

func TestCancelledContext(t *testing.T) {
	c := &scriptedCompleter{err: context.Canceled}
	a := newAssistant(t, c, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Classify(ctx, "best code editor")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = a.AskTools(ctx, "s1", "best code editor")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = a.Chat(ctx, "s1", "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, a.history("s1"))
}

func TestAskTools(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"```json\n" + validAdvice + "\n```"}}
	a := newAssistant(t, c, 0)

	answer, err := a.AskTools(context.Background(), "s1", "best code editor for beginners")
	require.NoError(t, err)
	assert.False(t, answer.Fallback)
	assert.JSONEq(t, validAdvice, string(answer.Payload))
	assert.NotContains(t, string(answer.Payload), "\n", "payload is compacted")

	req := c.last()
	assert.Equal(t, "tools-model", req.Model)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)

	h := a.history("s1")
	require.Len(t, h, 2)
	assert.Equal(t, "best code editor for beginners", h[0].Content)
	assert.Contains(t, h[1].Content, "Recommended 1 tools")
}

func TestValidateToolResponse(t *testing.T) {
	_, err := ValidateToolResponse([]byte(validAdvice))
	require.NoError(t, err)

	_, err = ValidateToolResponse([]byte(`{"intro": "hi"}`))
	assert.ErrorIs(t, err, ErrInvalidToolResponse)

	_, err = ValidateToolResponse([]byte(fallbackAdvice))
	assert.NoError(t, err, "fallback advice has the advice shape")
}

func TestAskToolsFallback(t *testing.T) {
	tests := map[string]*scriptedCompleter{
		"upstream error": {err: errors.New("upstream down")},
		"not json":       {replies: []string{"Sure! Here are some tools."}},
		"missing fields": {replies: []string{`{"intro": "hi"}`}},
		"wrong types": {replies: []string{
			strings.Replace(validAdvice, `"next_steps": ["Install the Go extension"]`, `"next_steps": "install"`, 1),
		}},
	}
	for name, c := range tests {
		t.Run(name, func(t *testing.T) {
			a := newAssistant(t, c, 0)
			answer, err := a.AskTools(context.Background(), "s1", "best code editor")
			require.NoError(t, err)
			assert.True(t, answer.Fallback)
			assert.JSONEq(t, fallbackAdvice, string(answer.Payload))

			h := a.history("s1")
			require.Len(t, h, 2, "the failed turn is remembered")
			assert.Equal(t, "best code editor", h[0].Content)
			assert.True(t, strings.HasPrefix(h[1].Content, "An error occurred: "))
		})
	}
}

func TestChatFallback(t *testing.T) {
	c := &scriptedCompleter{err: errors.New("upstream down")}
	a := newAssistant(t, c, 0)

	reply, err := a.Chat(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, chatFallback, reply)
	assert.Empty(t, a.history("s1"))
}

func TestChatUsesSessionMemory(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"Hi Linh!", "Your name is Linh."}}
	a := newAssistant(t, c, 0)
	ctx := context.Background()

	reply, err := a.Chat(ctx, "s1", "my name is Linh")
	require.NoError(t, err)
	assert.Equal(t, "Hi Linh!", reply)

	_, err = a.Chat(ctx, "s1", "what is my name?")
	require.NoError(t, err)

	req := c.last()
	assert.Equal(t, "chat-model", req.Model)
	assert.Nil(t, req.ResponseFormat)
	// system + two remembered + current question
	require.Len(t, req.Messages, 4)
	assert.Equal(t, "my name is Linh", req.Messages[1].Content)
	assert.Equal(t, "Hi Linh!", req.Messages[2].Content)

	_, err = a.Chat(ctx, "s2", "hello")
	require.NoError(t, err)
	assert.Len(t, c.last().Messages, 2, "sessions are isolated")
}

func TestHistoryLimit(t *testing.T) {
	a := newAssistant(t, &scriptedCompleter{}, 4)
	for i := 0; i < 5; i++ {
		a.remember("s", models.ChatMessage{Role: "user", Content: fmt.Sprint(i)})
	}
	h := a.history("s")
	require.Len(t, h, 4)
	assert.Equal(t, "1", h[0].Content)
	assert.Equal(t, "4", h[3].Content)
}

func TestReset(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"ok"}}
	a := newAssistant(t, c, 0)
	_, err := a.Chat(context.Background(), "s1", "remember me")
	require.NoError(t, err)

	msg := a.Reset("s1")
	assert.NotEmpty(t, msg)
	assert.Empty(t, a.history("s1"))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(` {"a":1} `))
}
