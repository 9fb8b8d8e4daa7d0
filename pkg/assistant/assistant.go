// Package assistant answers user queries through an upstream LLM. Queries are
// classified as tool recommendations, which produce structured JSON that is
// safe to cache, or free-form chat, which is never cached.
package assistant

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/semcache/pkg/config"
	"github.com/pario-ai/semcache/pkg/logging"
	"github.com/pario-ai/semcache/pkg/models"
)

// Mode is the kind of answer a query needs.
type Mode string

const (
	ModeTools Mode = "tools"
	ModeChat  Mode = "chat"
)

const defaultHistoryLimit = 40

// Completer sends a chat completion request upstream.
type Completer interface {
	Complete(ctx context.Context, req models.ChatCompletionRequest) (*models.ChatCompletionResponse, error)
}

// Assistant holds per-session conversation memory in process.
type Assistant struct {
	completer Completer
	cfg       config.AssistantConfig
	log       logrus.FieldLogger

	mu       sync.Mutex
	sessions map[string][]models.ChatMessage
}

// New creates an Assistant. log may be nil.
func New(completer Completer, cfg config.AssistantConfig, log logrus.FieldLogger) (*Assistant, error) {
	if _, err := compiledToolSchema(); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Assistant{
		completer: completer,
		cfg:       cfg,
		log:       log.WithField("component", "assistant"),
		sessions:  make(map[string][]models.ChatMessage),
	}, nil
}

// Reset forgets the conversation for sessionID and returns a message
// suitable for showing to the user.
func (a *Assistant) Reset(sessionID string) string {
	a.mu.Lock()
	delete(a.sessions, sessionID)
	a.mu.Unlock()
	return "Conversation reset. Tell me about your project and what you need."
}

// history returns a copy of the remembered messages for sessionID.
func (a *Assistant) history(sessionID string) []models.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.ChatMessage(nil), a.sessions[sessionID]...)
}

// remember appends msgs to the session, keeping only the newest
// HistoryLimit messages.
func (a *Assistant) remember(sessionID string, msgs ...models.ChatMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := append(a.sessions[sessionID], msgs...)
	if over := len(h) - a.cfg.HistoryLimit; over > 0 {
		h = append([]models.ChatMessage(nil), h[over:]...)
	}
	a.sessions[sessionID] = h
}

func (a *Assistant) complete(ctx context.Context, model string, msgs []models.ChatMessage, format *models.ResponseFormat) (string, error) {
	temp := 0.0
	resp, err := a.completer.Complete(ctx, models.ChatCompletionRequest{
		Model:          model,
		Messages:       msgs,
		Temperature:    &temp,
		ResponseFormat: format,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content()), nil
}
