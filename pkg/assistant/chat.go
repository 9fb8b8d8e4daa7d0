package assistant

import (
	"context"

	"github.com/pario-ai/semcache/pkg/models"
)

const chatPrompt = `You are a friendly assistant talking with the same user for the whole
session. Refer back to earlier questions when it helps. Answer briefly and
clearly in plain text; never answer with JSON.`

// chatFallback is the reply when the chat model cannot be reached.
const chatFallback = "Sorry, I can't respond right now. Please try again later."

// Chat answers query as free-form text using the session's memory. An
// upstream failure yields a fixed apology and leaves the memory unchanged;
// an error is returned only when ctx is done.
func (a *Assistant) Chat(ctx context.Context, sessionID, query string) (string, error) {
	msgs := []models.ChatMessage{{Role: "system", Content: chatPrompt}}
	msgs = append(msgs, a.history(sessionID)...)
	msgs = append(msgs, models.ChatMessage{Role: "user", Content: query})

	reply, err := a.complete(ctx, a.cfg.ChatModel, msgs, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		a.log.WithField("session_id", sessionID).WithError(err).Warn("chat failed")
		return chatFallback, nil
	}

	a.remember(sessionID,
		models.ChatMessage{Role: "user", Content: query},
		models.ChatMessage{Role: "assistant", Content: reply},
	)
	return reply, nil
}
