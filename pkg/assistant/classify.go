package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/semcache/pkg/models"
)

const classifierPrompt = `You route questions for a technology tool advisor. There are two modes:

TOOLS: the user wants to find, choose, compare or get suggestions for tools,
software, apps, websites, platforms, languages, services or online courses.
CHAT: everything else (greetings, general knowledge, small talk, quick how-tos).

Answer with exactly one word, TOOLS or CHAT, and nothing else.`

// Classify decides whether query asks for tool recommendations. An empty
// query is chat. Any answer other than one containing TOOLS is chat, and so
// is a failed classification. An error is returned only when ctx is done.
func (a *Assistant) Classify(ctx context.Context, query string) (Mode, error) {
	if strings.TrimSpace(query) == "" {
		return ModeChat, nil
	}

	answer, err := a.complete(ctx, a.cfg.ClassifierModel, []models.ChatMessage{
		{Role: "system", Content: classifierPrompt},
		{Role: "user", Content: fmt.Sprintf("Classify: %q", query)},
	}, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		a.log.WithField("query", query).WithError(err).Warn("classify failed, defaulting to chat")
		return ModeChat, nil
	}

	mode := ModeChat
	if strings.Contains(strings.ToUpper(answer), "TOOLS") {
		mode = ModeTools
	}
	a.log.WithFields(logrus.Fields{"query": query, "mode": mode}).Debug("classified query")
	return mode, nil
}
