package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pario-ai/semcache/pkg/models"
)

// ErrInvalidToolResponse is returned by ValidateToolResponse when a payload
// does not match the advice schema.
var ErrInvalidToolResponse = errors.New("assistant: invalid tool recommendation")

const toolsPrompt = `You are an assistant that recommends technology tools available on the web.

For each request:
- analyse what the user needs
- recommend up to 3 suitable tools
- compare each tool on its own line, never grouped together
- give concrete final advice and a plain list of next steps
- include a short getting-started guide per tool

Prefer free or freemium tools with good communities that are quick to learn.
Do not use Markdown. Always return valid JSON with every field of this shape:
{"intro": string, "recommended_tools": [{"name", "category", "description",
"url", "quick_guide": [string], "setup_time", "difficulty_level",
"advantages": [string], "disadvantages": [string], "pricing", "best_for"}],
"comparison": [string], "final_recommendation": [string], "next_steps": [string]}
Use "Unknown" or [] when unsure; never omit a field.`

const toolSchema = `{
  "type": "object",
  "properties": {
    "intro": {"type": "string"},
    "recommended_tools": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "category": {"type": "string"},
          "description": {"type": "string"},
          "url": {"type": "string"},
          "quick_guide": {"type": "array", "items": {"type": "string"}},
          "setup_time": {"type": "string"},
          "difficulty_level": {"type": "string"},
          "advantages": {"type": "array", "items": {"type": "string"}},
          "disadvantages": {"type": "array", "items": {"type": "string"}},
          "pricing": {"type": "string"},
          "best_for": {"type": "string"}
        },
        "required": ["name", "category", "description", "url", "quick_guide",
          "setup_time", "difficulty_level", "advantages", "disadvantages",
          "pricing", "best_for"]
      }
    },
    "comparison": {"type": "array", "items": {"type": "string"}},
    "final_recommendation": {"type": "array", "items": {"type": "string"}},
    "next_steps": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["intro", "recommended_tools", "comparison", "final_recommendation", "next_steps"]
}`

var compiledToolSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(toolSchema))
	if err != nil {
		return nil, fmt.Errorf("compile tool schema: %w", err)
	}
	return schema, nil
})

// ToolAnswer is the result of AskTools. A Fallback answer was produced
// locally because the upstream call failed or returned unusable advice; it
// must not be cached.
type ToolAnswer struct {
	Payload  json.RawMessage
	Fallback bool
}

// fallbackAdvice is served when no usable recommendation could be obtained.
const fallbackAdvice = `{"intro":"The advisor is having trouble right now.","recommended_tools":[],"comparison":[],` +
	`"final_recommendation":["Please try again or ask a different question."],"next_steps":["Try again in 5 minutes"]}`

// AskTools asks for structured tool recommendations. The returned payload
// has been validated and compacted. An upstream failure or an answer that
// does not match the advice schema yields the fallback advice instead; an
// error is returned only when ctx is done.
func (a *Assistant) AskTools(ctx context.Context, sessionID, query string) (ToolAnswer, error) {
	msgs := []models.ChatMessage{
		{Role: "system", Content: toolsPrompt},
		{Role: "user", Content: "Hi! I need advice on choosing technology tools."},
		{Role: "assistant", Content: "Happy to help. Tell me about your project, goals and requirements."},
	}
	msgs = append(msgs, a.history(sessionID)...)
	msgs = append(msgs, models.ChatMessage{Role: "user", Content: "Question: " + query})

	payload, err := a.askTools(ctx, msgs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ToolAnswer{}, ctxErr
		}
		a.log.WithField("query", query).WithError(err).Warn("tools answer failed, serving fallback")
		a.remember(sessionID,
			models.ChatMessage{Role: "user", Content: query},
			models.ChatMessage{Role: "assistant", Content: "An error occurred: " + truncate(err.Error(), 50)},
		)
		return ToolAnswer{Payload: json.RawMessage(fallbackAdvice), Fallback: true}, nil
	}

	var advice struct {
		RecommendedTools []json.RawMessage `json:"recommended_tools"`
	}
	_ = json.Unmarshal(payload, &advice)
	a.remember(sessionID,
		models.ChatMessage{Role: "user", Content: query},
		models.ChatMessage{Role: "assistant", Content: fmt.Sprintf("Recommended %d tools for: %s", len(advice.RecommendedTools), query)},
	)
	return ToolAnswer{Payload: payload}, nil
}

func (a *Assistant) askTools(ctx context.Context, msgs []models.ChatMessage) (json.RawMessage, error) {
	content, err := a.complete(ctx, a.cfg.ToolsModel, msgs, &models.ResponseFormat{Type: "json_object"})
	if err != nil {
		return nil, fmt.Errorf("ask tools: %w", err)
	}
	return ValidateToolResponse([]byte(stripFences(content)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// ValidateToolResponse checks raw against the advice schema and returns it
// compacted.
func ValidateToolResponse(raw []byte) (json.RawMessage, error) {
	schema, err := compiledToolSchema()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToolResponse, err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToolResponse, err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToolResponse, strings.Join(errs, ", "))
	}
	return json.RawMessage(buf.Bytes()), nil
}

// stripFences removes a surrounding Markdown code fence some models add even
// in JSON mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
