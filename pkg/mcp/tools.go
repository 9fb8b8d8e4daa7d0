package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type lookupArgs struct {
	Query     string   `json:"query"`
	Threshold *float32 `json:"threshold"`
}

type userArgs struct {
	UserID string `json:"user_id"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

// toolHandler handles one tools/call. Invalid input is reported with an
// isError result or an *RPCError; any other error is an internal failure.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) (ToolCallResult, error)

var toolHandlers = map[string]toolHandler{
	"semcache_stats":    handleStats,
	"semcache_lookup":   handleLookup,
	"semcache_clear":    handleClear,
	"semcache_rebuild":  handleRebuild,
	"semcache_sessions": handleSessions,
	"semcache_history":  handleHistory,
}

var emptySchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{},
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "semcache_stats",
		Description: "Show semantic cache statistics: stored records, indexed vectors, hits, misses and hit rate.",
		InputSchema: emptySchema,
	},
	{
		Name:        "semcache_lookup",
		Description: "Find the cached response whose query is most similar to the given text.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"query"},
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Query text to look up",
				},
				"threshold": map[string]any{
					"type":        "number",
					"minimum":     0,
					"maximum":     1,
					"description": "Minimum cosine similarity for a hit (optional, defaults to the configured threshold)",
				},
			},
		},
	},
	{
		Name:        "semcache_clear",
		Description: "Delete every cached record and empty the index.",
		InputSchema: emptySchema,
	},
	{
		Name:        "semcache_rebuild",
		Description: "Rebuild the in-memory index from the record store.",
		InputSchema: emptySchema,
	},
	{
		Name:        "semcache_sessions",
		Description: "List a user's stored conversations.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"user_id"},
			"properties": map[string]any{
				"user_id": map[string]any{"type": "string", "description": "The user whose sessions to list"},
			},
		},
	},
	{
		Name:        "semcache_history",
		Description: "Show the messages of one stored conversation.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"session_id"},
			"properties": map[string]any{
				"session_id": map[string]any{"type": "string", "description": "The session to show"},
			},
		},
	},
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalidParams("invalid arguments: %v", err)
	}
	return nil
}

func handleStats(ctx context.Context, s *Server, _ json.RawMessage) (ToolCallResult, error) {
	stats, err := s.cache.Stats(ctx)
	if err != nil {
		return ToolCallResult{}, fmt.Errorf("cache stats: %w", err)
	}
	return textResult(formatCacheStats(stats)), nil
}

func handleLookup(ctx context.Context, s *Server, rawArgs json.RawMessage) (ToolCallResult, error) {
	var args lookupArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return ToolCallResult{}, err
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("query is required"), nil
	}
	threshold := s.threshold
	if args.Threshold != nil {
		threshold = *args.Threshold
	}
	res, err := s.cache.Lookup(ctx, args.Query, threshold)
	if err != nil {
		return ToolCallResult{}, fmt.Errorf("cache lookup: %w", err)
	}
	return textResult(formatLookup(res, threshold)), nil
}

func handleClear(ctx context.Context, s *Server, _ json.RawMessage) (ToolCallResult, error) {
	if err := s.cache.Clear(ctx); err != nil {
		return ToolCallResult{}, fmt.Errorf("cache clear: %w", err)
	}
	return textResult("Cache cleared."), nil
}

func handleRebuild(ctx context.Context, s *Server, _ json.RawMessage) (ToolCallResult, error) {
	if err := s.cache.Rebuild(ctx); err != nil {
		return ToolCallResult{}, fmt.Errorf("rebuild index: %w", err)
	}
	stats, err := s.cache.Stats(ctx)
	if err != nil {
		return ToolCallResult{}, fmt.Errorf("cache stats: %w", err)
	}
	return textResult("Index rebuilt.\n" + formatCacheStats(stats)), nil
}

func handleSessions(ctx context.Context, s *Server, rawArgs json.RawMessage) (ToolCallResult, error) {
	if s.history == nil {
		return textResult("Conversation history is not configured."), nil
	}
	var args userArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return ToolCallResult{}, err
	}
	if args.UserID == "" {
		return errorResult("user_id is required"), nil
	}
	sessions, err := s.history.ListSessions(ctx, args.UserID)
	if err != nil {
		return ToolCallResult{}, fmt.Errorf("list sessions: %w", err)
	}
	return textResult(formatSessions(sessions)), nil
}

func handleHistory(ctx context.Context, s *Server, rawArgs json.RawMessage) (ToolCallResult, error) {
	if s.history == nil {
		return textResult("Conversation history is not configured."), nil
	}
	var args sessionArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return ToolCallResult{}, err
	}
	if args.SessionID == "" {
		return errorResult("session_id is required"), nil
	}
	msgs, err := s.history.Messages(ctx, args.SessionID)
	if err != nil {
		return ToolCallResult{}, fmt.Errorf("session messages: %w", err)
	}
	return textResult(formatMessages(msgs)), nil
}
