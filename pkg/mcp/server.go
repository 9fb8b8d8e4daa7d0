package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/semcache/pkg/history"
	"github.com/pario-ai/semcache/pkg/logging"
	"github.com/pario-ai/semcache/pkg/models"
)

// Cache is the subset of the semantic cache the tools operate on.
type Cache interface {
	Lookup(ctx context.Context, query string, threshold float32) (models.LookupResult, error)
	Stats(ctx context.Context) (models.CacheStats, error)
	Clear(ctx context.Context) error
	Rebuild(ctx context.Context) error
}

// Server is a minimal MCP server that communicates over stdio using JSON-RPC 2.0.
type Server struct {
	cache     Cache
	history   history.Store
	threshold float32
	version   string
	log       logrus.FieldLogger
}

// New creates an MCP Server. threshold is the default for semcache_lookup.
// history and log may be nil.
func New(cache Cache, h history.Store, threshold float32, version string, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	return &Server{
		cache:     cache,
		history:   h,
		threshold: threshold,
		version:   version,
		log:       log.WithField("component", "mcp"),
	}
}

// Run reads JSON-RPC requests from r line-by-line and writes responses to w.
// It blocks until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, newError(nil, &RPCError{Code: CodeParseError, Message: "parse error"}))
			continue
		}

		resp := s.dispatch(ctx, &req)
		if resp != nil && !req.IsNotification() {
			s.writeResponse(w, resp)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return newResult(req.ID, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "semcache", Version: s.version},
		})
	case "notifications/initialized":
		return nil
	case "ping":
		return newResult(req.ID, struct{}{})
	case "tools/list":
		return newResult(req.ID, ToolsListResult{Tools: allTools})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return newError(req.ID, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)})
	}
}

// handleToolsCall runs a tool. Bad params and unknown tools are
// CodeInvalidParams; a failing cache or history store is CodeInternalError.
func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return newError(req.ID, invalidParams("invalid params"))
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return newError(req.ID, invalidParams("unknown tool: %s", params.Name))
	}

	log := s.log.WithField("tool", params.Name)
	log.Debug("tool call")
	res, err := handler(ctx, s, params.Arguments)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return newError(req.ID, rpcErr)
		}
		log.WithError(err).Error("tool failed")
		return newError(req.ID, &RPCError{Code: CodeInternalError, Message: err.Error()})
	}
	return newResult(req.ID, res)
}

func (s *Server) writeResponse(w io.Writer, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.WithError(err).Error("marshal response")
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.log.WithError(err).Error("write response")
	}
}
