package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/semcache/pkg/assistant"
	"github.com/pario-ai/semcache/pkg/history"
	"github.com/pario-ai/semcache/pkg/models"
)

// Response headers describing how a query was served.
const (
	HeaderCache      = "X-Semcache"
	HeaderCacheScore = "X-Semcache-Score"

	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass"
)

// HeaderSessionID carries the session a query was answered in.
const HeaderSessionID = "X-Session-ID"

// defaultSessionID is used when an anonymous client does not name a session.
const defaultSessionID = "default_session"

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := params.Get("q")
	if q == "" {
		writeJSONError(w, http.StatusBadRequest, "missing query parameter 'q'")
		return
	}
	userID := params.Get("user_id")
	sessionID := params.Get("session_id")
	switch {
	case sessionID != "":
	case userID != "":
		// A signed-in user without a session starts a new one.
		sessionID = history.NewSessionID()
	default:
		sessionID = defaultSessionID
	}
	w.Header().Set(HeaderSessionID, sessionID)
	log := s.log.WithFields(logrus.Fields{
		"request_id": RequestIDFrom(r.Context()),
		"session_id": sessionID,
	})

	mode, err := s.assistant.Classify(r.Context(), q)
	if err != nil {
		log.WithError(err).Error("classify failed")
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	var body []byte
	switch mode {
	case assistant.ModeTools:
		body, err = s.answerTools(w, r, log, sessionID, q)
	default:
		var reply string
		reply, err = s.assistant.Chat(r.Context(), sessionID, q)
		if err == nil {
			w.Header().Set(HeaderCache, CacheBypass)
			body, err = json.Marshal(models.QueryResponse{Mode: string(assistant.ModeChat), Reply: reply})
		}
	}
	if err != nil {
		log.WithError(err).WithField("mode", mode).Error("query failed")
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	if userID != "" {
		if err := s.history.Append(r.Context(), sessionID, userID, q, body); err != nil {
			log.WithError(err).Warn("save history failed")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// answerTools serves a tools query from the cache when possible. A cache
// failure is logged and the query is answered upstream without caching.
// Fallback advice is never cached.
func (s *Server) answerTools(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, sessionID, q string) ([]byte, error) {
	ctx := r.Context()
	status := CacheBypass

	if s.cfg.Cache.Enabled {
		res, err := s.cache.Lookup(ctx, q, s.cfg.Cache.Threshold)
		switch {
		case err != nil:
			log.WithError(err).Warn("cache lookup failed, answering uncached")
		case res.Hit:
			status = CacheHit
			w.Header().Set(HeaderCacheScore, strconv.FormatFloat(float64(res.Score), 'f', 4, 32))
			w.Header().Set(HeaderCache, status)
			log.WithFields(logrus.Fields{"id": res.ID, "score": res.Score}).Info("served from cache")
			return withMode(res.Response, assistant.ModeTools)
		default:
			status = CacheMiss
			w.Header().Set(HeaderCacheScore, strconv.FormatFloat(float64(res.Score), 'f', 4, 32))
		}
	}

	answer, err := s.assistant.AskTools(ctx, sessionID, q)
	if err != nil {
		return nil, err
	}

	switch {
	case answer.Fallback:
		status = CacheBypass
	case status == CacheMiss:
		if _, err := s.cache.Insert(ctx, q, answer.Payload); err != nil {
			log.WithError(err).Warn("cache insert failed")
		}
	}
	w.Header().Set(HeaderCache, status)
	return withMode(answer.Payload, assistant.ModeTools)
}

// withMode adds a "mode" field to a JSON object unless it already has one.
func withMode(payload json.RawMessage, mode assistant.Mode) ([]byte, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, fmt.Errorf("decode tools payload: %w", err)
	}
	if _, ok := obj["mode"]; !ok {
		m, _ := json.Marshal(string(mode))
		obj["mode"] = m
	}
	return json.Marshal(obj)
}
