package server

import (
	"errors"
	"net/http"

	"github.com/pario-ai/semcache/pkg/history"
	"github.com/pario-ai/semcache/pkg/models"
)

type renameRequest struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type userRequest struct {
	UserID string `json:"user_id"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Deleted *int64 `json:"deleted,omitempty"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusOK, []models.Session{})
		return
	}
	sessions, err := s.history.ListSessions(r.Context(), userID)
	if err != nil {
		s.log.WithError(err).Error("list sessions failed")
		writeJSONError(w, http.StatusInternalServerError, "list sessions failed")
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.history.Messages(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		s.log.WithError(err).Error("load history failed")
		writeJSONError(w, http.StatusInternalServerError, "load history failed")
		return
	}
	if msgs == nil {
		msgs = []models.HistoryMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeBody(w, r, &req); err != nil || req.SessionID == "" || req.Title == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id and title are required")
		return
	}
	if err := s.history.Rename(r.Context(), req.SessionID, req.Title); err != nil {
		s.writeHistoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeBody(w, r, &req); err != nil || req.SessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if err := s.history.Delete(r.Context(), req.SessionID); err != nil {
		s.writeHistoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeBody(w, r, &req); err != nil || req.UserID == "" {
		writeJSONError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	n, err := s.history.ClearUser(r.Context(), req.UserID)
	if err != nil {
		s.writeHistoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Deleted: &n})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	// An empty or missing body resets the default session.
	_ = decodeBody(w, r, &req)
	if req.SessionID == "" {
		req.SessionID = defaultSessionID
	}
	msg := s.assistant.Reset(req.SessionID)
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: msg})
}

func (s *Server) writeHistoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.WithError(err).Error("history operation failed")
	writeJSONError(w, http.StatusInternalServerError, "history operation failed")
}
