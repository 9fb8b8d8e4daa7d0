package server

import (
	"net/http"

	"github.com/pario-ai/semcache/pkg/models"
)

type cacheStatsResponse struct {
	models.CacheStats
	HitRate float64 `json:"hit_rate"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		s.log.WithError(err).Error("cache stats failed")
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cacheStatsResponse{CacheStats: stats, HitRate: stats.HitRate()})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Clear(r.Context()); err != nil {
		s.log.WithError(err).Error("cache clear failed")
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "cache cleared"})
}

func (s *Server) handleCacheRebuild(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Rebuild(r.Context()); err != nil {
		s.log.WithError(err).Error("cache rebuild failed")
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cacheStatsResponse{CacheStats: stats, HitRate: stats.HitRate()})
}
