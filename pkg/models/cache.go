package models

import "encoding/json"

// CacheRecord is one cached query and its upstream response.
type CacheRecord struct {
	ID        int64           `json:"id"`
	QueryText string          `json:"query_text"`
	Embedding []float32       `json:"-"`
	Response  json.RawMessage `json:"response"`
}

// LookupResult is the outcome of a semantic cache lookup. Score is the
// similarity of the nearest cached query, or zero when the cache is empty.
type LookupResult struct {
	Hit          bool            `json:"hit"`
	ID           int64           `json:"id,omitempty"`
	MatchedQuery string          `json:"matched_query,omitempty"`
	Response     json.RawMessage `json:"response,omitempty"`
	Score        float32         `json:"score"`
}

// CacheStats reports record/index sizes and cache performance counters.
type CacheStats struct {
	RecordCount int64 `json:"record_count"`
	IndexSize   int64 `json:"index_size"`
	Consistent  bool  `json:"consistent"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Inserts     int64 `json:"inserts"`
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
