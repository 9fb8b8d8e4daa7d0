package mcp

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/pario-ai/semcache/pkg/models"
)

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	consistent := "yes"
	if !stats.Consistent {
		consistent = "NO (run semcache_rebuild)"
	}
	return fmt.Sprintf("Cache Statistics\n"+
		"  Records:    %s\n"+
		"  Indexed:    %s\n"+
		"  Consistent: %s\n"+
		"  Hits:       %s\n"+
		"  Misses:     %s\n"+
		"  Inserts:    %s\n"+
		"  Hit Rate:   %.1f%%\n",
		humanize.Comma(stats.RecordCount),
		humanize.Comma(stats.IndexSize),
		consistent,
		humanize.Comma(stats.Hits),
		humanize.Comma(stats.Misses),
		humanize.Comma(stats.Inserts),
		stats.HitRate()*100)
}

// formatLookup formats a lookup result as text.
func formatLookup(res models.LookupResult, threshold float32) string {
	if !res.Hit {
		return fmt.Sprintf("MISS (best score %.4f, threshold %.2f)", res.Score, threshold)
	}
	return fmt.Sprintf("HIT #%d (score %.4f, threshold %.2f)\nMatched query: %s\nResponse:\n%s",
		res.ID, res.Score, threshold, res.MatchedQuery, string(res.Response))
}

// formatSessions formats sessions as a text table.
func formatSessions(sessions []models.Session) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-40s %-16s\n", "Session ID", "Title", "Updated")
	b.WriteString(strings.Repeat("-", 96) + "\n")
	for _, s := range sessions {
		title := s.Title
		if r := []rune(title); len(r) > 40 {
			title = string(r[:37]) + "..."
		}
		fmt.Fprintf(&b, "%-38s %-40s %-16s\n", s.ID, title, humanize.Time(s.UpdatedAt))
	}
	return b.String()
}

// formatMessages formats a conversation as text, one message per block.
func formatMessages(msgs []models.HistoryMessage) string {
	if len(msgs) == 0 {
		return "No messages found for this session."
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] %s:\n%s\n\n", m.Timestamp.Format("2006-01-02 15:04:05"), m.Role, string(m.Content))
	}
	return b.String()
}
