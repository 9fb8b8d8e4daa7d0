package models

import (
	"encoding/json"
	"time"
)

// Session is a stored conversation belonging to a user.
type Session struct {
	ID        string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryMessage is one turn in a stored conversation. Content is the raw JSON
// value that was sent to the client: a string for chat replies, an object for
// tool advice.
type HistoryMessage struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
}
