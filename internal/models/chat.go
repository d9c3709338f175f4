package models

import (
	"time"
)

// ChatRecord is one prompt/reply exchange, append-only and owned by the
// requesting user.
type ChatRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Prompt    string    `json:"prompt"`
	Reply     string    `json:"reply"`
	Engine    string    `json:"engine"`
	CreatedAt time.Time `json:"created_at"`
}
