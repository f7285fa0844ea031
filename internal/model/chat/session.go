package chat

import "time"

// Session holds the credentials and system prompt a conversation was initialized with.
// It lives in memory only.
type Session struct {
	ID           string    `json:"id"`
	APIKey       string    `json:"-"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
