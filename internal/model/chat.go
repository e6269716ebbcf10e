package model

import "time"

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	BabyID    string    `json:"baby_id"`
	UserID    string    `json:"user_id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatMetrics struct {
	ID               string
	UserID           string
	BabyID           string
	Complexity       string
	HistoryTier      int
	HistoryCount     int
	Model            string
	PromptTokens     int
	CompletionTokens int
	ToolCalls        int
	Latency          time.Duration
	Fallback         bool
	CreatedAt        time.Time
}
