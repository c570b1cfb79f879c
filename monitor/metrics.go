package monitor

import "time"

// Summary is a snapshot of per-process request counters.
type Summary struct {
	Uploads       int64     `json:"uploads"`
	ChunksStored  int64     `json:"chunks_stored"`
	Searches      int64     `json:"searches"`
	Chats         int64     `json:"chats"`
	PromptTokens  int64     `json:"prompt_tokens"`
	OutputTokens  int64     `json:"output_tokens"`
	Errors        int64     `json:"errors"`
	AvgChatMs     float64   `json:"avg_chat_ms"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}
