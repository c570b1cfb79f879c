package llm

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatResponse struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        Usage  `json:"usage,omitempty"`
}

// StreamChunk is one fragment of a streamed completion. The terminal chunk has
// Done set; a mid-stream failure is delivered as a terminal chunk with Error.
type StreamChunk struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done"`
	Error   error  `json:"error,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
}

// EmbeddingResponse represents a single embedding result.
type EmbeddingResponse struct {
	Embedding  []float64 `json:"embedding"`
	TokenCount int       `json:"token_count"`
}
