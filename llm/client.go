package llm

import (
	"context"

	"github.com/hubenschmidt/go-dossier/core"
)

// Completer sends an assembled conversation to the completion service.
type Completer interface {
	Chat(ctx context.Context, msgs []core.Message) (*ChatResponse, error)
	// ChatStream returns an ordered stream of content fragments. The channel
	// is closed after the terminal chunk; cancelling ctx tears the stream down.
	ChatStream(ctx context.Context, msgs []core.Message) (<-chan StreamChunk, error)
}

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, input string) (*EmbeddingResponse, error)
	EmbedBatch(ctx context.Context, inputs []string) ([]EmbeddingResponse, error)
}

// ClientConfig configures an OpenAI-compatible API client. BaseURL may point at
// any compatible endpoint (api.openai.com, a proxy, a local Ollama /v1).
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	EmbedModel  string
	Temperature *float64 // nil means DefaultTemperature; 0 is a valid setting
	MaxTokens   int
	Timeout     int // seconds
	MaxRetries  int // embedding calls only
}

// DefaultTemperature is used when ClientConfig.Temperature is nil.
const DefaultTemperature = 0.7

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:    "https://api.openai.com/v1",
		ChatModel:  "gpt-3.5-turbo",
		EmbedModel: "text-embedding-3-small",
		MaxTokens:  500,
		Timeout:    60,
		MaxRetries: 3,
	}
}
