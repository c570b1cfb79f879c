package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hubenschmidt/go-dossier/core"
)

// OpenAIClient talks to an OpenAI-compatible chat/embeddings API. It implements
// both Completer and Embedder.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	chatModel   string
	embedModel  string
	temperature float64
	maxTokens   int
	maxRetries  int
	client      *http.Client
}

func NewOpenAIClient(cfg ClientConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai client: %w: APIKey", core.ErrMissingConfig)
	}
	def := DefaultClientConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = def.ChatModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = def.EmbedModel
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	return &OpenAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		chatModel:   cfg.ChatModel,
		embedModel:  cfg.EmbedModel,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		client:      &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}, nil
}

// Chat sends the conversation and waits for the full completion.
func (c *OpenAIClient) Chat(ctx context.Context, msgs []core.Message) (*ChatResponse, error) {
	body, err := json.Marshal(c.chatRequest(msgs, false))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var result openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion returned no choices", core.ErrUpstream)
	}

	return &ChatResponse{
		Content:      result.Choices[0].Message.Content,
		FinishReason: result.Choices[0].FinishReason,
		Usage: Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
	}, nil
}

// ChatStream sends the conversation with stream=true and forwards SSE deltas
// on the returned channel as they arrive.
func (c *OpenAIClient) ChatStream(ctx context.Context, msgs []core.Message) (<-chan StreamChunk, error) {
	body, err := json.Marshal(c.chatRequest(msgs, true))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}

	ch := make(chan StreamChunk)
	go c.readStream(ctx, resp, ch)
	return ch, nil
}

func (c *OpenAIClient) readStream(ctx context.Context, resp *http.Response, ch chan<- StreamChunk) {
	defer resp.Body.Close()
	defer close(ch)

	// Sends block on the unbuffered channel; select against ctx so an
	// abandoned consumer cannot park this goroutine forever.
	send := func(chunk StreamChunk) bool {
		select {
		case ch <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	reader := bufio.NewReader(resp.Body)
	var usage *Usage
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				send(StreamChunk{Error: err, Done: true})
			} else {
				send(StreamChunk{Done: true, Usage: usage})
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "data: [DONE]" {
			send(StreamChunk{Done: true, Usage: usage})
			return
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
			continue
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if !send(StreamChunk{Content: chunk.Choices[0].Delta.Content}) {
				return
			}
		}
	}
}

// Embed returns the embedding vector for a single non-empty input. Transient
// failures (429 and 5xx) are retried with exponential backoff.
func (c *OpenAIClient) Embed(ctx context.Context, input string) (*EmbeddingResponse, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("embed: %w", core.ErrEmptyInput)
	}

	var out *EmbeddingResponse
	op := func() error {
		resp, err := c.embedOnce(ctx, input)
		if err != nil {
			return err
		}
		out = resp
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedBatch embeds each input in order. The whole batch fails on the first
// terminal error.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, inputs []string) ([]EmbeddingResponse, error) {
	results := make([]EmbeddingResponse, 0, len(inputs))
	for i, input := range inputs {
		resp, err := c.Embed(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("embed input %d: %w", i, err)
		}
		results = append(results, *resp)
	}
	return results, nil
}

func (c *OpenAIClient) embedOnce(ctx context.Context, input string) (*EmbeddingResponse, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.embedModel,
		"input": input,
	})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	resp, err := c.post(ctx, "/embeddings", body)
	if err != nil {
		return nil, err // network errors are retryable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: embeddings returned %s", core.ErrUpstream, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(apiError(resp))
	}

	var result struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
		Usage struct {
			PromptTokens int `json:"prompt_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("%w: no embedding returned", core.ErrUpstream))
	}

	return &EmbeddingResponse{
		Embedding:  result.Data[0].Embedding,
		TokenCount: result.Usage.PromptTokens,
	}, nil
}

func (c *OpenAIClient) chatRequest(msgs []core.Message, stream bool) map[string]any {
	messages := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		messages = append(messages, map[string]any{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}
	req := map[string]any{
		"model":       c.chatModel,
		"messages":    messages,
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}
	if stream {
		req["stream"] = true
		req["stream_options"] = map[string]any{"include_usage": true}
	}
	return req
}

func (c *OpenAIClient) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	respBody, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%w: API error (status %d): %s", core.ErrUpstream, resp.StatusCode, string(respBody))
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

var (
	_ Completer = (*OpenAIClient)(nil)
	_ Embedder  = (*OpenAIClient)(nil)
)
