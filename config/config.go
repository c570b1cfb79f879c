// Package config loads application configuration from YAML with environment
// variables for secrets.
package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig configures the OpenAI-compatible completion/embedding client.
type OpenAIConfig struct {
	APIKeyEnv  string `yaml:"api_key_env"`
	BaseURL    string `yaml:"base_url"`
	ChatModel  string `yaml:"chat_model"`
	EmbedModel string `yaml:"embed_model"`
	// Pointer so an explicit 0 in the file survives defaulting.
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

// PineconeConfig contains connection details for a Pinecone index.
type PineconeConfig struct {
	APIKeyEnv    string `yaml:"api_key_env"`
	IndexHostEnv string `yaml:"index_host_env"`
	Namespace    string `yaml:"namespace"`
	TimeoutSecs  int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects the vector store backend.
type VectorStoreConfig struct {
	Type      string          `yaml:"type"` // pinecone, pgvector or memory
	Pinecone  *PineconeConfig `yaml:"pinecone,omitempty"`
	DSN       string          `yaml:"dsn,omitempty"` // pgvector only
	Dimension int             `yaml:"dimension"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Size int `yaml:"size"`
	// Pointer so an explicit 0 in the file survives defaulting.
	Overlap *int `yaml:"overlap"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Addr        string            `yaml:"addr"`
	DatabaseDSN string            `yaml:"database_dsn"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	TopK        int               `yaml:"top_k"`
}

// Load reads a config from the given path. If the file does not exist,
// defaults are returned.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// OpenAIKey resolves the API key from the configured environment variable.
func (c *AppConfig) OpenAIKey() string {
	return os.Getenv(c.OpenAI.APIKeyEnv)
}

// PineconeKey resolves the Pinecone API key, or "" when not configured.
func (c *AppConfig) PineconeKey() string {
	if c.VectorStore.Pinecone == nil {
		return ""
	}
	return os.Getenv(c.VectorStore.Pinecone.APIKeyEnv)
}

// PineconeHost resolves the Pinecone index host, or "" when not configured.
func (c *AppConfig) PineconeHost() string {
	if c.VectorStore.Pinecone == nil {
		return ""
	}
	return os.Getenv(c.VectorStore.Pinecone.IndexHostEnv)
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-3.5-turbo"
	}
	if cfg.OpenAI.EmbedModel == "" {
		cfg.OpenAI.EmbedModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.Temperature == nil {
		v := 0.7
		cfg.OpenAI.Temperature = &v
	}
	if cfg.OpenAI.MaxTokens == 0 {
		cfg.OpenAI.MaxTokens = 500
	}
	if cfg.OpenAI.TimeoutSecs == 0 {
		cfg.OpenAI.TimeoutSecs = 60
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Dimension == 0 {
		cfg.VectorStore.Dimension = 1536
	}
	if cfg.VectorStore.Type == "pinecone" {
		if cfg.VectorStore.Pinecone == nil {
			cfg.VectorStore.Pinecone = &PineconeConfig{}
		}
		if cfg.VectorStore.Pinecone.APIKeyEnv == "" {
			cfg.VectorStore.Pinecone.APIKeyEnv = "PINECONE_API_KEY"
		}
		if cfg.VectorStore.Pinecone.IndexHostEnv == "" {
			cfg.VectorStore.Pinecone.IndexHostEnv = "PINECONE_INDEX_HOST"
		}
		if cfg.VectorStore.Pinecone.TimeoutSecs == 0 {
			cfg.VectorStore.Pinecone.TimeoutSecs = 15
		}
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1000
	}
	if cfg.Chunker.Overlap == nil {
		v := 200
		cfg.Chunker.Overlap = &v
	}
	if cfg.TopK == 0 {
		cfg.TopK = 4
	}
}
