package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/hubenschmidt/go-dossier/chunker"
	"github.com/hubenschmidt/go-dossier/config"
	"github.com/hubenschmidt/go-dossier/llm"
	"github.com/hubenschmidt/go-dossier/monitor"
	"github.com/hubenschmidt/go-dossier/rag"
	"github.com/hubenschmidt/go-dossier/server"
	"github.com/hubenschmidt/go-dossier/server/store"
	"github.com/hubenschmidt/go-dossier/vector"
	"github.com/hubenschmidt/go-dossier/web"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(getEnvOr("DOSSIER_CONFIG", "dossier.yaml"))
	if err != nil {
		log.Fatalf("[main] load config: %v", err)
	}

	client, err := llm.NewOpenAIClient(llm.ClientConfig{
		APIKey:      cfg.OpenAIKey(),
		BaseURL:     cfg.OpenAI.BaseURL,
		ChatModel:   cfg.OpenAI.ChatModel,
		EmbedModel:  cfg.OpenAI.EmbedModel,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Timeout:     cfg.OpenAI.TimeoutSecs,
	})
	if err != nil {
		log.Fatalf("[main] openai client: %v", err)
	}

	vstore, err := newVectorStore(cfg)
	if err != nil {
		log.Fatalf("[main] vector store: %v", err)
	}
	defer vstore.Close()

	docs, err := store.NewDocumentStore(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("[main] document store: %v", err)
	}

	pipeline := rag.NewPipeline(rag.Config{
		Chunker:   chunker.New(cfg.Chunker.Size, *cfg.Chunker.Overlap),
		Embedder:  client,
		Completer: client,
		Store:     vstore,
		TopK:      cfg.TopK,
	})

	srv, err := server.New(server.Config{
		Pipeline:  pipeline,
		Documents: docs,
		Collector: monitor.NewCollector(),
	})
	if err != nil {
		log.Fatalf("[main] server: %v", err)
	}
	defer srv.Close()

	// In dev mode (DEV=1), serve only the API - the client runs separately.
	// In prod mode, serve the embedded chat UI at / and the API under /api.
	handler := srv.Handler()
	if os.Getenv("DEV") == "" {
		handler = prodHandler(srv.Handler())
	}

	addr := getEnvOr("ADDR", cfg.Addr)
	log.Printf("[main] starting dossier server on http://localhost%s", addr)
	log.Fatal(http.ListenAndServe(addr, handler))
}

// prodHandler mounts the chat UI at /, the API under /api, and keeps the
// health probe reachable unprefixed for load balancers.
func prodHandler(api http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", web.Handler())
	mux.Handle("GET /health", api)
	mux.Handle("/api/", http.StripPrefix("/api", api))
	return mux
}

func newVectorStore(cfg *config.AppConfig) (vector.Store, error) {
	switch cfg.VectorStore.Type {
	case "pinecone":
		return vector.NewPineconeStore(vector.PineconeConfig{
			IndexHost: cfg.PineconeHost(),
			APIKey:    cfg.PineconeKey(),
			Namespace: cfg.VectorStore.Pinecone.Namespace,
			Timeout:   time.Duration(cfg.VectorStore.Pinecone.TimeoutSecs) * time.Second,
		})
	case "pgvector":
		return vector.NewPgVectorStore(cfg.VectorStore.DSN, cfg.VectorStore.Dimension)
	default:
		log.Printf("[main] using in-memory vector store; data is not persisted")
		return vector.NewMemoryStore(), nil
	}
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
