package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/go-dossier/chunker"
	"github.com/hubenschmidt/go-dossier/core"
	"github.com/hubenschmidt/go-dossier/llm"
	"github.com/hubenschmidt/go-dossier/monitor"
	"github.com/hubenschmidt/go-dossier/rag"
	"github.com/hubenschmidt/go-dossier/server/store"
	"github.com/hubenschmidt/go-dossier/vector"
)

// countEmbedder embeds text as occurrence counts over a fixed vocabulary, so
// retrieval behaves deterministically in tests.
type countEmbedder struct{}

var vocab = []string{"alpha", "beta", "gamma", "delta"}

func (countEmbedder) Embed(ctx context.Context, input string) (*llm.EmbeddingResponse, error) {
	lower := strings.ToLower(input)
	vec := make([]float64, 0, len(vocab)+1)
	for _, w := range vocab {
		vec = append(vec, float64(strings.Count(lower, w)))
	}
	vec = append(vec, 0.01)
	return &llm.EmbeddingResponse{Embedding: vec}, nil
}

func (e countEmbedder) EmbedBatch(ctx context.Context, inputs []string) ([]llm.EmbeddingResponse, error) {
	out := make([]llm.EmbeddingResponse, 0, len(inputs))
	for _, in := range inputs {
		resp, _ := e.Embed(ctx, in)
		out = append(out, *resp)
	}
	return out, nil
}

// gatedCompleter streams fragments, optionally pausing on gate between them.
// finished is closed once the producer goroutine has sent everything.
type gatedCompleter struct {
	fragments []string
	gate      chan struct{}
	usage     *llm.Usage
	finished  chan struct{}
}

func (c *gatedCompleter) Chat(ctx context.Context, msgs []core.Message) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: strings.Join(c.fragments, "")}, nil
}

func (c *gatedCompleter) ChatStream(ctx context.Context, msgs []core.Message) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		if c.finished != nil {
			defer close(c.finished)
		}
		for i, f := range c.fragments {
			if i > 0 && c.gate != nil {
				<-c.gate
			}
			ch <- llm.StreamChunk{Content: f}
		}
		ch <- llm.StreamChunk{Done: true, Usage: c.usage}
	}()
	return ch, nil
}

func newTestServer(t *testing.T, completer llm.Completer) (*Server, *vector.MemoryStore) {
	t.Helper()

	vstore := vector.NewMemoryStore()
	pipeline := rag.NewPipeline(rag.Config{
		Chunker:   chunker.New(1000, 200),
		Embedder:  countEmbedder{},
		Completer: completer,
		Store:     vstore,
	})

	docs, err := store.NewSQLiteDocumentStore(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { docs.Close() })

	srv, err := New(Config{
		Pipeline:  pipeline,
		Documents: docs,
		Collector: monitor.NewCollector(),
	})
	require.NoError(t, err)
	return srv, vstore
}

func uploadFile(t *testing.T, handler http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestUpload_Success(t *testing.T) {
	srv, vstore := newTestServer(t, nil)
	handler := srv.Handler()

	rec := uploadFile(t, handler, "notes.txt", "alpha beta gamma")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.ChunkCount)
	assert.NotEmpty(t, resp.DocumentID)
	assert.Equal(t, 1, vstore.Count())

	// The document shows up in the registry.
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, httptest.NewRequest(http.MethodGet, "/documents", nil))
	require.Equal(t, http.StatusOK, listRec.Code)

	var list DocumentListResponse
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "notes.txt", list.Documents[0].Source)
	assert.Equal(t, 1, list.Documents[0].ChunkCount)
}

func TestUpload_UnsupportedType(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := uploadFile(t, srv.Handler(), "image.png", "binary junk")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "PDF")
}

func TestUpload_EmptyFile(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := uploadFile(t, srv.Handler(), "empty.txt", "   ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_MissingFileField(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_RanksAndShapes(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	handler := srv.Handler()

	uploadFile(t, handler, "one.txt", "alpha alpha alpha")
	uploadFile(t, handler, "two.txt", "beta beta beta")

	body, _ := json.Marshal(SearchRequest{Query: "all about beta"})
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, "beta beta beta", results[0].Content)
	assert.Equal(t, "two.txt", results[0].Metadata.Source)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":""}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_StreamsBody(t *testing.T) {
	srv, _ := newTestServer(t, &gatedCompleter{fragments: []string{"Hello", " there"}})
	handler := srv.Handler()

	uploadFile(t, handler, "facts.txt", "alpha is first")

	body := `{"messages":[{"role":"user","content":"tell me about alpha"}]}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "Hello there", rec.Body.String())
}

func TestChat_SingleMessageField(t *testing.T) {
	srv, _ := newTestServer(t, &gatedCompleter{fragments: []string{"hi"}})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello alpha"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", rec.Body.String())
}

func TestChat_EmptyConversation(t *testing.T) {
	srv, _ := newTestServer(t, &gatedCompleter{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ChatErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

// TestChat_PartialBeforeCompletion verifies tokens reach the client before the
// upstream stream has finished.
func TestChat_PartialBeforeCompletion(t *testing.T) {
	gate := make(chan struct{})
	srv, _ := newTestServer(t, &gatedCompleter{fragments: []string{"partial", " rest"}, gate: gate})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/chat", "application/json", strings.NewReader(`{"message":"alpha"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The first fragment must arrive while the completer is still blocked.
	buf := make([]byte, 7)
	_, err = io.ReadFull(resp.Body, buf)
	require.NoError(t, err)
	assert.Equal(t, "partial", string(buf))

	close(gate)
	rest, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, " rest", string(rest))
}

// TestChat_ClientDisconnectReleasesProducer verifies a client walking away
// mid-stream does not leave the producer goroutine parked on the channel.
func TestChat_ClientDisconnectReleasesProducer(t *testing.T) {
	fragments := make([]string, 2000)
	for i := range fragments {
		fragments[i] = strings.Repeat("x", 1024)
	}
	completer := &gatedCompleter{fragments: fragments, finished: make(chan struct{})}
	srv, _ := newTestServer(t, completer)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+"/chat", strings.NewReader(`{"message":"alpha"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	buf := make([]byte, 1)
	_, err = io.ReadFull(resp.Body, buf)
	require.NoError(t, err)

	// Walk away mid-stream.
	cancel()
	resp.Body.Close()

	select {
	case <-completer.finished:
	case <-time.After(5 * time.Second):
		t.Fatal("stream producer still blocked after client disconnect")
	}
}

func TestDocumentDelete_RemovesVectorsAndRecord(t *testing.T) {
	srv, vstore := newTestServer(t, nil)
	handler := srv.Handler()

	rec := uploadFile(t, handler, "gone.txt", "delta delta")
	var up UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	require.Equal(t, 1, vstore.Count())

	delRec := httptest.NewRecorder()
	handler.ServeHTTP(delRec, httptest.NewRequest(http.MethodDelete, "/documents/"+up.DocumentID, nil))
	require.Equal(t, http.StatusOK, delRec.Code)
	assert.Equal(t, 0, vstore.Count())

	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, httptest.NewRequest(http.MethodGet, "/documents", nil))
	var list DocumentListResponse
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &list))
	assert.Empty(t, list.Documents)
}

func TestStats_CountsRequestsAndTokens(t *testing.T) {
	completer := &gatedCompleter{
		fragments: []string{"ok"},
		usage:     &llm.Usage{PromptTokens: 42, CompletionTokens: 7, TotalTokens: 49},
	}
	srv, _ := newTestServer(t, completer)
	handler := srv.Handler()

	uploadFile(t, handler, "s.txt", "alpha")

	searchBody, _ := json.Marshal(SearchRequest{Query: "alpha"})
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(searchBody)))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"alpha"}`)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats monitor.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Uploads)
	assert.Equal(t, int64(1), stats.ChunksStored)
	assert.Equal(t, int64(1), stats.Searches)
	assert.Equal(t, int64(1), stats.Chats)
	assert.Equal(t, int64(42), stats.PromptTokens)
	assert.Equal(t, int64(7), stats.OutputTokens)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/chat", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
