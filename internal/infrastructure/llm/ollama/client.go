package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/infrastructure/resilience"
)

const (
	defaultBatchSize     = 16
	defaultMaxInputRunes = 8000
)

type Options struct {
	Timeout time.Duration
	// BatchSize caps the number of texts per /api/embed call.
	BatchSize int
	// MaxInputRunes truncates each publication text before it is sent.
	MaxInputRunes      int
	ResilienceExecutor *resilience.Executor
}

// Embedder turns publication text into vectors through the Ollama embed API.
type Embedder struct {
	baseURL       string
	model         string
	batchSize     int
	maxInputRunes int
	httpClient    *http.Client
	executor      *resilience.Executor
}

func NewEmbedder(baseURL, model string, options Options) *Embedder {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	batchSize := options.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	maxInputRunes := options.MaxInputRunes
	if maxInputRunes <= 0 {
		maxInputRunes = defaultMaxInputRunes
	}
	return &Embedder{
		baseURL:       strings.TrimRight(baseURL, "/"),
		model:         model,
		batchSize:     batchSize,
		maxInputRunes: maxInputRunes,
		httpClient:    &http.Client{Timeout: timeout},
		executor:      options.ResilienceExecutor,
	}
}

type embedRequest struct {
	Model    string   `json:"model"`
	Input    []string `json:"input"`
	Truncate bool     `json:"truncate"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one vector per text, in order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("ollama embed: empty vector")
	}
	return vectors[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	request := embedRequest{Model: e.model, Input: make([]string, len(texts)), Truncate: true}
	for i, text := range texts {
		request.Input[i] = truncateRunes(strings.TrimSpace(text), e.maxInputRunes)
	}

	var response embedResponse
	call := func(ctx context.Context) error {
		response = embedResponse{}
		return e.post(ctx, "/api/embed", request, &response)
	}

	var err error
	if e.executor != nil {
		err = e.executor.Execute(ctx, resilience.OpEmbed, call, transient)
	} else if err = call(ctx); err != nil && transient(err) {
		err = domain.WrapError(domain.ErrTemporary, string(resilience.OpEmbed), err)
	}
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: expected %d vectors, got %d", len(texts), len(response.Embeddings))
	}
	return response.Embeddings, nil
}

func (e *Embedder) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(snippet))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
