package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EmbeddingSource tags how a vector was produced.
type EmbeddingSource string

const (
	SourceRemote   EmbeddingSource = "remote"
	SourceFallback EmbeddingSource = "fallback"
)

// Embedding is a vector plus the backend that produced it. Callers can
// distinguish real and synthetic embeddings; the public contract still always
// yields a vector.
type Embedding struct {
	Vector []float32       `json:"vector"`
	Source EmbeddingSource `json:"source"`
}

// RemoteConfig holds API settings for text-embedding (OpenAI-compatible).
// An empty BaseURL disables the remote backend entirely.
type RemoteConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	MaxInputChars int
	Timeout       time.Duration
}

const (
	defaultMaxInputChars = 8000
	defaultTimeout       = 10 * time.Second
)

// Embedder maps text to a fixed-length vector. The remote backend is tried
// once per call; on any failure the deterministic fallback backend is used,
// so Embed never fails and indexing is not gated on provider availability.
type Embedder struct {
	cfg        RemoteConfig
	httpClient *http.Client
}

func NewEmbedder(cfg RemoteConfig) *Embedder {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = defaultMaxInputChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Embedder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Embed returns a vector for text. Query and stored chunks must go through
// the same Embedder so their dimensionalities match.
func (e *Embedder) Embed(ctx context.Context, text string) Embedding {
	if e.cfg.BaseURL != "" {
		if vec, err := e.remoteEmbed(ctx, text); err == nil {
			return Embedding{Vector: vec, Source: SourceRemote}
		}
	}
	return Embedding{Vector: FallbackEmbed(text), Source: SourceFallback}
}

// EmbedAll embeds texts in order. The remote backend is tried as one batch
// request; on failure every text degrades to the fallback backend so all
// vectors of one document share a single backend.
func (e *Embedder) EmbedAll(ctx context.Context, texts []string) []Embedding {
	if len(texts) == 0 {
		return nil
	}
	if e.cfg.BaseURL != "" {
		if vecs, err := e.remoteEmbedBatch(ctx, texts); err == nil && len(vecs) == len(texts) {
			out := make([]Embedding, len(vecs))
			for i := range vecs {
				out[i] = Embedding{Vector: vecs[i], Source: SourceRemote}
			}
			return out
		}
	}
	out := make([]Embedding, len(texts))
	for i := range texts {
		out[i] = Embedding{Vector: FallbackEmbed(texts[i]), Source: SourceFallback}
	}
	return out
}

func (e *Embedder) truncate(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > e.cfg.MaxInputChars {
		runes = runes[:e.cfg.MaxInputChars]
	}
	return string(runes)
}

func (e *Embedder) remoteEmbed(ctx context.Context, text string) ([]float32, error) {
	text = e.truncate(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	parsed, err := e.postEmbeddings(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 || len(parsed[0]) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return parsed[0], nil
}

func (e *Embedder) remoteEmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	trimmed := make([]string, 0, len(texts))
	for _, t := range texts {
		if s := e.truncate(t); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	if len(trimmed) != len(texts) {
		return nil, fmt.Errorf("batch contains empty embedding input")
	}

	parsed, err := e.postEmbeddings(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	for _, vec := range parsed {
		if len(vec) == 0 {
			return nil, fmt.Errorf("empty embedding in batch response")
		}
	}
	return parsed, nil
}

func (e *Embedder) postEmbeddings(ctx context.Context, input interface{}) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"model": e.cfg.Model,
		"input": input,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build embedding request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	result := make([][]float32, len(parsed.Data))
	for i := range parsed.Data {
		result[i] = parsed.Data[i].Embedding
	}
	return result, nil
}
