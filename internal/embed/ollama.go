// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultHost is the standard local Ollama address.
const DefaultHost = "http://localhost:11434"

const defaultEmbedTimeout = 60 * time.Second

// OllamaEmbedder generates embeddings through Ollama's HTTP API.
type OllamaEmbedder struct {
	client  *http.Client
	host    string
	model   string
	timeout time.Duration
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder verifies that the server is reachable and the model is
// installed, returning an error otherwise so callers can fall back to
// lexical ranking.
func NewOllamaEmbedder(ctx context.Context, host, model string, timeout time.Duration) (*OllamaEmbedder, error) {
	if host == "" {
		host = DefaultHost
	}
	if timeout <= 0 {
		timeout = defaultEmbedTimeout
	}
	e := &OllamaEmbedder{
		client:  &http.Client{},
		host:    strings.TrimRight(host, "/"),
		model:   ResolveModel(model),
		timeout: timeout,
	}
	if err := e.checkModel(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// ModelName reports the resolved model identifier.
func (e *OllamaEmbedder) ModelName() string { return e.model }

// checkModel confirms the model appears in the server's tag list.
func (e *OllamaEmbedder) checkModel(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, e.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to Ollama at %s: %w", e.host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama returned HTTP %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("parsing Ollama tag list: %w", err)
	}

	for _, m := range tags.Models {
		// Tags carry a variant suffix, e.g. "nomic-embed-text:latest".
		if m.Name == e.model || strings.HasPrefix(m.Name, e.model+":") {
			return nil
		}
	}
	return fmt.Errorf("model %q not installed on Ollama server", e.model)
}

// Embed requests embeddings for all texts in one batch and normalizes them.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(map[string]any{
		"model": e.model,
		"input": texts,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding embed request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Ollama embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama embed returned HTTP %d", resp.StatusCode)
	}

	var result struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parsing embed response: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed returned %d vectors for %d texts", len(result.Embeddings), len(texts))
	}

	for i := range result.Embeddings {
		Normalize(result.Embeddings[i])
	}
	return result.Embeddings, nil
}
