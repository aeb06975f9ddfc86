// Package embedclient is a client for the external embedding service: a
// single-text-to-vector endpoint with a tolerant request/response shape.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"catalogue-search/internal/searcherr"
)

// Client embeds text through the configured HTTP endpoint. The vector
// length is fixed for the client's lifetime, established by the first
// successful call.
type Client struct {
	baseURL string
	model   string
	http    *http.Client

	mu  sync.Mutex
	dim int // 0 until the first successful embed call
}

// New constructs a Client against baseURL (no trailing slash assumed)
// using the given model name and per-request timeout.
func New(baseURL, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Input  string `json:"input,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

type embedResponse struct {
	Embedding  []float32   `json:"embedding"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns the dense vector for a single text. It tries the `input`
// field first, falls back to `prompt`, then to a singleton `embeddings`
// list, and fails if none of those shapes are present in the response.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := c.post(ctx, embedRequest{Model: c.model, Input: text})
	if err == nil {
		return c.pin(v)
	}
	if searcherr.KindOf(err) != searcherr.EmbeddingMalformed {
		return nil, err
	}

	v, err = c.post(ctx, embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, err
	}
	return c.pin(v)
}

func (c *Client) post(ctx context.Context, body embedRequest) ([]float32, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, searcherr.Wrap(searcherr.EmbeddingMalformed, "encode request", err)
	}

	url := c.baseURL + "/api/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, searcherr.Wrap(searcherr.EmbeddingUnavailable, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, searcherr.Wrap(searcherr.EmbeddingUnavailable, "embedding request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, searcherr.Wrap(searcherr.EmbeddingUnavailable, "read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, searcherr.New(searcherr.EmbeddingUnavailable,
			fmt.Sprintf("embedding endpoint returned status %d", resp.StatusCode))
	}

	var parsed embedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, searcherr.Wrap(searcherr.EmbeddingMalformed, "decode response body", err)
	}

	if len(parsed.Embedding) > 0 {
		return parsed.Embedding, nil
	}
	if len(parsed.Embeddings) == 1 {
		return parsed.Embeddings[0], nil
	}

	return nil, searcherr.New(searcherr.EmbeddingMalformed, "response missing embedding/embeddings field")
}

// pin enforces the fixed dimension established by the first successful
// call, and records it if this is the first call.
func (c *Client) pin(v []float32) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dim == 0 {
		c.dim = len(v)
		return v, nil
	}
	if len(v) != c.dim {
		return nil, searcherr.New(searcherr.DimensionMismatch,
			fmt.Sprintf("embedding has dimension %d, expected %d", len(v), c.dim))
	}
	return v, nil
}

// Dim returns the established embedding dimension, or 0 if no call has
// succeeded yet.
func (c *Client) Dim() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dim
}

// EmbedMany embeds texts over a bounded worker pool of the given size,
// reporting progress via onProgress after each completion (onProgress may
// be nil). The result matrix is assembled in submission order — row i is
// always the embedding of texts[i], regardless of the order in which
// workers finish. Fails fast on the first error, including the first
// dimension mismatch.
func (c *Client) EmbedMany(ctx context.Context, texts []string, workers int, onProgress func(done, total int)) ([][]float32, error) {
	if workers <= 0 {
		workers = 1
	}

	results := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)

	var mu sync.Mutex
	done := 0

	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			v, err := c.Embed(gctx, text)
			if err != nil {
				return err
			}
			results[i] = v

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			if onProgress != nil {
				onProgress(n, len(texts))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
