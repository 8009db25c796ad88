package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360studio/kgraph/kgerrors"
)

// Kind tags what an embedding request is for, so callers and metrics can
// distinguish concept embeddings from vocabulary-type embeddings.
type Kind string

const (
	KindConcept Kind = "concept"
	KindVocab   Kind = "vocab"
	KindQuery   Kind = "query"
)

const maxEmbeddingResponseSize = 5 * 1024 * 1024 // 5MB

// Worker embeds text into fixed-dimension vectors, serializing calls to
// local providers (a buffered channel of size 1) while letting remote
// providers run up to MaxConcurrent calls at once - the dual-mode split
// spec.md §4.7/§5 describes.
type Worker struct {
	provider      Provider
	httpClient    *http.Client
	logger        *slog.Logger
	localSem      chan struct{} // size 1, used only for Local() providers
	remoteSem     chan struct{} // size MaxConcurrent, used only for remote providers
	maxConcurrent int
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) WorkerOption {
	return func(w *Worker) { w.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

// WithMaxConcurrent sets the concurrency cap for remote providers
// (default 4).
func WithMaxConcurrent(n int) WorkerOption {
	return func(w *Worker) { w.maxConcurrent = n }
}

// NewWorker builds a Worker bound to a single provider, resolved by name
// from the embedding registry.
func NewWorker(providerName string, opts ...WorkerOption) (*Worker, error) {
	p := GetProvider(providerName)
	if p == nil {
		return nil, fmt.Errorf("unknown embedding provider: %s", providerName)
	}

	w := &Worker{
		provider:      p,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		logger:        slog.Default(),
		maxConcurrent: 4,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.localSem = make(chan struct{}, 1)
	w.remoteSem = make(chan struct{}, w.maxConcurrent)

	return w, nil
}

// Embed produces one embedding for a single text. It is a thin wrapper
// over EmbedBatch for the common single-item case (concept/vocab-type
// embedding during ingestion).
func (w *Worker) Embed(ctx context.Context, kind Kind, text string) ([]float32, error) {
	vecs, err := w.EmbedBatch(ctx, kind, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds multiple texts in one provider call, serialized
// against local providers and concurrency-capped against remote ones.
func (w *Worker) EmbedBatch(ctx context.Context, kind Kind, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	sem := w.remoteSem
	if w.provider.Local() {
		sem = w.localSem
	}

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-sem }()

	if sdk, ok := w.provider.(SDKProvider); ok {
		vecs, err := sdk.Embed(ctx, texts)
		if err != nil {
			return nil, kgerrors.UpstreamUnavailable("embedding SDK call failed", err)
		}
		return vecs, nil
	}

	return w.doRequest(ctx, texts)
}

func (w *Worker) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	url := w.provider.BuildURL("")
	body, err := w.provider.BuildRequestBody("", texts)
	if err != nil {
		return nil, kgerrors.Fatal("build embedding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, kgerrors.Fatal("create embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	w.provider.SetHeaders(req)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, kgerrors.UpstreamUnavailable("embedding request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxEmbeddingResponseSize))
	if err != nil {
		return nil, kgerrors.UpstreamUnavailable("read embedding response", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyStr := string(respBody)
		if len(bodyStr) > 200 {
			bodyStr = bodyStr[:200] + "..."
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, kgerrors.UpstreamUnavailable(fmt.Sprintf("embedding API error (status %d): %s", resp.StatusCode, bodyStr), nil)
		}
		return nil, kgerrors.Fatal(fmt.Sprintf("embedding API error (status %d): %s", resp.StatusCode, bodyStr), nil)
	}

	vecs, err := w.provider.ParseResponse(respBody)
	if err != nil {
		return nil, kgerrors.Fatal("parse embedding response", err)
	}
	return vecs, nil
}

// Dimensions reports the bound provider's embedding dimensionality.
func (w *Worker) Dimensions() int {
	return w.provider.Dimensions()
}
