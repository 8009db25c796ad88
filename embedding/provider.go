// Package embedding provides a provider-agnostic embedding worker: cold
// start of builtin vocabulary embeddings, on-demand concept/vocabulary
// embedding, and missing/stale regeneration. Its Provider interface
// mirrors llm.Provider's shape so the same registry/registration idiom
// applies to a different capability.
package embedding

import (
	"context"
	"net/http"
	"sync"
)

// Provider defines the interface for embedding provider implementations.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "ollama", "mock").
	Name() string

	// BuildURL constructs the full API endpoint URL.
	BuildURL(baseURL string) string

	// SetHeaders adds provider-specific headers to the request.
	SetHeaders(req *http.Request)

	// BuildRequestBody creates the JSON request body for an embedding call.
	BuildRequestBody(model string, inputs []string) ([]byte, error)

	// ParseResponse extracts embeddings from the provider-specific JSON,
	// one vector per input, in input order.
	ParseResponse(body []byte) ([][]float32, error)

	// Dimensions reports the fixed embedding dimensionality this provider
	// produces, used to validate cosine-search inputs upstream.
	Dimensions() int

	// Local is true for providers that must serialize calls (in-process
	// or single-GPU local models); false for providers that can run
	// concurrent requests safely (remote APIs). Mirrors spec.md §4.7/§5's
	// "local models serialize, remote models run concurrently" split.
	Local() bool
}

// SDKProvider is implemented by providers that own their own transport via
// a vendor SDK (currently OpenAI, via sashabaranov/go-openai) rather than
// the generic BuildURL/BuildRequestBody/ParseResponse HTTP seam. When a
// registered Provider also implements SDKProvider, Worker calls Embed
// directly and skips the generic HTTP path entirely.
type SDKProvider interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

var (
	registry   = make(map[string]Provider)
	registryMu sync.RWMutex
)

// RegisterProvider adds a provider to the registry.
func RegisterProvider(p Provider) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[p.Name()] = p
}

// GetProvider retrieves a provider by name.
func GetProvider(name string) Provider {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name]
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
