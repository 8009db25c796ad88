package providers

import (
	"context"
	"crypto/sha256"
	"math"
	"net/http"

	"github.com/c360studio/kgraph/embedding"
)

const mockDimensions = 32

// MockProvider produces deterministic, content-derived embeddings without
// any network call - used for tests and the "mock" ai_provider config
// setting on the embedding side (the LLM side has its own MockProvider in
// llm/providers/mock.go). Same text always yields the same vector, and distinct
// text yields distinct vectors, which is all the cosine-search and
// synonym-detection code paths need for deterministic tests.
type MockProvider struct{}

func init() {
	embedding.RegisterProvider(&MockProvider{})
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string { return "mock" }

// BuildURL is unused: MockProvider implements embedding.SDKProvider.
func (m *MockProvider) BuildURL(baseURL string) string { return baseURL }

// SetHeaders is unused for the same reason.
func (m *MockProvider) SetHeaders(req *http.Request) {}

// BuildRequestBody is unused for the same reason.
func (m *MockProvider) BuildRequestBody(model string, inputs []string) ([]byte, error) {
	return nil, nil
}

// ParseResponse is unused for the same reason.
func (m *MockProvider) ParseResponse(body []byte) ([][]float32, error) { return nil, nil }

// Dimensions reports the mock vector size.
func (m *MockProvider) Dimensions() int { return mockDimensions }

// Local is true: a mock "provider" has no meaningful concurrency limit of
// its own, and tests expect deterministic serialized-looking behavior.
func (m *MockProvider) Local() bool { return true }

// Embed implements embedding.SDKProvider: each input's SHA-256 hash is
// expanded into a 32-float unit vector.
func (m *MockProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, text := range inputs {
		out[i] = hashVector(text)
	}
	return out, nil
}

func hashVector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, mockDimensions)
	var norm float64
	for i := 0; i < mockDimensions; i++ {
		b := sum[i%len(sum)]
		v := (float64(b) / 127.5) - 1.0 // map [0,255] -> [-1,1]
		vec[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		scale := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
