package providers

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/c360studio/kgraph/embedding"
)

// OpenAIProvider calls the real OpenAI embeddings API via
// sashabaranov/go-openai, promoting that dependency from indirect (used
// only in the teacher's go.mod, never imported by its code) to a direct
// dependency.
type OpenAIProvider struct {
	APIKey string
	Model  string
	client *openai.Client
	dims   int
}

func init() {
	embedding.RegisterProvider(&OpenAIProvider{Model: string(openai.SmallEmbedding3), dims: 1536})
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string { return "openai" }

// BuildURL is unused: the go-openai SDK client owns transport. Present to
// satisfy the Provider interface alongside BuildRequestBody/ParseResponse
// below, which are implemented via the SDK instead of manual JSON.
func (p *OpenAIProvider) BuildURL(baseURL string) string { return baseURL }

// SetHeaders is unused for the same reason.
func (p *OpenAIProvider) SetHeaders(req *http.Request) {}

// BuildRequestBody is never called: OpenAIProvider implements
// embedding.SDKProvider (see Embed below), so Worker calls Embed directly
// instead of the generic HTTP seam. Implemented only to satisfy Provider.
func (p *OpenAIProvider) BuildRequestBody(model string, inputs []string) ([]byte, error) {
	return nil, nil
}

// ParseResponse is never called, for the same reason as BuildRequestBody.
func (p *OpenAIProvider) ParseResponse(body []byte) ([][]float32, error) {
	return nil, nil
}

// Dimensions reports text-embedding-3-small's native dimensionality.
func (p *OpenAIProvider) Dimensions() int { return p.dims }

// Local is false: OpenAI's embeddings endpoint is remote and safely
// handles concurrent requests.
func (p *OpenAIProvider) Local() bool { return false }

// Embed calls the OpenAI embeddings endpoint directly via the SDK. This is
// the provider-specific fast path embedding.Worker prefers for openai
// over the generic HTTP BuildRequestBody/ParseResponse seam, since the
// SDK already handles auth, retries, and response decoding.
func (p *OpenAIProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if p.client == nil {
		p.client = openai.NewClient(p.APIKey)
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: openai.EmbeddingModel(p.Model),
	})
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
