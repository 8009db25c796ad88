package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/c360studio/kgraph/embedding"
)

// OllamaProvider calls Ollama/vLLM's OpenAI-compatible /v1/embeddings
// endpoint. Unlike the LLM-side OllamaProvider, this one is a genuinely
// local, single-model server - callers should expect it to be registered
// with Local()==true.
type OllamaProvider struct {
	Model string
	dims  int
}

func init() {
	embedding.RegisterProvider(&OllamaProvider{Model: "nomic-embed-text", dims: 768})
}

// Name returns the provider identifier.
func (o *OllamaProvider) Name() string { return "ollama" }

// BuildURL constructs the embeddings endpoint.
func (o *OllamaProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/embeddings") {
		return baseURL
	}
	return baseURL + "/embeddings"
}

// SetHeaders is a no-op for a local Ollama server.
func (o *OllamaProvider) SetHeaders(req *http.Request) {}

type ollamaEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// BuildRequestBody creates the OpenAI-compatible embeddings request body.
func (o *OllamaProvider) BuildRequestBody(model string, inputs []string) ([]byte, error) {
	if model == "" {
		model = o.Model
	}
	return json.Marshal(ollamaEmbeddingRequest{Model: model, Input: inputs})
}

type ollamaEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// ParseResponse extracts vectors in input order.
func (o *OllamaProvider) ParseResponse(body []byte) ([][]float32, error) {
	var resp ollamaEmbeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse ollama embedding response: %w", err)
	}
	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dimensions reports nomic-embed-text's native dimensionality.
func (o *OllamaProvider) Dimensions() int { return o.dims }

// Local is true: Ollama serves local models and contends for one GPU/CPU
// slot.
func (o *OllamaProvider) Local() bool { return true }
