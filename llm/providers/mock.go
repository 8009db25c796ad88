package providers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/c360studio/kgraph/llm"
)

// MockProvider is a deterministic, offline LLM provider used for tests and
// the "mock" ai_provider config setting. It implements llm.LocalProvider,
// so Client.doRequest never issues an HTTP request for it - mirroring the
// shape of llm/testutil.MockLLMClient but registered as a real Provider so
// it can sit behind the same capability/registry/retry machinery as every
// other provider, rather than bypassing Client entirely.
type MockProvider struct{}

func init() {
	llm.RegisterProvider(&MockProvider{})
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string { return "mock" }

// BuildURL is never called (LocalProvider bypasses it) but is implemented
// to satisfy the Provider interface.
func (m *MockProvider) BuildURL(baseURL string) string { return baseURL }

// SetHeaders is never called; implemented to satisfy Provider.
func (m *MockProvider) SetHeaders(req *http.Request) {}

// BuildRequestBody is never called; implemented to satisfy Provider.
func (m *MockProvider) BuildRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int,
	tools []llm.ToolDefinition, toolChoice string) ([]byte, error) {
	return json.Marshal(messages)
}

// ParseResponse is never called; implemented to satisfy Provider.
func (m *MockProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	return &llm.Response{Content: string(body), Model: model}, nil
}

// Respond implements llm.LocalProvider: it produces a deterministic,
// content-derived response without any network call. The response shape
// is chosen per the system-prompt's apparent intent (extraction,
// translation, vocab-merge) so callers exercising the full pipeline get
// something structurally valid back, not just an echo.
func (m *MockProvider) Respond(messages []llm.Message) (*llm.Response, error) {
	var system, user string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system += msg.Content
		case "user":
			user += msg.Content
		}
	}

	content := mockContentFor(system, user)
	return &llm.Response{
		Content: content,
		Model:   "mock",
		Usage: llm.TokenUsage{
			PromptTokens:     len(user) / 4,
			CompletionTokens: len(content) / 4,
			TotalTokens:      (len(user) + len(content)) / 4,
		},
		FinishReason: "stop",
	}, nil
}

// mockContentFor returns a deterministic, schema-appropriate JSON or prose
// body depending on which capability prompt is recognized.
func mockContentFor(system, user string) string {
	switch {
	case strings.Contains(system, "extraction engine"):
		return `{"concepts":[{"label":"Mock Concept","description":"deterministic placeholder","search_terms":["mock"],"quote":"n/a"}],"relationships":[]}`
	case strings.Contains(system, "translate code"):
		return "[CODE BLOCK: mock translation]"
	case strings.Contains(system, "vocabulary curator"):
		return `{"should_merge":false,"canonical_name":"","reason":"mock provider: no judgment performed"}`
	default:
		return "mock response"
	}
}
