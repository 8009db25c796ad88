package llm

// ToolDefinition describes a callable tool offered to the model, in the
// provider-agnostic shape BuildRequestBody translates into each
// provider's native tool-calling format.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}
