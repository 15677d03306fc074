package llm

import "context"

// LLMClient is the transport behind the query-generation and
// insight-generation ports. Inject MockLLMClient in tests to keep the
// compiler and statistics core free of live model calls.
type LLMClient interface {
	// GenerateResponse runs one chat completion and returns the raw
	// assistant message content.
	GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

var _ LLMClient = (*Client)(nil)
