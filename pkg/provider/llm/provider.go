// Package llm defines the Provider interface for Large Language Model backends.
//
// An LLM provider wraps a remote or local model API (e.g., OpenAI GPT-4o,
// Anthropic Claude, or a local Ollama instance) and exposes a uniform
// interface for the Datascout orchestrator: submit a conversation plus a set
// of tool definitions, receive back an ordered sequence of content parts.
//
// Implementors must be safe for concurrent use.
package llm

import (
	"context"

	"github.com/glimt/datascout/pkg/types"
)

// Usage holds token accounting information returned by the LLM backend.
// All counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages and
	// system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// CompletionRequest carries everything the LLM needs to produce a response.
// Callers should treat a zero-value request as invalid; at minimum Messages
// must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The slice and the parts within
	// each message are transmitted in exactly this order.
	Messages []types.Message

	// Tools is the set of tool definitions offered to the model. The model
	// may choose to request one or more of them in its response. Leave empty
	// to withhold tools entirely (e.g. for a summarisation-only call).
	Tools []types.ToolDefinition

	// Temperature controls output randomness in the range [0.0, 2.0].
	// A value of 0.0 requests the provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation. Providers that have no dedicated system field prepend
	// it as a system-role message.
	SystemPrompt string
}

// CompletionResponse is the model's reply: content parts in the order the
// model produced them (text and/or tool-use requests), plus token accounting.
type CompletionResponse struct {
	// Parts holds the response content. Tool-use parts carry the
	// provider-assigned id the caller must echo back in the matching
	// tool-result part.
	Parts []types.ContentPart

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use from multiple goroutines
// and must propagate context cancellation promptly.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	//
	// Failures caused by provider-side throttling are reported wrapped in
	// [ErrRateLimited] so that callers can distinguish them with errors.Is;
	// all other failures are returned as-is.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns static metadata describing what this provider's
	// underlying model supports. The result is assumed constant for the
	// lifetime of the Provider instance.
	Capabilities() types.ModelCapabilities
}
