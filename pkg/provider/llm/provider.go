// Package llm defines the Provider interface for reply-generation backends.
//
// A provider wraps a chat-completion API (OpenAI, Groq, Anthropic, a local
// Ollama instance, …) behind one synchronous call: conversation in, reply
// text out. Voice turns are short and strictly serialized per call, so there
// is no streaming surface here — the synthesis engine receives the whole
// reply at once.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly; the caller bounds every request with a deadline.
package llm

import "context"

// Message represents a single message in a conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting information returned by the backend. Counts
// are in the model's native token unit and may be zero for backends that do
// not report usage.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a reply.
// Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last message is typically the
	// caller's transcribed utterance.
	Messages []Message

	// SystemPrompt is an optional instruction injected before the
	// conversation. Providers that have no dedicated system field prepend it
	// as a "system"-role message.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. Zero means use
	// the provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the full reply from the model.
type CompletionResponse struct {
	// Content is the text of the assistant's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any reply-generation backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails, the upstream responds with a
	// non-success status, or ctx is cancelled before the completion arrives.
	// Callers are expected to map errors to a fallback reply rather than
	// propagate them into the call pipeline.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
