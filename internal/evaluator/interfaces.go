package evaluator

import "context"

// Provider abstracts one LLM completion call. Implementations wrap
// OpenAI-compatible services, Anthropic, or a local Ollama server.
// The system instruction carries the fixed evaluation rubric and is
// sent alongside the user prompt on every call.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
