package ports

import "context"

// ChatModel abstracts the LLM behind the chat assistant.
type ChatModel interface {
	// Generate produces a completion for the given system framing and user
	// prompt.
	Generate(ctx context.Context, system, prompt string) (string, error)
}
