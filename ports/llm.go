package ports

import "context"

// NarrativeClient is the single-request contract with the external
// narrative-generation service. One call per analysis; retries are the
// caller's policy, not the client's.
type NarrativeClient interface {
	ChatCompletion(ctx context.Context, model, systemMessage, prompt string, maxTokens int) (string, error)
}
