package ai

import "context"

// AI — the external completion service. It knows nothing about the
// transport or the database; it takes a system prompt plus the enriched
// conversation input and returns free text.
type AI interface {
	GetReply(ctx context.Context, systemPrompt string, input string) (string, error)
}
