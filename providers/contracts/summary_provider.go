package contracts

import "context"

// ISummaryProvider turns a prompt pair into generated text.
type ISummaryProvider interface {
	Summarize(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
	Name() string
	Model() string
}
