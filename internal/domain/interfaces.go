package domain

import "context"

// CallRecorder persists a trace of every tool call the broker completes.
// Implementations must be safe for concurrent use.
type CallRecorder interface {
	Record(ctx context.Context, rec CallRecord) error
}

// Tokenizer counts tokens in a string for model context budgeting.
type Tokenizer interface {
	// CountTokens returns the number of tokens in the given text.
	CountTokens(text string) (int, error)
}
