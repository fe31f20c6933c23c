// Package tokenizer measures how many prompt tokens tool definitions cost.
package tokenizer

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when the config leaves the encoding empty.
const DefaultEncoding = "cl100k_base"

// TikToken wraps tiktoken-go to implement domain.Tokenizer.
type TikToken struct {
	name     string
	encoding *tiktoken.Tiktoken
}

// NewTikToken creates a tokenizer for the given encoding name; "" selects
// DefaultEncoding. Common encodings: "cl100k_base" (GPT-4/3.5), "o200k_base" (GPT-4o).
func NewTikToken(encodingName string) (*TikToken, error) {
	if encodingName == "" {
		encodingName = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: unknown encoding %q: %w", encodingName, err)
	}
	return &TikToken{name: encodingName, encoding: enc}, nil
}

// Encoding returns the encoding name in use.
func (t *TikToken) Encoding() string { return t.name }

// CountTokens returns the number of tokens in the given text.
func (t *TikToken) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return len(t.encoding.Encode(text, nil, nil)), nil
}
