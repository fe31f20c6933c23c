package tokenizer

import (
	"encoding/json"
	"fmt"

	"toolbroker/internal/domain"
)

// DefinitionCost is the token cost of one tool definition.
type DefinitionCost struct {
	Name   string `json:"name"`
	Tokens int    `json:"tokens"`
}

// DefinitionTokens counts the tokens each definition adds to a prompt,
// measured on its JSON encoding, and returns the per-tool costs together
// with their total.
func DefinitionTokens(tok domain.Tokenizer, defs []domain.ToolDefinition) ([]DefinitionCost, int, error) {
	costs := make([]DefinitionCost, 0, len(defs))
	total := 0
	for _, d := range defs {
		data, err := json.Marshal(d)
		if err != nil {
			return nil, 0, fmt.Errorf("tokenizer: encode %q: %w", d.Name, err)
		}
		n, err := tok.CountTokens(string(data))
		if err != nil {
			return nil, 0, fmt.Errorf("tokenizer: count %q: %w", d.Name, err)
		}
		costs = append(costs, DefinitionCost{Name: d.Name, Tokens: n})
		total += n
	}
	return costs, total, nil
}
