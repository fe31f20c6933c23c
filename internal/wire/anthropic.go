package wire

import (
	"encoding/json"
	"fmt"

	"toolbroker/internal/domain"
)

// FromToolUseBlocks extracts the tool_use blocks of an assistant message as
// broker requests, in block order. Other block types are ignored.
func FromToolUseBlocks(msg domain.Message) ([]domain.ToolCallRequest, error) {
	blocks := msg.ContentBlocks
	if blocks == nil && len(msg.RawContent) > 0 {
		parsed, err := domain.ParseMessageContent(msg.RawContent)
		if err != nil {
			return nil, fmt.Errorf("wire: parse message content: %w", err)
		}
		blocks = parsed
	}

	var reqs []domain.ToolCallRequest
	for _, b := range blocks {
		use, ok := b.(domain.ToolUseBlock)
		if !ok {
			continue
		}
		reqs = append(reqs, domain.ToolCallRequest{
			CallID:       use.ToolUseID,
			ToolName:     use.Name,
			RawArguments: use.Input,
		})
	}
	return reqs, nil
}

// ToToolResultMessage builds the user message that answers a turn's tool
// calls with one tool_result block per result.
func ToToolResultMessage(results []domain.ToolCallResult) (domain.Message, error) {
	blocks := make([]domain.ContentBlock, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, domain.ToolResultBlock{
			ToolUseID: r.CallID,
			Content:   string(r.Output),
			IsError:   r.IsError,
		})
	}
	raw, err := json.Marshal(blocks)
	if err != nil {
		return domain.Message{}, fmt.Errorf("wire: encode tool results: %w", err)
	}
	return domain.Message{
		Role:          domain.RoleUser,
		RawContent:    raw,
		ContentBlocks: blocks,
	}, nil
}
