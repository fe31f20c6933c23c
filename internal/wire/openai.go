// Package wire converts between the broker's request/result types and the
// tool-calling shapes of common chat-completion APIs.
package wire

import (
	"encoding/json"
	"strings"

	"toolbroker/internal/domain"
)

// OpenAITool describes a tool in OpenAI function-calling format.
type OpenAITool struct {
	Type     string         `json:"type"`
	Function OpenAIFunction `json:"function"`
}

// OpenAIFunction is the function schema within a tool definition.
type OpenAIFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// OpenAIToolCall is one entry of an assistant message's tool_calls array.
// Arguments arrive as a JSON-encoded string.
type OpenAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// OpenAIToolMessage is the role "tool" message answering one tool call.
type OpenAIToolMessage struct {
	Role       string `json:"role"`
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name,omitempty"`
	Content    string `json:"content"`
}

// OpenAITools converts definitions to OpenAI tool envelopes.
func OpenAITools(defs []domain.ToolDefinition) []OpenAITool {
	out := make([]OpenAITool, 0, len(defs))
	for _, d := range defs {
		out = append(out, OpenAITool{
			Type: "function",
			Function: OpenAIFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.InputSchema,
			},
		})
	}
	return out
}

// FromOpenAIToolCalls converts tool calls to broker requests. Arguments that
// are not valid JSON are passed through as a JSON string so the invoker
// reports them as invalid arguments for that call only.
func FromOpenAIToolCalls(calls []OpenAIToolCall) []domain.ToolCallRequest {
	reqs := make([]domain.ToolCallRequest, 0, len(calls))
	for _, c := range calls {
		req := domain.ToolCallRequest{CallID: c.ID, ToolName: c.Function.Name}
		args := strings.TrimSpace(c.Function.Arguments)
		switch {
		case args == "":
		case json.Valid([]byte(args)):
			req.RawArguments = json.RawMessage(args)
		default:
			quoted, _ := json.Marshal(args)
			req.RawArguments = quoted
		}
		reqs = append(reqs, req)
	}
	return reqs
}

// ToOpenAIToolMessages converts results to tool messages, one per result.
func ToOpenAIToolMessages(results []domain.ToolCallResult) []OpenAIToolMessage {
	msgs := make([]OpenAIToolMessage, 0, len(results))
	for _, r := range results {
		msgs = append(msgs, OpenAIToolMessage{
			Role:       string(domain.RoleTool),
			ToolCallID: r.CallID,
			Name:       r.ToolName,
			Content:    string(r.Output),
		})
	}
	return msgs
}
