package tooling

import (
	"context"
	"encoding/json"
	"errors"

	"toolbroker/internal/domain"
)

var (
	// ErrInvalidTool is returned by Register for a tool without a name or callable.
	ErrInvalidTool = errors.New("invalid tool")
	// ErrInvalidSchema is returned by Register when the input schema does not compile.
	ErrInvalidSchema = errors.New("invalid input schema")
	// ErrDuplicateTool is returned by Register when the name is already taken.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrUnknownTool is returned by Resolve when no tool has the requested name.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrArgumentDecode marks arguments that are not JSON or do not satisfy the
	// tool's input schema.
	ErrArgumentDecode = errors.New("invalid arguments")
)

// Callable is the function behind a tool. args has already been validated
// against the tool's input schema. tc is the caller's side-channel context
// for tools registered with AcceptsContext, and empty otherwise.
type Callable func(ctx context.Context, args json.RawMessage, tc domain.ToolContext) (any, error)

// Tool is a callable exposed to the model.
type Tool struct {
	Name        string
	Description string
	// InputSchema is a JSON Schema document describing the arguments object.
	// Defaults to {"type":"object"} when empty.
	InputSchema json.RawMessage
	Call        Callable
	// AcceptsContext controls whether Call sees the caller's ToolContext.
	AcceptsContext bool
	// Serial tools never run concurrently with another call to the same tool.
	Serial bool
}

// Definition returns the model-facing definition of the tool.
func (t Tool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
	}
}
