package tooling

import (
	"context"
	"encoding/json"
	"fmt"

	"toolbroker/internal/domain"
)

// unmarshalFunc is the JSON unmarshaler used by the typed adapters. Package-level
// so tests can inject a failing unmarshaler.
var unmarshalFunc = json.Unmarshal

// NewFunc builds a Tool from a typed function. The input schema is generated
// from In, and validated arguments are decoded into In before fn runs.
func NewFunc[In, Out any](name, description string, fn func(ctx context.Context, in In) (Out, error)) (Tool, error) {
	schema, err := schemaFor[In]()
	if err != nil {
		return Tool{}, fmt.Errorf("tool %q: %w", name, err)
	}
	return Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
		Call: func(ctx context.Context, args json.RawMessage, _ domain.ToolContext) (any, error) {
			in, err := decodeInput[In](args)
			if err != nil {
				return nil, err
			}
			return fn(ctx, in)
		},
	}, nil
}

// NewContextFunc is NewFunc for functions that also read the caller's ToolContext.
func NewContextFunc[In, Out any](name, description string, fn func(ctx context.Context, in In, tc domain.ToolContext) (Out, error)) (Tool, error) {
	schema, err := schemaFor[In]()
	if err != nil {
		return Tool{}, fmt.Errorf("tool %q: %w", name, err)
	}
	return Tool{
		Name:           name,
		Description:    description,
		InputSchema:    schema,
		AcceptsContext: true,
		Call: func(ctx context.Context, args json.RawMessage, tc domain.ToolContext) (any, error) {
			in, err := decodeInput[In](args)
			if err != nil {
				return nil, err
			}
			return fn(ctx, in, tc)
		},
	}, nil
}

func schemaFor[In any]() (json.RawMessage, error) {
	var zero In
	return GenerateSchema(zero)
}

func decodeInput[In any](args json.RawMessage) (In, error) {
	var in In
	if err := unmarshalFunc(args, &in); err != nil {
		return in, fmt.Errorf("%w: %v", ErrArgumentDecode, err)
	}
	return in, nil
}
