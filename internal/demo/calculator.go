package demo

import (
	"context"
	"errors"
	"fmt"

	"toolbroker/internal/tooling"
)

// CalculatorToolName is the name of the arithmetic tool.
const CalculatorToolName = "Calculator"

// ErrDivisionByZero is returned by Calculator for b == 0 on divide.
var ErrDivisionByZero = errors.New("division by zero")

// CalculatorInput represents the input structure for calculator operations.
type CalculatorInput struct {
	Operation string  `json:"operation" jsonschema:"enum=add,enum=subtract,enum=multiply,enum=divide"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
}

// CalculatorOutput carries the result and echoes the operation.
type CalculatorOutput struct {
	Operation string  `json:"operation"`
	Result    float64 `json:"result"`
}

// calculate performs the arithmetic for one operation.
func calculate(input CalculatorInput) (float64, error) {
	switch input.Operation {
	case "add":
		return input.A + input.B, nil
	case "subtract":
		return input.A - input.B, nil
	case "multiply":
		return input.A * input.B, nil
	case "divide":
		if input.B == 0 {
			return 0, ErrDivisionByZero
		}
		return input.A / input.B, nil
	default:
		return 0, fmt.Errorf("unknown operation: %s", input.Operation)
	}
}

// Calculate is the Calculator callable.
func Calculate(_ context.Context, input CalculatorInput) (CalculatorOutput, error) {
	result, err := calculate(input)
	if err != nil {
		return CalculatorOutput{}, err
	}
	return CalculatorOutput{Operation: input.Operation, Result: result}, nil
}

// NewCalculatorTool builds the Calculator tool.
func NewCalculatorTool() (tooling.Tool, error) {
	return tooling.NewFunc(CalculatorToolName, "Performs basic arithmetic operations (add, subtract, multiply, divide)", Calculate)
}
