package tooling

import (
	"bytes"
	"encoding/json"
	"fmt"

	invopopSchema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// defaultInputSchema accepts any arguments object.
var defaultInputSchema = json.RawMessage(`{"type":"object"}`)

// marshalFunc is the JSON marshaler used by GenerateSchema. Package-level so
// tests can inject a failing marshaler to cover the error return path.
var marshalFunc = json.Marshal

// GenerateSchema generates a JSON Schema document from a Go struct using
// invopop/jsonschema reflection. Fields without omitempty are required and
// unknown properties are rejected.
func GenerateSchema(input any) (json.RawMessage, error) {
	reflector := invopopSchema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(input)

	schemaBytes, err := marshalFunc(schema)
	if err != nil {
		return nil, fmt.Errorf("generate schema: %w", err)
	}
	return schemaBytes, nil
}

// CompileSchema compiles a JSON Schema document for repeated validation.
func CompileSchema(raw json.RawMessage) (*jsonschema.Schema, error) {
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidSchema)
	}
	schema, err := jsonschema.CompileString("", string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return schema, nil
}

// ValidateArguments checks raw tool arguments against a compiled schema and
// returns them normalized: empty input becomes "{}". All failures wrap
// ErrArgumentDecode.
func ValidateArguments(schema *jsonschema.Schema, raw json.RawMessage) (json.RawMessage, error) {
	args := bytes.TrimSpace(raw)
	if len(args) == 0 {
		args = []byte("{}")
	}

	var inputData any
	if err := json.Unmarshal(args, &inputData); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", ErrArgumentDecode, err)
	}

	if err := schema.Validate(inputData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArgumentDecode, err)
	}
	return json.RawMessage(args), nil
}
