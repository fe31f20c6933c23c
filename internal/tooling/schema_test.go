package tooling

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type weatherArgs struct {
	Location string `json:"location" jsonschema:"minLength=1"`
	Unit     string `json:"unit,omitempty" jsonschema:"enum=C,enum=F"`
}

// =============================================================================
// GenerateSchema
// =============================================================================

func TestGenerateSchema_ShouldReturnValidJSONSchemaForStruct(t *testing.T) {
	schema, err := GenerateSchema(weatherArgs{})
	if err != nil {
		t.Fatalf("GenerateSchema: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(schema, &parsed); err != nil {
		t.Fatalf("Schema is not valid JSON: %v", err)
	}
	if parsed["type"] != "object" {
		t.Errorf("Expected type 'object', got %v", parsed["type"])
	}
	if parsed["additionalProperties"] != false {
		t.Errorf("Expected additionalProperties false, got %v", parsed["additionalProperties"])
	}

	props, ok := parsed["properties"].(map[string]any)
	if !ok {
		t.Fatal("Expected 'properties' key")
	}
	for _, key := range []string{"location", "unit"} {
		if _, exists := props[key]; !exists {
			t.Errorf("Expected property '%s'", key)
		}
	}

	required, _ := parsed["required"].([]any)
	if len(required) != 1 || required[0] != "location" {
		t.Errorf("Expected only 'location' to be required, got %v", required)
	}
}

func TestGenerateSchema_ShouldHandleNestedStructs(t *testing.T) {
	type Nested struct {
		Name     string   `json:"name"`
		Tags     []string `json:"tags,omitempty"`
		Settings struct {
			Enabled bool `json:"enabled"`
		} `json:"settings"`
	}

	schema, err := GenerateSchema(Nested{})
	if err != nil {
		t.Fatalf("GenerateSchema: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(schema, &parsed); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	props := parsed["properties"].(map[string]any)
	for _, key := range []string{"name", "settings"} {
		if _, exists := props[key]; !exists {
			t.Errorf("Expected property '%s'", key)
		}
	}
}

func TestGenerateSchema_ShouldReturnErrorWhenMarshalFails(t *testing.T) {
	original := marshalFunc
	marshalFunc = func(v any) ([]byte, error) {
		return nil, fmt.Errorf("forced marshal error")
	}
	defer func() { marshalFunc = original }()

	if _, err := GenerateSchema(weatherArgs{}); err == nil {
		t.Error("Expected error on marshal failure")
	}
}

// =============================================================================
// CompileSchema / ValidateArguments
// =============================================================================

func TestCompileSchema_ShouldCompileGeneratedSchema(t *testing.T) {
	raw, err := GenerateSchema(weatherArgs{})
	if err != nil {
		t.Fatalf("GenerateSchema: %v", err)
	}
	if _, err := CompileSchema(raw); err != nil {
		t.Errorf("Expected generated schema to compile, got %v", err)
	}
}

func TestCompileSchema_ShouldRejectInvalidSchema(t *testing.T) {
	if _, err := CompileSchema(json.RawMessage(`{"type":"invalid"}`)); !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("Expected ErrInvalidSchema, got %v", err)
	}
}

func TestValidateArguments_ShouldPassForValidInput(t *testing.T) {
	schema := mustCompile(t, `{"type":"object","properties":{"x":{"type":"number"}},"required":["x"]}`)
	args, err := ValidateArguments(schema, json.RawMessage(`{"x":42}`))
	if err != nil {
		t.Fatalf("Expected pass, got: %v", err)
	}
	if string(args) != `{"x":42}` {
		t.Errorf("Expected args unchanged, got %s", args)
	}
}

func TestValidateArguments_ShouldFailForInvalidEnum(t *testing.T) {
	schema := mustCompile(t, `{"type":"object","properties":{"op":{"type":"string","enum":["add","sub"]}},"required":["op"]}`)
	_, err := ValidateArguments(schema, json.RawMessage(`{"op":"div"}`))
	if !errors.Is(err, ErrArgumentDecode) {
		t.Errorf("Expected ErrArgumentDecode for invalid enum value, got %v", err)
	}
}

func TestValidateArguments_ShouldFailForMissingRequired(t *testing.T) {
	schema := mustCompile(t, `{"type":"object","properties":{"x":{"type":"number"}},"required":["x"]}`)
	_, err := ValidateArguments(schema, json.RawMessage(`{}`))
	if !errors.Is(err, ErrArgumentDecode) {
		t.Errorf("Expected ErrArgumentDecode for missing required field, got %v", err)
	}
}

func TestValidateArguments_ShouldFailForMalformedJSON(t *testing.T) {
	schema := mustCompile(t, `{"type":"object"}`)
	_, err := ValidateArguments(schema, json.RawMessage(`{"x":`))
	if !errors.Is(err, ErrArgumentDecode) {
		t.Errorf("Expected ErrArgumentDecode for malformed JSON, got %v", err)
	}
}

func TestValidateArguments_WhenEmpty_ShouldTreatAsEmptyObject(t *testing.T) {
	schema := mustCompile(t, `{"type":"object"}`)
	for _, raw := range []string{"", "  \n"} {
		args, err := ValidateArguments(schema, json.RawMessage(raw))
		if err != nil {
			t.Fatalf("Expected empty args to pass, got %v", err)
		}
		if string(args) != "{}" {
			t.Errorf("Expected {}, got %q", args)
		}
	}
}

func TestValidateArguments_WhenNotObject_ShouldFail(t *testing.T) {
	schema := mustCompile(t, `{"type":"object"}`)
	if _, err := ValidateArguments(schema, json.RawMessage(`[1,2]`)); !errors.Is(err, ErrArgumentDecode) {
		t.Errorf("Expected ErrArgumentDecode for array args, got %v", err)
	}
}

func mustCompile(t *testing.T, raw string) *jsonschema.Schema {
	t.Helper()
	s, err := CompileSchema(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}
	return s
}
