package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Func executes a tool call. Input is the raw JSON arguments produced by the model.
type Func func(ctx context.Context, input json.RawMessage) (string, error)

// Definition describes a callable tool.
type Definition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Function    Func
}

// objectSchema is the subset of JSON Schema accepted by every provider's tool API.
type objectSchema struct {
	Type                 string   `json:"type"`
	Properties           any      `json:"properties"`
	Required             []string `json:"required,omitempty"`
	AdditionalProperties bool     `json:"additionalProperties"`
}

// GenerateSchema derives an object schema from the exported fields of T.
// Fields without `omitempty` are required.
func GenerateSchema[T any]() json.RawMessage {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	out := objectSchema{
		Type:       "object",
		Properties: schema.Properties,
		Required:   schema.Required,
	}
	if schema.Properties == nil {
		out.Properties = map[string]any{}
	}

	data, err := json.Marshal(out)
	if err != nil {
		// Reflected schemas are always encodable.
		panic(fmt.Sprintf("tools: encoding schema for %T: %v", v, err))
	}
	return data
}

// SchemaMap decodes the input schema into a generic map.
func (d Definition) SchemaMap() (map[string]any, error) {
	if len(d.InputSchema) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(d.InputSchema, &m); err != nil {
		return nil, fmt.Errorf("decoding schema for %s: %w", d.Name, err)
	}
	return m, nil
}

// Decode unmarshals tool input into T. Empty input decodes to the zero value.
func Decode[T any](input json.RawMessage) (T, error) {
	var v T
	if len(input) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(input, &v); err != nil {
		return v, fmt.Errorf("invalid tool input: %w", err)
	}
	return v, nil
}
