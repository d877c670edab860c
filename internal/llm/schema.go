package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildCoursesJSONSchema returns the envelope schema for generation output.
// Items are left unconstrained: entries are checked one at a time so that one
// bad row never rejects the batch.
func BuildCoursesJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"courses": map[string]any{"type": "array"},
		},
		"required": []string{"courses"},
	}
}

var (
	coursesSchemaOnce sync.Once
	coursesSchema     *jsonschema.Schema
	coursesSchemaErr  error
)

func compiledCoursesSchema() (*jsonschema.Schema, error) {
	coursesSchemaOnce.Do(func() {
		coursesSchema, coursesSchemaErr = compileSchema(BuildCoursesJSONSchema())
	})
	return coursesSchema, coursesSchemaErr
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compileSchema(schemaMap)
	if err != nil {
		return err
	}
	return validateWith(schema, data)
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateWith(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
