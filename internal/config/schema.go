package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed config.schema.json
var schemaJSON []byte

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("config: add schema resource: %v", err))
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		panic(fmt.Sprintf("config: compile schema: %v", err))
	}
	return schema
}

// validateSchema checks the structural shape of the merged configuration
// before the typed decode, so a malformed file fails with a path-specific
// message instead of a zero-valued Config.
func validateSchema(raw map[string]any) error {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode config for validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return fmt.Errorf("decode config for validation: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	return nil
}
