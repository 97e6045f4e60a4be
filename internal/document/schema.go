package document

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed document.schema.json
var documentSchema string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("document.schema.json", bytes.NewReader([]byte(documentSchema))); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("document.schema.json")
	})
	return schema, schemaErr
}

// ValidateJSON checks that raw bytes form a structurally valid document.
// External step output passes through here before it replaces the in-flight
// document.
func ValidateJSON(raw []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile document schema: %w", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := s.Validate(payload); err != nil {
		return fmt.Errorf("document shape: %w", err)
	}
	return nil
}

// Decode parses and validates raw JSON into a Document.
func Decode(raw []byte) (*Document, error) {
	if err := ValidateJSON(raw); err != nil {
		return nil, err
	}
	doc := &Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
