package document

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const registrySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "workspaces": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "location": {"type": "string"},
          "description": {"type": "string"},
          "registered_at": {"type": "string"},
          "machine": {
            "type": "object",
            "properties": {
              "hostname": {"type": "string"},
              "os": {"type": "string"},
              "os_version": {"type": "string"},
              "architecture": {"type": "string"}
            }
          },
          "projects": {"type": "array", "items": {"type": "string"}},
          "skills_version": {"type": "string"}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func registry() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("registry.schema.json", registrySchema)
	})
	return schema, schemaErr
}

// ValidateRegistry checks a workspace registry document against its schema
func ValidateRegistry(a *Array) error {
	s, err := registry()
	if err != nil {
		return fmt.Errorf("compile registry schema: %w", err)
	}
	v, err := a.Decoded()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := s.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrInvalidDocument, firstCause(ve))
		}
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

func firstCause(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		return ve.Message
	}
	return loc + ": " + ve.Message
}
