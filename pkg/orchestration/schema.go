package orchestration

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchemaValidator is the reference SchemaValidator, compiling each
// schema document with santhosh-tekuri/jsonschema/v5 and caching the
// compiled result by its serialized form so repeated validation against the
// same precondition/input schema across many tasks in a job doesn't
// recompile it every time.
type JSONSchemaValidator struct {
	compiled map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator returns a validator whose compiled-schema cache
// starts empty.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{compiled: make(map[string]*jsonschema.Schema)}
}

// Validate implements SchemaValidator.
func (v *JSONSchemaValidator) Validate(schema map[string]any, data any) []string {
	compiled, err := v.compile(schema)
	if err != nil {
		return []string{fmt.Sprintf("invalid schema: %v", err)}
	}
	if err := compiled.Validate(data); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return flattenValidationError(verr)
		}
		return []string{err.Error()}
	}
	return nil
}

func (v *JSONSchemaValidator) compile(schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	key := string(raw)
	if cached, ok := v.compiled[key]; ok {
		return cached, nil
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const resourceURL = "mem://schema.json"
	if err := c.AddResource(resourceURL, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(resourceURL)
	if err != nil {
		return nil, err
	}
	v.compiled[key] = compiled
	return compiled, nil
}

func flattenValidationError(verr *jsonschema.ValidationError) []string {
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, fmt.Sprintf("%s: %s", e.InstanceLocation, e.Message))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return out
}
