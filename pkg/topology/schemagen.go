package topology

import "github.com/invopop/jsonschema"

// GenerateSchema produces a JSON Schema document describing the manifest
// YAML format, derived from the manifestDoc/instanceDoc/operationDoc struct
// tags, for editor tooling and documentation.
func GenerateSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: false,
		FieldNameTag:   "yaml",
	}
	return reflector.Reflect(&manifestDoc{})
}
