package orchestration

// SchemaValidator validates a value against a JSON Schema document without
// the core needing to depend on a particular schema library directly. The
// reference implementation wraps santhosh-tekuri/jsonschema/v5.
type SchemaValidator interface {
	// Validate checks data against schema and returns the list of
	// human-readable violation messages, empty when data is valid.
	Validate(schema map[string]any, data any) []string
}

// Environment is the variable overlay a Configurator runs with: a named set
// of key/value pairs merged over the ambient process environment, never
// mutating it directly.
type Environment struct {
	Variables map[string]string
}

// Merged returns base overlaid with e's variables, base left untouched.
func (e *Environment) Merged(base map[string]string) map[string]string {
	out := make(map[string]string, len(base))
	for k, v := range base {
		out[k] = v
	}
	if e != nil {
		for k, v := range e.Variables {
			out[k] = v
		}
	}
	return out
}

// ConfigurationSpec is the immutable description of one operation to run:
// which Configurator implements it, what inputs it takes, and the
// pre/post-conditions that gate and validate it.
type ConfigurationSpec struct {
	Name          string
	Operation     string
	ClassName     string
	Inputs        map[string]*Value
	InputSchema   map[string]any
	Preconditions map[string]any
	Postconditions map[string]any
	Priority      Priority
	Workflow      string
	Timeout       int
	Environment   *Environment
}

// Copy returns a structural copy of c with mods applied on top of its
// Inputs.
func (c *ConfigurationSpec) Copy(mods map[string]*Value) *ConfigurationSpec {
	out := *c
	out.Inputs = make(map[string]*Value, len(c.Inputs)+len(mods))
	for k, v := range c.Inputs {
		out.Inputs[k] = v
	}
	for k, v := range mods {
		out.Inputs[k] = v
	}
	return &out
}

// Equal reports whether two specs describe the same operation with the same
// inputs: Name, Operation, ClassName and Inputs are compared; the other
// fields are not.
func (c *ConfigurationSpec) Equal(other *ConfigurationSpec) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Name != other.Name || c.Operation != other.Operation || c.ClassName != other.ClassName {
		return false
	}
	if len(c.Inputs) != len(other.Inputs) {
		return false
	}
	for k, v := range c.Inputs {
		ov, ok := other.Inputs[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// FindInvalidInputs validates c.Inputs against c.InputSchema, returning a
// violation message per failing field. A nil InputSchema always passes —
// not every operation declares one.
func (c *ConfigurationSpec) FindInvalidInputs(validator SchemaValidator) []string {
	if c.InputSchema == nil || validator == nil {
		return nil
	}
	raw := make(map[string]any, len(c.Inputs))
	for k, v := range c.Inputs {
		raw[k] = v.Raw()
	}
	return validator.Validate(c.InputSchema, raw)
}

// FindInvalidPreconditions validates instance's current attributes against
// c.Preconditions, the schema-check branch of the sibling logic that gates
// whether a task may even start.
func (c *ConfigurationSpec) FindInvalidPreconditions(instance *Instance, validator SchemaValidator) []string {
	if c.Preconditions == nil || validator == nil {
		return nil
	}
	raw := make(map[string]any, len(instance.Attributes))
	for k, v := range instance.Attributes {
		raw[k] = v.Raw()
	}
	return validator.Validate(c.Preconditions, raw)
}
