package orchestration

// Ref is the black-box expression-language contract consumed by the core:
// something that knows how to resolve a symbolic query like "::nodeA::addr"
// against a RefContext. The core never constructs
// concrete Refs beyond the reference default implementation in
// pkg/refpath — callers supply their own evaluator by implementing this
// interface.
type Ref interface {
	// Resolve evaluates the expression against ctx. When wantList is true
	// the result should be a []any even for single matches; when strict is
	// true, an unresolvable reference is an error rather than a nil result.
	Resolve(ctx RefContext, wantList, strict bool) (any, error)
}

// RefContext carries the evaluation scope for a Ref: the target instance an
// expression is evaluated relative to, plus any named variables (the
// reserved "val" and "changeId" variables Dependency injects, or a
// configurator's "inputs"/"task" variables).
type RefContext interface {
	Target() *Instance
	Var(name string) (any, bool)
}

// refContext is the core's own minimal RefContext implementation, used
// whenever it needs to build a scope for Dependency evaluation or for a
// ConfigTask's inputs view.
type refContext struct {
	target *Instance
	vars   map[string]any
}

// NewRefContext builds a RefContext over target with the given named
// variables, such as the reserved "val" and "changeId" variables.
func NewRefContext(target *Instance, vars map[string]any) RefContext {
	return &refContext{target: target, vars: vars}
}

func (c *refContext) Target() *Instance { return c.target }

func (c *refContext) Var(name string) (any, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// MapValue recursively evaluates embedded Ref expressions inside value:
// scalars and external values pass through, Values of KindReference are
// resolved, and lists/maps are walked rebuilding resolved copies.
func MapValue(value *Value, ctx RefContext) (*Value, error) {
	if value == nil {
		return nil, nil
	}
	switch value.Kind {
	case KindReference:
		resolved, err := value.Ref.Resolve(ctx, false, false)
		if err != nil {
			return nil, err
		}
		return NewScalar(resolved), nil
	case KindList:
		out := make([]*Value, len(value.List))
		for i, item := range value.List {
			resolved, err := MapValue(item, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return NewList(out...), nil
	case KindMap:
		out := make(map[string]*Value, len(value.Map))
		for k, item := range value.Map {
			resolved, err := MapValue(item, ctx)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return NewMap(out), nil
	default:
		return value, nil
	}
}
