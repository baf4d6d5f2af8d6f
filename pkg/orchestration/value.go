package orchestration

// Changeset is the evaluation context a ChangeAware value consults to
// decide whether it has changed since it was last observed: the task that
// is asking, carrying the change-id and target instance it is running
// against. It is deliberately narrow (see Dependency.HasChanged) so that
// reference/external values never need to know about ConfigTask directly.
type Changeset interface {
	ChangeID() int64
	Target() *Instance
}

// ChangeAware is implemented by values whose "has this changed" question
// can't be answered by simple equality — reference and external values,
// which must re-resolve against the live graph to know.
type ChangeAware interface {
	HasChanged(cs Changeset) bool
}

// ValueKind tags the shape carried by a Value.
type ValueKind int

const (
	KindScalar ValueKind = iota
	KindList
	KindMap
	KindReference
	KindExternal
)

// Value is a tagged union over an instance attribute's possible shapes: one
// type, one set of accessors, and an explicit HasChanged capability on the
// two variants that need live re-evaluation.
type Value struct {
	Kind     ValueKind
	Scalar   any
	List     []*Value
	Map      map[string]*Value
	Ref      Ref    // set when Kind == KindReference
	External ChangeAware // set when Kind == KindExternal; e.g. a resolved secret handle
}

// NewScalar wraps a plain Go value (string, number, bool, nil) as a Value.
func NewScalar(v any) *Value {
	return &Value{Kind: KindScalar, Scalar: v}
}

// NewList wraps a sequence of Values.
func NewList(items ...*Value) *Value {
	return &Value{Kind: KindList, List: items}
}

// NewMap wraps a mapping of Values.
func NewMap(m map[string]*Value) *Value {
	return &Value{Kind: KindMap, Map: m}
}

// NewReference wraps a weak reference (relation + lookup, never ownership)
// to another instance via the Ref expression evaluator.
func NewReference(ref Ref) *Value {
	return &Value{Kind: KindReference, Ref: ref}
}

// Raw collapses a Value into plain Go data suitable for YAML emission or
// change-log serialization.
func (v *Value) Raw() any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindScalar:
		return v.Scalar
	case KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = item.Raw()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Map))
		for k, item := range v.Map {
			out[k] = item.Raw()
		}
		return out
	case KindReference:
		return map[string]any{"eval": v.Ref}
	case KindExternal:
		return v.External
	default:
		return nil
	}
}

// HasChanged implements ChangeAware for the whole tagged union: scalars are
// never self-reporting (their change is detected by equality at the
// Dependency layer), lists and maps recurse, and reference/external values
// delegate to their own HasChanged.
func (v *Value) HasChanged(cs Changeset) bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case KindList:
		for _, item := range v.List {
			if item.HasChanged(cs) {
				return true
			}
		}
		return false
	case KindMap:
		for _, item := range v.Map {
			if item.HasChanged(cs) {
				return true
			}
		}
		return false
	case KindReference:
		if ca, ok := v.Ref.(ChangeAware); ok {
			return ca.HasChanged(cs)
		}
		return false
	case KindExternal:
		if v.External != nil {
			return v.External.HasChanged(cs)
		}
		return false
	default:
		return false
	}
}

// Equal compares two Values structurally; used by ConfigurationSpec.Equal
// and by Dependency's expected-value comparison.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindScalar:
		return v.Scalar == other.Scalar
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(other.Map) {
			return false
		}
		for k, item := range v.Map {
			o, ok := other.Map[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
		return true
	default:
		return v.Raw() == other.Raw()
	}
}
