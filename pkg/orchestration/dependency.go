package orchestration

// Dependency is a configurator's declared reliance on some value elsewhere
// in the graph, captured at the moment a task ran so that a later task can
// tell whether it needs to re-run.
type Dependency struct {
	Name     string
	Expr     Ref
	Expected *Value
	Schema   map[string]any
	Required Priority

	resolved *Value
	target   *Instance
}

// NewDependency records a dependency on expr, optionally pinned to an
// expected value or a validation schema. required controls how strongly a
// violation should be treated by cantRunTask.
func NewDependency(name string, expr Ref, expected *Value, schema map[string]any, required Priority) *Dependency {
	return &Dependency{Name: name, Expr: expr, Expected: expected, Schema: schema, Required: required}
}

// Target returns the instance this dependency was last resolved against, or
// nil before the first Refresh.
func (d *Dependency) Target() *Instance {
	return d.target
}

// Refresh re-evaluates the dependency's expression against ctx and caches
// both the resolved value and the instance it resolved relative to.
func (d *Dependency) Refresh(ctx RefContext) error {
	result, err := d.Expr.Resolve(ctx, false, false)
	if err != nil {
		return err
	}
	d.resolved = NewScalar(result)
	d.target = ctx.Target()
	return nil
}

// HasChanged decides whether this dependency's value has changed since it
// was captured, via an ordered set of checks: schema violation first, then
// expected-value mismatch, then "resolved to nothing" as changed, and
// finally a recursive ChangeAware walk of the live value.
func (d *Dependency) HasChanged(cs Changeset, validator SchemaValidator) bool {
	if d.Schema != nil && validator != nil {
		if violations := validator.Validate(d.Schema, d.resolved.Raw()); len(violations) > 0 {
			return true
		}
	}
	if d.Expected != nil {
		return !d.resolved.Equal(d.Expected)
	}
	if d.resolved == nil || isEmptyValue(d.resolved) {
		return true
	}
	return d.resolved.HasChanged(cs)
}

func isEmptyValue(v *Value) bool {
	if v == nil {
		return true
	}
	switch v.Kind {
	case KindScalar:
		return v.Scalar == nil
	case KindList:
		return len(v.List) == 0
	case KindMap:
		return len(v.Map) == 0
	default:
		return false
	}
}

// DependencyTracker owns the set of dependencies a ConfigTask accumulates
// over its run, keyed by name so a configurator calling AddDependency twice
// on the same name updates rather than duplicates.
type DependencyTracker struct {
	byName map[string]*Dependency
	order  []string
}

// NewDependencyTracker returns an empty tracker.
func NewDependencyTracker() *DependencyTracker {
	return &DependencyTracker{byName: make(map[string]*Dependency)}
}

// Add records dep, replacing any prior dependency of the same name.
func (t *DependencyTracker) Add(dep *Dependency) {
	if _, exists := t.byName[dep.Name]; !exists {
		t.order = append(t.order, dep.Name)
	}
	t.byName[dep.Name] = dep
}

// Remove drops the dependency named name, mirroring TaskView.removeDependency.
func (t *DependencyTracker) Remove(name string) {
	if _, ok := t.byName[name]; !ok {
		return
	}
	delete(t.byName, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// All returns the tracked dependencies in the order they were first added.
func (t *DependencyTracker) All() []*Dependency {
	out := make([]*Dependency, 0, len(t.order))
	for _, n := range t.order {
		out = append(out, t.byName[n])
	}
	return out
}

// RefreshAll re-evaluates every tracked dependency against ctx, mirroring
// ConfigTask.refreshDependencies.
func (t *DependencyTracker) RefreshAll(ctx RefContext) error {
	for _, dep := range t.All() {
		if err := dep.Refresh(ctx); err != nil {
			return err
		}
	}
	return nil
}

// AnyChanged reports whether any tracked dependency has changed, mirroring
// ConfigTask.hasDependenciesChanged.
func (t *DependencyTracker) AnyChanged(cs Changeset, validator SchemaValidator) bool {
	for _, dep := range t.All() {
		if dep.HasChanged(cs, validator) {
			return true
		}
	}
	return false
}
