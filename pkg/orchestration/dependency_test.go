package orchestration

import "testing"

type fakeRef struct {
	value any
}

func (r fakeRef) Resolve(ctx RefContext, wantList, strict bool) (any, error) {
	return r.value, nil
}

type fakeValidator struct {
	violations []string
}

func (v fakeValidator) Validate(schema map[string]any, data any) []string {
	return v.violations
}

func newRefreshedDependency(t *testing.T, value any, expected *Value, schema map[string]any) *Dependency {
	t.Helper()
	root := NewInstance("root", nil, nil)
	dep := NewDependency("dep", fakeRef{value: value}, expected, schema, PriorityRequired)
	if err := dep.Refresh(NewRefContext(root, nil)); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return dep
}

func TestDependencyHasChangedExpectedMismatch(t *testing.T) {
	dep := newRefreshedDependency(t, "new-value", NewScalar("old-value"), nil)
	if !dep.HasChanged(nil, nil) {
		t.Error("expected mismatch against Expected to report changed")
	}
}

func TestDependencyHasChangedExpectedMatch(t *testing.T) {
	dep := newRefreshedDependency(t, "same", NewScalar("same"), nil)
	if dep.HasChanged(nil, nil) {
		t.Error("expected value matching Expected to report unchanged")
	}
}

func TestDependencyHasChangedEmptyResultIsChanged(t *testing.T) {
	dep := newRefreshedDependency(t, nil, nil, nil)
	if !dep.HasChanged(nil, nil) {
		t.Error("a dependency that resolved to nothing should report changed")
	}
}

func TestDependencyHasChangedSchemaViolation(t *testing.T) {
	dep := newRefreshedDependency(t, "anything", nil, map[string]any{"type": "integer"})
	if !dep.HasChanged(nil, fakeValidator{violations: []string{"not an integer"}}) {
		t.Error("a schema violation should report changed regardless of value")
	}
}

func TestDependencyTrackerAnyChanged(t *testing.T) {
	tracker := NewDependencyTracker()
	tracker.Add(newRefreshedDependency(t, "same", NewScalar("same"), nil))
	if tracker.AnyChanged(nil, nil) {
		t.Error("no dependency changed yet")
	}
	tracker.Add(newRefreshedDependency(t, "new", NewScalar("old"), nil))
	if !tracker.AnyChanged(nil, nil) {
		t.Error("expected AnyChanged to report true once one dependency changed")
	}
}

func TestDependencyTrackerRemove(t *testing.T) {
	tracker := NewDependencyTracker()
	tracker.Add(NewDependency("a", fakeRef{}, nil, nil, PriorityRequired))
	tracker.Add(NewDependency("b", fakeRef{}, nil, nil, PriorityRequired))
	tracker.Remove("a")
	all := tracker.All()
	if len(all) != 1 || all[0].Name != "b" {
		t.Errorf("expected only b to remain, got %v", all)
	}
}
