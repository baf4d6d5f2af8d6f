package orchestration

import "testing"

func TestValueRaw(t *testing.T) {
	v := NewMap(map[string]*Value{
		"name": NewScalar("db"),
		"ports": NewList(NewScalar(5432), NewScalar(5433)),
	})
	raw, ok := v.Raw().(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", v.Raw())
	}
	if raw["name"] != "db" {
		t.Errorf("name = %v, want db", raw["name"])
	}
	ports, ok := raw["ports"].([]any)
	if !ok || len(ports) != 2 {
		t.Fatalf("ports = %v", raw["ports"])
	}
}

func TestValueEqual(t *testing.T) {
	a := NewList(NewScalar(1), NewScalar(2))
	b := NewList(NewScalar(1), NewScalar(2))
	c := NewList(NewScalar(1), NewScalar(3))
	if !a.Equal(b) {
		t.Error("equal lists should compare equal")
	}
	if a.Equal(c) {
		t.Error("differing lists should not compare equal")
	}
	if NewScalar(nil).Equal(nil) {
		t.Error("a non-nil Value should never equal a nil Value")
	}
}

// fakeExternal is a minimal ChangeAware used to test Value.HasChanged's
// delegation to external values without depending on any concrete
// implementation.
type fakeExternal struct{ changed bool }

func (f fakeExternal) HasChanged(cs Changeset) bool { return f.changed }

func TestValueHasChangedDelegatesToExternal(t *testing.T) {
	v := &Value{Kind: KindExternal, External: fakeExternal{changed: true}}
	if !v.HasChanged(nil) {
		t.Error("expected HasChanged to delegate true to the external value")
	}

	v2 := &Value{Kind: KindExternal, External: fakeExternal{changed: false}}
	if v2.HasChanged(nil) {
		t.Error("expected HasChanged to delegate false to the external value")
	}
}

func TestValueHasChangedRecursesIntoList(t *testing.T) {
	changed := &Value{Kind: KindExternal, External: fakeExternal{changed: true}}
	list := NewList(NewScalar(1), changed, NewScalar(3))
	if !list.HasChanged(nil) {
		t.Error("expected a list containing a changed element to report changed")
	}
}
