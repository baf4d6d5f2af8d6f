package orchestration

import "testing"

func TestCombineStatusWorstOf(t *testing.T) {
	cases := []struct {
		name  string
		local Status
		deps  []Status
		want  Status
	}{
		{"no deps", StatusOK, nil, StatusOK},
		{"dep worse than local", StatusOK, []Status{StatusError}, StatusError},
		{"local worse than deps", StatusError, []Status{StatusOK}, StatusError},
		{"pending worse than degraded", StatusPending, []Status{StatusDegraded}, StatusPending},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := CombineStatus(c.local, c.deps...); got != c.want {
				t.Errorf("CombineStatus(%v, %v) = %v, want %v", c.local, c.deps, got, c.want)
			}
		})
	}
}

func TestToPriority(t *testing.T) {
	if ToPriority(true) != PriorityRequired {
		t.Error("true should coerce to PriorityRequired")
	}
	if ToPriority(false) != PriorityIgnore {
		t.Error("false should coerce to PriorityIgnore")
	}
	if ToPriority(PriorityCritical) != PriorityCritical {
		t.Error("a Priority value should pass through unchanged")
	}
	if ToPriority("nonsense") != PriorityIgnore {
		t.Error("an unrecognized value should coerce to PriorityIgnore")
	}
}

func TestStatusOperational(t *testing.T) {
	if !StatusOK.Operational() {
		t.Error("ok should be operational")
	}
	if !StatusDegraded.Operational() {
		t.Error("degraded should be operational")
	}
	if StatusError.Operational() {
		t.Error("error should not be operational")
	}
	if StatusPending.Operational() {
		t.Error("pending should not be operational")
	}
}
