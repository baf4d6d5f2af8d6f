package orchestration

import (
	"context"
	"testing"
)

// fakeConfigurator runs fn on its own goroutine and reports result via
// TaskView.Done, mirroring the shape every real Configurator takes.
type fakeConfigurator struct {
	fn               func(view *TaskView)
	priority         Priority
	explicitPriority bool
	noDryRun         bool
}

func (f *fakeConfigurator) Run(ctx context.Context, task *TaskView, out chan<- ConfiguratorMessage) {
	f.fn(task)
}

func (f *fakeConfigurator) ShouldRun(task *TaskView) Priority {
	if !f.explicitPriority {
		return PriorityRequired
	}
	return f.priority
}

func (f *fakeConfigurator) CanRun(task *TaskView) (bool, string) { return true, "" }

func (f *fakeConfigurator) CanDryRun(task *TaskView) bool { return !f.noDryRun }

func newTestSpec(className, op string) *ConfigurationSpec {
	return &ConfigurationSpec{Name: op, Operation: op, ClassName: className, Priority: PriorityRequired}
}

func TestConfigTaskStartSucceeds(t *testing.T) {
	target := NewInstance("web", nil, nil)
	registry := NewRegistry()
	changeIDs := NewChangeIDService(0)

	cfgtr := &fakeConfigurator{fn: func(view *TaskView) {
		view.Set(view.task.Target, "status", NewScalar("running"))
		view.Done(ConfiguratorResult{Success: true, Modified: true, Status: StatusOK})
	}}

	task := NewConfigTask(target, newTestSpec("web-op", "configure"), cfgtr, registry, changeIDs, nil, nil, 0)

	rec, err := task.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if rec.Status != StatusOK {
		t.Errorf("Status = %v, want OK", rec.Status)
	}
	if !rec.Modified {
		t.Error("expected Modified to be true")
	}
	if target.Attributes["status"].Scalar != "running" {
		t.Errorf("expected committed attribute write, got %v", target.Attributes["status"])
	}
	if task.ChangeID <= 0 {
		t.Errorf("expected a final, positive change id to be assigned at finish, got %d", task.ChangeID)
	}
	if target.LastConfigChange == nil || *target.LastConfigChange != task.ChangeID {
		t.Error("expected LastConfigChange to be set to the task's change id")
	}
}

func TestConfigTaskCreateSubTask(t *testing.T) {
	parent := NewInstance("app", nil, nil)
	child := NewInstance("db", nil, nil)
	registry := NewRegistry()
	changeIDs := NewChangeIDService(0)

	var childChangeID int64
	childCfgtr := &fakeConfigurator{fn: func(view *TaskView) {
		view.Done(ConfiguratorResult{Success: true, Status: StatusOK})
	}}
	registry.Register("db-create", childCfgtr)

	parentCfgtr := &fakeConfigurator{fn: func(view *TaskView) {
		rec := view.CreateSubTask(newTestSpec("db-create", "create"), child)
		childChangeID = rec.ChangeID
		if rec.Status != StatusOK {
			view.Done(ConfiguratorResult{Success: false, Status: StatusError})
			return
		}
		view.Done(ConfiguratorResult{Success: true, Status: StatusOK})
	}}

	task := NewConfigTask(parent, newTestSpec("app-configure", "configure"), parentCfgtr, registry, changeIDs, nil, nil, 0)

	rec, err := task.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if rec.Status != StatusOK {
		t.Errorf("Status = %v, want OK", rec.Status)
	}
	if child.LastConfigChange == nil {
		t.Error("expected the sub-task to have recorded a change against child")
	}
	if rec.ChangeID <= childChangeID {
		t.Errorf("expected parent change id (%d) to outrank the sub-task's (%d)", rec.ChangeID, childChangeID)
	}
}

func TestConfigTaskMaxNestedSubtasks(t *testing.T) {
	target := NewInstance("web", nil, nil)
	registry := NewRegistry()
	changeIDs := NewChangeIDService(0)
	cfgtr := &fakeConfigurator{fn: func(view *TaskView) {
		view.Done(ConfiguratorResult{Success: true, Status: StatusOK})
	}}

	task := NewConfigTask(target, newTestSpec("noop", "configure"), cfgtr, registry, changeIDs, nil, nil, maxNestedSubtasks)
	_, err := task.runSubTask(context.Background(), &SubTaskRequest{
		Spec:   newTestSpec("noop", "configure"),
		Target: target,
		Reply:  make(chan *ChangeRecord, 1),
	})
	if err != ErrMaxNestedSubtasks {
		t.Errorf("expected ErrMaxNestedSubtasks at depth %d, got %v", maxNestedSubtasks, err)
	}
}
