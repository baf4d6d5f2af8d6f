package orchestration

import "context"

// maxNestedSubtasks bounds how deep a chain of CreateSubTask calls may
// recurse before a task is aborted, guarding against a configurator that
// keeps spawning sub-tasks of itself.
const maxNestedSubtasks = 100

// ConfigTask drives one Configurator run to completion: it owns the
// goroutine+channel cooperative loop, tracks the dependencies and attribute
// writes the configurator reports, and produces the ChangeRecord the Runner
// persists.
type ConfigTask struct {
	ChangeID     int64
	Target       *Instance
	Spec         *ConfigurationSpec
	Configurator Configurator
	Priority     Priority
	Status       Status
	Messages     []string

	attrs *AttributeManager
	deps  *DependencyTracker

	registry   *Registry
	changeIDs  *ChangeIDService
	validator  SchemaValidator
	job        *Job
	depth      int
	changeList []ChangeSnapshot
	modified   bool
	dryRun     bool
}

// NewConfigTask builds the task that will run spec against target. job is
// the owning Job, consulted when the configurator issues a JobRequest; it
// may be nil for a task built outside of a Job's own Run loop. depth is 0
// for a job's own top-level tasks; CreateSubTask increments it for children.
func NewConfigTask(target *Instance, spec *ConfigurationSpec, cfgtr Configurator, registry *Registry, changeIDs *ChangeIDService, validator SchemaValidator, job *Job, depth int) *ConfigTask {
	t := &ConfigTask{
		ChangeID:     changeIDs.NextRunTag(),
		Target:       target,
		Spec:         spec,
		Configurator: cfgtr,
		Priority:     spec.Priority,
		Status:       StatusPending,
		registry:     registry,
		changeIDs:    changeIDs,
		validator:    validator,
		job:          job,
		depth:        depth,
		deps:         NewDependencyTracker(),
	}
	t.attrs = NewAttributeManager(func(inst *Instance) RefContext { return t.RefContext() })
	return t
}

// taskChangeset adapts ConfigTask to the Changeset interface without
// colliding with its exported ChangeID/Target fields.
type taskChangeset struct{ t *ConfigTask }

func (c taskChangeset) ChangeID() int64    { return c.t.ChangeID }
func (c taskChangeset) Target() *Instance { return c.t.Target }

// AsChangeset adapts t to the Changeset interface that Dependency.HasChanged
// consumes.
func (t *ConfigTask) AsChangeset() Changeset { return taskChangeset{t} }

// RefContext builds the evaluation scope a dependency expression or an
// input reference resolves against: the task's target instance plus the
// reserved "changeId" variable.
func (t *ConfigTask) RefContext() RefContext {
	return NewRefContext(t.Target, map[string]any{
		"changeId": t.ChangeID,
	})
}

// HasInputsChanged reports whether spec.Inputs differs from the inputs
// recorded the last time any task ran against Target: a task whose inputs
// are byte-identical to last time is a candidate for being skipped even if
// its dependencies haven't changed.
func (t *ConfigTask) HasInputsChanged() bool {
	last := t.Target.LastInputs()
	if last == nil {
		return true
	}
	if len(last) != len(t.Spec.Inputs) {
		return true
	}
	for k, v := range t.Spec.Inputs {
		prev, ok := last[k]
		if !ok {
			return true
		}
		cur := v.Raw()
		if !rawEqual(cur, prev) {
			return true
		}
	}
	return false
}

func rawEqual(a, b any) bool {
	// deep-enough equality for the scalar/list/map shapes Value.Raw produces.
	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !rawEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if !rawEqual(v, bv[k]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// HasDependenciesChanged reports whether any dependency tracked by this task
// has changed, mirroring ConfigTask.hasDependenciesChanged. Only this task's
// own tracker is consulted: a new task starts with an empty tracker, and
// dependencies recorded by an earlier task against the same target are not
// carried over to it.
func (t *ConfigTask) HasDependenciesChanged() bool {
	return t.deps.AnyChanged(t.AsChangeset(), t.validator)
}

// RefreshDependencies re-evaluates every tracked dependency against the
// task's current RefContext, mirroring ConfigTask.refreshDependencies.
func (t *ConfigTask) RefreshDependencies() error {
	return t.deps.RefreshAll(t.RefContext())
}

// Start runs the task's configurator to completion, driving the cooperative
// goroutine+channel protocol, recursively handling any sub-tasks it
// requests, and returning the resulting ChangeRecord. It blocks until the
// configurator sends MsgDone or ctx is cancelled.
func (t *ConfigTask) Start(ctx context.Context) (*ChangeRecord, error) {
	out := make(chan ConfiguratorMessage)
	view := &TaskView{task: t, out: out}

	go t.Configurator.Run(ctx, view, out)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg, ok := <-out:
			if !ok {
				return nil, ErrNoResult
			}
			switch msg.Kind {
			case MsgSubTask:
				rec, err := t.runSubTask(ctx, msg.SubTask)
				if err != nil {
					msg.SubTask.Reply <- &ChangeRecord{
						InstanceKey: msg.SubTask.Target.Key(),
						Status:      StatusError,
					}
					return nil, err
				}
				msg.SubTask.Reply <- rec
			case MsgJobRequest:
				msg.JobRequest.Reply <- t.runJobRequest(msg.JobRequest)
			case MsgDone:
				return t.finish(msg.Result), nil
			}
		}
	}
}

// runSubTask executes a nested ConfigurationSpec requested mid-run via
// TaskView.CreateSubTask, enforcing maxNestedSubtasks.
func (t *ConfigTask) runSubTask(ctx context.Context, req *SubTaskRequest) (*ChangeRecord, error) {
	if t.depth+1 > maxNestedSubtasks {
		return nil, ErrMaxNestedSubtasks
	}
	cfgtr, ok := t.registry.Lookup(req.Spec.ClassName)
	if !ok {
		return nil, &TaskError{InstanceKey: req.Target.Key(), Operation: req.Spec.Operation, Err: ErrNoResult}
	}
	sub := NewConfigTask(req.Target, req.Spec, cfgtr, t.registry, t.changeIDs, t.validator, t.job, t.depth+1)
	sub.dryRun = t.dryRun
	rec, err := sub.Start(ctx)
	if err != nil {
		return nil, err
	}
	t.changeList = append(t.changeList, rec.Attributes)
	return rec, nil
}

// runJobRequest handles a configurator's request to add new instances to
// the graph: a deferred request is queued onto the owning Job, replying
// immediately with no errors since its outcome isn't known until the queue
// drains; an inline request is checked against the live graph right away.
func (t *ConfigTask) runJobRequest(req *JobRequest) *JobRequestResult {
	if t.job == nil {
		return &JobRequestResult{}
	}
	if req.Deferred {
		t.job.JobRequestQueue = append(t.job.JobRequestQueue, req)
		return &JobRequestResult{}
	}
	return t.job.processJobRequest(req)
}

// finish applies a configurator's final result: updates status, commits
// staged attribute writes, and records the outcome against Target, mirroring
// ConfigTask._updateStatus / _updateLastChange / finished.
func (t *ConfigTask) finish(result *ConfiguratorResult) *ChangeRecord {
	if result == nil {
		result = &ConfiguratorResult{Success: false, Status: StatusError}
	}
	// Drawn here, after any sub-tasks this run spawned have already drawn
	// and recorded their own ids, so a parent's change-id always outranks
	// its children's.
	t.ChangeID = t.changeIDs.Next()

	t.Status = result.Status
	if result.Priority != nil {
		t.Priority = *result.Priority
	}
	t.modified = t.modified || result.Modified

	if !t.dryRun {
		for k, v := range result.Outputs {
			t.attrs.Set(t.Target, k, v)
		}
		committed := t.attrs.CommitChanges()
		t.changeList = append(t.changeList, committed)
	}
	merged := MergeSnapshots(t.changeList)
	if !t.dryRun {
		t.Target.LastConfigChange = &t.ChangeID
		if t.modified {
			t.Target.LastStateChange = &t.ChangeID
		}
		inputs := make(map[string]any, len(t.Spec.Inputs))
		for k, v := range t.Spec.Inputs {
			inputs[k] = v.Raw()
		}
		t.Target.SetLastInputs(inputs)
	}

	return &ChangeRecord{
		ChangeID:     t.ChangeID,
		InstanceKey:  t.Target.Key(),
		Operation:    t.Spec.Operation,
		Status:       t.Status,
		Priority:     t.Priority,
		Modified:     t.modified,
		Attributes:   merged,
		Messages:     t.Messages,
		Dependencies: t.deps.All(),
	}
}

// Summary renders a one-line human summary of the task, mirroring
// ConfigTask.summary()'s "op on target (template)" phrasing.
func (t *ConfigTask) Summary() string {
	return t.Spec.Operation + " on " + t.Target.QualifiedName()
}

// TaskView is the narrow handle a Configurator's goroutine is given — it can
// read inputs and environment, emit messages, resolve queries, manage its
// own dependencies, and request sub-tasks, but cannot reach into
// ConfigTask's bookkeeping directly.
type TaskView struct {
	task *ConfigTask
	out  chan<- ConfiguratorMessage
}

// Inputs returns the operation's input values as declared on its spec;
// reference-kind inputs are not resolved.
func (v *TaskView) Inputs() map[string]*Value { return v.task.Spec.Inputs }

// Environ returns the operation's environment overlay merged over base.
func (v *TaskView) Environ(base map[string]string) map[string]string {
	return v.task.Spec.Environment.Merged(base)
}

// GetSetting looks up key among the operation's inputs.
func (v *TaskView) GetSetting(key string) (*Value, bool) {
	val, ok := v.task.Spec.Inputs[key]
	return val, ok
}

// AddMessage appends a free-text progress message to the task, surfaced in
// the job summary.
func (v *TaskView) AddMessage(msg string) {
	v.task.Messages = append(v.task.Messages, msg)
}

// FindResource looks up another instance by name anywhere in the graph.
func (v *TaskView) FindResource(name string) *Instance {
	return v.task.Target.FindResource(name)
}

// Query resolves ref against the task's current scope.
func (v *TaskView) Query(ref Ref) (any, error) {
	return ref.Resolve(v.task.RefContext(), false, false)
}

// AddDependency records dep in this task's dependency tracker; it is
// included in the task's ChangeRecord. Later tasks against the same target
// do not consult it.
func (v *TaskView) AddDependency(dep *Dependency) {
	v.task.deps.Add(dep)
}

// RemoveDependency drops a previously added dependency by name.
func (v *TaskView) RemoveDependency(name string) {
	v.task.deps.Remove(name)
}

// Get reads an attribute off target through the task's AttributeManager, so
// a configurator sees its own uncommitted writes (invariant (a)).
func (v *TaskView) Get(target *Instance, key string) (*Value, error) {
	return v.task.attrs.Get(target, key)
}

// Set stages an attribute write against target through the task's
// AttributeManager.
func (v *TaskView) Set(target *Instance, key string, value *Value) {
	v.task.attrs.Set(target, key, value)
}

// UpdateResources stages a batch of attribute writes against target in one
// call, mirroring TaskView.updateResources.
func (v *TaskView) UpdateResources(target *Instance, updates map[string]*Value) {
	for k, val := range updates {
		v.task.attrs.Set(target, k, val)
	}
}

// DryRun reports whether the driving job is simulating this task rather
// than actually applying it — a well-behaved Configurator checks this
// before performing any side effect.
func (v *TaskView) DryRun() bool { return v.task.dryRun }

// AddResources cooperatively requests that newInsts be accepted into the
// graph, the counterpart to CreateSubTask's "run another operation"
// request. When deferred is false the collision check runs inline and
// AddResources blocks until it completes; when true the check is queued
// onto the owning job and AddResources returns immediately with no errors —
// any collision instead surfaces once the job drains its queue.
func (v *TaskView) AddResources(newInsts []*Instance, deferred bool) []error {
	reply := make(chan *JobRequestResult, 1)
	v.out <- ConfiguratorMessage{Kind: MsgJobRequest, JobRequest: &JobRequest{Instances: newInsts, Deferred: deferred, Reply: reply}}
	return (<-reply).Errors
}

// CreateSubTask cooperatively requests that spec be run against target
// before this configurator continues, blocking until the driving ConfigTask
// supplies the result.
func (v *TaskView) CreateSubTask(spec *ConfigurationSpec, target *Instance) *ChangeRecord {
	reply := make(chan *ChangeRecord, 1)
	v.out <- ConfiguratorMessage{Kind: MsgSubTask, SubTask: &SubTaskRequest{Spec: spec, Target: target, Reply: reply}}
	return <-reply
}

// Done sends the configurator's final result. Implementations call this as
// their last act before returning from Run.
func (v *TaskView) Done(result ConfiguratorResult) {
	v.out <- ConfiguratorMessage{Kind: MsgDone, Result: &result}
}
