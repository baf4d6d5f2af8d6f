package orchestration

import "context"

// ConfiguratorResult is what a Configurator reports when it finishes.
type ConfiguratorResult struct {
	Success  bool
	Modified bool
	Status   Status
	// Priority, when non-nil, overrides the ConfigurationSpec's declared
	// priority for this run only (a configurator deciding mid-run that a
	// step turned out optional).
	Priority *Priority
	Outputs  map[string]*Value
	Err      error
}

// MessageKind tags what a Configurator is handing back to its driving
// ConfigTask across the cooperative channel.
type MessageKind int

const (
	// MsgSubTask is a request to run a nested ConfigurationSpec against a
	// target instance before the configurator can proceed. The driver
	// resumes the configurator by sending the sub-task's outcome on
	// SubTask.Reply.
	MsgSubTask MessageKind = iota
	// MsgJobRequest is a request to add new instances to the graph, the
	// counterpart to MsgSubTask's "run another operation" request. The
	// driver resumes the configurator by sending the outcome on
	// JobRequest.Reply.
	MsgJobRequest
	// MsgDone is the final message a configurator's goroutine sends before
	// its channel closes; Result holds the outcome.
	MsgDone
)

// SubTaskRequest is a configurator's cooperative request to run another
// operation before continuing. The driving ConfigTask executes Spec against
// Target, respecting the maxNestedSubtasks depth limit, and writes the
// resulting ChangeRecord to Reply, which the goroutine blocks reading from.
type SubTaskRequest struct {
	Spec   *ConfigurationSpec
	Target *Instance
	Reply  chan *ChangeRecord
}

// JobRequest is a configurator's cooperative request to add new instances to
// the graph. Deferred controls how the driving ConfigTask handles it:
// false runs the collision check inline, before the configurator's
// goroutine resumes; true queues it onto the owning Job's JobRequestQueue,
// to be drained once every task in the run has finished. Either way the
// outcome is written to Reply, which the goroutine blocks reading from.
type JobRequest struct {
	Instances []*Instance
	Deferred  bool
	Reply     chan *JobRequestResult
}

// JobRequestResult is what comes back from processing a JobRequest: an
// instance whose key collides with one already in the graph is reported via
// Errors instead of silently overwriting it. A deferred request always
// replies with an empty result immediately — its real outcome, if any,
// surfaces only once the job drains its queue.
type JobRequestResult struct {
	Errors []error
}

// ConfiguratorMessage is one step of the cooperative protocol a
// Configurator's goroutine emits on its output channel.
type ConfiguratorMessage struct {
	Kind       MessageKind
	SubTask    *SubTaskRequest
	JobRequest *JobRequest
	Result     *ConfiguratorResult
}

// Configurator is the single point of extension the core never implements
// itself: something that knows how to carry out one operation. Run is
// invoked on its own goroutine by the driving ConfigTask;
// it must send exactly one MsgDone message before returning and must not
// close out (the driver stops reading out once it observes MsgDone).
// Run must respect ctx cancellation, returning promptly with a failed
// ConfiguratorResult if ctx.Err() is non-nil.
type Configurator interface {
	Run(ctx context.Context, task *TaskView, out chan<- ConfiguratorMessage)

	// ShouldRun reports the priority at which spec should execute against
	// task's target before any work has been done, defaulting to
	// PriorityRequired — used by Job.shouldRunTask's priority gate.
	ShouldRun(task *TaskView) Priority

	// CanRun performs cheap precondition checks before a goroutine is even
	// spawned (e.g. "is the required binary on PATH"); returning false with
	// a reason aborts the task without ever calling Run.
	CanRun(task *TaskView) (bool, string)

	// CanDryRun reports whether this configurator can simulate task's
	// operation without side effects. Job.cantRunTask uses this to gate a
	// dry run: a configurator that can't self-report what it would do is
	// skipped with reason "dry run not supported" rather than actually run.
	CanDryRun(task *TaskView) bool
}

// Registry maps a ConfigurationSpec's ClassName to the Configurator that
// implements it.
type Registry struct {
	byName map[string]Configurator
}

// NewRegistry returns an empty Configurator registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Configurator)}
}

// Register associates className with impl, overwriting any prior
// registration for that name.
func (r *Registry) Register(className string, impl Configurator) {
	r.byName[className] = impl
}

// Lookup resolves className to its Configurator, returning false if no
// Configurator was ever registered for it.
func (r *Registry) Lookup(className string) (Configurator, bool) {
	impl, ok := r.byName[className]
	return impl, ok
}
