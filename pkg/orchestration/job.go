package orchestration

import "context"

// JobOptions controls which candidate operations a Job actually executes
// and how.
type JobOptions struct {
	// Add runs operations against instances that have never been applied.
	Add bool
	// Update re-runs operations against already-applied instances whose
	// inputs or dependencies have changed.
	Update bool
	// Repair re-runs operations against instances currently in
	// StatusError.
	Repair bool
	// Upgrade re-runs every operation regardless of change detection, for
	// template/version upgrades.
	Upgrade bool
	// All forces every candidate operation to run, bypassing change
	// detection entirely.
	All bool
	// Verify runs the read-only "check" workflow instead of mutating.
	Verify bool
	// Readonly refuses to run any operation capable of writing state.
	Readonly bool
	// Dryrun still starts each qualifying task, with TaskView.DryRun
	// reporting true so the configurator can skip its side effects; the job
	// neither sets the target's status from the outcome nor records it in
	// the job's changes.
	Dryrun bool
	// PlanOnly is an alias for Dryrun kept for CLI-flag parity.
	PlanOnly bool
	// RequiredOnly skips any candidate whose spec priority is below
	// PriorityRequired.
	RequiredOnly bool
	// Instance restricts the job to a single target instance key.
	Instance string
	// Instances restricts the job to a set of target instance keys.
	Instances []string
	// Workflow names the Planner to use: "deploy", "undeploy", "discover",
	// or "check".
	Workflow string
	// Commit controls whether the Runner saves the manifest (Manifest.Save)
	// after the job completes without error.
	Commit bool
	// Dirty allows the job to proceed against an uncommitted/dirty
	// manifest; when false the Runner refuses to start one.
	Dirty bool
}

// effectivePriority combines a spec's declared priority with whatever the
// configurator itself reports via ShouldRun, before applying job-level
// gating.
func effectivePriority(spec *ConfigurationSpec, reported Priority) Priority {
	if reported < spec.Priority {
		return reported
	}
	return spec.Priority
}

// Job drives one workflow run to completion: it asks a Planner for
// candidate operations, filters and gates each one against JobOptions and
// live change detection, runs the ones that qualify, and accumulates the
// resulting change records into a JobSummary.
type Job struct {
	ID        string
	ChangeID  int64
	Root      *Instance
	Options   *JobOptions
	Registry  *Registry
	ChangeIDs *ChangeIDService
	Validator SchemaValidator
	Logger    Logger
	Changes   *ResourceChanges

	// JobRequestQueue holds deferred JobRequests issued by tasks during this
	// run, drained once the plan has finished executing.
	JobRequestQueue []*JobRequest

	ran     int
	ok      int
	failed  int
	skipped int
}

// NewJob builds a job ready to run opts.Workflow against root. It draws its
// own change-id immediately, before any task runs, so that every task's
// eventual change-id — always assigned after the job's — outranks it, per
// the ordering invariant ConfigTask.finish enforces for tasks and their
// sub-tasks.
func NewJob(id string, root *Instance, opts *JobOptions, registry *Registry, changeIDs *ChangeIDService, validator SchemaValidator, logger Logger) *Job {
	return &Job{
		ID:        id,
		ChangeID:  changeIDs.Next(),
		Root:      root,
		Options:   opts,
		Registry:  registry,
		ChangeIDs: changeIDs,
		Validator: validator,
		Logger:    logger,
		Changes:   NewResourceChanges(),
	}
}

// Run plans the job's workflow and executes every candidate task that
// qualifies, in plan order, stopping early if shouldAbort fires on a
// failure. It returns a JobSummary regardless of whether the job aborted
// early — a partially completed job is still a reportable outcome.
func (j *Job) Run(ctx context.Context) (*JobSummary, error) {
	workflow := j.Options.Workflow
	if j.Options.Verify && workflow == "" {
		workflow = "check"
	}
	if workflow == "" {
		workflow = "deploy"
	}
	planner, err := PlannerFor(workflow)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Plan(ctx, j.Root, j.Options)
	if err != nil {
		return nil, err
	}

	for _, item := range j.filterConfig(plan.Items) {
		if err := ctx.Err(); err != nil {
			return j.summary(workflow), err
		}

		if item.Err != nil {
			j.log("skipping %s: %v", item.Target.Key(), item.Err)
			j.skipped++
			j.failed++
			continue
		}

		task := NewConfigTask(item.Target, item.Spec, nil, j.Registry, j.ChangeIDs, j.Validator, j, 0)
		cfgtr, ok := j.Registry.Lookup(item.Spec.ClassName)
		if !ok {
			j.skip(task, "no configurator registered for "+item.Spec.ClassName)
			continue
		}
		task.Configurator = cfgtr

		if ok, reason := j.cantRunTask(task); !ok {
			j.skip(task, reason)
			continue
		}
		if !j.shouldRunTask(task) {
			j.skip(task, "no change detected")
			continue
		}
		if j.Options.Readonly && writesState(item.Spec) {
			j.skip(task, "read only: operation may write state")
			continue
		}

		if j.Options.Dryrun || j.Options.PlanOnly {
			task.dryRun = true
		}

		rec, runErr := task.Start(ctx)
		if runErr != nil {
			if !task.dryRun {
				task.ChangeID = j.ChangeIDs.Next()
				task.Target.LocalStatus = StatusError
			}
			rec = &ChangeRecord{
				ChangeID:    task.ChangeID,
				InstanceKey: task.Target.Key(),
				Operation:   task.Spec.Operation,
				Status:      StatusError,
				Priority:    task.Priority,
			}
			j.log("task %s failed: %v", task.Summary(), runErr)
		} else if !task.dryRun {
			task.Target.LocalStatus = rec.Status
		} else {
			j.log("would run %s", task.Summary())
		}

		j.ran++
		if task.dryRun {
			continue
		}

		j.Changes.Record(rec)
		if rec.Status == StatusError {
			j.failed++
		} else {
			j.ok++
		}

		if j.shouldAbort(rec) {
			break
		}
	}

	j.drainJobRequests()

	return j.summary(workflow), nil
}

// drainJobRequests processes every JobRequest queued by a deferred
// AddResources call during this run's tasks, logging any resource that
// collided with one already in the graph.
func (j *Job) drainJobRequests() {
	for len(j.JobRequestQueue) > 0 {
		req := j.JobRequestQueue[0]
		j.JobRequestQueue = j.JobRequestQueue[1:]
		for _, err := range j.processJobRequest(req).Errors {
			j.log("deferred job request failed: %v", err)
		}
	}
}

// processJobRequest checks req's instances against the graph's current
// contents, reporting a collision for anything whose key is already taken
// by a different instance rather than silently accepting it.
func (j *Job) processJobRequest(req *JobRequest) *JobRequestResult {
	existing := make(map[string]*Instance)
	j.Root.Walk(func(inst *Instance) { existing[inst.Key()] = inst })

	result := &JobRequestResult{}
	for _, inst := range req.Instances {
		if prior, ok := existing[inst.Key()]; ok && prior != inst {
			result.Errors = append(result.Errors, &AddingResourceError{InstanceKey: inst.Key(), Err: ErrInstanceAlreadyExists})
			continue
		}
		existing[inst.Key()] = inst
	}
	return result
}

// writesState reports whether a spec's operation is one of the mutating
// lifecycle phases, used by the Readonly gate.
func writesState(spec *ConfigurationSpec) bool {
	switch spec.Operation {
	case "discover", "check":
		return false
	default:
		return true
	}
}

// filterConfig narrows the planner's full candidate list down to items
// worth even constructing a task for: create is dropped for instances
// already applied (LastConfigChange set) unless opts.All forces it, and anything below
// PriorityRequired is dropped when opts.RequiredOnly is set. Finer-grained
// per-task gating happens afterward in shouldRunTask/cantRunTask.
func (j *Job) filterConfig(items []PlanItem) []PlanItem {
	out := make([]PlanItem, 0, len(items))
	for _, item := range items {
		if item.Err != nil {
			out = append(out, item)
			continue
		}
		if j.Options.RequiredOnly && item.Spec.Priority < PriorityRequired {
			continue
		}
		if item.Spec.Operation == "create" && item.Target.LastConfigChange != nil && !j.Options.All {
			continue
		}
		out = append(out, item)
	}
	return out
}

// cantRunTask reports whether task must not even be attempted: an invalid
// precondition, inputs that fail the operation's input schema, a
// configurator whose CanRun refuses, a dry run the configurator can't
// simulate, or a required dependency that isn't operational.
func (j *Job) cantRunTask(task *ConfigTask) (bool, string) {
	if violations := task.Spec.FindInvalidPreconditions(task.Target, j.Validator); len(violations) > 0 {
		return false, "preconditions not met"
	}
	if task.Configurator != nil {
		if ok, reason := task.Configurator.CanRun(&TaskView{task: task}); !ok {
			return false, reason
		}
	}
	if violations := task.Spec.FindInvalidInputs(j.Validator); len(violations) > 0 {
		return false, "invalid inputs"
	}
	if (j.Options.Dryrun || j.Options.PlanOnly) && task.Configurator != nil {
		view := &TaskView{task: task}
		if !task.Configurator.CanDryRun(view) {
			return false, "dry run not supported"
		}
	}
	for _, dep := range task.Target.RequiredDependencies() {
		if !dep.Status().Operational() {
			return false, "required dependency " + dep.Key() + " is not operational"
		}
	}
	return true, ""
}

// shouldRunTask decides whether a task that is allowed to run should
// actually run, given JobOptions and live change detection.
func (j *Job) shouldRunTask(task *ConfigTask) bool {
	var reported Priority = PriorityRequired
	if task.Configurator != nil {
		view := &TaskView{task: task}
		reported = ToPriority(task.Configurator.ShouldRun(view))
	}
	if effectivePriority(task.Spec, reported) == PriorityIgnore {
		return false
	}
	if j.Options.All {
		return true
	}

	isNew := task.Target.LastConfigChange == nil
	if isNew {
		return j.Options.Add
	}
	if task.Target.LocalStatus == StatusError {
		return j.Options.Repair
	}
	if j.Options.Upgrade {
		return true
	}
	if j.Options.Update {
		return task.HasInputsChanged() || task.HasDependenciesChanged()
	}
	return false
}

// shouldAbort reports whether a just-finished task's outcome should stop
// the whole job: a required or critical operation failing aborts the run.
func (j *Job) shouldAbort(rec *ChangeRecord) bool {
	return rec.Status == StatusError && rec.Priority >= PriorityRequired
}

func (j *Job) skip(task *ConfigTask, reason string) {
	j.skipped++
	j.log("skipping %s: %s", task.Summary(), reason)
}

func (j *Job) log(format string, args ...any) {
	if j.Logger != nil {
		j.Logger.Infof(format, args...)
	}
}

// summary builds the job's JobSummary from its running tallies and the
// change ledger accumulated so far, mirroring Job.jsonSummary/stats/summary.
func (j *Job) summary(workflow string) *JobSummary {
	return &JobSummary{
		JobID:    j.ID,
		Workflow: workflow,
		Ran:      j.ran,
		OK:       j.ok,
		Failed:   j.failed,
		Skipped:  j.skipped,
		Changes:  j.Changes.All(),
	}
}
