package orchestration

import (
	"context"
	"fmt"
)

// PlanItem pairs a target instance with the operation spec to run against
// it. A Plan is an ordered sequence of these; the Job layer decides at run
// time whether each candidate actually executes. Err is set instead of Spec
// when the planner found an instance it could not plan at all — the Job
// layer surfaces this as a failure rather than silently dropping it.
type PlanItem struct {
	Target *Instance
	Spec   *ConfigurationSpec
	Err    error
}

// Plan is the ordered output of a Planner: every operation that could run,
// in the order it must be attempted, topological dependency order
// outermost.
type Plan struct {
	Items []PlanItem
}

// Planner turns a live instance graph into a Plan for one workflow.
// Concrete planners never filter by change detection themselves — that is
// the Job layer's job; a Planner only decides which operations are even
// candidates, and in what order.
type Planner interface {
	Plan(ctx context.Context, root *Instance, opts *JobOptions) (*Plan, error)
}

// deployOperationOrder is the sequence of standard operations a deploy
// workflow attempts against an instance: create, then configure, then
// start.
var deployOperationOrder = []string{"create", "configure", "start"}

// undeployOperationOrder is the reverse teardown phase ordering: stop, then
// delete.
var undeployOperationOrder = []string{"stop", "delete"}

// topoOrder returns every instance reachable from root, ordered so that an
// instance always appears after everything it requires, via a depth-first
// post-order walk over RequiredDependencies edges.
func topoOrder(root *Instance) []*Instance {
	var order []*Instance
	visited := make(map[*Instance]bool)
	var visit func(*Instance)
	visit = func(inst *Instance) {
		if visited[inst] {
			return
		}
		visited[inst] = true
		for _, dep := range inst.RequiredDependencies() {
			visit(dep)
		}
		order = append(order, inst)
		for _, child := range inst.Children {
			visit(child)
		}
	}
	visit(root)
	return order
}

// selected reports whether inst should be considered under opts' instance
// filter: JobOptions.Instance/Instances narrows a job to specific targets.
// An empty filter selects everything.
func selected(inst *Instance, opts *JobOptions) bool {
	if opts == nil || (opts.Instance == "" && len(opts.Instances) == 0) {
		return true
	}
	if opts.Instance != "" && inst.Key() == opts.Instance {
		return true
	}
	for _, k := range opts.Instances {
		if inst.Key() == k {
			return true
		}
	}
	return false
}

// resolveOperation looks up name on inst's template, falling back to a
// shared installer operation declared on the template. An instance with no
// template at all can never resolve any operation — that is reported as an
// error rather than folded into the ordinary "this instance doesn't define
// that operation" case.
func resolveOperation(inst *Instance, name string) (*ConfigurationSpec, bool, error) {
	if inst.Template == nil {
		return nil, false, fmt.Errorf("instance %s has no template, cannot resolve any operation", inst.Key())
	}
	if spec, ok := inst.Template.Operations[name]; ok {
		return spec, true, nil
	}
	if spec, ok := inst.Template.Shared[name]; ok {
		return spec, true, nil
	}
	return nil, false, nil
}

// DeployPlanner builds the candidate plan for the "deploy" workflow: every
// instance in dependency order, each of its create/configure/start
// operations in phase order.
type DeployPlanner struct{}

func (DeployPlanner) Plan(ctx context.Context, root *Instance, opts *JobOptions) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plan := &Plan{}
	for _, inst := range topoOrder(root) {
		if !selected(inst, opts) {
			continue
		}
		for _, op := range deployOperationOrder {
			spec, ok, err := resolveOperation(inst, op)
			if err != nil {
				plan.Items = append(plan.Items, PlanItem{Target: inst, Err: err})
				break
			}
			if !ok {
				continue
			}
			plan.Items = append(plan.Items, PlanItem{Target: inst, Spec: spec})
		}
	}
	return plan, nil
}

// UndeployPlanner builds the candidate plan for the "undeploy" workflow:
// every instance in reverse dependency order, its stop/delete operations in
// phase order.
type UndeployPlanner struct{}

func (UndeployPlanner) Plan(ctx context.Context, root *Instance, opts *JobOptions) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	order := topoOrder(root)
	plan := &Plan{}
	for i := len(order) - 1; i >= 0; i-- {
		inst := order[i]
		if !selected(inst, opts) {
			continue
		}
		for _, op := range undeployOperationOrder {
			spec, ok, err := resolveOperation(inst, op)
			if err != nil {
				plan.Items = append(plan.Items, PlanItem{Target: inst, Err: err})
				break
			}
			if !ok {
				continue
			}
			plan.Items = append(plan.Items, PlanItem{Target: inst, Spec: spec})
		}
	}
	return plan, nil
}

// DiscoverPlanner builds the candidate plan for the readonly
// discover/verify workflows: every selected instance's "discover" or
// "check" operation, order irrelevant since these never write dependent
// state.
type DiscoverPlanner struct {
	// Operation is the operation name to plan: "discover" or "check". Check
	// is used by the verify workflow.
	Operation string
}

func (p DiscoverPlanner) Plan(ctx context.Context, root *Instance, opts *JobOptions) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	op := p.Operation
	if op == "" {
		op = "discover"
	}
	plan := &Plan{}
	for _, inst := range topoOrder(root) {
		if !selected(inst, opts) {
			continue
		}
		spec, ok, err := resolveOperation(inst, op)
		if err != nil {
			plan.Items = append(plan.Items, PlanItem{Target: inst, Err: err})
			continue
		}
		if !ok {
			continue
		}
		plan.Items = append(plan.Items, PlanItem{Target: inst, Spec: spec})
	}
	return plan, nil
}

// PlannerFor resolves a workflow name to its Planner.
func PlannerFor(workflow string) (Planner, error) {
	switch workflow {
	case "deploy":
		return DeployPlanner{}, nil
	case "undeploy":
		return UndeployPlanner{}, nil
	case "discover":
		return DiscoverPlanner{Operation: "discover"}, nil
	case "check":
		return DiscoverPlanner{Operation: "check"}, nil
	default:
		return nil, fmt.Errorf("orchestration: unknown workflow %q", workflow)
	}
}
