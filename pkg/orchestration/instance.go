package orchestration

import "strings"

// Template is the static description of an instance's type: its declared
// capabilities and the standard operations (create, configure, start, ...)
// available on it. The manifest loader is the sole producer of Templates;
// the core only reads them.
type Template struct {
	Name         string
	Type         string
	Capabilities []string
	Operations   map[string]*ConfigurationSpec
	// Shared is an installer-style operations map keyed by operation name,
	// consulted by the planner's resolveOperation when the instance's own
	// template has no operation of that name.
	Shared map[string]*ConfigurationSpec
}

// IsCompatibleType reports whether this template's type satisfies name,
// either directly or via a declared capability.
func (t *Template) IsCompatibleType(name string) bool {
	if t == nil {
		return false
	}
	if t.Type == name {
		return true
	}
	for _, c := range t.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// Instance is a node in the live topology graph.
type Instance struct {
	Name     string
	Parent   *Instance
	Children []*Instance
	Template *Template

	Attributes map[string]*Value

	LocalStatus Status

	// LastConfigChange is the change-id of the last operation that targeted
	// this instance, regardless of whether it modified anything. Non-nil
	// once any task has ever finished against this instance.
	LastConfigChange *int64
	// LastStateChange is the change-id of the last operation that actually
	// modified this instance's attributes or reported modified=true.
	LastStateChange *int64

	// lastInputs is the serialized input snapshot recorded the last time a
	// task finished against this instance, used by
	// ConfigTask.HasInputsChanged.
	lastInputs map[string]any

	// requiredDeps are the instances this instance declares a required
	// operational dependency on (via a capability relationship) — consulted
	// by the planner's topological sort and by cantRunTask's dependency
	// check.
	requiredDeps []*Instance
}

// NewInstance creates a root or child instance. If parent is non-nil the
// new instance is appended to parent's Children and its Key is derived
// from the parent's.
func NewInstance(name string, parent *Instance, tmpl *Template) *Instance {
	inst := &Instance{
		Name:       name,
		Parent:     parent,
		Template:   tmpl,
		Attributes: make(map[string]*Value),
	}
	if parent != nil {
		parent.Children = append(parent.Children, inst)
	}
	return inst
}

// Key returns the instance's stable path, e.g. "root/my_server".
func (i *Instance) Key() string {
	if i == nil {
		return ""
	}
	if i.Parent == nil {
		return i.Name
	}
	return i.Parent.Key() + "/" + i.Name
}

// Root walks up to the topmost ancestor.
func (i *Instance) Root() *Instance {
	cur := i
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// AddRequiredDependency records a required operational dependency edge used
// by the planner's topological ordering and by cantRunTask's
// missing-dependency check.
func (i *Instance) AddRequiredDependency(dep *Instance) {
	i.requiredDeps = append(i.requiredDeps, dep)
}

// RequiredDependencies returns the instances this instance requires to be
// operational before its own operations can run.
func (i *Instance) RequiredDependencies() []*Instance {
	return i.requiredDeps
}

// Status derives the instance's overall status from its local status and
// the status of its required dependencies: a deterministic function of
// LocalStatus and required-dependency statuses.
func (i *Instance) Status() Status {
	deps := make([]Status, 0, len(i.requiredDeps))
	for _, d := range i.requiredDeps {
		deps = append(deps, d.Status())
	}
	return CombineStatus(i.LocalStatus, deps...)
}

// LastInputs returns the serialized inputs captured the last time a task
// finished against this instance, or nil if none has yet.
func (i *Instance) LastInputs() map[string]any {
	return i.lastInputs
}

// SetLastInputs records the serialized inputs of the task that just
// finished against this instance, consulted by the next task's
// HasInputsChanged.
func (i *Instance) SetLastInputs(inputs map[string]any) {
	i.lastInputs = inputs
}

// FindResource walks the instance's root graph looking for a descendant by
// name.
func (i *Instance) FindResource(name string) *Instance {
	return findResource(i.Root(), name)
}

func findResource(node *Instance, name string) *Instance {
	if node.Name == name {
		return node
	}
	for _, c := range node.Children {
		if found := findResource(c, name); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits every instance in the subtree rooted at i, parent before
// children, in child-declaration order.
func (i *Instance) Walk(fn func(*Instance)) {
	fn(i)
	for _, c := range i.Children {
		c.Walk(fn)
	}
}

// QualifiedName renders "name (template name)" for logging/messages when the
// two differ, and just the name otherwise (or when there is no template),
// mirroring ConfigTask.summary()'s "rname (template name)" formatting.
func (i *Instance) QualifiedName() string {
	if i.Template == nil || i.Template.Name == i.Name {
		return i.Name
	}
	return i.Name + " (" + i.Template.Name + ")"
}

// SplitKey splits a "::a::b::c" style path expression into its segments,
// used by pkg/refpath and by manifest loaders resolving dotted instance
// paths.
func SplitKey(expr string) []string {
	trimmed := strings.Trim(expr, ":")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "::")
}
