// Package topology is the reference implementation of the orchestration
// core's Manifest contract: a YAML file describing a flat set of instances,
// their capabilities, required dependencies, and the operations available
// on each. The core never imports this package directly — callers wire it
// in, or supply their own Manifest.
package topology

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mattsolo1/grove-forge/pkg/orchestration"
)

// instanceDoc is the on-disk shape of one instance entry.
type instanceDoc struct {
	Type         string                  `yaml:"type" validate:"required"`
	Capabilities []string                `yaml:"capabilities,omitempty"`
	Requires     []string                `yaml:"requires,omitempty"`
	Attributes   map[string]any          `yaml:"attributes,omitempty"`
	Status       string                  `yaml:"status,omitempty"`
	Operations   map[string]operationDoc `yaml:"operations,omitempty"`
}

// operationDoc is the on-disk shape of one operation definition.
type operationDoc struct {
	Implementation string         `yaml:"implementation" validate:"required"`
	Inputs         map[string]any `yaml:"inputs,omitempty"`
	InputSchema    map[string]any `yaml:"inputSchema,omitempty"`
	Preconditions  map[string]any `yaml:"preconditions,omitempty"`
	Priority       string         `yaml:"priority,omitempty"`
	Timeout        int            `yaml:"timeout,omitempty"`
}

// manifestDoc is the top-level on-disk shape.
type manifestDoc struct {
	Instances map[string]instanceDoc `yaml:"instances"`
}

// Manifest is the YAML-backed orchestration.Manifest implementation.
type Manifest struct {
	path string
	root *orchestration.Instance
	byKey map[string]*orchestration.Instance
}

// Load reads and parses a manifest file at path, building the live instance
// graph under a synthetic root.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("topology: reading %s: %w", path, err)
	}

	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("topology: parsing %s: %w", path, err)
	}

	validate := validator.New()
	for name, inst := range doc.Instances {
		if err := validate.Struct(inst); err != nil {
			return nil, fmt.Errorf("topology: instance %q: %w", name, err)
		}
		for opName, op := range inst.Operations {
			if err := validate.Struct(op); err != nil {
				return nil, fmt.Errorf("topology: instance %q operation %q: %w", name, opName, err)
			}
		}
	}

	root := orchestration.NewInstance("root", nil, &orchestration.Template{Name: "root", Type: "Root"})
	m := &Manifest{path: path, root: root, byKey: make(map[string]*orchestration.Instance)}

	names := make([]string, 0, len(doc.Instances))
	for name := range doc.Instances {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := doc.Instances[name]
		tmpl := &orchestration.Template{
			Name:         name,
			Type:         entry.Type,
			Capabilities: entry.Capabilities,
			Operations:   make(map[string]*orchestration.ConfigurationSpec, len(entry.Operations)),
		}
		for opName, op := range entry.Operations {
			tmpl.Operations[opName] = toConfigurationSpec(opName, op)
		}
		inst := orchestration.NewInstance(name, root, tmpl)
		inst.LocalStatus = parseStatus(entry.Status)
		for k, v := range entry.Attributes {
			inst.Attributes[k] = toValue(v)
		}
		m.byKey[name] = inst
	}

	for _, name := range names {
		inst := m.byKey[name]
		for _, dep := range doc.Instances[name].Requires {
			depInst, ok := m.byKey[dep]
			if !ok {
				return nil, fmt.Errorf("topology: instance %q requires unknown instance %q", name, dep)
			}
			inst.AddRequiredDependency(depInst)
		}
	}

	return m, nil
}

func toConfigurationSpec(opName string, op operationDoc) *orchestration.ConfigurationSpec {
	inputs := make(map[string]*orchestration.Value, len(op.Inputs))
	for k, v := range op.Inputs {
		inputs[k] = toValue(v)
	}
	return &orchestration.ConfigurationSpec{
		Name:          opName,
		Operation:     opName,
		ClassName:     op.Implementation,
		Inputs:        inputs,
		InputSchema:   op.InputSchema,
		Preconditions: op.Preconditions,
		Priority:      parsePriority(op.Priority),
		Timeout:       op.Timeout,
	}
}

func toValue(v any) *orchestration.Value {
	switch t := v.(type) {
	case []any:
		items := make([]*orchestration.Value, len(t))
		for i, item := range t {
			items[i] = toValue(item)
		}
		return orchestration.NewList(items...)
	case map[string]any:
		m := make(map[string]*orchestration.Value, len(t))
		for k, item := range t {
			m[k] = toValue(item)
		}
		return orchestration.NewMap(m)
	default:
		return orchestration.NewScalar(v)
	}
}

func parsePriority(s string) orchestration.Priority {
	switch strings.ToLower(s) {
	case "critical":
		return orchestration.PriorityCritical
	case "optional":
		return orchestration.PriorityOptional
	case "ignore":
		return orchestration.PriorityIgnore
	default:
		return orchestration.PriorityRequired
	}
}

func parseStatus(s string) orchestration.Status {
	switch strings.ToLower(s) {
	case "ok":
		return orchestration.StatusOK
	case "degraded":
		return orchestration.StatusDegraded
	case "error":
		return orchestration.StatusError
	case "absent":
		return orchestration.StatusAbsent
	case "notpresent":
		return orchestration.StatusNotPresent
	default:
		return orchestration.StatusNotApplied
	}
}

// Root implements orchestration.Manifest.
func (m *Manifest) Root() *orchestration.Instance { return m.root }

// Dirty implements orchestration.Manifest by shelling out to `git status
// --porcelain` for the manifest file itself, from its containing directory:
// only uncommitted changes to that file count, not to the rest of the repo.
// Outside a git repo, or without git, it reports false. No Go git client is used here: the
// porcelain-status contract is small enough that wrapping the git binary
// directly is the pragmatic choice.
func (m *Manifest) Dirty() bool {
	dir := filepath.Dir(m.path)
	cmd := exec.Command("git", "-C", dir, "status", "--porcelain", "--", filepath.Base(m.path))
	out, err := cmd.Output()
	if err != nil {
		// Not a git repo, or git unavailable: nothing to gate on.
		return false
	}
	return len(strings.TrimSpace(string(out))) > 0
}

// Save implements orchestration.Manifest by re-rendering every instance's
// current attributes back into the on-disk document and rewriting it.
func (m *Manifest) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("topology: reading %s for save: %w", m.path, err)
	}
	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("topology: re-parsing %s for save: %w", m.path, err)
	}

	for name, inst := range m.byKey {
		entry := doc.Instances[name]
		entry.Attributes = make(map[string]any, len(inst.Attributes))
		for k, v := range inst.Attributes {
			entry.Attributes[k] = v.Raw()
		}
		entry.Status = inst.LocalStatus.String()
		doc.Instances[name] = entry
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("topology: marshaling %s: %w", m.path, err)
	}
	if err := os.WriteFile(m.path, out, 0644); err != nil {
		return fmt.Errorf("topology: writing %s: %w", m.path, err)
	}
	return nil
}
