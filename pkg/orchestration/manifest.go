package orchestration

import "context"

// Manifest is the black-box topology source the core never parses itself:
// something that can hand back the live instance graph and persist any
// changes made to it. The reference implementation, pkg/topology, loads and
// saves flat YAML manifests.
type Manifest interface {
	// Root returns the root instance of the live graph.
	Root() *Instance
	// Dirty reports whether the manifest's backing store has uncommitted
	// changes a job should refuse to run against unless JobOptions.Dirty
	// overrides it.
	Dirty() bool
	// Save persists the current state of the graph (including any
	// attribute writes a job committed) back to the manifest's store.
	Save(ctx context.Context) error
}
