package orchestration

import (
	"context"
	"testing"
)

type fakeManifest struct {
	root   *Instance
	dirty  bool
	saved  int
}

func (m *fakeManifest) Root() *Instance { return m.root }
func (m *fakeManifest) Dirty() bool     { return m.dirty }
func (m *fakeManifest) Save(ctx context.Context) error {
	m.saved++
	return nil
}

func TestRunnerRefusesDirtyManifest(t *testing.T) {
	manifest := &fakeManifest{root: NewInstance("root", nil, nil), dirty: true}
	runner := NewRunner(manifest, NewRegistry(), nil, nil, 0)

	_, err := runner.Run(context.Background(), &JobOptions{Workflow: "deploy"})
	if err == nil {
		t.Fatal("expected an error running against a dirty manifest")
	}
}

func TestRunnerAllowsDirtyManifestWhenOverridden(t *testing.T) {
	manifest := &fakeManifest{root: instWithOps("web", "create"), dirty: true}
	runner := NewRunner(manifest, NewRegistry(), nil, nil, 0)

	_, err := runner.Run(context.Background(), &JobOptions{Workflow: "deploy", Dirty: true, Add: true})
	if err != nil {
		t.Fatalf("expected Dirty override to allow the run, got %v", err)
	}
}

func TestRunnerCommitsOnSuccess(t *testing.T) {
	manifest := &fakeManifest{root: instWithOps("web", "create")}
	runner := NewRunner(manifest, NewRegistry(), nil, nil, 0)

	_, err := runner.Run(context.Background(), &JobOptions{Workflow: "deploy", Add: true, Commit: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if manifest.saved != 1 {
		t.Errorf("expected manifest to be saved once, got %d", manifest.saved)
	}
}

func TestRunnerRejectsConcurrentJobs(t *testing.T) {
	manifest := &fakeManifest{root: NewInstance("root", nil, nil)}
	runner := NewRunner(manifest, NewRegistry(), nil, nil, 0)
	runner.active = &Job{}

	_, err := runner.Run(context.Background(), &JobOptions{Workflow: "deploy"})
	if err == nil {
		t.Fatal("expected an error starting a second job while one is active")
	}
}
