package orchestration

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Runner owns the single active Job invariant — exactly one job may be
// running at a time — and the ChangeIDService every job it creates draws
// from.
type Runner struct {
	Manifest  Manifest
	Registry  *Registry
	Validator SchemaValidator
	Logger    Logger

	// LockPath, when set, is the manifest path CreateLockFile/RemoveLockFile
	// guard, extending the in-process single-active-job invariant across
	// processes sharing the same manifest.
	LockPath string

	mu        sync.Mutex
	changeIDs *ChangeIDService
	active    *Job
}

// NewRunner builds a Runner seeded with startChangeID as the highest
// change-id already issued, so a Runner resuming against a persisted
// manifest never reissues an id.
func NewRunner(manifest Manifest, registry *Registry, validator SchemaValidator, logger Logger, startChangeID int64) *Runner {
	return &Runner{
		Manifest:  manifest,
		Registry:  registry,
		Validator: validator,
		Logger:    logger,
		changeIDs: NewChangeIDService(startChangeID),
	}
}

// createJob builds a new Job against the manifest's current root.
func (r *Runner) createJob(opts *JobOptions) *Job {
	return NewJob(uuid.NewString(), r.Manifest.Root(), opts, r.Registry, r.changeIDs, r.Validator, r.Logger)
}

// Run executes one job to completion. It refuses to start against a dirty
// manifest unless opts.Dirty is set, enforces that only one job runs at a
// time, recovers any panic from within job execution as an UnexpectedAbort
// rather than crashing the process, and persists the manifest afterward
// when opts.Commit is set.
func (r *Runner) Run(ctx context.Context, opts *JobOptions) (summary *JobSummary, err error) {
	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("orchestration: a job is already running")
	}

	if !opts.Dirty && r.Manifest.Dirty() {
		r.mu.Unlock()
		return nil, fmt.Errorf("orchestration: manifest has uncommitted changes, refusing to run (pass Dirty to override)")
	}

	if r.LockPath != "" {
		if err := r.acquireLock(); err != nil {
			r.mu.Unlock()
			return nil, err
		}
	}

	job := r.createJob(opts)
	r.active = job
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.active = nil
		r.mu.Unlock()
		if r.LockPath != "" {
			_ = RemoveLockFile(r.LockPath)
		}

		if rec := recover(); rec != nil {
			err = &UnexpectedAbort{Recovered: rec}
			if summary == nil {
				summary = job.summary(opts.Workflow)
			}
		}
	}()

	summary, err = job.Run(ctx)
	if err != nil {
		return summary, err
	}

	if opts.Commit {
		if saveErr := r.Manifest.Save(ctx); saveErr != nil {
			return summary, fmt.Errorf("orchestration: saving manifest: %w", saveErr)
		}
	}
	return summary, nil
}

// acquireLock claims r.LockPath, clearing a stale lock left by a crashed
// process (one whose pid is no longer alive) before trying once more.
func (r *Runner) acquireLock() error {
	if pid, err := ReadLockFile(r.LockPath); err == nil {
		if processAlive(pid) {
			return fmt.Errorf("orchestration: manifest locked by running process %d", pid)
		}
		_ = RemoveLockFile(r.LockPath)
	}
	return CreateLockFile(r.LockPath, os.Getpid())
}

// ActiveJob returns the currently running job, or nil if none is active.
func (r *Runner) ActiveJob() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
