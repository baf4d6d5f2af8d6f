// Package state persists the CLI's view of the last job run against a
// manifest between invocations: which job (if any) is still active, the
// highest change-id issued so far, and the outcome of the last completed
// workflow. It lets a Runner resume numbering change-ids correctly and lets
// "forge status" report on a job after the process that ran it has exited.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// State is the durable record of the orchestrator's last known session
// against one manifest.
type State struct {
	ActiveJob     string `yaml:"active_job,omitempty"`
	LastChangeID  int64  `yaml:"last_change_id,omitempty"`
	LastWorkflow  string `yaml:"last_workflow,omitempty"`
	LastStatus    string `yaml:"last_status,omitempty"`
	LastJobFailed bool   `yaml:"last_job_failed,omitempty"`
}

// filePath returns the path to the state file, walking up from the current
// directory to the manifest repo's root (marked by .git, mirroring how a
// topology manifest is expected to live inside a version-controlled repo)
// before falling back to the current directory.
func filePath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current directory: %w", err)
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return filepath.Join(dir, ".forge", "state.yml"), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return filepath.Join(cwd, ".forge", "state.yml"), nil
		}
		dir = parent
	}
}

// Load reads the state file, returning an empty State if none exists yet.
func Load() (*State, error) {
	path, err := filePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return &s, nil
}

// Save writes s to the state file, creating its parent directory if needed.
func Save(s *State) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// BeginJob records jobID as active before a Runner starts it.
func BeginJob(jobID string) error {
	s, err := Load()
	if err != nil {
		return err
	}
	s.ActiveJob = jobID
	return Save(s)
}

// FinishJob clears the active job and records the outcome of a completed
// workflow, along with the highest change-id it issued so the next Runner
// invocation seeds its ChangeIDService correctly.
func FinishJob(workflow, status string, lastChangeID int64, failed bool) error {
	s, err := Load()
	if err != nil {
		return err
	}
	s.ActiveJob = ""
	s.LastWorkflow = workflow
	s.LastStatus = status
	s.LastJobFailed = failed
	if lastChangeID > s.LastChangeID {
		s.LastChangeID = lastChangeID
	}
	return Save(s)
}
