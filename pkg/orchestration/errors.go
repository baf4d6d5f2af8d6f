package orchestration

import (
	"errors"
	"fmt"
)

// ErrNoResult is returned when a Configurator's goroutine closes its output
// channel without ever sending MsgDone — a Configurator implementation bug.
var ErrNoResult = errors.New("orchestration: configurator closed without a result")

// ErrMaxNestedSubtasks is returned when a chain of CreateSubTask calls
// exceeds maxNestedSubtasks, guarding against runaway recursive
// configurators.
var ErrMaxNestedSubtasks = errors.New("orchestration: exceeded maximum nested sub-task depth")

// ErrInstanceAlreadyExists is the Err a JobRequest reports for any instance
// whose key collides with one already present in the graph.
var ErrInstanceAlreadyExists = errors.New("orchestration: instance already exists in the graph")

// TaskError wraps a failure that occurred while running a specific task,
// carrying enough context to report which instance and operation failed
// without the caller needing to unwind a generic error chain.
type TaskError struct {
	InstanceKey string
	Operation   string
	Err         error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s on %s: %v", e.Operation, e.InstanceKey, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// AddingResourceError wraps a failure that occurred while a configurator was
// adding a new instance to the graph mid-task, distinct from a task failing
// its own operation versus failing while trying to materialize a dependent
// resource.
type AddingResourceError struct {
	InstanceKey string
	Err         error
}

func (e *AddingResourceError) Error() string {
	return fmt.Sprintf("adding resource %s: %v", e.InstanceKey, e.Err)
}

func (e *AddingResourceError) Unwrap() error { return e.Err }

// ValidationError reports one or more schema or precondition violations
// found before a task was allowed to start.
type ValidationError struct {
	InstanceKey string
	Violations  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %v", e.InstanceKey, e.Violations)
}

// UnexpectedAbort wraps a panic recovered from within Runner.Run: a
// configurator or planner bug should fail the job cleanly rather than
// crash the process.
type UnexpectedAbort struct {
	Recovered any
}

func (e *UnexpectedAbort) Error() string {
	return fmt.Sprintf("unexpected abort: %v", e.Recovered)
}
