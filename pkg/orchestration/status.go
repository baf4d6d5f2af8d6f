package orchestration

// Status represents the operational state of an instance, a task, or a job.
type Status int

const (
	StatusUnknown Status = iota
	StatusOK
	StatusDegraded
	StatusError
	StatusPending
	StatusNotApplied
	StatusNotPresent
	StatusAbsent
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDegraded:
		return "degraded"
	case StatusError:
		return "error"
	case StatusPending:
		return "pending"
	case StatusNotApplied:
		return "notapplied"
	case StatusNotPresent:
		return "notpresent"
	case StatusAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// Operational reports whether a status represents a functioning instance.
func (s Status) Operational() bool {
	return s == StatusOK || s == StatusDegraded
}

// rank orders statuses from best to worst so CombineStatus can pick the
// worst of a set of statuses: the status of an instance is the worst of its
// local status and the status of anything it requires.
var statusRank = map[Status]int{
	StatusOK:         0,
	StatusDegraded:   1,
	StatusPending:    2,
	StatusNotApplied: 2,
	StatusUnknown:    3,
	StatusNotPresent: 3,
	StatusAbsent:     4,
	StatusError:      5,
}

// CombineStatus derives a single status from a local status and the
// statuses of an instance's required dependencies: the worst of the two.
func CombineStatus(local Status, dependencies ...Status) Status {
	worst := local
	for _, dep := range dependencies {
		if statusRank[dep] > statusRank[worst] {
			worst = dep
		}
	}
	return worst
}

// Priority ranks how strongly a task should be run.
type Priority int

const (
	PriorityIgnore Priority = iota
	PriorityOptional
	PriorityRequired
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityOptional:
		return "optional"
	case PriorityRequired:
		return "required"
	case PriorityCritical:
		return "critical"
	default:
		return "ignore"
	}
}

// ToPriority normalizes a bool or Priority-ish value, as returned by a
// Configurator's ShouldRun, into a Priority.
func ToPriority(v any) Priority {
	switch t := v.(type) {
	case Priority:
		return t
	case bool:
		if t {
			return PriorityRequired
		}
		return PriorityIgnore
	default:
		return PriorityIgnore
	}
}
