package orchestration

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JobSummary is the report produced at the end of a Job.Run: how many
// operations ran, how many succeeded, failed, or were skipped, and the full
// change ledger.
type JobSummary struct {
	JobID    string
	Workflow string
	Ran      int
	OK       int
	Failed   int
	Skipped  int
	Changes  []*ChangeRecord
}

// String renders a one-line human summary.
func (s *JobSummary) String() string {
	return fmt.Sprintf("job %s (%s): %d ran, %d ok, %d failed, %d skipped",
		s.JobID, s.Workflow, s.Ran, s.OK, s.Failed, s.Skipped)
}

// jobSummaryJSON mirrors JobSummary's shape for JSON encoding, flattening
// each ChangeRecord's attribute snapshot into a plain map since
// ChangeSnapshot's nested map-of-maps isn't itself interesting to a
// consumer that just wants "what changed".
type jobSummaryJSON struct {
	JobID    string           `json:"jobId"`
	Workflow string           `json:"workflow"`
	Ran      int              `json:"ran"`
	OK       int              `json:"ok"`
	Failed   int              `json:"failed"`
	Skipped  int              `json:"skipped"`
	Changes  []changeRecordJSON `json:"changes"`
}

type changeRecordJSON struct {
	ChangeID    int64          `json:"changeId"`
	Instance    string         `json:"instance"`
	Operation   string         `json:"operation"`
	Status      string         `json:"status"`
	Priority    string         `json:"priority"`
	Modified    bool           `json:"modified"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	Messages    []string       `json:"messages,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s *JobSummary) MarshalJSON() ([]byte, error) {
	out := jobSummaryJSON{
		JobID:    s.JobID,
		Workflow: s.Workflow,
		Ran:      s.Ran,
		OK:       s.OK,
		Failed:   s.Failed,
		Skipped:  s.Skipped,
	}
	for _, rec := range s.Changes {
		flat := make(map[string]any)
		for instKey, attrs := range rec.Attributes {
			for k, change := range attrs {
				flat[instKey+"."+k] = change.New.Raw()
			}
		}
		out.Changes = append(out.Changes, changeRecordJSON{
			ChangeID:   rec.ChangeID,
			Instance:   rec.InstanceKey,
			Operation:  rec.Operation,
			Status:     rec.Status.String(),
			Priority:   rec.Priority.String(),
			Modified:   rec.Modified,
			Attributes: flat,
			Messages:   rec.Messages,
		})
	}
	return json.Marshal(out)
}

// Stats returns a compact "ran=N ok=N failed=N skipped=N" breakdown
// string.
func (s *JobSummary) Stats() string {
	parts := []string{
		fmt.Sprintf("ran=%d", s.Ran),
		fmt.Sprintf("ok=%d", s.OK),
		fmt.Sprintf("failed=%d", s.Failed),
		fmt.Sprintf("skipped=%d", s.Skipped),
	}
	return strings.Join(parts, " ")
}
