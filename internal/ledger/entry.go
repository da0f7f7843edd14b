package ledger

// LearnerEntry is one row in the ledger: the claim state of a single
// learner. Zero value is the fresh state (no owner, not done).
type LearnerEntry struct {
	Fname Fname `json:"fname"`

	// JobID is the cluster job currently running this learner, or nil
	// when the learner is free.
	JobID *string `json:"job_id,omitempty"`

	// IsDone is sticky: once true it never reverts to false (I2).
	IsDone bool `json:"is_done"`

	JobName    *string  `json:"job_name,omitempty"`
	LogFname   *string  `json:"log_fname,omitempty"`
	OutputLogs []string `json:"output_logs,omitempty"`

	// WasClaimed is set the first time the reconciler releases this row.
	// It gives Failed() a precise signal instead of a heuristic over
	// log-path history.
	WasClaimed bool `json:"was_claimed"`
}

// IsFree reports whether the row is eligible for a future claim (I3).
func (e LearnerEntry) IsFree() bool {
	return e.JobID == nil && !e.IsDone
}

// Failed reports whether this row was claimed at least once, has since
// been released by the reconciler, and never reported completion.
func (e LearnerEntry) Failed() bool {
	return !e.IsDone && e.WasClaimed && e.JobID == nil
}

func strPtr(s string) *string { return &s }
