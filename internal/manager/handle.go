package manager

import (
	"fmt"
	"strings"

	"github.com/jackzampolin/hpcledger/internal/ledger"
	"github.com/jackzampolin/hpcledger/internal/wire"
)

// handle implements the start/stop request policy. It runs inside the
// dispatch loop's single select statement, so it is the only place that
// ever mutates the ledger on the request path.
func (m *Manager) handle(req wire.Request) wire.Reply {
	switch req.Kind {
	case wire.KindStart:
		return m.handleStart(req)
	case wire.KindStop:
		return m.handleStop(req)
	default:
		return wire.ErrorReply(fmt.Sprintf("manager: unknown request kind %q", req.Kind))
	}
}

func (m *Manager) handleStart(req wire.Request) wire.Reply {
	if existing, ok := m.store.FindByJob(req.JobID); ok {
		return wire.ErrorReply(fmt.Sprintf(
			"The job_id %s already exists in the database and runs %s", req.JobID, existing.Fname.String()))
	}

	free, ok := m.store.FindFirstFree()
	if !ok {
		return wire.ErrorReply("No more learners to run in the database")
	}

	// A failed OutputFnames call still claims the row with job_id set but
	// output_logs empty, a momentary relaxation of the usual "claimed
	// rows have log paths" coupling rather than rejecting a job a
	// scheduler has already started.
	outputLogs, err := m.prober.OutputFnames(req.JobName)
	if err != nil {
		m.logger.Warn("manager: resolving output log paths failed, claiming with none", "job_name", req.JobName, "error", err)
		outputLogs = nil
	}
	resolved := substituteJobID(outputLogs, req.JobID)

	if err := m.store.Claim(free.Fname, req.JobID, req.LogFname, req.JobName, resolved); err != nil {
		m.fatal(err)
		return wire.ErrorReply(fmt.Sprintf("manager: ledger write failed: %v", err))
	}
	return wire.FnameReply(free.Fname)
}

func (m *Manager) handleStop(req wire.Request) wire.Reply {
	if m.strictStop && !m.store.Exists(req.Fname) {
		return wire.ErrorReply(fmt.Sprintf("no such fname %s", req.Fname.String()))
	}

	if err := m.store.Stop(req.Fname); err != nil {
		m.fatal(err)
		return wire.ErrorReply(fmt.Sprintf("manager: ledger write failed: %v", err))
	}
	return wire.NullReply()
}

// fatal logs a server-side I/O failure and cancels the manager loop: a
// ledger write failure is not a recoverable condition.
func (m *Manager) fatal(err error) {
	m.logger.Error("manager: fatal ledger error, stopping", "error", err)
	m.mu.Lock()
	cancel := m.cancelFn
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// substituteJobID replaces the literal "${JOB_ID}" placeholder in each
// path with jobID.
func substituteJobID(paths []string, jobID string) []string {
	if paths == nil {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = strings.ReplaceAll(p, "${JOB_ID}", jobID)
	}
	return out
}

// LearnerView is the public projection of a LearnerEntry returned by
// AsDicts: it excludes the internal WasClaimed bookkeeping flag.
type LearnerView struct {
	Fname      ledger.Fname `json:"fname"`
	JobID      *string      `json:"job_id,omitempty"`
	IsDone     bool         `json:"is_done"`
	JobName    *string      `json:"job_name,omitempty"`
	LogFname   *string      `json:"log_fname,omitempty"`
	OutputLogs []string     `json:"output_logs,omitempty"`
}

// AsDicts returns every row projected to the public field set. It is a
// read-only query: no socket traffic.
func (m *Manager) AsDicts() []LearnerView {
	rows := m.store.Snapshot()
	views := make([]LearnerView, len(rows))
	for i, r := range rows {
		views[i] = LearnerView{
			Fname:      r.Fname,
			JobID:      r.JobID,
			IsDone:     r.IsDone,
			JobName:    r.JobName,
			LogFname:   r.LogFname,
			OutputLogs: r.OutputLogs,
		}
	}
	return views
}

// NDone returns the count of rows with is_done=true.
func (m *Manager) NDone() int {
	return m.store.NDone()
}

// Failed returns rows classified as crashed: claimed at least once,
// released by the reconciler, never completed.
func (m *Manager) Failed() []LearnerView {
	rows := m.store.Failed()
	views := make([]LearnerView, len(rows))
	for i, r := range rows {
		views[i] = LearnerView{
			Fname:      r.Fname,
			JobID:      r.JobID,
			IsDone:     r.IsDone,
			JobName:    r.JobName,
			LogFname:   r.LogFname,
			OutputLogs: r.OutputLogs,
		}
	}
	return views
}
