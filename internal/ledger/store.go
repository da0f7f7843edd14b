package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Store is the durable, single-writer document table: rows keyed by
// Fname, held in insertion order, backed by an append-only
// newline-delimited JSON log. Every mutation is appended and fsync'd
// before the in-memory map is updated and the call returns, so a crash
// between two calls never loses an acknowledged write.
//
// Store's own mutex only protects against concurrent callers of the Go
// API (tests, the CLI's compact/init paths); the request-handling
// single-writer guarantee is structural, enforced by the manager's
// dispatch loop, not by this lock.
type Store struct {
	mu   sync.Mutex
	path string
	file *os.File

	order []string // canonical keys, insertion order
	rows  map[string]*LearnerEntry
}

// logLine is one line of the on-disk log: the full resulting state of a
// row after a mutation, not a sparse delta. Replaying the log in order
// and overwriting by key reconstructs the ledger exactly.
type logLine struct {
	Fname      Fname    `json:"fname"`
	JobID      *string  `json:"job_id,omitempty"`
	IsDone     bool     `json:"is_done"`
	JobName    *string  `json:"job_name,omitempty"`
	LogFname   *string  `json:"log_fname,omitempty"`
	OutputLogs []string `json:"output_logs,omitempty"`
	WasClaimed bool     `json:"was_claimed"`
}

func (e *LearnerEntry) toLine() logLine {
	return logLine{
		Fname:      e.Fname,
		JobID:      e.JobID,
		IsDone:     e.IsDone,
		JobName:    e.JobName,
		LogFname:   e.LogFname,
		OutputLogs: e.OutputLogs,
		WasClaimed: e.WasClaimed,
	}
}

func (l logLine) toEntry() *LearnerEntry {
	return &LearnerEntry{
		Fname:      l.Fname,
		JobID:      l.JobID,
		IsDone:     l.IsDone,
		JobName:    l.JobName,
		LogFname:   l.LogFname,
		OutputLogs: l.OutputLogs,
		WasClaimed: l.WasClaimed,
	}
}

// Open opens (or creates) the ledger log at path, replaying any existing
// content into memory. If overwrite is true, an existing file is
// truncated first, discarding prior rows.
func Open(path string, overwrite bool) (*Store, error) {
	if overwrite {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("ledger: removing %s for overwrite: %w", path, err)
		}
	}

	s := &Store{
		path: path,
		rows: make(map[string]*LearnerEntry),
	}
	if err := s.replay(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening %s: %w", path, err)
	}
	s.file = f
	return s, nil
}

// Close releases the backing file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

func (s *Store) replay() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ledger: reading %s: %w", s.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ll logLine
		if err := json.Unmarshal(line, &ll); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		entry := ll.toEntry()
		key := entry.Fname.Key()
		if _, ok := s.rows[key]; !ok {
			s.order = append(s.order, key)
		}
		s.rows[key] = entry
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ledger: reading %s: %w", s.path, err)
	}
	return nil
}

// appendLocked writes e as the next log line, fsyncs, then installs it
// into the in-memory map. Must be called with s.mu held.
func (s *Store) appendLocked(e *LearnerEntry) error {
	data, err := json.Marshal(e.toLine())
	if err != nil {
		return fmt.Errorf("ledger: encoding row: %w", err)
	}
	data = append(data, '\n')

	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("ledger: writing log: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("ledger: fsync log: %w", err)
	}

	key := e.Fname.Key()
	if _, ok := s.rows[key]; !ok {
		s.order = append(s.order, key)
	}
	s.rows[key] = e
	return nil
}

// Init seeds one fresh row per fname, in the given order. Fails with
// ErrAlreadyInitialized if the ledger already holds rows.
func (s *Store) Init(fnames []Fname) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.rows) > 0 {
		return ErrAlreadyInitialized
	}
	for _, fn := range fnames {
		if err := s.appendLocked(&LearnerEntry{Fname: fn}); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns all rows in insertion order.
func (s *Store) Snapshot() []LearnerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]LearnerEntry, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.rows[key])
	}
	return out
}

// FindFirstFree returns the first row with job_id=null and is_done=false
// in insertion order.
func (s *Store) FindFirstFree() (LearnerEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.order {
		e := s.rows[key]
		if e.IsFree() {
			return *e, true
		}
	}
	return LearnerEntry{}, false
}

// FindByJob returns the row currently owned by jobID, if any.
func (s *Store) FindByJob(jobID string) (LearnerEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.order {
		e := s.rows[key]
		if e.JobID != nil && *e.JobID == jobID {
			return *e, true
		}
	}
	return LearnerEntry{}, false
}

// Exists reports whether fname has a row in the ledger.
func (s *Store) Exists(fname Fname) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[fname.Key()]
	return ok
}

// Claim binds fname to jobID, recording logFname, jobName and the
// resolved output log paths. No-op (but still durable-consistent) if
// fname is unknown.
func (s *Store) Claim(fname Fname, jobID, logFname, jobName string, outputLogs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.rows[fname.Key()]
	if !ok {
		return nil
	}
	next := *e
	next.JobID = strPtr(jobID)
	next.LogFname = strPtr(logFname)
	next.JobName = strPtr(jobName)
	next.OutputLogs = outputLogs
	return s.appendLocked(&next)
}

// Release clears fname's claim without marking it done — the
// reconciler's action when a job vanishes from the cluster queue.
// is_done is preserved; was_claimed is set so Failed() can report on it.
func (s *Store) Release(fname Fname) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.rows[fname.Key()]
	if !ok {
		return nil
	}
	next := *e
	next.JobID = nil
	next.LogFname = nil
	next.OutputLogs = nil
	next.WasClaimed = true
	return s.appendLocked(&next)
}

// Stop marks fname done and clears its claim. is_done is monotonic:
// applying Stop twice is idempotent.
func (s *Store) Stop(fname Fname) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.rows[fname.Key()]
	if !ok {
		return nil
	}
	next := *e
	next.JobID = nil
	next.IsDone = true
	next.JobName = nil
	next.LogFname = nil
	next.OutputLogs = nil
	return s.appendLocked(&next)
}

// NDone returns the count of rows with is_done=true.
func (s *Store) NDone() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, key := range s.order {
		if s.rows[key].IsDone {
			n++
		}
	}
	return n
}

// Failed returns rows that were claimed at least once, were released by
// the reconciler, and never reported completion.
func (s *Store) Failed() []LearnerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []LearnerEntry
	for _, key := range s.order {
		if e := s.rows[key]; e.Failed() {
			out = append(out, *e)
		}
	}
	return out
}

// Compact rewrites the log at path to one line per current row, dropping
// superseded history. It is not on the request path: callers must ensure
// no Store has path open for writing while this runs.
func Compact(path string) error {
	s, err := Open(path, false)
	if err != nil {
		return err
	}
	defer s.Close()

	tmpPath := path + ".compact"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: creating compaction file: %w", err)
	}

	s.mu.Lock()
	for _, key := range s.order {
		data, err := json.Marshal(s.rows[key].toLine())
		if err != nil {
			tmp.Close()
			s.mu.Unlock()
			return fmt.Errorf("ledger: encoding row during compaction: %w", err)
		}
		if _, err := tmp.Write(append(data, '\n')); err != nil {
			tmp.Close()
			s.mu.Unlock()
			return fmt.Errorf("ledger: writing compaction file: %w", err)
		}
	}
	s.mu.Unlock()

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("ledger: fsync compaction file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ledger: closing compaction file: %w", err)
	}
	return os.Rename(tmpPath, path)
}
