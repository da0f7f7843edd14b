package ledger

import "sync"

// MemoryStore is an in-memory LedgerStore for unit tests, in the style
// of the teacher's MemoryStateStore: plain map-backed storage plus
// error-injection fields so handler and reconciler tests can exercise
// failure paths without a real file.
type MemoryStore struct {
	mu sync.Mutex

	order []string
	rows  map[string]*LearnerEntry

	// --- Error injection fields for testing ---

	// ClaimErr is returned by Claim when non-nil.
	ClaimErr error
	// ReleaseErr is returned by Release when non-nil.
	ReleaseErr error
	// StopErr is returned by Stop when non-nil.
	StopErr error

	// writes counts every successful mutating call, for test assertions.
	writes int
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*LearnerEntry)}
}

func (m *MemoryStore) Init(fnames []Fname) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.rows) > 0 {
		return ErrAlreadyInitialized
	}
	for _, fn := range fnames {
		key := fn.Key()
		m.order = append(m.order, key)
		m.rows[key] = &LearnerEntry{Fname: fn}
		m.writes++
	}
	return nil
}

func (m *MemoryStore) Snapshot() []LearnerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]LearnerEntry, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, *m.rows[key])
	}
	return out
}

func (m *MemoryStore) FindFirstFree() (LearnerEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range m.order {
		if e := m.rows[key]; e.IsFree() {
			return *e, true
		}
	}
	return LearnerEntry{}, false
}

func (m *MemoryStore) FindByJob(jobID string) (LearnerEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range m.order {
		if e := m.rows[key]; e.JobID != nil && *e.JobID == jobID {
			return *e, true
		}
	}
	return LearnerEntry{}, false
}

func (m *MemoryStore) Exists(fname Fname) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[fname.Key()]
	return ok
}

func (m *MemoryStore) Claim(fname Fname, jobID, logFname, jobName string, outputLogs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ClaimErr != nil {
		return m.ClaimErr
	}
	e, ok := m.rows[fname.Key()]
	if !ok {
		return nil
	}
	e.JobID = strPtr(jobID)
	e.LogFname = strPtr(logFname)
	e.JobName = strPtr(jobName)
	e.OutputLogs = outputLogs
	m.writes++
	return nil
}

func (m *MemoryStore) Release(fname Fname) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReleaseErr != nil {
		return m.ReleaseErr
	}
	e, ok := m.rows[fname.Key()]
	if !ok {
		return nil
	}
	e.JobID = nil
	e.LogFname = nil
	e.OutputLogs = nil
	e.WasClaimed = true
	m.writes++
	return nil
}

func (m *MemoryStore) Stop(fname Fname) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StopErr != nil {
		return m.StopErr
	}
	e, ok := m.rows[fname.Key()]
	if !ok {
		return nil
	}
	e.JobID = nil
	e.IsDone = true
	e.JobName = nil
	e.LogFname = nil
	e.OutputLogs = nil
	m.writes++
	return nil
}

func (m *MemoryStore) NDone() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, key := range m.order {
		if m.rows[key].IsDone {
			n++
		}
	}
	return n
}

func (m *MemoryStore) Failed() []LearnerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []LearnerEntry
	for _, key := range m.order {
		if e := m.rows[key]; e.Failed() {
			out = append(out, *e)
		}
	}
	return out
}

// WriteCount returns the number of successful mutating calls, for test
// assertions.
func (m *MemoryStore) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Reset clears all rows and error injection settings.
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = nil
	m.rows = make(map[string]*LearnerEntry)
	m.writes = 0
	m.ClaimErr = nil
	m.ReleaseErr = nil
	m.StopErr = nil
}
