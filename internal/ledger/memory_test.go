package ledger

import "testing"

func TestMemoryStore_ErrorInjection(t *testing.T) {
	m := NewMemoryStore()
	if err := m.Init([]Fname{Single("a.pkl")}); err != nil {
		t.Fatal(err)
	}

	wantErr := errOops
	m.ClaimErr = wantErr
	if err := m.Claim(Single("a.pkl"), "J1", "l.log", "job1", nil); err != wantErr {
		t.Errorf("expected injected error, got %v", err)
	}

	m.ClaimErr = nil
	if err := m.Claim(Single("a.pkl"), "J1", "l.log", "job1", nil); err != nil {
		t.Fatalf("expected claim to succeed once error cleared: %v", err)
	}
	if m.WriteCount() != 2 { // init + one successful claim
		t.Errorf("expected 2 writes, got %d", m.WriteCount())
	}
}

func TestMemoryStore_Reset(t *testing.T) {
	m := NewMemoryStore()
	if err := m.Init([]Fname{Single("a.pkl")}); err != nil {
		t.Fatal(err)
	}
	m.Reset()
	if len(m.Snapshot()) != 0 {
		t.Error("expected empty store after Reset")
	}
	if err := m.Init([]Fname{Single("b.pkl")}); err != nil {
		t.Fatalf("expected Init to succeed after Reset: %v", err)
	}
}

var errOops = &memoryTestError{"oops"}

type memoryTestError struct{ msg string }

func (e *memoryTestError) Error() string { return e.msg }
