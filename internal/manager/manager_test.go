package manager

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/hpcledger/internal/ledger"
	"github.com/jackzampolin/hpcledger/internal/schedadapter"
	"github.com/jackzampolin/hpcledger/internal/wire"
)

// controllableProber lets tests flip between a populated and empty (or
// failing) queue view between reconcile ticks.
type controllableProber struct {
	mu     sync.Mutex
	result map[string]schedadapter.JobInfo
	err    error
}

func (p *controllableProber) Probe(ctx context.Context, meOnly bool) (map[string]schedadapter.JobInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func (p *controllableProber) OutputFnames(jobName string) ([]string, error) {
	return []string{"out-${JOB_ID}.log"}, nil
}

func (p *controllableProber) set(result map[string]schedadapter.JobInfo, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result, p.err = result, err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// testHarness starts a Manager on loopback TCP and returns a dialer the
// test can use to send framed requests.
type testHarness struct {
	mgr    *Manager
	prober *controllableProber
	cancel context.CancelFunc
	done   chan struct{}
	addr   string
}

func startHarness(t *testing.T, fnames []ledger.Fname, interval time.Duration) *testHarness {
	t.Helper()

	store := ledger.NewMemoryStore()
	if err := store.Init(fnames); err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	prober := &controllableProber{result: map[string]schedadapter.JobInfo{}}
	mgr := New(store, prober, Config{
		Endpoint:          "tcp://" + addr,
		ReconcileInterval: interval,
		Logger:            discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := mgr.Start(ctx); err != nil {
			t.Errorf("manager Start returned error: %v", err)
		}
	}()

	waitForListener(t, addr)

	return &testHarness{mgr: mgr, prober: prober, cancel: cancel, done: done, addr: addr}
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("manager never started listening on %s", addr)
}

func (h *testHarness) stop() {
	h.cancel()
	<-h.done
}

func (h *testHarness) send(t *testing.T, req wire.Request) wire.Reply {
	t.Helper()
	conn, err := net.Dial("tcp", h.addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := wire.WriteRequest(conn, req); err != nil {
		t.Fatalf("write request: %v", err)
	}
	rep, err := wire.ReadReply(conn)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	return rep
}

// client dials once and sends multiple requests on the same connection,
// to exercise FIFO-per-client ordering.
type client struct {
	conn net.Conn
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return &client{conn: conn}
}

func (c *client) send(t *testing.T, req wire.Request) wire.Reply {
	t.Helper()
	if err := wire.WriteRequest(c.conn, req); err != nil {
		t.Fatalf("write request: %v", err)
	}
	rep, err := wire.ReadReply(c.conn)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	return rep
}

func (c *client) close() { c.conn.Close() }

func TestManager_ColdStartAndFirstClaim(t *testing.T) {
	h := startHarness(t, []ledger.Fname{ledger.Single("a.pkl"), ledger.Single("b.pkl")}, time.Hour)
	defer h.stop()

	rep := h.send(t, wire.NewStart("J1", "l1.log", "job1"))
	if rep.IsError() || rep.Fname.String() != "a.pkl" {
		t.Fatalf("expected fname reply a.pkl, got %+v", rep)
	}

	row, ok := h.mgr.store.FindByJob("J1")
	if !ok {
		t.Fatal("expected J1 to be tracked")
	}
	if row.Fname.String() != "a.pkl" || row.LogFname == nil || *row.LogFname != "l1.log" ||
		row.JobName == nil || *row.JobName != "job1" || row.IsDone {
		t.Errorf("unexpected row state: %+v", row)
	}
}

func TestManager_DuplicateJobID(t *testing.T) {
	h := startHarness(t, []ledger.Fname{ledger.Single("a.pkl"), ledger.Single("b.pkl")}, time.Hour)
	defer h.stop()

	h.send(t, wire.NewStart("J1", "l1.log", "job1"))
	rep := h.send(t, wire.NewStart("J1", "l1.log", "job1"))

	if !rep.IsError() {
		t.Fatal("expected error reply for duplicate job id")
	}
	if !strings.Contains(rep.Message, "already exists") || !strings.Contains(rep.Message, "a.pkl") {
		t.Errorf("unexpected error message: %s", rep.Message)
	}

	rows := h.mgr.store.Snapshot()
	if rows[0].JobID == nil || *rows[0].JobID != "J1" {
		t.Errorf("ledger should be unchanged by rejected duplicate: %+v", rows[0])
	}
}

func TestManager_StopAndReclaim(t *testing.T) {
	h := startHarness(t, []ledger.Fname{ledger.Single("a.pkl"), ledger.Single("b.pkl")}, time.Hour)
	defer h.stop()

	h.send(t, wire.NewStart("J1", "l1.log", "job1"))

	rep := h.send(t, wire.NewStop(ledger.Single("a.pkl")))
	if rep.IsError() || rep.Kind != wire.KindNull {
		t.Fatalf("expected null reply, got %+v", rep)
	}

	rows := h.mgr.store.Snapshot()
	if !rows[0].IsDone || rows[0].JobID != nil {
		t.Errorf("expected a.pkl done and unowned: %+v", rows[0])
	}

	rep2 := h.send(t, wire.NewStart("J2", "l2.log", "job2"))
	if rep2.IsError() || rep2.Fname.String() != "b.pkl" {
		t.Fatalf("expected b.pkl (a.pkl is terminal), got %+v", rep2)
	}
}

func TestManager_Exhaustion(t *testing.T) {
	h := startHarness(t, []ledger.Fname{ledger.Single("a.pkl"), ledger.Single("b.pkl")}, time.Hour)
	defer h.stop()

	h.send(t, wire.NewStart("J1", "l1.log", "job1"))
	h.send(t, wire.NewStop(ledger.Single("a.pkl")))
	h.send(t, wire.NewStart("J2", "l2.log", "job2"))
	h.send(t, wire.NewStop(ledger.Single("b.pkl")))

	rep := h.send(t, wire.NewStart("J3", "l3.log", "job3"))
	if !rep.IsError() || !strings.Contains(rep.Message, "No more learners") {
		t.Fatalf("expected exhaustion error, got %+v", rep)
	}
}

func TestManager_ReconcilerRelease(t *testing.T) {
	h := startHarness(t, []ledger.Fname{ledger.Single("a.pkl")}, 30*time.Millisecond)
	defer h.stop()

	rep := h.send(t, wire.NewStart("J1", "l1.log", "job1"))
	if rep.IsError() || rep.Fname.String() != "a.pkl" {
		t.Fatalf("expected a.pkl, got %+v", rep)
	}

	h.prober.set(map[string]schedadapter.JobInfo{}, nil)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := h.mgr.store.FindByJob("J1"); !ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := h.mgr.store.FindByJob("J1"); ok {
		t.Fatal("expected J1 to be released after reconcile")
	}

	rep2 := h.send(t, wire.NewStart("J9", "l9.log", "job9"))
	if rep2.IsError() || rep2.Fname.String() != "a.pkl" {
		t.Fatalf("expected a.pkl reclaimable, got %+v", rep2)
	}
}

func TestManager_ProbeOutageIsInert(t *testing.T) {
	h := startHarness(t, []ledger.Fname{ledger.Single("a.pkl")}, 30*time.Millisecond)
	defer h.stop()

	h.send(t, wire.NewStart("J1", "l1.log", "job1"))
	h.prober.set(nil, fmt.Errorf("scheduler unreachable"))

	time.Sleep(150 * time.Millisecond)

	row, ok := h.mgr.store.FindByJob("J1")
	if !ok || row.Fname.String() != "a.pkl" {
		t.Fatalf("expected J1 unaffected by probe outage, got ok=%v row=%+v", ok, row)
	}

	h.prober.set(map[string]schedadapter.JobInfo{"J1": {JobName: "job1", State: "RUNNING"}}, nil)
	time.Sleep(150 * time.Millisecond)

	row2, ok2 := h.mgr.store.FindByJob("J1")
	if !ok2 || row2.Fname.String() != "a.pkl" {
		t.Fatal("expected J1 to remain claimed once probe recovers reporting it live")
	}
}

func TestManager_FIFOPerClient(t *testing.T) {
	h := startHarness(t, []ledger.Fname{ledger.Single("a.pkl"), ledger.Single("b.pkl"), ledger.Single("c.pkl")}, time.Hour)
	defer h.stop()

	c := dial(t, h.addr)
	defer c.close()

	want := []string{"a.pkl", "b.pkl", "c.pkl"}
	for i, w := range want {
		rep := c.send(t, wire.NewStart(fmt.Sprintf("J%d", i), "l.log", "job"))
		if rep.IsError() || rep.Fname.String() != w {
			t.Fatalf("request %d: expected %s, got %+v", i, w, rep)
		}
	}
}

func TestManager_StopUnknownFnameIsNoopByDefault(t *testing.T) {
	h := startHarness(t, []ledger.Fname{ledger.Single("a.pkl")}, time.Hour)
	defer h.stop()

	rep := h.send(t, wire.NewStop(ledger.Single("nonexistent.pkl")))
	if rep.IsError() {
		t.Errorf("expected no-op null reply, got error: %s", rep.Message)
	}
}

func TestManager_StopUnknownFnameIsErrorWhenStrict(t *testing.T) {
	store := ledger.NewMemoryStore()
	if err := store.Init([]ledger.Fname{ledger.Single("a.pkl")}); err != nil {
		t.Fatal(err)
	}
	prober := &controllableProber{result: map[string]schedadapter.JobInfo{}}
	mgr := New(store, prober, Config{StrictStop: true, Logger: discardLogger()})

	rep := mgr.handleStop(wire.NewStop(ledger.Single("nonexistent.pkl")))
	if !rep.IsError() {
		t.Error("expected error reply for unknown fname in strict mode")
	}
}

func TestManager_StartTwiceFails(t *testing.T) {
	h := startHarness(t, []ledger.Fname{ledger.Single("a.pkl")}, time.Hour)
	defer h.stop()

	store := ledger.NewMemoryStore()
	store.Init([]ledger.Fname{ledger.Single("x.pkl")})
	mgr2 := New(store, h.prober, Config{Endpoint: "tcp://" + h.addr, Logger: discardLogger()})
	err := mgr2.Start(context.Background())
	if err == nil {
		t.Fatal("expected second manager bound to the same endpoint to fail")
	}
}

func TestManager_StartWithoutInitFails(t *testing.T) {
	store := ledger.NewMemoryStore()
	prober := &controllableProber{}
	mgr := New(store, prober, Config{Endpoint: "tcp://127.0.0.1:0", Logger: discardLogger()})

	if err := mgr.Start(context.Background()); err != ErrUninitialized {
		t.Errorf("expected ErrUninitialized, got %v", err)
	}
}
