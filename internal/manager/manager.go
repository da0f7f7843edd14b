// Package manager owns the bound request socket, the reconciler timer,
// and cancellation for the ledger service. All ledger mutations —
// request-triggered and reconciler-triggered alike — are serialised
// through one dispatch goroutine's select loop, making the
// single-writer property structural rather than lock-enforced.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/hpcledger/internal/ledger"
	"github.com/jackzampolin/hpcledger/internal/reconcile"
	"github.com/jackzampolin/hpcledger/internal/schedadapter"
	"github.com/jackzampolin/hpcledger/internal/wire"
)

// requestEnvelope carries one decoded request plus the channel its
// reply must be delivered on, from a connection goroutine to the
// dispatch loop.
type requestEnvelope struct {
	req   wire.Request
	reply chan wire.Reply
}

// Config configures a Manager.
type Config struct {
	Endpoint          string
	ReconcileInterval time.Duration
	StrictStop        bool
	Logger            *slog.Logger
}

// Manager is the single-writer dispatch loop owning the claim/release
// socket and the reconciler.
type Manager struct {
	store      ledger.LedgerStore
	prober     schedadapter.Prober
	reconciler *reconcile.Reconciler
	endpoint   string
	interval   time.Duration
	strictStop bool
	logger     *slog.Logger

	requests chan requestEnvelope

	mu       sync.Mutex
	started  bool
	listener net.Listener
	cancelFn context.CancelFunc
}

// New builds a Manager. A nil logger falls back to slog.Default.
func New(store ledger.LedgerStore, prober schedadapter.Prober, cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      store,
		prober:     prober,
		reconciler: reconcile.New(store, prober, logger),
		endpoint:   cfg.Endpoint,
		interval:   cfg.ReconcileInterval,
		strictStop: cfg.StrictStop,
		logger:     logger,
		requests:   make(chan requestEnvelope),
	}
}

// Start binds the socket and runs the dispatch loop until ctx is
// cancelled. It blocks for the lifetime of the manager.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(m.store.Snapshot()) == 0 {
		m.mu.Unlock()
		return ErrUninitialized
	}

	network, address, err := parseEndpoint(m.endpoint)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	ln, err := net.Listen(network, address)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrAlreadyStarted, err)
	}

	m.listener = ln
	m.started = true
	m.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.mu.Lock()
	m.cancelFn = cancel
	m.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.acceptLoop(runCtx, ln)
	}()

	m.logger.Info("manager started", "endpoint", m.endpoint)
	m.dispatch(runCtx, ln)

	cancel()
	wg.Wait()

	m.mu.Lock()
	m.started = false
	m.listener = nil
	m.cancelFn = nil
	m.mu.Unlock()
	m.logger.Info("manager stopped")
	return nil
}

// dispatch is the single select loop: every request reply and every
// reconcile tick is handled to completion before the next event is
// read, so no two ledger mutations are ever in flight together.
func (m *Manager) dispatch(ctx context.Context, ln net.Listener) {
	var ticker *time.Ticker
	var tickC <-chan time.Time
	if m.interval > 0 {
		ticker = time.NewTicker(m.interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			ln.Close()
			return
		case env := <-m.requests:
			env.reply <- m.handle(env.req)
		case <-tickC:
			m.reconciler.Tick(ctx)
		}
	}
}

func (m *Manager) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			m.logger.Error("manager: accept failed", "error", err)
			return
		}
		connID := uuid.NewString()
		go m.readConn(ctx, conn, connID)
	}
}

// readConn decodes one framed request at a time from conn and forwards
// each onto the single requests channel, preserving FIFO order for this
// client: it does not read the next request until the reply to the
// current one has been written.
func (m *Manager) readConn(ctx context.Context, conn net.Conn, connID string) {
	defer conn.Close()

	for {
		req, err := wire.ReadRequest(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				m.logger.Warn("manager: decode failure, closing connection", "conn", connID, "error", err)
			}
			return
		}

		replyCh := make(chan wire.Reply, 1)
		select {
		case m.requests <- requestEnvelope{req: req, reply: replyCh}:
		case <-ctx.Done():
			return
		}

		select {
		case rep := <-replyCh:
			if err := wire.WriteReply(conn, rep); err != nil {
				m.logger.Warn("manager: writing reply failed, closing connection", "conn", connID, "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
