// Package lifecycle owns the authoritative registry of payment QRs: their
// state machine, TTL expiry, bounded history, observers and best-effort
// persistence to a ledger.
//
// Local state is authoritative. Ledger writes run in the background and only
// ever change a QR's PersistenceStatus.
package lifecycle

import (
	"context"
	"sort"
	"sync"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/Code-Hex/go-generics-cache/policy/lru"
	"github.com/gammazero/deque"
	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/vitwit/arpay/ledger"
	"github.com/vitwit/arpay/logger"
	"github.com/vitwit/arpay/metrics"
	"github.com/vitwit/arpay/networks"
	"github.com/vitwit/arpay/payload"
	"github.com/vitwit/arpay/settlement"
	"github.com/vitwit/arpay/spatial"
	"github.com/vitwit/arpay/types"
	"github.com/vitwit/arpay/utils"
)

// Placement locates the agent and the viewer in scene space. Attempt selects
// the placement strategy; callers bump it after a failed render.
type Placement struct {
	Agent   types.Vec3
	Viewer  types.Vec3
	Attempt int
}

type entry struct {
	qr    types.QRObject
	timer Timer
}

// Manager is safe for concurrent use. Every transition is applied under one
// mutex, which gives each QR a strict order of state changes.
type Manager struct {
	cfg       types.Config
	registry  *networks.Registry
	allocator *spatial.Allocator
	ledger    ledger.Ledger
	logger    logger.Logger
	metrics   metrics.Recorder
	clock     Clock
	newID     func() string

	ctx     context.Context
	cancel  context.CancelFunc
	workers *workerpool.WorkerPool

	mu        sync.Mutex
	active    map[string]*entry
	history   *cache.Cache[string, types.QRObject]
	retries   *deque.Deque[*retryEntry]
	queued    map[string]*retryEntry
	listeners map[uint64]Listener
	nextSub   uint64
	closed    bool
	reaper    sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.metrics = r
		}
	}
}

func WithClock(c Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(f func() string) Option {
	return func(m *Manager) {
		if f != nil {
			m.newID = f
		}
	}
}

func WithAllocator(a *spatial.Allocator) Option {
	return func(m *Manager) {
		if a != nil {
			m.allocator = a
		}
	}
}

// NewManager builds a manager. A nil ledger keeps records in memory.
func NewManager(cfg *types.Config, registry *networks.Registry, store ledger.Ledger, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = types.DefaultConfig()
	}
	if err := utils.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, types.NewError(types.ErrConfigError, "network registry is required")
	}
	if store == nil {
		store = ledger.NewMemory()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:       *cfg,
		registry:  registry,
		allocator: spatial.NewAllocator(spatial.DefaultStrategies, spatial.DefaultBand),
		ledger:    store,
		logger:    logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
		clock:     realClock{},
		newID:     uuid.NewString,
		ctx:       ctx,
		cancel:    cancel,
		workers:   workerpool.New(cfg.SyncWorkers),
		active:    make(map[string]*entry),
		history:   cache.NewContext(ctx, cache.AsLRU[string, types.QRObject](lru.WithCapacity(cfg.HistorySize))),
		retries:   deque.New[*retryEntry](),
		queued:    make(map[string]*retryEntry),
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logger.Named(m.logger, "lifecycle")

	return m, nil
}

// Create builds the payload and anchor for req, registers the QR as Active
// and schedules its expiry. The ledger write happens in the background and
// never fails Create.
func (m *Manager) Create(req types.PaymentRequest, placement Placement) (types.QRObject, error) {
	if err := utils.ValidatePaymentRequest(&req); err != nil {
		return types.QRObject{}, err
	}
	d, err := m.registry.MustGet(req.DestinationChainID)
	if err != nil {
		return types.QRObject{}, err
	}
	encoded, err := payload.Encode(req, d)
	if err != nil {
		return types.QRObject{}, err
	}
	anchor := m.allocator.Allocate(placement.Agent, placement.Viewer, placement.Attempt)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return types.QRObject{}, types.NewError(types.ErrInvalidRequest, "lifecycle manager is closed")
	}

	now := m.clock.Now()
	qr := types.QRObject{
		ID:                m.newID(),
		AgentID:           req.AgentID,
		Payload:           encoded,
		Anchor:            anchor,
		Status:            types.QRGenerated,
		PersistenceStatus: types.PersistencePending,
		Metadata: types.QRMetadata{
			Amount:    req.Amount,
			Token:     req.TokenSymbol,
			Recipient: req.RecipientAddress,
			ChainID:   req.DestinationChainID,
		},
		Request:   req,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.QRTTL),
	}
	m.apply(&qr, types.QRActive, now)

	id := qr.ID
	e := &entry{qr: qr}
	e.timer = m.clock.AfterFunc(m.cfg.QRTTL, func() { m.expire(id) })
	m.active[id] = e
	m.persist(qr)
	m.metrics.IncCounter(metrics.QRCreated, map[string]string{"network": string(req.DestinationChainID)})
	m.metrics.SetGauge(metrics.ActiveQR, float64(len(m.active)), nil)
	m.mu.Unlock()

	m.logger.Debug("qr created", map[string]any{
		"qr_id":    id,
		"agent_id": req.AgentID,
		"chain":    req.DestinationChainID,
		"strategy": anchor.Strategy,
	})
	m.dispatch([]event{{eventAdded, qr}})
	return qr, nil
}

// Scan marks an Active QR as Scanned. It fails with NOT_FOUND for unknown ids
// and ALREADY_TERMINAL for anything not Active, including repeated scans.
// The QR leaves the active registry once the scan grace window passes.
func (m *Manager) Scan(id string) (types.QRObject, error) {
	m.mu.Lock()
	qr, ok := m.get(id)
	if !ok {
		m.mu.Unlock()
		return types.QRObject{}, types.NewError(types.ErrNotFound, "qr %s not found", id)
	}
	now := m.clock.Now()
	if qr.Status != types.QRActive || !now.Before(qr.ExpiresAt) {
		m.mu.Unlock()
		return types.QRObject{}, types.NewError(types.ErrAlreadyTerminal, "qr %s is %s", id, qr.Status)
	}

	m.apply(&qr, types.QRScanned, now)
	scannedAt := now
	qr.ScannedAt = &scannedAt

	if e, inActive := m.active[id]; inActive {
		e.qr = qr
		if e.timer != nil {
			e.timer.Stop()
		}
		e.timer = m.clock.AfterFunc(m.cfg.ScanGrace, func() { m.releaseScanned(id) })
	}
	m.persist(qr)
	m.metrics.IncCounter(metrics.QRScanned, map[string]string{"network": string(qr.Metadata.ChainID)})
	m.mu.Unlock()

	m.logger.Debug("qr scanned", map[string]any{"qr_id": id})
	m.dispatch([]event{{eventScanned, qr}})
	return qr, nil
}

// MarkPaid resolves a Scanned QR as Paid.
func (m *Manager) MarkPaid(id string, receipt types.Receipt) (types.QRObject, error) {
	return m.resolve(id, types.QRPaid, func(qr *types.QRObject) {
		qr.TxRef = receipt.TxRef
	})
}

// MarkFailed resolves a Scanned QR as Failed with reason.
func (m *Manager) MarkFailed(id string, reason string) (types.QRObject, error) {
	return m.resolve(id, types.QRFailed, func(qr *types.QRObject) {
		qr.FailureReason = reason
	})
}

// ReportOutcome applies a settlement result: confirmed payments resolve as
// Paid, pending ones leave the QR Scanned, everything else resolves as Failed.
func (m *Manager) ReportOutcome(res *settlement.Result) error {
	switch res.Status {
	case settlement.StatusConfirmed:
		receipt := types.Receipt{TxRef: res.TxRef, ChainID: res.ChainID, Success: true}
		if res.Receipt != nil {
			receipt = *res.Receipt
		}
		_, err := m.MarkPaid(res.QRID, receipt)
		return err

	case settlement.StatusPending:
		return m.recordTxRef(res.QRID, res.TxRef)

	default:
		reason := res.Reason
		if reason == "" {
			reason = string(res.Status)
		}
		_, err := m.resolve(res.QRID, types.QRFailed, func(qr *types.QRObject) {
			qr.FailureReason = reason
			if res.TxRef != "" {
				qr.TxRef = res.TxRef
			}
		})
		return err
	}
}

func (m *Manager) resolve(id string, to types.QRStatus, mutate func(*types.QRObject)) (types.QRObject, error) {
	m.mu.Lock()
	qr, ok := m.get(id)
	if !ok {
		m.mu.Unlock()
		return types.QRObject{}, types.NewError(types.ErrNotFound, "qr %s not found", id)
	}
	if qr.Status.IsTerminal() {
		m.mu.Unlock()
		return types.QRObject{}, types.NewError(types.ErrAlreadyTerminal, "qr %s is already %s", id, qr.Status)
	}
	if !types.CanTransition(qr.Status, to) {
		m.mu.Unlock()
		return types.QRObject{}, types.NewError(types.ErrInvalidRequest, "qr %s cannot move from %s to %s", id, qr.Status, to)
	}

	now := m.clock.Now()
	mutate(&qr)
	m.apply(&qr, to, now)
	resolvedAt := now
	qr.ResolvedAt = &resolvedAt

	events := []event{{eventResolved, qr}}
	if _, inActive := m.active[id]; inActive {
		m.retire(id, qr)
		events = append(events, event{eventRemoved, qr})
	} else {
		m.put(qr)
	}
	m.persist(qr)

	name := metrics.QRPaid
	if to == types.QRFailed {
		name = metrics.QRFailed
	}
	m.metrics.IncCounter(name, map[string]string{"network": string(qr.Metadata.ChainID), "status": qr.FailureReason})
	m.mu.Unlock()

	m.logger.Info("qr resolved", map[string]any{
		"qr_id":  id,
		"status": to,
		"tx_ref": qr.TxRef,
		"reason": qr.FailureReason,
	})
	m.dispatch(events)
	return qr, nil
}

func (m *Manager) recordTxRef(id, txRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	qr, ok := m.get(id)
	if !ok {
		return types.NewError(types.ErrNotFound, "qr %s not found", id)
	}
	if txRef == "" || qr.TxRef == txRef {
		return nil
	}
	qr.TxRef = txRef
	qr.Version++
	qr.PersistenceStatus = types.PersistencePending
	m.put(qr)
	m.persist(qr)
	return nil
}

// Get returns a copy of the QR from the active registry or the history.
func (m *Manager) Get(id string) (types.QRObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

// ListActive returns the QRs renderers may show: Active and not yet past
// ExpiresAt, optionally limited to one agent, oldest first.
func (m *Manager) ListActive(agentID string) []types.QRObject {
	m.mu.Lock()
	now := m.clock.Now()
	out := make([]types.QRObject, 0, len(m.active))
	for _, e := range m.active {
		if agentID != "" && e.qr.AgentID != agentID {
			continue
		}
		if e.qr.IsVisible(now) {
			out = append(out, e.qr)
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Sweep expires overdue QRs, releases scanned QRs past their grace window and
// resubmits due ledger retries. It is idempotent.
func (m *Manager) Sweep() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	now := m.clock.Now()

	var events []event
	for id, e := range m.active {
		switch {
		case e.qr.Status == types.QRActive && !now.Before(e.qr.ExpiresAt):
			events = append(events, m.expireLocked(id, now)...)
		case e.qr.Status == types.QRScanned && e.qr.ScannedAt != nil &&
			!now.Before(e.qr.ScannedAt.Add(m.cfg.ScanGrace)):
			m.retire(id, e.qr)
			events = append(events, event{eventRemoved, e.qr})
		}
	}
	m.drainRetries(now)
	m.metrics.SetGauge(metrics.ActiveQR, float64(len(m.active)), nil)
	m.metrics.SetGauge(metrics.RetryQueueDepth, float64(len(m.queued)), nil)
	m.mu.Unlock()

	m.dispatch(events)
}

// Start runs Sweep every ReaperInterval until ctx is done or Close is called.
// Calling Start more than once has no effect.
func (m *Manager) Start(ctx context.Context) {
	m.reaper.Do(func() {
		go func() {
			ticker := time.NewTicker(m.cfg.ReaperInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-m.ctx.Done():
					return
				case <-ticker.C:
					m.Sweep()
				}
			}
		}()
	})
}

// Close stops timers and the reaper and waits for queued ledger writes.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, e := range m.active {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	m.mu.Unlock()

	m.workers.StopWait()
	m.cancel()
}

func (m *Manager) expire(id string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	e, ok := m.active[id]
	now := m.clock.Now()
	if !ok || e.qr.Status != types.QRActive || now.Before(e.qr.ExpiresAt) {
		m.mu.Unlock()
		return
	}
	events := m.expireLocked(id, now)
	m.metrics.SetGauge(metrics.ActiveQR, float64(len(m.active)), nil)
	m.mu.Unlock()

	m.dispatch(events)
}

func (m *Manager) expireLocked(id string, now time.Time) []event {
	qr := m.active[id].qr
	m.apply(&qr, types.QRExpired, now)
	resolvedAt := now
	qr.ResolvedAt = &resolvedAt

	m.retire(id, qr)
	m.persist(qr)
	m.metrics.IncCounter(metrics.QRExpired, map[string]string{"network": string(qr.Metadata.ChainID)})
	m.logger.Debug("qr expired", map[string]any{"qr_id": id})

	return []event{{eventResolved, qr}, {eventRemoved, qr}}
}

func (m *Manager) releaseScanned(id string) {
	m.mu.Lock()
	e, ok := m.active[id]
	if m.closed || !ok || e.qr.Status != types.QRScanned {
		m.mu.Unlock()
		return
	}
	qr := e.qr
	m.retire(id, qr)
	m.metrics.SetGauge(metrics.ActiveQR, float64(len(m.active)), nil)
	m.mu.Unlock()

	m.dispatch([]event{{eventRemoved, qr}})
}

// apply moves qr to status and bumps its version. Callers check the edge.
func (m *Manager) apply(qr *types.QRObject, to types.QRStatus, now time.Time) {
	m.logger.Debug("qr transition", map[string]any{
		"qr_id": qr.ID,
		"from":  qr.Status,
		"to":    to,
		"at":    now,
	})
	qr.Status = to
	qr.Version++
	qr.PersistenceStatus = types.PersistencePending
}

// get and put address the active registry first, then the history.
func (m *Manager) get(id string) (types.QRObject, bool) {
	if e, ok := m.active[id]; ok {
		return e.qr, true
	}
	return m.history.Get(id)
}

func (m *Manager) put(qr types.QRObject) {
	if e, ok := m.active[qr.ID]; ok {
		e.qr = qr
		return
	}
	m.history.Set(qr.ID, qr)
}

// retire moves id from the active registry to the history.
func (m *Manager) retire(id string, qr types.QRObject) {
	if e, ok := m.active[id]; ok && e.timer != nil {
		e.timer.Stop()
	}
	delete(m.active, id)
	m.history.Set(id, qr)
}
