// Package arpay turns "pay this agent" requests into spatially anchored,
// time-boxed payment QRs and drives scanned QRs through a wallet, across
// chains when payer and recipient networks differ.
package arpay

import (
	"context"
	"sync"

	"github.com/vitwit/arpay/clients"
	"github.com/vitwit/arpay/ledger"
	"github.com/vitwit/arpay/lifecycle"
	"github.com/vitwit/arpay/logger"
	"github.com/vitwit/arpay/metrics"
	"github.com/vitwit/arpay/networks"
	"github.com/vitwit/arpay/routing"
	"github.com/vitwit/arpay/settlement"
	"github.com/vitwit/arpay/types"
	"github.com/vitwit/arpay/utils"
)

// ARPay wires the lifecycle manager, route resolver and settlement
// orchestrator together.
type ARPay struct {
	config       *types.Config
	registry     *networks.Registry
	resolver     *routing.Resolver
	manager      *lifecycle.Manager
	orchestrator *settlement.Orchestrator

	logger       logger.Logger
	metrics      metrics.Recorder
	clock        lifecycle.Clock
	newID        func() string
	feeEstimator routing.FeeEstimator

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// New creates an ARPay instance. A nil config uses types.DefaultConfig and a
// nil store keeps QR records in memory.
func New(config *types.Config, store ledger.Ledger, opts ...Option) (*ARPay, error) {
	if config == nil {
		config = types.DefaultConfig()
	}
	if err := utils.ValidateConfig(config); err != nil {
		return nil, err
	}

	a := &ARPay{
		config:   config,
		logger:   logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
		inflight: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = networks.DefaultRegistry()
	}

	routeOpts := []routing.Option{
		routing.WithLogger(a.logger),
		routing.WithGasLimit(config.GasLimitHint),
		routing.WithAllowOutOfOrder(config.AllowOutOfOrder),
		routing.WithDefaultFeeToken(config.DefaultFeeToken),
	}
	if a.feeEstimator != nil {
		routeOpts = append(routeOpts, routing.WithFeeEstimator(a.feeEstimator))
	}
	a.resolver = routing.NewResolver(a.registry, routeOpts...)

	manager, err := lifecycle.NewManager(config, a.registry, store,
		lifecycle.WithLogger(a.logger),
		lifecycle.WithMetrics(a.metrics),
		lifecycle.WithClock(a.clock),
		lifecycle.WithIDGenerator(a.newID),
	)
	if err != nil {
		return nil, err
	}
	a.manager = manager

	a.orchestrator = settlement.NewOrchestrator(config,
		settlement.WithReporter(manager),
		settlement.WithLogger(a.logger),
		settlement.WithMetrics(a.metrics),
	)
	return a, nil
}

// Registry returns the network catalog in use.
func (a *ARPay) Registry() *networks.Registry {
	return a.registry
}

// Resolver returns the route resolver.
func (a *ARPay) Resolver() *routing.Resolver {
	return a.resolver
}

// Start runs the expiry and persistence-retry reaper until ctx is done.
func (a *ARPay) Start(ctx context.Context) {
	a.manager.Start(ctx)
}

// CreatePaymentQR registers a new Active QR for req. Cross-chain requests are
// rejected up front when no route connects the two networks.
func (a *ARPay) CreatePaymentQR(req types.PaymentRequest, placement lifecycle.Placement) (types.QRObject, error) {
	if req.IsCrossChain() {
		if !a.registry.Has(req.Source()) {
			return types.QRObject{}, types.NewError(types.ErrUnknownNetwork, "unknown source network: %s", req.Source())
		}
		if !a.resolver.IsRouteSupported(req.Source(), req.DestinationChainID) {
			return types.QRObject{}, types.NewError(types.ErrRouteNotSupported,
				"no route from %s to %s", req.Source(), req.DestinationChainID)
		}
	}
	return a.manager.Create(req, placement)
}

// CreateAgentPaymentQR normalizes an upstream agent record and creates a QR
// paying it.
func (a *ARPay) CreateAgentPaymentQR(agent map[string]interface{}, opts utils.PaymentOptions, placement lifecycle.Placement) (types.QRObject, error) {
	record, err := utils.NormalizeAgentRecord(agent)
	if err != nil {
		return types.QRObject{}, err
	}
	req, err := utils.NewPaymentRequest(record, opts)
	if err != nil {
		return types.QRObject{}, err
	}
	if placement.Agent == (types.Vec3{}) {
		placement.Agent = record.Position
	}
	return a.CreatePaymentQR(*req, placement)
}

// Scan marks a QR as scanned by the viewer.
func (a *ARPay) Scan(id string) (types.QRObject, error) {
	return a.manager.Scan(id)
}

// Pay builds the transaction intent for a scanned QR and executes it with
// wallet. Only one payment per QR runs at a time; Cancel(id) stops it. A QR
// whose earlier attempt ended Pending already carries a tx ref: Pay then
// only resumes confirmation polling and never submits a second transaction.
func (a *ARPay) Pay(ctx context.Context, id string, wallet clients.WalletProvider, feeTokenPref string) (*settlement.Result, error) {
	payCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	if _, busy := a.inflight[id]; busy {
		a.mu.Unlock()
		cancel()
		return nil, types.NewError(types.ErrInvalidRequest, "payment for qr %s is already in progress", id)
	}
	a.inflight[id] = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.inflight, id)
		a.mu.Unlock()
		cancel()
	}()

	// Read after registering so a concurrent Cancel is either observed here
	// or sees this payment in flight.
	qr, ok := a.manager.Get(id)
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "qr %s not found", id)
	}
	if qr.Status.IsTerminal() {
		return nil, types.NewError(types.ErrAlreadyTerminal, "qr %s is already %s", id, qr.Status)
	}
	if qr.Status != types.QRScanned {
		return nil, types.NewError(types.ErrInvalidRequest, "qr %s must be scanned before payment", id)
	}

	if qr.TxRef != "" {
		return a.orchestrator.Resume(payCtx, id, qr.Request.Source(), qr.TxRef, wallet)
	}

	intent, err := a.resolver.BuildIntent(payCtx, qr.Request, feeTokenPref)
	if err != nil {
		return nil, err
	}
	return a.orchestrator.Execute(payCtx, id, intent, wallet)
}

// Cancel abandons the payment of id. An in-flight payment is stopped and
// reported as cancelled. A scanned QR with no payment running, such as one
// whose transaction is still unconfirmed, fails with reason CANCELLED.
// Cancel reports whether it changed anything.
func (a *ARPay) Cancel(id string) bool {
	a.mu.Lock()
	if cancel, ok := a.inflight[id]; ok {
		a.mu.Unlock()
		cancel()
		return true
	}
	// Hold the slot so Pay cannot start while the QR is being failed.
	a.inflight[id] = func() {}
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.inflight, id)
		a.mu.Unlock()
	}()

	qr, ok := a.manager.Get(id)
	if !ok || qr.Status != types.QRScanned {
		return false
	}
	_, err := a.manager.MarkFailed(id, types.ErrCancelled)
	return err == nil
}

// Get returns a QR from the active registry or the history.
func (a *ARPay) Get(id string) (types.QRObject, bool) {
	return a.manager.Get(id)
}

// ListActive returns the QRs a renderer should show.
func (a *ARPay) ListActive(agentID string) []types.QRObject {
	return a.manager.ListActive(agentID)
}

// Subscribe registers a lifecycle listener.
func (a *ARPay) Subscribe(l lifecycle.Listener) func() {
	return a.manager.Subscribe(l)
}

// Close cancels in-flight payments and stops the lifecycle manager.
func (a *ARPay) Close() {
	a.mu.Lock()
	for _, cancel := range a.inflight {
		cancel()
	}
	a.mu.Unlock()
	a.manager.Close()
}

// Version information
const Version = "0.1.0"

// GetVersion returns version information
func GetVersion() map[string]interface{} {
	chains := make([]string, 0)
	for _, d := range networks.DefaultRegistry().All() {
		chains = append(chains, string(d.ChainID))
	}
	return map[string]interface{}{
		"library_version":    Version,
		"supported_networks": chains,
		"payload_formats":    []string{"eip-681", "solana-pay"},
	}
}
