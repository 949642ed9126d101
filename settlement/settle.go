// Package settlement drives a resolved TransactionIntent through the payer's
// wallet: network switch, submission, and confirmation polling.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/vitwit/arpay/clients"
	"github.com/vitwit/arpay/logger"
	"github.com/vitwit/arpay/metrics"
	"github.com/vitwit/arpay/types"
)

// Status is the final state of one Execute call.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusReverted  Status = "reverted"
	// Submitted but not confirmed within the polling budget. Not a failure.
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// EIP-1193 "user rejected request".
const userRejectedCode = 4001

// Result is the outcome of a payment attempt.
type Result struct {
	QRID     string         `json:"qrId"`
	ChainID  types.ChainID  `json:"chainId"`
	Status   Status         `json:"status"`
	TxRef    string         `json:"txRef,omitempty"`
	Receipt  *types.Receipt `json:"receipt,omitempty"`
	Reason   string         `json:"reason,omitempty"` // error code
	Err      error          `json:"-"`
	Duration time.Duration  `json:"duration"`
}

// UserMessage is the text shown to the payer.
func (r *Result) UserMessage() string {
	if r.Status == StatusConfirmed {
		return "Payment confirmed."
	}
	return types.UserMessage(r.Reason)
}

// Reporter receives every outcome. The lifecycle manager implements it.
type Reporter interface {
	ReportOutcome(res *Result) error
}

// Orchestrator is stateless between calls and safe for concurrent use.
type Orchestrator struct {
	attempts int
	interval time.Duration
	reporter Reporter
	logger   logger.Logger
	metrics  metrics.Recorder
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// NewOrchestrator polls receipts ConfirmationAttempts times, ConfirmationInterval apart.
func NewOrchestrator(cfg *types.Config, opts ...Option) *Orchestrator {
	if cfg == nil {
		cfg = types.DefaultConfig()
	}
	o := &Orchestrator{
		attempts: cfg.ConfirmationAttempts,
		interval: cfg.ConfirmationInterval,
		logger:   logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.attempts <= 0 {
		o.attempts = 1
	}
	o.logger = logger.Named(o.logger, "settlement")
	return o
}

// Execute pays intent for QR qrID with wallet. The returned error is the
// coded failure (nil for Confirmed and Pending); the Result is always
// non-nil and has already been handed to the reporter.
func (o *Orchestrator) Execute(ctx context.Context, qrID string, intent *types.TransactionIntent, wallet clients.WalletProvider) (*Result, error) {
	start := time.Now()
	return o.finish(qrID, o.execute(ctx, qrID, intent, wallet), start)
}

// Resume polls for the receipt of a transaction already submitted for qrID,
// typically one whose earlier attempt ended Pending. Nothing is submitted.
// Precondition failures are returned without being reported, so the QR keeps
// its state; polling outcomes are reported exactly as Execute reports them.
func (o *Orchestrator) Resume(ctx context.Context, qrID string, chainID types.ChainID, txRef string, wallet clients.WalletProvider) (*Result, error) {
	res := &Result{QRID: qrID, ChainID: chainID, TxRef: txRef}
	if txRef == "" {
		res = fail(res, types.NewError(types.ErrInvalidRequest, "qr %s has no submitted transaction", qrID))
		return res, res.Err
	}
	if wallet == nil || !wallet.IsConnected(ctx) {
		res = fail(res, types.NewError(types.ErrWalletNotConnected, "wallet is not connected"))
		return res, res.Err
	}

	start := time.Now()
	return o.finish(qrID, o.awaitConfirmation(ctx, res, wallet), start)
}

func (o *Orchestrator) finish(qrID string, res *Result, start time.Time) (*Result, error) {
	res.Duration = time.Since(start)

	labels := map[string]string{"network": string(res.ChainID), "status": string(res.Status)}
	o.metrics.IncCounter(metrics.TxOutcome, labels)
	o.metrics.ObserveLatency(metrics.SettlementExecute, res.Duration, labels)

	fields := map[string]any{
		"qr_id":  qrID,
		"chain":  res.ChainID,
		"status": res.Status,
		"tx_ref": res.TxRef,
		"reason": res.Reason,
	}
	if res.Err != nil {
		fields["error"] = res.Err
	}
	o.logger.Info("payment attempt finished", fields)

	if o.reporter != nil {
		if err := o.reporter.ReportOutcome(res); err != nil {
			o.logger.Warn("failed to report payment outcome", map[string]any{"qr_id": qrID, "error": err})
		}
	}

	if res.Status == StatusConfirmed || res.Status == StatusPending {
		return res, nil
	}
	return res, res.Err
}

func (o *Orchestrator) execute(ctx context.Context, qrID string, intent *types.TransactionIntent, wallet clients.WalletProvider) *Result {
	res := &Result{QRID: qrID}
	if intent == nil {
		return fail(res, types.NewError(types.ErrInvalidRequest, "transaction intent is required"))
	}
	res.ChainID = intent.ChainID

	if err := ctx.Err(); err != nil {
		return cancelled(res)
	}
	if wallet == nil || !wallet.IsConnected(ctx) {
		return fail(res, types.NewError(types.ErrWalletNotConnected, "wallet is not connected"))
	}

	active, err := wallet.GetActiveChain(ctx)
	if err != nil || active != intent.ChainID {
		o.logger.Debug("switching wallet network", map[string]any{"from": active, "to": intent.ChainID})
		if err := wallet.SwitchChain(ctx, intent.ChainID); err != nil {
			if ctx.Err() != nil {
				return cancelled(res)
			}
			return fail(res, &types.ARPayError{
				Code:    types.ErrUnsupportedNetwork,
				Message: fmt.Sprintf("wallet could not switch to %s: %v", intent.ChainID, err),
			})
		}
	}

	if err := ctx.Err(); err != nil {
		return cancelled(res)
	}

	txRef, err := wallet.Submit(ctx, intent)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(res)
		}
		return fail(res, ClassifySubmitError(err))
	}
	res.TxRef = txRef

	return o.awaitConfirmation(ctx, res, wallet)
}

func (o *Orchestrator) awaitConfirmation(ctx context.Context, res *Result, wallet clients.WalletProvider) *Result {
	for attempt := 1; attempt <= o.attempts; attempt++ {
		if ctx.Err() != nil {
			return cancelled(res)
		}

		receipt, err := wallet.GetReceipt(ctx, res.ChainID, res.TxRef)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return cancelled(res)
			}
			o.logger.Debug("receipt lookup failed", map[string]any{"tx_ref": res.TxRef, "attempt": attempt, "error": err})
		case receipt != nil && receipt.Success:
			res.Status = StatusConfirmed
			res.Receipt = receipt
			return res
		case receipt != nil:
			res.Receipt = receipt
			return fail(res, types.NewError(types.ErrTransactionReverted, "transaction %s reverted", res.TxRef))
		}

		if attempt == o.attempts {
			break
		}
		timer := time.NewTimer(o.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return cancelled(res)
		case <-timer.C:
		}
	}

	res.Status = StatusPending
	res.Reason = types.ErrConfirmationTimeout
	res.Err = types.NewError(types.ErrConfirmationTimeout,
		"transaction %s not confirmed after %d attempts", res.TxRef, o.attempts)
	return res
}

func fail(res *Result, err error) *Result {
	res.Status = StatusFailed
	if types.IsCode(err, types.ErrTransactionReverted) {
		res.Status = StatusReverted
	}
	res.Reason = types.ErrorCode(err)
	if res.Reason == "" {
		res.Reason = types.ErrSubmissionFailed
	}
	res.Err = err
	return res
}

func cancelled(res *Result) *Result {
	res.Status = StatusCancelled
	res.Reason = types.ErrCancelled
	res.Err = types.NewError(types.ErrCancelled, "payment cancelled")
	return res
}

var (
	rejectionPhrases    = []string{"user rejected", "user denied", "rejected by user", "request rejected", "user cancelled"}
	insufficientPhrases = []string{"insufficient funds", "insufficient balance", "insufficient lamports", "exceeds balance"}
)

// ClassifySubmitError maps a wallet error onto USER_REJECTED,
// INSUFFICIENT_FUNDS or SUBMISSION_FAILED. Coded errors keep their code.
func ClassifySubmitError(err error) error {
	if err == nil {
		return nil
	}
	if code := types.ErrorCode(err); code != "" {
		return err
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return &types.ARPayError{Code: types.ErrUserRejected, Message: err.Error()}
	}

	msg := strings.ToLower(err.Error())
	for _, p := range rejectionPhrases {
		if strings.Contains(msg, p) {
			return &types.ARPayError{Code: types.ErrUserRejected, Message: err.Error()}
		}
	}
	for _, p := range insufficientPhrases {
		if strings.Contains(msg, p) {
			return &types.ARPayError{Code: types.ErrInsufficientFunds, Message: err.Error()}
		}
	}
	return &types.ARPayError{Code: types.ErrSubmissionFailed, Message: fmt.Sprintf("submission failed: %v", err)}
}
