package arpay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/arpay/lifecycle"
	"github.com/vitwit/arpay/networks"
	"github.com/vitwit/arpay/settlement"
	"github.com/vitwit/arpay/types"
	"github.com/vitwit/arpay/utils"
)

const recipient = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

type stubWallet struct {
	active    types.ChainID
	submitErr error
	submitted chan struct{}
	confirm   bool
	polls     atomic.Int32
	submits   atomic.Int32
}

func (w *stubWallet) IsConnected(context.Context) bool { return true }

func (w *stubWallet) GetActiveChain(context.Context) (types.ChainID, error) { return w.active, nil }

func (w *stubWallet) SwitchChain(_ context.Context, id types.ChainID) error {
	w.active = id
	return nil
}

func (w *stubWallet) Submit(context.Context, *types.TransactionIntent) (string, error) {
	w.submits.Add(1)
	if w.submitted != nil {
		close(w.submitted)
	}
	if w.submitErr != nil {
		return "", w.submitErr
	}
	return "0x" + fmt.Sprintf("%064x", 1), nil
}

func (w *stubWallet) GetReceipt(_ context.Context, chainID types.ChainID, ref string) (*types.Receipt, error) {
	w.polls.Add(1)
	if w.confirm {
		return &types.Receipt{TxRef: ref, ChainID: chainID, Success: true, BlockNumber: 1}, nil
	}
	return nil, nil
}

func newTestARPay(t *testing.T, attempts int, interval time.Duration) *ARPay {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.ConfirmationAttempts = attempts
	cfg.ConfirmationInterval = interval
	var n atomic.Int64
	a, err := New(cfg, nil,
		WithClock(lifecycle.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))),
		WithIDGenerator(func() string { return fmt.Sprintf("qr-%d", n.Add(1)) }),
	)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func sepoliaRequest() types.PaymentRequest {
	return types.PaymentRequest{
		AgentID:            "agent-7",
		Amount:             "2",
		Decimals:           18,
		TokenSymbol:        networks.TokenCCIPBnM,
		RecipientAddress:   recipient,
		DestinationChainID: networks.EthereumSepolia,
	}
}

func scannedQR(t *testing.T, a *ARPay, req types.PaymentRequest) string {
	t.Helper()
	qr, err := a.CreatePaymentQR(req, lifecycle.Placement{Viewer: types.Vec3{Z: 2}})
	require.NoError(t, err)
	_, err = a.Scan(qr.ID)
	require.NoError(t, err)
	return qr.ID
}

func TestPayConfirmed(t *testing.T) {
	a := newTestARPay(t, 3, time.Millisecond)
	id := scannedQR(t, a, sepoliaRequest())

	res, err := a.Pay(context.Background(), id, &stubWallet{active: networks.EthereumSepolia, confirm: true}, "")
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusConfirmed, res.Status)

	qr, ok := a.Get(id)
	require.True(t, ok)
	assert.Equal(t, types.QRPaid, qr.Status)
	assert.Equal(t, res.TxRef, qr.TxRef)

	_, err = a.Pay(context.Background(), id, &stubWallet{confirm: true}, "")
	assert.True(t, types.IsCode(err, types.ErrAlreadyTerminal))
}

func TestPayRequiresScan(t *testing.T) {
	a := newTestARPay(t, 3, time.Millisecond)
	qr, err := a.CreatePaymentQR(sepoliaRequest(), lifecycle.Placement{})
	require.NoError(t, err)

	_, err = a.Pay(context.Background(), qr.ID, &stubWallet{}, "")
	assert.True(t, types.IsCode(err, types.ErrInvalidRequest))

	_, err = a.Pay(context.Background(), "missing", &stubWallet{}, "")
	assert.True(t, types.IsCode(err, types.ErrNotFound))
}

func TestCancelInFlightPayment(t *testing.T) {
	a := newTestARPay(t, 10_000, 5*time.Millisecond)
	id := scannedQR(t, a, sepoliaRequest())

	wallet := &stubWallet{active: networks.EthereumSepolia, submitted: make(chan struct{})}
	done := make(chan *settlement.Result, 1)
	go func() {
		res, _ := a.Pay(context.Background(), id, wallet, "")
		done <- res
	}()

	<-wallet.submitted
	require.Eventually(t, func() bool { return a.Cancel(id) }, time.Second, time.Millisecond)

	var res *settlement.Result
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("payment did not stop after cancel")
	}
	assert.Equal(t, settlement.StatusCancelled, res.Status)

	polls := wallet.polls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, polls, wallet.polls.Load(), "polling stopped")

	qr, _ := a.Get(id)
	assert.Equal(t, types.QRFailed, qr.Status)
	assert.Equal(t, types.ErrCancelled, qr.FailureReason)
	assert.False(t, a.Cancel(id))
}

func TestPayAfterPendingNeverResubmits(t *testing.T) {
	a := newTestARPay(t, 2, time.Millisecond)
	id := scannedQR(t, a, sepoliaRequest())

	wallet := &stubWallet{active: networks.EthereumSepolia}
	first, err := a.Pay(context.Background(), id, wallet, "")
	require.NoError(t, err)
	require.Equal(t, settlement.StatusPending, first.Status)

	second, err := a.Pay(context.Background(), id, wallet, "")
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusPending, second.Status)
	assert.Equal(t, first.TxRef, second.TxRef)
	assert.EqualValues(t, 1, wallet.submits.Load())
	assert.EqualValues(t, 4, wallet.polls.Load())

	wallet.confirm = true
	third, err := a.Pay(context.Background(), id, wallet, "")
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusConfirmed, third.Status)
	assert.EqualValues(t, 1, wallet.submits.Load())

	qr, _ := a.Get(id)
	assert.Equal(t, types.QRPaid, qr.Status)
	assert.Equal(t, first.TxRef, qr.TxRef)
}

func TestCancelPendingPayment(t *testing.T) {
	a := newTestARPay(t, 1, time.Millisecond)
	id := scannedQR(t, a, sepoliaRequest())

	res, err := a.Pay(context.Background(), id, &stubWallet{active: networks.EthereumSepolia}, "")
	require.NoError(t, err)
	require.Equal(t, settlement.StatusPending, res.Status)

	assert.True(t, a.Cancel(id))
	qr, _ := a.Get(id)
	assert.Equal(t, types.QRFailed, qr.Status)
	assert.Equal(t, types.ErrCancelled, qr.FailureReason)
	assert.Equal(t, res.TxRef, qr.TxRef)

	assert.False(t, a.Cancel(id))
	_, err = a.Pay(context.Background(), id, &stubWallet{confirm: true}, "")
	assert.True(t, types.IsCode(err, types.ErrAlreadyTerminal))
}

func TestCancelIgnoresUnscannedQR(t *testing.T) {
	a := newTestARPay(t, 1, time.Millisecond)
	qr, err := a.CreatePaymentQR(sepoliaRequest(), lifecycle.Placement{})
	require.NoError(t, err)

	assert.False(t, a.Cancel(qr.ID))
	assert.False(t, a.Cancel("missing"))
	got, _ := a.Get(qr.ID)
	assert.Equal(t, types.QRActive, got.Status)
}

func TestPaymentOutcomesAreDistinct(t *testing.T) {
	a := newTestARPay(t, 2, time.Millisecond)

	rejected := scannedQR(t, a, sepoliaRequest())
	res1, err := a.Pay(context.Background(), rejected, &stubWallet{active: networks.EthereumSepolia, submitErr: errors.New("user rejected transaction")}, "")
	assert.True(t, types.IsCode(err, types.ErrUserRejected))

	poor := scannedQR(t, a, sepoliaRequest())
	res2, err := a.Pay(context.Background(), poor, &stubWallet{active: networks.EthereumSepolia, submitErr: errors.New("insufficient funds for transfer")}, "")
	assert.True(t, types.IsCode(err, types.ErrInsufficientFunds))

	slow := scannedQR(t, a, sepoliaRequest())
	res3, err := a.Pay(context.Background(), slow, &stubWallet{active: networks.EthereumSepolia}, "")
	require.NoError(t, err)

	assert.Equal(t, settlement.StatusFailed, res1.Status)
	assert.Equal(t, settlement.StatusFailed, res2.Status)
	assert.Equal(t, settlement.StatusPending, res3.Status)

	msgs := map[string]bool{res1.UserMessage(): true, res2.UserMessage(): true, res3.UserMessage(): true}
	assert.Len(t, msgs, 3)

	q1, _ := a.Get(rejected)
	q2, _ := a.Get(poor)
	q3, _ := a.Get(slow)
	assert.Equal(t, types.QRFailed, q1.Status)
	assert.Equal(t, types.QRFailed, q2.Status)
	assert.Equal(t, types.QRScanned, q3.Status)
	assert.Equal(t, res3.TxRef, q3.TxRef)
}

func TestCreatePaymentQRChecksRoute(t *testing.T) {
	a := newTestARPay(t, 1, time.Millisecond)

	req := sepoliaRequest()
	req.SourceChainID = networks.PolygonAmoy
	req.DestinationChainID = networks.ArbitrumSepolia
	_, err := a.CreatePaymentQR(req, lifecycle.Placement{})
	assert.True(t, types.IsCode(err, types.ErrRouteNotSupported))

	req.SourceChainID = "nowhere"
	_, err = a.CreatePaymentQR(req, lifecycle.Placement{})
	assert.True(t, types.IsCode(err, types.ErrUnknownNetwork))

	req.SourceChainID = networks.EthereumSepolia
	qr, err := a.CreatePaymentQR(req, lifecycle.Placement{})
	require.NoError(t, err)
	assert.Equal(t, types.QRActive, qr.Status)
}

func TestCrossChainQRDecimalsMatchDestination(t *testing.T) {
	a := newTestARPay(t, 1, time.Millisecond)
	req := sepoliaRequest()
	req.SourceChainID = networks.EthereumSepolia
	req.DestinationChainID = networks.SolanaDevnet
	req.RecipientAddress = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	req.Amount = "1.5"

	_, err := a.CreatePaymentQR(req, lifecycle.Placement{})
	assert.True(t, types.IsCode(err, types.ErrInvalidRequest))

	req.Decimals = 9
	id := scannedQR(t, a, req)
	qr, _ := a.Get(id)
	assert.Contains(t, qr.Payload, "amount=1.5")

	wallet := &intentCapture{stubWallet: stubWallet{active: networks.EthereumSepolia, confirm: true}}
	_, err = a.Pay(context.Background(), id, wallet, "")
	require.NoError(t, err)
	require.NotNil(t, wallet.intent)
	require.NotNil(t, wallet.intent.Message)
	require.Len(t, wallet.intent.Message.TokenAmounts, 1)
	assert.Equal(t, "1500000000000000000", wallet.intent.Message.TokenAmounts[0].Amount.String())
}

func TestCrossChainPayBuildsRouterIntent(t *testing.T) {
	a := newTestARPay(t, 1, time.Millisecond)
	req := sepoliaRequest()
	req.SourceChainID = networks.EthereumSepolia
	req.DestinationChainID = networks.BaseSepolia
	id := scannedQR(t, a, req)

	wallet := &intentCapture{stubWallet: stubWallet{active: networks.EthereumSepolia, confirm: true}}
	_, err := a.Pay(context.Background(), id, wallet, "")
	require.NoError(t, err)
	require.NotNil(t, wallet.intent)
	assert.True(t, wallet.intent.CrossChain)
	assert.Equal(t, networks.EthereumSepolia, wallet.intent.ChainID)
	assert.Equal(t, a.Registry().Get(networks.EthereumSepolia).RouterOrProgramAddress, wallet.intent.ToAddress)
}

type intentCapture struct {
	stubWallet
	intent *types.TransactionIntent
}

func (w *intentCapture) Submit(ctx context.Context, intent *types.TransactionIntent) (string, error) {
	w.intent = intent
	return w.stubWallet.Submit(ctx, intent)
}

func TestCreateAgentPaymentQR(t *testing.T) {
	a := newTestARPay(t, 1, time.Millisecond)

	qr, err := a.CreateAgentPaymentQR(map[string]interface{}{
		"agent_id":      "agent-9",
		"walletAddress": recipient,
		"network":       "11155111",
		"currency":      networks.TokenCCIPBnM,
		"decimals":      "18",
	}, utils.PaymentOptions{Amount: "0.5"}, lifecycle.Placement{})
	require.NoError(t, err)
	assert.Equal(t, "agent-9", qr.AgentID)
	assert.Contains(t, qr.Payload, "uint256=500000000000000000")

	_, err = a.CreateAgentPaymentQR(map[string]interface{}{"id": "x"}, utils.PaymentOptions{Amount: "1"}, lifecycle.Placement{})
	assert.True(t, types.IsCode(err, types.ErrInvalidRequest))
}
