package clients

import (
	"context"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/arpay/types"
)

type fakeSolanaBackend struct {
	sent     []*solana.Transaction
	statuses map[solana.Signature]*rpc.SignatureStatusesResult
}

func (f *fakeSolanaBackend) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{1, 2, 3}},
	}, nil
}

func (f *fakeSolanaBackend) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func (f *fakeSolanaBackend) GetSignatureStatuses(_ context.Context, _ bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	out := &rpc.GetSignatureStatusesResult{}
	for _, s := range sigs {
		out.Value = append(out.Value, f.statuses[s])
	}
	return out, nil
}

func newTestSolanaWallet(t *testing.T) (*SolanaWallet, *fakeSolanaBackend) {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	backend := &fakeSolanaBackend{statuses: make(map[solana.Signature]*rpc.SignatureStatusesResult)}
	w := NewSolanaWalletFromKey(key)
	w.AddCluster("solana-devnet", backend)
	return w, backend
}

func TestSolanaWalletNativeTransfer(t *testing.T) {
	w, backend := newTestSolanaWallet(t)
	ctx := context.Background()

	ref, err := w.Submit(ctx, &types.TransactionIntent{
		ChainID:   "solana-devnet",
		Family:    types.ChainSolana,
		ToAddress: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		Value:     big.NewInt(1_000_000_000),
	})
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	assert.Equal(t, tx.Signatures[0].String(), ref)
	require.NoError(t, tx.VerifySignatures())
	require.Len(t, tx.Message.Instructions, 1)

	program, err := tx.Message.Program(tx.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	assert.True(t, program.Equals(solana.SystemProgramID))
}

func TestSolanaWalletSPLTransfer(t *testing.T) {
	w, backend := newTestSolanaWallet(t)

	_, err := w.Submit(context.Background(), &types.TransactionIntent{
		ChainID:   "solana-devnet",
		Family:    types.ChainSolana,
		ToAddress: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		Value:     big.NewInt(2_500_000),
		Mint:      "3PjyGzj1jGVgHSKS4VR1Hr1memm63PmN8L9rtPDKwzZ6",
	})
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	program, err := tx.Message.Program(tx.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	assert.True(t, program.Equals(solana.TokenProgramID))
}

func TestSolanaWalletRejectsUnsupportedIntents(t *testing.T) {
	w, backend := newTestSolanaWallet(t)
	ctx := context.Background()

	_, err := w.Submit(ctx, &types.TransactionIntent{ChainID: "solana-devnet", Family: types.ChainSolana, CrossChain: true})
	assert.True(t, types.IsCode(err, types.ErrSubmissionFailed))

	_, err = w.Submit(ctx, &types.TransactionIntent{ChainID: "11155111", Family: types.ChainEVM})
	assert.True(t, types.IsCode(err, types.ErrUnsupportedNetwork))

	_, err = w.Submit(ctx, &types.TransactionIntent{
		ChainID:   "solana-devnet",
		Family:    types.ChainSolana,
		ToAddress: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		Value:     big.NewInt(0),
	})
	assert.True(t, types.IsCode(err, types.ErrInvalidAmount))
	assert.Empty(t, backend.sent)
}

func TestSolanaWalletGetReceipt(t *testing.T) {
	w, backend := newTestSolanaWallet(t)
	ctx := context.Background()
	sig := solana.Signature{9, 9, 9}

	r, err := w.GetReceipt(ctx, "solana-devnet", sig.String())
	require.NoError(t, err)
	assert.Nil(t, r)

	backend.statuses[sig] = &rpc.SignatureStatusesResult{Slot: 10, ConfirmationStatus: rpc.ConfirmationStatusProcessed}
	r, err = w.GetReceipt(ctx, "solana-devnet", sig.String())
	require.NoError(t, err)
	assert.Nil(t, r)

	backend.statuses[sig] = &rpc.SignatureStatusesResult{Slot: 12, ConfirmationStatus: rpc.ConfirmationStatusConfirmed}
	r, err = w.GetReceipt(ctx, "solana-devnet", sig.String())
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.Success)
	assert.Equal(t, uint64(12), r.BlockNumber)

	backend.statuses[sig] = &rpc.SignatureStatusesResult{Slot: 13, ConfirmationStatus: rpc.ConfirmationStatusFinalized, Err: map[string]any{"InstructionError": []any{0, "Custom"}}}
	r, err = w.GetReceipt(ctx, "solana-devnet", sig.String())
	require.NoError(t, err)
	assert.False(t, r.Success)
}
