package clients

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/vitwit/arpay/types"
	"github.com/vitwit/arpay/utils"
)

var _ WalletProvider = (*SolanaWallet)(nil)

// SolanaBackend is the subset of *rpc.Client the wallet needs.
type SolanaBackend interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// SolanaWallet signs native SOL and SPL token transfers with a local keypair.
type SolanaWallet struct {
	key solana.PrivateKey

	mu       sync.Mutex
	clusters map[types.ChainID]SolanaBackend
	active   types.ChainID
}

// NewSolanaWallet creates a wallet from a base58 keypair.
func NewSolanaWallet(base58Key string) (*SolanaWallet, error) {
	key, err := utils.SolanaKeyFromBase58(base58Key)
	if err != nil {
		return nil, types.NewError(types.ErrConfigError, "%v", err)
	}
	return NewSolanaWalletFromKey(key), nil
}

func NewSolanaWalletFromKey(key solana.PrivateKey) *SolanaWallet {
	return &SolanaWallet{key: key, clusters: make(map[types.ChainID]SolanaBackend)}
}

// PublicKey returns the payer account.
func (w *SolanaWallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// AddCluster registers a backend. The first cluster added becomes active.
func (w *SolanaWallet) AddCluster(chainID types.ChainID, backend SolanaBackend) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clusters[chainID] = backend
	if w.active == "" {
		w.active = chainID
	}
}

// Dial registers an RPC endpoint for chainID.
func (w *SolanaWallet) Dial(chainID types.ChainID, rpcURL string) {
	w.AddCluster(chainID, rpc.New(rpcURL))
}

func (w *SolanaWallet) IsConnected(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.key) > 0 && len(w.clusters) > 0
}

func (w *SolanaWallet) GetActiveChain(ctx context.Context) (types.ChainID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == "" {
		return "", types.NewError(types.ErrWalletNotConnected, "no cluster configured")
	}
	return w.active, nil
}

func (w *SolanaWallet) SwitchChain(ctx context.Context, chainID types.ChainID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.clusters[chainID]; !ok {
		return types.NewError(types.ErrUnsupportedNetwork, "wallet has no backend for %s", chainID)
	}
	w.active = chainID
	return nil
}

func (w *SolanaWallet) backend(chainID types.ChainID) (SolanaBackend, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.clusters[chainID]
	if !ok {
		return nil, types.NewError(types.ErrUnsupportedNetwork, "wallet has no backend for %s", chainID)
	}
	return b, nil
}

// Submit sends a direct transfer. Router sends need the router's account
// set, which this wallet does not resolve; hand those intents to an external
// wallet instead.
func (w *SolanaWallet) Submit(ctx context.Context, intent *types.TransactionIntent) (string, error) {
	if intent.Family != types.ChainSolana {
		return "", types.NewError(types.ErrUnsupportedNetwork, "Solana wallet cannot submit %s intents", intent.Family)
	}
	if intent.CrossChain {
		return "", types.NewError(types.ErrSubmissionFailed, "cross-chain sends from Solana require an external wallet")
	}
	b, err := w.backend(intent.ChainID)
	if err != nil {
		return "", err
	}

	ix, err := w.transferInstruction(intent)
	if err != nil {
		return "", err
	}

	recent, err := b.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get blockhash: %w", err)
	}

	payer := w.key.PublicKey()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, recent.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &w.key
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := b.SendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

func (w *SolanaWallet) transferInstruction(intent *types.TransactionIntent) (solana.Instruction, error) {
	if intent.Value == nil || intent.Value.Sign() <= 0 || !intent.Value.IsUint64() {
		return nil, types.NewError(types.ErrInvalidAmount, "transfer amount must fit in u64")
	}
	amount := intent.Value.Uint64()
	owner := w.key.PublicKey()

	to, err := solana.PublicKeyFromBase58(intent.ToAddress)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidAddress, "invalid recipient: %v", err)
	}

	if intent.Mint == "" {
		return system.NewTransferInstruction(amount, owner, to).Build(), nil
	}

	mint, err := solana.PublicKeyFromBase58(intent.Mint)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidAddress, "invalid mint: %v", err)
	}
	src, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	dst, _, err := solana.FindAssociatedTokenAddress(to, mint)
	if err != nil {
		return nil, err
	}
	return token.NewTransferInstruction(amount, src, dst, owner, nil).Build(), nil
}

// GetReceipt returns a receipt once the signature reaches confirmed or
// finalized commitment.
func (w *SolanaWallet) GetReceipt(ctx context.Context, chainID types.ChainID, txRef string) (*types.Receipt, error) {
	b, err := w.backend(chainID)
	if err != nil {
		return nil, err
	}
	sig, err := solana.SignatureFromBase58(txRef)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "invalid signature: %v", err)
	}
	out, err := b.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return nil, nil
	}
	st := out.Value[0]
	if st.ConfirmationStatus != rpc.ConfirmationStatusConfirmed && st.ConfirmationStatus != rpc.ConfirmationStatusFinalized {
		return nil, nil
	}
	return &types.Receipt{
		TxRef:       txRef,
		ChainID:     chainID,
		Success:     st.Err == nil,
		BlockNumber: st.Slot,
	}, nil
}
