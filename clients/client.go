package clients

import (
	"context"

	"github.com/vitwit/arpay/types"
)

// WalletProvider is the payer's wallet. Implementations sign and broadcast
// intents on the chain they are switched to.
type WalletProvider interface {
	IsConnected(ctx context.Context) bool
	GetActiveChain(ctx context.Context) (types.ChainID, error)
	SwitchChain(ctx context.Context, chainID types.ChainID) error

	// Submit signs and broadcasts intent and returns its transaction reference
	// (hash or signature).
	Submit(ctx context.Context, intent *types.TransactionIntent) (string, error)

	// GetReceipt returns nil, nil while the transaction is not yet final.
	GetReceipt(ctx context.Context, chainID types.ChainID, txRef string) (*types.Receipt, error)
}
