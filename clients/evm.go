package clients

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vitwit/arpay/types"
	"github.com/vitwit/arpay/utils"
)

var _ WalletProvider = (*EVMWallet)(nil)

const erc20AllowanceABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// Gas used for a call whose estimate depends on an approval that is not mined yet.
const fallbackGasLimit = 500_000

var erc20ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20AllowanceABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// EVMBackend is the subset of *ethclient.Client the wallet needs.
type EVMBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

type evmChain struct {
	numericID *big.Int
	backend   EVMBackend
}

// EVMWallet signs with a single local key and submits through one RPC
// backend per chain.
type EVMWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address

	mu     sync.Mutex
	chains map[types.ChainID]*evmChain
	active types.ChainID
	// serializes nonce allocation
	sendMu sync.Mutex
}

// NewEVMWallet creates a wallet from a hex private key.
func NewEVMWallet(hexKey string) (*EVMWallet, error) {
	key, err := utils.PrivateKeyFromHex(hexKey)
	if err != nil {
		return nil, types.NewError(types.ErrConfigError, "%v", err)
	}
	return &EVMWallet{
		key:     key,
		address: utils.AddressFromPrivateKey(key),
		chains:  make(map[types.ChainID]*evmChain),
	}, nil
}

// Address returns the payer address.
func (w *EVMWallet) Address() common.Address {
	return w.address
}

// AddChain registers a backend. The first chain added becomes active.
func (w *EVMWallet) AddChain(chainID types.ChainID, numericID uint64, backend EVMBackend) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chains[chainID] = &evmChain{numericID: new(big.Int).SetUint64(numericID), backend: backend}
	if w.active == "" {
		w.active = chainID
	}
}

// Dial connects to rpcURL and registers it for chainID after checking the
// node reports the expected numeric chain id.
func (w *EVMWallet) Dial(ctx context.Context, chainID types.ChainID, numericID uint64, rpcURL string) error {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}
	got, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to query chain id: %w", err)
	}
	if got.Uint64() != numericID {
		client.Close()
		return types.NewError(types.ErrConfigError, "rpc %s serves chain %s, expected %d", rpcURL, got, numericID)
	}
	w.AddChain(chainID, numericID, client)
	return nil
}

// Close releases dialed backends.
func (w *EVMWallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.chains {
		if closer, ok := c.backend.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

func (w *EVMWallet) IsConnected(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.key != nil && len(w.chains) > 0
}

func (w *EVMWallet) GetActiveChain(ctx context.Context) (types.ChainID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == "" {
		return "", types.NewError(types.ErrWalletNotConnected, "no chain configured")
	}
	return w.active, nil
}

func (w *EVMWallet) SwitchChain(ctx context.Context, chainID types.ChainID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.chains[chainID]; !ok {
		return types.NewError(types.ErrUnsupportedNetwork, "wallet has no backend for %s", chainID)
	}
	w.active = chainID
	return nil
}

func (w *EVMWallet) chain(chainID types.ChainID) (*evmChain, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.chains[chainID]
	if !ok {
		return nil, types.NewError(types.ErrUnsupportedNetwork, "wallet has no backend for %s", chainID)
	}
	return c, nil
}

// Submit sends any missing token approvals followed by the payment call and
// returns the payment transaction hash.
func (w *EVMWallet) Submit(ctx context.Context, intent *types.TransactionIntent) (string, error) {
	if intent.Family != types.ChainEVM {
		return "", types.NewError(types.ErrUnsupportedNetwork, "EVM wallet cannot submit %s intents", intent.Family)
	}
	if !common.IsHexAddress(intent.ToAddress) {
		return "", types.NewError(types.ErrInvalidAddress, "invalid target address: %s", intent.ToAddress)
	}
	c, err := w.chain(intent.ChainID)
	if err != nil {
		return "", err
	}

	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	nonce, err := c.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	to := common.HexToAddress(intent.ToAddress)
	approved := false
	for _, a := range intent.Approvals {
		sent, err := w.ensureAllowance(ctx, c, nonce, common.HexToAddress(a.Token), to, a.Amount)
		if err != nil {
			return "", err
		}
		if sent {
			nonce++
			approved = true
		}
	}

	value := intent.Value
	if value == nil {
		value = new(big.Int)
	}

	var gas uint64
	if approved {
		gas = fallbackGasLimit
	} else {
		gas, err = c.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  w.address,
			To:    &to,
			Value: value,
			Data:  intent.EncodedData,
		})
		if err != nil {
			return "", fmt.Errorf("gas estimation failed: %w", err)
		}
	}

	tx, err := w.signAndSend(ctx, c, nonce, to, value, gas, intent.EncodedData)
	if err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

// ensureAllowance sends approve(spender, amount) when the current allowance
// is below amount. It reports whether a transaction was sent.
func (w *EVMWallet) ensureAllowance(ctx context.Context, c *evmChain, nonce uint64, token, spender common.Address, amount *big.Int) (bool, error) {
	input, err := erc20ABI.Pack("allowance", w.address, spender)
	if err != nil {
		return false, err
	}
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{From: w.address, To: &token, Data: input}, nil)
	if err != nil {
		return false, fmt.Errorf("allowance call failed: %w", err)
	}
	res, err := erc20ABI.Unpack("allowance", out)
	if err != nil || len(res) == 0 {
		return false, fmt.Errorf("failed to decode allowance: %v", err)
	}
	current, ok := res[0].(*big.Int)
	if !ok {
		return false, errors.New("unexpected allowance type")
	}
	if current.Cmp(amount) >= 0 {
		return false, nil
	}

	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return false, err
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: w.address, To: &token, Data: data})
	if err != nil {
		return false, fmt.Errorf("approve gas estimation failed: %w", err)
	}
	if _, err := w.signAndSend(ctx, c, nonce, token, new(big.Int), gas, data); err != nil {
		return false, err
	}
	return true, nil
}

func (w *EVMWallet) signAndSend(ctx context.Context, c *evmChain, nonce uint64, to common.Address, value *big.Int, gas uint64, data []byte) (*gethtypes.Transaction, error) {
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	var txData gethtypes.TxData
	if head.BaseFee != nil {
		tip, err := c.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest tip: %w", err)
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		txData = &gethtypes.DynamicFeeTx{
			ChainID:   c.numericID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &to,
			Value:     value,
			Data:      data,
		}
	} else {
		price, err := c.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
		txData = &gethtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: price,
			Gas:      gas,
			To:       &to,
			Value:    value,
			Data:     data,
		}
	}

	tx, err := gethtypes.SignNewTx(w.key, gethtypes.LatestSignerForChainID(c.numericID), txData)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// GetReceipt returns (nil, nil) while the transaction is unknown or unmined.
func (w *EVMWallet) GetReceipt(ctx context.Context, chainID types.ChainID, txRef string) (*types.Receipt, error) {
	c, err := w.chain(chainID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateTransactionHash(txRef, types.ChainEVM); err != nil {
		return nil, err
	}
	r, err := c.backend.TransactionReceipt(ctx, common.HexToHash(txRef))
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := &types.Receipt{
		TxRef:   txRef,
		ChainID: chainID,
		Success: r.Status == gethtypes.ReceiptStatusSuccessful,
		GasUsed: r.GasUsed,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out, nil
}
