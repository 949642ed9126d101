package payload

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/arpay/types"
)

const (
	testToken     = "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
	testRecipient = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	testSolana    = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	testMint      = "3PjyGzj1jGVgHSKS4VR1Hr1memm63PmN8L9rtPDKwzZ6"
)

func evmDescriptor() *types.NetworkDescriptor {
	return &types.NetworkDescriptor{
		ChainID:        "1043",
		Name:           "BlockDAG Primordial",
		Family:         types.ChainEVM,
		NumericChainID: 1043,
		NativeSymbol:   "BDAG",
		NativeDecimals: 18,
		TokenAddresses: map[string]string{"USDC": testToken},
		TokenDecimals:  map[string]int{"USDC": 6},
	}
}

func solanaDescriptor() *types.NetworkDescriptor {
	return &types.NetworkDescriptor{
		ChainID:        "solana-devnet",
		Name:           "Solana Devnet",
		Family:         types.ChainSolana,
		NativeSymbol:   "SOL",
		NativeDecimals: 9,
		TokenAddresses: map[string]string{"CCIP-BnM": testMint},
		TokenDecimals:  map[string]int{"CCIP-BnM": 9},
	}
}

func TestEncodeEVMTokenTransfer(t *testing.T) {
	uri, err := EncodeEVMTokenTransfer(testToken, 1043, testRecipient, big.NewInt(50))
	require.NoError(t, err)
	assert.Equal(t,
		"ethereum:"+testToken+"@1043/transfer?address="+testRecipient+"&uint256=50", uri)

	_, err = EncodeEVMTokenTransfer(testToken, 1043, "0xRECIPIENT", big.NewInt(50))
	assert.True(t, types.IsCode(err, types.ErrInvalidAddress))

	_, err = EncodeEVMTokenTransfer(testToken, 1043, testRecipient, big.NewInt(0))
	assert.True(t, types.IsCode(err, types.ErrInvalidAmount))
}

func TestEncodeRoundTripsThroughParse(t *testing.T) {
	tests := []struct {
		name     string
		req      types.PaymentRequest
		native   bool
		expected *big.Int
	}{
		{
			name: "token transfer without decimals",
			req: types.PaymentRequest{
				AgentID: "agent-1", Amount: "50", TokenSymbol: "USDC",
				RecipientAddress: testRecipient, DestinationChainID: "1043",
			},
			expected: big.NewInt(50),
		},
		{
			name: "token transfer with six decimals",
			req: types.PaymentRequest{
				AgentID: "agent-1", Amount: "12.5", Decimals: 6, TokenSymbol: "USDC",
				RecipientAddress: testRecipient, DestinationChainID: "1043",
			},
			expected: big.NewInt(12_500_000),
		},
		{
			name: "native transfer",
			req: types.PaymentRequest{
				AgentID: "agent-1", Amount: "0.25", Decimals: 18, TokenSymbol: "BDAG",
				RecipientAddress: testRecipient, DestinationChainID: "1043",
			},
			native:   true,
			expected: new(big.Int).Mul(big.NewInt(25), new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := Encode(tt.req, evmDescriptor())
			require.NoError(t, err)

			decoded, err := ParseEVMURI(uri)
			require.NoError(t, err)
			assert.Equal(t, uint64(1043), decoded.ChainID)
			assert.Equal(t, tt.native, decoded.IsNative())
			assert.True(t, common.HexToAddress(testRecipient) == common.HexToAddress(decoded.Recipient))
			assert.Equal(t, 0, tt.expected.Cmp(decoded.Amount), "got %s", decoded.Amount)
		})
	}
}

func TestEncodeRejectsMismatchedDecimals(t *testing.T) {
	req := types.PaymentRequest{
		AgentID: "agent-1", Amount: "12.5", Decimals: 18, TokenSymbol: "USDC",
		RecipientAddress: testRecipient, DestinationChainID: "1043",
	}
	_, err := Encode(req, evmDescriptor())
	assert.True(t, types.IsCode(err, types.ErrInvalidRequest))
}

func TestEncodeEVMPaymentFormat(t *testing.T) {
	req := types.PaymentRequest{
		AgentID: "agent-1", Amount: "50", TokenSymbol: "USDC",
		RecipientAddress: testRecipient, DestinationChainID: "1043",
	}
	uri, err := Encode(req, evmDescriptor())
	require.NoError(t, err)
	assert.Equal(t, "ethereum:"+testToken+"@1043/transfer?address="+testRecipient+"&uint256=50", uri)

	req.Amount = "0.25"
	req.TokenSymbol = "BDAG"
	req.Decimals = 2
	uri, err = Encode(req, evmDescriptor())
	require.NoError(t, err)
	assert.Equal(t, "ethereum:"+testRecipient+"@1043?value=25", uri)
}

func TestEncodeErrors(t *testing.T) {
	base := types.PaymentRequest{
		AgentID: "agent-1", Amount: "1", TokenSymbol: "USDC",
		RecipientAddress: testRecipient, DestinationChainID: "1043",
	}

	t.Run("nil descriptor", func(t *testing.T) {
		_, err := Encode(base, nil)
		assert.True(t, types.IsCode(err, types.ErrUnknownNetwork))
	})

	t.Run("bad recipient", func(t *testing.T) {
		req := base
		req.RecipientAddress = "not-an-address"
		_, err := Encode(req, evmDescriptor())
		assert.True(t, types.IsCode(err, types.ErrInvalidAddress))
	})

	t.Run("solana recipient on evm chain", func(t *testing.T) {
		req := base
		req.RecipientAddress = testSolana
		_, err := Encode(req, evmDescriptor())
		assert.True(t, types.IsCode(err, types.ErrInvalidAddress))
	})

	t.Run("zero and negative amounts", func(t *testing.T) {
		for _, amount := range []string{"0", "-1", "abc", ""} {
			req := base
			req.Amount = amount
			_, err := Encode(req, evmDescriptor())
			assert.True(t, types.IsCode(err, types.ErrInvalidAmount), amount)
		}
	})

	t.Run("too many fractional digits", func(t *testing.T) {
		req := base
		req.Amount = "1.0000001"
		req.Decimals = 6
		_, err := Encode(req, evmDescriptor())
		assert.True(t, types.IsCode(err, types.ErrInvalidAmount))
	})

	t.Run("exceeds u64 on solana", func(t *testing.T) {
		req := types.PaymentRequest{
			AgentID: "agent-1", Amount: "18446744073709551616", TokenSymbol: "SOL",
			RecipientAddress: testSolana, DestinationChainID: "solana-devnet",
		}
		_, err := Encode(req, solanaDescriptor())
		assert.True(t, types.IsCode(err, types.ErrInvalidAmount))
	})

	t.Run("unregistered token", func(t *testing.T) {
		req := base
		req.TokenSymbol = "DAI"
		_, err := Encode(req, evmDescriptor())
		assert.True(t, types.IsCode(err, types.ErrInvalidRequest))
	})
}

func TestEncodeSolanaPay(t *testing.T) {
	t.Run("integral amount gains a fractional digit", func(t *testing.T) {
		uri, err := EncodeSolanaPay(testSolana, decimal.NewFromInt(1), "", "", "")
		require.NoError(t, err)
		assert.Equal(t, "solana:"+testSolana+"?amount=1.0&label=AR Agent Payment", uri)
	})

	t.Run("memo is percent encoded", func(t *testing.T) {
		uri, err := EncodeSolanaPay(testSolana, decimal.RequireFromString("2.5"), "Coffee Bot", "thanks for the latte & cake", "")
		require.NoError(t, err)
		assert.Equal(t,
			"solana:"+testSolana+"?amount=2.5&label=Coffee Bot&message=thanks%20for%20the%20latte%20%26%20cake", uri)
	})

	t.Run("spl token", func(t *testing.T) {
		uri, err := EncodeSolanaPay(testSolana, decimal.NewFromInt(3), "", "", testMint)
		require.NoError(t, err)
		assert.Equal(t, "solana:"+testSolana+"?amount=3.0&spl-token="+testMint+"&label=AR Agent Payment", uri)
	})

	t.Run("label reserved characters are escaped", func(t *testing.T) {
		uri, err := EncodeSolanaPay(testSolana, decimal.NewFromInt(1), "Tom & Jerry #1 = 50%+?", "", "")
		require.NoError(t, err)
		assert.Equal(t, "solana:"+testSolana+"?amount=1.0&label=Tom %26 Jerry %231 %3D 50%25%2B%3F", uri)
		assert.NotContains(t, uri, "#")
	})

	t.Run("evm recipient rejected", func(t *testing.T) {
		_, err := EncodeSolanaPay(testRecipient, decimal.NewFromInt(1), "", "", "")
		assert.True(t, types.IsCode(err, types.ErrInvalidAddress))
	})
}

func TestEncodeSolanaRequest(t *testing.T) {
	req := types.PaymentRequest{
		AgentID: "agent-1", Amount: "1", TokenSymbol: "SOL",
		RecipientAddress: testSolana, DestinationChainID: "solana-devnet",
	}
	uri, err := Encode(req, solanaDescriptor())
	require.NoError(t, err)
	assert.Equal(t, "solana:"+testSolana+"?amount=1.0&label=AR Agent Payment", uri)

	req.TokenSymbol = "CCIP-BnM"
	req.Memo = "tip"
	uri, err = Encode(req, solanaDescriptor())
	require.NoError(t, err)
	assert.Equal(t, "solana:"+testSolana+"?amount=1.0&spl-token="+testMint+"&label=AR Agent Payment&message=tip", uri)
}

func TestTransferCallData(t *testing.T) {
	data, err := TransferCallData(testRecipient, big.NewInt(1_000_000))
	require.NoError(t, err)
	require.Len(t, data, 4+32+32)
	assert.Equal(t, TransferSelector, "0x"+common.Bytes2Hex(data[:4]))

	to, amount, err := DecodeTransferCallData(data)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testRecipient), to)
	assert.Equal(t, int64(1_000_000), amount.Int64())

	_, _, err = DecodeTransferCallData([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestFormatSolanaAmount(t *testing.T) {
	assert.Equal(t, "1.0", FormatSolanaAmount(decimal.NewFromInt(1)))
	assert.Equal(t, "0.001", FormatSolanaAmount(decimal.RequireFromString("0.001")))
	assert.Equal(t, "12.5", FormatSolanaAmount(decimal.RequireFromString("12.50")))
}
