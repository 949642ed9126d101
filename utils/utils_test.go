package utils

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/arpay/types"
)

func TestParseAmountWithDecimals(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		decimals int
		family   types.ChainFamily
		want     string
		code     string
	}{
		{"whole", "50", 0, types.ChainEVM, "50", ""},
		{"fraction", "1.5", 6, types.ChainEVM, "1500000", ""},
		{"lamports", "0.000000001", 9, types.ChainSolana, "1", ""},
		{"too precise", "1.0000001", 6, types.ChainEVM, "", types.ErrInvalidAmount},
		{"zero", "0", 6, types.ChainEVM, "", types.ErrInvalidAmount},
		{"negative", "-2", 6, types.ChainEVM, "", types.ErrInvalidAmount},
		{"garbage", "1e", 6, types.ChainEVM, "", types.ErrInvalidAmount},
		{"beyond u64", "18446744073709551616", 0, types.ChainSolana, "", types.ErrInvalidAmount},
		{"u256 fits", "18446744073709551616", 0, types.ChainEVM, "18446744073709551616", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmountWithDecimals(tc.amount, tc.decimals, tc.family)
			if tc.code != "" {
				assert.True(t, types.IsCode(err, tc.code), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestFormatAmountFromBigInt(t *testing.T) {
	assert.Equal(t, "1.5", FormatAmountFromBigInt(big.NewInt(1_500_000), 6))
	assert.Equal(t, "50", FormatAmountFromBigInt(big.NewInt(50), 0))
}

func TestValidateAddressForFamily(t *testing.T) {
	assert.NoError(t, ValidateAddressForFamily("0x70997970C51812dc3A010C7d01b50e0d17dc79C8", types.ChainEVM))
	assert.True(t, types.IsCode(ValidateAddressForFamily("70997970C51812dc3A010C7d01b50e0d17dc79C8", types.ChainEVM), types.ErrInvalidAddress))
	assert.NoError(t, ValidateAddressForFamily("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", types.ChainSolana))
	assert.True(t, types.IsCode(ValidateAddressForFamily("0x70997970C51812dc3A010C7d01b50e0d17dc79C8", types.ChainSolana), types.ErrInvalidAddress))
	assert.True(t, types.IsCode(ValidateAddressForFamily("", types.ChainEVM), types.ErrInvalidAddress))
	assert.NoError(t, ValidateTokenAddress("", types.ChainEVM))
}

func TestValidateDecimals(t *testing.T) {
	sepolia := &types.NetworkDescriptor{
		ChainID:        "11155111",
		Family:         types.ChainEVM,
		NativeSymbol:   "ETH",
		NativeDecimals: 18,
		TokenDecimals:  map[string]int{"USDC": 6},
	}
	tests := []struct {
		name     string
		decimals int
		symbol   string
		source   types.ChainID
		valid    bool
	}{
		{"matching token", 6, "USDC", "", true},
		{"matching native", 18, "ETH", "", true},
		{"base units same chain", 0, "USDC", "", true},
		{"unregistered token", 4, "DAI", "", true},
		{"mismatched token", 18, "USDC", "", false},
		{"mismatched native", 9, "ETH", "", false},
		{"base units cross chain", 0, "USDC", "84532", false},
		{"matching cross chain", 6, "USDC", "84532", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := types.PaymentRequest{Decimals: tt.decimals, TokenSymbol: tt.symbol, SourceChainID: tt.source, DestinationChainID: "11155111"}
			err := ValidateDecimals(req, sepolia)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, types.IsCode(err, types.ErrInvalidRequest), "got %v", err)
			}
		})
	}
}

func TestNormalizeAgentRecord(t *testing.T) {
	rec, err := NormalizeAgentRecord(map[string]interface{}{
		"_id":           "a-1",
		"agentName":     "Guide",
		"walletAddress": "  0x70997970C51812dc3A010C7d01b50e0d17dc79C8 ",
		"address":       "ignored",
		"networkId":     1043,
		"symbol":        "BDAG",
		"tokenDecimals": "18",
		"location":      map[string]interface{}{"x": 1.0, "y": 1.5, "z": -2.0},
	})
	require.NoError(t, err)
	assert.Equal(t, "a-1", rec.ID)
	assert.Equal(t, "Guide", rec.Name)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", rec.RecipientAddress)
	assert.Equal(t, types.ChainID("1043"), rec.ChainID)
	assert.Equal(t, 18, rec.Decimals)
	assert.Equal(t, 1.5, rec.Position.Y)

	_, err = NormalizeAgentRecord(map[string]interface{}{"id": "a-2", "wallet_address": ""})
	assert.True(t, types.IsCode(err, types.ErrInvalidRequest))
}

func TestNewPaymentRequest(t *testing.T) {
	agent := &types.AgentRecord{
		ID:               "a-1",
		RecipientAddress: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		ChainID:          "1043",
		TokenSymbol:      "BDAG",
		Decimals:         18,
	}
	six := 6
	req, err := NewPaymentRequest(agent, PaymentOptions{Amount: " 2.5 ", TokenSymbol: "USDC", Decimals: &six, SourceChainID: "11155111"})
	require.NoError(t, err)
	assert.Equal(t, "2.5", req.Amount)
	assert.Equal(t, "USDC", req.TokenSymbol)
	assert.Equal(t, 6, req.Decimals)
	assert.True(t, req.IsCrossChain())

	_, err = NewPaymentRequest(agent, PaymentOptions{Amount: "0"})
	assert.True(t, types.IsCode(err, types.ErrInvalidAmount))
	_, err = NewPaymentRequest(nil, PaymentOptions{Amount: "1"})
	assert.True(t, types.IsCode(err, types.ErrInvalidRequest))
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"historySize": 16, "ledger": {"driver": "redis", "redisAddr": "localhost:6379"}}`))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.HistorySize)
	assert.Equal(t, "redis", cfg.Ledger.Driver)
	assert.Equal(t, 5*time.Minute, cfg.QRTTL)

	_, err = ParseConfig([]byte(`{"ledger": {"driver": "postgres"}}`))
	assert.True(t, types.IsCode(err, types.ErrConfigError))
	_, err = ParseConfig([]byte(`{`))
	assert.True(t, types.IsCode(err, types.ErrConfigError))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arpay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
qr_ttl: 90s
history_size: 32
ledger:
  driver: redis
  redis_addr: localhost:6379
clients:
  "11155111":
    chain_id: "11155111"
    rpc_url: https://rpc.sepolia.org
`), 0o600))
	t.Setenv("ARPAY_SCAN_GRACE", "3s")
	t.Setenv("ARPAY_LEDGER_KEY_PREFIX", "test:")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.QRTTL)
	assert.Equal(t, 32, cfg.HistorySize)
	assert.Equal(t, 3*time.Second, cfg.ScanGrace)
	assert.Equal(t, "redis", cfg.Ledger.Driver)
	assert.Equal(t, "test:", cfg.Ledger.KeyPrefix)
	assert.Equal(t, "https://rpc.sepolia.org", cfg.Clients["11155111"].RPCUrl)
	assert.Equal(t, 30, cfg.ConfirmationAttempts)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, types.IsCode(err, types.ErrConfigError))
}
