package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLabel is the Solana Pay label used when a request carries none.
const DefaultLabel = "AR Agent Payment"

// PaymentRequest is the normalized "pay this agent" request. It is built once
// at the system edge and never mutated afterwards.
type PaymentRequest struct {
	AgentID string `json:"agentId" validate:"required"`

	// Human-readable decimal amount, e.g. "12.5".
	Amount string `json:"amount" validate:"required"`

	// Decimals declared for the token; the amount is scaled by 10^Decimals for
	// integer wire formats.
	Decimals int `json:"decimals" validate:"gte=0,lte=36"`

	TokenSymbol      string `json:"tokenSymbol" validate:"required"`
	RecipientAddress string `json:"recipientAddress" validate:"required"`

	// Chain the payer pays from. Empty means the destination chain.
	SourceChainID      ChainID `json:"sourceChainId,omitempty"`
	DestinationChainID ChainID `json:"destinationChainId" validate:"required"`

	Memo  string `json:"memo,omitempty"`
	Label string `json:"label,omitempty"`
}

// Source returns the effective source chain.
func (r PaymentRequest) Source() ChainID {
	if r.SourceChainID == "" {
		return r.DestinationChainID
	}
	return r.SourceChainID
}

// IsCrossChain reports whether the payer's chain differs from the recipient's.
func (r PaymentRequest) IsCrossChain() bool {
	return r.Source() != r.DestinationChainID
}

// DecimalAmount parses Amount. It does not check the sign.
func (r PaymentRequest) DecimalAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(r.Amount)
}

// DisplayLabel returns Label or DefaultLabel.
func (r PaymentRequest) DisplayLabel() string {
	if r.Label == "" {
		return DefaultLabel
	}
	return r.Label
}

// AgentRecord is the canonical shape of an upstream agent record after
// normalization. Upstream sources disagree on field names; see
// utils.NormalizeAgentRecord.
type AgentRecord struct {
	ID               string  `json:"id" mapstructure:"id" validate:"required"`
	Name             string  `json:"name" mapstructure:"name"`
	RecipientAddress string  `json:"recipientAddress" mapstructure:"recipient_address" validate:"required"`
	ChainID          ChainID `json:"chainId" mapstructure:"chain_id" validate:"required"`
	TokenSymbol      string  `json:"tokenSymbol" mapstructure:"token_symbol"`
	Decimals         int     `json:"decimals" mapstructure:"decimals"`
	Position         Vec3    `json:"position" mapstructure:"position"`
}

// ClientConfig contains configuration for a wallet provider on one chain
type ClientConfig struct {
	ChainID    ChainID           `json:"chainId" mapstructure:"chain_id" validate:"required"`
	RPCUrl     string            `json:"rpcUrl" mapstructure:"rpc_url" validate:"required"`
	WSUrl      string            `json:"wsUrl,omitempty" mapstructure:"ws_url"`
	Timeout    time.Duration     `json:"timeout,omitempty" mapstructure:"timeout"`
	Headers    map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	PrivateKey string            `json:"-" mapstructure:"private_key"`
}

// LedgerConfig selects and configures the backing store.
type LedgerConfig struct {
	Driver    string        `json:"driver" mapstructure:"driver" validate:"omitempty,oneof=memory redis"`
	RedisAddr string        `json:"redisAddr,omitempty" mapstructure:"redis_addr"`
	RedisDB   int           `json:"redisDb,omitempty" mapstructure:"redis_db"`
	KeyPrefix string        `json:"keyPrefix,omitempty" mapstructure:"key_prefix"`
	RecordTTL time.Duration `json:"recordTtl,omitempty" mapstructure:"record_ttl"`
}

// Config contains global configuration for the payment layer
type Config struct {
	// QR lifecycle
	QRTTL          time.Duration `json:"qrTtl" mapstructure:"qr_ttl" validate:"gt=0"`
	ScanGrace      time.Duration `json:"scanGrace" mapstructure:"scan_grace" validate:"gte=0"`
	ReaperInterval time.Duration `json:"reaperInterval" mapstructure:"reaper_interval" validate:"gt=0"`
	HistorySize    int           `json:"historySize" mapstructure:"history_size" validate:"gt=0"`

	// Background persistence
	SyncWorkers        int           `json:"syncWorkers" mapstructure:"sync_workers" validate:"gt=0"`
	SyncQueueSize      int           `json:"syncQueueSize" mapstructure:"sync_queue_size" validate:"gt=0"`
	SyncMaxAttempts    int           `json:"syncMaxAttempts" mapstructure:"sync_max_attempts" validate:"gt=0"`
	SyncTimeout        time.Duration `json:"syncTimeout" mapstructure:"sync_timeout" validate:"gt=0"`
	SyncInitialBackoff time.Duration `json:"syncInitialBackoff" mapstructure:"sync_initial_backoff" validate:"gt=0"`
	SyncMaxBackoff     time.Duration `json:"syncMaxBackoff" mapstructure:"sync_max_backoff" validate:"gt=0"`

	// Settlement
	ConfirmationAttempts int           `json:"confirmationAttempts" mapstructure:"confirmation_attempts" validate:"gt=0"`
	ConfirmationInterval time.Duration `json:"confirmationInterval" mapstructure:"confirmation_interval" validate:"gt=0"`
	GasLimitHint         uint64        `json:"gasLimitHint" mapstructure:"gas_limit_hint"`
	AllowOutOfOrder      bool          `json:"allowOutOfOrder" mapstructure:"allow_out_of_order"`
	DefaultFeeToken      string        `json:"defaultFeeToken,omitempty" mapstructure:"default_fee_token"`

	LogLevel      string `json:"logLevel,omitempty" mapstructure:"log_level"`
	EnableMetrics bool   `json:"enableMetrics,omitempty" mapstructure:"enable_metrics"`

	Ledger  LedgerConfig             `json:"ledger" mapstructure:"ledger"`
	Clients map[ChainID]ClientConfig `json:"clients,omitempty" mapstructure:"clients"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() *Config {
	return &Config{
		QRTTL:                5 * time.Minute,
		ScanGrace:            10 * time.Second,
		ReaperInterval:       5 * time.Second,
		HistorySize:          1024,
		SyncWorkers:          4,
		SyncQueueSize:        256,
		SyncMaxAttempts:      5,
		SyncTimeout:          5 * time.Second,
		SyncInitialBackoff:   500 * time.Millisecond,
		SyncMaxBackoff:       30 * time.Second,
		ConfirmationAttempts: 30,
		ConfirmationInterval: 2 * time.Second,
		GasLimitHint:         200_000,
		AllowOutOfOrder:      true,
		LogLevel:             "info",
		Ledger: LedgerConfig{
			Driver:    "memory",
			KeyPrefix: "arpay:qr:",
		},
	}
}
