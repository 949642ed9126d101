package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/vitwit/arpay/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ParseConfig parses Config from JSON on top of types.DefaultConfig and validates it
func ParseConfig(data []byte) (*types.Config, error) {
	config := types.DefaultConfig()

	if err := json.Unmarshal(data, config); err != nil {
		return nil, &types.ARPayError{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("failed to parse config: %v", err),
		}
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ValidateConfig runs struct-tag validation on a Config
func ValidateConfig(config *types.Config) error {
	if err := validate.Struct(config); err != nil {
		return &types.ARPayError{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}
	return nil
}

// ValidatePaymentRequest checks the request shape. Address format and amount
// range are chain-family specific and checked by the payload encoder.
func ValidatePaymentRequest(req *types.PaymentRequest) error {
	if err := validate.Struct(req); err != nil {
		return &types.ARPayError{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}
	if _, err := ValidateAmount(req.Amount); err != nil {
		return err
	}
	return nil
}

// Upstream agent records come from several sources that never agreed on field
// names. The first non-empty alias wins.
var agentFieldAliases = map[string][]string{
	"id":                {"id", "agentId", "agent_id", "_id", "uuid"},
	"name":              {"name", "agentName", "agent_name", "displayName", "display_name"},
	"recipient_address": {"recipientAddress", "recipient_address", "walletAddress", "wallet_address", "ownerWallet", "owner_wallet", "paymentAddress", "payment_address", "address"},
	"chain_id":          {"chainId", "chain_id", "networkId", "network_id", "network", "chain"},
	"token_symbol":      {"tokenSymbol", "token_symbol", "token", "currency", "symbol"},
	"decimals":          {"decimals", "tokenDecimals", "token_decimals"},
	"position":          {"position", "location", "coords"},
}

// NormalizeAgentRecord maps a heterogeneous upstream agent record into the
// canonical AgentRecord.
func NormalizeAgentRecord(raw map[string]interface{}) (*types.AgentRecord, error) {
	canonical := make(map[string]interface{}, len(agentFieldAliases))
	for field, aliases := range agentFieldAliases {
		for _, alias := range aliases {
			v, ok := raw[alias]
			if !ok || isBlank(v) {
				continue
			}
			canonical[field] = v
			break
		}
	}

	var record types.AgentRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &record,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(canonical); err != nil {
		return nil, &types.ARPayError{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("failed to decode agent record: %v", err),
		}
	}

	record.RecipientAddress = strings.TrimSpace(record.RecipientAddress)
	if err := validate.Struct(&record); err != nil {
		return nil, &types.ARPayError{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("agent record validation failed: %v", err),
			Data:    raw,
		}
	}

	return &record, nil
}

// PaymentOptions carries the per-payment inputs not found on the agent.
type PaymentOptions struct {
	Amount        string
	TokenSymbol   string // overrides the agent's token when set
	Decimals      *int   // overrides the agent's decimals when set
	SourceChainID types.ChainID
	Memo          string
	Label         string
}

// NewPaymentRequest builds a validated PaymentRequest for an agent.
func NewPaymentRequest(agent *types.AgentRecord, opts PaymentOptions) (*types.PaymentRequest, error) {
	if agent == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "agent record is required")
	}

	req := &types.PaymentRequest{
		AgentID:            agent.ID,
		Amount:             strings.TrimSpace(opts.Amount),
		Decimals:           agent.Decimals,
		TokenSymbol:        agent.TokenSymbol,
		RecipientAddress:   agent.RecipientAddress,
		SourceChainID:      opts.SourceChainID,
		DestinationChainID: agent.ChainID,
		Memo:               opts.Memo,
		Label:              opts.Label,
	}
	if opts.TokenSymbol != "" {
		req.TokenSymbol = opts.TokenSymbol
	}
	if opts.Decimals != nil {
		req.Decimals = *opts.Decimals
	}

	if err := ValidatePaymentRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

func isBlank(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}
