package types

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenAmount is one (token, base-unit amount) entry of a cross-chain message.
type TokenAmount struct {
	Token  string   `json:"token"`
	Amount *big.Int `json:"amount"`
}

// CrossChainMessage is the router-agnostic message passed to
// send(destinationChainSelector, message) on the source router.
type CrossChainMessage struct {
	DestinationChainSelector uint64        `json:"destinationChainSelector"`
	Receiver                 []byte        `json:"receiver"`
	Data                     []byte        `json:"data"`
	TokenAmounts             []TokenAmount `json:"tokenAmounts"`
	FeeToken                 string        `json:"feeToken"`
	ExtraArgs                []byte        `json:"extraArgs"`
}

// TransactionIntent is everything a wallet needs to submit one payment
// attempt. It is rebuilt for every attempt and never persisted.
type TransactionIntent struct {
	ChainID      ChainID         `json:"chainId"`
	Family       ChainFamily     `json:"family"`
	ToAddress    string          `json:"toAddress"`
	EncodedData  []byte          `json:"encodedData,omitempty"`
	Value        *big.Int        `json:"value"`
	EstimatedFee decimal.Decimal `json:"estimatedFee"`
	FeeToken     string          `json:"feeToken"`

	CrossChain bool               `json:"crossChain"`
	Message    *CrossChainMessage `json:"message,omitempty"`

	// Token allowances ToAddress must hold before submission (router pulls).
	Approvals []TokenAmount `json:"approvals,omitempty"`

	// Solana only: SPL mint for token transfers, empty for native SOL.
	Mint string `json:"mint,omitempty"`
}

// Receipt is the chain's verdict on a submitted transaction.
type Receipt struct {
	TxRef       string  `json:"txRef"`
	ChainID     ChainID `json:"chainId"`
	Success     bool    `json:"success"`
	BlockNumber uint64  `json:"blockNumber,omitempty"`
	GasUsed     uint64  `json:"gasUsed,omitempty"`
}
