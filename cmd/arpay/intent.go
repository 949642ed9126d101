package main

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"github.com/vitwit/arpay/networks"
	"github.com/vitwit/arpay/routing"
	"github.com/vitwit/arpay/types"
)

var (
	intentReq      types.PaymentRequest
	intentFeeToken string
)

func init() {
	f := intentCmd.Flags()
	f.StringVar(&intentReq.RecipientAddress, "recipient", "", "recipient address")
	f.StringVar(&intentReq.Amount, "amount", "", "decimal amount")
	f.StringVar(&intentReq.TokenSymbol, "token", networks.TokenCCIPBnM, "token symbol")
	f.IntVar(&intentReq.Decimals, "decimals", 18, "token decimals")
	f.StringVar((*string)(&intentReq.SourceChainID), "source", "", "payer chain id, empty for same-chain")
	f.StringVar((*string)(&intentReq.DestinationChainID), "chain", string(networks.EthereumSepolia), "destination chain id")
	f.StringVar(&intentFeeToken, "fee-token", "", "fee token symbol, default native")
	_ = intentCmd.MarkFlagRequired("recipient")
	_ = intentCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(intentCmd)
}

type intentView struct {
	ChainID      types.ChainID       `json:"chainId"`
	To           string              `json:"to"`
	Data         string              `json:"data,omitempty"`
	Value        string              `json:"value"`
	EstimatedFee string              `json:"estimatedFee"`
	FeeToken     string              `json:"feeToken"`
	CrossChain   bool                `json:"crossChain"`
	Approvals    []types.TokenAmount `json:"approvals,omitempty"`
	Mint         string              `json:"mint,omitempty"`
}

var intentCmd = &cobra.Command{
	Use:   "intent",
	Short: "Print the transaction a wallet would submit for a payment",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := routing.NewResolver(networks.DefaultRegistry(),
			routing.WithLogger(log),
			routing.WithGasLimit(conf.GasLimitHint),
			routing.WithAllowOutOfOrder(conf.AllowOutOfOrder),
		)
		req := intentReq
		req.AgentID = "cli"

		intent, err := resolver.BuildIntent(ctx, req, intentFeeToken)
		if err != nil {
			return err
		}

		view := intentView{
			ChainID:      intent.ChainID,
			To:           intent.ToAddress,
			Value:        intent.Value.String(),
			EstimatedFee: intent.EstimatedFee.String(),
			FeeToken:     intent.FeeToken,
			CrossChain:   intent.CrossChain,
			Approvals:    intent.Approvals,
			Mint:         intent.Mint,
		}
		if len(intent.EncodedData) > 0 {
			view.Data = hexutil.Encode(intent.EncodedData)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	},
}
