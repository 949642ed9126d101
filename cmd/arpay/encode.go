package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vitwit/arpay/networks"
	"github.com/vitwit/arpay/payload"
	"github.com/vitwit/arpay/types"
)

var encodeReq types.PaymentRequest

func init() {
	f := encodeCmd.Flags()
	f.StringVar(&encodeReq.RecipientAddress, "recipient", "", "recipient address")
	f.StringVar(&encodeReq.Amount, "amount", "", "decimal amount")
	f.StringVar(&encodeReq.TokenSymbol, "token", "", "token symbol, or the native symbol")
	f.IntVar(&encodeReq.Decimals, "decimals", 18, "token decimals")
	f.StringVar((*string)(&encodeReq.DestinationChainID), "chain", string(networks.BlockDAGPrimordial), "destination chain id")
	f.StringVar(&encodeReq.Label, "label", "", "Solana Pay label")
	f.StringVar(&encodeReq.Memo, "memo", "", "Solana Pay message")
	_ = encodeCmd.MarkFlagRequired("recipient")
	_ = encodeCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(encodeCmd)
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the wallet payload a QR would carry",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := networks.DefaultRegistry()
		d, err := registry.MustGet(encodeReq.DestinationChainID)
		if err != nil {
			return err
		}
		req := encodeReq
		req.AgentID = "cli"
		if req.TokenSymbol == "" {
			req.TokenSymbol = d.NativeSymbol
		}
		uri, err := payload.Encode(req, d)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), uri)
		return nil
	},
}
