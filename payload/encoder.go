// Package payload turns normalized payment requests into wallet-consumable
// strings: EIP-681 URIs for EVM chains and Solana Pay URIs for Solana.
// Everything here is pure; no function performs I/O.
package payload

import (
	"math/big"

	"github.com/vitwit/arpay/types"
	"github.com/vitwit/arpay/utils"
)

// ScaleAmount converts a human decimal amount to base units for a family.
func ScaleAmount(amount string, decimals int, family types.ChainFamily) (*big.Int, error) {
	return utils.ParseAmountWithDecimals(amount, decimals, family)
}

// Encode builds the payment payload for req on its destination network.
func Encode(req types.PaymentRequest, d *types.NetworkDescriptor) (string, error) {
	if d == nil {
		return "", types.NewError(types.ErrUnknownNetwork, "unknown destination network %s", req.DestinationChainID)
	}
	if err := utils.ValidateAddressForFamily(req.RecipientAddress, d.Family); err != nil {
		return "", err
	}
	if err := utils.ValidateDecimals(req, d); err != nil {
		return "", err
	}

	switch d.Family {
	case types.ChainEVM:
		return encodeEVM(req, d)
	case types.ChainSolana:
		return encodeSolana(req, d)
	default:
		return "", types.NewError(types.ErrUnknownNetwork, "unsupported chain family %q", d.Family)
	}
}

func encodeEVM(req types.PaymentRequest, d *types.NetworkDescriptor) (string, error) {
	amount, err := ScaleAmount(req.Amount, req.Decimals, types.ChainEVM)
	if err != nil {
		return "", err
	}

	if d.IsNative(req.TokenSymbol) {
		return EncodeEVMNativeTransfer(d.NumericChainID, req.RecipientAddress, amount)
	}

	token, ok := d.TokenAddress(req.TokenSymbol)
	if !ok {
		return "", types.NewError(types.ErrInvalidRequest,
			"token %s is not registered on %s", req.TokenSymbol, d.ChainID)
	}
	return EncodeEVMTokenTransfer(token, d.NumericChainID, req.RecipientAddress, amount)
}

func encodeSolana(req types.PaymentRequest, d *types.NetworkDescriptor) (string, error) {
	// Solana Pay carries the human amount, but it must still fit in u64 base units.
	if _, err := ScaleAmount(req.Amount, req.Decimals, types.ChainSolana); err != nil {
		return "", err
	}
	amount, err := utils.ValidateAmount(req.Amount)
	if err != nil {
		return "", err
	}

	var mint string
	if !d.IsNative(req.TokenSymbol) {
		var ok bool
		mint, ok = d.TokenAddress(req.TokenSymbol)
		if !ok {
			return "", types.NewError(types.ErrInvalidRequest,
				"token %s is not registered on %s", req.TokenSymbol, d.ChainID)
		}
	}

	return EncodeSolanaPay(req.RecipientAddress, amount, req.DisplayLabel(), req.Memo, mint)
}
