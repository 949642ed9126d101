package routing

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/vitwit/arpay/payload"
	"github.com/vitwit/arpay/types"
	"github.com/vitwit/arpay/utils"
)

// BuildTransaction wraps a cross-chain transfer of req into an intent
// addressed at the source router. The fee is estimated first; when it is paid
// in the native currency it travels as the intent's value.
func (r *Resolver) BuildTransaction(ctx context.Context, req types.PaymentRequest, feeTokenPref string) (*types.TransactionIntent, error) {
	src, dst, err := r.descriptors(req.Source(), req.DestinationChainID)
	if err != nil {
		return nil, err
	}
	if !r.IsRouteSupported(src.ChainID, dst.ChainID) {
		return nil, types.NewError(types.ErrRouteNotSupported,
			"route %s -> %s is not supported", src.ChainID, dst.ChainID)
	}
	if src.RouterOrProgramAddress == "" {
		return nil, types.NewError(types.ErrRouteNotSupported, "%s has no cross-chain router", src.ChainID)
	}

	fee, err := r.fees.Estimate(ctx, src, dst)
	if err != nil {
		return nil, err
	}

	// Same human amount, source chain base units. QR creation has already
	// tied req.Decimals to the destination token.
	decimals := req.Decimals
	if d, ok := src.TokenDecimals[req.TokenSymbol]; ok {
		decimals = d
	}
	amount, err := utils.ParseAmountWithDecimals(req.Amount, decimals, src.Family)
	if err != nil {
		return nil, err
	}

	msg, err := r.BuildTransferMessage(req.RecipientAddress, req.TokenSymbol, amount, src, dst, feeTokenPref)
	if err != nil {
		return nil, err
	}

	intent := &types.TransactionIntent{
		ChainID:      src.ChainID,
		Family:       src.Family,
		ToAddress:    src.RouterOrProgramAddress,
		Value:        big.NewInt(0),
		EstimatedFee: fee.Amount,
		FeeToken:     msg.FeeToken,
		CrossChain:   true,
		Message:      msg,
		Approvals:    msg.TokenAmounts,
	}

	if IsNativeFeeToken(msg.FeeToken, src.Family) {
		intent.Value = fee.Amount.Shift(int32(src.NativeDecimals)).BigInt()
	}

	switch src.Family {
	case types.ChainEVM:
		intent.EncodedData, err = EncodeEVMCCIPSend(msg)
	case types.ChainSolana:
		intent.EncodedData, err = EncodeSVMCCIPSend(msg)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Debug("built cross-chain intent", map[string]any{
		"source":      src.ChainID,
		"destination": dst.ChainID,
		"token":       req.TokenSymbol,
		"amount":      amount.String(),
		"fee":         fee.Amount.String(),
	})

	return intent, nil
}

// BuildIntent resolves req into the intent a wallet submits: a direct transfer
// when source and destination match, otherwise BuildTransaction.
func (r *Resolver) BuildIntent(ctx context.Context, req types.PaymentRequest, feeTokenPref string) (*types.TransactionIntent, error) {
	if r.IsCrossChainTransfer(req.Source(), req.DestinationChainID) {
		return r.BuildTransaction(ctx, req, feeTokenPref)
	}

	d, err := r.registry.MustGet(req.DestinationChainID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateAddressForFamily(req.RecipientAddress, d.Family); err != nil {
		return nil, err
	}
	if err := utils.ValidateDecimals(req, d); err != nil {
		return nil, err
	}
	amount, err := utils.ParseAmountWithDecimals(req.Amount, req.Decimals, d.Family)
	if err != nil {
		return nil, err
	}

	intent := &types.TransactionIntent{
		ChainID:      d.ChainID,
		Family:       d.Family,
		ToAddress:    req.RecipientAddress,
		Value:        big.NewInt(0),
		EstimatedFee: decimal.Zero,
		FeeToken:     d.NativeSymbol,
	}

	native := d.IsNative(req.TokenSymbol)
	var token string
	if !native {
		var ok bool
		token, ok = d.TokenAddress(req.TokenSymbol)
		if !ok {
			return nil, types.NewError(types.ErrInvalidRequest, "token %s is not registered on %s", req.TokenSymbol, d.ChainID)
		}
	}

	switch {
	case native:
		intent.Value = amount
	case d.Family == types.ChainEVM:
		intent.ToAddress = token
		intent.EncodedData, err = payload.TransferCallData(req.RecipientAddress, amount)
		if err != nil {
			return nil, err
		}
	default:
		intent.Mint = token
		intent.Value = amount
	}

	return intent, nil
}
