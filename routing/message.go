package routing

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/vitwit/arpay/types"
	"github.com/vitwit/arpay/utils"
)

// BuildTransferMessage builds the router message that moves amount (already in
// source base units) of tokenSymbol from src to recipient on dst. Data is
// always empty: payments are plain token transfers.
func (r *Resolver) BuildTransferMessage(recipient string, tokenSymbol string, amount *big.Int, src, dst *types.NetworkDescriptor, feeTokenPref string) (*types.CrossChainMessage, error) {
	if src == nil || dst == nil {
		return nil, types.NewError(types.ErrUnknownNetwork, "source and destination networks are required")
	}
	if err := utils.ValidateAddressForFamily(recipient, dst.Family); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, types.NewError(types.ErrInvalidAmount, "transfer amount must be positive")
	}
	if amount.Cmp(utils.MaxAmountFor(src.Family)) > 0 {
		return nil, types.NewError(types.ErrInvalidAmount, "amount %s exceeds the %s range", amount, src.Family)
	}
	if src.IsNative(tokenSymbol) {
		return nil, types.NewError(types.ErrInvalidRequest,
			"native %s cannot be bridged; choose a token with a cross-chain pool", src.NativeSymbol)
	}
	token, ok := src.TokenAddress(tokenSymbol)
	if !ok {
		return nil, types.NewError(types.ErrInvalidRequest, "token %s is not registered on %s", tokenSymbol, src.ChainID)
	}

	feeToken, err := r.resolveFeeToken(src, feeTokenPref)
	if err != nil {
		return nil, err
	}

	msg := &types.CrossChainMessage{
		DestinationChainSelector: dst.ChainSelector,
		Data:                     []byte{},
		TokenAmounts:             []types.TokenAmount{{Token: token, Amount: new(big.Int).Set(amount)}},
		FeeToken:                 feeToken,
	}

	switch dst.Family {
	case types.ChainEVM:
		msg.Receiver, err = EncodeEVMReceiver(common.HexToAddress(recipient))
		if err != nil {
			return nil, err
		}
		if src.Family == types.ChainSolana {
			msg.ExtraArgs = EncodeSVMSourceExtraArgs(r.gasLimit, r.allowOutOfOrder)
		} else {
			msg.ExtraArgs, err = EncodeGenericExtraArgsV2(r.gasLimit, r.allowOutOfOrder)
		}
	case types.ChainSolana:
		receiver := solana.MustPublicKeyFromBase58(recipient)
		msg.Receiver = receiver.Bytes()
		msg.ExtraArgs, err = EncodeSVMExtraArgsV1(r.computeUnits, r.allowOutOfOrder, receiver)
	default:
		return nil, types.NewError(types.ErrUnknownNetwork, "unsupported destination family %q", dst.Family)
	}
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// resolveFeeToken maps a fee token preference to the address placed in the
// message. Native payment is the zero address on EVM and the default public
// key on Solana.
func (r *Resolver) resolveFeeToken(src *types.NetworkDescriptor, pref string) (string, error) {
	if pref == "" {
		pref = r.defaultFeeToken
	}
	if src.IsNative(pref) {
		return nativeFeeSentinel(src.Family), nil
	}
	if !src.AcceptsFeeToken(pref) {
		return "", types.NewError(types.ErrInvalidRequest, "%s does not accept %s as a fee token", src.ChainID, pref)
	}
	addr, ok := src.TokenAddress(pref)
	if !ok {
		return "", types.NewError(types.ErrInvalidRequest, "fee token %s has no address on %s", pref, src.ChainID)
	}
	return addr, nil
}

func nativeFeeSentinel(family types.ChainFamily) string {
	if family == types.ChainSolana {
		return solana.PublicKey{}.String()
	}
	return common.Address{}.Hex()
}

// IsNativeFeeToken reports whether feeToken is the native sentinel of family.
func IsNativeFeeToken(feeToken string, family types.ChainFamily) bool {
	return feeToken == nativeFeeSentinel(family)
}
