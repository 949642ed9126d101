package utils

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/vitwit/arpay/types"
)

var (
	// 2^256 - 1
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	// 2^64 - 1
	maxUint64 = new(big.Int).SetUint64(^uint64(0))
)

// ValidateAmount checks if an amount string is a valid, strictly positive decimal
func ValidateAmount(amount string) (decimal.Decimal, error) {
	if amount == "" {
		return decimal.Zero, types.NewError(types.ErrInvalidAmount, "amount cannot be empty")
	}

	dec, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return decimal.Zero, types.NewError(types.ErrInvalidAmount, "invalid amount format: %v", err)
	}

	if !dec.IsPositive() {
		return decimal.Zero, types.NewError(types.ErrInvalidAmount, "amount must be greater than zero, got %s", amount)
	}

	return dec, nil
}

// ValidateBigInt checks if a string is a valid big integer
func ValidateBigInt(value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("value cannot be empty")
	}

	bigInt := new(big.Int)
	_, success := bigInt.SetString(value, 10)
	if !success {
		return nil, fmt.Errorf("invalid big integer format")
	}

	return bigInt, nil
}

// MaxAmountFor returns the largest base-unit amount a chain family can carry:
// uint256 for EVM transfers, u64 for Solana lamports and SPL amounts.
func MaxAmountFor(family types.ChainFamily) *big.Int {
	if family == types.ChainSolana {
		return maxUint64
	}
	return maxUint256
}

// ParseAmountWithDecimals parses a decimal amount string and converts it to base
// units. Amounts with more fractional digits than decimals, non-positive
// amounts and amounts beyond the family's range are rejected.
func ParseAmountWithDecimals(amount string, decimals int, family types.ChainFamily) (*big.Int, error) {
	dec, err := ValidateAmount(amount)
	if err != nil {
		return nil, err
	}
	if decimals < 0 {
		return nil, types.NewError(types.ErrInvalidAmount, "negative decimals %d", decimals)
	}

	scaled := dec.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, types.NewError(types.ErrInvalidAmount,
			"amount %s has more than %d fractional digits", amount, decimals)
	}

	result := scaled.BigInt()
	if result.Cmp(MaxAmountFor(family)) > 0 {
		return nil, types.NewError(types.ErrInvalidAmount,
			"amount %s exceeds the %s range after scaling by %d decimals", amount, family, decimals)
	}

	return result, nil
}

// FormatAmountFromBigInt formats a big.Int amount to decimal string with specified decimals
func FormatAmountFromBigInt(amount *big.Int, decimals int) string {
	dec := decimal.NewFromBigInt(amount, -int32(decimals))
	return dec.String()
}

// ValidateDecimals checks the decimals a request declares against the ones
// registered for its token on the destination chain d. Zero declares that
// the amount is already in base units and is accepted for same-chain
// requests only; a cross-chain request is rescaled to the source token's
// decimals and so must declare the destination's exactly.
func ValidateDecimals(req types.PaymentRequest, d *types.NetworkDescriptor) error {
	known, ok := d.KnownDecimals(req.TokenSymbol)
	if !ok || known == req.Decimals {
		return nil
	}
	if req.Decimals == 0 && !req.IsCrossChain() {
		return nil
	}
	return types.NewError(types.ErrInvalidRequest,
		"%s declares %d decimals but has %d on %s", req.TokenSymbol, req.Decimals, known, d.ChainID)
}

// ValidateAddressForFamily validates a recipient for a chain family
func ValidateAddressForFamily(address string, family types.ChainFamily) error {
	if address == "" {
		return types.NewError(types.ErrInvalidAddress, "address cannot be empty")
	}

	switch family {
	case types.ChainEVM:
		if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
			return types.NewError(types.ErrInvalidAddress, "invalid EVM address %q", address)
		}

	case types.ChainSolana:
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return types.NewError(types.ErrInvalidAddress, "invalid Solana address %q: %v", address, err)
		}

	default:
		return types.NewError(types.ErrUnknownNetwork, "unsupported chain family %q for address validation", family)
	}

	return nil
}

// ValidateTokenAddress validates token contract addresses
func ValidateTokenAddress(address string, family types.ChainFamily) error {
	if address == "" {
		// Native tokens don't have addresses
		return nil
	}

	return ValidateAddressForFamily(address, family)
}

// ValidateTransactionHash validates transaction references per family
func ValidateTransactionHash(hash string, family types.ChainFamily) error {
	if hash == "" {
		return fmt.Errorf("transaction hash cannot be empty")
	}

	switch family {
	case types.ChainEVM:
		// 0x + 64 hex
		if !strings.HasPrefix(hash, "0x") {
			return fmt.Errorf("EVM transaction hash must start with 0x")
		}
		if len(hash) != 66 {
			return fmt.Errorf("EVM transaction hash must be 66 characters long")
		}
		if !isHexString(hash[2:]) {
			return fmt.Errorf("EVM transaction hash must be valid hex")
		}

	case types.ChainSolana:
		if _, err := solana.SignatureFromBase58(hash); err != nil {
			return fmt.Errorf("invalid Solana transaction signature: %w", err)
		}

	default:
		return fmt.Errorf("unsupported chain family for transaction hash validation")
	}

	return nil
}

// Helper function to check if a string is valid hexadecimal
func isHexString(s string) bool {
	match, _ := regexp.MatchString("^[0-9a-fA-F]+$", s)
	return match
}
