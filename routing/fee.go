package routing

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vitwit/arpay/types"
)

// Fee is an estimated router fee, denominated in the source chain's native
// currency.
type Fee struct {
	Amount decimal.Decimal `json:"amount"`
	Symbol string          `json:"symbol"`
	Kind   types.RouteKind `json:"kind"`
}

// FeeEstimator quotes the router fee for a directed route.
type FeeEstimator interface {
	Estimate(ctx context.Context, src, dst *types.NetworkDescriptor) (Fee, error)
}

// StaticFeeTable is a fixed per-route-family heuristic. It is an
// approximation, not a live router quote.
type StaticFeeTable map[types.RouteKind]decimal.Decimal

// DefaultFeeTable returns the built-in heuristic.
func DefaultFeeTable() StaticFeeTable {
	return StaticFeeTable{
		types.RouteEVMToEVM:    decimal.RequireFromString("0.01"),
		types.RouteEVMToSolana: decimal.RequireFromString("0.02"),
		types.RouteSolanaToEVM: decimal.RequireFromString("0.015"),
	}
}

// Estimate implements FeeEstimator.
func (t StaticFeeTable) Estimate(_ context.Context, src, dst *types.NetworkDescriptor) (Fee, error) {
	kind, ok := types.RouteKindFor(src.Family, dst.Family)
	if !ok {
		return Fee{}, types.NewError(types.ErrRouteNotSupported,
			"no route family for %s -> %s", src.Family, dst.Family)
	}
	amount, ok := t[kind]
	if !ok {
		return Fee{}, types.NewError(types.ErrRouteNotSupported, "no fee configured for %s routes", kind)
	}
	return Fee{Amount: amount, Symbol: src.NativeSymbol, Kind: kind}, nil
}
