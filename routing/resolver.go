// Package routing answers whether a payment can move between two chains and
// builds the transaction intents that move it, either as a direct transfer on
// one chain or as a router-mediated cross-chain message.
package routing

import (
	"context"
	"sort"

	"github.com/vitwit/arpay/logger"
	"github.com/vitwit/arpay/networks"
	"github.com/vitwit/arpay/types"
)

const (
	defaultGasLimit     = 200_000
	defaultComputeUnits = 200_000
)

type routeKey struct {
	src, dst types.ChainID
}

// Resolver is read-only after construction and safe for concurrent use.
type Resolver struct {
	registry *networks.Registry
	fees     FeeEstimator
	logger   logger.Logger

	gasLimit        uint64
	computeUnits    uint32
	allowOutOfOrder bool
	defaultFeeToken string

	routes map[types.RouteKind]map[routeKey]struct{}
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFeeEstimator replaces the static fee table.
func WithFeeEstimator(f FeeEstimator) Option {
	return func(r *Resolver) {
		if f != nil {
			r.fees = f
		}
	}
}

// WithGasLimit sets the destination execution gas limit carried in EVM extra args.
func WithGasLimit(gas uint64) Option {
	return func(r *Resolver) {
		if gas > 0 {
			r.gasLimit = gas
		}
	}
}

// WithComputeUnits sets the compute unit limit carried in Solana extra args.
func WithComputeUnits(units uint32) Option {
	return func(r *Resolver) {
		r.computeUnits = units
	}
}

// WithAllowOutOfOrder sets the out-of-order execution flag of extra args.
func WithAllowOutOfOrder(allow bool) Option {
	return func(r *Resolver) {
		r.allowOutOfOrder = allow
	}
}

// WithDefaultFeeToken sets the fee token used when a caller has no preference.
func WithDefaultFeeToken(symbol string) Option {
	return func(r *Resolver) {
		r.defaultFeeToken = symbol
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver builds the directed route sets from the registry's
// descriptors. Destinations that are not registered, and family pairs with no
// route set, are ignored.
func NewResolver(registry *networks.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry:        registry,
		fees:            DefaultFeeTable(),
		logger:          &logger.NoopLogger{},
		gasLimit:        defaultGasLimit,
		computeUnits:    defaultComputeUnits,
		allowOutOfOrder: true,
		routes: map[types.RouteKind]map[routeKey]struct{}{
			types.RouteEVMToEVM:    {},
			types.RouteEVMToSolana: {},
			types.RouteSolanaToEVM: {},
		},
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, src := range registry.All() {
		for _, dstID := range src.Destinations() {
			dst := registry.Get(dstID)
			if dst == nil {
				r.logger.Warn("ignoring route to unregistered network", map[string]any{
					"source":      src.ChainID,
					"destination": dstID,
				})
				continue
			}
			kind, ok := types.RouteKindFor(src.Family, dst.Family)
			if !ok {
				continue
			}
			r.routes[kind][routeKey{src.ChainID, dstID}] = struct{}{}
		}
	}

	return r
}

// Registry returns the network registry the resolver was built from.
func (r *Resolver) Registry() *networks.Registry {
	return r.registry
}

// IsCrossChainTransfer reports whether src and dst differ.
func (r *Resolver) IsCrossChainTransfer(src, dst types.ChainID) bool {
	return src != dst
}

// IsRouteSupported reports whether src -> dst belongs to one of the directed
// route sets. It is false when either chain is unregistered, and support for
// dst -> src implies nothing.
func (r *Resolver) IsRouteSupported(src, dst types.ChainID) bool {
	if !r.registry.Has(src) || !r.registry.Has(dst) {
		return false
	}
	key := routeKey{src, dst}
	for _, set := range r.routes {
		if _, ok := set[key]; ok {
			return true
		}
	}
	return false
}

// Routes returns every supported directed route ordered by source then
// destination.
func (r *Resolver) Routes() []types.Route {
	var out []types.Route
	for kind, set := range r.routes {
		for key := range set {
			out = append(out, types.Route{Source: key.src, Destination: key.dst, Kind: kind})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Destination < out[j].Destination
	})
	return out
}

// RoutesFrom returns the supported destinations of src.
func (r *Resolver) RoutesFrom(src types.ChainID) []types.Route {
	var out []types.Route
	for _, route := range r.Routes() {
		if route.Source == src {
			out = append(out, route)
		}
	}
	return out
}

// EstimateFee quotes the router fee for src -> dst.
func (r *Resolver) EstimateFee(ctx context.Context, src, dst types.ChainID) (Fee, error) {
	srcDesc, dstDesc, err := r.descriptors(src, dst)
	if err != nil {
		return Fee{}, err
	}
	if !r.IsRouteSupported(src, dst) {
		return Fee{}, types.NewError(types.ErrRouteNotSupported, "route %s -> %s is not supported", src, dst)
	}
	return r.fees.Estimate(ctx, srcDesc, dstDesc)
}

func (r *Resolver) descriptors(src, dst types.ChainID) (*types.NetworkDescriptor, *types.NetworkDescriptor, error) {
	srcDesc, err := r.registry.MustGet(src)
	if err != nil {
		return nil, nil, err
	}
	dstDesc, err := r.registry.MustGet(dst)
	if err != nil {
		return nil, nil, err
	}
	return srcDesc, dstDesc, nil
}
