package types

import "sort"

// ChainFamily classifies a network into a blockchain family.
type ChainFamily string

const (
	ChainEVM    ChainFamily = "evm"
	ChainSolana ChainFamily = "solana"
)

func (f ChainFamily) String() string {
	return string(f)
}

// ChainID identifies a network. EVM networks use their decimal chain id
// ("1043", "11155111"); Solana clusters use a cluster name ("solana-devnet").
type ChainID string

func (c ChainID) String() string {
	return string(c)
}

// NetworkDescriptor is the static description of a chain the payment layer can
// target. Descriptors are loaded once and never mutated afterwards.
type NetworkDescriptor struct {
	ChainID        ChainID     `json:"chainId"`
	Name           string      `json:"name"`
	Family         ChainFamily `json:"family"`
	NumericChainID uint64      `json:"numericChainId,omitempty"` // EVM only, used in EIP-681 URIs
	ChainSelector  uint64      `json:"chainSelector,omitempty"`  // cross-chain router selector
	Testnet        bool        `json:"testnet"`

	// Router contract (EVM) or router program (Solana). Empty when the chain
	// has no cross-chain router deployed.
	RouterOrProgramAddress string `json:"routerOrProgramAddress,omitempty"`

	NativeSymbol   string `json:"nativeSymbol"`
	NativeDecimals int    `json:"nativeDecimals"`

	TokenAddresses        map[string]string    `json:"tokenAddresses"` // symbol -> contract / mint
	TokenDecimals         map[string]int       `json:"tokenDecimals"`
	FeeTokenOptions       map[string]struct{}  `json:"-"`
	SupportedDestinations map[ChainID]struct{} `json:"-"`
}

// TokenAddress returns the contract (EVM) or mint (Solana) of a token symbol.
func (d *NetworkDescriptor) TokenAddress(symbol string) (string, bool) {
	addr, ok := d.TokenAddresses[symbol]
	return addr, ok
}

// IsNative reports whether symbol is the chain's native currency.
func (d *NetworkDescriptor) IsNative(symbol string) bool {
	return symbol == "" || symbol == d.NativeSymbol
}

// KnownDecimals returns the registered decimals of symbol on this chain.
func (d *NetworkDescriptor) KnownDecimals(symbol string) (int, bool) {
	if d.IsNative(symbol) {
		return d.NativeDecimals, true
	}
	dec, ok := d.TokenDecimals[symbol]
	return dec, ok
}

// AcceptsFeeToken reports whether symbol may be used to pay router fees.
func (d *NetworkDescriptor) AcceptsFeeToken(symbol string) bool {
	_, ok := d.FeeTokenOptions[symbol]
	return ok
}

// SupportsDestination reports whether the descriptor lists dst as a
// cross-chain destination.
func (d *NetworkDescriptor) SupportsDestination(dst ChainID) bool {
	_, ok := d.SupportedDestinations[dst]
	return ok
}

// Destinations returns the supported destinations in a stable order.
func (d *NetworkDescriptor) Destinations() []ChainID {
	out := make([]ChainID, 0, len(d.SupportedDestinations))
	for id := range d.SupportedDestinations {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RouteKind is one of the three disjoint directed route sets.
type RouteKind string

const (
	RouteEVMToEVM    RouteKind = "evm-evm"
	RouteEVMToSolana RouteKind = "evm-solana"
	RouteSolanaToEVM RouteKind = "solana-evm"
)

// Route is a directed (source, destination) pair.
type Route struct {
	Source      ChainID   `json:"source"`
	Destination ChainID   `json:"destination"`
	Kind        RouteKind `json:"kind"`
}

// RouteKindFor returns the route set a family pair belongs to. The second
// return value is false for pairs that have no route set (Solana -> Solana).
func RouteKindFor(src, dst ChainFamily) (RouteKind, bool) {
	switch {
	case src == ChainEVM && dst == ChainEVM:
		return RouteEVMToEVM, true
	case src == ChainEVM && dst == ChainSolana:
		return RouteEVMToSolana, true
	case src == ChainSolana && dst == ChainEVM:
		return RouteSolanaToEVM, true
	default:
		return "", false
	}
}
