package networks

import "github.com/vitwit/arpay/types"

// Chain identifiers of the built-in catalog.
const (
	BlockDAGPrimordial types.ChainID = "1043"
	EthereumSepolia    types.ChainID = "11155111"
	ArbitrumSepolia    types.ChainID = "421614"
	BaseSepolia        types.ChainID = "84532"
	AvalancheFuji      types.ChainID = "43113"
	PolygonAmoy        types.ChainID = "80002"
	SolanaDevnet       types.ChainID = "solana-devnet"
)

// Token symbols shared across the catalog.
const (
	TokenCCIPBnM = "CCIP-BnM"
	TokenLINK    = "LINK"
	TokenUSDC    = "USDC"
)

func set[K comparable](keys ...K) map[K]struct{} {
	out := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

func evmTestnet(id types.ChainID, name string, numeric, selector uint64, router, native, bnm, link string, dests ...types.ChainID) *types.NetworkDescriptor {
	return &types.NetworkDescriptor{
		ChainID:                id,
		Name:                   name,
		Family:                 types.ChainEVM,
		NumericChainID:         numeric,
		ChainSelector:          selector,
		Testnet:                true,
		RouterOrProgramAddress: router,
		NativeSymbol:           native,
		NativeDecimals:         18,
		TokenAddresses: map[string]string{
			TokenCCIPBnM: bnm,
			TokenLINK:    link,
		},
		TokenDecimals: map[string]int{
			TokenCCIPBnM: 18,
			TokenLINK:    18,
		},
		FeeTokenOptions:       set(native, TokenLINK),
		SupportedDestinations: set(dests...),
	}
}

// Catalog returns fresh copies of the built-in testnet descriptors.
//
// Route tables are directed: Solana Devnet reaches Sepolia, Arbitrum and Base
// but not Fuji, while Fuji does reach Solana Devnet.
func Catalog() []*types.NetworkDescriptor {
	sepolia := evmTestnet(EthereumSepolia, "Ethereum Sepolia", 11155111, 16015286601757825753,
		"0x0BF3dE8c5D3e8A2B34D2BEeB17ABfCeBaf363A59", "ETH",
		"0xFd57b4ddBf88a4e07fF4e34C487b99af2Fe82a05", "0x779877A7B0D9E8603169DdbD7836e478b4624789",
		ArbitrumSepolia, BaseSepolia, AvalancheFuji, PolygonAmoy, SolanaDevnet)
	sepolia.TokenAddresses[TokenUSDC] = "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
	sepolia.TokenDecimals[TokenUSDC] = 6

	return []*types.NetworkDescriptor{
		{
			ChainID:               BlockDAGPrimordial,
			Name:                  "BlockDAG Primordial",
			Family:                types.ChainEVM,
			NumericChainID:        1043,
			Testnet:               true,
			NativeSymbol:          "BDAG",
			NativeDecimals:        18,
			TokenAddresses:        map[string]string{},
			TokenDecimals:         map[string]int{},
			FeeTokenOptions:       set("BDAG"),
			SupportedDestinations: set[types.ChainID](),
		},
		sepolia,
		evmTestnet(ArbitrumSepolia, "Arbitrum Sepolia", 421614, 3478487238524512106,
			"0x2a9C5afB0d0e4BAb2BCdaE109EC4b0c4Be15a165", "ETH",
			"0xA8C0c11bf64AF62CDCA6f93D3769B88BdD7cb93D", "0xb1D4538B4571d411F07960EF2838Ce337FE1E80E",
			EthereumSepolia, BaseSepolia, SolanaDevnet),
		evmTestnet(BaseSepolia, "Base Sepolia", 84532, 10344971235874465080,
			"0xD3b06cEbF099CE7DA4AcCf578aaebFDBd6e88a93", "ETH",
			"0x88A2d74F47a237a62e7A51cdDa67270CE381555e", "0xE4aB69C077896252FAFBD49EFD26B5D171A32410",
			EthereumSepolia, ArbitrumSepolia, SolanaDevnet),
		evmTestnet(AvalancheFuji, "Avalanche Fuji", 43113, 14767482510784806043,
			"0xF694E193200268f9a4868e4Aa017A0118C9a8177", "AVAX",
			"0xD21341536c5cF5EB1bcb58f6723cE26e8D8E90e4", "0x0b9d5D9136855f6FEc3c0993feE6E9CE8a297846",
			EthereumSepolia, SolanaDevnet),
		evmTestnet(PolygonAmoy, "Polygon Amoy", 80002, 16281711391670634445,
			"0x9C32fCB86BF0f4a1A8921a9Fe46de3198bb884B2", "POL",
			"0xcab0EF91Bee323d1A617c0a027eE753aFd6997E4", "0x0Fd9e8d3aF1aaee056EB9e802c3A762a667b1904",
			EthereumSepolia),
		{
			ChainID:                SolanaDevnet,
			Name:                   "Solana Devnet",
			Family:                 types.ChainSolana,
			ChainSelector:          16423721717087811551,
			Testnet:                true,
			RouterOrProgramAddress: "Ccip842gzYHhvdDkSyi2YVCoAWPbYJoApMFzSxQroE9C",
			NativeSymbol:           "SOL",
			NativeDecimals:         9,
			TokenAddresses: map[string]string{
				TokenCCIPBnM: "3PjyGzj1jGVgHSKS4VR1Hr1memm63PmN8L9rtPDKwzZ6",
				TokenLINK:    "LinkhB3afbBKb2EQQu7s7umdZceV3wcvAUJhQAfQ23L",
			},
			TokenDecimals: map[string]int{
				TokenCCIPBnM: 9,
				TokenLINK:    9,
			},
			FeeTokenOptions:       set("SOL", TokenLINK),
			SupportedDestinations: set(EthereumSepolia, ArbitrumSepolia, BaseSepolia),
		},
	}
}
