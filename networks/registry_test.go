package networks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/arpay/types"
	"github.com/vitwit/arpay/utils"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Len(t, r.All(), 7)
	assert.Len(t, r.ByFamily(types.ChainSolana), 1)
	assert.Len(t, r.ByFamily(types.ChainEVM), 6)

	sepolia := r.Get(EthereumSepolia)
	require.NotNil(t, sepolia)
	assert.Equal(t, uint64(16015286601757825753), sepolia.ChainSelector)
	assert.Equal(t, uint64(11155111), sepolia.NumericChainID)
	assert.True(t, sepolia.AcceptsFeeToken("LINK"))
	assert.True(t, sepolia.AcceptsFeeToken("ETH"))
	assert.False(t, sepolia.AcceptsFeeToken("CCIP-BnM"))

	assert.Nil(t, r.Get("1"))
	_, err := r.MustGet("1")
	assert.True(t, types.IsCode(err, types.ErrUnknownNetwork))
}

func TestCatalogAddressesAreValid(t *testing.T) {
	for _, d := range Catalog() {
		t.Run(d.Name, func(t *testing.T) {
			if d.RouterOrProgramAddress != "" {
				assert.NoError(t, utils.ValidateAddressForFamily(d.RouterOrProgramAddress, d.Family))
			}
			for symbol, addr := range d.TokenAddresses {
				assert.NoError(t, utils.ValidateAddressForFamily(addr, d.Family), symbol)
				_, ok := d.TokenDecimals[symbol]
				assert.True(t, ok, "missing decimals for %s", symbol)
			}
			for dst := range d.SupportedDestinations {
				assert.NotEqual(t, d.ChainID, dst)
			}
		})
	}
}

func TestCatalogRoutesAreDirected(t *testing.T) {
	r := DefaultRegistry()

	assert.True(t, r.Get(SolanaDevnet).SupportsDestination(EthereumSepolia))
	assert.True(t, r.Get(AvalancheFuji).SupportsDestination(SolanaDevnet))
	assert.False(t, r.Get(SolanaDevnet).SupportsDestination(AvalancheFuji))
	assert.Empty(t, r.Get(BlockDAGPrimordial).Destinations())
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	d := &types.NetworkDescriptor{ChainID: "1", Family: types.ChainEVM}
	_, err := NewRegistry(d, d)
	assert.True(t, types.IsCode(err, types.ErrConfigError))

	_, err = NewRegistry(&types.NetworkDescriptor{ChainID: "2", Family: "cosmos"})
	assert.True(t, types.IsCode(err, types.ErrConfigError))
}
