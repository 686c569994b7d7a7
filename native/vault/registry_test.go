package vault

import (
	"testing"

	"github.com/056xyz/StableCoin/crypto"
)

func TestRegistryMismatchedListsRejected(t *testing.T) {
	assets := []crypto.Address{makeAddress(0x01), makeAddress(0x02)}
	registry, err := NewRegistry(assets, []string{"ETH-USD"})
	requireErrIs(t, err, ErrConfigMismatch)
	if registry != nil {
		t.Fatalf("registry = %+v, want nil on mismatch", registry)
	}
}

func TestRegistryLookups(t *testing.T) {
	weth := makeAddress(0x01)
	wbtc := makeAddress(0x02)
	registry, err := NewRegistry([]crypto.Address{weth, wbtc}, []string{"ETH-USD", "BTC-USD"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	if !registry.Supported(weth) || !registry.Supported(wbtc) {
		t.Fatal("registered assets not supported")
	}
	if registry.Supported(makeAddress(0x03)) {
		t.Fatal("unregistered asset reported as supported")
	}

	feed, ok := registry.Feed(wbtc)
	if !ok || feed != "BTC-USD" {
		t.Fatalf("feed = %q, %v", feed, ok)
	}

	assets := registry.Assets()
	if len(assets) != 2 || !assets[0].Equal(weth) || !assets[1].Equal(wbtc) {
		t.Fatalf("assets = %v, want registration order preserved", assets)
	}
}

func TestRegistryAssetsReturnsCopy(t *testing.T) {
	weth := makeAddress(0x01)
	registry, err := NewRegistry([]crypto.Address{weth}, []string{"ETH-USD"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	assets := registry.Assets()
	assets[0] = makeAddress(0x7f)
	if !registry.Assets()[0].Equal(weth) {
		t.Fatal("mutating the returned slice changed the registry")
	}
}

func TestRegistryRejectsDuplicateAsset(t *testing.T) {
	asset := makeAddress(0x02)
	registry, err := NewRegistry([]crypto.Address{asset, asset}, []string{"ETH-USD", "ETH2-USD"})
	requireErrIs(t, err, ErrConfigMismatch)
	if registry != nil {
		t.Fatalf("registry = %+v, want nil on duplicate asset", registry)
	}
}
