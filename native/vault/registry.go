package vault

import (
	"github.com/056xyz/StableCoin/crypto"
)

// Registry is the ordered set of supported collateral assets, each bound to
// the price feed identifier used to value it. The set is fixed at
// construction; there is no add or remove operation.
type Registry struct {
	assets []crypto.Address
	feeds  map[string]string
}

// NewRegistry binds each asset to its price feed. The two lists are parallel
// and must have equal length. A repeated asset is rejected: the slice keeps
// every occurrence while the feed map collapses them, and a double entry
// would value the same balance twice.
func NewRegistry(assets []crypto.Address, feeds []string) (*Registry, error) {
	if len(assets) != len(feeds) {
		return nil, ErrConfigMismatch
	}
	r := &Registry{
		assets: make([]crypto.Address, 0, len(assets)),
		feeds:  make(map[string]string, len(assets)),
	}
	for i, asset := range assets {
		if _, exists := r.feeds[assetKey(asset)]; exists {
			return nil, ErrConfigMismatch
		}
		r.assets = append(r.assets, asset)
		r.feeds[assetKey(asset)] = feeds[i]
	}
	return r, nil
}

func assetKey(asset crypto.Address) string {
	return string(asset.Bytes())
}

// Assets returns the supported assets in registration order.
func (r *Registry) Assets() []crypto.Address {
	return append([]crypto.Address{}, r.assets...)
}

// Feed returns the price feed identifier bound to the asset.
func (r *Registry) Feed(asset crypto.Address) (string, bool) {
	feed, ok := r.feeds[assetKey(asset)]
	return feed, ok
}

// Supported reports whether the asset is registered as collateral.
func (r *Registry) Supported(asset crypto.Address) bool {
	_, ok := r.feeds[assetKey(asset)]
	return ok
}
