package vault

import (
	"math/big"

	"github.com/056xyz/StableCoin/crypto"
)

// Read API. Every valuation consults the oracle's current reading; nothing
// here is cached or snapshotted across calls.

// AccountInformation returns the user's minted debt and the USD value of
// their collateral.
func (e *Engine) AccountInformation(user crypto.Address) (*big.Int, *big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	j := newJournal(e.state)
	debt, err := j.debtOf(user)
	if err != nil {
		return nil, nil, err
	}
	value, err := e.collateralValueOf(j, user)
	if err != nil {
		return nil, nil, err
	}
	return debt, value, nil
}

// HealthFactor returns the user's current safety ratio on the 1e18 scale.
func (e *Engine) HealthFactor(user crypto.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.healthOf(newJournal(e.state), user)
}

// AccountCollateralValue returns the USD value of the user's collateral
// across all registered assets.
func (e *Engine) AccountCollateralValue(user crypto.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.collateralValueOf(newJournal(e.state), user)
}

// CollateralBalance returns the user's deposited amount of one asset.
func (e *Engine) CollateralBalance(user, asset crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !e.registry.Supported(asset) {
		return nil, ErrUnsupportedAsset
	}
	return newJournal(e.state).collateralOf(user, asset)
}

// UsdValue converts an asset amount into its USD value at the current price.
func (e *Engine) UsdValue(asset crypto.Address, amount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	price, err := e.price(asset)
	if err != nil {
		return nil, err
	}
	return usdValue(price, amount), nil
}

// TokenAmountFromUsd converts a USD value into an asset amount at the
// current price.
func (e *Engine) TokenAmountFromUsd(asset crypto.Address, usd *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	price, err := e.price(asset)
	if err != nil {
		return nil, err
	}
	return tokenAmountFromUsd(price, usd), nil
}

// CollateralAssets returns the registered assets in registration order.
func (e *Engine) CollateralAssets() []crypto.Address {
	return e.registry.Assets()
}
