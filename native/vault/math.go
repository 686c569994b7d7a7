package vault

import "math/big"

// Fixed-point scales. Ledger amounts and USD values carry 18 decimal places;
// price feeds report 8. The bridge multiplier lifts a feed price onto the
// ledger scale before any division happens.
var (
	precision               = mustBigInt("1000000000000000000")  // 1e18
	additionalFeedPrecision = big.NewInt(10_000_000_000)         // 1e10
	minHealthFactor         = mustBigInt("1000000000000000000")  // unit ratio
	maxHealthFactor         = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

var (
	liquidationThreshold = big.NewInt(50)
	liquidationPrecision = big.NewInt(100)
	liquidationBonus     = big.NewInt(10)
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// usdValue converts a token amount into its USD value on the ledger scale:
// price (1e8) is lifted to 1e18, multiplied by the amount, then scaled back
// down. Multiplications happen before the single division to preserve
// precision.
func usdValue(price, amount *big.Int) *big.Int {
	value := new(big.Int).Mul(price, additionalFeedPrecision)
	value.Mul(value, amount)
	return value.Quo(value, precision)
}

// tokenAmountFromUsd converts a USD value back into a token amount at the
// supplied feed price.
func tokenAmountFromUsd(price, usd *big.Int) *big.Int {
	numerator := new(big.Int).Mul(usd, precision)
	denominator := new(big.Int).Mul(price, additionalFeedPrecision)
	return numerator.Quo(numerator, denominator)
}

// healthFactor maps a position's debt and margin-adjusted collateral value to
// a safety ratio on the 1e18 scale. Zero debt is unconditionally safe and
// returns the max sentinel. Division truncates at each step, in this order.
func healthFactor(debt, collateralValueUsd *big.Int) *big.Int {
	if debt == nil || debt.Sign() == 0 {
		return new(big.Int).Set(maxHealthFactor)
	}
	adjusted := new(big.Int).Mul(collateralValueUsd, liquidationThreshold)
	adjusted.Quo(adjusted, liquidationPrecision)
	adjusted.Mul(adjusted, precision)
	return adjusted.Quo(adjusted, debt)
}

// --- constant getters ---

// Precision returns the ledger fixed-point scale (1e18).
func Precision() *big.Int { return new(big.Int).Set(precision) }

// MinHealthFactor returns the minimum acceptable safety ratio (unit ratio on
// the 1e18 scale). The boundary is inclusive.
func MinHealthFactor() *big.Int { return new(big.Int).Set(minHealthFactor) }

// LiquidationThreshold returns the percentage of collateral value counted
// toward the health factor.
func LiquidationThreshold() *big.Int { return new(big.Int).Set(liquidationThreshold) }

// LiquidationPrecision returns the divisor paired with the threshold and
// bonus percentages.
func LiquidationPrecision() *big.Int { return new(big.Int).Set(liquidationPrecision) }

// LiquidationBonus returns the extra collateral percentage paid to a
// liquidator on top of the debt-equivalent seizure.
func LiquidationBonus() *big.Int { return new(big.Int).Set(liquidationBonus) }
