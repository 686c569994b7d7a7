package vault

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	errNilState         = errors.New("vault engine: state not configured")
	errNilOracle        = errors.New("vault engine: oracle not configured")
	errNilDebtToken     = errors.New("vault engine: debt token not configured")
	errNoTokenBinding   = errors.New("vault engine: collateral token not bound")
	ErrInvalidAmount    = errors.New("vault engine: amount must be positive")
	ErrUnsupportedAsset = errors.New("vault engine: collateral asset not supported")
	ErrConfigMismatch   = errors.New("vault engine: asset and price feed lists must be the same length")
	ErrTransferFailed   = errors.New("vault engine: external transfer failed")
	ErrMintFailed       = errors.New("vault engine: debt unit mint failed")
	ErrHealthFactor     = errors.New("vault engine: health factor below minimum")
	ErrNotLiquidatable  = errors.New("vault engine: position not eligible for liquidation")
	ErrNotImproved      = errors.New("vault engine: liquidation did not improve health factor")
	ErrReentrant        = errors.New("vault engine: reentrant call")
)

// HealthFactorError carries the offending ratio alongside the violation so
// callers can report how far below the minimum the position landed.
// errors.Is(err, ErrHealthFactor) matches it.
type HealthFactorError struct {
	Ratio *big.Int
}

func (e *HealthFactorError) Error() string {
	return fmt.Sprintf("%s: ratio %s", ErrHealthFactor, e.Ratio)
}

func (e *HealthFactorError) Unwrap() error {
	return ErrHealthFactor
}

func healthFactorViolation(ratio *big.Int) error {
	return &HealthFactorError{Ratio: new(big.Int).Set(ratio)}
}
