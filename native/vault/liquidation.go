package vault

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/056xyz/StableCoin/crypto"
)

// Liquidate lets a third party repay part of an undercollateralized user's
// debt in exchange for the debt-equivalent collateral plus a 10% bonus. The
// price is read once and used for the whole seizure computation; the call
// fails unless it strictly improves the user's health factor, and the
// liquidator's own position must end the call healthy.
func (e *Engine) Liquidate(liquidator, user, asset crypto.Address, debtToCover *big.Int) error {
	if err := e.guard.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	if err := e.ready(); err != nil {
		return err
	}
	if debtToCover == nil || debtToCover.Sign() <= 0 {
		return ErrInvalidAmount
	}
	tok, err := e.collateralToken(asset)
	if err != nil {
		return err
	}

	j := newJournal(e.state)
	undo := &rollback{}

	starting, err := e.healthOf(j, user)
	if err != nil {
		return err
	}
	if starting.Cmp(minHealthFactor) >= 0 {
		return ErrNotLiquidatable
	}

	price, err := e.price(asset)
	if err != nil {
		return err
	}
	base := tokenAmountFromUsd(price, debtToCover)
	bonus := new(big.Int).Mul(base, liquidationBonus)
	bonus.Quo(bonus, liquidationPrecision)
	seize := new(big.Int).Add(base, bonus)

	balance, err := j.collateralOf(user, asset)
	if err != nil {
		return err
	}
	if balance.Cmp(seize) < 0 {
		return fmt.Errorf("%w: collateral balance %s below seizure %s", ErrInvalidAmount, balance, seize)
	}
	j.setCollateral(user, asset, new(big.Int).Sub(balance, seize))

	debt, err := j.debtOf(user)
	if err != nil {
		return err
	}
	if debt.Cmp(debtToCover) < 0 {
		return fmt.Errorf("%w: outstanding debt %s below cover %s", ErrInvalidAmount, debt, debtToCover)
	}
	j.setDebt(user, new(big.Int).Sub(debt, debtToCover))

	// Repay: pull the cover amount from the liquidator and burn it.
	if err := e.debt.TransferFrom(liquidator, e.moduleAddress, debtToCover); err != nil {
		return undo.abort(fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	undo.record(func() error { return e.debt.Transfer(liquidator, debtToCover) })
	if err := e.debt.Burn(debtToCover); err != nil {
		return undo.abort(fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	undo.record(func() error { return e.debt.Mint(e.moduleAddress, debtToCover) })

	ending, err := e.healthOf(j, user)
	if err != nil {
		return undo.abort(err)
	}
	if ending.Cmp(starting) <= 0 {
		return undo.abort(ErrNotImproved)
	}
	if err := e.revertIfUnhealthy(j, liquidator); err != nil {
		return undo.abort(err)
	}

	// Pay out the seized collateral last, once the call is certain to commit.
	if err := tok.Transfer(liquidator, seize); err != nil {
		return undo.abort(fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	undo.record(func() error { return tok.TransferFrom(liquidator, e.moduleAddress, seize) })

	if err := j.commit(); err != nil {
		return undo.abort(err)
	}

	e.emitter.Emit(PositionLiquidated{
		ID:               uuid.New(),
		Liquidator:       liquidator,
		User:             user,
		Asset:            asset,
		DebtCovered:      new(big.Int).Set(debtToCover),
		CollateralSeized: seize,
	})
	return nil
}
