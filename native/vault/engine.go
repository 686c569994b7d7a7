package vault

import (
	"fmt"
	"math/big"

	"github.com/056xyz/StableCoin/crypto"
	"github.com/056xyz/StableCoin/native/oracle"
)

// Engine orchestrates the collateral and debt ledgers. It is the only
// component that mutates them: every public operation validates its inputs,
// stages ledger writes in a journal, performs the external token calls, and
// commits only when the whole sequence succeeded.
type Engine struct {
	state         engineState
	registry      *Registry
	oracle        oracle.Source
	debt          DebtToken
	collateral    map[string]CollateralToken
	moduleAddress crypto.Address
	emitter       Emitter
	guard         reentrancyGuard
}

// NewEngine constructs an engine bound to its custody account and the fixed
// collateral registry.
func NewEngine(moduleAddr crypto.Address, registry *Registry) *Engine {
	return &Engine{
		registry:      registry,
		collateral:    make(map[string]CollateralToken),
		moduleAddress: moduleAddr,
		emitter:       NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetOracle wires the price source consulted on every valuation.
func (e *Engine) SetOracle(source oracle.Source) { e.oracle = source }

// SetDebtToken wires the synthetic debt unit capability.
func (e *Engine) SetDebtToken(tok DebtToken) { e.debt = tok }

// BindCollateralToken attaches the transfer capability for a registered
// asset.
func (e *Engine) BindCollateralToken(asset crypto.Address, tok CollateralToken) {
	e.collateral[assetKey(asset)] = tok
}

// SetEmitter wires the event sink. A nil emitter restores the default noop.
func (e *Engine) SetEmitter(emitter Emitter) {
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	e.emitter = emitter
}

// ModuleAddress returns the engine's custody account.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.oracle == nil {
		return errNilOracle
	}
	if e.debt == nil {
		return errNilDebtToken
	}
	return nil
}

func (e *Engine) collateralToken(asset crypto.Address) (CollateralToken, error) {
	if !e.registry.Supported(asset) {
		return nil, ErrUnsupportedAsset
	}
	tok, ok := e.collateral[assetKey(asset)]
	if !ok {
		return nil, errNoTokenBinding
	}
	return tok, nil
}

// price resolves the current feed price for an asset. A zero or stale
// reading surfaces as an error, never as a zero value.
func (e *Engine) price(asset crypto.Address) (*big.Int, error) {
	feed, ok := e.registry.Feed(asset)
	if !ok {
		return nil, ErrUnsupportedAsset
	}
	quote, err := e.oracle.GetPrice(feed)
	if err != nil {
		return nil, err
	}
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: feed %s", oracle.ErrInvalidQuote, feed)
	}
	return quote.Price, nil
}

// collateralValueOf sums the USD value of every registered asset the user
// holds, at spot prices.
func (e *Engine) collateralValueOf(j *journal, user crypto.Address) (*big.Int, error) {
	total := big.NewInt(0)
	for _, asset := range e.registry.Assets() {
		amount, err := j.collateralOf(user, asset)
		if err != nil {
			return nil, err
		}
		if amount.Sign() == 0 {
			continue
		}
		price, err := e.price(asset)
		if err != nil {
			return nil, err
		}
		total.Add(total, usdValue(price, amount))
	}
	return total, nil
}

func (e *Engine) healthOf(j *journal, user crypto.Address) (*big.Int, error) {
	debt, err := j.debtOf(user)
	if err != nil {
		return nil, err
	}
	if debt.Sign() == 0 {
		return new(big.Int).Set(maxHealthFactor), nil
	}
	value, err := e.collateralValueOf(j, user)
	if err != nil {
		return nil, err
	}
	return healthFactor(debt, value), nil
}

func (e *Engine) revertIfUnhealthy(j *journal, user crypto.Address) error {
	ratio, err := e.healthOf(j, user)
	if err != nil {
		return err
	}
	if ratio.Cmp(minHealthFactor) < 0 {
		return healthFactorViolation(ratio)
	}
	return nil
}

// DepositCollateral pulls the asset from the user into engine custody and
// credits their collateral balance.
func (e *Engine) DepositCollateral(user, asset crypto.Address, amount *big.Int) error {
	if err := e.guard.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	if err := e.ready(); err != nil {
		return err
	}
	j := newJournal(e.state)
	undo := &rollback{}
	if err := e.depositCollateral(j, undo, user, asset, amount); err != nil {
		return undo.abort(err)
	}
	if err := j.commit(); err != nil {
		return undo.abort(err)
	}
	e.emitter.Emit(CollateralDeposited{User: user, Asset: asset, Amount: new(big.Int).Set(amount)})
	return nil
}

// MintDebt issues new debt units to the user, provided their position stays
// at or above the minimum health factor.
func (e *Engine) MintDebt(user crypto.Address, amount *big.Int) error {
	if err := e.guard.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	if err := e.ready(); err != nil {
		return err
	}
	j := newJournal(e.state)
	undo := &rollback{}
	if err := e.mintDebt(j, undo, user, amount); err != nil {
		return undo.abort(err)
	}
	if err := j.commit(); err != nil {
		return undo.abort(err)
	}
	e.emitter.Emit(DebtMinted{User: user, Amount: new(big.Int).Set(amount)})
	return nil
}

// RedeemCollateral releases collateral from the user's position and pays it
// to the designated recipient. A user with zero debt can redeem down to zero
// collateral.
func (e *Engine) RedeemCollateral(user, to, asset crypto.Address, amount *big.Int) error {
	if err := e.guard.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	if err := e.ready(); err != nil {
		return err
	}
	j := newJournal(e.state)
	undo := &rollback{}
	if err := e.redeemCollateral(j, undo, user, to, asset, amount); err != nil {
		return undo.abort(err)
	}
	if err := j.commit(); err != nil {
		return undo.abort(err)
	}
	e.emitter.Emit(CollateralRedeemed{User: user, To: to, Asset: asset, Amount: new(big.Int).Set(amount)})
	return nil
}

// BurnDebt repays debt by pulling units from the user into custody and
// destroying them.
func (e *Engine) BurnDebt(user crypto.Address, amount *big.Int) error {
	if err := e.guard.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	if err := e.ready(); err != nil {
		return err
	}
	j := newJournal(e.state)
	undo := &rollback{}
	if err := e.burnDebt(j, undo, user, user, amount); err != nil {
		return undo.abort(err)
	}
	if err := j.commit(); err != nil {
		return undo.abort(err)
	}
	e.emitter.Emit(DebtBurned{User: user, Amount: new(big.Int).Set(amount)})
	return nil
}

// DepositAndMint composes a deposit and a mint in one atomic operation.
func (e *Engine) DepositAndMint(user, asset crypto.Address, collateralAmount, debtAmount *big.Int) error {
	if err := e.guard.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	if err := e.ready(); err != nil {
		return err
	}
	j := newJournal(e.state)
	undo := &rollback{}
	if err := e.depositCollateral(j, undo, user, asset, collateralAmount); err != nil {
		return undo.abort(err)
	}
	if err := e.mintDebt(j, undo, user, debtAmount); err != nil {
		return undo.abort(err)
	}
	if err := j.commit(); err != nil {
		return undo.abort(err)
	}
	e.emitter.Emit(CollateralDeposited{User: user, Asset: asset, Amount: new(big.Int).Set(collateralAmount)})
	e.emitter.Emit(DebtMinted{User: user, Amount: new(big.Int).Set(debtAmount)})
	return nil
}

// BurnAndRedeem composes a debt repayment and a collateral redemption in one
// atomic operation.
func (e *Engine) BurnAndRedeem(user, asset crypto.Address, collateralAmount, debtAmount *big.Int) error {
	if err := e.guard.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	if err := e.ready(); err != nil {
		return err
	}
	j := newJournal(e.state)
	undo := &rollback{}
	if err := e.burnDebt(j, undo, user, user, debtAmount); err != nil {
		return undo.abort(err)
	}
	if err := e.redeemCollateral(j, undo, user, user, asset, collateralAmount); err != nil {
		return undo.abort(err)
	}
	if err := j.commit(); err != nil {
		return undo.abort(err)
	}
	e.emitter.Emit(DebtBurned{User: user, Amount: new(big.Int).Set(debtAmount)})
	e.emitter.Emit(CollateralRedeemed{User: user, To: user, Asset: asset, Amount: new(big.Int).Set(collateralAmount)})
	return nil
}

// --- internal steps, shared with the composite operations ---

func (e *Engine) depositCollateral(j *journal, undo *rollback, user, asset crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	tok, err := e.collateralToken(asset)
	if err != nil {
		return err
	}
	balance, err := j.collateralOf(user, asset)
	if err != nil {
		return err
	}
	j.setCollateral(user, asset, new(big.Int).Add(balance, amount))
	if err := tok.TransferFrom(user, e.moduleAddress, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	undo.record(func() error { return tok.Transfer(user, amount) })
	return nil
}

func (e *Engine) mintDebt(j *journal, undo *rollback, user crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	debt, err := j.debtOf(user)
	if err != nil {
		return err
	}
	j.setDebt(user, new(big.Int).Add(debt, amount))
	if err := e.revertIfUnhealthy(j, user); err != nil {
		return err
	}
	if err := e.debt.Mint(user, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrMintFailed, err)
	}
	// A commit failure after the mint must retire the issued units, so the
	// compensation burns them straight out of the recipient's balance.
	undo.record(func() error { return e.debt.BurnFrom(user, amount) })
	return nil
}

func (e *Engine) redeemCollateral(j *journal, undo *rollback, user, to, asset crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	tok, err := e.collateralToken(asset)
	if err != nil {
		return err
	}
	balance, err := j.collateralOf(user, asset)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: collateral balance %s below requested %s", ErrInvalidAmount, balance, amount)
	}
	j.setCollateral(user, asset, new(big.Int).Sub(balance, amount))
	// Enforce the invariant on the journalled balances before paying out, so
	// the external transfer only ever happens for an operation that will
	// commit.
	if err := e.revertIfUnhealthy(j, user); err != nil {
		return err
	}
	if err := tok.Transfer(to, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	undo.record(func() error { return tok.TransferFrom(to, e.moduleAddress, amount) })
	return nil
}

// burnDebt repays onBehalfOf's ledger debt using units pulled from payer.
// The two differ during liquidation, where the liquidator funds the burn.
func (e *Engine) burnDebt(j *journal, undo *rollback, onBehalfOf, payer crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	debt, err := j.debtOf(onBehalfOf)
	if err != nil {
		return err
	}
	if debt.Cmp(amount) < 0 {
		return fmt.Errorf("%w: outstanding debt %s below burn %s", ErrInvalidAmount, debt, amount)
	}
	j.setDebt(onBehalfOf, new(big.Int).Sub(debt, amount))
	if err := e.debt.TransferFrom(payer, e.moduleAddress, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	undo.record(func() error { return e.debt.Transfer(payer, amount) })
	if err := e.debt.Burn(amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	undo.record(func() error { return e.debt.Mint(e.moduleAddress, amount) })
	// A pure debt decrease cannot violate the invariant; checked anyway.
	return e.revertIfUnhealthy(j, onBehalfOf)
}
