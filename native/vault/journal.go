package vault

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/056xyz/StableCoin/crypto"
)

// journal buffers ledger mutations for one operation. Reads fall through to
// the underlying state and are cached; writes stay in the journal until
// commit. Aborting an operation simply drops the journal, so no partial
// ledger update can ever persist.
type journal struct {
	state      engineState
	collateral map[string]*big.Int
	debt       map[string]*big.Int
	dirtyColl  map[string]collateralRef
	dirtyDebt  map[string]crypto.Address
}

type collateralRef struct {
	user  crypto.Address
	asset crypto.Address
}

func newJournal(state engineState) *journal {
	return &journal{
		state:      state,
		collateral: make(map[string]*big.Int),
		debt:       make(map[string]*big.Int),
		dirtyColl:  make(map[string]collateralRef),
		dirtyDebt:  make(map[string]crypto.Address),
	}
}

func collateralKey(user, asset crypto.Address) string {
	return string(user.Bytes()) + "/" + string(asset.Bytes())
}

func debtKey(user crypto.Address) string {
	return string(user.Bytes())
}

func (j *journal) collateralOf(user, asset crypto.Address) (*big.Int, error) {
	key := collateralKey(user, asset)
	if amount, ok := j.collateral[key]; ok {
		return new(big.Int).Set(amount), nil
	}
	amount, err := j.state.CollateralBalance(user, asset)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	j.collateral[key] = new(big.Int).Set(amount)
	return new(big.Int).Set(amount), nil
}

func (j *journal) setCollateral(user, asset crypto.Address, amount *big.Int) {
	key := collateralKey(user, asset)
	j.collateral[key] = new(big.Int).Set(amount)
	j.dirtyColl[key] = collateralRef{user: user, asset: asset}
}

func (j *journal) debtOf(user crypto.Address) (*big.Int, error) {
	key := debtKey(user)
	if amount, ok := j.debt[key]; ok {
		return new(big.Int).Set(amount), nil
	}
	amount, err := j.state.DebtBalance(user)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	j.debt[key] = new(big.Int).Set(amount)
	return new(big.Int).Set(amount), nil
}

func (j *journal) setDebt(user crypto.Address, amount *big.Int) {
	key := debtKey(user)
	j.debt[key] = new(big.Int).Set(amount)
	j.dirtyDebt[key] = user
}

// commit flushes every buffered write to the underlying state. The flush is
// not atomic at the storage layer, so each key's prior value is captured
// before it is overwritten; when a later write fails, the keys already
// flushed are restored so no partial ledger update persists.
func (j *journal) commit() error {
	var written []func() error
	restore := func(cause error) error {
		errs := []error{cause}
		for i := len(written) - 1; i >= 0; i-- {
			if err := written[i](); err != nil {
				errs = append(errs, fmt.Errorf("restore ledger: %w", err))
			}
		}
		if len(errs) > 1 {
			return errors.Join(errs...)
		}
		return cause
	}
	for key, ref := range j.dirtyColl {
		prev, err := j.state.CollateralBalance(ref.user, ref.asset)
		if err != nil {
			return restore(err)
		}
		if prev == nil {
			prev = big.NewInt(0)
		}
		if err := j.state.SetCollateralBalance(ref.user, ref.asset, j.collateral[key]); err != nil {
			return restore(err)
		}
		written = append(written, func() error {
			return j.state.SetCollateralBalance(ref.user, ref.asset, prev)
		})
	}
	for key, user := range j.dirtyDebt {
		prev, err := j.state.DebtBalance(user)
		if err != nil {
			return restore(err)
		}
		if prev == nil {
			prev = big.NewInt(0)
		}
		if err := j.state.SetDebtBalance(user, j.debt[key]); err != nil {
			return restore(err)
		}
		written = append(written, func() error {
			return j.state.SetDebtBalance(user, prev)
		})
	}
	return nil
}
