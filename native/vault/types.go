package vault

import (
	"errors"
	"math/big"

	"github.com/056xyz/StableCoin/crypto"
)

// engineState is the persistence boundary for the two ledgers. A missing
// entry reads as zero; balances are never negative.
type engineState interface {
	CollateralBalance(user, asset crypto.Address) (*big.Int, error)
	SetCollateralBalance(user, asset crypto.Address, amount *big.Int) error
	DebtBalance(user crypto.Address) (*big.Int, error)
	SetDebtBalance(user crypto.Address, amount *big.Int) error
}

// CollateralToken is the engine-facing capability over an external fungible
// asset. The implementation is already bound to the engine's custody account
// as the acting party: Transfer pays out of custody, TransferFrom pulls into
// it. Any error is a hard abort of the enclosing operation.
type CollateralToken interface {
	Transfer(to crypto.Address, amount *big.Int) error
	TransferFrom(from, to crypto.Address, amount *big.Int) error
}

// DebtToken extends the transfer surface with supply control over the
// synthetic debt unit. Mint and Burn are gated to the engine by the
// collaborator.
type DebtToken interface {
	CollateralToken
	Mint(to crypto.Address, amount *big.Int) error
	Burn(amount *big.Int) error
	BurnFrom(from crypto.Address, amount *big.Int) error
}

// rollback is an explicit log of compensating external calls. Each entry is
// recorded right after its external effect succeeds; abort replays them in
// reverse so an operation that fails midway leaves the collaborators where
// it found them.
type rollback struct {
	steps []func() error
}

func (r *rollback) record(step func() error) {
	r.steps = append(r.steps, step)
}

// abort unwinds every recorded effect and returns the original cause. A
// compensation failure is joined onto the cause rather than swallowed.
func (r *rollback) abort(cause error) error {
	errs := []error{cause}
	for i := len(r.steps) - 1; i >= 0; i-- {
		if err := r.steps[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 1 {
		return errors.Join(errs...)
	}
	return cause
}
