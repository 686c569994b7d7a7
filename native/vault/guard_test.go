package vault

import (
	"testing"
)

func TestReentrantCallRejected(t *testing.T) {
	env := newTestEnv(t)
	env.setPrice(t, 2000)
	env.weth.fund(env.user, units(2))

	// A malicious token calls back into the engine from inside the transfer.
	var reentrantErr error
	env.weth.onTransferFrom = func() error {
		reentrantErr = env.engine.DepositCollateral(env.user, env.asset, units(1))
		return reentrantErr
	}

	err := env.engine.DepositCollateral(env.user, env.asset, units(1))
	if err == nil {
		t.Fatal("deposit with reentrant token succeeded")
	}
	requireErrIs(t, reentrantErr, ErrReentrant)

	balance, _ := env.state.CollateralBalance(env.user, env.asset)
	if balance.Sign() != 0 {
		t.Fatalf("ledger mutated by reentrant call: %s", balance)
	}
}

func TestGuardReleasedAfterFailure(t *testing.T) {
	env := newTestEnv(t)
	env.setPrice(t, 2000)

	requireErrIs(t, env.engine.DepositCollateral(env.user, env.asset, nil), ErrInvalidAmount)

	// The failed call must not leave the guard held.
	env.weth.fund(env.user, units(1))
	if err := env.engine.DepositCollateral(env.user, env.asset, units(1)); err != nil {
		t.Fatalf("deposit after failed call: %v", err)
	}
}
