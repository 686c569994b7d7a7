package vault

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/056xyz/StableCoin/crypto"
	"github.com/056xyz/StableCoin/native/oracle"
)

type mockEngineState struct {
	collateral map[string]*big.Int
	debt       map[string]*big.Int

	setCollateralErr error
	setDebtErr       error
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		collateral: make(map[string]*big.Int),
		debt:       make(map[string]*big.Int),
	}
}

func (m *mockEngineState) CollateralBalance(user, asset crypto.Address) (*big.Int, error) {
	if amount, ok := m.collateral[collateralKey(user, asset)]; ok {
		return new(big.Int).Set(amount), nil
	}
	return big.NewInt(0), nil
}

func (m *mockEngineState) SetCollateralBalance(user, asset crypto.Address, amount *big.Int) error {
	if m.setCollateralErr != nil {
		return m.setCollateralErr
	}
	m.collateral[collateralKey(user, asset)] = new(big.Int).Set(amount)
	return nil
}

func (m *mockEngineState) DebtBalance(user crypto.Address) (*big.Int, error) {
	if amount, ok := m.debt[debtKey(user)]; ok {
		return new(big.Int).Set(amount), nil
	}
	return big.NewInt(0), nil
}

func (m *mockEngineState) SetDebtBalance(user crypto.Address, amount *big.Int) error {
	if m.setDebtErr != nil {
		return m.setDebtErr
	}
	m.debt[debtKey(user)] = new(big.Int).Set(amount)
	return nil
}

// mockToken tracks balances the way a custody-bound capability would: the
// module account is the acting party, Transfer pays out of it, TransferFrom
// pulls between arbitrary accounts. Error fields inject failures.
type mockToken struct {
	module   crypto.Address
	balances map[string]*big.Int
	supply   *big.Int

	transferErr     error
	transferFromErr error
	mintErr         error
	burnErr         error
	onTransferFrom  func() error
}

func newMockToken(module crypto.Address) *mockToken {
	return &mockToken{module: module, balances: make(map[string]*big.Int), supply: big.NewInt(0)}
}

func (m *mockToken) balance(addr crypto.Address) *big.Int {
	if amount, ok := m.balances[string(addr.Bytes())]; ok {
		return amount
	}
	zero := big.NewInt(0)
	m.balances[string(addr.Bytes())] = zero
	return zero
}

func (m *mockToken) fund(addr crypto.Address, amount *big.Int) {
	m.balances[string(addr.Bytes())] = new(big.Int).Set(amount)
}

func (m *mockToken) move(from, to crypto.Address, amount *big.Int) error {
	src := m.balance(from)
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("mock token: balance %s below transfer %s", src, amount)
	}
	src.Sub(src, amount)
	m.balance(to).Add(m.balance(to), amount)
	return nil
}

func (m *mockToken) Transfer(to crypto.Address, amount *big.Int) error {
	if m.transferErr != nil {
		return m.transferErr
	}
	return m.move(m.module, to, amount)
}

func (m *mockToken) TransferFrom(from, to crypto.Address, amount *big.Int) error {
	if m.onTransferFrom != nil {
		if err := m.onTransferFrom(); err != nil {
			return err
		}
	}
	if m.transferFromErr != nil {
		return m.transferFromErr
	}
	return m.move(from, to, amount)
}

func (m *mockToken) Mint(to crypto.Address, amount *big.Int) error {
	if m.mintErr != nil {
		return m.mintErr
	}
	m.balance(to).Add(m.balance(to), amount)
	m.supply.Add(m.supply, amount)
	return nil
}

func (m *mockToken) Burn(amount *big.Int) error {
	if m.burnErr != nil {
		return m.burnErr
	}
	held := m.balance(m.module)
	if held.Cmp(amount) < 0 {
		return fmt.Errorf("mock token: custody holds %s below burn %s", held, amount)
	}
	held.Sub(held, amount)
	m.supply.Sub(m.supply, amount)
	return nil
}

func (m *mockToken) BurnFrom(from crypto.Address, amount *big.Int) error {
	held := m.balance(from)
	if held.Cmp(amount) < 0 {
		return fmt.Errorf("mock token: account holds %s below burn %s", held, amount)
	}
	held.Sub(held, amount)
	m.supply.Sub(m.supply, amount)
	return nil
}

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(crypto.StablePrefix, raw)
}

type testEnv struct {
	engine     *Engine
	state      *mockEngineState
	feeds      *oracle.Manual
	weth       *mockToken
	dsc        *mockToken
	moduleAddr crypto.Address
	asset      crypto.Address
	user       crypto.Address
}

const wethFeed = "ETH-USD"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	moduleAddr := makeAddress(0x01)
	asset := makeAddress(0x02)
	user := makeAddress(0x03)

	registry, err := NewRegistry([]crypto.Address{asset}, []string{wethFeed})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	state := newMockEngineState()
	feeds := oracle.NewManual()
	weth := newMockToken(moduleAddr)
	dsc := newMockToken(moduleAddr)

	engine := NewEngine(moduleAddr, registry)
	engine.SetState(state)
	engine.SetOracle(feeds)
	engine.SetDebtToken(dsc)
	engine.BindCollateralToken(asset, weth)

	return &testEnv{
		engine:     engine,
		state:      state,
		feeds:      feeds,
		weth:       weth,
		dsc:        dsc,
		moduleAddr: moduleAddr,
		asset:      asset,
		user:       user,
	}
}

func (env *testEnv) setPrice(t *testing.T, usd int64) {
	t.Helper()
	price := new(big.Int).Mul(big.NewInt(usd), big.NewInt(100_000_000))
	env.feeds.Set(wethFeed, price, time.Now())
}

func units(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), Precision())
}

func fractionalUnits(numerator, denominator int64) *big.Int {
	value := new(big.Int).Mul(big.NewInt(numerator), Precision())
	return value.Quo(value, big.NewInt(denominator))
}

func requireErrIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
