package token

import (
	"errors"
	"math/big"
	"sync"

	"github.com/056xyz/StableCoin/crypto"
)

var (
	errInvalidAmount = errors.New("token: amount must be positive")
	// ErrUnauthorized signals a mint or burn attempt by an account other than
	// the ledger owner.
	ErrUnauthorized = errors.New("token: caller not authorized")
	// ErrInsufficientBalance signals a transfer or burn exceeding the source
	// account balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance signals a delegated transfer exceeding the
	// approved allowance.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
)

// Ledger is a fungible balance ledger with standard transfer/allowance
// semantics and owner-gated supply changes. Every method takes the calling
// account explicitly: the host environment's caller identity is rendered as a
// parameter rather than ambient state.
type Ledger struct {
	mu         sync.RWMutex
	name       string
	symbol     string
	owner      crypto.Address
	balances   map[string]*big.Int
	allowances map[string]map[string]*big.Int
	supply     *big.Int
}

// NewLedger constructs an empty ledger. Only the owner account may mint or
// burn; for the synthetic debt unit the owner is the engine's custody
// account.
func NewLedger(name, symbol string, owner crypto.Address) *Ledger {
	return &Ledger{
		name:       name,
		symbol:     symbol,
		owner:      owner,
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]map[string]*big.Int),
		supply:     big.NewInt(0),
	}
}

func (l *Ledger) Name() string   { return l.name }
func (l *Ledger) Symbol() string { return l.symbol }

func key(addr crypto.Address) string {
	return string(addr.Bytes())
}

func (l *Ledger) balance(addr crypto.Address) *big.Int {
	if bal, ok := l.balances[key(addr)]; ok {
		return bal
	}
	return big.NewInt(0)
}

// BalanceOf returns a copy of the account balance.
func (l *Ledger) BalanceOf(addr crypto.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.balance(addr))
}

// TotalSupply returns a copy of the outstanding supply.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.supply)
}

// Mint credits newly issued units to the recipient. Gated to the owner.
func (l *Ledger) Mint(caller, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !caller.Equal(l.owner) {
		return ErrUnauthorized
	}
	l.balances[key(to)] = new(big.Int).Add(l.balance(to), amount)
	l.supply = new(big.Int).Add(l.supply, amount)
	return nil
}

// Burn destroys units held by the caller. Gated to the owner: the engine must
// pull units into its own custody before burning them.
func (l *Ledger) Burn(caller crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !caller.Equal(l.owner) {
		return ErrUnauthorized
	}
	bal := l.balance(caller)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.balances[key(caller)] = new(big.Int).Sub(bal, amount)
	l.supply = new(big.Int).Sub(l.supply, amount)
	return nil
}

// BurnFrom destroys units held by an arbitrary account. Gated to the owner;
// the engine uses it to retire units whose issuing operation failed to
// commit.
func (l *Ledger) BurnFrom(caller, from crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !caller.Equal(l.owner) {
		return ErrUnauthorized
	}
	bal := l.balance(from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.balances[key(from)] = new(big.Int).Sub(bal, amount)
	l.supply = new(big.Int).Sub(l.supply, amount)
	return nil
}

// Approve sets the spender's allowance over the caller's balance.
func (l *Ledger) Approve(caller, spender crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	spenders, ok := l.allowances[key(caller)]
	if !ok {
		spenders = make(map[string]*big.Int)
		l.allowances[key(caller)] = spenders
	}
	spenders[key(spender)] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns a copy of the spender's remaining allowance.
func (l *Ledger) Allowance(owner, spender crypto.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if spenders, ok := l.allowances[key(owner)]; ok {
		if amount, ok := spenders[key(spender)]; ok {
			return new(big.Int).Set(amount)
		}
	}
	return big.NewInt(0)
}

// Transfer moves units from the caller to the recipient.
func (l *Ledger) Transfer(caller, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(caller, to, amount)
}

// TransferFrom moves units from the source account using the caller's
// allowance. The caller spending its own balance bypasses the allowance
// check, matching standard semantics.
func (l *Ledger) TransferFrom(caller, from, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !caller.Equal(from) {
		spenders := l.allowances[key(from)]
		allowance, ok := spenders[key(caller)]
		if !ok || allowance.Cmp(amount) < 0 {
			return ErrInsufficientAllowance
		}
		spenders[key(caller)] = new(big.Int).Sub(allowance, amount)
	}
	return l.move(from, to, amount)
}

func (l *Ledger) move(from, to crypto.Address, amount *big.Int) error {
	bal := l.balance(from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.balances[key(from)] = new(big.Int).Sub(bal, amount)
	l.balances[key(to)] = new(big.Int).Add(l.balance(to), amount)
	return nil
}
