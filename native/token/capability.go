package token

import (
	"math/big"

	"github.com/056xyz/StableCoin/crypto"
)

// Capability is a ledger handle bound to a single acting account. The engine
// holds one capability per external token, so every call it makes carries its
// own custody account as the caller without threading identity through the
// engine's code.
type Capability struct {
	ledger *Ledger
	actor  crypto.Address
}

// Bind returns a capability acting as the supplied account.
func (l *Ledger) Bind(actor crypto.Address) *Capability {
	return &Capability{ledger: l, actor: actor}
}

// Actor returns the account the capability acts as.
func (c *Capability) Actor() crypto.Address { return c.actor }

// Transfer sends units from the actor's balance to the recipient.
func (c *Capability) Transfer(to crypto.Address, amount *big.Int) error {
	return c.ledger.Transfer(c.actor, to, amount)
}

// TransferFrom pulls units from the source account into the recipient using
// the actor's allowance.
func (c *Capability) TransferFrom(from, to crypto.Address, amount *big.Int) error {
	return c.ledger.TransferFrom(c.actor, from, to, amount)
}

// Mint issues new units to the recipient. Fails unless the actor owns the
// ledger.
func (c *Capability) Mint(to crypto.Address, amount *big.Int) error {
	return c.ledger.Mint(c.actor, to, amount)
}

// Burn destroys units held by the actor. Fails unless the actor owns the
// ledger.
func (c *Capability) Burn(amount *big.Int) error {
	return c.ledger.Burn(c.actor, amount)
}

// BurnFrom destroys units held by the supplied account. Fails unless the
// actor owns the ledger.
func (c *Capability) BurnFrom(from crypto.Address, amount *big.Int) error {
	return c.ledger.BurnFrom(c.actor, from, amount)
}

// BalanceOf reports the balance of the supplied account.
func (c *Capability) BalanceOf(addr crypto.Address) *big.Int {
	return c.ledger.BalanceOf(addr)
}
