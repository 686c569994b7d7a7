package vault

import (
	"math/big"

	"github.com/google/uuid"

	"github.com/056xyz/StableCoin/crypto"
)

// Event represents a structured state change emitted by the engine.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// CollateralDeposited is emitted after a deposit commits.
type CollateralDeposited struct {
	User   crypto.Address
	Asset  crypto.Address
	Amount *big.Int
}

func (CollateralDeposited) EventType() string { return "vault.collateral.deposited" }

// CollateralRedeemed is emitted after a redemption commits. To is the payout
// recipient, which differs from User during liquidations.
type CollateralRedeemed struct {
	User   crypto.Address
	To     crypto.Address
	Asset  crypto.Address
	Amount *big.Int
}

func (CollateralRedeemed) EventType() string { return "vault.collateral.redeemed" }

// DebtMinted is emitted after new debt units are issued against collateral.
type DebtMinted struct {
	User   crypto.Address
	Amount *big.Int
}

func (DebtMinted) EventType() string { return "vault.debt.minted" }

// DebtBurned is emitted after debt units are repaid and destroyed.
type DebtBurned struct {
	User   crypto.Address
	Amount *big.Int
}

func (DebtBurned) EventType() string { return "vault.debt.burned" }

// PositionLiquidated is emitted after a successful liquidation. The ID gives
// downstream consumers an idempotency key.
type PositionLiquidated struct {
	ID               uuid.UUID
	Liquidator       crypto.Address
	User             crypto.Address
	Asset            crypto.Address
	DebtCovered      *big.Int
	CollateralSeized *big.Int
}

func (PositionLiquidated) EventType() string { return "vault.position.liquidated" }
