package state

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/056xyz/StableCoin/crypto"
	"github.com/056xyz/StableCoin/storage"
)

const (
	collateralPrefix = "vault/collateral/"
	debtPrefix       = "vault/debt/"
)

// Store persists the engine's two ledgers in a key-value database. A missing
// key reads as a zero balance, matching the engine's implicit position
// creation.
type Store struct {
	db storage.Database
}

// NewStore wraps the supplied database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func collateralStoreKey(user, asset crypto.Address) []byte {
	return []byte(collateralPrefix + hex.EncodeToString(asset.Bytes()) + "/" + hex.EncodeToString(user.Bytes()))
}

func debtStoreKey(user crypto.Address) []byte {
	return []byte(debtPrefix + hex.EncodeToString(user.Bytes()))
}

func (s *Store) load(key []byte) (*big.Int, error) {
	raw, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return big.NewInt(0), nil
		}
		return nil, fmt.Errorf("state: load %q: %w", key, err)
	}
	return new(big.Int).SetBytes(raw), nil
}

func (s *Store) save(key []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: refusing to store negative or nil balance at %q", key)
	}
	if err := s.db.Put(key, amount.Bytes()); err != nil {
		return fmt.Errorf("state: store %q: %w", key, err)
	}
	return nil
}

// CollateralBalance returns the deposited amount for (user, asset).
func (s *Store) CollateralBalance(user, asset crypto.Address) (*big.Int, error) {
	return s.load(collateralStoreKey(user, asset))
}

// SetCollateralBalance records the deposited amount for (user, asset).
func (s *Store) SetCollateralBalance(user, asset crypto.Address, amount *big.Int) error {
	return s.save(collateralStoreKey(user, asset), amount)
}

// DebtBalance returns the user's minted debt.
func (s *Store) DebtBalance(user crypto.Address) (*big.Int, error) {
	return s.load(debtStoreKey(user))
}

// SetDebtBalance records the user's minted debt.
func (s *Store) SetDebtBalance(user crypto.Address, amount *big.Int) error {
	return s.save(debtStoreKey(user), amount)
}
