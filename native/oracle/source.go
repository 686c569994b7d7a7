package oracle

import (
	"errors"
	"math/big"
	"time"
)

var (
	// ErrUnknownFeed indicates the source has no quote for the feed identifier.
	ErrUnknownFeed = errors.New("oracle: unknown feed")
	// ErrInvalidQuote indicates the upstream returned a zero or negative price.
	ErrInvalidQuote = errors.New("oracle: invalid quote")
	// ErrStaleQuote indicates the freshest available quote exceeded the
	// configured age window.
	ErrStaleQuote = errors.New("oracle: no fresh quote available")
)

// FeedDecimals is the fixed-point scale used by every price source: prices
// are USD per whole token unit scaled by 1e8.
const FeedDecimals = 8

// Quote is a single price observation for a feed.
type Quote struct {
	// Price is the USD rate scaled by 1e8.
	Price *big.Int
	// UpdatedAt is the observation timestamp reported by the upstream.
	UpdatedAt time.Time
	// Source names the adapter that produced the observation.
	Source string
}

// Clone returns a deep copy of the quote to prevent accidental mutations.
func (q Quote) Clone() Quote {
	clone := Quote{UpdatedAt: q.UpdatedAt, Source: q.Source}
	if q.Price != nil {
		clone.Price = new(big.Int).Set(q.Price)
	}
	return clone
}

// Source resolves the current price for a feed identifier. Implementations
// must never return a zero or default price in place of an error: staleness
// and invalidity are the caller's hard-abort conditions.
type Source interface {
	GetPrice(feed string) (Quote, error)
}

// ratToFeedPrice converts a decimal rate into the 1e8 fixed-point feed scale.
func ratToFeedPrice(rate *big.Rat) *big.Int {
	if rate == nil {
		return nil
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(FeedDecimals), nil)
	scaled := new(big.Rat).Mul(rate, new(big.Rat).SetInt(scale))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom())
}
