package oracle

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

// Manual provides an in-memory price source used for tests and manual
// overrides during incident response.
type Manual struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewManual constructs an empty manual source.
func NewManual() *Manual {
	return &Manual{quotes: make(map[string]Quote)}
}

// Set stores the provided 1e8-scaled price for the feed using the supplied
// timestamp.
func (m *Manual) Set(feed string, price *big.Int, ts time.Time) {
	if m == nil || price == nil {
		return
	}
	key := normaliseFeed(feed)
	if key == "" {
		return
	}
	m.mu.Lock()
	m.quotes[key] = Quote{Price: new(big.Int).Set(price), UpdatedAt: ts, Source: "manual"}
	m.mu.Unlock()
}

// SetDecimal records the supplied decimal USD rate for the feed.
func (m *Manual) SetDecimal(feed, rate string, ts time.Time) error {
	if m == nil {
		return fmt.Errorf("manual oracle not configured")
	}
	trimmed := strings.TrimSpace(rate)
	if trimmed == "" {
		return fmt.Errorf("manual oracle: rate required")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return fmt.Errorf("manual oracle: invalid rate %q", rate)
	}
	if rat.Sign() <= 0 {
		return fmt.Errorf("manual oracle: rate must be positive")
	}
	m.Set(feed, ratToFeedPrice(rat), ts)
	return nil
}

// GetPrice retrieves the stored quote for the feed.
func (m *Manual) GetPrice(feed string) (Quote, error) {
	if m == nil {
		return Quote{}, fmt.Errorf("manual oracle not configured")
	}
	key := normaliseFeed(feed)
	m.mu.RLock()
	stored, ok := m.quotes[key]
	m.mu.RUnlock()
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownFeed, feed)
	}
	return stored.Clone(), nil
}

func normaliseFeed(feed string) string {
	return strings.ToUpper(strings.TrimSpace(feed))
}
