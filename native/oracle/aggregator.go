package oracle

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/056xyz/StableCoin/observability"
)

// Aggregator consults a list of registered sources in priority order until a
// fresh, positive quote is obtained. Stale and non-positive readings are
// skipped; when every source fails the last failure is surfaced so the caller
// aborts rather than valuing collateral at a default price.
type Aggregator struct {
	mu       sync.RWMutex
	priority []string
	sources  map[string]Source
	maxAge   time.Duration
	now      func() time.Time
	metrics  *observability.EngineMetrics
}

// NewAggregator constructs an aggregator with the provided priority ordering
// and freshness window. A zero maxAge disables the staleness check.
func NewAggregator(priority []string, maxAge time.Duration) *Aggregator {
	prio := append([]string{}, priority...)
	return &Aggregator{
		priority: prio,
		sources:  make(map[string]Source),
		maxAge:   maxAge,
		now:      time.Now,
		metrics:  observability.Engine(),
	}
}

// SetMaxAge updates the freshness window used when filtering quotes.
func (a *Aggregator) SetMaxAge(maxAge time.Duration) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.maxAge = maxAge
	a.mu.Unlock()
}

// Register adds or replaces a source under the supplied identifier.
// Identifiers are stored in lowercase so lookups remain consistent regardless
// of configuration casing.
func (a *Aggregator) Register(name string, source Source) {
	if a == nil {
		return
	}
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sources[trimmed] = source
	for _, entry := range a.priority {
		if strings.EqualFold(entry, trimmed) {
			return
		}
	}
	a.priority = append(a.priority, trimmed)
}

// GetPrice fetches a quote respecting the priority ordering and enforcing the
// freshness window. The returned quote is a defensive copy.
func (a *Aggregator) GetPrice(feed string) (Quote, error) {
	if a == nil {
		return Quote{}, fmt.Errorf("oracle aggregator not configured")
	}
	a.mu.RLock()
	priority := append([]string{}, a.priority...)
	maxAge := a.maxAge
	nowFn := a.now
	a.mu.RUnlock()

	key := normaliseFeed(feed)
	if key == "" {
		return Quote{}, fmt.Errorf("oracle: feed identifier required")
	}

	cutoff := time.Time{}
	if maxAge > 0 {
		cutoff = nowFn().Add(-maxAge)
	}

	var lastErr error
	for _, name := range priority {
		a.mu.RLock()
		source := a.sources[strings.ToLower(name)]
		a.mu.RUnlock()
		if source == nil {
			continue
		}
		quote, err := source.GetPrice(key)
		if err != nil {
			lastErr = err
			a.metrics.RecordQuote(name, err)
			continue
		}
		if quote.Price == nil || quote.Price.Sign() <= 0 {
			lastErr = fmt.Errorf("%w: source %s", ErrInvalidQuote, name)
			a.metrics.RecordQuote(name, lastErr)
			continue
		}
		if maxAge > 0 && quote.UpdatedAt.Before(cutoff) {
			lastErr = fmt.Errorf("%w: source %s", ErrStaleQuote, name)
			a.metrics.RecordQuote(name, lastErr)
			continue
		}
		a.metrics.RecordQuote(name, nil)
		result := quote.Clone()
		if strings.TrimSpace(result.Source) == "" {
			result.Source = strings.ToLower(name)
		}
		return result, nil
	}

	if lastErr == nil {
		lastErr = ErrStaleQuote
	}
	return Quote{}, lastErr
}
