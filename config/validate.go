package config

import (
	"fmt"
	"strings"

	"github.com/056xyz/StableCoin/crypto"
)

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if c.OracleMaxAgeSeconds <= 0 {
		return fmt.Errorf("config: OracleMaxAgeSeconds must be positive")
	}
	if len(c.OraclePriority) == 0 {
		return fmt.Errorf("config: OraclePriority must name at least one source")
	}
	seenSymbols := make(map[string]struct{}, len(c.Collateral))
	seenTokens := make(map[string]struct{}, len(c.Collateral))
	seenFeeds := make(map[string]struct{}, len(c.Collateral))
	for i, entry := range c.Collateral {
		symbol := strings.TrimSpace(entry.Symbol)
		if symbol == "" {
			return fmt.Errorf("config: collateral entry %d is missing Symbol", i)
		}
		if _, ok := seenSymbols[symbol]; ok {
			return fmt.Errorf("config: duplicate collateral symbol %q", symbol)
		}
		seenSymbols[symbol] = struct{}{}
		if token := strings.TrimSpace(entry.Token); token != "" {
			addr, err := crypto.DecodeAddress(token)
			if err != nil {
				return fmt.Errorf("config: collateral %q token address: %w", symbol, err)
			}
			if _, ok := seenTokens[string(addr.Bytes())]; ok {
				return fmt.Errorf("config: duplicate collateral token address %q", token)
			}
			seenTokens[string(addr.Bytes())] = struct{}{}
		}
		feed := strings.TrimSpace(entry.Feed)
		if feed == "" {
			return fmt.Errorf("config: collateral %q is missing Feed", symbol)
		}
		if _, ok := seenFeeds[feed]; ok {
			return fmt.Errorf("config: duplicate collateral feed %q", feed)
		}
		seenFeeds[feed] = struct{}{}
	}
	return nil
}
