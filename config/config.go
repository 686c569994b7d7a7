package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/056xyz/StableCoin/crypto"
)

// Config captures the daemon's runtime configuration.
type Config struct {
	RPCAddress          string   `toml:"RPCAddress"`
	DataDir             string   `toml:"DataDir"`
	ModuleKeyFile       string   `toml:"ModuleKeyFile"`
	OracleMaxAgeSeconds int64    `toml:"OracleMaxAgeSeconds"`
	OraclePriority      []string `toml:"OraclePriority"`

	Debt       DebtConfig        `toml:"debt"`
	Collateral []CollateralEntry `toml:"collateral"`
}

// DebtConfig names the synthetic debt unit the engine controls.
type DebtConfig struct {
	Name   string `toml:"Name"`
	Symbol string `toml:"Symbol"`
}

// CollateralEntry binds one supported asset to its price feed.
type CollateralEntry struct {
	Symbol string `toml:"Symbol"`
	Token  string `toml:"Token"`
	Feed   string `toml:"Feed"`
	// CoinGeckoID maps the feed onto the CoinGecko simple-price API when the
	// HTTP source is enabled. Optional.
	CoinGeckoID string `toml:"CoinGeckoID"`
}

// Load loads the configuration from the given path, creating a default file
// on first start.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg, path)
	if err := ensureModuleKey(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config, path string) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./stablecoin-data"
	}
	if strings.TrimSpace(cfg.ModuleKeyFile) == "" {
		cfg.ModuleKeyFile = filepath.Join(filepath.Dir(path), "module.key")
	}
	if cfg.OracleMaxAgeSeconds <= 0 {
		cfg.OracleMaxAgeSeconds = 120
	}
	if len(cfg.OraclePriority) == 0 {
		cfg.OraclePriority = []string{"manual"}
	}
	if strings.TrimSpace(cfg.Debt.Name) == "" {
		cfg.Debt.Name = "Decentralized Stable Coin"
	}
	if strings.TrimSpace(cfg.Debt.Symbol) == "" {
		cfg.Debt.Symbol = "DSC"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg, path)
	if err := ensureModuleKey(cfg); err != nil {
		return nil, err
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ensureModuleKey generates the engine's custody key on first start so the
// daemon has a stable module address across restarts.
func ensureModuleKey(cfg *Config) error {
	if _, err := os.Stat(cfg.ModuleKeyFile); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.ModuleKeyFile), 0o700); err != nil {
		return err
	}
	encoded := hex.EncodeToString(key.Bytes())
	return os.WriteFile(cfg.ModuleKeyFile, []byte(encoded+"\n"), 0o600)
}

// ModuleKey loads the custody key referenced by the configuration.
func (c *Config) ModuleKey() (*crypto.PrivateKey, error) {
	raw, err := os.ReadFile(c.ModuleKeyFile)
	if err != nil {
		return nil, fmt.Errorf("config: read module key: %w", err)
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("config: decode module key: %w", err)
	}
	return crypto.PrivateKeyFromBytes(decoded)
}

// OracleMaxAge returns the configured freshness window as a duration.
func (c *Config) OracleMaxAge() time.Duration {
	return time.Duration(c.OracleMaxAgeSeconds) * time.Second
}

func persist(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	return toml.NewEncoder(file).Encode(cfg)
}
