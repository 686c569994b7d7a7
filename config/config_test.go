package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/056xyz/StableCoin/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8645", cfg.RPCAddress)
	require.Equal(t, "DSC", cfg.Debt.Symbol)
	require.NotEmpty(t, cfg.OraclePriority)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be persisted")

	key, err := cfg.ModuleKey()
	require.NoError(t, err)
	require.False(t, key.PubKey().Address().IsZero())

	info, err := os.Stat(cfg.ModuleKeyFile)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestModuleKeyStableAcrossLoads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	first, err := Load(path)
	require.NoError(t, err)
	firstKey, err := first.ModuleKey()
	require.NoError(t, err)

	second, err := Load(path)
	require.NoError(t, err)
	secondKey, err := second.ModuleKey()
	require.NoError(t, err)

	require.True(t, firstKey.PubKey().Address().Equal(secondKey.PubKey().Address()))
}

func TestLoadParsesCollateral(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	token := key.PubKey().Address().String()

	data := `RPCAddress = "0.0.0.0:9090"
DataDir = "` + filepath.Join(dir, "data") + `"
OracleMaxAgeSeconds = 60
OraclePriority = ["manual", "coingecko"]

[debt]
Name = "Decentralized Stable Coin"
Symbol = "DSC"

[[collateral]]
Symbol = "WETH"
Token = "` + token + `"
Feed = "ETH-USD"
CoinGeckoID = "ethereum"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9090", cfg.RPCAddress)
	require.Len(t, cfg.Collateral, 1)
	require.Equal(t, "ETH-USD", cfg.Collateral[0].Feed)
	require.Equal(t, "ethereum", cfg.Collateral[0].CoinGeckoID)
}

func TestValidateRejectsDuplicates(t *testing.T) {
	cfg := &Config{
		RPCAddress:          "127.0.0.1:8645",
		DataDir:             "./data",
		OracleMaxAgeSeconds: 60,
		OraclePriority:      []string{"manual"},
		Collateral: []CollateralEntry{
			{Symbol: "WETH", Feed: "ETH-USD"},
			{Symbol: "WETH", Feed: "ETH-USD-2"},
		},
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadAddress(t *testing.T) {
	cfg := &Config{
		RPCAddress:          "127.0.0.1:8645",
		DataDir:             "./data",
		OracleMaxAgeSeconds: 60,
		OraclePriority:      []string{"manual"},
		Collateral: []CollateralEntry{
			{Symbol: "WETH", Token: "not-an-address", Feed: "ETH-USD"},
		},
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsDuplicateTokenAddress(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	token := key.PubKey().Address().String()

	cfg := &Config{
		RPCAddress:          "127.0.0.1:8645",
		DataDir:             "./data",
		OracleMaxAgeSeconds: 60,
		OraclePriority:      []string{"manual"},
		Collateral: []CollateralEntry{
			{Symbol: "WETH", Token: token, Feed: "ETH-USD"},
			{Symbol: "WETH2", Token: token, Feed: "ETH-USD-2"},
		},
	}
	require.ErrorContains(t, cfg.Validate(), "duplicate collateral token address")
}
