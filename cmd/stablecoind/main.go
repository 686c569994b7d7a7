package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/056xyz/StableCoin/config"
	"github.com/056xyz/StableCoin/crypto"
	"github.com/056xyz/StableCoin/native/oracle"
	"github.com/056xyz/StableCoin/native/token"
	"github.com/056xyz/StableCoin/native/vault"
	"github.com/056xyz/StableCoin/observability/logging"
	telemetry "github.com/056xyz/StableCoin/observability/otel"
	"github.com/056xyz/StableCoin/rpc"
	"github.com/056xyz/StableCoin/state"
	"github.com/056xyz/StableCoin/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stablecoind: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.toml", "path to stablecoind config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STABLE_ENV"))
	logger := logging.Setup("stablecoind", env)

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	otlpHeaders := telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "stablecoind",
		Environment: env,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     otlpHeaders,
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	moduleKey, err := cfg.ModuleKey()
	if err != nil {
		return fmt.Errorf("load module key: %w", err)
	}
	moduleAddr := moduleKey.PubKey().Address()
	logger.Info("loaded custody key", "address", moduleAddr.String())

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	assets := make([]crypto.Address, 0, len(cfg.Collateral))
	feeds := make([]string, 0, len(cfg.Collateral))
	ledgers := make([]*token.Ledger, 0, len(cfg.Collateral))
	coingeckoIDs := make(map[string]string)
	for _, entry := range cfg.Collateral {
		var asset crypto.Address
		if strings.TrimSpace(entry.Token) != "" {
			if asset, err = crypto.DecodeAddress(entry.Token); err != nil {
				return fmt.Errorf("collateral %s: %w", entry.Symbol, err)
			}
		} else {
			key, err := crypto.GeneratePrivateKey()
			if err != nil {
				return fmt.Errorf("derive collateral address: %w", err)
			}
			asset = key.PubKey().Address()
			logger.Warn("collateral token address not configured, generated ephemeral identity",
				"symbol", entry.Symbol, "address", asset.String())
		}
		assets = append(assets, asset)
		feeds = append(feeds, entry.Feed)
		ledgers = append(ledgers, token.NewLedger(entry.Symbol, entry.Symbol, moduleAddr))
		if id := strings.TrimSpace(entry.CoinGeckoID); id != "" {
			coingeckoIDs[entry.Feed] = id
		}
	}

	registry, err := vault.NewRegistry(assets, feeds)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	priceSource, manualFeeds := buildOracle(cfg, coingeckoIDs)

	debtLedger := token.NewLedger(cfg.Debt.Name, cfg.Debt.Symbol, moduleAddr)

	engine := vault.NewEngine(moduleAddr, registry)
	engine.SetState(state.NewStore(db))
	engine.SetOracle(priceSource)
	engine.SetDebtToken(debtLedger.Bind(moduleAddr))
	for i, asset := range assets {
		engine.BindCollateralToken(asset, ledgers[i].Bind(moduleAddr))
	}
	engine.SetEmitter(logEmitter{logger: logger})

	server := rpc.NewServer(engine)
	if manualFeeds != nil {
		server.SetManualFeeds(manualFeeds)
	}
	httpServer := &http.Server{
		Addr:         cfg.RPCAddress,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("stablecoind listening", "address", cfg.RPCAddress)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// buildOracle assembles the price source from the configured priority list.
// The manual source is returned separately so the RPC layer can accept
// operator-posted quotes.
func buildOracle(cfg *config.Config, coingeckoIDs map[string]string) (oracle.Source, *oracle.Manual) {
	agg := oracle.NewAggregator(cfg.OraclePriority, cfg.OracleMaxAge())
	var manual *oracle.Manual
	for _, name := range cfg.OraclePriority {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "manual":
			manual = oracle.NewManual()
			agg.Register("manual", manual)
		case "coingecko":
			client := &http.Client{Timeout: 10 * time.Second}
			agg.Register("coingecko", oracle.NewCoinGeckoSource(client, "", coingeckoIDs))
		}
	}
	return agg, manual
}

// logEmitter mirrors engine events into the structured log.
type logEmitter struct {
	logger *slog.Logger
}

func (e logEmitter) Emit(event vault.Event) {
	e.logger.Info("vault event", "type", event.EventType(), "event", event)
}
