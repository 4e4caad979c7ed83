package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Fantasim/hdwallet/internal/api"
	"github.com/Fantasim/hdwallet/internal/chainrpc"
	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/logging"
	"github.com/Fantasim/hdwallet/internal/oracle"
	"github.com/Fantasim/hdwallet/internal/orchestrator"
	"github.com/Fantasim/hdwallet/internal/runeindex"
	"github.com/Fantasim/hdwallet/internal/store"
	"github.com/Fantasim/hdwallet/internal/sync"
	"github.com/Fantasim/hdwallet/internal/utxostore"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("hdwallet %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: hdwallet <command>

Commands:
  serve     Start the HTTP server
  version   Print version information
`)
}

// primeOraclePublicKey makes the oracle public-key round trip survive
// a restart: a key cached by a prior process is loaded straight into
// cfg's in-memory cache, skipping the oracle entirely; otherwise it's
// fetched once here and persisted for the next restart.
func primeOraclePublicKey(ctx context.Context, cfg *config.Config, db *store.Store, oracleClient oracle.Signer) error {
	cached, err := db.LoadOraclePublicKey(cfg.KeyName())
	if err == nil {
		cfg.PrimeOraclePublicKey(cached)
		slog.Info("loaded cached oracle public key", "keyName", cfg.KeyName())
		return nil
	}
	if !errors.Is(err, store.ErrOraclePublicKeyNotFound) {
		return fmt.Errorf("load cached oracle public key: %w", err)
	}

	fetched, err := cfg.EnsureOraclePublicKey(ctx, oracleClient)
	if err != nil {
		return fmt.Errorf("fetch oracle public key: %w", err)
	}
	if err := db.SaveOraclePublicKey(cfg.KeyName(), fetched); err != nil {
		return fmt.Errorf("cache oracle public key: %w", err)
	}
	slog.Info("cached oracle public key", "keyName", cfg.KeyName())
	return nil
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	slog.Info("starting hdwallet",
		"version", version,
		"network", cfg.Network,
		"port", cfg.Port,
		"dbPath", cfg.DBPath,
		"logLevel", cfg.LogLevel,
	)

	netParams, err := cfg.NetworkName().Params()
	if err != nil {
		return fmt.Errorf("resolve network params: %w", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	httpClient := &http.Client{Timeout: config.ProviderRequestTimeout}

	var chainProviders []string
	if cfg.ChainRPCURL != "" {
		chainProviders = []string{cfg.ChainRPCURL}
	}
	chain := chainrpc.NewEsploraClient(httpClient, chainProviders, config.RateLimitChainRPC)
	runes := runeindex.NewHTTPClient(httpClient, cfg.RuneIndexURL)
	oracleClient := oracle.NewHTTPSigner(httpClient, cfg.OracleURL)

	if err := primeOraclePublicKey(context.Background(), cfg, db, oracleClient); err != nil {
		return fmt.Errorf("failed to establish oracle public key: %w", err)
	}

	pool := utxostore.NewManager()
	syncer := sync.New(chain, runes, pool, slog.Default())
	orch := orchestrator.New(cfg, pool, syncer, chain, oracleClient, netParams, slog.Default())

	slog.Info("wallet core wired", "network", cfg.Network, "keyName", cfg.KeyName())

	router := api.NewRouter(orch, cfg)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	srv := &http.Server{
		Addr:           addr,
		Handler:        router,
		ReadTimeout:    config.ServerReadTimeout,
		WriteTimeout:   config.ServerWriteTimeout,
		IdleTimeout:    config.ServerIdleTimeout,
		MaxHeaderBytes: config.ServerMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("initiating graceful shutdown", "timeout", config.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
