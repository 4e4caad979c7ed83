package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment
// variables, plus the lazily-fetched oracle public key that every
// derivation in internal/addressing is computed against.
type Config struct {
	DBPath   string `envconfig:"HDWALLET_DB_PATH" default:"./data/hdwallet.sqlite"`
	Port     int    `envconfig:"HDWALLET_PORT" default:"8080"`
	LogLevel string `envconfig:"HDWALLET_LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"HDWALLET_LOG_DIR" default:"./logs"`
	Network  string `envconfig:"HDWALLET_NETWORK" default:"testnet"`

	ChainRPCURL  string `envconfig:"HDWALLET_CHAIN_RPC_URL"`
	RuneIndexURL string `envconfig:"HDWALLET_RUNE_INDEX_URL"`
	OracleURL    string `envconfig:"HDWALLET_ORACLE_URL"`

	mu        sync.RWMutex
	network   Network
	keyName   string
	oraclePub *OraclePublicKey
}

// OraclePublicKey is the cached extended public key fetched once, at
// process start, from the signing oracle. Every address derivation
// walks a child-key-derivation chain rooted here.
type OraclePublicKey struct {
	PublicKey []byte // 33-byte SEC1-compressed
	ChainCode []byte // 32 bytes
}

// Load reads configuration from a .env file (if present) then from
// environment variables; real environment variables always win.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Warn("failed to load .env file", "error", err)
		} else {
			slog.Info("loaded .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) init() error {
	network, err := ParseNetwork(c.Network)
	if err != nil {
		return err
	}
	keyName, err := network.KeyName()
	if err != nil {
		return err
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	c.network = network
	c.keyName = keyName
	return nil
}

// Validate re-checks the already-loaded fields; kept separate from
// init so tests can construct a Config by hand and validate it.
func (c *Config) Validate() error {
	return c.init()
}

func (c *Config) NetworkName() Network { return c.network }

func (c *Config) KeyName() string { return c.keyName }

// PublicKeyFetcher is satisfied by internal/oracle.Signer; kept as a
// narrow local interface so config doesn't import the oracle package.
type PublicKeyFetcher interface {
	PublicKey(ctx context.Context, keyName string) (pubKey, chainCode []byte, err error)
}

// EnsureOraclePublicKey fetches and caches the oracle's extended public
// key the first time it's needed, mirroring the lazy fetch performed
// once at process start. Safe for concurrent callers: only the first
// caller in a race pays the round trip.
func (c *Config) EnsureOraclePublicKey(ctx context.Context, fetcher PublicKeyFetcher) (*OraclePublicKey, error) {
	c.mu.RLock()
	if c.oraclePub != nil {
		pub := c.oraclePub
		c.mu.RUnlock()
		return pub, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.oraclePub != nil {
		return c.oraclePub, nil
	}
	pubKey, chainCode, err := fetcher.PublicKey(ctx, c.keyName)
	if err != nil {
		return nil, fmt.Errorf("fetch oracle public key: %w", err)
	}
	c.oraclePub = &OraclePublicKey{PublicKey: pubKey, ChainCode: chainCode}
	return c.oraclePub, nil
}

// PrimeOraclePublicKey seeds the cache from a value persisted by a
// prior process (internal/store), letting EnsureOraclePublicKey skip
// the oracle round trip entirely on a restart.
func (c *Config) PrimeOraclePublicKey(pub *OraclePublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.oraclePub = pub
}

// CachedOraclePublicKey returns the cached key, or ErrOraclePubKeyUnset
// if EnsureOraclePublicKey has never succeeded.
func (c *Config) CachedOraclePublicKey() (*OraclePublicKey, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.oraclePub == nil {
		return nil, ErrOraclePubKeyUnset
	}
	return c.oraclePub, nil
}
