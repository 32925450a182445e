// Package config loads the indexer's TOML configuration file once at
// startup. Secrets (the database URL) take an env-var override so they
// never need to live in a checked-in file.
package config

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml"
)

// NetworkConfig is one entry of the `networks` table; `run_mode` selects
// which entry is active.
type NetworkConfig struct {
	RpcURL string `toml:"rpc_url"`
}

// IndexerConfig holds the checkpoint-worker tuning knobs.
type IndexerConfig struct {
	DevMode               bool   `toml:"dev_mode"`
	StartCheckpointNumber uint64 `toml:"start_checkpoint_number"`
	IndexerWorkerCount    int    `toml:"indexer_worker_count"`
}

// ArbitrageConfig holds the lag-alert threshold. The section name matches
// the downstream arbitrage workers' config even though the indexer itself
// does not execute trades.
type ArbitrageConfig struct {
	IndexerLaggingMsThreshold int64 `toml:"indexer_lagging_ms_threshold"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL             string        `toml:"url"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

// Config is the root of the TOML file.
type Config struct {
	ServiceName    string
	ServiceVersion string
	HealthPort     int

	LogLevel               string                   `toml:"log_level"`
	RunMode                string                   `toml:"run_mode"`
	ArbitrageEnabled       bool                     `toml:"arbitrage_enabled"`
	LiquidationEnabled     bool                     `toml:"liquidation_enabled"`
	OnchainIndexerEnabled  bool                     `toml:"onchain_indexer_enabled"`
	Indexer                IndexerConfig            `toml:"indexer"`
	Arbitrage              ArbitrageConfig          `toml:"arbitrage"`
	Database               DatabaseConfig           `toml:"database"`
	Networks               map[string]NetworkConfig `toml:"networks"`
}

// LoadFromFile decodes the TOML file at path and applies environment
// overrides for values that should never live in a checked-in config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{
		ServiceName:           "onchain-indexer",
		ServiceVersion:        "v1.0.0",
		HealthPort:            8089,
		LogLevel:              "info",
		RunMode:               "mainnet",
		OnchainIndexerEnabled: true,
		Indexer: IndexerConfig{
			IndexerWorkerCount: 4,
		},
		Arbitrage: ArbitrageConfig{
			IndexerLaggingMsThreshold: 30_000,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("HEALTH_PORT"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &cfg.HealthPort); err != nil {
			return nil, fmt.Errorf("config: invalid HEALTH_PORT: %w", err)
		}
	}

	return cfg, nil
}

// ActiveNetwork resolves the NetworkConfig named by RunMode.
func (c *Config) ActiveNetwork() (NetworkConfig, error) {
	net, ok := c.Networks[c.RunMode]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("config: no networks entry for run_mode %q", c.RunMode)
	}
	return net, nil
}

// Validate ensures the configuration is usable before the process starts
// dispatching checkpoints. A failure here aborts startup.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("config: database.url is required")
	}
	if c.Indexer.IndexerWorkerCount <= 0 {
		return fmt.Errorf("config: indexer.indexer_worker_count must be positive")
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("config: invalid health port: %d", c.HealthPort)
	}
	if _, err := c.ActiveNetwork(); err != nil {
		return err
	}
	return nil
}

// String returns a log-safe representation (never includes the database URL).
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Service: %s/%s, RunMode: %s, HealthPort: %d, DevMode: %v, WorkerCount: %d, Arbitrage: %v, Liquidation: %v}",
		c.ServiceName, c.ServiceVersion, c.RunMode, c.HealthPort,
		c.Indexer.DevMode, c.Indexer.IndexerWorkerCount, c.ArbitrageEnabled, c.LiquidationEnabled,
	)
}
