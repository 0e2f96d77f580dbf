// Package config loads and validates the indexer configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WrappedSOL is the canonical reference mint when none is configured.
const WrappedSOL = "So11111111111111111111111111111111111111112"

// Config is the root configuration document.
type Config struct {
	Chain     ChainConfig     `yaml:"chain"`
	Engine    EngineConfig    `yaml:"engine"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// ChainConfig holds chain connectivity settings.
type ChainConfig struct {
	RPCEndpoint string `yaml:"rpc_endpoint"`
	WSEndpoint  string `yaml:"ws_endpoint"`

	// AMMProgram and CurveProgram are the venue program IDs whose
	// accounts are read for pricing and whose logs are ingested.
	AMMProgram   string `yaml:"amm_program"`
	CurveProgram string `yaml:"curve_program"`
}

// Programs returns the non-empty venue program IDs.
func (c ChainConfig) Programs() []string {
	var programs []string
	if c.AMMProgram != "" {
		programs = append(programs, c.AMMProgram)
	}
	if c.CurveProgram != "" {
		programs = append(programs, c.CurveProgram)
	}
	return programs
}

// EngineConfig tunes the reconciliation engine. Zero values take the
// engine's own defaults.
type EngineConfig struct {
	ReferenceMint       string  `yaml:"reference_mint"`
	SanityBandFactor    float64 `yaml:"sanity_band_factor"`
	DerivedPriceCeiling float64 `yaml:"derived_price_ceiling"`
	PoolScanLimit       int     `yaml:"pool_scan_limit"`
	MaxPoolsRetained    int     `yaml:"max_pools_retained"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "memory" or "database".
	Backend       string `yaml:"backend"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// IngestionConfig tunes the ingestion runner.
type IngestionConfig struct {
	PruneInterval time.Duration `yaml:"prune_interval"`
	Retention     time.Duration `yaml:"retention"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics, empty to disable.
	Addr string `yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`
	// Development switches to the human-readable console encoder.
	Development bool `yaml:"development"`
}

// Load reads, parses, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.ReferenceMint == "" {
		c.Engine.ReferenceMint = WrappedSOL
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Chain.RPCEndpoint == "" {
		return fmt.Errorf("chain.rpc_endpoint is required")
	}
	if c.Chain.WSEndpoint == "" {
		return fmt.Errorf("chain.ws_endpoint is required")
	}
	if len(c.Chain.Programs()) == 0 {
		return fmt.Errorf("at least one of chain.amm_program or chain.curve_program is required")
	}
	switch c.Storage.Backend {
	case "memory":
	case "database":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the database backend")
		}
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("storage.clickhouse_dsn is required for the database backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	return nil
}
