// Package config loads the server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"solana-security-token/internal/access"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/solana"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// DefaultProgramID is the program id PDAs derive under when none is configured.
const DefaultProgramID = "6yEnqdEjX3zBBDkzhwTRGJwv1jRaN4QE4gywmgdcfPBZ"

// Config represents the top-level configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Storage StorageConfig `yaml:"storage"`
	Solana  SolanaConfig  `yaml:"solana"`
	Roles   []RoleGrant   `yaml:"roles"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// StorageConfig selects the record store and the optional audit log.
type StorageConfig struct {
	Backend       string `yaml:"backend"` // memory, postgres
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // empty disables the audit log
}

// SolanaConfig holds address derivation and cluster settings.
type SolanaConfig struct {
	ProgramID     string        `yaml:"program_id"`
	PDACacheSize  int           `yaml:"pda_cache_size"`
	RPCEndpoint   string        `yaml:"rpc_endpoint"` // empty uses the host clock
	RPCMaxRetries int           `yaml:"rpc_max_retries"`
	Commitment    string        `yaml:"commitment"` // processed, confirmed, finalized
	ClockMaxAge   time.Duration `yaml:"clock_max_age"`
}

// RoleGrant gives caller roles for mint. Mint "*" grants them for every token.
type RoleGrant struct {
	Mint   string   `yaml:"mint"`
	Caller string   `yaml:"caller"`
	Roles  []string `yaml:"roles"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. Environment variables in the
// file are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	if c.Solana.ProgramID == "" {
		c.Solana.ProgramID = DefaultProgramID
	}
	if c.Solana.PDACacheSize == 0 {
		c.Solana.PDACacheSize = 4096
	}
	if c.Solana.ClockMaxAge == 0 {
		c.Solana.ClockMaxAge = 2 * time.Second
	}
	if c.Solana.RPCMaxRetries == 0 {
		c.Solana.RPCMaxRetries = solana.DefaultMaxRetries
	}
	if c.Solana.Commitment == "" {
		c.Solana.Commitment = solana.DefaultCommitment
	}
}

// Validate reports every inconsistency of the configuration.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if !solana.IsValidAddress(c.Solana.ProgramID) {
		errs = append(errs, fmt.Errorf("solana.program_id %q is not a valid address", c.Solana.ProgramID))
	}
	if c.Solana.PDACacheSize < 0 {
		errs = append(errs, errors.New("solana.pda_cache_size must not be negative"))
	}
	if c.Solana.RPCMaxRetries < 0 {
		errs = append(errs, errors.New("solana.rpc_max_retries must not be negative"))
	}
	switch c.Solana.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("unknown solana.commitment %q", c.Solana.Commitment))
	}

	for i, g := range c.Roles {
		if g.Mint != access.AnyMint && !solana.IsValidAddress(g.Mint) {
			errs = append(errs, fmt.Errorf("roles[%d]: mint %q is not a valid address", i, g.Mint))
		}
		if !solana.IsValidAddress(g.Caller) {
			errs = append(errs, fmt.Errorf("roles[%d]: caller %q is not a valid address", i, g.Caller))
		}
		if len(g.Roles) == 0 {
			errs = append(errs, fmt.Errorf("roles[%d]: no roles", i))
		}
		if _, err := g.role(); err != nil {
			errs = append(errs, fmt.Errorf("roles[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Logging.Level))); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// RoleTable builds the role table from the configured grants.
func (c *Config) RoleTable() (*access.Table, error) {
	table := access.NewTable()
	for i, g := range c.Roles {
		roles, err := g.role()
		if err != nil {
			return nil, fmt.Errorf("roles[%d]: %w", i, err)
		}
		table.Grant(g.Mint, g.Caller, roles)
	}
	return table, nil
}

func (g RoleGrant) role() (domain.Role, error) {
	var roles domain.Role
	for _, name := range g.Roles {
		r, err := domain.ParseRole(name)
		if err != nil {
			return 0, err
		}
		roles |= r
	}
	return roles, nil
}
