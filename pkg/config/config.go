// Package config loads the service and builder configuration from the
// environment and an optional YAML overlay file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig holds the configuration for the long-running service loop
// (cmd/service), combining CLI flags, environment variables, and an optional
// YAML file overlay.
type ServiceConfig struct {
	// CLI-surfaced fields (see spec "CLI (service)").
	ProverURL      string        // --prover
	CoprocessorURL string        // --coprocessor
	DomainName     string        // --domain
	Interval       time.Duration // --interval

	// Required environment secrets.
	AnkrAPIKey    string // ANKR_API_KEY — beacon RPC
	AlchemyAPIKey string // ALCHEMY_API_KEY — execution-layer JSON-RPC

	// Ambient operational fields.
	BeaconBaseURL    string
	ExecutionRPCURL  string
	ListenAddr       string // health + metrics HTTP surface
	HistoryCapacity  int
	HistoryMinimum   int
	LocalStatePath   string // optional file-backed KV for cometbft-db
}

// BuilderConfig holds the configuration for the asset-builder CLI
// (cmd/builder), which writes bootstrap fixtures and deploys controller
// assets to a coprocessor host.
type BuilderConfig struct {
	CoprocessorURL string // --coprocessor
	DomainName     string // --name
	AssetsDir      string
}

// fileOverlay is the shape of an optional YAML config file; any field left
// zero does not override the corresponding environment-derived default.
type fileOverlay struct {
	ProverURL       string `yaml:"prover_url"`
	CoprocessorURL  string `yaml:"coprocessor_url"`
	DomainName      string `yaml:"domain_name"`
	IntervalMS      int64  `yaml:"interval_ms"`
	BeaconBaseURL   string `yaml:"beacon_base_url"`
	ExecutionRPCURL string `yaml:"execution_rpc_url"`
	ListenAddr      string `yaml:"listen_addr"`
	HistoryCapacity int    `yaml:"history_capacity"`
	HistoryMinimum  int    `yaml:"history_minimum"`
	LocalStatePath  string `yaml:"local_state_path"`
}

// LoadService builds a ServiceConfig from environment variables, applying an
// optional YAML overlay read from path (ignored if path is empty or the file
// does not exist). CLI flags, when non-zero, take precedence over both and
// must be applied by the caller after LoadService returns.
func LoadService(overlayPath string) (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		ProverURL:       getEnv("PROVER_URL", "ws://127.0.0.1:9000"),
		CoprocessorURL:  getEnv("COPROCESSOR_URL", "http://127.0.0.1:37281"),
		DomainName:      getEnv("DOMAIN_NAME", "ethereum"),
		Interval:        getEnvDuration("SERVICE_INTERVAL", 30*time.Second),
		AnkrAPIKey:      os.Getenv("ANKR_API_KEY"),
		AlchemyAPIKey:   os.Getenv("ALCHEMY_API_KEY"),
		BeaconBaseURL:   getEnv("BEACON_BASE_URL", "https://rpc.ankr.com/premium-http/eth_beacon"),
		ExecutionRPCURL: getEnv("EXECUTION_RPC_URL", "https://eth-mainnet.g.alchemy.com/v2"),
		ListenAddr:      getEnv("LISTEN_ADDR", ":9400"),
		HistoryCapacity: getEnvInt("HISTORY_CAPACITY", 10),
		HistoryMinimum:  getEnvInt("HISTORY_MINIMUM", 2),
		LocalStatePath:  getEnv("LOCAL_STATE_PATH", "./data/history"),
	}

	if overlayPath != "" {
		if err := applyOverlay(overlayPath, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func applyOverlay(path string, cfg *ServiceConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read overlay %q: %w", path, err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("config: parse overlay %q: %w", path, err)
	}

	if overlay.ProverURL != "" {
		cfg.ProverURL = overlay.ProverURL
	}
	if overlay.CoprocessorURL != "" {
		cfg.CoprocessorURL = overlay.CoprocessorURL
	}
	if overlay.DomainName != "" {
		cfg.DomainName = overlay.DomainName
	}
	if overlay.IntervalMS > 0 {
		cfg.Interval = time.Duration(overlay.IntervalMS) * time.Millisecond
	}
	if overlay.BeaconBaseURL != "" {
		cfg.BeaconBaseURL = overlay.BeaconBaseURL
	}
	if overlay.ExecutionRPCURL != "" {
		cfg.ExecutionRPCURL = overlay.ExecutionRPCURL
	}
	if overlay.ListenAddr != "" {
		cfg.ListenAddr = overlay.ListenAddr
	}
	if overlay.HistoryCapacity > 0 {
		cfg.HistoryCapacity = overlay.HistoryCapacity
	}
	if overlay.HistoryMinimum > 0 {
		cfg.HistoryMinimum = overlay.HistoryMinimum
	}
	if overlay.LocalStatePath != "" {
		cfg.LocalStatePath = overlay.LocalStatePath
	}

	return nil
}

// Validate reports every configuration error at once rather than failing on
// the first missing field, matching the spec's "Configuration" error kind:
// missing env var or bad CLI argument is fatal at startup.
func (c *ServiceConfig) Validate() error {
	var errs []string

	if c.AnkrAPIKey == "" {
		errs = append(errs, "ANKR_API_KEY is required but not set")
	}
	if c.AlchemyAPIKey == "" {
		errs = append(errs, "ALCHEMY_API_KEY is required but not set")
	}
	if c.ProverURL == "" {
		errs = append(errs, "--prover (or PROVER_URL) is required")
	}
	if c.CoprocessorURL == "" {
		errs = append(errs, "--coprocessor (or COPROCESSOR_URL) is required")
	}
	if c.DomainName == "" {
		errs = append(errs, "--domain (or DOMAIN_NAME) is required")
	}
	if c.Interval <= 0 {
		errs = append(errs, "--interval must be positive")
	}
	if c.HistoryMinimum < 1 {
		errs = append(errs, "HISTORY_MINIMUM must be at least 1")
	}
	if c.HistoryCapacity < c.HistoryMinimum {
		errs = append(errs, "HISTORY_CAPACITY must be >= HISTORY_MINIMUM")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LoadBuilder builds a BuilderConfig from environment variables.
func LoadBuilder() *BuilderConfig {
	return &BuilderConfig{
		CoprocessorURL: getEnv("COPROCESSOR_URL", "http://127.0.0.1:37281"),
		DomainName:     getEnv("DOMAIN_NAME", "ethereum"),
		AssetsDir:      getEnv("ASSETS_DIR", "./assets"),
	}
}

func (c *BuilderConfig) Validate() error {
	var errs []string
	if c.CoprocessorURL == "" {
		errs = append(errs, "--coprocessor (or COPROCESSOR_URL) is required")
	}
	if c.DomainName == "" {
		errs = append(errs, "--name (or DOMAIN_NAME) is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
