package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is resolved once at process start and passed by pointer into the
// engine, registry and warehouse layers. Nothing below the CLI reads the
// environment directly.
type Config struct {
	OutputRoot   string    `json:"output_root" mapstructure:"output_root"`
	BatchSize    int       `json:"batch_size" mapstructure:"batch_size"`
	DefaultRows  int       `json:"default_rows" mapstructure:"default_rows"`
	RegistryPath string    `json:"registry_path" mapstructure:"registry_path"`
	ListenAddr   string    `json:"listen_addr" mapstructure:"listen_addr"`
	Warehouse    Warehouse `json:"warehouse" mapstructure:"warehouse"`
}

type Warehouse struct {
	Provider string `json:"provider" mapstructure:"provider"`
	URLEnv   string `json:"url_env" mapstructure:"url_env"`
}

func Load() (*Config, error) {
	var cfg Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Defaults
	if cfg.OutputRoot == "" {
		cfg.OutputRoot = "dw_data"
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10000
	}
	if cfg.DefaultRows == 0 {
		cfg.DefaultRows = 100
	}
	if cfg.RegistryPath == "" {
		cfg.RegistryPath = "dwsim_runs.db"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Warehouse.Provider == "" {
		cfg.Warehouse.Provider = "sqlite"
	}
	if cfg.Warehouse.URLEnv == "" {
		cfg.Warehouse.URLEnv = "WAREHOUSE_URL"
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	supportedProviders := []string{"postgresql", "postgres", "mysql", "sqlite", "sqlite3"}
	supported := false
	for _, provider := range supportedProviders {
		if c.Warehouse.Provider == provider {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unsupported warehouse provider: %s. Supported providers: %v", c.Warehouse.Provider, supportedProviders)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.DefaultRows <= 0 {
		return fmt.Errorf("default_rows must be positive")
	}
	if c.OutputRoot == "" {
		return fmt.Errorf("output_root cannot be empty")
	}

	return nil
}

// GetWarehouseURL resolves the warehouse connection string from the
// configured environment variable.
func (c *Config) GetWarehouseURL() (string, error) {
	url := os.Getenv(c.Warehouse.URLEnv)
	if url == "" {
		return "", fmt.Errorf("warehouse URL not found in environment variable %s", c.Warehouse.URLEnv)
	}
	return url, nil
}
