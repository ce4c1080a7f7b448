// Package config loads the daemon configuration from file and
// environment. Engine-level parameters (fee rate, fee floor) are
// protocol constants and deliberately absent here.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the paychaind process configuration.
type Config struct {
	ListenAddr    string `mapstructure:"listen_addr"`
	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`

	// Store selects the persistence backend: "memory" or "badger".
	Store struct {
		Backend string `mapstructure:"backend"`
		Dir     string `mapstructure:"dir"`
	} `mapstructure:"store"`

	// Genesis optionally initializes the deployment at startup and
	// seeds local-mode token balances (base58 address -> amount).
	Genesis struct {
		ChainID      string            `mapstructure:"chain_id"`
		Authority    string            `mapstructure:"authority"`
		FeeRecipient string            `mapstructure:"fee_recipient"`
		Router       string            `mapstructure:"router"`
		Balances     map[string]uint64 `mapstructure:"balances"`
	} `mapstructure:"genesis"`
}

// Load reads configuration from the given file (optional), falling
// back to PAYCHAIN_* environment variables and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8402")
	v.SetDefault("log_level", "info")
	v.SetDefault("enable_metrics", true)
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.dir", "./data")

	v.SetEnvPrefix("PAYCHAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Store.Backend != "memory" && cfg.Store.Backend != "badger" {
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	return &cfg, nil
}
