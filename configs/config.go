package configs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mlayerprotocol/go-airdrop/common/constants"
	"github.com/spf13/viper"
)

type StorageDriver string

const (
	IPFSStorage   StorageDriver = "ipfs"
	BadgerStorage StorageDriver = "badger"
	MemoryStorage StorageDriver = "memory"
)

type MainConfiguration struct {
	LogLevel    string   `mapstructure:"log_level"`
	LogFormat   string   `mapstructure:"log_format"`
	DataDir     string   `mapstructure:"data_dir"`
	RestAddress string   `mapstructure:"rest_address"`
	APIKeys     []string `mapstructure:"api_keys"`

	MaxBatchSize         int   `mapstructure:"max_batch_size"`
	MaxScaleExponent     int32 `mapstructure:"max_scale_exponent"`
	DefaultScaleExponent int32 `mapstructure:"default_scale_exponent"`

	StorageDriver  StorageDriver `mapstructure:"storage_driver"`
	IPFSAPIURL     string        `mapstructure:"ipfs_api_url"`
	IPFSGatewayURL string        `mapstructure:"ipfs_gateway_url"`
	IPFSAuthToken  string        `mapstructure:"ipfs_auth_token"`
	IPFSTimeout    time.Duration `mapstructure:"ipfs_timeout"`

	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	FetchConcurrency  int           `mapstructure:"fetch_concurrency"`
	FetchRetries      uint64        `mapstructure:"fetch_retries"`
	DocumentCacheSize int           `mapstructure:"document_cache_size"`

	EVMRPC             string        `mapstructure:"evm_rpc"`
	DistributorFactory string        `mapstructure:"distributor_factory"`
	LedgerTimeout      time.Duration `mapstructure:"ledger_timeout"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("rest_address", "127.0.0.1:9531")
	v.SetDefault("api_keys", []string{})
	v.SetDefault("max_batch_size", 50000)
	v.SetDefault("max_scale_exponent", 36)
	v.SetDefault("default_scale_exponent", 18)
	v.SetDefault("storage_driver", string(BadgerStorage))
	v.SetDefault("ipfs_api_url", "http://127.0.0.1:5001")
	v.SetDefault("ipfs_gateway_url", "")
	v.SetDefault("ipfs_auth_token", "")
	v.SetDefault("ipfs_timeout", 60*time.Second)
	v.SetDefault("fetch_timeout", 10*time.Second)
	v.SetDefault("fetch_concurrency", 8)
	v.SetDefault("fetch_retries", 2)
	v.SetDefault("document_cache_size", 256)
	v.SetDefault("evm_rpc", "")
	v.SetDefault("distributor_factory", "")
	v.SetDefault("ledger_timeout", 5*time.Second)
}

// Load reads the configuration from defaults, an optional config file and the
// AIRDROP_* environment. Flags bound on v before calling Load take precedence.
func Load(v *viper.Viper, file string) (*MainConfiguration, error) {
	SetDefaults(v)
	v.SetEnvPrefix("airdrop")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("configs: read %s: %w", file, err)
		}
	}
	cfg := &MainConfiguration{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("configs: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *MainConfiguration) Validate() error {
	if cfg.MaxBatchSize <= 0 {
		return fmt.Errorf("configs: max_batch_size must be positive, got %d", cfg.MaxBatchSize)
	}
	if cfg.MaxScaleExponent < 0 || cfg.MaxScaleExponent > 77 {
		return fmt.Errorf("configs: max_scale_exponent must be in [0, 77], got %d", cfg.MaxScaleExponent)
	}
	if cfg.DefaultScaleExponent < 0 || cfg.DefaultScaleExponent > cfg.MaxScaleExponent {
		return fmt.Errorf("configs: default_scale_exponent %d outside [0, %d]", cfg.DefaultScaleExponent, cfg.MaxScaleExponent)
	}
	if cfg.FetchConcurrency <= 0 {
		return fmt.Errorf("configs: fetch_concurrency must be positive, got %d", cfg.FetchConcurrency)
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("configs: fetch_timeout must be positive")
	}
	switch cfg.StorageDriver {
	case IPFSStorage, BadgerStorage, MemoryStorage:
	default:
		return fmt.Errorf("configs: unknown storage_driver %q", cfg.StorageDriver)
	}
	if cfg.DistributorFactory != "" && !common.IsHexAddress(cfg.DistributorFactory) {
		return fmt.Errorf("configs: distributor_factory %q is not an address", cfg.DistributorFactory)
	}
	return nil
}

// LedgerEnabled reports whether on-chain enrichment is configured.
func (cfg *MainConfiguration) LedgerEnabled() bool {
	return cfg.EVMRPC != "" && cfg.DistributorFactory != ""
}

func WithConfig(ctx context.Context, cfg *MainConfiguration) context.Context {
	return context.WithValue(ctx, constants.ConfigKey, cfg)
}

func FromContext(ctx context.Context) (*MainConfiguration, bool) {
	cfg, ok := ctx.Value(constants.ConfigKey).(*MainConfiguration)
	return cfg, ok
}
