// Copyright 2025 Interlayer Labs
//
// Package config loads the relayer's flat Config from the environment (and
// optionally a config file) via viper -- the teacher's Config-struct-plus-
// Load() shape, generalized so per-chain settings live in a ChainConfig
// slice instead of a fixed set of named fields.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/interlayer-labs/relayer-core/pkg/gaspolicy"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// ChainConfig is one entry in the top-level config's chain list, grounded
// on the teacher's pkg/chain/strategy.ChainConfig shape.
type ChainConfig struct {
	Name                  string        `mapstructure:"name"`
	Domain                types.Domain  `mapstructure:"domain"`
	RPCURL                string        `mapstructure:"rpc_url"`
	MailboxAddress        string        `mapstructure:"mailbox_address"`
	MerkleTreeHookAddress string        `mapstructure:"merkle_tree_hook_address"`
	ValidatorAnnounceAddr string        `mapstructure:"validator_announce_address"`
	ReorgPeriod           uint64        `mapstructure:"reorg_period"`
	EstimatedBlockTime    time.Duration `mapstructure:"estimated_block_time"`
	SignerPrivateKeyEnv   string        `mapstructure:"signer_private_key_env"`
	RPCRequestsPerSecond  float64       `mapstructure:"rpc_requests_per_second"`
	RPCBurst              int           `mapstructure:"rpc_burst"`
}

// Config is the relayer's top-level configuration.
type Config struct {
	Chains []ChainConfig `mapstructure:"chains"`

	DataDir string `mapstructure:"data_dir"`

	ListenAddr  string `mapstructure:"listen_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	ContractSyncChunkSize    uint64        `mapstructure:"contract_sync_chunk_size"`
	ContractSyncSafetyMargin uint64        `mapstructure:"contract_sync_safety_margin"`
	PrepareMaxRetryInterval  time.Duration `mapstructure:"prepare_max_retry_interval"`
	SubmitQueueDepth         int           `mapstructure:"submit_queue_depth"`
	LanderMaxBatchSize       int           `mapstructure:"lander_max_batch_size"`
	ResubmissionDelay        time.Duration `mapstructure:"resubmission_delay"`

	MetadataMaxDepth    int `mapstructure:"metadata_max_depth"`
	MetadataMaxISMCount int `mapstructure:"metadata_max_ism_count"`

	GasPolicyRules []GasRuleConfig `mapstructure:"gas_policy_rules"`
}

// GasRuleConfig is one lane's gas-payment policy, as configured.
type GasRuleConfig struct {
	Origin         types.Domain  `mapstructure:"origin"`
	Destination    types.Domain  `mapstructure:"destination"`
	Kind           gaspolicy.Kind `mapstructure:"kind"`
	MinimumPayment uint64        `mapstructure:"minimum_payment"`
}

// Load reads configuration from environment variables (prefixed RELAYER_,
// nested fields joined with "_") and, if present, a config file named
// "relayer" on the given search paths.
func Load(configPaths ...string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RELAYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("relayer")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("listen_addr", "0.0.0.0:9091")
	v.SetDefault("metrics_addr", "0.0.0.0:9090")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("contract_sync_chunk_size", uint64(2000))
	v.SetDefault("contract_sync_safety_margin", uint64(20))
	v.SetDefault("prepare_max_retry_interval", 10*time.Minute)
	v.SetDefault("submit_queue_depth", 256)
	v.SetDefault("lander_max_batch_size", 32)
	v.SetDefault("resubmission_delay", 90*time.Second)
	v.SetDefault("metadata_max_depth", 8)
	v.SetDefault("metadata_max_ism_count", 16)
}

// Validate checks that every required field is present and internally
// consistent -- called once at startup before any chain adapter dials out.
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("config: at least one chain must be configured")
	}
	seen := make(map[types.Domain]bool, len(c.Chains))
	for _, chain := range c.Chains {
		if chain.RPCURL == "" {
			return fmt.Errorf("config: chain %q missing rpc_url", chain.Name)
		}
		if chain.MailboxAddress == "" {
			return fmt.Errorf("config: chain %q missing mailbox_address", chain.Name)
		}
		if seen[chain.Domain] {
			return fmt.Errorf("config: duplicate domain %d across chains", chain.Domain)
		}
		seen[chain.Domain] = true
	}
	return nil
}

// ChainByDomain finds a configured chain by its Hyperlane domain id.
func (c *Config) ChainByDomain(domain types.Domain) (ChainConfig, bool) {
	for _, chain := range c.Chains {
		if chain.Domain == domain {
			return chain, true
		}
	}
	return ChainConfig{}, false
}
