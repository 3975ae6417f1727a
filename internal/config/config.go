// Package config loads gateway configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration decodes from YAML strings and environment variables in
// time.ParseDuration syntax.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return d.Decode(raw)
}

// Decode implements envdecode.Decoder.
func (d *Duration) Decode(raw string) error {
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the gateway configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Chain      ChainConfig      `yaml:"chain"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Reward     RewardConfig     `yaml:"reward"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port            int      `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
}

type ChainConfig struct {
	RPCURL          string   `yaml:"rpc_url" env:"CHAIN_RPC_URL"`
	ContractAddress string   `yaml:"contract_address" env:"CHAIN_CONTRACT_ADDRESS"`
	RequestTimeout  Duration `yaml:"request_timeout" env:"CHAIN_REQUEST_TIMEOUT"`
	TxWaitTimeout   Duration `yaml:"tx_wait_timeout" env:"CHAIN_TX_WAIT_TIMEOUT"`
	PollInterval    Duration `yaml:"poll_interval" env:"CHAIN_POLL_INTERVAL"`
}

type ClassifierConfig struct {
	Endpoint string   `yaml:"endpoint" env:"CLASSIFIER_ENDPOINT"`
	APIKey   string   `yaml:"api_key" env:"CLASSIFIER_API_KEY"`
	Model    string   `yaml:"model" env:"CLASSIFIER_MODEL"`
	Timeout  Duration `yaml:"timeout" env:"CLASSIFIER_TIMEOUT"`
}

type RewardConfig struct {
	// Amount is the per-submission reward in whole VERD, as a decimal
	// string.
	Amount string `yaml:"amount" env:"REWARD_AMOUNT"`
}

type StorageConfig struct {
	// PostgresDSN selects the postgres store; when empty an in-memory
	// store is used.
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
}

type RedisConfig struct {
	// Addr selects the redis dedup store; when empty an in-memory
	// store is used.
	Addr     string   `yaml:"addr" env:"REDIS_ADDR"`
	DedupTTL Duration `yaml:"dedup_ttl" env:"REDIS_DEDUP_TTL"`
}

type AuthConfig struct {
	// PublicKeyPath points at a PEM encoded RSA public key used to
	// verify bearer tokens.
	PublicKeyPath string `yaml:"public_key_path" env:"AUTH_PUBLIC_KEY_PATH"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

type MonitorConfig struct {
	Schedule string `yaml:"schedule" env:"MONITOR_SCHEDULE"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Load reads configuration from the YAML file at path, then overlays
// environment variables. A missing file is not an error so deployments
// can run on environment alone. A .env file in the working directory
// is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration defaults applied before file and
// environment values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(3 * time.Minute),
			ShutdownTimeout: Duration(15 * time.Second),
			AllowedOrigins:  []string{"*"},
		},
		Chain: ChainConfig{
			RequestTimeout: Duration(30 * time.Second),
			TxWaitTimeout:  Duration(2 * time.Minute),
			PollInterval:   Duration(2 * time.Second),
		},
		Classifier: ClassifierConfig{
			Timeout: Duration(60 * time.Second),
		},
		Reward: RewardConfig{
			Amount: "1",
		},
		Redis: RedisConfig{
			DedupTTL: Duration(7 * 24 * time.Hour),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Monitor: MonitorConfig{
			Schedule: "@every 1m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func (c *Config) validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if c.Chain.ContractAddress == "" {
		return fmt.Errorf("chain.contract_address is required")
	}
	if c.Classifier.Endpoint == "" {
		return fmt.Errorf("classifier.endpoint is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	return nil
}
