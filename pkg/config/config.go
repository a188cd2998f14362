package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the bump worker configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Quote      QuoteConfig      `mapstructure:"quote"`
	Relay      RelayConfig      `mapstructure:"relay"`
	Wallet     WalletConfig     `mapstructure:"wallet"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ChainConfig describes the chain and native asset bumps are executed on
type ChainConfig struct {
	ChainID       int64  `mapstructure:"chain_id"`
	NativeSymbol  string `mapstructure:"native_symbol"`
	NativeDecimal int    `mapstructure:"native_decimals"`
	// NativeToken is the pseudo-address the quote service uses for the
	// native asset (e.g. 0xeeee...eeee).
	NativeToken string `mapstructure:"native_token"`
}

// OracleConfig contains price oracle settings
type OracleConfig struct {
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// QuoteConfig contains quote service settings
type QuoteConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	SlippageBps    int           `mapstructure:"slippage_bps"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RelayConfig contains transaction relay (gasless bundler) settings
type RelayConfig struct {
	URL             string        `mapstructure:"url"`
	SponsorshipID   string        `mapstructure:"sponsorship_id"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ReceiptTimeout  time.Duration `mapstructure:"receipt_timeout"`
	ReceiptInterval time.Duration `mapstructure:"receipt_interval"`
}

// WalletConfig contains key-derivation and custody settings
type WalletConfig struct {
	// Mnemonic seeds deterministic owner-key derivation for all bot wallets.
	Mnemonic string `mapstructure:"mnemonic"`
	// MasterKeyHex is the 32-byte AES-256 key (hex) used to encrypt stored keys.
	MasterKeyHex string `mapstructure:"master_key_hex"`
}

// SchedulerConfig contains worker loop settings
type SchedulerConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	LeaseDuration time.Duration `mapstructure:"lease_duration"`
}

// AuthConfig contains JWT validation settings for the trigger API
type AuthConfig struct {
	JWKSURL string `mapstructure:"jwks_url"`
	Issuer  string `mapstructure:"issuer"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "bump_engine")

	// Chain defaults (mainnet, ETH)
	viper.SetDefault("chain.chain_id", 1)
	viper.SetDefault("chain.native_symbol", "ETH")
	viper.SetDefault("chain.native_decimals", 18)
	viper.SetDefault("chain.native_token", "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")

	// Oracle defaults
	viper.SetDefault("oracle.request_timeout", "10s")
	viper.SetDefault("oracle.cache_ttl", "30s")

	// Quote defaults
	viper.SetDefault("quote.slippage_bps", 100)
	viper.SetDefault("quote.request_timeout", "15s")

	// Relay defaults
	viper.SetDefault("relay.request_timeout", "15s")
	viper.SetDefault("relay.receipt_timeout", "60s")
	viper.SetDefault("relay.receipt_interval", "2s")

	// Scheduler defaults
	viper.SetDefault("scheduler.poll_interval", "30s")
	viper.SetDefault("scheduler.lease_duration", "2m")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if config.Oracle.URL == "" {
		return fmt.Errorf("oracle.url is required")
	}
	if config.Quote.BaseURL == "" {
		return fmt.Errorf("quote.base_url is required")
	}
	if config.Relay.URL == "" {
		return fmt.Errorf("relay.url is required")
	}
	if config.Wallet.Mnemonic == "" {
		return fmt.Errorf("wallet.mnemonic is required")
	}
	if config.Wallet.MasterKeyHex == "" {
		return fmt.Errorf("wallet.master_key_hex is required")
	}
	if config.Quote.SlippageBps <= 0 || config.Quote.SlippageBps > 10000 {
		return fmt.Errorf("quote.slippage_bps must be in (0, 10000]")
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
