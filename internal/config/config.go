package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration constants
const (
	// Server Configuration
	Port = "PORT"
	Host = "HOST"

	// Ledger Configuration
	LedgerBaseURL        = "LEDGER_BASE_URL"
	LedgerRequestTimeout = "LEDGER_REQUEST_TIMEOUT"

	// Bidding Configuration
	BidPollInterval       = "BID_POLL_INTERVAL"
	CountdownTickInterval = "COUNTDOWN_TICK_INTERVAL"

	// Database Configuration
	DBURL = "DB_URL"

	// Logging Configuration
	LogLevel  = "LOG_LEVEL"
	LogFormat = "LOG_FORMAT"

	// Redis Configuration
	RedisAddr     = "REDIS_ADDR"
	RedisPassword = "REDIS_PASSWORD"
	RedisDB       = "REDIS_DB"

	// WebSocket Configuration
	WSReadBufferSize  = "WS_READ_BUFFER_SIZE"
	WSWriteBufferSize = "WS_WRITE_BUFFER_SIZE"
	WSMaxWorkers      = 4
	WSMaxCapacity     = 64

	// MinPollInterval keeps the reconciler from flooding the ledger.
	MinPollInterval = 250 * time.Millisecond
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Ledger    LedgerConfig
	Bidding   BiddingConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Logging   LoggingConfig
	WebSocket WebSocketConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// LedgerConfig holds the bid ledger endpoint settings
type LedgerConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// BiddingConfig holds the cadences of a bid session's schedules
type BiddingConfig struct {
	PollInterval time.Duration
	TickInterval time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// RedisConfig holds Redis configuration. An empty Addr disables the bid feed.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
}

// LoadConfig loads configuration from environment variables and .envrc file
func LoadConfig() (*Config, error) {
	viper.SetConfigName(".envrc")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("../config")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	// Config file is optional, env vars are enough
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: viper.GetString(Port),
			Host: viper.GetString(Host),
		},
		Ledger: LedgerConfig{
			BaseURL:        strings.TrimRight(viper.GetString(LedgerBaseURL), "/"),
			RequestTimeout: viper.GetDuration(LedgerRequestTimeout),
		},
		Bidding: BiddingConfig{
			PollInterval: viper.GetDuration(BidPollInterval),
			TickInterval: viper.GetDuration(CountdownTickInterval),
		},
		Database: DatabaseConfig{
			URL: viper.GetString(DBURL),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString(RedisAddr),
			Password: viper.GetString(RedisPassword),
			DB:       viper.GetInt(RedisDB),
		},
		Logging: LoggingConfig{
			Level:  viper.GetString(LogLevel),
			Format: viper.GetString(LogFormat),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  viper.GetInt(WSReadBufferSize),
			WriteBufferSize: viper.GetInt(WSWriteBufferSize),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault(Port, "8090")
	viper.SetDefault(Host, "")

	viper.SetDefault(LedgerBaseURL, "http://localhost:8080")
	viper.SetDefault(LedgerRequestTimeout, "10s")

	viper.SetDefault(BidPollInterval, "2s")
	viper.SetDefault(CountdownTickInterval, "1s")

	// Receipts journal and bid feed are off unless configured
	viper.SetDefault(DBURL, "")
	viper.SetDefault(RedisAddr, "")
	viper.SetDefault(RedisPassword, "")
	viper.SetDefault(RedisDB, 0)

	viper.SetDefault(LogLevel, "info")
	viper.SetDefault(LogFormat, "json")

	viper.SetDefault(WSReadBufferSize, 1024)
	viper.SetDefault(WSWriteBufferSize, 1024)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Ledger.BaseURL == "" {
		return fmt.Errorf("ledger base URL is required")
	}

	if c.Ledger.RequestTimeout <= 0 {
		return fmt.Errorf("ledger request timeout must be positive")
	}

	if c.Bidding.PollInterval < MinPollInterval {
		return fmt.Errorf("bid poll interval must be at least %s", MinPollInterval)
	}

	if c.Bidding.TickInterval <= 0 {
		return fmt.Errorf("countdown tick interval must be positive")
	}

	return nil
}
