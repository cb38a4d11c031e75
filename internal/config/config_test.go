package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "8090", cfg.Server.Port)
	require.Equal(t, "http://localhost:8080", cfg.Ledger.BaseURL)
	require.Equal(t, 10*time.Second, cfg.Ledger.RequestTimeout)
	require.Equal(t, 2*time.Second, cfg.Bidding.PollInterval)
	require.Equal(t, time.Second, cfg.Bidding.TickInterval)
	require.False(t, cfg.Database.Enabled())
	require.False(t, cfg.Redis.Enabled())
	require.Equal(t, 1024, cfg.WebSocket.ReadBufferSize)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv(LedgerBaseURL, "https://ledger.example.com/")
	t.Setenv(BidPollInterval, "500ms")
	t.Setenv(RedisAddr, "localhost:6379")
	t.Setenv(DBURL, "postgres://bids@localhost/bids?sslmode=disable")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "https://ledger.example.com", cfg.Ledger.BaseURL)
	require.Equal(t, 500*time.Millisecond, cfg.Bidding.PollInterval)
	require.True(t, cfg.Redis.Enabled())
	require.True(t, cfg.Database.Enabled())
	require.Equal(t, "postgres://bids@localhost/bids?sslmode=disable", cfg.Database.GetConnectionString())
}

func TestLoadConfig_RejectsFastPolling(t *testing.T) {
	t.Setenv(BidPollInterval, "100ms")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: "8090"},
			Ledger:  LedgerConfig{BaseURL: "http://localhost:8080", RequestTimeout: time.Second},
			Bidding: BiddingConfig{PollInterval: 2 * time.Second, TickInterval: time.Second},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no_port", mutate: func(c *Config) { c.Server.Port = "" }},
		{name: "no_ledger", mutate: func(c *Config) { c.Ledger.BaseURL = "" }},
		{name: "no_timeout", mutate: func(c *Config) { c.Ledger.RequestTimeout = 0 }},
		{name: "poll_below_floor", mutate: func(c *Config) { c.Bidding.PollInterval = MinPollInterval - time.Millisecond }},
		{name: "no_tick", mutate: func(c *Config) { c.Bidding.TickInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
