package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/mtftrader/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(Default(), Credentials{})
	require.NoError(t, err)

	assert.Equal(t, PlatformSimulate, cfg.Platform)
	assert.Equal(t, domain.Pair{From: "BTC", To: "USDT"}, cfg.Pair)
	assert.Equal(t, domain.MarketTypeSpot, cfg.MarketType)
	assert.Equal(t, "15m", cfg.FastInterval)
	assert.Equal(t, "4h", cfg.SlowInterval)
	assert.Equal(t, 200, cfg.Lookback)
	assert.True(t, cfg.ClosedCandlesOnly)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, 60*time.Second, cfg.ErrorBackoff)
	assert.True(t, cfg.Risk.MaxRiskFraction.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, cfg.Risk.StopMultiplier.Equal(decimal.NewFromInt(2)))
	assert.True(t, cfg.Signal.Overbought.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, BalanceSourceFixed, cfg.BalanceSource)
	assert.True(t, cfg.FixedBalance.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "USDT", cfg.BalanceCurrency)
	assert.True(t, cfg.SimulateBalance.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, DedupMemory, cfg.Dedup.Backend)
	assert.Equal(t, JournalWAL, cfg.Journal.Type)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestReadFile_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
platform: simulate
pair: eth_usdt
market_type: margin
timeframes:
  fast: 5m
  slow: 1h
market:
  lookback: 120
risk:
  max_risk_fraction: "0.02"
  reward_risk_ratio: "3"
loop:
  poll_interval: 1m
execution:
  exit_on_opposite_signal: true
events:
  kafka:
    brokers: ["localhost:9092"]
    topic: trades
`)

	f, err := ReadFile(path)
	require.NoError(t, err)
	cfg, err := Parse(f, Credentials{})
	require.NoError(t, err)

	assert.Equal(t, domain.Pair{From: "ETH", To: "USDT"}, cfg.Pair)
	assert.Equal(t, domain.MarketTypeMargin, cfg.MarketType)
	assert.Equal(t, "5m", cfg.FastInterval)
	assert.Equal(t, 120, cfg.Lookback)
	assert.True(t, cfg.ClosedCandlesOnly, "unset keys keep their defaults")
	assert.True(t, cfg.Risk.MaxRiskFraction.Equal(decimal.RequireFromString("0.02")))
	assert.True(t, cfg.Risk.RewardRisk.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, 60*time.Second, cfg.ErrorBackoff)
	assert.True(t, cfg.ExitOnOpposite)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 20, cfg.Indicators.EMAFast)
}

func TestReadFile_Errors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = ReadFile(writeConfig(t, "pair: [unclosed"))
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *File)
		creds  Credentials
		errMsg string
	}{
		{
			name:   "unknown platform",
			modify: func(f *File) { f.Platform = "kraken" },
			errMsg: "platform must be one of",
		},
		{
			name:   "bad pair",
			modify: func(f *File) { f.Pair = "BTCUSDT" },
			errMsg: "invalid pair",
		},
		{
			name:   "risk fraction above one",
			modify: func(f *File) { f.Risk.MaxRiskFraction = "1.5" },
			errMsg: "max risk fraction",
		},
		{
			name:   "zero stop multiplier",
			modify: func(f *File) { f.Risk.StopATRMultiplier = "0" },
			errMsg: "stop multiplier",
		},
		{
			name:   "not a number",
			modify: func(f *File) { f.Risk.QtyStep = "abc" },
			errMsg: "risk.qty_step must be a number",
		},
		{
			name:   "lookback below indicator minimum",
			modify: func(f *File) { f.Market.Lookback = 30 },
			errMsg: "market.lookback 30",
		},
		{
			name:   "fast not shorter than slow",
			modify: func(f *File) { f.Timeframes.Fast = "4h" },
			errMsg: "must be shorter",
		},
		{
			name:   "bad interval",
			modify: func(f *File) { f.Timeframes.Slow = "4x" },
			errMsg: "timeframes.slow",
		},
		{
			name:   "ema order",
			modify: func(f *File) { f.Indicators.EMAFast = 60 },
			errMsg: "fast EMA period",
		},
		{
			name:   "redis dedup without address",
			modify: func(f *File) { f.Execution.Dedup.Backend = DedupRedis },
			errMsg: "execution.dedup.redis_addr is required",
		},
		{
			name:   "binance without credentials",
			modify: func(f *File) { f.Platform = PlatformBinance },
			errMsg: "BINANCE_API_KEY",
		},
		{
			name:   "hyperliquid spot",
			modify: func(f *File) { f.Platform = PlatformHyperliquid },
			creds:  Credentials{HyperliquidPrivateKey: "0xabc"},
			errMsg: "perpetuals only",
		},
		{
			name:   "sizing balance above paper funding",
			modify: func(f *File) { f.Balance.Fixed = "20000" },
			errMsg: "exceeds simulate.initial_balance",
		},
		{
			name:   "kafka topic without brokers",
			modify: func(f *File) { f.Events.Kafka.Topic = "trades" },
			errMsg: "events.kafka",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Default()
			tt.modify(&f)
			_, err := Parse(f, tt.creds)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration), err.Error())
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParse_BinanceWithCredentials(t *testing.T) {
	f := Default()
	f.Platform = PlatformBinance
	f.MarketType = "margin"
	cfg, err := Parse(f, Credentials{BinanceAPIKey: "k", BinanceAPISecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, PlatformBinance, cfg.Platform)
}

func TestOverrides(t *testing.T) {
	path := writeConfig(t, "pair: BTC_USDT\n")
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")

	cfg, err := Load(path, Overrides{Platform: PlatformBybit, Pair: "SOL_USDT", PollInterval: 30 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, PlatformBybit, cfg.Platform)
	assert.Equal(t, "SOL", cfg.Pair.From)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "key", cfg.Credentials.BybitAPIKey)
}

func TestLoadCredentials_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("HYPERLIQUID_PRIVATE_KEY=0xdeadbeef\n"), 0o600))
	t.Setenv("HYPERLIQUID_PRIVATE_KEY", "")
	require.NoError(t, os.Unsetenv("HYPERLIQUID_PRIVATE_KEY"))

	creds, err := LoadCredentials(envFile)
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", creds.HyperliquidPrivateKey)
	assert.Equal(t, "https://api.hyperliquid.xyz", creds.HyperliquidBaseURL)

	_, err = LoadCredentials(filepath.Join(t.TempDir(), "missing.env"))
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
