package internal

import (
	"context"
	"path/filepath"
	"testing"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/mtftrader/config"
	"github.com/vadiminshakov/mtftrader/internal/clients"
	"github.com/vadiminshakov/mtftrader/internal/domain"
	"github.com/vadiminshakov/mtftrader/internal/services/gateway"
)

func simulateConfig(t *testing.T) config.Config {
	t.Helper()
	f := config.Default()
	f.Simulate.StateDir = filepath.Join(t.TempDir(), "simulate")
	f.Journal.Type = config.JournalSQLite
	f.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	cfg, err := config.Parse(f, config.Credentials{})
	require.NoError(t, err)
	return cfg
}

func TestNewServiceProvider(t *testing.T) {
	tests := []struct {
		name        string
		client      any
		expectError bool
	}{
		{name: "binance", client: &binance.Client{}},
		{name: "bybit", client: &bybit.Client{}},
		{name: "simulate", client: clients.NewSimulateClient()},
		{name: "unsupported", client: "kraken", expectError: true},
		{name: "nil", client: nil, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newServiceProvider(tt.client, zap.NewNop())
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported client type")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p.Pricer())
			assert.NotNil(t, p.KlineProvider())
		})
	}
}

func TestNewClient_UnsupportedPlatform(t *testing.T) {
	_, err := newClient(context.Background(), config.Config{Platform: "kraken"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestSimulateProvider_Gateway(t *testing.T) {
	cfg := simulateConfig(t)
	p, err := newServiceProvider(clients.NewSimulateClient(), zap.NewNop())
	require.NoError(t, err)

	gw, err := p.Gateway(context.Background(), cfg)
	require.NoError(t, err)
	sim, ok := gw.(*gateway.SimulateGateway)
	require.True(t, ok)

	bal, err := sim.Balance(context.Background(), "USDT")
	require.NoError(t, err)
	assert.True(t, bal.Equal(cfg.SimulateBalance))
}

func TestNewInstance_Simulate(t *testing.T) {
	cfg := simulateConfig(t)

	inst, err := NewInstance(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, inst.Bot)
	require.NotNil(t, inst.Journal)
	assert.NotNil(t, inst.Metrics)

	st, ok := inst.Status().(Status)
	require.True(t, ok)
	assert.Equal(t, "BTC_USDT", st.Pair)
	assert.Equal(t, string(domain.PositionFlat), st.Position)

	require.NoError(t, inst.Close())
}

func TestNewInstance_RedisUnavailable(t *testing.T) {
	cfg := simulateConfig(t)
	cfg.Dedup.Backend = config.DedupRedis
	cfg.Dedup.RedisAddr = "127.0.0.1:1"

	_, err := NewInstance(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}
