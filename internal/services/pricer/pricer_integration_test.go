//go:build integration

package pricer

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/mtftrader/internal/clients"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// TestPricers_Integration calls real public ticker endpoints; no credentials needed.
// To run this test, use: go test -tags=integration -v ./...
func TestPricers_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pricers := map[string]Pricer{
		"binance": NewBinancePricer(clients.NewBinanceClient("", "")),
		"bybit":   NewBybitPricer(clients.NewBybitClient("", "")),
	}

	for name, p := range pricers {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			pair := domain.Pair{From: "BTC", To: "USDT"}
			price, err := p.GetPrice(ctx, pair)
			require.NoError(t, err)
			assert.True(t, price.GreaterThan(decimal.Zero), "expected price > 0 for %s, got %s", pair.String(), price.String())

			_, err = p.GetPrice(ctx, domain.Pair{From: "INVALID", To: "PAIR"})
			assert.Error(t, err)
		})
	}
}
