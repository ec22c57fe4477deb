// Package clients builds authenticated exchange SDK clients.
package clients

import (
	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
)

// NewBinanceClient creates a Binance client. Empty keys give a public-data-only client.
func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	return binance.NewClient(apiKey, apiSecret)
}

// NewBybitClient creates a Bybit client, authenticated when keys are provided.
func NewBybitClient(apiKey, apiSecret string) *bybit.Client {
	client := bybit.NewClient()
	if apiKey == "" || apiSecret == "" {
		return client
	}
	return client.WithAuth(apiKey, apiSecret)
}

// SimulateClient reads public Binance market data for the paper venue.
type SimulateClient struct {
	binance *binance.Client
}

// NewSimulateClient creates an unauthenticated client; orders never leave the process.
func NewSimulateClient() *SimulateClient {
	return &SimulateClient{binance: binance.NewClient("", "")}
}

func (c *SimulateClient) GetBinanceClient() *binance.Client { return c.binance }
