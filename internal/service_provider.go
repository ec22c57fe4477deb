package internal

import (
	"context"
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/mtftrader/config"
	"github.com/vadiminshakov/mtftrader/internal/clients"
	"github.com/vadiminshakov/mtftrader/internal/domain"
	"github.com/vadiminshakov/mtftrader/internal/services/executor"
	"github.com/vadiminshakov/mtftrader/internal/services/gateway"
	"github.com/vadiminshakov/mtftrader/internal/services/market/collector"
	"github.com/vadiminshakov/mtftrader/internal/services/pricer"
	"github.com/vadiminshakov/mtftrader/internal/storage/simstate"
)

// serviceProvider defines a factory interface for creating platform-specific services.
type serviceProvider interface {
	Gateway(ctx context.Context, cfg config.Config) (executor.OrderGateway, error)
	Pricer() pricer.Pricer
	KlineProvider() collector.KlineProvider
}

// newClient builds the SDK client for cfg.Platform from the configured credentials.
func newClient(ctx context.Context, cfg config.Config) (any, error) {
	creds := cfg.Credentials
	switch cfg.Platform {
	case config.PlatformBinance:
		return clients.NewBinanceClient(creds.BinanceAPIKey, creds.BinanceAPISecret), nil
	case config.PlatformBybit:
		return clients.NewBybitClient(creds.BybitAPIKey, creds.BybitAPISecret), nil
	case config.PlatformHyperliquid:
		return clients.NewHyperliquidClient(ctx, creds.HyperliquidPrivateKey, creds.HyperliquidBaseURL)
	case config.PlatformSimulate:
		return clients.NewSimulateClient(), nil
	default:
		return nil, errors.Wrapf(domain.ErrConfiguration, "unsupported platform: %s", cfg.Platform)
	}
}

// newServiceProvider creates a new service provider based on the client type.
// This is the single point of truth for dispatching to platform-specific implementations.
func newServiceProvider(client any, logger *zap.Logger) (serviceProvider, error) {
	switch c := client.(type) {
	case *binance.Client:
		return &binanceProvider{client: c, logger: logger}, nil
	case *bybit.Client:
		return &bybitProvider{client: c, logger: logger}, nil
	case *clients.SimulateClient:
		return &simulateProvider{client: c, logger: logger}, nil
	case *clients.HyperliquidClient:
		return &hyperliquidProvider{client: c, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}

type binanceProvider struct {
	client *binance.Client
	logger *zap.Logger
}

func (p *binanceProvider) Gateway(_ context.Context, cfg config.Config) (executor.OrderGateway, error) {
	return gateway.NewBinanceGateway(p.client, cfg.Pair, cfg.MarketType, p.logger), nil
}
func (p *binanceProvider) Pricer() pricer.Pricer {
	return pricer.NewRetrying(pricer.NewBinancePricer(p.client), nil, p.logger)
}
func (p *binanceProvider) KlineProvider() collector.KlineProvider {
	return collector.NewBinanceKlineProvider(p.client)
}

type bybitProvider struct {
	client *bybit.Client
	logger *zap.Logger
}

func (p *bybitProvider) Gateway(_ context.Context, cfg config.Config) (executor.OrderGateway, error) {
	return gateway.NewBybitGateway(p.client, cfg.Pair, p.Pricer(), p.logger), nil
}
func (p *bybitProvider) Pricer() pricer.Pricer {
	return pricer.NewRetrying(pricer.NewBybitPricer(p.client), nil, p.logger)
}
func (p *bybitProvider) KlineProvider() collector.KlineProvider {
	return collector.NewBybitKlineProvider(p.client)
}

type simulateProvider struct {
	client *clients.SimulateClient
	logger *zap.Logger
}

func (p *simulateProvider) Gateway(_ context.Context, cfg config.Config) (executor.OrderGateway, error) {
	store, err := simstate.NewStore(cfg.SimulateStateDir, cfg.Pair)
	if err != nil {
		return nil, errors.Wrap(err, "open simulate state")
	}
	return gateway.NewSimulateGateway(cfg.Pair, cfg.MarketType, cfg.Leverage, cfg.SimulateBalance, p.Pricer(), store, p.logger)
}
func (p *simulateProvider) Pricer() pricer.Pricer {
	return pricer.NewRetrying(pricer.NewBinancePricer(p.client.GetBinanceClient()), nil, p.logger)
}
func (p *simulateProvider) KlineProvider() collector.KlineProvider {
	return collector.NewBinanceKlineProvider(p.client.GetBinanceClient())
}

type hyperliquidProvider struct {
	client *clients.HyperliquidClient
	logger *zap.Logger
}

func (p *hyperliquidProvider) Gateway(ctx context.Context, cfg config.Config) (executor.OrderGateway, error) {
	return gateway.NewHyperliquidGateway(ctx, p.client.Exchange(), p.client.AccountAddress(), cfg.Pair, cfg.Leverage, p.Pricer(), p.logger)
}
func (p *hyperliquidProvider) Pricer() pricer.Pricer {
	return pricer.NewRetrying(pricer.NewHyperliquidPricer(p.client.Info()), nil, p.logger)
}
func (p *hyperliquidProvider) KlineProvider() collector.KlineProvider {
	return collector.NewHyperliquidKlineProvider(p.client.Info())
}
