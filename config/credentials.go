package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// Credentials are read from the environment, never from the YAML file.
type Credentials struct {
	BinanceAPIKey         string `envconfig:"BINANCE_API_KEY"`
	BinanceAPISecret      string `envconfig:"BINANCE_API_SECRET"`
	BybitAPIKey           string `envconfig:"BYBIT_API_KEY"`
	BybitAPISecret        string `envconfig:"BYBIT_API_SECRET"`
	HyperliquidPrivateKey string `envconfig:"HYPERLIQUID_PRIVATE_KEY"`
	HyperliquidBaseURL    string `envconfig:"HYPERLIQUID_BASE_URL" default:"https://api.hyperliquid.xyz"`
	RedisPassword         string `envconfig:"REDIS_PASSWORD"`
}

// LoadCredentials loads envFile (or .env) into the process environment when
// present and maps the variables onto Credentials.
func LoadCredentials(envFile string) (Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Credentials{}, errors.Wrapf(domain.ErrConfiguration, "load env file %s: %v", envFile, err)
		}
	} else {
		// .env is optional
		_ = godotenv.Load()
	}

	var c Credentials
	if err := envconfig.Process("", &c); err != nil {
		return Credentials{}, errors.Wrapf(domain.ErrConfiguration, "read credentials: %v", err)
	}
	return c, nil
}

func (c Credentials) check(platform string) error {
	switch platform {
	case PlatformBinance:
		if c.BinanceAPIKey == "" || c.BinanceAPISecret == "" {
			return errors.Wrap(domain.ErrConfiguration, "BINANCE_API_KEY and BINANCE_API_SECRET environment variables must be set")
		}
	case PlatformBybit:
		if c.BybitAPIKey == "" || c.BybitAPISecret == "" {
			return errors.Wrap(domain.ErrConfiguration, "BYBIT_API_KEY and BYBIT_API_SECRET environment variables must be set")
		}
	case PlatformHyperliquid:
		if c.HyperliquidPrivateKey == "" {
			return errors.Wrap(domain.ErrConfiguration, "HYPERLIQUID_PRIVATE_KEY environment variable must be set")
		}
	}
	return nil
}
