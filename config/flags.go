package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Overrides are command line values that take precedence over the YAML file.
type Overrides struct {
	Platform     string
	Pair         string
	PollInterval time.Duration
	EnvFile      string
}

// BindFlags registers the override flags on fs.
func (o *Overrides) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Platform, "platform", "", "override platform: binance, bybit, hyperliquid or simulate")
	fs.StringVar(&o.Pair, "pair", "", "override trade pair, example: BTC_USDT")
	fs.DurationVar(&o.PollInterval, "poll-interval", 0, "override loop.poll_interval")
	fs.StringVar(&o.EnvFile, "env-file", "", "file with credential environment variables (default .env if present)")
}

func (o Overrides) apply(f *File) {
	if o.Platform != "" {
		f.Platform = o.Platform
	}
	if o.Pair != "" {
		f.Pair = o.Pair
	}
	if o.PollInterval > 0 {
		f.Loop.PollInterval = o.PollInterval
	}
}
