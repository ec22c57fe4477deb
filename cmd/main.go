// Command mtftrader runs a multi-timeframe trend-following trading loop on
// one pair. It supports Binance, Bybit, Hyperliquid and a local simulated
// venue, and is configured with a YAML file plus environment variables.
//
// Usage:
//
//	mtftrader setup --out config.yaml
//	mtftrader validate --config config.yaml
//	mtftrader run --config config.yaml
//	mtftrader probe --url http://localhost:8080/events
//
// Required environment variables (or a .env file):
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
//	For Hyperliquid: HYPERLIQUID_PRIVATE_KEY
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mtftrader",
		Short:        "Multi-timeframe trend-following trading bot",
		SilenceUsage: true,
	}
	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newSetupCmd(),
		newProbeCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
