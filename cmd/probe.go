package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vadiminshakov/mtftrader/internal/web"
)

func newProbeCmd() *cobra.Command {
	cfg := web.ProbeConfig{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Load-test the /events stream of a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(false)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stats, err := web.Probe(ctx, cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "done: connected=%d connect_errs=%d stream_errs=%d events=%d elapsed=%s events/s=%.2f\n",
				stats.Connected, stats.ConnectErrs, stats.StreamErrs, stats.Events,
				stats.Elapsed.Truncate(time.Millisecond), stats.EventsPerSecond())
			types := make([]string, 0, len(stats.ByType))
			for t := range stats.ByType {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Fprintf(out, "  %s=%d\n", t, stats.ByType[t])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.URL, "url", "http://localhost:8080/events", "SSE endpoint URL")
	cmd.Flags().IntVar(&cfg.Connections, "conns", 100, "number of concurrent connections to open")
	cmd.Flags().DurationVar(&cfg.Duration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	cmd.Flags().DurationVar(&cfg.RampUp, "ramp", 0, "ramp-up duration (spread connection starts across this window)")
	return cmd
}
