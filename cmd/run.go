package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/mtftrader/config"
	"github.com/vadiminshakov/mtftrader/internal"
	"github.com/vadiminshakov/mtftrader/internal/setup"
	"github.com/vadiminshakov/mtftrader/internal/web"
)

func newRunCmd() *cobra.Command {
	var (
		path      string
		debug     bool
		overrides config.Overrides
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading loop and the status server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(debug)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			cfg, err := config.Load(path, overrides)
			if err != nil {
				logger.Error("invalid configuration", zap.Error(err))
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&path, "config", config.DefaultPath, "path to the YAML config file")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable development logging")
	overrides.BindFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	inst, err := internal.NewInstance(ctx, cfg, logger)
	if err != nil {
		return errors.Wrap(err, "failed to create trading bot")
	}
	defer func() {
		if err := inst.Close(); err != nil {
			logger.Warn("failed to release resources", zap.Error(err))
		}
	}()

	logger.Info("starting trading bot",
		zap.String("platform", cfg.Platform),
		zap.String("pair", cfg.Pair.String()),
		zap.String("fast", cfg.FastInterval),
		zap.String("slow", cfg.SlowInterval),
		zap.Duration("poll", cfg.PollInterval))

	srv := web.NewServer(cfg.HTTPAddr, inst.Status, inst.Metrics.Handler(), inst.Broadcaster, nil, logger)
	if inst.Journal != nil {
		srv.Journal = inst.Journal
	}

	return serve(ctx, inst.Bot, srv, logger)
}

type loopRunner interface {
	Run(ctx context.Context) error
}

type statusServer interface {
	Start(ctx context.Context) error
}

// serve runs the trading loop and the status server until ctx is done. A
// failing status server is logged and never stops the loop.
func serve(ctx context.Context, bot loopRunner, srv statusServer, logger *zap.Logger) error {
	var g errgroup.Group
	g.Go(func() error {
		return bot.Run(ctx)
	})
	g.Go(func() error {
		if err := srv.Start(ctx); err != nil {
			logger.Error("status server stopped, trading loop keeps running", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

func newValidateCmd() *cobra.Command {
	var (
		path      string
		overrides config.Overrides
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a config file and the credentials it needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path, overrides)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %s on %s, fast %s, slow %s\n",
				path, cfg.MarketType, cfg.Pair, cfg.Platform, cfg.FastInterval, cfg.SlowInterval)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "config", config.DefaultPath, "path to the YAML config file")
	overrides.BindFlags(cmd.Flags())
	return cmd
}

func newSetupCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactive wizard that writes a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setup.RunTUI(out)
		},
	}
	cmd.Flags().StringVar(&out, "out", config.DefaultPath, "where to write the generated config")
	return cmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
