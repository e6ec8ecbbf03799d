package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"txscope/internal/bootstrap"
	"txscope/internal/bootstrap/logging"
	"txscope/internal/errs"
	"txscope/internal/infrastructure/metrics"
	"txscope/internal/usecase/member"
)

type appDeps struct {
	App      *bootstrap.App
	Members  *member.Service
	Registry *prometheus.Registry
}

func withApp(run func(cmd *cobra.Command, args []string, deps appDeps) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var deps appDeps
		fxApp := fx.New(
			bootstrap.Module,
			fx.NopLogger,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&deps.App, &deps.Members, &deps.Registry),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		logCfg := deps.App.Config.Log
		logger, err := logging.New(cmd.ErrOrStderr(), logCfg.Level, logCfg.Format)
		if err != nil {
			return errs.Wrap(err, "build logger")
		}
		cmd.SetContext(logging.WithLogger(ctx, logger))

		if err := run(cmd, args, deps); err != nil {
			return errs.Wrap(err, "run command")
		}

		if printMetrics && deps.App.Config.Metrics.Enabled {
			if err := metrics.WriteText(cmd.OutOrStdout(), deps.Registry); err != nil {
				return errs.Wrap(err, "print metrics")
			}
		}
		return nil
	}
}
