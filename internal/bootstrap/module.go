package bootstrap

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"txscope/internal/bootstrap/config"
	"txscope/internal/bootstrap/database"
	"txscope/internal/bootstrap/logging"
	"txscope/internal/infrastructure/metrics"
	"txscope/internal/infrastructure/persistence/rdb/repository"
	"txscope/internal/infrastructure/persistence/rdb/resource"
	"txscope/internal/infrastructure/persistence/uow"
	"txscope/internal/ports"
	"txscope/internal/txn"
	"txscope/internal/usecase/member"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideApp),
	fx.Provide(provideDatabase),
	fx.Provide(provideRegistry),
	fx.Provide(provideObserver),
	fx.Provide(
		fx.Annotate(
			resource.NewProvider,
			fx.As(new(ports.ResourceProvider)),
		),
	),
	fx.Provide(provideEngine),
	fx.Provide(
		fx.Annotate(
			uow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			repository.NewMemberRepository,
			fx.As(new(ports.MemberRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			repository.NewLogRepository,
			fx.As(new(ports.LogRepository)),
		),
	),
	fx.Provide(provideMemberService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

// provideApp opens the database and ties its shutdown to the fx lifecycle.
func provideApp(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*App, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	lc.Append(fx.Hook{
		OnStop: func(stopCtx context.Context) error {
			return app.Close(stopCtx)
		},
	})
	return app, nil
}

func provideDatabase(app *App) *gorm.DB {
	return app.DB
}

func provideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// provideObserver returns a no-op observer when metrics are disabled.
func provideObserver(cfg config.Config, reg *prometheus.Registry) (txn.Observer, error) {
	if !cfg.Metrics.Enabled {
		return txn.ObserverFunc(func(context.Context, txn.Event) {}), nil
	}
	observer, err := metrics.NewTxObserver(reg, cfg.Metrics.Namespace)
	if err != nil {
		return nil, err
	}
	return observer, nil
}

func provideEngine(provider ports.ResourceProvider, observer txn.Observer) (*txn.Engine, error) {
	return txn.NewEngine(provider, txn.WithObserver(observer))
}

func provideMemberService(
	cfg config.Config,
	members ports.MemberRepository,
	logs ports.LogRepository,
	unitOfWork ports.UnitOfWork,
) *member.Service {
	return member.NewService(members, logs, unitOfWork,
		member.WithRetry(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay()),
	)
}
