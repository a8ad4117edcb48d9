package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/berth/internal/config"
	"github.com/MrSnakeDoc/berth/internal/httpserver"
	"github.com/MrSnakeDoc/berth/internal/httpserver/deps"
	"github.com/MrSnakeDoc/berth/internal/logger"
	"github.com/MrSnakeDoc/berth/internal/scheduler"
	"github.com/MrSnakeDoc/berth/internal/utils"
	"github.com/MrSnakeDoc/berth/internal/version"
)

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	core    *Core
	server  *httpserver.Server
	sweeper *scheduler.StatusSweeper
}

// New builds the server process from the environment.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	return NewWithConfig(ctx, cfg, loggerClient)
}

// NewWithConfig builds the server process from an already loaded config.
func NewWithConfig(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	core, err := NewCore(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	// The sweeper and its manual trigger only exist when enabled.
	var sweeper *scheduler.StatusSweeper
	var sweepTrigger chan struct{}
	if cfg.StatusSweepInterval > 0 {
		sweepTrigger = make(chan struct{}, 1)
		sweeper = scheduler.NewStatusSweeper(
			core.Manager,
			loggerClient.With(logger.Component("sweeper")),
			cfg.StatusSweepInterval,
			sweepTrigger,
		)
	} else {
		loggerClient.Info("status sweeper disabled")
	}

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		Workspaces:     core.Manager,
		Ready:          core.Registry.Ping,
		RequestTimeout: cfg.RequestTimeout,
		LogTail:        cfg.LogTail,
		SweepTrigger:   sweepTrigger,
	}

	return &App{
		cfg:     cfg,
		logger:  loggerClient,
		core:    core,
		server:  httpserver.New(cfg, loggerClient, d),
		sweeper: sweeper,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting %s on %s", version.String(), a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if h := a.core.Manager.Health(ctx); !h.RuntimeAvailable {
		a.logger.Warn("container runtime not reachable, creates will fail until it is",
			logger.String("docker_bin", a.cfg.DockerBin))
	}

	if a.sweeper != nil {
		a.sweeper.Start(ctx)
		a.logger.Info("status sweeper started",
			logger.Duration("interval", a.cfg.StatusSweepInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	if a.sweeper != nil {
		a.sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	utils.CloseLogged(a.core, a.logger, "registry")

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ berth stopped cleanly")
	return nil
}
