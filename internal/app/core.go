package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/MrSnakeDoc/berth/internal/catalog"
	"github.com/MrSnakeDoc/berth/internal/config"
	"github.com/MrSnakeDoc/berth/internal/logger"
	"github.com/MrSnakeDoc/berth/internal/ports"
	"github.com/MrSnakeDoc/berth/internal/redis"
	"github.com/MrSnakeDoc/berth/internal/registry"
	"github.com/MrSnakeDoc/berth/internal/runtime"
	redisstore "github.com/MrSnakeDoc/berth/internal/store/redis"
	sqlitestore "github.com/MrSnakeDoc/berth/internal/store/sqlite"
	"github.com/MrSnakeDoc/berth/internal/workspace"
)

// Core holds the pieces shared by the HTTP server and the CLI.
type Core struct {
	Config   *config.Config
	Logger   logger.Logger
	Registry *registry.Registry
	Manager  *workspace.Manager
}

// NewCore wires the catalog, registry backend, docker gateway, port
// allocator and lifecycle manager from cfg.
func NewCore(ctx context.Context, cfg *config.Config, log logger.Logger) (*Core, error) {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	reg := registry.New(store)

	opts, err := managerOptions(cfg)
	if err != nil {
		_ = reg.Close()
		return nil, err
	}

	mgr := workspace.NewManager(
		catalog.NewLoader(cfg.CatalogFile, catalog.WithLogger(log.With(logger.Component("catalog")))),
		reg,
		runtime.NewDockerGateway(cfg.DockerBin, nil),
		ports.NewAllocator(ports.WithMaxAttempts(cfg.PortProbeLimit)),
		opts,
		log.With(logger.Component("workspace")),
	)

	return &Core{
		Config:   cfg,
		Logger:   log,
		Registry: reg,
		Manager:  mgr,
	}, nil
}

// Close releases the registry backend. A redis store owns its client and
// closes it.
func (c *Core) Close() error {
	return c.Registry.Close()
}

// openStore builds the registry backend named by BERTH_REGISTRY_BACKEND.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (registry.Store, error) {
	switch cfg.RegistryBackend {
	case config.BackendMemory:
		log.Warn("using in-memory registry, workspaces are forgotten on exit")
		return registry.NewMemoryStore(), nil

	case config.BackendSQLite:
		s, err := sqlitestore.Open(cfg.RegistrySQLite)
		if err != nil {
			return nil, fmt.Errorf("open sqlite registry: %w", err)
		}
		log.Info("registry backend ready", logger.String("backend", "sqlite"), logger.String("path", cfg.RegistrySQLite))
		return s, nil

	case config.BackendRedis:
		if err := redisstore.ValidatePrefix(cfg.RedisKeyPrefix); err != nil {
			return nil, err
		}
		client, err := redis.New(ctx, redis.OptionsFromConfig(cfg), log)
		if err != nil {
			return nil, err
		}
		log.Info("registry backend ready",
			logger.String("backend", "redis"),
			logger.String("key", redisstore.DocumentKey(cfg.RedisKeyPrefix)))
		return redisstore.NewStore(client, cfg.RedisKeyPrefix), nil

	case config.BackendFile, "":
		s, err := registry.NewFileStore(cfg.RegistryFile)
		if err != nil {
			return nil, fmt.Errorf("open registry file: %w", err)
		}
		log.Info("registry backend ready", logger.String("backend", "file"), logger.String("path", s.Path()))
		return s, nil

	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.RegistryBackend)
	}
}

// managerOptions maps the config onto lifecycle policies. Host paths handed
// to the engine must be absolute.
func managerOptions(cfg *config.Config) (workspace.Options, error) {
	projectDir, err := filepath.Abs(cfg.ProjectDir)
	if err != nil {
		return workspace.Options{}, fmt.Errorf("resolve project dir: %w", err)
	}
	dataRoot, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return workspace.Options{}, fmt.Errorf("resolve data dir: %w", err)
	}

	opts := workspace.DefaultOptions()
	opts.DataRoot = dataRoot
	opts.ProjectDir = projectDir
	opts.PublicHost = cfg.PublicHost
	opts.WebBasePort = cfg.WebBasePort
	opts.WebContainerPort = cfg.WebContainerPort
	opts.PullTimeout = cfg.PullTimeout
	opts.CreateTimeout = cfg.CreateTimeout
	opts.StopTimeout = cfg.StopTimeout
	opts.InspectTimeout = cfg.InspectTimeout
	opts.SettleInterval = cfg.SettleInterval
	opts.LogTail = cfg.LogTail
	return opts, nil
}
