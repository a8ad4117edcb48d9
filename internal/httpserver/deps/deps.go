package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/berth/internal/domain"
	"github.com/MrSnakeDoc/berth/internal/logger"
)

// Workspaces is the lifecycle surface the handlers drive.
type Workspaces interface {
	Create(ctx context.Context, service, name string) (domain.WorkspaceRecord, error)
	Delete(ctx context.Context, name string) (string, error)
	Get(ctx context.Context, name string) (domain.WorkspaceView, error)
	List(ctx context.Context) ([]domain.WorkspaceView, error)
	Logs(ctx context.Context, name string, tail int) (string, error)
	Services() ([]domain.ServiceSummary, error)
	Health(ctx context.Context) domain.Health
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	Workspaces     Workspaces
	Ready          func(ctx context.Context) error // registry reachability, nil = always ready
	RequestTimeout time.Duration                   // bound for every route except create/delete
	LogTail        int                             // default ?tail for the logs route
	SweepTrigger   chan struct{}                   // manual status sweep, nil when the sweeper is off
}
