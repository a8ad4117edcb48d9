// Package workspace is the lifecycle manager: it turns catalog entries
// into running containers and keeps the registry in step with the engine.
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/berth/internal/domain"
	"github.com/MrSnakeDoc/berth/internal/logger"
	"github.com/MrSnakeDoc/berth/internal/registry"
	"github.com/MrSnakeDoc/berth/internal/runtime"
)

// CatalogSource yields the current service catalog. It is called on every
// operation that needs a definition, so edits apply without a restart.
type CatalogSource interface {
	Load() (*domain.Catalog, error)
}

// PortAllocator hands out host ports. Ports returned by Allocate stay
// reserved until Release, so concurrent creates never share one.
type PortAllocator interface {
	Allocate(start int, taken map[int]bool) (int, error)
	Release(port int)
}

// Options are the manager's policies.
type Options struct {
	DataRoot   string // parent of every workspace's private /data directory
	ProjectDir string // base for relative catalog host paths
	PublicHost string // host used in WebURL

	WebBasePort      int // first host port probed
	WebContainerPort int // the container's well-known web port

	PullTimeout    time.Duration
	CreateTimeout  time.Duration
	StopTimeout    time.Duration
	InspectTimeout time.Duration
	SettleInterval time.Duration

	LogTail        int    // lines fetched by Logs when the caller gives none
	DefaultShmSize string // used when the catalog entry sets none
}

// DefaultOptions returns the stock policies.
func DefaultOptions() Options {
	return Options{
		DataRoot:         "data",
		ProjectDir:       ".",
		PublicHost:       "localhost",
		WebBasePort:      3000,
		WebContainerPort: 3000,
		PullTimeout:      300 * time.Second,
		CreateTimeout:    120 * time.Second,
		StopTimeout:      10 * time.Second,
		InspectTimeout:   10 * time.Second,
		SettleInterval:   2 * time.Second,
		LogTail:          100,
		DefaultShmSize:   "1gb",
	}
}

// Manager implements Create, Delete, GetStatus, List and their helpers.
type Manager struct {
	catalog  CatalogSource
	registry *registry.Registry
	runtime  runtime.Gateway
	ports    PortAllocator
	opts     Options
	log      logger.Logger

	locks  *nameLocks
	portMu sync.Mutex

	now   func() time.Time
	newID func() string
}

// NewManager wires the collaborators together.
func NewManager(
	catalog CatalogSource,
	reg *registry.Registry,
	gw runtime.Gateway,
	ports PortAllocator,
	opts Options,
	log logger.Logger,
) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		catalog:  catalog,
		registry: reg,
		runtime:  gw,
		ports:    ports,
		opts:     opts,
		log:      log,
		locks:    newNameLocks(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString()[:8] },
	}
}

// synthesizeName builds "<service>-<8 hex chars>".
func (m *Manager) synthesizeName(service string) string {
	return service + "-" + m.newID()
}

// inspect bounds a runtime lookup by InspectTimeout.
func (m *Manager) inspect(ctx context.Context, nameOrID string) (runtime.ContainerState, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.InspectTimeout)
	defer cancel()
	return m.runtime.Inspect(ctx, nameOrID)
}
