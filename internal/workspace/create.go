package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrSnakeDoc/berth/internal/domain"
	"github.com/MrSnakeDoc/berth/internal/logger"
	"github.com/MrSnakeDoc/berth/internal/runtime"
)

// Create provisions a workspace of service. An empty name is replaced by
// "<service>-<random>". The record is written only once the engine has
// reported a started container.
func (m *Manager) Create(ctx context.Context, service, name string) (domain.WorkspaceRecord, error) {
	service = strings.TrimSpace(service)
	if name == "" {
		name = m.synthesizeName(service)
	}
	if err := domain.ValidateName(name); err != nil {
		return domain.WorkspaceRecord{}, err
	}

	unlock := m.locks.lock(name)
	defer unlock()

	log := m.log.With(logger.String("workspace", name), logger.String("service", service))
	log.Info("creating workspace")

	if err := m.ensureNameFree(ctx, name); err != nil {
		return domain.WorkspaceRecord{}, err
	}

	def, err := m.lookupService(service)
	if err != nil {
		return domain.WorkspaceRecord{}, err
	}

	if err := m.ensureImage(ctx, def.Image, log); err != nil {
		return domain.WorkspaceRecord{}, err
	}

	webPort, err := m.allocatePort(ctx)
	if err != nil {
		return domain.WorkspaceRecord{}, err
	}
	defer m.releasePort(webPort)
	log.Info("allocated web port", logger.Int("port", webPort))

	dataDir := m.dataDir(name)
	cleanupData, err := ensureDir(dataDir)
	if err != nil {
		return domain.WorkspaceRecord{}, fmt.Errorf("%w: create data directory: %w", domain.ErrContainerCreationFailed, err)
	}

	spec := m.buildSpec(def, name, webPort, dataDir)
	id, err := m.startContainer(ctx, spec, log)
	if err != nil {
		cleanupData()
		return domain.WorkspaceRecord{}, err
	}

	// The container exists now. Finish even if the caller goes away, or
	// it would run untracked.
	ctx = context.WithoutCancel(ctx)

	status := m.settle(ctx, name, log)

	now := m.now()
	rec := domain.WorkspaceRecord{
		Name:            name,
		ServiceName:     def.Name,
		ContainerID:     id,
		ContainerName:   name,
		Image:           def.Image,
		WebPort:         webPort,
		WebURL:          fmt.Sprintf("http://%s:%d", m.opts.PublicHost, webPort),
		DataDir:         dataDir,
		CreatedAt:       now,
		LastAccessedAt:  now,
		LastKnownStatus: status,
	}
	if err := m.registry.Put(ctx, rec); err != nil {
		log.Error("container started but record could not be saved", logger.String("container_id", id), logger.Error(err))
		return domain.WorkspaceRecord{}, err
	}

	log.Info("workspace created",
		logger.String("container_id", shortID(id)),
		logger.String("status", string(status)),
		logger.String("url", rec.WebURL))
	return rec, nil
}

// allocatePort reserves a web port not recorded for any workspace. Listing
// the registry and reserving happen under portMu, as does releasing, so a
// port is always either held by the allocator or visible in the registry.
func (m *Manager) allocatePort(ctx context.Context) (int, error) {
	m.portMu.Lock()
	defer m.portMu.Unlock()

	records, err := m.registry.List(ctx)
	if err != nil {
		return 0, err
	}
	taken := make(map[int]bool, len(records))
	for _, r := range records {
		taken[r.WebPort] = true
	}
	port, err := m.ports.Allocate(m.opts.WebBasePort, taken)
	if err != nil {
		return 0, fmt.Errorf("allocate web port: %w", err)
	}
	return port, nil
}

func (m *Manager) releasePort(port int) {
	m.portMu.Lock()
	defer m.portMu.Unlock()
	m.ports.Release(port)
}

// ensureNameFree rejects names that are tracked, or used by a container
// berth does not track. Untracked containers are never adopted.
func (m *Manager) ensureNameFree(ctx context.Context, name string) error {
	_, err := m.registry.Get(ctx, name)
	if err == nil {
		return fmt.Errorf("%w: workspace %q", domain.ErrAlreadyExists, name)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	state, err := m.inspect(ctx, name)
	switch {
	case err == nil && state.Name == name:
		return fmt.Errorf("%w: container named %q exists; remove it first or use a different name", domain.ErrAlreadyExists, name)
	case err == nil, errors.Is(err, runtime.ErrContainerNotFound):
		return nil
	default:
		return fmt.Errorf("%w: check container name: %w", domain.ErrRuntimeOperationFailed, err)
	}
}

func (m *Manager) lookupService(service string) (domain.ServiceDefinition, error) {
	cat, err := m.catalog.Load()
	if err != nil {
		return domain.ServiceDefinition{}, fmt.Errorf("load catalog: %w", err)
	}
	def, ok := cat.Lookup(service)
	if !ok {
		return domain.ServiceDefinition{}, fmt.Errorf("%w: %q", domain.ErrUnknownService, service)
	}
	if strings.TrimSpace(def.Image) == "" {
		return domain.ServiceDefinition{}, fmt.Errorf("%w: %q", domain.ErrMissingImage, service)
	}
	return def, nil
}

// ensureImage pulls image unless it is already present, within PullTimeout.
func (m *Manager) ensureImage(ctx context.Context, image string, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.PullTimeout)
	defer cancel()

	exists, err := m.runtime.ImageExists(ctx, image)
	if err != nil {
		return pullError(ctx, image, err)
	}
	if exists {
		log.Debug("image already present", logger.String("image", image))
		return nil
	}

	log.Info("pulling image", logger.String("image", image))
	start := time.Now()
	if err := m.runtime.PullImage(ctx, image); err != nil {
		return pullError(ctx, image, err)
	}
	log.Info("image pulled", logger.String("image", image), logger.Duration("elapsed", time.Since(start)))
	return nil
}

func pullError(ctx context.Context, image string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", domain.ErrImagePullTimeout, image)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrImagePullFailed, image, err)
}

// startContainer creates and starts spec within CreateTimeout. Whatever
// the engine created is removed again when either step fails.
func (m *Manager) startContainer(ctx context.Context, spec runtime.ContainerSpec, log logger.Logger) (string, error) {
	createCtx, cancel := context.WithTimeout(ctx, m.opts.CreateTimeout)
	defer cancel()

	log.Info("creating container", logger.String("image", spec.Image))
	id, err := m.runtime.Create(createCtx, spec)
	if err != nil {
		if createCtx.Err() != nil {
			// The engine may have created the container before we gave up.
			m.removeLeftover(ctx, spec.Name, log)
		}
		return "", creationError(createCtx, spec.Name, err)
	}

	log.Info("starting container", logger.String("container_id", shortID(id)))
	if err := m.runtime.Start(createCtx, id); err != nil {
		log.Warn("container failed to start, removing it", logger.Error(err))
		m.removeLeftover(ctx, id, log)
		return "", creationError(createCtx, spec.Name, err)
	}
	return id, nil
}

func creationError(ctx context.Context, name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", domain.ErrContainerCreationTimeout, name)
	}
	return fmt.Errorf("%w: %w", domain.ErrContainerCreationFailed, err)
}

// removeLeftover force-removes nameOrID, ignoring a container that is
// already gone.
func (m *Manager) removeLeftover(ctx context.Context, nameOrID string, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.StopTimeout)
	defer cancel()

	err := m.runtime.Remove(ctx, nameOrID)
	if err != nil && !errors.Is(err, runtime.ErrContainerNotFound) {
		log.Warn("could not remove container left by failed create", logger.String("container", nameOrID), logger.Error(err))
	}
}

// settle waits SettleInterval and reports the observed status. A container
// that is not running yet is still recorded; its logs go to the log.
func (m *Manager) settle(ctx context.Context, name string, log logger.Logger) domain.Status {
	if m.opts.SettleInterval > 0 {
		time.Sleep(m.opts.SettleInterval)
	}

	state, err := m.inspect(ctx, name)
	if err != nil {
		log.Warn("could not inspect new container", logger.Error(err))
		return domain.StatusUnknown
	}
	status := domain.StatusFromRuntime(state.Status)
	if status == domain.StatusRunning {
		return status
	}

	logCtx, cancel := context.WithTimeout(ctx, m.opts.InspectTimeout)
	defer cancel()
	tail, lerr := m.runtime.Logs(logCtx, state.ID, m.opts.LogTail)
	if lerr != nil {
		tail = "(logs unavailable: " + lerr.Error() + ")"
	}
	log.Warn("container is not running after start",
		logger.String("engine_status", state.Status),
		logger.String("logs", tail))
	return status
}

// ensureDir creates dir and returns a cleanup that removes it again only
// if this call created it.
func ensureDir(dir string) (func(), error) {
	if _, err := os.Stat(dir); err == nil {
		return func() {}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return func() { _ = os.RemoveAll(dir) }, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
