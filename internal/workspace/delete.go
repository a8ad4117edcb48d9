package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/berth/internal/domain"
	"github.com/MrSnakeDoc/berth/internal/logger"
	"github.com/MrSnakeDoc/berth/internal/runtime"
)

// Delete stops and removes the workspace container, then forgets the
// record. It succeeds when there is nothing to delete. When a runtime
// step fails the record is kept so the delete can be retried.
func (m *Manager) Delete(ctx context.Context, name string) (string, error) {
	if err := domain.ValidateName(name); err != nil {
		// No workspace can carry such a name, so there is nothing to do.
		return fmt.Sprintf("Workspace '%s' not found, nothing to delete", name), nil
	}

	unlock := m.locks.lock(name)
	defer unlock()

	log := m.log.With(logger.String("workspace", name))
	log.Info("deleting workspace")

	_, recErr := m.registry.Get(ctx, name)
	if recErr != nil && !errors.Is(recErr, domain.ErrNotFound) {
		return "", recErr
	}
	tracked := recErr == nil

	state, err := m.inspect(ctx, name)
	if err == nil && state.Name != name {
		// Matched an id prefix, not our container.
		err = fmt.Errorf("%s: %w", name, runtime.ErrContainerNotFound)
	}
	if errors.Is(err, runtime.ErrContainerNotFound) {
		if !tracked {
			return fmt.Sprintf("Workspace '%s' not found, nothing to delete", name), nil
		}
		if err := m.registry.Delete(ctx, name); err != nil {
			return "", err
		}
		log.Info("container already gone, removed from tracking")
		return fmt.Sprintf("Workspace '%s' cleaned up", name), nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: inspect %s: %w", domain.ErrRuntimeOperationFailed, name, err)
	}

	if state.Running() {
		log.Info("stopping container", logger.String("container_id", shortID(state.ID)))
		if err := m.stop(ctx, state.ID); err != nil {
			return "", err
		}
	}

	log.Info("removing container", logger.String("container_id", shortID(state.ID)))
	rmCtx, cancel := context.WithTimeout(ctx, m.opts.StopTimeout)
	err = m.runtime.Remove(rmCtx, state.ID)
	cancel()
	if err != nil && !errors.Is(err, runtime.ErrContainerNotFound) {
		return "", fmt.Errorf("%w: remove %s: %w", domain.ErrRuntimeOperationFailed, name, err)
	}

	if err := m.registry.Delete(ctx, name); err != nil {
		return "", err
	}
	log.Info("workspace deleted", logger.Bool("was_tracked", tracked))
	return fmt.Sprintf("Workspace '%s' deleted", name), nil
}

// stop gives the engine StopTimeout to stop the container gracefully, plus
// a margin for the call itself.
func (m *Manager) stop(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.StopTimeout+m.opts.InspectTimeout)
	defer cancel()

	err := m.runtime.Stop(ctx, id, m.opts.StopTimeout)
	if err != nil && !errors.Is(err, runtime.ErrContainerNotFound) {
		return fmt.Errorf("%w: stop %s: %w", domain.ErrRuntimeOperationFailed, shortID(id), err)
	}
	return nil
}
