package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/berth/internal/domain"
	"github.com/MrSnakeDoc/berth/internal/runtime"
)

// Logs returns the container log tail of a workspace. tail <= 0 uses the
// configured default.
func (m *Manager) Logs(ctx context.Context, name string, tail int) (string, error) {
	if tail <= 0 {
		tail = m.opts.LogTail
	}

	state, err := m.inspect(ctx, name)
	if err == nil && state.Name != name {
		err = runtime.ErrContainerNotFound
	}
	if errors.Is(err, runtime.ErrContainerNotFound) {
		return "", fmt.Errorf("%w: no container for %q", domain.ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("%w: inspect %s: %w", domain.ErrRuntimeOperationFailed, name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.InspectTimeout)
	defer cancel()
	out, err := m.runtime.Logs(ctx, state.ID, tail)
	if err != nil {
		return "", fmt.Errorf("%w: logs %s: %w", domain.ErrRuntimeOperationFailed, name, err)
	}
	return out, nil
}

// Listing placeholders for catalog fields left out.
const (
	unknownImage = "unknown"
	defaultIcon  = "🐳"
)

// Services lists the catalog in document order.
func (m *Manager) Services() ([]domain.ServiceSummary, error) {
	cat, err := m.catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defs := cat.List()
	out := make([]domain.ServiceSummary, 0, len(defs))
	for _, d := range defs {
		sum := domain.ServiceSummary{
			Name:        d.Name,
			Image:       d.Image,
			Description: d.Description,
			Icon:        d.Icon,
		}
		if sum.Image == "" {
			sum.Image = unknownImage
		}
		if sum.Icon == "" {
			sum.Icon = defaultIcon
		}
		out = append(out, sum)
	}
	return out, nil
}

// Health reports whether the container engine answers.
func (m *Manager) Health(ctx context.Context) domain.Health {
	ctx, cancel := context.WithTimeout(ctx, m.opts.InspectTimeout)
	defer cancel()

	if err := m.runtime.Ping(ctx); err != nil {
		return domain.Health{Status: "degraded", RuntimeAvailable: false}
	}
	return domain.Health{Status: "healthy", RuntimeAvailable: true}
}
