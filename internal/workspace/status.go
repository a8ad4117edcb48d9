package workspace

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/berth/internal/domain"
	"github.com/MrSnakeDoc/berth/internal/logger"
	"github.com/MrSnakeDoc/berth/internal/runtime"
)

// listConcurrency bounds parallel inspections during List.
const listConcurrency = 8

// GetStatus asks the runtime directly. A missing container is reported as
// stopped and any other lookup failure as unknown; it never returns an error.
func (m *Manager) GetStatus(ctx context.Context, name string) domain.StatusReport {
	state, err := m.inspect(ctx, name)
	switch {
	case err == nil && state.Name == name:
		status := domain.StatusFromRuntime(state.Status)
		return domain.StatusReport{Status: status, Running: state.Running(), RuntimeID: state.ID}
	case err == nil, errors.Is(err, runtime.ErrContainerNotFound):
		return domain.StatusReport{Status: domain.StatusStopped}
	default:
		return domain.StatusReport{Status: domain.StatusUnknown, Error: err.Error()}
	}
}

// Get returns the record with a fresh status, and records the access.
func (m *Manager) Get(ctx context.Context, name string) (domain.WorkspaceView, error) {
	rec, err := m.registry.Get(ctx, name)
	if err != nil {
		return domain.WorkspaceView{}, err
	}

	report := m.GetStatus(ctx, name)
	recorded := m.reconcile(rec, report)

	updated, err := m.registry.Update(ctx, name, func(r *domain.WorkspaceRecord) {
		r.LastAccessedAt = m.now()
		r.LastKnownStatus = recorded
	})
	switch {
	case err == nil:
		rec = updated
	case errors.Is(err, domain.ErrNotFound):
		// Deleted while we were inspecting.
		return domain.WorkspaceView{}, err
	default:
		m.log.Warn("could not record workspace access", logger.String("workspace", name), logger.Error(err))
	}

	return domain.WorkspaceView{Workspace: rec, CurrentStatus: report.Status}, nil
}

// List returns every record with a freshly observed status. Entries are
// inspected independently; a status change is written back per record.
func (m *Manager) List(ctx context.Context) ([]domain.WorkspaceView, error) {
	views, _, err := m.observeAll(ctx)
	return views, err
}

// Reconcile refreshes the recorded status of every workspace and returns
// how many records changed.
func (m *Manager) Reconcile(ctx context.Context) (int, error) {
	_, changed, err := m.observeAll(ctx)
	return changed, err
}

func (m *Manager) observeAll(ctx context.Context) ([]domain.WorkspaceView, int, error) {
	records, err := m.registry.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	views := make([]domain.WorkspaceView, len(records))
	var changed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			report := m.GetStatus(gctx, rec.Name)
			updated, ok := m.refresh(gctx, rec, report)
			if ok {
				changed.Add(1)
			}
			views[i] = domain.WorkspaceView{Workspace: updated, CurrentStatus: report.Status}
			return nil
		})
	}
	_ = g.Wait()

	return views, int(changed.Load()), nil
}

// reconcile decides the status to record. A record bound to a container
// id that the runtime no longer reports is a reconciliation fault and is
// recorded as unknown.
func (m *Manager) reconcile(rec domain.WorkspaceRecord, report domain.StatusReport) domain.Status {
	if rec.ContainerID == "" || report.Status == domain.StatusUnknown {
		return report.Status
	}
	if report.RuntimeID == "" || !sameContainer(rec.ContainerID, report.RuntimeID) {
		m.log.Warn("workspace record does not match runtime",
			logger.String("workspace", rec.Name),
			logger.String("recorded_id", shortID(rec.ContainerID)),
			logger.String("runtime_id", shortID(report.RuntimeID)))
		return domain.StatusUnknown
	}
	return report.Status
}

// refresh writes the reconciled status back when it changed and reports
// whether it did.
func (m *Manager) refresh(ctx context.Context, rec domain.WorkspaceRecord, report domain.StatusReport) (domain.WorkspaceRecord, bool) {
	status := m.reconcile(rec, report)
	if status == rec.LastKnownStatus {
		return rec, false
	}

	updated, err := m.registry.Update(ctx, rec.Name, func(r *domain.WorkspaceRecord) {
		r.LastKnownStatus = status
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			m.log.Warn("could not persist workspace status", logger.String("workspace", rec.Name), logger.Error(err))
		}
		rec.LastKnownStatus = status
		return rec, false
	}
	return updated, true
}

// sameContainer compares ids, allowing either side to be abbreviated.
func sameContainer(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}
