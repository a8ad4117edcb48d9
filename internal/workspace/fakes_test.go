package workspace

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/berth/internal/domain"
	"github.com/MrSnakeDoc/berth/internal/logger"
	"github.com/MrSnakeDoc/berth/internal/ports"
	"github.com/MrSnakeDoc/berth/internal/registry"
	"github.com/MrSnakeDoc/berth/internal/runtime"
)

// fakeEngine is an in-memory container engine. Hooks override the
// default behaviour of individual operations.
type fakeEngine struct {
	mu         sync.Mutex
	images     map[string]bool
	containers map[string]runtime.ContainerState // by name
	specs      []runtime.ContainerSpec
	calls      []string
	seq        int

	startStatus string // status of new containers, "running" when empty

	pingErr    error
	inspectErr error
	stopErr    error
	removeErr  error
	pullFn     func(ctx context.Context, ref string) error
	createFn   func(ctx context.Context, spec runtime.ContainerSpec) (string, error)
	startFn    func(ctx context.Context, id string) error
}

var _ runtime.Gateway = (*fakeEngine)(nil)

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		images:     map[string]bool{},
		containers: map[string]runtime.ContainerState{},
	}
}

func (f *fakeEngine) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeEngine) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// addContainer registers a container berth did not create.
func (f *fakeEngine) addContainer(name, id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers[name] = runtime.ContainerState{ID: id, Name: name, Status: status}
}

func (f *fakeEngine) lastSpec(t *testing.T) runtime.ContainerSpec {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.specs) == 0 {
		t.Fatal("no container was created")
	}
	return f.specs[len(f.specs)-1]
}

func (f *fakeEngine) Ping(context.Context) error {
	f.record("ping")
	return f.pingErr
}

func (f *fakeEngine) ImageExists(_ context.Context, ref string) (bool, error) {
	f.record("image-exists")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images[ref], nil
}

func (f *fakeEngine) PullImage(ctx context.Context, ref string) error {
	f.record("pull")
	if f.pullFn != nil {
		if err := f.pullFn(ctx, ref); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[ref] = true
	return nil
}

func (f *fakeEngine) Create(ctx context.Context, spec runtime.ContainerSpec) (string, error) {
	f.record("create")
	var id string
	if f.createFn != nil {
		var err error
		if id, err = f.createFn(ctx, spec); err != nil {
			return "", err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.containers[spec.Name]; exists {
		return "", fmt.Errorf("conflict: container name %q is already in use", "/"+spec.Name)
	}
	if id == "" {
		f.seq++
		id = fmt.Sprintf("c%063d", f.seq)
	}
	f.specs = append(f.specs, spec)
	f.containers[spec.Name] = runtime.ContainerState{ID: id, Name: spec.Name, Status: "created"}
	return id, nil
}

// Start leaves the container in the created state when startFn fails,
// as the engine does.
func (f *fakeEngine) Start(ctx context.Context, id string) error {
	f.record("start")
	if f.startFn != nil {
		if err := f.startFn(ctx, id); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for name, st := range f.containers {
		if st.ID == id {
			st.Status = f.status()
			f.containers[name] = st
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, runtime.ErrContainerNotFound)
}

// has reports whether a container named name exists.
func (f *fakeEngine) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.containers[name]
	return ok
}

func (f *fakeEngine) status() string {
	if f.startStatus != "" {
		return f.startStatus
	}
	return "running"
}

func (f *fakeEngine) Inspect(_ context.Context, nameOrID string) (runtime.ContainerState, error) {
	f.record("inspect")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inspectErr != nil {
		return runtime.ContainerState{}, f.inspectErr
	}
	if st, ok := f.containers[nameOrID]; ok {
		return st, nil
	}
	for _, st := range f.containers {
		if st.ID == nameOrID {
			return st, nil
		}
	}
	return runtime.ContainerState{}, fmt.Errorf("%s: %w", nameOrID, runtime.ErrContainerNotFound)
}

func (f *fakeEngine) Stop(_ context.Context, id string, _ time.Duration) error {
	f.record("stop")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	for name, st := range f.containers {
		if st.ID == id {
			st.Status = "exited"
			f.containers[name] = st
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, runtime.ErrContainerNotFound)
}

func (f *fakeEngine) Remove(_ context.Context, idOrName string) error {
	f.record("remove")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	for name, st := range f.containers {
		if st.ID == idOrName || name == idOrName {
			delete(f.containers, name)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", idOrName, runtime.ErrContainerNotFound)
}

func (f *fakeEngine) Logs(_ context.Context, id string, tail int) (string, error) {
	f.record("logs")
	return fmt.Sprintf("last %d lines of %s", tail, id), nil
}

// staticCatalog serves a fixed catalog.
type staticCatalog struct {
	cat *domain.Catalog
	err error
}

func (s staticCatalog) Load() (*domain.Catalog, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.cat, nil
}

func testCatalog() *domain.Catalog {
	cat := domain.NewCatalog()
	cat.Add(domain.ServiceDefinition{
		Name:        "alpha",
		Image:       "img:1",
		Description: "Alpha desktop",
		Icon:        "alpha.png",
		Environment: []domain.EnvVar{{Key: "PUID", Value: "1000"}},
		Volumes:     []domain.VolumeMount{{HostPath: "./data", ContainerPath: "/app/data", Mode: "rw"}},
		Ports:       []domain.PortMapping{{HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}},
	})
	cat.Add(domain.ServiceDefinition{Name: "noimage"})
	return cat
}

type harness struct {
	mgr    *Manager
	engine *fakeEngine
	reg    *registry.Registry
	store  *registry.MemoryStore
	alloc  *ports.Allocator
	opts   Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	opts := DefaultOptions()
	opts.DataRoot = t.TempDir()
	opts.ProjectDir = "/srv/project"
	opts.SettleInterval = 0
	opts.PublicHost = "berth.test"

	store := registry.NewMemoryStore()
	reg := registry.New(store)
	engine := newFakeEngine()
	alloc := ports.NewAllocator(ports.WithProbe(func(int) bool { return true }))

	mgr := NewManager(staticCatalog{cat: testCatalog()}, reg, engine, alloc, opts, logger.Nop())
	return &harness{mgr: mgr, engine: engine, reg: reg, store: store, alloc: alloc, opts: opts}
}

func (h *harness) count(t *testing.T) int {
	t.Helper()
	n, err := h.reg.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	return n
}
