// Package runtime is the boundary over the container engine. Nothing else
// in berth issues container operations.
package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

// ErrContainerNotFound is returned when the engine has no such container.
var ErrContainerNotFound = errors.New("container not found")

// ErrRuntimeUnavailable is returned when the engine cannot be reached.
var ErrRuntimeUnavailable = errors.New("container runtime unavailable")

// Gateway is the set of engine capabilities the lifecycle manager needs.
// Every blocking call honors ctx; callers bound them with deadlines.
type Gateway interface {
	// Ping reports whether the engine is reachable.
	Ping(ctx context.Context) error

	ImageExists(ctx context.Context, ref string) (bool, error)
	PullImage(ctx context.Context, ref string) error

	// Create creates the container described by spec without starting it
	// and returns the engine-assigned id.
	Create(ctx context.Context, spec ContainerSpec) (string, error)

	// Start starts a created container. A failed start leaves the
	// container behind in the created state.
	Start(ctx context.Context, id string) error

	// Inspect looks a container up by exact name or id.
	// Returns ErrContainerNotFound when absent.
	Inspect(ctx context.Context, nameOrID string) (ContainerState, error)

	Stop(ctx context.Context, id string, timeout time.Duration) error
	Remove(ctx context.Context, id string) error
	Logs(ctx context.Context, id string, tail int) (string, error)
}

// ContainerSpec is the fully resolved description of one container.
// Host paths in Mounts are absolute or named volumes; nothing is templated.
type ContainerSpec struct {
	Name      string
	Image     string
	Env       []domain.EnvVar
	Mounts    []domain.VolumeMount
	Ports     []domain.PortMapping
	Resources domain.ResourceFlags
	Labels    map[string]string
}

// ContainerState is what the engine reports about one container.
type ContainerState struct {
	ID     string
	Name   string // without the leading "/"
	Status string // engine vocabulary: created, running, exited, ...
}

// Running reports whether the engine considers the container running.
func (s ContainerState) Running() bool {
	return s.Status == "running"
}
