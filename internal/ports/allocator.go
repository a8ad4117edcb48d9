// Package ports hands out host ports for workspace web endpoints.
//
// Allocation is best effort: a port is probed (bind, release, then a
// connect attempt) but not held open until the container engine binds
// it, so an outside process can still grab it in between. Ports handed
// out to in-flight creates are remembered until Release so two
// concurrent creates never receive the same port.
package ports

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

const (
	// DefaultMaxAttempts bounds the linear probe.
	DefaultMaxAttempts = 1000
	// DefaultDialTimeout bounds the connect-back check per candidate.
	DefaultDialTimeout = 100 * time.Millisecond

	maxPort = 65535
)

// ProbeFunc reports whether port is free to use right now.
type ProbeFunc func(port int) bool

// Allocator finds free host ports.
type Allocator struct {
	mu          sync.Mutex
	maxAttempts int
	probe       ProbeFunc
	held        map[int]struct{}
}

// Option customises an Allocator.
type Option func(*Allocator)

// WithMaxAttempts overrides the probe bound (values < 1 are ignored).
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithProbe replaces the socket probe (tests).
func WithProbe(p ProbeFunc) Option {
	return func(a *Allocator) {
		if p != nil {
			a.probe = p
		}
	}
}

// NewAllocator creates an allocator probing real sockets.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		maxAttempts: DefaultMaxAttempts,
		probe:       IsPortFree,
		held:        make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns the lowest port >= start that is not held, not in
// taken, and passes the probe. The port stays held until Release.
// It fails with domain.ErrResourceExhausted once maxAttempts candidates
// have been rejected.
func (a *Allocator) Allocate(start int, taken map[int]bool) (int, error) {
	if start < 1 || start > maxPort {
		return 0, fmt.Errorf("%w: start port %d out of range", domain.ErrResourceExhausted, start)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	port := start
	for attempt := 0; attempt < a.maxAttempts && port <= maxPort; attempt++ {
		_, held := a.held[port]
		if !held && !taken[port] && a.probe(port) {
			a.held[port] = struct{}{}
			return port, nil
		}
		port++
	}

	return 0, fmt.Errorf("%w: no available port found starting from %d (%d attempts)",
		domain.ErrResourceExhausted, start, a.maxAttempts)
}

// Release forgets an in-flight reservation. Call it once the port is
// recorded in the registry, or when the create that asked for it failed.
func (a *Allocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.held, port)
}

// Held reports how many ports are currently reserved in flight.
func (a *Allocator) Held() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.held)
}

// IsPortFree binds port on all interfaces (SO_REUSEADDR, like the engine
// will), releases it, then dials it on loopback. A successful dial means
// someone started listening in between and the port is rejected.
func IsPortFree(port int) bool {
	if !canBind(port) {
		return false
	}
	return !isListening(port, DefaultDialTimeout)
}

func canBind(port int) bool {
	lc := net.ListenConfig{Control: reuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

func isListening(port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp4", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func reuseAddr(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
