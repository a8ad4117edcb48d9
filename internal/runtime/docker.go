package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

// inspectFormat yields "id|status|/name" on one line.
const inspectFormat = "{{.Id}}|{{.State.Status}}|{{.Name}}"

// CommandFunc runs one engine CLI invocation and returns its output.
// A non-nil error means the process failed to start or exited non-zero.
type CommandFunc func(ctx context.Context, bin string, args ...string) (stdout, stderr []byte, err error)

// DockerGateway implements Gateway by driving the docker CLI.
type DockerGateway struct {
	bin string
	run CommandFunc
}

// NewDockerGateway returns a gateway using bin ("docker" when empty).
// A nil run uses os/exec.
func NewDockerGateway(bin string, run CommandFunc) *DockerGateway {
	if bin == "" {
		bin = "docker"
	}
	if run == nil {
		run = execCommand
	}
	return &DockerGateway{bin: bin, run: run}
}

func execCommand(ctx context.Context, bin string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Ping runs docker info.
func (d *DockerGateway) Ping(ctx context.Context) error {
	if _, stderr, err := d.run(ctx, d.bin, "info", "--format", "{{.ServerVersion}}"); err != nil {
		return fmt.Errorf("%w: %s", ErrRuntimeUnavailable, describe(ctx, err, stderr))
	}
	return nil
}

// ImageExists reports whether ref is present locally.
func (d *DockerGateway) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, stderr, err := d.run(ctx, d.bin, "image", "inspect", "--format", "{{.Id}}", ref)
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if isNotFound(stderr) {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// image inspect exits 1 for a missing image even when the
		// message wording differs between engine versions.
		return false, nil
	}
	return false, fmt.Errorf("docker image inspect: %s", describe(ctx, err, stderr))
}

// PullImage pulls ref. The deadline on ctx bounds the pull.
func (d *DockerGateway) PullImage(ctx context.Context, ref string) error {
	if _, stderr, err := d.run(ctx, d.bin, "pull", "--quiet", ref); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("docker pull %s: %s", ref, describe(ctx, err, stderr))
	}
	return nil
}

// Create runs docker create and returns the new container id.
func (d *DockerGateway) Create(ctx context.Context, spec ContainerSpec) (string, error) {
	stdout, stderr, err := d.run(ctx, d.bin, createArgs(spec)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("docker create %s: %s", spec.Name, describe(ctx, err, stderr))
	}
	id := lastLine(stdout)
	if id == "" {
		return "", fmt.Errorf("docker create %s: no container id in output", spec.Name)
	}
	return id, nil
}

// Start starts the created container id.
func (d *DockerGateway) Start(ctx context.Context, id string) error {
	return d.simple(ctx, id, "start", id)
}

// Inspect returns the state of nameOrID.
func (d *DockerGateway) Inspect(ctx context.Context, nameOrID string) (ContainerState, error) {
	stdout, stderr, err := d.run(ctx, d.bin, "container", "inspect", "--format", inspectFormat, nameOrID)
	if err != nil {
		if ctx.Err() != nil {
			return ContainerState{}, ctx.Err()
		}
		if isNotFound(stderr) {
			return ContainerState{}, fmt.Errorf("%s: %w", nameOrID, ErrContainerNotFound)
		}
		return ContainerState{}, fmt.Errorf("docker inspect %s: %s", nameOrID, describe(ctx, err, stderr))
	}
	return parseInspect(lastLine(stdout))
}

// Stop stops id, killing it after timeout.
func (d *DockerGateway) Stop(ctx context.Context, id string, timeout time.Duration) error {
	return d.simple(ctx, id, stopArgs(id, timeout)...)
}

// Remove removes id, forcing removal if it is still running.
func (d *DockerGateway) Remove(ctx context.Context, id string) error {
	return d.simple(ctx, id, "rm", "--force", id)
}

// Logs returns the last tail lines of combined stdout and stderr.
func (d *DockerGateway) Logs(ctx context.Context, id string, tail int) (string, error) {
	stdout, stderr, err := d.run(ctx, d.bin, logsArgs(id, tail)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if isNotFound(stderr) {
			return "", fmt.Errorf("%s: %w", id, ErrContainerNotFound)
		}
		return "", fmt.Errorf("docker logs %s: %s", id, describe(ctx, err, stderr))
	}
	// The engine replays the container's stderr on our stderr.
	return string(stdout) + string(stderr), nil
}

func (d *DockerGateway) simple(ctx context.Context, id string, args ...string) error {
	_, stderr, err := d.run(ctx, d.bin, args...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if isNotFound(stderr) {
		return fmt.Errorf("%s: %w", id, ErrContainerNotFound)
	}
	return fmt.Errorf("docker %s %s: %s", args[0], id, describe(ctx, err, stderr))
}

// createArgs returns the docker CLI arguments for creating spec.
func createArgs(spec ContainerSpec) []string {
	args := []string{"create", "--name", spec.Name}

	keys := make([]string, 0, len(spec.Labels))
	for k := range spec.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--label", k+"="+spec.Labels[k])
	}

	for _, e := range spec.Env {
		args = append(args, "--env", e.Key+"="+e.Value)
	}
	for _, m := range spec.Mounts {
		args = append(args, "--volume", volumeArg(m))
	}
	for _, p := range spec.Ports {
		args = append(args, "--publish", publishArg(p))
	}

	r := spec.Resources
	if r.ShmSize != "" {
		args = append(args, "--shm-size", r.ShmSize)
	}
	for _, c := range r.CapAdd {
		args = append(args, "--cap-add", c)
	}
	for _, o := range r.SecurityOpt {
		args = append(args, "--security-opt", o)
	}
	if r.RestartPolicy != "" {
		args = append(args, "--restart", r.RestartPolicy)
	}

	return append(args, spec.Image)
}

func volumeArg(m domain.VolumeMount) string {
	mode := m.Mode
	if mode == "" {
		mode = "rw"
	}
	return m.HostPath + ":" + m.ContainerPath + ":" + mode
}

// publishArg renders [ip:][hostPort]:containerPort/proto. A zero host
// port leaves the choice to the engine.
func publishArg(p domain.PortMapping) string {
	proto := p.Protocol
	if proto == "" {
		proto = "tcp"
	}
	host := ""
	if p.HostPort > 0 {
		host = strconv.Itoa(p.HostPort)
	}

	var b strings.Builder
	if p.HostIP != "" {
		b.WriteString(p.HostIP)
		b.WriteByte(':')
		b.WriteString(host)
		b.WriteByte(':')
	} else if host != "" {
		b.WriteString(host)
		b.WriteByte(':')
	}
	b.WriteString(strconv.Itoa(p.ContainerPort))
	b.WriteByte('/')
	b.WriteString(proto)
	return b.String()
}

func stopArgs(id string, timeout time.Duration) []string {
	secs := int(timeout / time.Second)
	if secs < 0 {
		secs = 0
	}
	return []string{"stop", "--time", strconv.Itoa(secs), id}
}

func logsArgs(id string, tail int) []string {
	t := "all"
	if tail > 0 {
		t = strconv.Itoa(tail)
	}
	return []string{"logs", "--tail", t, id}
}

func parseInspect(line string) (ContainerState, error) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) != 3 || parts[0] == "" {
		return ContainerState{}, fmt.Errorf("unexpected inspect output: %q", line)
	}
	return ContainerState{
		ID:     parts[0],
		Status: parts[1],
		Name:   strings.TrimPrefix(parts[2], "/"),
	}, nil
}

func isNotFound(stderr []byte) bool {
	s := string(stderr)
	return strings.Contains(s, "No such container") ||
		strings.Contains(s, "No such object") ||
		strings.Contains(s, "No such image")
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func describe(ctx context.Context, err error, stderr []byte) string {
	if ctx.Err() != nil {
		return ctx.Err().Error()
	}
	msg := strings.TrimSpace(string(stderr))
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg == "" {
			return fmt.Sprintf("exit code %d", exitErr.ExitCode())
		}
		return fmt.Sprintf("exit code %d: %s", exitErr.ExitCode(), msg)
	}
	if msg != "" {
		return err.Error() + ": " + msg
	}
	return err.Error()
}
