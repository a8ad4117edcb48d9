package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

func init() {
	color.NoColor = true
}

type stubWorkspaces struct {
	calls    []string
	tail     int
	name     string
	views    []domain.WorkspaceView
	err      error
	services []domain.ServiceSummary
}

func (s *stubWorkspaces) Create(_ context.Context, service, name string) (domain.WorkspaceRecord, error) {
	s.calls = append(s.calls, "create "+service)
	s.name = name
	if s.err != nil {
		return domain.WorkspaceRecord{}, s.err
	}
	return domain.WorkspaceRecord{
		Name:            "alpha-1234abcd",
		ServiceName:     service,
		WebURL:          "http://localhost:3000",
		DataDir:         "/data/alpha-1234abcd",
		LastKnownStatus: domain.StatusRunning,
	}, nil
}

func (s *stubWorkspaces) Delete(_ context.Context, name string) (string, error) {
	s.calls = append(s.calls, "delete "+name)
	return fmt.Sprintf("Workspace '%s' deleted", name), s.err
}

func (s *stubWorkspaces) Get(_ context.Context, name string) (domain.WorkspaceView, error) {
	s.calls = append(s.calls, "get "+name)
	if s.err != nil {
		return domain.WorkspaceView{}, s.err
	}
	return domain.WorkspaceView{
		Workspace:     domain.WorkspaceRecord{Name: name, ServiceName: "alpha", CreatedAt: time.Now()},
		CurrentStatus: domain.StatusStopped,
	}, nil
}

func (s *stubWorkspaces) List(context.Context) ([]domain.WorkspaceView, error) {
	s.calls = append(s.calls, "list")
	return s.views, s.err
}

func (s *stubWorkspaces) Logs(_ context.Context, name string, tail int) (string, error) {
	s.calls = append(s.calls, "logs "+name)
	s.tail = tail
	return "line1\nline2\n", s.err
}

func (s *stubWorkspaces) Services() ([]domain.ServiceSummary, error) {
	s.calls = append(s.calls, "services")
	return s.services, s.err
}

func (s *stubWorkspaces) Health(context.Context) domain.Health {
	return domain.Health{Status: "healthy", RuntimeAvailable: true}
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// execute runs the command tree against ws and returns stdout.
func execute(t *testing.T, ws *stubWorkspaces, args ...string) (string, error) {
	t.Helper()

	closed := 0
	orig := openSession
	openSession = func(context.Context, string) (*session, error) {
		return &session{workspaces: ws, closer: closeFunc(func() error { closed++; return nil })}, nil
	}
	t.Cleanup(func() { openSession = orig })

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())

	if len(ws.calls) > 0 && closed != 1 {
		t.Errorf("session closed %d times, want 1", closed)
	}
	return out.String(), err
}

func TestCreateCmd(t *testing.T) {
	ws := &stubWorkspaces{}
	out, err := execute(t, ws, "create", "alpha", "--name", "desk")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ws.name != "desk" || ws.calls[0] != "create alpha" {
		t.Errorf("calls = %v, name = %q", ws.calls, ws.name)
	}
	for _, want := range []string{"alpha-1234abcd created", "running", "http://localhost:3000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCreateCmdRequiresService(t *testing.T) {
	ws := &stubWorkspaces{}
	if _, err := execute(t, ws, "create"); err == nil {
		t.Fatal("expected an argument error")
	}
	if len(ws.calls) != 0 {
		t.Errorf("no session call expected, got %v", ws.calls)
	}
}

func TestCreateCmdPropagatesErrors(t *testing.T) {
	ws := &stubWorkspaces{err: fmt.Errorf("%w: %q", domain.ErrUnknownService, "nope")}
	_, err := execute(t, ws, "create", "nope")
	if !errors.Is(err, domain.ErrUnknownService) {
		t.Fatalf("err = %v, want ErrUnknownService", err)
	}
}

func TestDeleteCmd(t *testing.T) {
	ws := &stubWorkspaces{}
	out, err := execute(t, ws, "rm", "desk")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "Workspace 'desk' deleted" {
		t.Errorf("output = %q", out)
	}
}

func TestListCmd(t *testing.T) {
	ws := &stubWorkspaces{}
	out, err := execute(t, ws, "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No workspaces found") {
		t.Errorf("empty output = %q", out)
	}

	ws = &stubWorkspaces{views: []domain.WorkspaceView{
		{Workspace: domain.WorkspaceRecord{Name: "one", ServiceName: "alpha"}, CurrentStatus: domain.StatusRunning},
		{Workspace: domain.WorkspaceRecord{Name: "two", ServiceName: "beta"}, CurrentStatus: domain.StatusUnknown},
	}}
	out, err = execute(t, ws, "ls")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Index(out, "one (running)") > strings.Index(out, "two (unknown)") || !strings.Contains(out, "two (unknown)") {
		t.Errorf("list output out of order or missing:\n%s", out)
	}
}

func TestGetCmd(t *testing.T) {
	ws := &stubWorkspaces{}
	out, err := execute(t, ws, "get", "desk")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "desk (stopped)") || !strings.Contains(out, "Service:   alpha") {
		t.Errorf("output:\n%s", out)
	}

	ws = &stubWorkspaces{err: domain.ErrNotFound}
	if _, err := execute(t, ws, "get", "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLogsCmd(t *testing.T) {
	ws := &stubWorkspaces{}
	out, err := execute(t, ws, "logs", "desk", "--tail", "5")
	if err != nil {
		t.Fatal(err)
	}
	if out != "line1\nline2\n" || ws.tail != 5 {
		t.Errorf("out = %q, tail = %d", out, ws.tail)
	}

	if _, err := execute(t, &stubWorkspaces{}, "logs", "desk", "--tail=-1"); err == nil {
		t.Error("negative tail should be rejected")
	}
}

func TestServicesCmd(t *testing.T) {
	ws := &stubWorkspaces{services: []domain.ServiceSummary{
		{Name: "alpha", Image: "img:1", Description: "Alpha desk"},
		{Name: "beta", Image: "img:2"},
	}}
	out, err := execute(t, ws, "services")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "NAME") || !strings.HasPrefix(lines[1], "alpha") {
		t.Errorf("services output:\n%s", out)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, &stubWorkspaces{}, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "berth ") {
		t.Errorf("version output = %q", out)
	}
}
