package workspace

import (
	"path/filepath"
	"strings"

	"github.com/MrSnakeDoc/berth/internal/domain"
	"github.com/MrSnakeDoc/berth/internal/runtime"
)

const (
	// DataMountPath is where every workspace sees its private directory.
	DataMountPath = "/data"

	labelCreatedBy = "berth"
)

// ResolveHostPath turns a catalog host path into what the engine gets.
//
//	${WORKSPACE} and ${SERVICE} are substituted first
//	absolute paths are kept
//	paths starting with "." or containing "/" are joined to projectDir
//	anything else is a named volume and passed through
func ResolveHostPath(raw, projectDir, workspace, service string) string {
	p := strings.NewReplacer("${WORKSPACE}", workspace, "${SERVICE}", service).Replace(raw)
	switch {
	case filepath.IsAbs(p):
		return filepath.Clean(p)
	case strings.HasPrefix(p, ".") || strings.Contains(p, "/"):
		return filepath.Join(projectDir, p)
	default:
		return p
	}
}

// dataDir returns the absolute private directory of a workspace.
func (m *Manager) dataDir(name string) string {
	root := m.opts.DataRoot
	if !filepath.IsAbs(root) {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	return filepath.Join(root, name)
}

// buildSpec translates a definition plus the allocated resources into a
// container spec. The web binding and the /data mount always win over
// whatever the catalog declares for the same container port or path.
func (m *Manager) buildSpec(def domain.ServiceDefinition, name string, webPort int, dataDir string) runtime.ContainerSpec {
	projectDir := m.opts.ProjectDir
	if abs, err := filepath.Abs(projectDir); err == nil {
		projectDir = abs
	}

	env := make([]domain.EnvVar, len(def.Environment))
	copy(env, def.Environment)

	mounts := make([]domain.VolumeMount, 0, len(def.Volumes)+1)
	for _, v := range def.Volumes {
		if v.ContainerPath == DataMountPath {
			continue
		}
		mounts = append(mounts, domain.VolumeMount{
			HostPath:      ResolveHostPath(v.HostPath, projectDir, name, def.Name),
			ContainerPath: v.ContainerPath,
			Mode:          v.Mode,
		})
	}
	mounts = append(mounts, domain.VolumeMount{HostPath: dataDir, ContainerPath: DataMountPath, Mode: "rw"})

	ports := make([]domain.PortMapping, 0, len(def.Ports)+1)
	for _, p := range def.Ports {
		if p.ContainerPort == m.opts.WebContainerPort && protocolOf(p) == "tcp" {
			continue
		}
		ports = append(ports, p)
	}
	ports = append(ports, domain.PortMapping{HostPort: webPort, ContainerPort: m.opts.WebContainerPort, Protocol: "tcp"})

	res := def.Resources
	if res.ShmSize == "" {
		res.ShmSize = m.opts.DefaultShmSize
	}

	return runtime.ContainerSpec{
		Name:      name,
		Image:     def.Image,
		Env:       env,
		Mounts:    mounts,
		Ports:     ports,
		Resources: res,
		Labels: map[string]string{
			"workspace":  name,
			"service":    def.Name,
			"created_by": labelCreatedBy,
		},
	}
}

func protocolOf(p domain.PortMapping) string {
	if p.Protocol == "" {
		return "tcp"
	}
	return p.Protocol
}
