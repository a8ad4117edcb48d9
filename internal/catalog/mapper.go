package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

// Mapper converts the raw catalog document into domain definitions.
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapCatalog converts every service entry. A malformed entry is left out
// as a whole and its error returned in skipped; the other services stay
// usable.
func (m *Mapper) MapCatalog(doc *Document) (c *domain.Catalog, skipped []error) {
	c = domain.NewCatalog()
	for _, entry := range doc.Services {
		if entry.Err != nil {
			skipped = append(skipped, entry.Err)
			continue
		}
		def, err := m.MapService(entry.Name, entry.Props)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		c.Add(def)
	}
	return c, skipped
}

// MapService converts a single entry. A missing image is not an error here:
// the service still lists, and creation reports it.
func (m *Mapper) MapService(name string, props ServiceProps) (domain.ServiceDefinition, error) {
	def := domain.ServiceDefinition{
		Name:        name,
		Image:       strings.TrimSpace(props.Image),
		Description: props.Description,
		Icon:        props.Icon,
		Resources: domain.ResourceFlags{
			ShmSize:       props.ShmSize,
			CapAdd:        props.CapAdd,
			SecurityOpt:   props.SecurityOpt,
			RestartPolicy: props.Restart,
		},
	}

	for _, raw := range props.Environment {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return def, fmt.Errorf("service %q: invalid environment entry %q", name, raw)
		}
		if !ok {
			// compose semantics: bare KEY means "empty value"
			value = ""
		}
		def.Environment = append(def.Environment, domain.EnvVar{Key: key, Value: value})
	}

	for _, raw := range props.Volumes {
		vol, err := ParseVolume(raw)
		if err != nil {
			return def, fmt.Errorf("service %q: %w", name, err)
		}
		def.Volumes = append(def.Volumes, vol)
	}

	for _, raw := range props.Ports {
		port, err := ParsePort(raw)
		if err != nil {
			return def, fmt.Errorf("service %q: %w", name, err)
		}
		def.Ports = append(def.Ports, port)
	}

	return def, nil
}

// ParseVolume parses "host:container[:mode]".
func ParseVolume(raw string) (domain.VolumeMount, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return domain.VolumeMount{}, fmt.Errorf("invalid volume %q: want host:container[:mode]", raw)
	}
	mode := "rw"
	if len(parts) == 3 {
		mode = parts[2]
		if mode != "rw" && mode != "ro" {
			return domain.VolumeMount{}, fmt.Errorf("invalid volume %q: mode must be rw or ro", raw)
		}
	}
	return domain.VolumeMount{HostPath: parts[0], ContainerPath: parts[1], Mode: mode}, nil
}

// ParsePort parses "[ip:][host:]container[/proto]".
func ParsePort(raw string) (domain.PortMapping, error) {
	spec := strings.TrimSpace(raw)
	pm := domain.PortMapping{Protocol: "tcp"}

	if base, proto, ok := strings.Cut(spec, "/"); ok {
		if proto != "tcp" && proto != "udp" {
			return pm, fmt.Errorf("invalid port %q: protocol must be tcp or udp", raw)
		}
		spec, pm.Protocol = base, proto
	}

	parts := strings.Split(spec, ":")
	var hostPart, containerPart string
	switch len(parts) {
	case 1:
		containerPart = parts[0]
	case 2:
		hostPart, containerPart = parts[0], parts[1]
	case 3:
		pm.HostIP, hostPart, containerPart = parts[0], parts[1], parts[2]
	default:
		return pm, fmt.Errorf("invalid port %q", raw)
	}

	cp, err := parsePortNumber(containerPart)
	if err != nil {
		return pm, fmt.Errorf("invalid port %q: %w", raw, err)
	}
	pm.ContainerPort = cp

	if hostPart != "" {
		hp, err := parsePortNumber(hostPart)
		if err != nil {
			return pm, fmt.Errorf("invalid port %q: %w", raw, err)
		}
		pm.HostPort = hp
	}
	return pm, nil
}

func parsePortNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("%q is not a port number", s)
	}
	return n, nil
}
