package domain

// ServiceDefinition describes how to run one kind of workspace.
//
// It is produced by the catalog loader and is immutable for the lifetime
// of one catalog load: the lifecycle manager only ever reads it.
type ServiceDefinition struct {
	// Name is the catalog key (ex: "kali", "firefox").
	Name string

	// Image is the container image reference. Empty means the catalog
	// entry is unusable for workspace creation.
	Image string

	// Description and Icon are presentation-only and passed through to
	// the service listing.
	Description string
	Icon        string

	// Environment keeps declaration order.
	Environment []EnvVar

	// Volumes keeps declaration order. HostPath may be a template
	// (see workspace.ResolveHostPath).
	Volumes []VolumeMount

	// Ports keeps declaration order.
	Ports []PortMapping

	Resources ResourceFlags
}

// EnvVar is one KEY=VALUE pair.
type EnvVar struct {
	Key   string
	Value string
}

// VolumeMount binds HostPath into the container at ContainerPath.
type VolumeMount struct {
	HostPath      string
	ContainerPath string
	Mode          string // "rw" | "ro"
}

// PortMapping publishes ContainerPort on HostPort.
// HostPort == 0 lets the engine pick an ephemeral port.
type PortMapping struct {
	HostIP        string
	HostPort      int
	ContainerPort int
	Protocol      string // "tcp" | "udp"
}

// ResourceFlags are optional engine knobs copied from the catalog.
type ResourceFlags struct {
	ShmSize       string   // ex: "1gb"
	CapAdd        []string // ex: ["NET_ADMIN"]
	SecurityOpt   []string // ex: ["seccomp=unconfined"]
	RestartPolicy string   // ex: "unless-stopped"
}

// Catalog is one load of the service catalog. Order preserves the
// document order so listings are stable.
type Catalog struct {
	Order    []string
	Services map[string]ServiceDefinition
}

// NewCatalog returns an empty catalog ready for Add.
func NewCatalog() *Catalog {
	return &Catalog{Services: make(map[string]ServiceDefinition)}
}

// Add registers a definition, keeping first-seen order.
func (c *Catalog) Add(def ServiceDefinition) {
	if _, exists := c.Services[def.Name]; !exists {
		c.Order = append(c.Order, def.Name)
	}
	c.Services[def.Name] = def
}

// Lookup returns the definition for name.
func (c *Catalog) Lookup(name string) (ServiceDefinition, bool) {
	def, ok := c.Services[name]
	return def, ok
}

// List returns definitions in document order.
func (c *Catalog) List() []ServiceDefinition {
	out := make([]ServiceDefinition, 0, len(c.Order))
	for _, name := range c.Order {
		out = append(out, c.Services[name])
	}
	return out
}
