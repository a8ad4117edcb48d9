package domain

import "time"

// WorkspaceRecord is the durable view of one workspace.
//
// Records are owned by the registry. Callers always receive copies; a
// mutation only becomes real once it is written back through the registry.
type WorkspaceRecord struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// Name is the unique key. It is also the container name.
	Name string `json:"name"`

	// ServiceName is the catalog entry this workspace was built from.
	ServiceName string `json:"service"`

	// ─────────────────────────────
	// Runtime binding
	// ─────────────────────────────

	// ContainerID is set only once the engine reported a started container.
	ContainerID   string `json:"container_id"`
	ContainerName string `json:"container_name"`
	Image         string `json:"image"`

	// WebPort is the host port bound to the container's web port.
	WebPort int    `json:"web_port"`
	WebURL  string `json:"web_url"`

	// DataDir is the workspace-private host directory mounted at /data.
	DataDir string `json:"data_dir"`

	// ─────────────────────────────
	// Observation
	// ─────────────────────────────

	CreatedAt       time.Time `json:"created"`
	LastAccessedAt  time.Time `json:"last_accessed"`
	LastKnownStatus Status    `json:"status"`
}

// RegistryDocumentVersion is the current registry document format.
const RegistryDocumentVersion = 1

// RegistryDocument is the whole durable record set. Stores always read
// and write it in one piece.
type RegistryDocument struct {
	Version    int               `json:"version"`
	Workspaces []WorkspaceRecord `json:"workspaces"`
}

// NewRegistryDocument returns an empty document at the current version.
func NewRegistryDocument() *RegistryDocument {
	return &RegistryDocument{Version: RegistryDocumentVersion, Workspaces: []WorkspaceRecord{}}
}

// Index returns the position of name, or -1.
func (d *RegistryDocument) Index(name string) int {
	for i := range d.Workspaces {
		if d.Workspaces[i].Name == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so no caller shares backing arrays with a store.
func (d *RegistryDocument) Clone() *RegistryDocument {
	out := &RegistryDocument{Version: d.Version, Workspaces: make([]WorkspaceRecord, len(d.Workspaces))}
	copy(out.Workspaces, d.Workspaces)
	return out
}

// StatusReport is the live answer from the runtime for one workspace.
type StatusReport struct {
	Status    Status `json:"status"`
	Running   bool   `json:"running"`
	RuntimeID string `json:"id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WorkspaceView pairs a record with its freshly observed status.
type WorkspaceView struct {
	Workspace     WorkspaceRecord `json:"workspace"`
	CurrentStatus Status          `json:"current_status"`
}

// ServiceSummary is the listing shape of a catalog entry.
type ServiceSummary struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Health reports whether the container engine is reachable.
type Health struct {
	Status           string `json:"status"` // healthy | degraded
	RuntimeAvailable bool   `json:"runtime_available"`
}
