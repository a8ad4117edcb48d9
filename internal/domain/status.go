package domain

// Status is the lifecycle state recorded for a workspace.
type Status string

const (
	StatusCreating Status = "creating"
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusError    Status = "error"
	StatusUnknown  Status = "unknown"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCreating, StatusRunning, StatusStopped, StatusError, StatusUnknown:
		return true
	}
	return false
}

// StatusFromRuntime folds an engine container state (docker's
// .State.Status vocabulary) into a workspace status.
func StatusFromRuntime(state string) Status {
	switch state {
	case "running":
		return StatusRunning
	case "created", "restarting":
		return StatusCreating
	case "exited", "paused", "removing":
		return StatusStopped
	case "dead":
		return StatusError
	default:
		return StatusUnknown
	}
}
