package domain

import "fmt"

// MaxNameLength keeps names usable as container names and directory names.
const MaxNameLength = 128

// ValidateName checks a workspace name: non-empty, alphanumeric, dash or underscore.
// The first character must be alphanumeric since the name doubles as the container name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name longer than %d characters", ErrInvalidName, MaxNameLength)
	}
	for i, r := range name {
		if i == 0 && (r == '-' || r == '_') {
			return fmt.Errorf("%w: %q must start with a letter or digit", ErrInvalidName, name)
		}
		if !isNameRune(r) {
			return fmt.Errorf("%w: %q can only contain alphanumeric characters, dashes, and underscores", ErrInvalidName, name)
		}
	}
	return nil
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}
