package redis

import (
	"fmt"
	"strings"
)

// DefaultKeyPrefix namespaces every key berth writes.
const DefaultKeyPrefix = "berth:"

const (
	suffixDocument = "workspaces"
	suffixLock     = "workspaces:lock"
)

// DocumentKey returns the key holding the registry document.
func DocumentKey(prefix string) string {
	return normalizePrefix(prefix) + suffixDocument
}

// LockKey returns the key used as the cross-process registry lock.
func LockKey(prefix string) string {
	return normalizePrefix(prefix) + suffixLock
}

// ValidatePrefix rejects prefixes that would collide with other tenants.
func ValidatePrefix(prefix string) error {
	if strings.TrimSpace(prefix) == "" {
		return fmt.Errorf("redis key prefix must not be empty")
	}
	if strings.ContainsAny(prefix, " \t\r\n*?[]") {
		return fmt.Errorf("invalid redis key prefix: %q", prefix)
	}
	return nil
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return DefaultKeyPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		return prefix + ":"
	}
	return prefix
}
