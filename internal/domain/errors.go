package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidName is returned when a workspace name has characters outside [A-Za-z0-9_-].
var ErrInvalidName = errors.New("invalid workspace name")

// ErrAlreadyExists is returned when the name is tracked or taken by an untracked container.
var ErrAlreadyExists = errors.New("workspace already exists")

// ErrUnknownService is returned when the catalog has no such service.
var ErrUnknownService = errors.New("unknown service")

// ErrMissingImage is returned when a catalog entry declares no image.
var ErrMissingImage = errors.New("service has no image defined")

// ErrImagePullFailed is returned when the image could not be made available locally.
var ErrImagePullFailed = errors.New("image pull failed")

// ErrImagePullTimeout is the timeout flavour of ErrImagePullFailed.
var ErrImagePullTimeout = fmt.Errorf("%w: timeout", ErrImagePullFailed)

// ErrContainerCreationFailed is returned when create+start did not produce a container.
var ErrContainerCreationFailed = errors.New("container creation failed")

// ErrContainerCreationTimeout is the timeout flavour of ErrContainerCreationFailed.
var ErrContainerCreationTimeout = fmt.Errorf("%w: timeout", ErrContainerCreationFailed)

// ErrRuntimeOperationFailed covers stop/remove/inspect failures.
var ErrRuntimeOperationFailed = errors.New("runtime operation failed")

// ErrResourceExhausted is returned when no host port could be allocated.
var ErrResourceExhausted = errors.New("resource exhausted")

// ErrNotFound is returned for an unknown workspace.
var ErrNotFound = errors.New("workspace not found")

// ErrRegistryIO is returned when the durable registry could not be read or written.
var ErrRegistryIO = errors.New("registry i/o failed")

// HTTPStatus maps an error from the lifecycle manager to a response code.
// Validation, lookup and runtime failures are client-visible 400s; a
// missing workspace is 404; registry failures are the server's fault.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRegistryIO):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
