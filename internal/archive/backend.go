package archive

import (
	"context"
	"fmt"
	"os/exec"
)

// Backend creates, lists and extracts archive containers.
type Backend interface {
	// Create writes the contents of stagingDir into a new container at archivePath.
	Create(ctx context.Context, archivePath, stagingDir string) error
	// List returns the raw entry names of the container without extracting it.
	List(ctx context.Context, archivePath string) ([]string, error)
	// Extract unpacks the container into targetDir.
	Extract(ctx context.Context, archivePath, targetDir string) error
}

// Backend names accepted by NewBackend.
const (
	BackendAuto   = "auto"
	BackendTar    = "tar"
	BackendNative = "native"
)

// NewBackend returns the backend called name. "auto" (or empty) picks the tar
// tool when it is on PATH and the in-process implementation otherwise.
func NewBackend(name string) (Backend, error) {
	switch name {
	case "", BackendAuto:
		if _, err := exec.LookPath("tar"); err == nil {
			return NewTarBackend(""), nil
		}
		return NewNativeBackend(), nil
	case BackendTar:
		return NewTarBackend(""), nil
	case BackendNative:
		return NewNativeBackend(), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", name)
	}
}
