package archive

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// TarBackend drives the system tar tool with gzip compression.
type TarBackend struct {
	binary string
}

// NewTarBackend returns a TarBackend running binary, or "tar" when empty.
func NewTarBackend(binary string) *TarBackend {
	if binary == "" {
		binary = "tar"
	}
	return &TarBackend{binary: binary}
}

func (b *TarBackend) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, b.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%s %s: %s", b.binary, args[0], msg)
	}
	return stdout.String(), nil
}

// Create runs tar -czf archivePath -C stagingDir .
func (b *TarBackend) Create(ctx context.Context, archivePath, stagingDir string) error {
	_, err := b.run(ctx, "-czf", archivePath, "-C", stagingDir, ".")
	return err
}

// List runs tar -tzf and returns one entry per output line.
func (b *TarBackend) List(ctx context.Context, archivePath string) ([]string, error) {
	out, err := b.run(ctx, "-tzf", archivePath)
	if err != nil {
		return nil, err
	}
	var entries []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, line)
	}
	return entries, nil
}

// Extract runs tar -xzf archivePath -C targetDir.
func (b *TarBackend) Extract(ctx context.Context, archivePath, targetDir string) error {
	_, err := b.run(ctx, "-xzf", archivePath, "-C", targetDir)
	return err
}
