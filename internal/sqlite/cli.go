package sqlite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CLIBackend drives the sqlite3 command-line tool.
type CLIBackend struct {
	binary string
}

// NewCLIBackend returns a Backend that shells out to binary, or "sqlite3"
// when binary is empty.
func NewCLIBackend(binary string) *CLIBackend {
	if binary == "" {
		binary = "sqlite3"
	}
	return &CLIBackend{binary: binary}
}

// run executes one sqlite3 command against db. A missing binary is reported
// as ErrEngineUnavailable; a non-zero exit is returned as a plain error.
func (b *CLIBackend) run(ctx context.Context, db, command string) (string, error) {
	cmd := exec.CommandContext(ctx, b.binary, db, command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, b.binary, err)
		}
		return stdout.String(), fmt.Errorf("%s %q failed: %s", b.binary, command, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Backup runs the sqlite3 .backup dot-command.
func (b *CLIBackend) Backup(ctx context.Context, src, dst string) error {
	_, err := b.run(ctx, src, ".backup "+quote(dst))
	return err
}

// Checkpoint runs PRAGMA wal_checkpoint(FULL).
func (b *CLIBackend) Checkpoint(ctx context.Context, db string) error {
	_, err := b.run(ctx, db, "PRAGMA wal_checkpoint(FULL);")
	return err
}

// IntegrityCheck runs PRAGMA integrity_check and expects a single "ok" line.
func (b *CLIBackend) IntegrityCheck(ctx context.Context, db string) (bool, error) {
	out, err := b.run(ctx, db, "PRAGMA integrity_check;")
	if err != nil {
		if errors.Is(err, ErrEngineUnavailable) {
			return false, err
		}
		return false, nil
	}
	return strings.EqualFold(strings.TrimSpace(out), "ok"), nil
}

// quote wraps a path as a SQL string literal.
func quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", "''") + "'"
}
