// Package platform wraps host interactions: browser process detection and
// desktop notifications.
package platform

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/prometheas/zen-backup/internal/logging"
)

// LivenessProbe reports whether the browser is currently running.
type LivenessProbe interface {
	BrowserRunning(ctx context.Context) bool
}

// ProbeFunc adapts a function to LivenessProbe.
type ProbeFunc func(ctx context.Context) bool

func (f ProbeFunc) BrowserRunning(ctx context.Context) bool { return f(ctx) }

// Fixed returns a probe that always answers running.
func Fixed(running bool) LivenessProbe {
	return ProbeFunc(func(context.Context) bool { return running })
}

// ProcessProbe looks for a Zen process using the host's process tools.
type ProcessProbe struct{}

func (ProcessProbe) BrowserRunning(ctx context.Context) bool {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.CommandContext(ctx, "tasklist", "/FI", "IMAGENAME eq zen.exe", "/NH")
	case "darwin":
		cmd = exec.CommandContext(ctx, "pgrep", "-x", "zen")
	default:
		cmd = exec.CommandContext(ctx, "pgrep", "-x", "zen|zen-bin")
	}
	out, err := cmd.Output()
	if err != nil {
		// pgrep exits 1 when nothing matches; missing tools count as not running.
		logging.Debug().Err(err).Msg("browser process probe found nothing")
		return false
	}
	if runtime.GOOS == "windows" {
		return strings.Contains(strings.ToLower(string(out)), "zen.exe")
	}
	return strings.TrimSpace(string(out)) != ""
}

// EnvProbe lets ZEN_BACKUP_BROWSER_RUNNING override a fallback probe.
// "1" or "true" means running, "0" or "false" means not running.
func EnvProbe(fallback LivenessProbe) LivenessProbe {
	return ProbeFunc(func(ctx context.Context) bool {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("ZEN_BACKUP_BROWSER_RUNNING"))) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
		return fallback.BrowserRunning(ctx)
	})
}
