package platform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/prometheas/zen-backup/internal/logging"
)

// NotificationLogName is written next to the backup root for every
// notification, whether or not a desktop backend delivered it.
const NotificationLogName = "notifications.log"

// Notifier delivers a user-facing alert. Failures are never fatal.
type Notifier interface {
	Notify(ctx context.Context, title, message string)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, string) {}

// DesktopNotifier sends notifications through the host notification tool
// and records them in notifications.log under Dir.
type DesktopNotifier struct {
	Dir string
	Now func() time.Time

	// run executes the backend command; replaced in tests.
	run func(ctx context.Context, name string, args ...string) error
}

// NewDesktopNotifier returns a notifier logging under dir.
func NewDesktopNotifier(dir string) *DesktopNotifier {
	return &DesktopNotifier{
		Dir: dir,
		Now: time.Now,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

func (n *DesktopNotifier) Notify(ctx context.Context, title, message string) {
	backend := "none"
	if name, args := command(title, message); name != "" {
		if _, err := exec.LookPath(name); err == nil {
			if err := n.run(ctx, name, args...); err != nil {
				logging.Warn().Err(err).Str("backend", name).Msg("notification failed")
			} else {
				backend = name
			}
		}
	}
	n.record(backend, title, message)
}

func (n *DesktopNotifier) record(backend, title, message string) {
	if n.Dir == "" {
		return
	}
	if err := os.MkdirAll(n.Dir, 0755); err != nil {
		logging.Warn().Err(err).Msg("failed to create notification log directory")
		return
	}
	f, err := os.OpenFile(filepath.Join(n.Dir, NotificationLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to open notification log")
		return
	}
	defer f.Close()

	ts := n.Now().UTC().Format(time.RFC3339)
	if _, err := fmt.Fprintf(f, "[%s] %s (%s): %s :: %s\n", ts, runtime.GOOS, backend, title, message); err != nil {
		logging.Warn().Err(err).Msg("failed to write notification log")
	}
}

func command(title, message string) (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleQuote(message), appleQuote(title))
		return "osascript", []string{"-e", script}
	case "linux":
		return "notify-send", []string{title, message}
	}
	return "", nil
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
