package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Notifier sends desktop notifications.
type Notifier struct {
	Enabled bool
}

// Send sends a desktop notification.
// On macOS it uses osascript and on Linux notify-send when installed.
// Elsewhere this is a no-op.
func (n *Notifier) Send(title, message string) error {
	if n == nil || !n.Enabled {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		return run(macOSCommand(title, message))
	case "linux":
		if _, err := exec.LookPath("notify-send"); err != nil {
			return nil
		}
		return run(exec.Command("notify-send", title, message))
	default:
		return nil
	}
}

func macOSCommand(title, message string) *exec.Cmd {
	title = strings.ReplaceAll(title, `"`, `\"`)
	message = strings.ReplaceAll(message, `"`, `\"`)
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	return exec.Command("osascript", "-e", script)
}

func run(cmd *exec.Cmd) error {
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Counts is the size of each roadmap bucket.
type Counts struct {
	Immediate int
	Planned   int
	Deferred  int
}

// FormatRoadmapChange formats a notification for a rebuilt roadmap. ok is
// false when the bucket sizes did not move.
func FormatRoadmapChange(source string, before, after Counts) (title, message string, ok bool) {
	if before == after {
		return "", "", false
	}
	switch {
	case after.Immediate > before.Immediate:
		title = "cisoplan: new immediate work"
	case after.Immediate < before.Immediate:
		title = "cisoplan: immediate work done"
	default:
		title = "cisoplan: roadmap changed"
	}
	message = fmt.Sprintf("%s: %d immediate, %d planned, %d deferred (was %d/%d/%d)",
		source, after.Immediate, after.Planned, after.Deferred,
		before.Immediate, before.Planned, before.Deferred)
	return title, message, true
}
