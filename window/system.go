package window

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const commandTimeout = 2 * time.Second

// runner executes a platform tool and returns its trimmed stdout. Injected
// so tests can fake the platform.
type runner func(ctx context.Context, name string, args ...string) (string, error)

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// SystemClassifier detects the foreground window with the platform's native
// tooling: xdotool on Linux, osascript on macOS, PowerShell on Windows.
type SystemClassifier struct {
	logger *zap.Logger
	goos   string
	run    runner
}

// NewSystemClassifier creates a classifier for the current platform.
func NewSystemClassifier(logger *zap.Logger) *SystemClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemClassifier{
		logger: logger.With(zap.String("component", "window_classifier")),
		goos:   runtime.GOOS,
		run:    runCommand,
	}
}

// Foreground returns the current foreground window. Never fails.
func (c *SystemClassifier) Foreground() Info {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var info Info
	var err error

	switch c.goos {
	case "linux":
		info, err = c.foregroundLinux(ctx)
	case "darwin":
		info, err = c.foregroundDarwin(ctx)
	case "windows":
		info, err = c.foregroundWindows(ctx)
	default:
		err = fmt.Errorf("unsupported platform %s", c.goos)
	}

	if err != nil {
		c.logger.Warn("foreground window detection failed", zap.Error(err))
		return Info{}
	}

	info.IsBrowser = matchesBrowser(c.goos, info.Process, info.Title)
	return info
}

// IsForegroundBrowser reports whether the foreground application is a browser.
func (c *SystemClassifier) IsForegroundBrowser() bool {
	return c.Foreground().IsBrowser
}

func (c *SystemClassifier) foregroundLinux(ctx context.Context) (Info, error) {
	title, err := c.run(ctx, "xdotool", "getactivewindow", "getwindowname")
	if err != nil {
		return Info{}, err
	}

	// Process name is best-effort; the title alone is often enough to
	// recognize a browser.
	process := ""
	if pidStr, err := c.run(ctx, "xdotool", "getactivewindow", "getwindowpid"); err == nil {
		if pid, err := strconv.Atoi(pidStr); err == nil {
			if comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid)); err == nil {
				process = strings.TrimSpace(string(comm))
			}
		}
	}

	return Info{Title: title, Process: process}, nil
}

func (c *SystemClassifier) foregroundDarwin(ctx context.Context) (Info, error) {
	name, err := c.run(ctx, "osascript", "-e",
		`tell application "System Events" to get name of first application process whose frontmost is true`)
	if err != nil {
		return Info{}, err
	}
	return Info{Title: name, Process: name}, nil
}

func (c *SystemClassifier) foregroundWindows(ctx context.Context) (Info, error) {
	// Resolve the foreground window and its owning process in one
	// PowerShell round-trip via user32.
	script := `Add-Type -TypeDefinition 'using System;using System.Runtime.InteropServices;public class FG{[DllImport("user32.dll")]public static extern IntPtr GetForegroundWindow();[DllImport("user32.dll")]public static extern uint GetWindowThreadProcessId(IntPtr h,out uint pid);}';` +
		`$h=[FG]::GetForegroundWindow();$procId=0;[FG]::GetWindowThreadProcessId($h,[ref]$procId)|Out-Null;` +
		`$p=Get-Process -Id $procId;"$($p.ProcessName).exe|$($p.MainWindowTitle)"`
	out, err := c.run(ctx, "powershell", "-NoProfile", "-Command", script)
	if err != nil {
		return Info{}, err
	}
	process, title, found := strings.Cut(out, "|")
	if !found {
		return Info{}, fmt.Errorf("unexpected powershell output %q", out)
	}
	return Info{Title: title, Process: process}, nil
}
