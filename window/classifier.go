// Package window reports which application owns the foreground window and
// whether it is a web browser. Detection failures are never errors: callers
// get a zero Info, which routes conservatively to the visual path.
package window

import "strings"

// Info describes the foreground window.
type Info struct {
	Title     string
	Process   string
	IsBrowser bool
}

// Classifier answers whether the foreground application is a browser.
type Classifier interface {
	// Foreground returns the current foreground window. It never fails; on
	// detection problems it returns a zero Info (IsBrowser false).
	Foreground() Info

	// IsForegroundBrowser is shorthand for Foreground().IsBrowser.
	IsForegroundBrowser() bool
}

// browserProcesses maps GOOS to the process names of the mainstream
// browsers on that platform.
var browserProcesses = map[string][]string{
	"windows": {
		"chrome.exe", "msedge.exe", "firefox.exe", "brave.exe",
		"opera.exe", "vivaldi.exe", "iexplore.exe",
	},
	"darwin": {
		"Google Chrome", "Microsoft Edge", "Firefox", "Safari",
		"Brave Browser", "Opera", "Vivaldi",
	},
	"linux": {
		"chrome", "chromium", "firefox", "brave", "opera", "vivaldi", "edge",
	},
}

// matchesBrowser reports whether the process (or, on Linux, the window
// title) identifies a known browser on the given platform.
func matchesBrowser(goos, process, title string) bool {
	names, ok := browserProcesses[goos]
	if !ok {
		return false
	}

	switch goos {
	case "darwin":
		// macOS reports localized application names verbatim.
		for _, n := range names {
			if process == n {
				return true
			}
		}
	case "linux":
		// Linux process names are unreliable (wrapper scripts, snaps), so
		// the window title is matched as well.
		p := strings.ToLower(process)
		t := strings.ToLower(title)
		for _, n := range names {
			if strings.Contains(p, n) || strings.Contains(t, n) {
				return true
			}
		}
	default:
		p := strings.ToLower(process)
		for _, n := range names {
			if p == strings.ToLower(n) {
				return true
			}
		}
	}
	return false
}
