package window

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMatchesBrowser(t *testing.T) {
	cases := []struct {
		name    string
		goos    string
		process string
		title   string
		want    bool
	}{
		{"windows chrome", "windows", "chrome.exe", "", true},
		{"windows chrome case-insensitive", "windows", "Chrome.EXE", "", true},
		{"windows edge", "windows", "msedge.exe", "", true},
		{"windows explorer", "windows", "explorer.exe", "", false},
		{"windows title ignored", "windows", "notepad.exe", "chrome notes", false},

		{"darwin chrome", "darwin", "Google Chrome", "", true},
		{"darwin safari", "darwin", "Safari", "", true},
		{"darwin exact match only", "darwin", "google chrome", "", false},
		{"darwin terminal", "darwin", "Terminal", "", false},

		{"linux chrome process", "linux", "chrome", "", true},
		{"linux wrapped chromium", "linux", "chromium-browser", "", true},
		{"linux snap firefox via title", "linux", "snap-exec", "Issue #42 - Mozilla Firefox", true},
		{"linux terminal", "linux", "gnome-terminal", "~/src", false},

		{"unknown platform", "plan9", "chrome", "chrome", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, matchesBrowser(tc.goos, tc.process, tc.title))
		})
	}
}

// fakeRunner scripts platform tool invocations keyed by the first argument
// list element that distinguishes them.
func fakeRunner(outputs map[string]string, err error) runner {
	return func(_ context.Context, name string, args ...string) (string, error) {
		if err != nil {
			return "", err
		}
		key := name
		if len(args) > 0 {
			key = name + " " + args[len(args)-1]
		}
		if out, ok := outputs[key]; ok {
			return out, nil
		}
		return "", errors.New("unscripted command: " + key)
	}
}

func TestSystemClassifier_LinuxBrowserByTitle(t *testing.T) {
	c := &SystemClassifier{
		logger: zap.NewNop(),
		goos:   "linux",
		run: fakeRunner(map[string]string{
			"xdotool getwindowname": "Example Domain - Google Chrome",
			"xdotool getwindowpid":  "1", // /proc/1/comm is unreadable or not a browser; title decides
		}, nil),
	}

	info := c.Foreground()
	assert.Equal(t, "Example Domain - Google Chrome", info.Title)
	assert.True(t, info.IsBrowser)
	assert.True(t, c.IsForegroundBrowser())
}

func TestSystemClassifier_LinuxNonBrowser(t *testing.T) {
	c := &SystemClassifier{
		logger: zap.NewNop(),
		goos:   "linux",
		run: fakeRunner(map[string]string{
			"xdotool getwindowname": "vim - main.go",
			"xdotool getwindowpid":  "not-a-pid",
		}, nil),
	}

	info := c.Foreground()
	assert.Equal(t, "vim - main.go", info.Title)
	assert.False(t, info.IsBrowser)
}

func TestSystemClassifier_DarwinBrowser(t *testing.T) {
	c := &SystemClassifier{
		logger: zap.NewNop(),
		goos:   "darwin",
		run: fakeRunner(map[string]string{
			"osascript tell application \"System Events\" to get name of first application process whose frontmost is true": "Safari",
		}, nil),
	}

	info := c.Foreground()
	assert.Equal(t, "Safari", info.Process)
	assert.True(t, info.IsBrowser)
}

func TestSystemClassifier_WindowsBrowser(t *testing.T) {
	fake := func(_ context.Context, name string, _ ...string) (string, error) {
		if name != "powershell" {
			return "", errors.New("unexpected tool " + name)
		}
		return "msedge.exe|New Tab - Microsoft Edge", nil
	}
	c := &SystemClassifier{logger: zap.NewNop(), goos: "windows", run: fake}

	info := c.Foreground()
	assert.Equal(t, "msedge.exe", info.Process)
	assert.Equal(t, "New Tab - Microsoft Edge", info.Title)
	assert.True(t, info.IsBrowser)
}

func TestSystemClassifier_DetectionFailureNeverErrors(t *testing.T) {
	c := &SystemClassifier{
		logger: zap.NewNop(),
		goos:   "linux",
		run:    fakeRunner(nil, errors.New("xdotool: command not found")),
	}

	// Failures degrade to a zero Info: callers route conservatively.
	info := c.Foreground()
	assert.Equal(t, Info{}, info)
	assert.False(t, c.IsForegroundBrowser())
}

func TestSystemClassifier_UnsupportedPlatform(t *testing.T) {
	c := &SystemClassifier{logger: zap.NewNop(), goos: "plan9", run: fakeRunner(nil, nil)}

	assert.Equal(t, Info{}, c.Foreground())
	assert.False(t, c.IsForegroundBrowser())
}
