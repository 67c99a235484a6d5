package routing

import (
	"fmt"
	"time"

	"github.com/agenthybrid/hybridctl/bridge"
)

// Kind identifies one interactive action the agent can request.
type Kind string

const (
	KindClick       Kind = "click"
	KindType        Kind = "type"
	KindScroll      Kind = "scroll"
	KindGoto        Kind = "goto"
	KindReadContent Kind = "read_content"
	KindScreenshot  Kind = "screenshot"
)

// Route names the path an action was sent down.
type Route string

const (
	RouteDOM         Route = "dom"         // bridge command completed the action
	RouteVisual      Route = "visual"      // fell back to visual grounding
	RouteLauncher    Route = "launcher"    // OS-level browser launch (goto only)
	RouteUnavailable Route = "unavailable" // strict gate returned no result
)

// TypeOptions qualifies a type-text action.
type TypeOptions struct {
	ElementDescription string // target element; empty types into the focused element
	Overwrite          bool   // clear existing content first
	Enter              bool   // press Enter after typing
}

// commandSpec is one row of the decision table: how an action kind maps to a
// bridge command and how its outcome is judged.
type commandSpec struct {
	command   string                        // bridge action name
	succeeded func(out bridge.Outcome) bool // action-specific positive indicator
	settle    time.Duration                 // post-action settle delay on DOM success
}

// commandTable drives the DOM-first dispatch. Click and type require their
// positive indicator in the result payload (the peer reports success even
// when the element was not found); scroll and navigate only need success.
var commandTable = map[Kind]commandSpec{
	KindClick: {
		command:   "click",
		succeeded: func(out bridge.Outcome) bool { return out.OK() && out.ResultBool("clicked") },
		settle:    300 * time.Millisecond,
	},
	KindType: {
		command:   "type",
		succeeded: func(out bridge.Outcome) bool { return out.OK() && out.ResultBool("typed") },
		settle:    200 * time.Millisecond,
	},
	KindScroll: {
		command:   "scroll",
		succeeded: func(out bridge.Outcome) bool { return out.OK() },
		settle:    200 * time.Millisecond,
	},
	KindGoto: {
		command:   "navigate",
		succeeded: func(out bridge.Outcome) bool { return out.OK() },
		settle:    time.Second,
	},
}

// settleInstruction is the completed-marker returned when the DOM path
// already performed the action: the runtime only needs to wait the settle
// delay out.
func settleInstruction(kind Kind, settle time.Duration) string {
	return fmt.Sprintf("import time; time.sleep(%.1f)  # DOM %s completed", settle.Seconds(), kind)
}

// launcherInstruction opens a URL in a new browser window through the OS
// default-browser launcher.
func launcherInstruction(url string) string {
	return fmt.Sprintf("import webbrowser; webbrowser.open(%q)", url)
}
