// Package routing decides, per requested action, whether to drive the
// browser through the DOM bridge or fall back to visual grounding, and
// interprets bridge outcomes into completed markers or fallback
// instructions. All bridge failure modes are recovered here; callers never
// see a transport error.
package routing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/agenthybrid/hybridctl/bridge"
	"github.com/agenthybrid/hybridctl/internal/metrics"
	"github.com/agenthybrid/hybridctl/visual"
	"github.com/agenthybrid/hybridctl/window"
)

// DefaultCallTimeout bounds each DOM attempt; past it the engine falls back
// rather than keeping the agent waiting.
const DefaultCallTimeout = 10 * time.Second

// BridgeCaller is the slice of the command bridge the engine consumes.
type BridgeCaller interface {
	Connected() bool
	Call(ctx context.Context, action string, params map[string]any, timeout time.Duration) bridge.Outcome
}

// Recorder receives one record per routed action. Optional.
type Recorder interface {
	Record(action, route, status string, duration time.Duration)
}

// Engine is the routing decision engine. Stateless per call; safe for
// concurrent use.
type Engine struct {
	bridge   BridgeCaller
	windows  window.Classifier
	visual   visual.Executor
	recorder Recorder
	metrics  *metrics.Collector
	tracer   trace.Tracer
	logger   *zap.Logger
	timeout  time.Duration
}

// Option configures the engine.
type Option func(*Engine)

// WithTimeout sets the per-command DOM attempt bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRecorder attaches an action history recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithMetrics attaches the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger.With(zap.String("component", "routing_engine"))
		}
	}
}

// NewEngine creates a routing engine over the bridge and its collaborators.
func NewEngine(b BridgeCaller, w window.Classifier, v visual.Executor, opts ...Option) *Engine {
	e := &Engine{
		bridge:  b,
		windows: w,
		visual:  v,
		tracer:  otel.Tracer("hybridctl/routing"),
		logger:  zap.NewNop(),
		timeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// eligible reports whether the DOM path may be attempted at all: the peer
// must be attached and the foreground application must be a browser.
func (e *Engine) eligible() bool {
	return e.bridge.Connected() && e.windows.IsForegroundBrowser()
}

// Click clicks the element matching the description. DOM-first when
// eligible; otherwise (or when the element is not found, the peer fails, or
// the call times out) the visual executor is invoked with the original
// parameters.
func (e *Engine) Click(ctx context.Context, elementDescription string) string {
	instruction, _ := e.perform(ctx, KindClick,
		map[string]any{"text": elementDescription},
		visual.Params{"element_description": elementDescription})
	return instruction
}

// Type types text into the described (or focused) element.
func (e *Engine) Type(ctx context.Context, text string, opts TypeOptions) string {
	ctx, span := e.startSpan(ctx, KindType)
	defer span.End()
	start := time.Now()

	visualParams := visual.Params{
		"text":                text,
		"element_description": opts.ElementDescription,
		"overwrite":           opts.Overwrite,
		"enter":               opts.Enter,
	}

	if !e.eligible() {
		return e.fallback(KindType, visualParams, "not_attempted", start, span)
	}

	// Locating the target is part of the DOM attempt: an element the
	// extension cannot find means the visual path has to take over.
	if opts.ElementDescription != "" {
		found := e.bridge.Call(ctx, "find_element",
			map[string]any{"text": opts.ElementDescription}, e.timeout)
		if !found.OK() || !found.ResultBool("found") {
			return e.fallback(KindType, visualParams, fallbackStatus(found), start, span)
		}
	}

	spec := commandTable[KindType]
	out := e.bridge.Call(ctx, spec.command,
		map[string]any{"text": text, "clear": opts.Overwrite}, e.timeout)
	if !spec.succeeded(out) {
		return e.fallback(KindType, visualParams, fallbackStatus(out), start, span)
	}

	if opts.Enter {
		// Follow-up keypress rides the same channel; its outcome does not
		// demote the already-typed text to the visual path.
		e.bridge.Call(ctx, "type", map[string]any{"text": "", "pressEnter": true}, e.timeout)
	}

	return e.completed(KindType, spec, out, start, span)
}

// Scroll scrolls the page in the given direction. amount is in wheel steps;
// the DOM path converts it to pixels.
func (e *Engine) Scroll(ctx context.Context, elementDescription, direction string, amount int) string {
	instruction, _ := e.perform(ctx, KindScroll,
		map[string]any{"direction": direction, "amount": amount * 100},
		visual.Params{
			"element_description": elementDescription,
			"direction":           direction,
			"amount":              amount,
		})
	return instruction
}

// Goto navigates to a URL. Navigation never depends on visual grounding:
// when the bridge cannot serve it, the engine instructs the OS default
// browser launcher to open the address in a new window.
func (e *Engine) Goto(ctx context.Context, url string) string {
	ctx, span := e.startSpan(ctx, KindGoto)
	defer span.End()
	start := time.Now()

	spec := commandTable[KindGoto]
	status := "not_attempted"
	if e.bridge.Connected() {
		out := e.bridge.Call(ctx, spec.command, map[string]any{"url": url}, e.timeout)
		if spec.succeeded(out) {
			return e.completed(KindGoto, spec, out, start, span)
		}
		status = string(out.Status)
		e.logger.Info("DOM navigation failed, opening via launcher",
			zap.String("url", url),
			zap.String("status", status))
	}

	e.recordDecision(KindGoto, RouteLauncher, status, start, span)
	return launcherInstruction(url)
}

// ReadContent fetches the current page content through the DOM. It is a
// strict gate: when the foreground application is not a browser (or no peer
// is attached) it reports unavailable rather than risking stale content
// from a window the user is not looking at.
func (e *Engine) ReadContent(ctx context.Context) (map[string]any, bool) {
	ctx, span := e.startSpan(ctx, KindReadContent)
	defer span.End()
	start := time.Now()

	if !e.eligible() {
		e.recordDecision(KindReadContent, RouteUnavailable, "not_attempted", start, span)
		return nil, false
	}

	out := e.bridge.Call(ctx, "get_dom", map[string]any{"simplified": true}, e.timeout)
	if !out.OK() {
		e.recordDecision(KindReadContent, RouteUnavailable, string(out.Status), start, span)
		return nil, false
	}

	e.recordDecision(KindReadContent, RouteDOM, string(out.Status), start, span)
	return out.Result, true
}

// Screenshot captures the visible tab through the extension. Gated the same
// way as ReadContent; returns the base64 image.
func (e *Engine) Screenshot(ctx context.Context) (string, bool) {
	ctx, span := e.startSpan(ctx, KindScreenshot)
	defer span.End()
	start := time.Now()

	if !e.eligible() {
		e.recordDecision(KindScreenshot, RouteUnavailable, "not_attempted", start, span)
		return "", false
	}

	out := e.bridge.Call(ctx, "screenshot", nil, e.timeout)
	if !out.OK() {
		e.recordDecision(KindScreenshot, RouteUnavailable, string(out.Status), start, span)
		return "", false
	}

	e.recordDecision(KindScreenshot, RouteDOM, string(out.Status), start, span)
	return out.ResultString("screenshot"), true
}

// perform runs the decision table for the plain one-command actions.
func (e *Engine) perform(ctx context.Context, kind Kind, bridgeParams map[string]any, visualParams visual.Params) (string, bool) {
	ctx, span := e.startSpan(ctx, kind)
	defer span.End()
	start := time.Now()

	if !e.eligible() {
		return e.fallback(kind, visualParams, "not_attempted", start, span), false
	}

	spec := commandTable[kind]
	out := e.bridge.Call(ctx, spec.command, bridgeParams, e.timeout)
	if !spec.succeeded(out) {
		return e.fallback(kind, visualParams, fallbackStatus(out), start, span), false
	}

	return e.completed(kind, spec, out, start, span), true
}

// fallbackStatus names why a DOM attempt handed over: transport outcomes
// keep their status; a successful round-trip without the action's positive
// indicator means the element was not found, and recording it as "success"
// would contradict the fallback in the audit trail.
func fallbackStatus(out bridge.Outcome) string {
	if out.OK() {
		return "not_found"
	}
	return string(out.Status)
}

// completed records a DOM success and returns its settle instruction.
func (e *Engine) completed(kind Kind, spec commandSpec, out bridge.Outcome, start time.Time, span trace.Span) string {
	e.logger.Info("action completed via DOM",
		zap.String("action", string(kind)),
		zap.Duration("took", time.Since(start)))
	e.recordDecision(kind, RouteDOM, string(out.Status), start, span)
	return settleInstruction(kind, spec.settle)
}

// fallback records the decision and hands the original parameters to the
// visual executor.
func (e *Engine) fallback(kind Kind, params visual.Params, status string, start time.Time, span trace.Span) string {
	e.logger.Info("falling back to visual grounding",
		zap.String("action", string(kind)),
		zap.String("bridge_status", status))
	e.recordDecision(kind, RouteVisual, status, start, span)
	return e.visual.Perform(string(kind), params)
}

func (e *Engine) startSpan(ctx context.Context, kind Kind) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "routing."+string(kind),
		trace.WithAttributes(attribute.String("action", string(kind))))
}

func (e *Engine) recordDecision(kind Kind, route Route, status string, start time.Time, span trace.Span) {
	span.SetAttributes(
		attribute.String("route", string(route)),
		attribute.String("bridge_status", status),
	)
	if e.metrics != nil {
		e.metrics.RecordRouteDecision(string(kind), string(route))
	}
	if e.recorder != nil {
		e.recorder.Record(string(kind), string(route), status, time.Since(start))
	}
}
