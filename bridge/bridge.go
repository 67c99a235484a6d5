package bridge

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/agenthybrid/hybridctl/internal/metrics"
)

// DefaultCallTimeout bounds a command round-trip when the caller passes no
// explicit timeout.
const DefaultCallTimeout = 10 * time.Second

// pingTimeout is deliberately short; ping exists to probe liveness.
const pingTimeout = 2 * time.Second

// Bridge is the synchronous command facade over the endpoint, registry, and
// codec. Multiple goroutines may call it concurrently; correlation IDs are
// allocated atomically and never reused within a process lifetime.
type Bridge struct {
	endpoint *Endpoint
	registry *Registry
	logger   *zap.Logger
	metrics  *metrics.Collector

	nextID int64
}

// New creates a bridge over an endpoint and its registry. The metrics
// collector may be nil.
func New(endpoint *Endpoint, registry *Registry, logger *zap.Logger, collector *metrics.Collector) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		endpoint: endpoint,
		registry: registry,
		logger:   logger.With(zap.String("component", "bridge")),
		metrics:  collector,
	}
}

// Connected reports whether the extension peer is attached.
func (b *Bridge) Connected() bool {
	return b.endpoint.Connected()
}

// Call sends a command to the extension peer and blocks until the matching
// response arrives or the timeout elapses. It returns exactly once, and all
// ordinary failure modes come back as outcome variants:
//
//   - no peer attached: disconnected, immediately
//   - peer never answers within timeout: timeout, and the pending slot is
//     abandoned so a late response cannot complete a later call
//   - peer reports failure: failure with the peer's reason
//   - peer drops mid-flight: disconnected
//
// An empty action is programmer misuse and fails immediately. A zero or
// negative timeout uses DefaultCallTimeout.
func (b *Bridge) Call(ctx context.Context, action string, params map[string]any, timeout time.Duration) Outcome {
	if action == "" {
		return Failure("invalid command: empty action")
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	if !b.endpoint.Connected() {
		return Disconnected()
	}

	id := fmt.Sprintf("cmd-%d", atomic.AddInt64(&b.nextID, 1))
	start := time.Now()

	data, err := EncodeCommand(Command{ID: id, Action: action, Params: params})
	if err != nil {
		return Failure(fmt.Sprintf("encode command: %v", err))
	}

	ch, err := b.registry.Register(id)
	if err != nil {
		// Cannot happen with monotonic IDs; surfaced as failure rather than
		// a hang.
		return Failure(err.Error())
	}
	if b.metrics != nil {
		b.metrics.SetPendingCalls(b.registry.Len())
	}

	if err := b.endpoint.Send(ctx, data); err != nil {
		b.registry.Remove(id)
		b.logger.Debug("command send failed",
			zap.String("id", id),
			zap.String("action", action),
			zap.Error(err))
		return b.record(action, Disconnected(), start)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		return b.record(action, out, start)

	case <-timer.C:
		// Abandon the slot so a late response is logged and dropped instead
		// of resolving a call nobody is waiting on.
		b.registry.Remove(id)
		b.logger.Warn("command timed out",
			zap.String("id", id),
			zap.String("action", action),
			zap.Duration("timeout", timeout))
		return b.record(action, Timeout(), start)

	case <-ctx.Done():
		b.registry.Remove(id)
		b.logger.Debug("command abandoned by caller",
			zap.String("id", id),
			zap.String("action", action),
			zap.Error(ctx.Err()))
		return b.record(action, Timeout(), start)
	}
}

func (b *Bridge) record(action string, out Outcome, start time.Time) Outcome {
	if b.metrics != nil {
		b.metrics.RecordCommand(action, string(out.Status), time.Since(start))
		b.metrics.SetPendingCalls(b.registry.Len())
	}
	return out
}

// Navigate asks the extension to load a URL in the active tab.
func (b *Bridge) Navigate(ctx context.Context, url string) Outcome {
	return b.Call(ctx, "navigate", map[string]any{"url": url}, 0)
}

// Click asks the extension to click the element matching the given visible
// text. An empty text clicks nothing and the peer reports a failure.
func (b *Bridge) Click(ctx context.Context, text string) Outcome {
	return b.Call(ctx, "click", map[string]any{"text": text}, 0)
}

// TypeText asks the extension to type into the focused (or matched) element.
// clear replaces the existing content instead of appending.
func (b *Bridge) TypeText(ctx context.Context, text string, clear bool) Outcome {
	return b.Call(ctx, "type", map[string]any{"text": text, "clear": clear}, 0)
}

// Scroll scrolls the page by the given pixel amount in the given direction.
func (b *Bridge) Scroll(ctx context.Context, direction string, amount int) Outcome {
	return b.Call(ctx, "scroll", map[string]any{"direction": direction, "amount": amount}, 0)
}

// Screenshot captures the visible tab; the result carries a base64 image.
func (b *Bridge) Screenshot(ctx context.Context) Outcome {
	return b.Call(ctx, "screenshot", nil, 0)
}

// GetDOM fetches the page content. simplified trims it to interactive
// elements and text.
func (b *Bridge) GetDOM(ctx context.Context, simplified bool) Outcome {
	return b.Call(ctx, "get_dom", map[string]any{"simplified": simplified}, 0)
}

// FindElement looks an element up by visible text without acting on it.
func (b *Bridge) FindElement(ctx context.Context, text string) Outcome {
	return b.Call(ctx, "find_element", map[string]any{"text": text}, 0)
}

// GetURL reports the active tab's URL.
func (b *Bridge) GetURL(ctx context.Context) Outcome {
	return b.Call(ctx, "get_url", nil, 0)
}

// Ping probes whether the extension is attached and responsive.
func (b *Bridge) Ping(ctx context.Context) bool {
	out := b.Call(ctx, "ping", nil, pingTimeout)
	return out.OK() && out.ResultBool("pong")
}
