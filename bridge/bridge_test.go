package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestBridge stands up the full stack: registry, endpoint on an httptest
// server, bridge on top, and a dialed fake peer.
func newTestBridge(t *testing.T) (*Bridge, *Registry, *fakePeer) {
	t.Helper()

	ep, registry, url := newTestEndpoint(t)
	b := New(ep, registry, zap.NewNop(), nil)

	peer := dialPeer(t, url)
	t.Cleanup(peer.close)
	waitConnected(t, ep)

	return b, registry, peer
}

func TestBridge_CallSuccess(t *testing.T) {
	b, registry, peer := newTestBridge(t)

	go func() {
		cmd := peer.readCommand()
		peer.respond(cmd.ID, true, map[string]any{"clicked": true}, "")
	}()

	out := b.Call(context.Background(), "click", map[string]any{"text": "Submit"}, time.Second)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.True(t, out.ResultBool("clicked"))
	assert.Equal(t, 0, registry.Len())
}

func TestBridge_CallFailure(t *testing.T) {
	b, _, peer := newTestBridge(t)

	go func() {
		cmd := peer.readCommand()
		peer.respond(cmd.ID, false, nil, "element not found")
	}()

	out := b.Call(context.Background(), "click", map[string]any{"text": "Nope"}, time.Second)
	assert.Equal(t, StatusFailure, out.Status)
	assert.Equal(t, "element not found", out.Reason)
}

func TestBridge_CallEmptyAction(t *testing.T) {
	b, _, _ := newTestBridge(t)

	out := b.Call(context.Background(), "", nil, time.Second)
	assert.Equal(t, StatusFailure, out.Status)
}

func TestBridge_CallWithoutPeer(t *testing.T) {
	ep, registry, _ := newTestEndpoint(t)
	b := New(ep, registry, zap.NewNop(), nil)

	start := time.Now()
	out := b.Call(context.Background(), "click", nil, 5*time.Second)

	// Disconnected resolves immediately, it never burns the timeout.
	assert.Equal(t, StatusDisconnected, out.Status)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBridge_CallTimeout(t *testing.T) {
	b, registry, peer := newTestBridge(t)

	// The peer reads the command but never answers.
	var cmdID string
	read := make(chan struct{})
	go func() {
		cmd := peer.readCommand()
		cmdID = cmd.ID
		close(read)
	}()

	out := b.Call(context.Background(), "screenshot", nil, 100*time.Millisecond)
	assert.Equal(t, StatusTimeout, out.Status)

	// The slot was abandoned at timeout.
	assert.Equal(t, 0, registry.Len())

	// A response arriving after the timeout is dropped; it must not bleed
	// into the next call.
	<-read
	peer.respond(cmdID, true, map[string]any{"screenshot": "late"}, "")

	go func() {
		cmd := peer.readCommand()
		peer.respond(cmd.ID, true, map[string]any{"pong": true}, "")
	}()
	out = b.Call(context.Background(), "ping", nil, time.Second)
	require.Equal(t, StatusSuccess, out.Status)
	assert.True(t, out.ResultBool("pong"))
	assert.Empty(t, out.ResultString("screenshot"))
}

func TestBridge_CallContextCancelled(t *testing.T) {
	b, registry, peer := newTestBridge(t)

	go peer.readCommand() // consume the command, never answer

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	out := b.Call(ctx, "get_dom", nil, 10*time.Second)
	assert.Equal(t, StatusTimeout, out.Status)
	assert.Equal(t, 0, registry.Len())
}

func TestBridge_CallDisconnectMidFlight(t *testing.T) {
	b, _, peer := newTestBridge(t)

	go func() {
		peer.readCommand()
		peer.close()
	}()

	out := b.Call(context.Background(), "click", map[string]any{"text": "x"}, 5*time.Second)
	assert.Equal(t, StatusDisconnected, out.Status)
}

func TestBridge_ConcurrentCallsOutOfOrder(t *testing.T) {
	b, _, peer := newTestBridge(t)

	// Read both commands first, then answer in reverse order. Correlation
	// IDs must route each response to its own caller.
	go func() {
		first := peer.readCommand()
		second := peer.readCommand()
		peer.respond(second.ID, true, map[string]any{"action": second.Action}, "")
		peer.respond(first.ID, true, map[string]any{"action": first.Action}, "")
	}()

	var wg sync.WaitGroup
	outcomes := make(map[string]Outcome, 2)
	var mu sync.Mutex

	for _, action := range []string{"get_url", "get_dom"} {
		wg.Add(1)
		go func(action string) {
			defer wg.Done()
			out := b.Call(context.Background(), action, nil, 5*time.Second)
			mu.Lock()
			outcomes[action] = out
			mu.Unlock()
		}(action)
	}
	wg.Wait()

	for _, action := range []string{"get_url", "get_dom"} {
		out := outcomes[action]
		require.Equal(t, StatusSuccess, out.Status, "action %s", action)
		assert.Equal(t, action, out.ResultString("action"))
	}
}

func TestBridge_CorrelationIDsAreUnique(t *testing.T) {
	b, _, peer := newTestBridge(t)

	const calls = 5
	ids := make(chan string, calls)
	go func() {
		for i := 0; i < calls; i++ {
			cmd := peer.readCommand()
			ids <- cmd.ID
			peer.respond(cmd.ID, true, nil, "")
		}
	}()

	for i := 0; i < calls; i++ {
		out := b.Call(context.Background(), "ping", nil, time.Second)
		require.Equal(t, StatusSuccess, out.Status)
	}

	seen := make(map[string]bool, calls)
	for i := 0; i < calls; i++ {
		id := <-ids
		require.False(t, seen[id], "duplicate correlation id %s", id)
		seen[id] = true
	}
}

func TestBridge_Ping(t *testing.T) {
	b, _, peer := newTestBridge(t)

	go func() {
		cmd := peer.readCommand()
		assert.Equal(t, "ping", cmd.Action)
		peer.respond(cmd.ID, true, map[string]any{"pong": true}, "")
	}()
	assert.True(t, b.Ping(context.Background()))

	go func() {
		cmd := peer.readCommand()
		peer.respond(cmd.ID, true, map[string]any{}, "")
	}()
	// A success without the pong marker is not a live peer.
	assert.False(t, b.Ping(context.Background()))
}

func TestBridge_ConvenienceParams(t *testing.T) {
	b, _, peer := newTestBridge(t)

	type got struct {
		action string
		params map[string]any
	}
	cmds := make(chan got, 1)
	go func() {
		for i := 0; i < 3; i++ {
			cmd := peer.readCommand()
			cmds <- got{cmd.Action, cmd.Params}
			peer.respond(cmd.ID, true, nil, "")
		}
	}()

	b.Navigate(context.Background(), "https://example.com")
	cmd := <-cmds
	assert.Equal(t, "navigate", cmd.action)
	assert.Equal(t, "https://example.com", cmd.params["url"])

	b.TypeText(context.Background(), "hello", true)
	cmd = <-cmds
	assert.Equal(t, "type", cmd.action)
	assert.Equal(t, "hello", cmd.params["text"])
	assert.Equal(t, true, cmd.params["clear"])

	b.Scroll(context.Background(), "down", 300)
	cmd = <-cmds
	assert.Equal(t, "scroll", cmd.action)
	assert.Equal(t, "down", cmd.params["direction"])
	assert.Equal(t, float64(300), cmd.params["amount"])
}
