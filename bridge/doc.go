/*
Package bridge implements the command channel between the agent and the
browser extension peer.

The extension dials into a WebSocket listener owned by the Endpoint
(default ws://127.0.0.1:9333). Callers issue named commands through the
Bridge facade and block for the correlated response:

	registry := bridge.NewRegistry(logger)
	endpoint := bridge.NewEndpoint(bridge.DefaultEndpointConfig(), registry, logger, nil)
	br := bridge.New(endpoint, registry, logger, nil)

	if err := endpoint.Start(ctx); err != nil { ... }
	out := br.Click(ctx, "Sign in button")

Every command produces exactly one Outcome: success, failure, timeout, or
disconnected. Ordinary transport problems never surface as errors: a
disconnected peer yields a disconnected Outcome immediately and a silent
peer yields a timeout Outcome after the bound elapses.

Concurrency model: one background receive loop per peer connection delivers
responses into the pending-call Registry; any number of caller goroutines
may invoke Call concurrently. The Registry is the only structure shared
between the two sides. Responses are matched by correlation ID, so
out-of-order replies from the peer resolve the right caller.
*/
package bridge
