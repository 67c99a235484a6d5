package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.commandsTotal)
	assert.NotNil(t, collector.commandDuration)
	assert.NotNil(t, collector.connectionsTotal)
	assert.NotNil(t, collector.framesTotal)
	assert.NotNil(t, collector.routeDecisionsTotal)
}

func TestCollector_RecordCommand(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordCommand("click", "success", 120*time.Millisecond)
	collector.RecordCommand("click", "success", 80*time.Millisecond)
	collector.RecordCommand("click", "timeout", 10*time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.commandsTotal.WithLabelValues("click", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.commandsTotal.WithLabelValues("click", "timeout")))
}

func TestCollector_RecordConnectionAndFrames(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordConnection("connected")
	collector.RecordConnection("disconnected")
	collector.RecordFrame("response")
	collector.RecordFrame("malformed")
	collector.RecordLateResponse()
	collector.SetPendingCalls(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.connectionsTotal.WithLabelValues("connected")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.framesTotal.WithLabelValues("malformed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.lateResponsesTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(collector.pendingCallsCurrent))
}

func TestCollector_RecordRouteDecision(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordRouteDecision("click", "dom")
	collector.RecordRouteDecision("click", "visual")
	collector.RecordRouteDecision("goto", "launcher")

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.routeDecisionsTotal.WithLabelValues("click", "dom")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.routeDecisionsTotal.WithLabelValues("goto", "launcher")))
}
