package leosim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowStatsDeliveryAccounting(t *testing.T) {
	mc := NewMetricsCollector()
	key := FlowKey{AppID: 1, SrcAddr: 10, DstAddr: 20}

	mc.recordSent(key)
	mc.recordSent(key)
	mc.recordDelivered(key, 0.050, 3)
	mc.recordDelivered(key, 0.100, 5)
	mc.recordDrop(key, "satX", NoRoute)

	fs := mc.flows[key]
	assert.Equal(t, uint64(2), fs.Sent)
	assert.Equal(t, uint64(2), fs.Received)
	assert.InDelta(t, 0.050, fs.MinLatency, 1e-9)
	assert.InDelta(t, 0.100, fs.MaxLatency, 1e-9)
	assert.InDelta(t, 0.075, fs.meanLatency(), 1e-9)
	assert.Equal(t, int32(3), fs.MinHopCount)
	assert.Equal(t, uint16(5), fs.MaxHopCount)
	assert.Equal(t, uint64(1), fs.ActivelyDroppedByNode["satX"])
	assert.Equal(t, uint64(1), fs.totalDropped())
}

func TestFlowStatsMinHopCountTracksTrueMinimumAcrossZero(t *testing.T) {
	mc := NewMetricsCollector()
	key := FlowKey{AppID: 1, SrcAddr: 10, DstAddr: 20}

	mc.recordDelivered(key, 0.010, 0)
	mc.recordDelivered(key, 0.010, 4)

	fs := mc.flows[key]
	assert.Equal(t, int32(0), fs.MinHopCount)
	assert.Equal(t, uint16(4), fs.MaxHopCount)
}

func TestFlowStatsLatencySentinelWhenNothingReceived(t *testing.T) {
	fs := newFlowStats()
	assert.Equal(t, -1.0, fs.meanLatency())
}

func TestDeliveryRatio(t *testing.T) {
	mc := NewMetricsCollector()
	key := FlowKey{AppID: 1, SrcAddr: 10, DstAddr: 20}
	for i := 0; i < 4; i++ {
		mc.recordSent(key)
	}
	mc.recordDelivered(key, 0.01, 1)
	mc.recordDelivered(key, 0.01, 1)

	assert.InDelta(t, 50.0, mc.DeliveryRatio(), 1e-9)
}

func TestTextSummaryIncludesFlowAndTotals(t *testing.T) {
	mc := NewMetricsCollector()
	key := FlowKey{AppID: 7, SrcAddr: 1, DstAddr: 2}
	mc.recordSent(key)
	mc.recordDelivered(key, 0.02, 2)

	summary := mc.TextSummary()
	assert.True(t, strings.Contains(summary, "app=7"))
	assert.True(t, strings.Contains(summary, "totals:"))
}

func TestDroppedLocationsFormatting(t *testing.T) {
	assert.Equal(t, "{}", droppedLocations(map[NodeId]uint64{}))
	assert.Equal(t, "{satA:2,satB:1}", droppedLocations(map[NodeId]uint64{"satB": 1, "satA": 2}))
}

func TestDumpDebugProducesYAML(t *testing.T) {
	mc := NewMetricsCollector()
	key := FlowKey{AppID: 1, SrcAddr: 10, DstAddr: 20}
	mc.recordSent(key)

	out, err := mc.DumpDebug()
	assert.NoError(t, err)
	assert.True(t, strings.Contains(out, "flows:"))
}
