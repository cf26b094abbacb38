package leosim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRelaySim wires A -- S1 -- B, the "two-satellite relay" of scenario
// 1, with A's table pointing at S1 and S1's table pointing at B.
func buildRelaySim(t *testing.T) (*Simulation, Address, Address) {
	sim := NewSimulation(NewLogger(), ForwardingOptions{UseBackupPath: true})
	require.NoError(t, sim.SetGraph(GraphInput{
		Nodes: []GraphNode{
			{Id: "A", Kind: GroundStation, Town: "Reston"},
			{Id: "S1", Kind: Satellite},
			{Id: "B", Kind: GroundStation, Town: "Dallas"},
		},
		Edges: []GraphEdge{
			{A: "A", B: "S1", WeightKM: 1000},
			{A: "S1", B: "B", WeightKM: 1500},
		},
		ISLDataRateMbps:    1000,
		FeederDataRateMbps: 1000,
	}))

	require.NoError(t, sim.SetSwitchingTables([]*SwitchingTable{
		{Owner: "A", ValidFrom: 0, ValidUntil: 100, Entries: map[NodeId][]NodeId{"B": {"S1"}}},
		{Owner: "S1", ValidFrom: 0, ValidUntil: 100, Entries: map[NodeId][]NodeId{"B": {"B"}}},
	}))

	linkAS1, _ := sim.Topo.GetLink("A", "S1")
	linkS1B, _ := sim.Topo.GetLink("S1", "B")
	srcAddr, _ := sim.Addrs.AddressOf(Device{Node: "A", Link: linkAS1.id})
	dstAddr, _ := sim.Addrs.AddressOf(Device{Node: "B", Link: linkS1B.id})
	return sim, srcAddr, dstAddr
}

func TestScenarioOneTwoSatelliteRelayLatency(t *testing.T) {
	sim, srcAddr, dstAddr := buildRelaySim(t)

	require.NoError(t, sim.SetTraffic([]TrafficSourceConfig{{
		SrcNode: "A", SrcAddr: srcAddr, DstAddr: dstAddr,
		PacketSizeBits: 8192, RateBPS: 1e9, StartTime: 0, Duration: 0,
		AppID: 1,
	}}))

	sim.RunUntil(1)

	key := FlowKey{AppID: 1, SrcAddr: srcAddr, DstAddr: dstAddr}
	fs := sim.Metrics.flows[key]
	require.NotNil(t, fs)
	require.Equal(t, uint64(1), fs.Sent)
	require.Equal(t, uint64(1), fs.Received)

	expected := 8192.0/1e9 + 1000/speedOfLightKmPerSec + 8192.0/1e9 + 1500/speedOfLightKmPerSec
	assert.InDelta(t, expected, fs.MinLatency, 1e-9)
}

func TestR2BackupPathUsedAfterPrimaryFails(t *testing.T) {
	sim := NewSimulation(NewLogger(), ForwardingOptions{UseBackupPath: true})
	require.NoError(t, sim.SetGraph(GraphInput{
		Nodes: []GraphNode{
			{Id: "S1", Kind: Satellite}, {Id: "S2", Kind: Satellite}, {Id: "B", Kind: GroundStation},
		},
		Edges: []GraphEdge{
			{A: "S1", B: "B", WeightKM: 500},
			{A: "S1", B: "S2", WeightKM: 500},
			{A: "S2", B: "B", WeightKM: 500},
		},
		ISLDataRateMbps: 1000, FeederDataRateMbps: 1000,
	}))
	require.NoError(t, sim.SetSwitchingTables([]*SwitchingTable{
		{Owner: "S1", ValidFrom: 0, ValidUntil: 100, Entries: map[NodeId][]NodeId{"B": {"B", "S2"}}},
		{Owner: "S2", ValidFrom: 0, ValidUntil: 100, Entries: map[NodeId][]NodeId{"B": {"B"}}},
	}))
	require.NoError(t, sim.SetEvents([]TopologyEvent{
		{At: 2, Kind: LinkDown, A: "S1", B: "B"},
	}))

	linkS1B, _ := sim.Topo.GetLink("S1", "B")
	srcAddr, _ := sim.Addrs.AddressOf(Device{Node: "S1", Link: linkS1B.id})
	dstAddr, _ := sim.Addrs.AddressOf(Device{Node: "B", Link: linkS1B.id})

	require.NoError(t, sim.SetTraffic([]TrafficSourceConfig{{
		SrcNode: "S1", SrcAddr: srcAddr, DstAddr: dstAddr,
		PacketSizeBits: 1000, RateBPS: 100000, StartTime: 1, Duration: 3,
		AppID: 1,
	}}))

	sim.RunUntil(6)

	key := FlowKey{AppID: 1, SrcAddr: srcAddr, DstAddr: dstAddr}
	fs := sim.Metrics.flows[key]
	require.NotNil(t, fs)
	assert.Greater(t, fs.BackupPathUsed, uint64(0))
	assert.Equal(t, fs.Sent, fs.Received)
}

func TestR3PacketsDropWithoutBackupAfterPrimaryFails(t *testing.T) {
	sim := NewSimulation(NewLogger(), ForwardingOptions{UseBackupPath: false})
	require.NoError(t, sim.SetGraph(GraphInput{
		Nodes: []GraphNode{
			{Id: "S1", Kind: Satellite}, {Id: "S2", Kind: Satellite}, {Id: "B", Kind: GroundStation},
		},
		Edges: []GraphEdge{
			{A: "S1", B: "B", WeightKM: 500},
			{A: "S1", B: "S2", WeightKM: 500},
			{A: "S2", B: "B", WeightKM: 500},
		},
		ISLDataRateMbps: 1000, FeederDataRateMbps: 1000,
	}))
	require.NoError(t, sim.SetSwitchingTables([]*SwitchingTable{
		{Owner: "S1", ValidFrom: 0, ValidUntil: 100, Entries: map[NodeId][]NodeId{"B": {"B", "S2"}}},
		{Owner: "S2", ValidFrom: 0, ValidUntil: 100, Entries: map[NodeId][]NodeId{"B": {"B"}}},
	}))
	require.NoError(t, sim.SetEvents([]TopologyEvent{
		{At: 2, Kind: LinkDown, A: "S1", B: "B"},
	}))

	linkS1B, _ := sim.Topo.GetLink("S1", "B")
	srcAddr, _ := sim.Addrs.AddressOf(Device{Node: "S1", Link: linkS1B.id})
	dstAddr, _ := sim.Addrs.AddressOf(Device{Node: "B", Link: linkS1B.id})

	require.NoError(t, sim.SetTraffic([]TrafficSourceConfig{{
		SrcNode: "S1", SrcAddr: srcAddr, DstAddr: dstAddr,
		PacketSizeBits: 1000, RateBPS: 100000, StartTime: 1, Duration: 3,
		AppID: 1,
	}}))

	sim.RunUntil(6)

	key := FlowKey{AppID: 1, SrcAddr: srcAddr, DstAddr: dstAddr}
	fs := sim.Metrics.flows[key]
	require.NotNil(t, fs)
	assert.Greater(t, fs.totalDropped(), uint64(0))
	assert.Less(t, fs.Received, fs.Sent)
}

func TestSetFailuresDisablesLinkWithinDitherWindow(t *testing.T) {
	sim := NewSimulation(NewLogger(), ForwardingOptions{})
	require.NoError(t, sim.SetGraph(GraphInput{
		Nodes: []GraphNode{{Id: "S1", Kind: Satellite}, {Id: "S2", Kind: Satellite}},
		Edges: []GraphEdge{{A: "S1", B: "S2", WeightKM: 500}},
		ISLDataRateMbps: 1000,
	}))
	require.NoError(t, sim.SetFailures([]TopologyEvent{
		{At: 10, Kind: LinkDown, A: "S1", B: "S2"},
	}))

	sim.Sched.RunUntil(10)
	assert.True(t, sim.Topo.IsActive("S1", "S2"), "link must still be active at the failure's nominal onset time")

	sim.Sched.RunUntil(10 + failureOnsetDitherWindow + 1e-6)
	assert.False(t, sim.Topo.IsActive("S1", "S2"), "link must be disabled once the dithered onset has elapsed")
}

func TestSetDynamicWeightsRecomputesPropagationDelayWithinJitterWindow(t *testing.T) {
	sim := NewSimulation(NewLogger(), ForwardingOptions{})
	require.NoError(t, sim.SetGraph(GraphInput{
		Nodes: []GraphNode{{Id: "S1", Kind: Satellite}, {Id: "S2", Kind: Satellite}},
		Edges: []GraphEdge{{A: "S1", B: "S2", WeightKM: 500}},
		ISLDataRateMbps: 1000,
	}))
	link, present := sim.Topo.GetLink("S1", "S2")
	require.True(t, present)
	initialDelay := link.PropagationDelay()

	require.NoError(t, sim.SetDynamicWeights([]WeightWindow{
		{At: 5, A: "S1", B: "S2", WeightKM: 2000},
	}))

	sim.Sched.RunUntil(5)
	assert.InDelta(t, initialDelay, link.PropagationDelay(), 1e-9, "weight must not refresh before the window opens")

	sim.Sched.RunUntil(5 + dynamicWeightJitterWindow + 1e-6)
	assert.InDelta(t, 2000/speedOfLightKmPerSec, link.PropagationDelay(), 1e-9)
}

func TestScenarioFiveUnknownDestinationDropsAtSource(t *testing.T) {
	sim, srcAddr, _ := buildRelaySim(t)
	unknownAddr := Address(99999)

	require.NoError(t, sim.SetTraffic([]TrafficSourceConfig{{
		SrcNode: "A", SrcAddr: srcAddr, DstAddr: unknownAddr,
		PacketSizeBits: 1000, RateBPS: 100000, StartTime: 0, Duration: 0.001,
		AppID: 2,
	}}))

	sim.RunUntil(1)

	key := FlowKey{AppID: 2, SrcAddr: srcAddr, DstAddr: unknownAddr}
	fs := sim.Metrics.flows[key]
	require.NotNil(t, fs)
	assert.Equal(t, uint64(1), fs.Sent)
	assert.Equal(t, uint64(0), fs.Received)
	assert.Equal(t, uint64(1), fs.ActivelyDroppedByNode["A"])
}
