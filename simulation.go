package leosim

// simulation.go is the per-run context that owns every other component,
// through the setter sequence SetGraph, SetSwitchingTables, SetEvents,
// SetFailures, SetDynamicWeights, SetTraffic, then RunUntil, then
// Collect. This replaces a package-level singleton network state with a
// plain struct — a process can hold more than one Simulation at once
// (e.g. one per failure scenario in a batch run).

import (
	"fmt"

	"github.com/iti/rngstream"
)

// dynamicWeightJitterWindow bounds the random jitter added to each
// dynamic-weight refresh window's start time, so a batch of windows sharing
// one nominal instant don't all recompute their link's propagation delay in
// the same scheduler tick.
const dynamicWeightJitterWindow = 0.05 // seconds

// failureOnsetDitherWindow bounds the random sub-second dither added to
// each injected failure-scenario event's onset time, for the same reason.
const failureOnsetDitherWindow = 0.3 // seconds

// TopologyEventKind distinguishes LINK_UP from LINK_DOWN in the Events
// and Failures streams.
type TopologyEventKind int

const (
	LinkUp TopologyEventKind = iota
	LinkDown
)

// TopologyEvent is one timestamped LINK_UP/LINK_DOWN entry. Events and
// Failures are two independent streams of this same shape.
type TopologyEvent struct {
	At       float64
	Kind     TopologyEventKind
	A, B     NodeId
	WeightKM float64
}

// WeightWindow is one per-validity-window edge weight refresh
// (DynamicWeights input).
type WeightWindow struct {
	At       float64
	A, B     NodeId
	WeightKM float64
}

// GraphNode is one node-list entry of the Graph input.
type GraphNode struct {
	Id         NodeId
	Kind       NodeKind
	OrbitIndex int
	Town       string
}

// GraphEdge is one initial-edge-set entry of the Graph input.
type GraphEdge struct {
	A, B     NodeId
	WeightKM float64
}

// GraphInput bundles the node list, initial edge set, and global data
// rates under one "Graph" input.
type GraphInput struct {
	Nodes              []GraphNode
	Edges              []GraphEdge
	ISLDataRateMbps    float64
	FeederDataRateMbps float64
}

// Simulation owns every component for one run.
type Simulation struct {
	Sched   *Scheduler
	Nodes   *NodeArena
	Addrs   *AddressBook
	Topo    *TopologyController
	Tables  *RoutingTableStore
	Metrics *MetricsCollector
	Logger  *Logger
	Opts    ForwardingOptions

	engines   map[NodeId]*ForwardingEngine
	sources   []*TrafficSource
	endpoints map[FlowKey]flowEndpoints

	weightJitterRNG  *rngstream.RngStream
	failureDitherRNG *rngstream.RngStream
}

// NewSimulation constructs an empty Simulation. opts carries the
// use_backup_path/simple_loop_avoidance config options; logger may be nil
// (a nil Logger silently discards).
func NewSimulation(logger *Logger, opts ForwardingOptions) *Simulation {
	return &Simulation{
		Sched:     NewScheduler(),
		Nodes:     NewNodeArena(),
		Addrs:     NewAddressBook(),
		Tables:    NewRoutingTableStore(),
		Metrics:   NewMetricsCollector(),
		Logger:    logger,
		Opts:      opts,
		engines:   make(map[NodeId]*ForwardingEngine),
		endpoints: make(map[FlowKey]flowEndpoints),

		weightJitterRNG:  rngstream.New("dynamic-weight-jitter"),
		failureDitherRNG: rngstream.New("failure-onset-dither"),
	}
}

// SetGraph registers every node and every initial edge, and constructs the
// TopologyController with the global ISL/feeder data rates. Initial edges
// are brought up active immediately, at their given weight: the initial
// edge set is the network's starting state, distinct from a scheduled
// LINK_UP bringing up a link that starts inactive.
func (sim *Simulation) SetGraph(g GraphInput) error {
	for _, n := range g.Nodes {
		var err error
		switch n.Kind {
		case Satellite:
			err = sim.Nodes.AddSatellite(n.Id, n.OrbitIndex)
		case GroundStation:
			err = sim.Nodes.AddGroundStation(n.Id, n.Town)
		default:
			err = newConfigError("SetGraph", "unknown node kind for %q", n.Id)
		}
		if err != nil {
			return err
		}
	}

	sim.Topo = NewTopologyController(sim.Addrs, sim.Logger, sim.Sched,
		g.ISLDataRateMbps*1e6, g.FeederDataRateMbps*1e6)

	for _, e := range g.Edges {
		if _, err := sim.Topo.EnsureLink(sim.Nodes, e.A, e.B); err != nil {
			return err
		}
		sim.Topo.EnableLink(e.A, e.B, e.WeightKM)
	}
	return nil
}

// SetSwitchingTables loads every node's time-partitioned tables. A table
// whose interval overlaps (rather than abuts) another of the same owner's
// is a ConfigError; one with the same ValidFrom replaces the earlier one.
func (sim *Simulation) SetSwitchingTables(tables []*SwitchingTable) error {
	for _, t := range tables {
		if !sim.Nodes.Has(t.Owner) {
			return newConfigError("SetSwitchingTables", "unknown owner %q", t.Owner)
		}
		for _, existing := range sim.Tables.tables[t.Owner] {
			if existing.ValidFrom != t.ValidFrom && t.ValidFrom < existing.ValidUntil && existing.ValidFrom < t.ValidUntil {
				return newConfigError("SetSwitchingTables", "table for %q valid over [%g, %g] overlaps [%g, %g]",
					t.Owner, t.ValidFrom, t.ValidUntil, existing.ValidFrom, existing.ValidUntil)
			}
		}
		sim.Tables.Insert(t)
	}
	return nil
}

// SetEvents registers the Events stream: scheduled LINK_UP/LINK_DOWN
// pairs. Any endpoint pair not already known is created inactive first,
// since the controller needs the union set of all links that will ever
// exist.
func (sim *Simulation) SetEvents(events []TopologyEvent) error {
	return sim.registerTopologyEvents(events, false)
}

// SetFailures registers the Failures stream, through the identical code
// path as Events plus one difference: each onset time is perturbed by a
// randomized sub-second dither, so an injected batch of failures doesn't
// land on exactly one scheduler tick.
func (sim *Simulation) SetFailures(failures []TopologyEvent) error {
	return sim.registerTopologyEvents(failures, true)
}

func (sim *Simulation) registerTopologyEvents(events []TopologyEvent, dither bool) error {
	for _, ev := range events {
		if _, err := sim.Topo.EnsureLink(sim.Nodes, ev.A, ev.B); err != nil {
			return err
		}
		ev := ev
		at := ev.At
		if dither {
			at += sim.failureDitherRNG.RandU01() * failureOnsetDitherWindow
		}
		switch ev.Kind {
		case LinkUp:
			sim.Sched.ScheduleAt(at, func() { sim.Topo.EnableLink(ev.A, ev.B, ev.WeightKM) })
		case LinkDown:
			sim.Sched.ScheduleAt(at, func() { sim.Topo.DisableLink(ev.A, ev.B) })
		default:
			return newConfigError("SetEvents", "unknown event kind for %q/%q", ev.A, ev.B)
		}
	}
	return nil
}

// SetDynamicWeights registers per-window weight refreshes: at each
// window's start time, plus a small random jitter, UpdateWeight recomputes
// propagation_delay without touching activity.
func (sim *Simulation) SetDynamicWeights(windows []WeightWindow) error {
	for _, w := range windows {
		if _, err := sim.Topo.EnsureLink(sim.Nodes, w.A, w.B); err != nil {
			return err
		}
		w := w
		at := w.At + sim.weightJitterRNG.RandU01()*dynamicWeightJitterWindow
		sim.Sched.ScheduleAt(at, func() { sim.Topo.UpdateWeight(w.A, w.B, w.WeightKM) })
	}
	return nil
}

// SetTraffic registers every TrafficSource and its flow's node/town
// labels for CSV output.
func (sim *Simulation) SetTraffic(cfgs []TrafficSourceConfig) error {
	for _, cfg := range cfgs {
		if !sim.Nodes.Has(cfg.SrcNode) {
			return newConfigError("SetTraffic", "unknown source node %q", cfg.SrcNode)
		}
		// dstAddr is allowed to name no known owner: a traffic entry aimed
		// at an unknown address is accepted here and dropped with NoRoute
		// at resolve time, not rejected at setup.
		dstNode, _ := sim.Addrs.OwnerOf(cfg.DstAddr)

		key := FlowKey{AppID: cfg.AppID, SrcAddr: cfg.SrcAddr, DstAddr: cfg.DstAddr}
		sim.endpoints[key] = flowEndpoints{
			srcNode: cfg.SrcNode, dstNode: dstNode,
			srcTown: sim.Nodes.Town(cfg.SrcNode), dstTown: sim.Nodes.Town(dstNode),
		}

		src := NewTrafficSource(cfg, sim)
		sim.sources = append(sim.sources, src)
	}
	return nil
}

// engineFor returns node's ForwardingEngine, constructing it on first use.
func (sim *Simulation) engineFor(node NodeId) *ForwardingEngine {
	eng, present := sim.engines[node]
	if !present {
		eng = NewForwardingEngine(node, sim.Topo, sim.Tables, sim.Addrs, sim.Metrics, sim.Sched, sim.Opts, sim.Logger)
		sim.engines[node] = eng
	}
	return eng
}

// dispatch carries out a Forward decision: the packet joins the egress
// link's FIFO serializer, and once its transmission slot completes, an
// arrival event fires propagation_delay later that hands the packet to
// RouteInput on the far endpoint. DeliverLocal and Drop decisions were
// already fully accounted for inside resolve and need no further action
// here.
func (sim *Simulation) dispatch(fromNode NodeId, pkt *Packet, decision Decision) {
	if decision.Kind != Forward {
		return
	}

	link := decision.Link
	serviceTime := float64(pkt.SizeBits) / link.DataRateBPS()
	toNode := link.other(fromNode)
	ingressLink := link.id
	dstAddr := decision.NextHopAddr

	link.serializer.Submit(serviceTime, func() {
		sim.Sched.Schedule(link.PropagationDelay(), func() {
			sim.deliverAtNextHop(toNode, pkt, ingressLink, dstAddr)
		})
	})
}

// deliverAtNextHop hands an arriving packet to the far endpoint's
// RouteInput. It runs unconditionally even if the link has since gone
// inactive: a packet already in flight was committed at transmission
// time and is still delivered.
func (sim *Simulation) deliverAtNextHop(node NodeId, pkt *Packet, ingressLink LinkId, dstAddr Address) {
	engine := sim.engineFor(node)
	decision := engine.RouteInput(pkt, dstAddr, ingressLink)
	sim.dispatch(node, pkt, decision)
}

// RunUntil starts every TrafficSource and runs the Scheduler to stop (the
// stop_time config option).
func (sim *Simulation) RunUntil(stop float64) {
	for _, src := range sim.sources {
		src.Start()
	}
	sim.Sched.RunUntil(stop)
}

// Collect returns the MetricsCollector holding every flow's stats. Callers
// read it only after the run ends (single-owner model).
func (sim *Simulation) Collect() *MetricsCollector {
	return sim.Metrics
}

// Overruns returns the ShapingOverrun for every traffic source whose final
// window ended with a partial interarrival suppressed rather than sent.
// Read it only after RunUntil returns.
func (sim *Simulation) Overruns() []*ShapingOverrun {
	var overruns []*ShapingOverrun
	for _, src := range sim.sources {
		if o := src.Overrun(); o != nil {
			overruns = append(overruns, o)
		}
	}
	return overruns
}

// WriteOutputs renders all three output artifacts: returns the text
// summary, writes csvPath if non-empty, and appends totalsPath if
// non-empty.
func (sim *Simulation) WriteOutputs(csvPath, totalsPath, run, failureScenario string) (string, error) {
	summary := sim.Metrics.TextSummary()

	if csvPath != "" {
		if err := sim.Metrics.WriteCSV(csvPath, sim.endpoints); err != nil {
			return summary, fmt.Errorf("write csv: %w", err)
		}
	}
	if totalsPath != "" {
		var sent, received uint64
		for _, fs := range sim.Metrics.flows {
			sent += fs.Sent
			received += fs.Received
		}
		row := TotalsRow{Run: run, FailureScenario: failureScenario, TotalPacketsSent: sent, TotalPacketsReceived: received}
		if err := AppendTotalsRow(totalsPath, row); err != nil {
			return summary, fmt.Errorf("append totals: %w", err)
		}
	}
	return summary, nil
}
