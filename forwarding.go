package leosim

// forwarding.go is the heart of the simulator: per-node address
// resolution, time-partitioned table lookup, and backup-path / loop-
// avoidance next-hop selection. RouteOutput and RouteInput share one
// internal resolve, matching the single GetNextHopForDestination a
// switching-layer forwarder exposes, generalized with backup-path and
// loop-avoidance policies layered on top of it.

// DecisionKind enumerates what a forwarding decision resolved to.
type DecisionKind int

const (
	DeliverLocal DecisionKind = iota
	Forward
	Drop
)

// Decision is the outcome of resolving a packet's next hop at one node.
type Decision struct {
	Kind        DecisionKind
	Link        *Link
	NextHopAddr Address
	Reason      DropReason
}

// ForwardingOptions holds the two forwarding policy switches.
type ForwardingOptions struct {
	UseBackupPath       bool
	SimpleLoopAvoidance bool
}

// ForwardingEngine runs logically on one node, resolving destinations
// through the RoutingTableStore and TopologyController shared by the
// whole Simulation.
type ForwardingEngine struct {
	node     NodeId
	topo     *TopologyController
	tables   *RoutingTableStore
	addrs    *AddressBook
	metrics  *MetricsCollector
	sched    *Scheduler
	opts     ForwardingOptions
	logger   *Logger
}

// NewForwardingEngine constructs the engine for one node.
func NewForwardingEngine(node NodeId, topo *TopologyController, tables *RoutingTableStore,
	addrs *AddressBook, metrics *MetricsCollector, sched *Scheduler, opts ForwardingOptions, logger *Logger) *ForwardingEngine {
	return &ForwardingEngine{
		node: node, topo: topo, tables: tables, addrs: addrs,
		metrics: metrics, sched: sched, opts: opts, logger: logger,
	}
}

// RouteOutput resolves a packet whose origin is this node.
func (fe *ForwardingEngine) RouteOutput(pkt *Packet, dstAddr Address) Decision {
	return fe.resolve(pkt, dstAddr, nil, true)
}

// RouteInput resolves a packet that just arrived from a neighbor over
// ingressLink.
func (fe *ForwardingEngine) RouteInput(pkt *Packet, dstAddr Address, ingressLink LinkId) Decision {
	return fe.resolve(pkt, dstAddr, &ingressLink, false)
}

func (fe *ForwardingEngine) resolve(pkt *Packet, dstAddr Address, ingressLink *LinkId, isOrigin bool) Decision {
	now := fe.sched.Now()
	flow := FlowKey{AppID: pkt.Tag.AppID, SrcAddr: pkt.SrcAddr, DstAddr: pkt.DstAddr}

	// address resolution: deliver locally if this node owns dstAddr
	if owner, present := fe.addrs.OwnerOf(dstAddr); present && owner == fe.node {
		fe.metrics.recordDelivered(flow, now-pkt.Tag.SendTimestamp, pkt.Tag.HopCount)
		return Decision{Kind: DeliverLocal}
	}

	dstNode, present := fe.addrs.OwnerOf(dstAddr)
	if !present {
		fe.logger.Debug("no route: unknown destination address", "node", fe.node, "addr", dstAddr)
		fe.metrics.recordDrop(flow, fe.node, NoRoute)
		return Decision{Kind: Drop, Reason: NoRoute}
	}

	// switching table lookup for the time window covering now
	table := fe.tables.CurrentFor(fe.node, now)
	if table == nil {
		fe.logger.Debug("no route: no valid switching table", "node", fe.node, "time", now)
		fe.metrics.recordDrop(flow, fe.node, NoRoute)
		return Decision{Kind: Drop, Reason: NoRoute}
	}
	candidates, present := table.Entries[dstNode]
	if !present || len(candidates) == 0 {
		fe.logger.Debug("no route: no entry for destination", "node", fe.node, "dest", dstNode)
		fe.metrics.recordDrop(flow, fe.node, NoRoute)
		return Decision{Kind: Drop, Reason: NoRoute}
	}

	// next-hop selection with backup fallback
	if !fe.opts.UseBackupPath {
		candidates = candidates[:1]
	}

	allInactive := true
	for i, hop := range candidates {
		link, present := fe.topo.GetLink(fe.node, hop)
		if !present {
			allInactive = false
			continue
		}
		if !link.Active() {
			continue
		}

		linkID, present := fe.addrs.LinkBetween(fe.node, hop)
		if !present {
			allInactive = false
			continue
		}
		localDevice := Device{Node: fe.node, Link: linkID}
		peerDevice := Device{Node: hop, Link: linkID}
		peerAddr, present := fe.addrs.AddressOf(peerDevice)
		if !present {
			allInactive = false
			continue
		}
		if _, present := fe.addrs.AddressOf(localDevice); !present {
			allInactive = false
			continue
		}

		if !isOrigin && fe.opts.SimpleLoopAvoidance && ingressLink != nil && linkID == *ingressLink {
			allInactive = false
			fe.metrics.recordLoopAvoidance(flow)
			continue
		}

		pkt.Tag.HopCount++
		if i > 0 {
			fe.metrics.recordBackupPathUsed(flow)
		}
		return Decision{Kind: Forward, Link: link, NextHopAddr: peerAddr}
	}

	// every candidate was skipped for being inactive (none failed address
	// resolution or loop avoidance): report LinkInactive rather than the
	// more general NoRoute.
	reason := NoRoute
	if allInactive {
		reason = LinkInactive
	}
	fe.logger.Debug("no route: all candidates exhausted", "node", fe.node, "dest", dstNode, "reason", reason)
	fe.metrics.recordDrop(flow, fe.node, reason)
	return Decision{Kind: Drop, Reason: reason}
}
