package leosim

// traffic.go implements TrafficSource/Sink: a CBR-style packet generator
// that emits into RouteOutput at its node, plus a supplemental
// Exponential interarrival mode layered on top of the required Constant
// mode. The random draw itself adapts a sampleExpRV/expRV idiom onto a
// per-source rngstream.RngStream instead of a shared per-device one.

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iti/rngstream"
)

// Interarrival selects how a TrafficSource spaces its emissions.
type Interarrival int

const (
	// Constant emits exactly every packet_size_bits/rate_bps seconds, the
	// CBR default.
	Constant Interarrival = iota
	// Exponential draws Poisson-process interarrivals at the same mean
	// rate, a supplemental mode for traffic generators that want it.
	Exponential
)

// TrafficSourceConfig is the (src_node, dst_addr, ...) tuple describing
// one traffic generator.
type TrafficSourceConfig struct {
	SrcNode     NodeId
	SrcAddr     Address
	DstAddr     Address
	SrcPort     uint16
	DstPort     uint16
	PacketSizeBits int
	RateBPS     float64
	StartTime   float64
	Duration    float64
	AppID       uint32
	Interarrival Interarrival
}

// epsilon accommodates the last in-window emission at
// start_time + duration.
const epsilon = 1e-9

// TrafficSource emits packets on behalf of one flow, one node.
type TrafficSource struct {
	cfg TrafficSourceConfig
	sim *Simulation
	rng *rngstream.RngStream

	nextPacketNumber uint64
	overrun          *ShapingOverrun
}

// NewTrafficSource constructs a source bound to sim. sim must already have
// an engine reachable for cfg.SrcNode by the time Start's first emission
// fires.
func NewTrafficSource(cfg TrafficSourceConfig, sim *Simulation) *TrafficSource {
	return &TrafficSource{
		cfg: cfg,
		sim: sim,
		rng: rngstream.New(fmt.Sprintf("traffic-%s-%d", cfg.SrcNode, cfg.AppID)),
	}
}

// Start schedules the source's first emission at cfg.StartTime.
func (ts *TrafficSource) Start() {
	ts.sim.Sched.ScheduleAt(ts.cfg.StartTime, ts.emit)
}

func (ts *TrafficSource) emit() {
	now := ts.sim.Sched.Now()
	if now > ts.cfg.StartTime+ts.cfg.Duration+epsilon {
		return
	}

	pkt := &Packet{
		Tag: FlowTag{
			AppID:         ts.cfg.AppID,
			PacketNumber:  ts.nextPacketNumber,
			SendTimestamp: now,
		},
		SizeBits: ts.cfg.PacketSizeBits,
		SrcAddr:  ts.cfg.SrcAddr,
		DstAddr:  ts.cfg.DstAddr,
	}
	ts.nextPacketNumber++

	flow := FlowKey{AppID: pkt.Tag.AppID, SrcAddr: pkt.SrcAddr, DstAddr: pkt.DstAddr}
	ts.sim.Metrics.recordSent(flow)

	engine := ts.sim.engineFor(ts.cfg.SrcNode)
	decision := engine.RouteOutput(pkt, ts.cfg.DstAddr)
	ts.sim.dispatch(ts.cfg.SrcNode, pkt, decision)

	interarrival := ts.interarrival()
	next := now + interarrival
	if next > ts.cfg.StartTime+ts.cfg.Duration+epsilon {
		ts.overrun = &ShapingOverrun{AppID: ts.cfg.AppID}
		return
	}
	ts.sim.Sched.ScheduleAt(next, ts.emit)
}

// Overrun reports the source's shaping overrun, if its last window ended
// with a partial interarrival suppressed rather than sent. A source's last
// computed interarrival always lands past start_time+duration+epsilon, so
// every source that has emitted reports one; it is nil only before the
// first emission.
func (ts *TrafficSource) Overrun() *ShapingOverrun {
	return ts.overrun
}

func (ts *TrafficSource) interarrival() float64 {
	packetRate := ts.cfg.RateBPS / float64(ts.cfg.PacketSizeBits)
	switch ts.cfg.Interarrival {
	case Exponential:
		u01 := ts.rng.RandU01()
		return expRV(u01, packetRate)
	default:
		return 1.0 / packetRate
	}
}

func expRV(u01, rate float64) float64 {
	return -math.Log(1.0-u01) / rate
}

// ParseRate recognizes bps, kbps, Mbps, Gbps (SI base-10), returning a
// ConfigError on an unrecognized unit or malformed number.
func ParseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	var multiplier float64
	var numPart string

	switch {
	case strings.HasSuffix(s, "Gbps"):
		multiplier, numPart = 1e9, strings.TrimSuffix(s, "Gbps")
	case strings.HasSuffix(s, "Mbps"):
		multiplier, numPart = 1e6, strings.TrimSuffix(s, "Mbps")
	case strings.HasSuffix(s, "kbps"):
		multiplier, numPart = 1e3, strings.TrimSuffix(s, "kbps")
	case strings.HasSuffix(s, "bps"):
		multiplier, numPart = 1, strings.TrimSuffix(s, "bps")
	default:
		return 0, newConfigError("ParseRate", "unrecognized rate unit in %q", s)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(numPart), 64)
	if err != nil {
		return 0, newConfigError("ParseRate", "malformed rate number in %q: %v", s, err)
	}
	return value * multiplier, nil
}
