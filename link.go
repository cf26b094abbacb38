package leosim

// link.go implements the Link data model and the TopologyController. It
// generalizes interface/link-state bookkeeping into a bidirectional,
// weight-driven Link, and carries over a topology manager's
// enable/disable/weight-update operations.

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// speedOfLightKmPerSec is c, used to derive propagation delay from a
// link's weight (great-circle or slant-range distance, in km).
const speedOfLightKmPerSec = 299792.4580

// LinkClass distinguishes the two data-rate classes: inter-satellite
// links and ground-station feeder links.
type LinkClass int

const (
	InterSatelliteLink LinkClass = iota
	FeederLink
)

// LinkId is a stable integer identifier for a Link, assigned when the
// link is created.
type LinkId int

// Link is a bidirectional channel between two nodes. Endpoints are stored
// normalized so that A < B; TopologyController's public operations take
// (a, b) in either order and normalize internally.
type Link struct {
	id    LinkId
	a, b  NodeId
	addrA Address
	addrB Address
	class LinkClass

	weightKM          float64
	propagationDelay  float64 // seconds, derived from weightKM/c
	dataRateBPS       float64
	active            bool
	serializer        *TaskScheduler // per-link FIFO transmission queue
}

// Endpoints returns the link's two endpoints in canonical order (a < b).
func (l *Link) Endpoints() (NodeId, NodeId) { return l.a, l.b }

// Active reports whether the link currently accepts new transmissions.
func (l *Link) Active() bool { return l.active }

// PropagationDelay returns the current one-way propagation delay in
// seconds.
func (l *Link) PropagationDelay() float64 { return l.propagationDelay }

// DataRateBPS returns the link's data rate in bits per second.
func (l *Link) DataRateBPS() float64 { return l.dataRateBPS }

// Class returns the link's class (ISL or feeder).
func (l *Link) Class() LinkClass { return l.class }

// other returns the endpoint of l that is not self.
func (l *Link) other(self NodeId) NodeId {
	if l.a == self {
		return l.b
	}
	return l.a
}

func weightToDelay(weightKM float64) float64 {
	return weightKM / speedOfLightKmPerSec
}

// TopologyController owns every Link that will ever exist during a run
// and applies scheduled LINK_UP/LINK_DOWN/weight-update events to them.
// It is a field of Simulation, not a package singleton, since a single
// process may run more than one Simulation concurrently.
type TopologyController struct {
	links       map[LinkId]*Link
	byEndpoints map[nodePair]LinkId
	adjacency   map[NodeId][]LinkId
	addrs       *AddressBook
	logger      *Logger
	sched       *Scheduler
	nextID      LinkId
	nextAddr    Address
	islRateBPS  float64
	feederRate  float64
}

// NewTopologyController constructs an empty controller. islRateBPS and
// feederRateBPS are the constellation's global data rates
// (isl_data_rate_mbps/feeder_data_rate_mbps, already converted to bps).
// sched is the Simulation's Scheduler; every link's per-link serializer is
// bound to it as the link is created.
func NewTopologyController(addrs *AddressBook, logger *Logger, sched *Scheduler, islRateBPS, feederRateBPS float64) *TopologyController {
	return &TopologyController{
		links:       make(map[LinkId]*Link),
		byEndpoints: make(map[nodePair]LinkId),
		adjacency:   make(map[NodeId][]LinkId),
		addrs:       addrs,
		logger:      logger,
		sched:       sched,
		nextAddr:    1,
		islRateBPS:  islRateBPS,
		feederRate:  feederRateBPS,
	}
}

// classFor derives a link's class from its endpoint kinds.
func classFor(arena *NodeArena, a, b NodeId) LinkClass {
	if arena.Kind(a) == GroundStation || arena.Kind(b) == GroundStation {
		return FeederLink
	}
	return InterSatelliteLink
}

// EnsureLink creates the Link between a and b if it doesn't already exist,
// leaving it inactive with a zero weight. TopologyController must be
// seeded this way, at setup, with the union of every link that will ever
// exist: the initial edge set plus every endpoint pair named by a
// scheduled LINK_UP.
func (tc *TopologyController) EnsureLink(arena *NodeArena, a, b NodeId) (*Link, error) {
	key := normalizePair(a, b)
	if id, present := tc.byEndpoints[key]; present {
		return tc.links[id], nil
	}
	if !arena.Has(a) {
		return nil, newConfigError("EnsureLink", "unknown node %q", a)
	}
	if !arena.Has(b) {
		return nil, newConfigError("EnsureLink", "unknown node %q", b)
	}

	na, nb := key.a, key.b
	class := classFor(arena, na, nb)
	rate := tc.islRateBPS
	if class == FeederLink {
		rate = tc.feederRate
	}

	tc.nextID++
	id := tc.nextID
	addrA := tc.nextAddr
	addrB := tc.nextAddr + 1
	tc.nextAddr += 2

	link := &Link{
		id: id, a: na, b: nb,
		addrA: addrA, addrB: addrB,
		class: class, dataRateBPS: rate,
		active: false,
	}
	link.serializer = NewTaskScheduler(1)
	link.serializer.bind(tc.sched)

	if err := tc.addrs.bind(na, id, addrA); err != nil {
		return nil, err
	}
	if err := tc.addrs.bind(nb, id, addrB); err != nil {
		return nil, err
	}
	if err := tc.addrs.bindLink(na, nb, id); err != nil {
		return nil, err
	}

	tc.links[id] = link
	tc.byEndpoints[key] = id
	if !slices.Contains(tc.adjacency[na], id) {
		tc.adjacency[na] = append(tc.adjacency[na], id)
	}
	if !slices.Contains(tc.adjacency[nb], id) {
		tc.adjacency[nb] = append(tc.adjacency[nb], id)
	}
	return link, nil
}

func (tc *TopologyController) find(a, b NodeId) (*Link, bool) {
	id, present := tc.byEndpoints[normalizePair(a, b)]
	if !present {
		return nil, false
	}
	return tc.links[id], true
}

// EnableLink sets the named link active and recomputes its propagation
// delay from weightKM. If the link is already active this merely updates
// the delay. Enabling an unknown link is a logged warning, not an error.
func (tc *TopologyController) EnableLink(a, b NodeId, weightKM float64) {
	link, present := tc.find(a, b)
	if !present {
		tc.logger.Warn("enable_link on unknown link", "a", a, "b", b)
		return
	}
	link.weightKM = weightKM
	link.propagationDelay = weightToDelay(weightKM)
	link.active = true
}

// DisableLink sets the named link inactive. Packets already in flight on
// it are unaffected; no new packets are accepted while inactive.
func (tc *TopologyController) DisableLink(a, b NodeId) {
	link, present := tc.find(a, b)
	if !present {
		tc.logger.Warn("disable_link on unknown link", "a", a, "b", b)
		return
	}
	link.active = false
}

// UpdateWeight recomputes the named link's propagation delay from
// weightKM without toggling activity. Updating an unknown link is a
// logged warning, ignored.
func (tc *TopologyController) UpdateWeight(a, b NodeId, weightKM float64) {
	link, present := tc.find(a, b)
	if !present {
		tc.logger.Warn("update_weight on unknown link", "a", a, "b", b)
		return
	}
	link.weightKM = weightKM
	link.propagationDelay = weightToDelay(weightKM)
}

// IsActive reports whether the link between a and b is active. It is
// symmetric by construction (P3): the Link stores one active flag shared
// by both endpoints.
func (tc *TopologyController) IsActive(a, b NodeId) bool {
	link, present := tc.find(a, b)
	return present && link.active
}

// GetLink returns the Link between a and b, and whether it exists.
func (tc *TopologyController) GetLink(a, b NodeId) (*Link, bool) {
	return tc.find(a, b)
}

// LinksOf returns every Link incident on node, in the order they were
// created.
func (tc *TopologyController) LinksOf(node NodeId) []*Link {
	ids := tc.adjacency[node]
	out := make([]*Link, 0, len(ids))
	for _, id := range ids {
		out = append(out, tc.links[id])
	}
	return out
}

// AllLinks returns every link the controller knows about, keyed by id.
func (tc *TopologyController) AllLinks() map[LinkId]*Link {
	return tc.links
}

func (tc *TopologyController) String() string {
	return fmt.Sprintf("TopologyController{%d links}", len(tc.links))
}
