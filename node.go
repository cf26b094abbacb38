package leosim

// node.go implements the NodeId/Node data model as a flat arena with
// stable integer indices: NodeId strings map to arena slots through one
// hash map, Satellite vs GroundStation is a tagged struct (not a
// dynamic-cast hierarchy), and no pointer cycles escape into ownership.
// Generalizes a device-by-id/device-by-name arena pattern from
// router/switch/endpoint device kinds down to the two kinds this
// constellation model needs.

import "fmt"

// NodeId is the opaque, stable string identifier supplied by the input —
// e.g. "IRIDIUM 145" or a ground-station UUID. It is the only identity
// that may appear in routing logic; arena indices are an implementation
// detail local to this file.
type NodeId string

// NodeKind discriminates the two kinds of network device this spec
// models.
type NodeKind int

const (
	Satellite NodeKind = iota
	GroundStation
)

func (k NodeKind) String() string {
	if k == Satellite {
		return "satellite"
	}
	return "ground-station"
}

// nodeRecord is one arena slot. OrbitIndex is meaningful only for
// Satellite; Town only for GroundStation — lifting both onto one struct
// (rather than an interface-typed payload) avoids a runtime dynamic-cast,
// matching the Design Notes' "no runtime dynamic-cast is needed" guidance.
type nodeRecord struct {
	id         NodeId
	kind       NodeKind
	orbitIndex int
	town       string
}

// NodeArena owns every Node known to a Simulation and maps NodeId strings
// to stable integer slots.
type NodeArena struct {
	byIndex []*nodeRecord
	byID    map[NodeId]int
}

// NewNodeArena constructs an empty arena.
func NewNodeArena() *NodeArena {
	return &NodeArena{byID: make(map[NodeId]int)}
}

// AddSatellite registers a satellite node. Re-registering an existing id
// is a ConfigError: node identity is established once during setup and is
// immutable in structure thereafter.
func (a *NodeArena) AddSatellite(id NodeId, orbitIndex int) error {
	return a.add(&nodeRecord{id: id, kind: Satellite, orbitIndex: orbitIndex})
}

// AddGroundStation registers a ground-station node.
func (a *NodeArena) AddGroundStation(id NodeId, town string) error {
	return a.add(&nodeRecord{id: id, kind: GroundStation, town: town})
}

func (a *NodeArena) add(rec *nodeRecord) error {
	if _, present := a.byID[rec.id]; present {
		return newConfigError("AddNode", "duplicate node id %q", rec.id)
	}
	idx := len(a.byIndex)
	a.byIndex = append(a.byIndex, rec)
	a.byID[rec.id] = idx
	return nil
}

// Has reports whether id names a known node.
func (a *NodeArena) Has(id NodeId) bool {
	_, present := a.byID[id]
	return present
}

// Kind returns the kind of the named node, panicking (a programming error,
// not a runtime condition) if the node is unknown — callers must check Has
// first, or rely on an earlier setup-time ConfigError having already
// rejected the reference.
func (a *NodeArena) Kind(id NodeId) NodeKind {
	idx, present := a.byID[id]
	if !present {
		panic(fmt.Sprintf("leosim: unknown node id %q", id))
	}
	return a.byIndex[idx].kind
}

// Town returns the town attribute of a ground-station node, or "" for a
// satellite or unknown id.
func (a *NodeArena) Town(id NodeId) string {
	idx, present := a.byID[id]
	if !present {
		return ""
	}
	return a.byIndex[idx].town
}

// OrbitIndex returns the orbit-index attribute of a satellite node, or -1
// for a ground station or unknown id.
func (a *NodeArena) OrbitIndex(id NodeId) int {
	idx, present := a.byID[id]
	if !present || a.byIndex[idx].kind != Satellite {
		return -1
	}
	return a.byIndex[idx].orbitIndex
}

// Ids returns every registered node id, in registration order (stable,
// since the arena never reorders slots).
func (a *NodeArena) Ids() []NodeId {
	ids := make([]NodeId, len(a.byIndex))
	for i, rec := range a.byIndex {
		ids[i] = rec.id
	}
	return ids
}
