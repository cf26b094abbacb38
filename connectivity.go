package leosim

// connectivity.go is a setup-time diagnostic only: it reports whether a
// node list and adjacency (such as the graph handed to SetGraph) are
// connected, and which nodes are unreached; it does not return paths. It
// is never consulted by ForwardingEngine.resolve — routing decisions
// during a run come only from switching tables. Adapts a Dijkstra-tree
// connectivity check from a device-id graph onto a NodeId graph; each call
// builds its own graph and nothing is cached at package level, since a
// single process may run more than one Simulation concurrently.

import (
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// ConnectivityReport is the result of a one-time connectivity check over
// the initial edge set.
type ConnectivityReport struct {
	Connected bool
	// Unreached lists every node not reachable from the first node passed
	// to CheckConnectivity, when Connected is false.
	Unreached []NodeId
}

// CheckConnectivity builds an undirected, unit-weighted graph.Graph from
// the given adjacency, weighting every edge 1.0 since a hop count, not a
// physical distance, is what this diagnostic cares about, and reports
// whether every node is reachable from the first one.
func CheckConnectivity(nodes []NodeId, adjacency map[NodeId][]NodeId) ConnectivityReport {
	if len(nodes) == 0 {
		return ConnectivityReport{Connected: true}
	}

	index := make(map[NodeId]int64, len(nodes))
	for i, n := range nodes {
		index[n] = int64(i)
	}

	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for _, n := range nodes {
		g.AddNode(simple.Node(index[n]))
	}
	for n, neighbors := range adjacency {
		for _, m := range neighbors {
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(index[n]), T: simple.Node(index[m]), W: 1.0})
		}
	}

	tree := path.DijkstraFrom(simple.Node(index[nodes[0]]), g)

	var unreached []NodeId
	for _, n := range nodes {
		seq, _ := tree.To(index[n])
		if len(seq) == 0 && n != nodes[0] {
			unreached = append(unreached, n)
		}
	}

	return ConnectivityReport{Connected: len(unreached) == 0, Unreached: unreached}
}
