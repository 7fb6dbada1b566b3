// Package powerflow maps home schedules to feeder voltage estimates using a
// linearized distribution flow model: the voltage drop seen at a node is the
// sum, over every load in the network, of the load times the resistance of the
// feeder path shared between the two nodes.
package powerflow

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"

	"github.com/gridsched/revs/core/model"
)

// Grid holds the precomputed voltage sensitivity of a feeder. It is built
// once per run and read-only afterwards.
type Grid struct {
	net  model.Network
	idx  map[int]int
	sens *mat.Dense
}

// New validates the topology, checks that every node is reachable from the
// substation root, and precomputes the shared-path resistance matrix.
func New(net model.Network) (*Grid, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}

	g := simple.NewWeightedUndirectedGraph(0, 0)
	for _, id := range net.Nodes {
		g.AddNode(simple.Node(id))
	}
	for _, e := range net.Edges {
		if e.From == e.To {
			return nil, fmt.Errorf("powerflow: self loop on node %d", e.From)
		}
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(e.From), simple.Node(e.To), e.Resistance))
	}

	// BFS from the root records each node's upstream parent.
	parent := make(map[int64]int64, len(net.Nodes))
	seen := map[int64]bool{int64(net.Root): true}
	queue := []int64{int64(net.Root)}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		it := g.From(u)
		for it.Next() {
			v := it.Node().ID()
			if seen[v] {
				continue
			}
			seen[v] = true
			parent[v] = u
			queue = append(queue, v)
		}
	}
	if len(seen) != len(net.Nodes) {
		return nil, fmt.Errorf("powerflow: network %d is not connected from root %d", net.ID, net.Root)
	}

	// Path edges are identified by their downstream endpoint.
	idx := net.NodeIndex()
	paths := make(map[int]map[int64]float64, len(net.Nodes))
	for _, id := range net.Nodes {
		path := make(map[int64]float64)
		for v := int64(id); v != int64(net.Root); v = parent[v] {
			w, ok := g.Weight(parent[v], v)
			if !ok {
				return nil, fmt.Errorf("powerflow: missing edge %d-%d", parent[v], v)
			}
			path[v] = w
		}
		paths[id] = path
	}

	n := len(net.Nodes)
	sens := mat.NewDense(n, n, nil)
	for _, a := range net.Nodes {
		for _, b := range net.Nodes {
			var r float64
			for edge, w := range paths[a] {
				if _, ok := paths[b][edge]; ok {
					r += w
				}
			}
			sens.Set(idx[a], idx[b], r)
		}
	}

	return &Grid{net: net, idx: idx, sens: sens}, nil
}

// Sensitivity returns the nodes x nodes shared-path resistance matrix.
// Callers must not mutate it.
func (g *Grid) Sensitivity() *mat.Dense { return g.sens }

// NodeRow returns the matrix row index of a network node id.
func (g *Grid) NodeRow(node int) (int, bool) {
	i, ok := g.idx[node]
	return i, ok
}

// HomeRow returns the matrix row index of the node a home is attached to.
func (g *Grid) HomeRow(homeID string) (int, bool) {
	node, ok := g.net.HomeNode[homeID]
	if !ok {
		return 0, false
	}
	return g.NodeRow(node)
}

// LoadMatrix aggregates per-home schedules (residual plus charging load) into
// a nodes x horizon load matrix. Homes without a schedule contribute their
// baseline load only.
func (g *Grid) LoadMatrix(homes map[string]model.Home, schedules map[string]model.Schedule, horizon int) *mat.Dense {
	load := mat.NewDense(len(g.net.Nodes), horizon, nil)
	for id, h := range homes {
		row, ok := g.HomeRow(id)
		if !ok {
			continue
		}
		sched, solved := schedules[id]
		for t := 0; t < horizon; t++ {
			p := h.Baseline[t]
			if solved {
				p = sched.TotalLoad(t)
			}
			load.Set(row, t, load.At(row, t)+p)
		}
	}
	return load
}

// NodeVoltages estimates per-node hourly voltages from a load matrix:
// V = vset - S*L in per-unit.
func (g *Grid) NodeVoltages(vset float64, load *mat.Dense) *mat.Dense {
	n, horizon := load.Dims()
	var drop mat.Dense
	drop.Mul(g.sens, load)
	volt := mat.NewDense(n, horizon, nil)
	for i := 0; i < n; i++ {
		for t := 0; t < horizon; t++ {
			volt.Set(i, t, vset-drop.At(i, t))
		}
	}
	return volt
}
