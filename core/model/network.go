package model

import "fmt"

// Edge is one feeder segment with its per-unit resistance.
type Edge struct {
	From       int     `json:"from"`
	To         int     `json:"to"`
	Resistance float64 `json:"resistance"`
}

// Network describes the distribution feeder: a tree rooted at the substation
// node, per-run voltage bounds, and the mapping from homes to their electrical
// node. It is read-only during optimization.
type Network struct {
	ID       int            `json:"id"`
	Root     int            `json:"root"`
	Nodes    []int          `json:"nodes"`
	Edges    []Edge         `json:"edges"`
	VMin     float64        `json:"vmin"`
	VMax     float64        `json:"vmax"`
	HomeNode map[string]int `json:"homes"`
}

// NodeIndex returns a stable node id to matrix-row index mapping.
func (n Network) NodeIndex() map[int]int {
	idx := make(map[int]int, len(n.Nodes))
	for i, id := range n.Nodes {
		idx[id] = i
	}
	return idx
}

// Validate checks topology consistency and voltage bounds.
func (n Network) Validate() error {
	if len(n.Nodes) == 0 {
		return fmt.Errorf("network %d: no nodes", n.ID)
	}
	if n.VMin >= n.VMax {
		return fmt.Errorf("network %d: vmin %.3f >= vmax %.3f", n.ID, n.VMin, n.VMax)
	}
	idx := n.NodeIndex()
	if _, ok := idx[n.Root]; !ok {
		return fmt.Errorf("network %d: root node %d not in node set", n.ID, n.Root)
	}
	for _, e := range n.Edges {
		if _, ok := idx[e.From]; !ok {
			return fmt.Errorf("network %d: edge references unknown node %d", n.ID, e.From)
		}
		if _, ok := idx[e.To]; !ok {
			return fmt.Errorf("network %d: edge references unknown node %d", n.ID, e.To)
		}
		if e.Resistance < 0 {
			return fmt.Errorf("network %d: negative resistance on edge %d-%d", n.ID, e.From, e.To)
		}
	}
	for home, node := range n.HomeNode {
		if _, ok := idx[node]; !ok {
			return fmt.Errorf("network %d: home %s mapped to unknown node %d", n.ID, home, node)
		}
	}
	return nil
}
