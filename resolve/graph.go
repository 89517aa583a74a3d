// Copyright 2023 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resolve

import (
	"fmt"
	"strings"
	"time"
)

// NodeID identifies a node in a Graph.
// It is always scoped to a specific Graph, and is an index of the Nodes slice
// in that Graph.
type NodeID int

// Node is a version selected by a resolution.
type Node struct {
	Version VersionKey
}

// Edge represents a dependency From a dependant Node To the Node selected
// for it, satisfying the dependant's Requirement.
type Edge struct {
	From        NodeID
	To          NodeID
	Requirement string
}

// Graph holds the result of a dependency resolution.
type Graph struct {
	// Nodes holds the selected versions in install order: every node
	// comes after the nodes it depends on, except within a dependency
	// cycle. NodeID is the index into this slice.
	Nodes []Node

	// Edges holds the dependencies between the selected versions, ordered
	// by dependant and then by declaration.
	Edges []Edge

	// Duration is the time it took to perform this resolution.
	Duration time.Duration
}

// AddNode inserts a node into the graph, not connected to anything. The
// returned ID is required to add edges.
func (g *Graph) AddNode(vk VersionKey) NodeID {
	g.Nodes = append(g.Nodes, Node{
		Version: vk,
	})
	return NodeID(len(g.Nodes) - 1)
}

// AddEdge inserts an edge in the graph between the two provided nodes.
func (g *Graph) AddEdge(from, to NodeID, req string) error {
	if !g.contains(from) {
		return fmt.Errorf("node not in graph: %v", from)
	}
	if !g.contains(to) {
		return fmt.Errorf("node not in graph: %v", to)
	}
	g.Edges = append(g.Edges, Edge{
		From:        from,
		To:          to,
		Requirement: req,
	})
	return nil
}

// contains checks if a provided NodeID is actually in the graph.
func (g *Graph) contains(n NodeID) bool {
	return n >= 0 && int(n) < len(g.Nodes)
}

// Order returns the selected versions in install order.
func (g *Graph) Order() []VersionKey {
	vks := make([]VersionKey, len(g.Nodes))
	for i, n := range g.Nodes {
		vks[i] = n.Version
	}
	return vks
}

// String produces a text representation of the graph: one line per node in
// install order, each followed by its dependencies.
//
//	B 1.0.0
//	A 1.0.0
//	└─ B@[1.0,2.0) 1.0.0
func (g *Graph) String() string {
	children := make([][]Edge, len(g.Nodes))
	for _, e := range g.Edges {
		children[e.From] = append(children[e.From], e)
	}
	var b strings.Builder
	for i, n := range g.Nodes {
		fmt.Fprintf(&b, "%s %s\n", n.Version.Name, n.Version.Version)
		for j, e := range children[i] {
			prefix := "├─ "
			if j == len(children[i])-1 {
				prefix = "└─ "
			}
			to := g.Nodes[e.To].Version
			fmt.Fprintf(&b, "%s%s@%s %s\n", prefix, to.Name, e.Requirement, to.Version)
		}
	}
	return b.String()
}
