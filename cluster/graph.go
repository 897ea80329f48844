// elvotu: a tool for aggregating viral contigs into vOTUs.
// Copyright (c) 2026 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elvotu/blob/master/LICENSE.txt>.

// Package cluster groups sequences into vOTUs and picks one
// representative sequence per vOTU.
package cluster

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
	psort "github.com/exascience/pargo/sort"

	"github.com/exascience/elvotu/similarity"
)

// ErrUnknownSequence is returned for edges that name a sequence that
// is not a node of the graph.
var ErrUnknownSequence = errors.New("unknown sequence")

type idSorter []string

func (s idSorter) SequentialSort(i, j int) {
	sort.Strings(s[i:j])
}

func (s idSorter) NewTemp() psort.StableSorter {
	return idSorter(make([]string, len(s)))
}

func (s idSorter) Len() int {
	return len(s)
}

func (s idSorter) Less(i, j int) bool {
	return s[i] < s[j]
}

func (s idSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(idSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// A Graph is an undirected graph over sequence identifiers whose
// connected components are maintained with a union-find structure.
// Nodes are indexed in lexicographic order of their identifiers.
type Graph struct {
	ids    []string
	index  map[string]int32
	parent []int32
	rank   []uint8
	linked *bitset.BitSet // nodes with at least one edge
	edges  int
}

// NewGraph creates a graph without edges over the given identifiers,
// which must be unique.
func NewGraph(ids []string) (*Graph, error) {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	psort.StableSort(idSorter(sorted))
	g := &Graph{
		ids:    sorted,
		index:  make(map[string]int32, len(sorted)),
		parent: make([]int32, len(sorted)),
		rank:   make([]uint8, len(sorted)),
		linked: bitset.New(uint(len(sorted))),
	}
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			return nil, fmt.Errorf("duplicate sequence identifier %v", id)
		}
		g.index[id] = int32(i)
		g.parent[i] = int32(i)
	}
	return g, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.ids)
}

// Edges returns the number of edges added between different nodes.
func (g *Graph) Edges() int {
	return g.edges
}

// Singletons returns the number of nodes without any edge.
func (g *Graph) Singletons() int {
	return len(g.ids) - int(g.linked.Count())
}

func (g *Graph) find(node int32) int32 {
	root := node
	for root != g.parent[root] {
		root = g.parent[root]
	}
	for node != root {
		next := g.parent[node]
		g.parent[node] = root
		node = next
	}
	return root
}

func (g *Graph) union(node1, node2 int32) {
	root1, root2 := g.find(node1), g.find(node2)
	if root1 == root2 {
		return
	}
	switch {
	case g.rank[root1] < g.rank[root2]:
		g.parent[root1] = root2
	case g.rank[root1] > g.rank[root2]:
		g.parent[root2] = root1
	default:
		g.parent[root2] = root1
		g.rank[root1]++
	}
}

// AddEdge connects two sequences. Self loops are ignored.
func (g *Graph) AddEdge(a, b string) error {
	i, ok := g.index[a]
	if !ok {
		return fmt.Errorf("%w %v", ErrUnknownSequence, a)
	}
	j, ok := g.index[b]
	if !ok {
		return fmt.Errorf("%w %v", ErrUnknownSequence, b)
	}
	if i == j {
		return nil
	}
	g.linked.Set(uint(i)).Set(uint(j))
	g.edges++
	g.union(i, j)
	return nil
}

// AddEdges adds all given edges. If skipUnknown is true, edges naming
// an unknown sequence are skipped and counted; otherwise the first one
// is reported as an error.
func (g *Graph) AddEdges(edges []similarity.Edge, skipUnknown bool) (unknown int, err error) {
	for _, e := range edges {
		if err := g.AddEdge(e.A, e.B); err != nil {
			if skipUnknown && errors.Is(err, ErrUnknownSequence) {
				unknown++
				continue
			}
			return unknown, err
		}
	}
	return unknown, nil
}

// Clusters returns the connected components of the graph. Every node
// is a member of exactly one cluster. Members are sorted, and clusters
// are numbered from 1 in the order of their smallest member.
func (g *Graph) Clusters() []Cluster {
	clusterOf := make([]int32, len(g.ids))
	var clusters []Cluster
	for i, id := range g.ids {
		root := g.find(int32(i))
		c := clusterOf[root]
		if c == 0 {
			clusters = append(clusters, Cluster{ID: len(clusters) + 1})
			c = int32(len(clusters))
			clusterOf[root] = c
		}
		clusters[c-1].Members = append(clusters[c-1].Members, id)
	}
	return clusters
}
