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

package cluster

import (
	"strconv"

	"github.com/exascience/elvotu/similarity"
)

// DefaultPrefix is prepended to cluster numbers to form vOTU labels.
const DefaultPrefix = "vOTU_"

// A Cluster is a connected component of the similarity graph.
type Cluster struct {
	ID      int      // 1-based
	Members []string // sorted
}

// Label returns the cluster name, for example "vOTU_12".
func (c Cluster) Label(prefix string) string {
	return prefix + strconv.Itoa(c.ID)
}

// Summary describes the outcome of Build.
type Summary struct {
	Sequences    int
	Edges        int
	UnknownEdges int
	Clusters     int
	Singletons   int
}

// Build clusters the given sequences using the given edges. All
// identifiers in ids end up in exactly one cluster, including those
// that are not mentioned by any edge.
func Build(ids []string, edges []similarity.Edge, skipUnknown bool) (clusters []Cluster, summary Summary, err error) {
	g, err := NewGraph(ids)
	if err != nil {
		return nil, summary, err
	}
	if summary.UnknownEdges, err = g.AddEdges(edges, skipUnknown); err != nil {
		return nil, summary, err
	}
	clusters = g.Clusters()
	summary.Sequences = g.Len()
	summary.Edges = g.Edges()
	summary.Clusters = len(clusters)
	summary.Singletons = g.Singletons()
	return clusters, summary, nil
}
