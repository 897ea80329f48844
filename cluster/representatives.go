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
	"fmt"
	"strings"
)

// A Representative stands in for all members of its cluster in
// downstream read mapping.
type Representative struct {
	ClusterID int
	ID        string
	Length    int
	Members   int // cluster size
	Samples   int // distinct originating samples among the members
}

// better reports whether (length1, id1) precedes (length2, id2) in the
// order (length descending, identifier ascending).
func better(length1 int, id1 string, length2 int, id2 string) bool {
	if length1 != length2 {
		return length1 > length2
	}
	return id1 < id2
}

// SampleOf returns the originating sample of a sequence, which is the
// identifier prefix before the first occurrence of separator. If the
// separator is empty or does not occur, the whole identifier is
// returned.
func SampleOf(id, separator string) string {
	if separator == "" {
		return id
	}
	if i := strings.Index(id, separator); i > 0 {
		return id[:i]
	}
	return id
}

// SelectRepresentatives picks the longest member of every cluster,
// breaking ties by the smallest identifier. The result is in the order
// of the given clusters. Every member must have a length.
func SelectRepresentatives(clusters []Cluster, lengths map[string]int, sampleSeparator string) ([]Representative, error) {
	reps := make([]Representative, 0, len(clusters))
	for _, c := range clusters {
		if len(c.Members) == 0 {
			return nil, fmt.Errorf("cluster %v has no members", c.ID)
		}
		rep := Representative{ClusterID: c.ID, Members: len(c.Members)}
		samples := make(map[string]struct{})
		for _, id := range c.Members {
			length, ok := lengths[id]
			if !ok {
				return nil, fmt.Errorf("%w %v - no sequence length", ErrUnknownSequence, id)
			}
			if rep.ID == "" || better(length, id, rep.Length, rep.ID) {
				rep.ID, rep.Length = id, length
			}
			samples[SampleOf(id, sampleSeparator)] = struct{}{}
		}
		rep.Samples = len(samples)
		reps = append(reps, rep)
	}
	return reps, nil
}
