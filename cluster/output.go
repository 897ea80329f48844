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
	"bufio"
	"fmt"
	"io"

	"github.com/exascience/elvotu/fasta"
)

// Column headers of the cluster outputs.
const (
	ClusterMapHeader      = "sequence_id\tvOTU"
	RepresentativesHeader = "vOTU\trepresentative\tlength\tmembers\tsamples"
)

// WriteClusterMap writes one "sequence_id<TAB>label" row per sequence,
// ordered by cluster and then by identifier, after a header row.
func WriteClusterMap(w io.Writer, clusters []Cluster, prefix string) error {
	out := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(out, ClusterMapHeader); err != nil {
		return err
	}
	for _, c := range clusters {
		label := c.Label(prefix)
		for _, id := range c.Members {
			if _, err := fmt.Fprintf(out, "%s\t%s\n", id, label); err != nil {
				return err
			}
		}
	}
	return out.Flush()
}

// WriteRepresentatives writes the representative table, one row per
// cluster in cluster order.
func WriteRepresentatives(w io.Writer, reps []Representative, prefix string) error {
	out := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(out, RepresentativesHeader); err != nil {
		return err
	}
	for _, rep := range reps {
		if _, err := fmt.Fprintf(out, "%s%d\t%s\t%d\t%d\t%d\n", prefix, rep.ClusterID, rep.ID, rep.Length, rep.Members, rep.Samples); err != nil {
			return err
		}
	}
	return out.Flush()
}

// ExtractSequences returns the sequences of the representatives from
// the given records, in representative order.
func ExtractSequences(reps []Representative, records []fasta.Record) ([]fasta.Record, error) {
	byID := make(map[string][]byte, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec.Seq
	}
	result := make([]fasta.Record, 0, len(reps))
	for _, rep := range reps {
		seq, ok := byID[rep.ID]
		if !ok {
			return nil, fmt.Errorf("%w %v - no sequence for representative of cluster %v", ErrUnknownSequence, rep.ID, rep.ClusterID)
		}
		result = append(result, fasta.Record{ID: rep.ID, Seq: seq})
	}
	return result, nil
}
