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

// Package similarity turns pairwise sequence comparison records into
// the undirected edges that connect sequences of the same vOTU.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed is returned for similarity records that cannot be parsed.
var ErrMalformed = errors.New("malformed similarity record")

// Record is one comparison between a query and a reference sequence,
// as reported by tools like fastANI: query, reference, percent
// identity, aligned fragments, total fragments.
//
// The total fragment count always refers to the query sequence, so
// Coverage is the aligned fraction of the query.
type Record struct {
	Query, Reference string
	Identity         float64 // percent, 0-100
	Aligned, Total   float64
}

// Coverage is the aligned fraction of the query sequence.
func (r Record) Coverage() float64 {
	return r.Aligned / r.Total
}

func malformed(format string, v ...interface{}) error {
	return fmt.Errorf("%w: %v", ErrMalformed, fmt.Sprintf(format, v...))
}

func parseNumber(name, s string) (float64, error) {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, malformed("%v %q is not a number", name, s)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, malformed("%v %q is not a finite number", name, s)
	}
	return value, nil
}

// ParseRecord parses a line with at least five tab- or space-separated
// fields. Additional fields are ignored.
func ParseRecord(line string) (rec Record, err error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return rec, malformed("expected 5 fields, got %v", len(fields))
	}
	rec.Query, rec.Reference = fields[0], fields[1]
	if rec.Identity, err = parseNumber("percent identity", fields[2]); err != nil {
		return rec, err
	}
	if rec.Identity < 0 || rec.Identity > 100 {
		return rec, malformed("percent identity %v outside [0,100]", rec.Identity)
	}
	if rec.Aligned, err = parseNumber("aligned fragments", fields[3]); err != nil {
		return rec, err
	}
	if rec.Aligned < 0 {
		return rec, malformed("negative aligned fragments %v", rec.Aligned)
	}
	if rec.Total, err = parseNumber("total fragments", fields[4]); err != nil {
		return rec, err
	}
	if rec.Total <= 0 {
		return rec, malformed("total fragments %v must be positive", rec.Total)
	}
	return rec, nil
}

// Edge is an undirected edge between two different sequences. A is
// always the lexicographically smaller identifier, so both directions
// of a comparison map to the same Edge.
type Edge struct {
	A, B string
}

// NewEdge returns the canonical edge between a and b.
func NewEdge(a, b string) Edge {
	if b < a {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}
