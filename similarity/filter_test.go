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

package similarity

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func edgesEqual(edges1, edges2 []Edge) bool {
	if len(edges1) != len(edges2) {
		return false
	}
	for i, e := range edges1 {
		if e != edges2[i] {
			return false
		}
	}
	return true
}

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord("s1_c1\ts2_c7\t96.5\t80\t100")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Query != "s1_c1" || rec.Reference != "s2_c7" || rec.Identity != 96.5 || rec.Coverage() != 0.8 {
		t.Error("ParseRecord 1 failed")
	}
	rec, err = ParseRecord("a b 99 9 10 extra columns")
	if err != nil || rec.Reference != "b" || rec.Total != 10 {
		t.Error("ParseRecord 2 failed")
	}
	for i, line := range []string{
		"a\tb\t99\t9",
		"a\tb\tx\t9\t10",
		"a\tb\t99\t9\t0",
		"a\tb\t99\t9\t-1",
		"a\tb\t101\t9\t10",
		"a\tb\t99\t-2\t10",
		"a\tb\tNaN\t9\t10",
		"a\tb\t99\t9\tInf",
	} {
		if _, err := ParseRecord(line); !errors.Is(err, ErrMalformed) {
			t.Errorf("ParseRecord malformed %v not detected", i)
		}
	}
}

func TestAcceptDefaults(t *testing.T) {
	thresholds := DefaultThresholds()
	if thresholds.Accept(Record{Query: "a", Reference: "b", Identity: 96, Aligned: 80, Total: 100}) {
		t.Error("coverage 0.80 must be rejected")
	}
	if !thresholds.Accept(Record{Query: "a", Reference: "b", Identity: 95.5, Aligned: 90, Total: 100}) {
		t.Error("identity 95.5 with coverage 0.90 must be accepted")
	}
	if !thresholds.Accept(Record{Query: "a", Reference: "b", Identity: 95, Aligned: 85, Total: 100}) {
		t.Error("records exactly at both thresholds must be accepted")
	}
	if thresholds.Accept(Record{Query: "a", Reference: "b", Identity: 94.99, Aligned: 100, Total: 100}) {
		t.Error("identity below 95 must be rejected")
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Error(err)
	}
	for i, thresholds := range []Thresholds{
		{ANI: 1.2, MinCoverage: 0.5},
		{ANI: 0.9, MinCoverage: -0.1},
		{ANI: 95, MinCoverage: 85},
	} {
		if err := thresholds.Validate(); err == nil {
			t.Errorf("Validate %v failed", i)
		}
	}
}

func TestFilter(t *testing.T) {
	input := strings.Join([]string{
		"# query\treference\tani\taligned\ttotal",
		"A\tB\t97.0\t95\t100",
		"B\tA\t96.8\t92\t100",
		"A\tA\t100\t100\t100",
		"A\tC\t96\t80\t100",
		"",
		"C\tD\tbroken\t1\t2",
		"D\tE\t95.5\t90\t100",
		"E\tF\t99\t10",
	}, "\n")
	edges, summary, err := Filter(strings.NewReader(input), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !edgesEqual(edges, []Edge{{"A", "B"}, {"D", "E"}}) {
		t.Errorf("Filter edges failed: %v", edges)
	}
	if summary.Lines != 9 || summary.Records != 5 || summary.Accepted != 3 || summary.Duplicates != 1 ||
		summary.Rejected != 1 || summary.SelfPairs != 1 || summary.Malformed != 2 {
		t.Errorf("Filter summary failed: %+v", summary)
	}
	if len(summary.MalformedLines) != 2 || summary.MalformedLines[0] != 7 || summary.MalformedLines[1] != 9 {
		t.Errorf("Filter malformed lines failed: %v", summary.MalformedLines)
	}
	counts := summary.Counts()
	if counts[OutcomeAccepted] != 3 || counts[OutcomeMalformed] != 2 {
		t.Error("Summary counts failed")
	}
}

func TestFilterEitherDirection(t *testing.T) {
	for _, input := range []string{
		"A\tB\t97\t95\t100\nB\tA\t97\t40\t100\n",
		"B\tA\t97\t40\t100\nA\tB\t97\t95\t100\n",
	} {
		edges, summary, err := Filter(strings.NewReader(input), DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if !edgesEqual(edges, []Edge{{"A", "B"}}) {
			t.Errorf("Filter with one qualifying direction failed: %v", edges)
		}
		if summary.Accepted != 1 || summary.Rejected != 1 || summary.Duplicates != 0 {
			t.Errorf("Filter with one qualifying direction summary failed: %+v", summary)
		}
	}
}

func TestFilterLongMalformedLine(t *testing.T) {
	input := "A\tB\t97\t95\t100\n" + strings.Repeat("x", 70*1024) + "\nC\tD\t97\t95\t100\n"
	edges, summary, err := Filter(strings.NewReader(input), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !edgesEqual(edges, []Edge{{"A", "B"}, {"C", "D"}}) {
		t.Errorf("Filter around long line failed: %v", edges)
	}
	if summary.Malformed != 1 || len(summary.MalformedLines) != 1 || summary.MalformedLines[0] != 2 {
		t.Errorf("Filter long malformed line failed: %+v", summary.MalformedLines)
	}
}

func TestFilterMalformedErrors(t *testing.T) {
	input := "A\tB\t97\t95\t100\nC\tD\tbroken\t1\t2\nE\tF\t99\t10\n"
	_, summary, err := Filter(strings.NewReader(input), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.MalformedErrors) != 2 {
		t.Fatalf("Filter malformed errors failed: %v", summary.MalformedErrors)
	}
	if !strings.Contains(summary.MalformedErrors[0], "percent identity") ||
		!strings.Contains(summary.MalformedErrors[1], "expected 5 fields") {
		t.Errorf("Filter malformed error messages failed: %v", summary.MalformedErrors)
	}
}

func TestFilterStrict(t *testing.T) {
	input := "A\tB\t97\t95\t100\nC\tD\tbroken\t1\t2\n"
	opts := DefaultOptions()
	opts.Strict = true
	_, _, err := Filter(strings.NewReader(input), opts)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("strict Filter returned %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("strict Filter error misses line number: %v", err)
	}
}

func TestFilterInvalidThresholds(t *testing.T) {
	opts := DefaultOptions()
	opts.MinCoverage = 1.5
	if _, _, err := Filter(strings.NewReader("A\tB\t97\t95\t100\n"), opts); err == nil {
		t.Error("invalid thresholds not detected")
	}
}

func TestFilterLargeInputIsOrdered(t *testing.T) {
	var buf bytes.Buffer
	var expected []Edge
	for i := 0; i < 20000; i++ {
		a, b := fmt.Sprintf("q%06d", i), fmt.Sprintf("r%06d", i)
		fmt.Fprintf(&buf, "%v\t%v\t99\t10\t10\n", a, b)
		if i%1000 == 0 {
			fmt.Fprintf(&buf, "%v\tbad\n", a)
		}
		expected = append(expected, NewEdge(a, b))
	}
	edges, summary, err := Filter(&buf, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !edgesEqual(edges, expected) {
		t.Error("Filter large input not in input order")
	}
	if summary.Malformed != 20 || len(summary.MalformedLines) != MaxReportedMalformed || summary.MalformedLines[0] != 2 || summary.MalformedLines[1] != 1003 {
		t.Errorf("Filter large input malformed lines failed: %v %v", summary.Malformed, summary.MalformedLines)
	}
}

func TestWriteEdges(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEdges(&buf, []Edge{NewEdge("b", "a"), NewEdge("c", "d")}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "a\tb\nc\td\n" {
		t.Errorf("WriteEdges failed: %q", buf.String())
	}
}
