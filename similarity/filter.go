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
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/exascience/pargo/pipeline"

	"github.com/exascience/elvotu/internal"
	"github.com/exascience/elvotu/utils"
)

// MaxReportedMalformed is the number of malformed line numbers kept in
// a Summary.
const MaxReportedMalformed = 10

// Options control Filter.
type Options struct {
	Thresholds

	// Strict turns the first malformed record into an error. Otherwise
	// malformed records are skipped and counted.
	Strict bool

	// Threads bounds the number of parsing goroutines; 0 means
	// runtime.GOMAXPROCS(0).
	Threads int
}

// DefaultOptions returns the default thresholds in lenient mode.
func DefaultOptions() Options {
	return Options{Thresholds: DefaultThresholds()}
}

// Summary describes the outcome of a Filter run.
type Summary struct {
	Lines      int // all input lines, including comments and blank lines
	Records    int // well-formed records
	Accepted   int
	Rejected   int
	SelfPairs  int
	Duplicates int // accepted records whose edge was already seen
	Malformed  int

	// MalformedLines holds the 1-based numbers of the first
	// MaxReportedMalformed malformed lines, and MalformedErrors the
	// corresponding parse errors.
	MalformedLines  []int
	MalformedErrors []string
}

// Log prints the summary with the standard logger.
func (s Summary) Log() {
	log.Printf("Read %v similarity records: %v accepted, %v rejected, %v self pairs, %v duplicate edges.\n",
		s.Records, s.Accepted, s.Rejected, s.SelfPairs, s.Duplicates)
	if s.Malformed > 0 {
		log.Printf("Warning: skipped %v malformed similarity records, first on lines %v.\n", s.Malformed, s.MalformedLines)
		for i, line := range s.MalformedLines {
			log.Printf("Warning: %v, on similarity line %v.\n", s.MalformedErrors[i], line)
		}
	}
}

// Record outcomes, also used as metric labels.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeSelf      = "self"
	OutcomeMalformed = "malformed"
)

// Counts returns the number of records per outcome.
func (s Summary) Counts() map[string]int {
	return map[string]int{
		OutcomeAccepted:  s.Accepted,
		OutcomeRejected:  s.Rejected,
		OutcomeSelf:      s.SelfPairs,
		OutcomeMalformed: s.Malformed,
	}
}

type malformedLine struct {
	index int
	err   error
}

type batch struct {
	lines     int
	records   int
	rejected  int
	selfPairs int
	accepted  []Edge
	malformed []malformedLine
}

func skipLine(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || line[0] == '#'
}

func parseBatch(lines []string, t Thresholds) (b batch) {
	b.lines = len(lines)
	for i, line := range lines {
		if skipLine(line) {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			b.malformed = append(b.malformed, malformedLine{index: i, err: err})
			continue
		}
		b.records++
		switch {
		case rec.Query == rec.Reference:
			b.selfPairs++
		case t.Accept(rec):
			b.accepted = append(b.accepted, NewEdge(rec.Query, rec.Reference))
		default:
			b.rejected++
		}
	}
	return b
}

// Filter reads similarity records and returns the distinct qualifying
// edges in the order in which they are first encountered.
//
// Lines are parsed in parallel, but batches are merged in input order,
// so the result does not depend on scheduling.
func Filter(r io.Reader, opts Options) (edges []Edge, summary Summary, err error) {
	if err = opts.Validate(); err != nil {
		return nil, summary, err
	}
	seen := make(map[Edge]bool)

	scanner := pipeline.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<30)

	var p pipeline.Pipeline
	p.Source(scanner)
	p.Add(pipeline.LimitedPar(opts.Threads, pipeline.Receive(func(_ int, data interface{}) interface{} {
		return parseBatch(data.([]string), opts.Thresholds)
	})))
	p.Add(pipeline.Ord(pipeline.Receive(func(_ int, data interface{}) interface{} {
		b := data.(batch)
		for _, m := range b.malformed {
			lineNo := summary.Lines + m.index + 1
			if opts.Strict {
				p.SetErr(fmt.Errorf("%w, on similarity line %v", m.err, lineNo))
				return data
			}
			if len(summary.MalformedLines) < MaxReportedMalformed {
				summary.MalformedLines = append(summary.MalformedLines, lineNo)
				summary.MalformedErrors = append(summary.MalformedErrors, m.err.Error())
			}
		}
		summary.Lines += b.lines
		summary.Records += b.records
		summary.Rejected += b.rejected
		summary.SelfPairs += b.selfPairs
		summary.Malformed += len(b.malformed)
		summary.Accepted += len(b.accepted)
		for _, e := range b.accepted {
			if seen[e] {
				summary.Duplicates++
				continue
			}
			seen[e] = true
			edges = append(edges, e)
		}
		return data
	})))
	p.Run()
	if err = p.Err(); err != nil {
		return nil, summary, err
	}
	return edges, summary, nil
}

// FilterFile runs Filter on a file, which may be gzip compressed.
func FilterFile(filename string, opts Options) (edges []Edge, summary Summary, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, summary, err
	}
	defer internal.CloseWithErr(file, &err)
	r, err := utils.HandleGzip(bufio.NewReader(file))
	if err != nil {
		return nil, summary, fmt.Errorf("%v, while opening %v", err, filename)
	}
	if edges, summary, err = Filter(r, opts); err != nil {
		return nil, summary, fmt.Errorf("%w, in %v", err, filename)
	}
	return edges, summary, nil
}

// WriteEdges writes one "a<TAB>b" line per edge.
func WriteEdges(w io.Writer, edges []Edge) error {
	out := bufio.NewWriter(w)
	for _, e := range edges {
		if _, err := fmt.Fprintf(out, "%s\t%s\n", e.A, e.B); err != nil {
			return err
		}
	}
	return out.Flush()
}
