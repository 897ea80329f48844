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

// Package driver runs the aggregation stages, either one at a time for
// the individual elvotu commands or all in sequence for a configured
// run.
package driver

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/exascience/elvotu/abundance"
	"github.com/exascience/elvotu/cluster"
	"github.com/exascience/elvotu/fasta"
	"github.com/exascience/elvotu/internal"
	"github.com/exascience/elvotu/similarity"
	"github.com/exascience/elvotu/utils"
)

// ErrNoSequences is returned when the sequence input is empty.
var ErrNoSequences = errors.New("no sequences found")

// Names of the files written by the cluster stage.
const (
	EdgesFile                   = "edges.tsv"
	ClusterMapFile              = "clusters.tsv"
	RepresentativesFile         = "representatives.tsv"
	RepresentativeSequencesFile = "representatives.fna"
)

// writeFile creates filename and fills it using write. On failure the
// file is removed.
func writeFile(filename string, write func(io.Writer) error) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	err = write(file)
	internal.CloseWithErr(file, &err)
	if err != nil {
		_ = os.Remove(filename)
		return fmt.Errorf("%v, while writing %v", err, filename)
	}
	return nil
}

func phase(m *utils.Metrics, name string, start time.Time) {
	m.PhaseSeconds.WithLabelValues(name).Set(time.Since(start).Seconds())
}

func filterEdges(input string, opts similarity.Options, m *utils.Metrics) ([]similarity.Edge, similarity.Summary, error) {
	defer phase(m, "filter", time.Now())
	edges, summary, err := similarity.FilterFile(input, opts)
	if err != nil {
		return nil, summary, err
	}
	summary.Log()
	for outcome, n := range summary.Counts() {
		m.SimilarityRecords.WithLabelValues(outcome).Add(float64(n))
	}
	m.Edges.Set(float64(len(edges)))
	return edges, summary, nil
}

// FilterEdges filters a similarity table and writes the qualifying
// edges to output.
func FilterEdges(input, output string, opts similarity.Options, m *utils.Metrics) (similarity.Summary, error) {
	edges, summary, err := filterEdges(input, opts, m)
	if err != nil {
		return summary, err
	}
	err = writeFile(output, func(w io.Writer) error {
		return similarity.WriteEdges(w, edges)
	})
	return summary, err
}

// ClusterOptions configure the cluster stage.
type ClusterOptions struct {
	Similarity string
	Sequences  string

	// LengthsOnly indicates that Sequences is an "id<TAB>length" table
	// rather than a FASTA file. No representative sequences are
	// written in that case.
	LengthsOnly bool

	Filter          similarity.Options
	AllowUnknown    bool
	Prefix          string
	SampleSeparator string
	OutputDir       string
}

// ClusterResult describes the outcome of the cluster stage.
type ClusterResult struct {
	Clusters        []cluster.Cluster
	Representatives []cluster.Representative
	Filter          similarity.Summary
	Build           cluster.Summary

	// RepresentativeSequences is the path of the representative FASTA
	// file, or empty if none was written.
	RepresentativeSequences string
}

func loadSequences(opts ClusterOptions) (records []fasta.Record, ids []string, lengths map[string]int, err error) {
	if opts.LengthsOnly {
		ids, lengths, err = fasta.ParseLengthsFile(opts.Sequences)
	} else if records, err = fasta.ParseFile(opts.Sequences); err == nil {
		ids, lengths = fasta.Lengths(records)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	if len(ids) == 0 {
		return nil, nil, nil, fmt.Errorf("%w in %v", ErrNoSequences, opts.Sequences)
	}
	return records, ids, lengths, nil
}

// Cluster filters the similarity table, clusters all sequences, picks
// the representatives and writes the cluster outputs to OutputDir.
func Cluster(opts ClusterOptions, m *utils.Metrics) (result *ClusterResult, err error) {
	start := time.Now()
	records, ids, lengths, err := loadSequences(opts)
	if err != nil {
		return nil, err
	}
	phase(m, "sequences", start)
	log.Printf("Read %v sequences from %v.\n", len(ids), opts.Sequences)
	m.Sequences.Set(float64(len(ids)))

	result = new(ClusterResult)
	edges, summary, err := filterEdges(opts.Similarity, opts.Filter, m)
	if err != nil {
		return nil, err
	}
	result.Filter = summary

	start = time.Now()
	if result.Clusters, result.Build, err = cluster.Build(ids, edges, opts.AllowUnknown); err != nil {
		return nil, fmt.Errorf("%w, while clustering %v", err, opts.Similarity)
	}
	if result.Build.UnknownEdges > 0 {
		log.Printf("Warning: skipped %v edges with sequences not in %v.\n", result.Build.UnknownEdges, opts.Sequences)
	}
	log.Printf("Formed %v vOTUs from %v sequences, %v of them singletons.\n", result.Build.Clusters, result.Build.Sequences, result.Build.Singletons)
	m.UnknownEdges.Set(float64(result.Build.UnknownEdges))
	m.Clusters.Set(float64(result.Build.Clusters))
	m.Singletons.Set(float64(result.Build.Singletons))

	if result.Representatives, err = cluster.SelectRepresentatives(result.Clusters, lengths, opts.SampleSeparator); err != nil {
		return nil, err
	}
	phase(m, "cluster", start)

	if err = os.MkdirAll(opts.OutputDir, 0700); err != nil {
		return nil, err
	}
	if err = writeFile(filepath.Join(opts.OutputDir, EdgesFile), func(w io.Writer) error {
		return similarity.WriteEdges(w, edges)
	}); err != nil {
		return nil, err
	}
	if err = writeFile(filepath.Join(opts.OutputDir, ClusterMapFile), func(w io.Writer) error {
		return cluster.WriteClusterMap(w, result.Clusters, opts.Prefix)
	}); err != nil {
		return nil, err
	}
	if err = writeFile(filepath.Join(opts.OutputDir, RepresentativesFile), func(w io.Writer) error {
		return cluster.WriteRepresentatives(w, result.Representatives, opts.Prefix)
	}); err != nil {
		return nil, err
	}
	if records != nil {
		seqs, err := cluster.ExtractSequences(result.Representatives, records)
		if err != nil {
			return nil, err
		}
		result.RepresentativeSequences = filepath.Join(opts.OutputDir, RepresentativeSequencesFile)
		if err := fasta.WriteFile(result.RepresentativeSequences, seqs); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// MatrixOptions configure the matrix stage. If Files is empty, the
// tables are looked up in Dir.
type MatrixOptions struct {
	Dir      string
	Files    []string
	Suffix   string
	Source   abundance.SampleSource
	Expected []string
	Output   string
	Threads  int
}

// Matrix reads all per-sample tables and writes the abundance matrix.
// Nothing is written if a table is missing or cannot be read.
func Matrix(opts MatrixOptions, m *utils.Metrics) (*abundance.Matrix, error) {
	defer phase(m, "matrix", time.Now())
	files := opts.Files
	if len(files) == 0 {
		var err error
		if files, err = abundance.FindTables(opts.Dir, opts.Suffix); err != nil {
			return nil, err
		}
	}
	tables, err := abundance.ReadTables(files, opts.Suffix, opts.Source, opts.Threads)
	if err != nil {
		return nil, err
	}
	if err := abundance.CheckExpected(tables, opts.Expected); err != nil {
		return nil, err
	}
	matrix, err := abundance.Assemble(tables)
	if err != nil {
		return nil, err
	}
	if err := matrix.WriteFile(opts.Output); err != nil {
		return nil, err
	}
	log.Printf("Wrote abundance matrix with %v vOTUs and %v samples to %v.\n", len(matrix.Rows), len(matrix.Samples), opts.Output)
	m.Samples.Set(float64(len(matrix.Samples)))
	m.MatrixRows.Set(float64(len(matrix.Rows)))
	m.NonZeroCells.Set(float64(matrix.NonZero()))
	return matrix, nil
}
