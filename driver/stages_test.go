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

package driver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/exascience/elvotu/abundance"
	"github.com/exascience/elvotu/cluster"
	"github.com/exascience/elvotu/similarity"
	"github.com/exascience/elvotu/utils"
)

const (
	testSequences  = ">A\n" + "ACGTACGTAC\n" + ">B\nACGTACGTACGT\n>C\nACG\n"
	testSimilarity = "A\tB\t97.5\t95\t100\nB\tA\t97.1\t93\t100\nA\tC\t80\t10\t100\nC\tC\t100\t100\t100\nbroken line\n"
)

func writeTestFile(t *testing.T, path, contents string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0666))
	return path
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func testClusterOptions(dir string) ClusterOptions {
	return ClusterOptions{
		Similarity:      filepath.Join(dir, "ani.tsv"),
		Sequences:       filepath.Join(dir, "derep.fna"),
		Filter:          similarity.DefaultOptions(),
		Prefix:          cluster.DefaultPrefix,
		SampleSeparator: "_",
		OutputDir:       filepath.Join(dir, "out"),
	}
}

func TestClusterStage(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "derep.fna"), testSequences)
	writeTestFile(t, filepath.Join(dir, "ani.tsv"), testSimilarity)

	result, err := Cluster(testClusterOptions(dir), utils.NewMetrics())
	require.NoError(t, err)
	require.Equal(t, 2, result.Build.Clusters)
	require.Equal(t, 1, result.Filter.Malformed)
	require.Equal(t, 1, result.Filter.SelfPairs)
	require.Equal(t, "B", result.Representatives[0].ID)
	require.Equal(t, "C", result.Representatives[1].ID)

	out := filepath.Join(dir, "out")
	require.Equal(t, "A\tB\n", readTestFile(t, filepath.Join(out, EdgesFile)))
	require.Equal(t, "sequence_id\tvOTU\nA\tvOTU_1\nB\tvOTU_1\nC\tvOTU_2\n", readTestFile(t, filepath.Join(out, ClusterMapFile)))
	require.Equal(t, "vOTU\trepresentative\tlength\tmembers\tsamples\nvOTU_1\tB\t12\t2\t2\nvOTU_2\tC\t3\t1\t1\n",
		readTestFile(t, filepath.Join(out, RepresentativesFile)))
	require.Equal(t, ">B\nACGTACGTACGT\n>C\nACG\n", readTestFile(t, result.RepresentativeSequences))
}

func TestClusterStageIsReproducible(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "derep.fna"), testSequences)
	writeTestFile(t, filepath.Join(dir, "ani.tsv"), testSimilarity)

	opts := testClusterOptions(dir)
	_, err := Cluster(opts, utils.NewMetrics())
	require.NoError(t, err)
	first := readTestFile(t, filepath.Join(opts.OutputDir, ClusterMapFile))
	firstReps := readTestFile(t, filepath.Join(opts.OutputDir, RepresentativeSequencesFile))

	_, err = Cluster(opts, utils.NewMetrics())
	require.NoError(t, err)
	require.Equal(t, first, readTestFile(t, filepath.Join(opts.OutputDir, ClusterMapFile)))
	require.Equal(t, firstReps, readTestFile(t, filepath.Join(opts.OutputDir, RepresentativeSequencesFile)))
}

func TestClusterStageLengthsOnly(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "lengths.tsv"), "A\t10000\nB\t11000\nC\t3000\n")
	writeTestFile(t, filepath.Join(dir, "ani.tsv"), testSimilarity)

	opts := testClusterOptions(dir)
	opts.Sequences = filepath.Join(dir, "lengths.tsv")
	opts.LengthsOnly = true
	result, err := Cluster(opts, utils.NewMetrics())
	require.NoError(t, err)
	require.Empty(t, result.RepresentativeSequences)
	require.Equal(t, "B", result.Representatives[0].ID)
	_, err = os.Stat(filepath.Join(opts.OutputDir, RepresentativeSequencesFile))
	require.True(t, os.IsNotExist(err))
}

func TestClusterStageErrors(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "derep.fna"), "")
	writeTestFile(t, filepath.Join(dir, "ani.tsv"), testSimilarity)
	_, err := Cluster(testClusterOptions(dir), utils.NewMetrics())
	require.True(t, errors.Is(err, ErrNoSequences))

	writeTestFile(t, filepath.Join(dir, "derep.fna"), ">A\nAC\n>C\nACG\n")
	_, err = Cluster(testClusterOptions(dir), utils.NewMetrics())
	require.True(t, errors.Is(err, cluster.ErrUnknownSequence))

	opts := testClusterOptions(dir)
	opts.AllowUnknown = true
	result, err := Cluster(opts, utils.NewMetrics())
	require.NoError(t, err)
	require.Equal(t, 1, result.Build.UnknownEdges)
	require.Equal(t, 2, result.Build.Clusters)
}

func TestFilterEdgesStage(t *testing.T) {
	dir := t.TempDir()
	input := writeTestFile(t, filepath.Join(dir, "ani.tsv"), testSimilarity)
	output := filepath.Join(dir, "edges.tsv")
	summary, err := FilterEdges(input, output, similarity.DefaultOptions(), utils.NewMetrics())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Accepted)
	require.Equal(t, 1, summary.Duplicates)
	require.Equal(t, "A\tB\n", readTestFile(t, output))

	opts := similarity.DefaultOptions()
	opts.Strict = true
	_, err = FilterEdges(input, filepath.Join(dir, "strict.tsv"), opts, utils.NewMetrics())
	require.True(t, errors.Is(err, similarity.ErrMalformed))
	_, err = os.Stat(filepath.Join(dir, "strict.tsv"))
	require.True(t, os.IsNotExist(err))
}

func TestMatrixStage(t *testing.T) {
	dir := t.TempDir()
	quant := filepath.Join(dir, "quant")
	writeTestFile(t, filepath.Join(quant, "A.tsv"), "Contig\tTPM\nrep1\t5.0\nrep2\t0.2\n")
	writeTestFile(t, filepath.Join(quant, "B.tsv"), "Contig\tTPM\nrep2\t1.1\nrep3\t9.9\n")
	output := filepath.Join(dir, "matrix.tsv")

	opts := MatrixOptions{Dir: quant, Suffix: ".tsv", Expected: []string{"A", "B"}, Output: output}
	matrix, err := Matrix(opts, utils.NewMetrics())
	require.NoError(t, err)
	require.Equal(t, []string{"rep1", "rep2", "rep3"}, matrix.Rows)
	require.Equal(t, "vOTU\tA\tB\nrep1\t5\t0\nrep2\t0.2\t1.1\nrep3\t0\t9.9\n", readTestFile(t, output))

	missing := filepath.Join(dir, "missing.tsv")
	opts.Expected = []string{"A", "B", "C"}
	opts.Output = missing
	_, err = Matrix(opts, utils.NewMetrics())
	require.True(t, errors.Is(err, abundance.ErrMissingSample))
	_, err = os.Stat(missing)
	require.True(t, os.IsNotExist(err))
}
