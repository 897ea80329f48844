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
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/exascience/elvotu/abundance"
	"github.com/exascience/elvotu/similarity"
)

func TestExpand(t *testing.T) {
	args := Expand(
		[]string{"tool", "--in={sequences}", "{reads}", "-o", "{output}", "{unknown}", "{sample}.{sample}"},
		map[string]string{"sequences": "derep.fna", "output": "out.tsv", "sample": "S1"},
		[]string{"r1.fq", "r2.fq"})
	require.Equal(t, []string{"tool", "--in=derep.fna", "r1.fq", "r2.fq", "-o", "out.tsv", "{unknown}", "S1.S1"}, args)

	require.Equal(t, []string{"tool"}, Expand([]string{"tool", "{reads}"}, nil, nil))
}

func newTestRun(t *testing.T, cfg Config) *Run {
	t.Helper()
	require.NoError(t, cfg.Validate())
	run, err := NewRun(cfg)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(filepath.Base(run.Dir), "elvotu-"+run.ID))
	return run
}

func testConfig(dir string) Config {
	cfg := DefaultConfig()
	cfg.WorkDir = filepath.Join(dir, "work")
	cfg.Sequences = filepath.Join(dir, "derep.fna")
	cfg.Similarity = filepath.Join(dir, "ani.tsv")
	cfg.QuantificationDir = filepath.Join(dir, "quant")
	cfg.Samples = []Sample{{Name: "S1"}, {Name: "S2"}}
	return cfg
}

func TestRunWithExistingTables(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "derep.fna"), testSequences)
	writeTestFile(t, filepath.Join(dir, "ani.tsv"), testSimilarity)
	writeTestFile(t, filepath.Join(dir, "quant", "S1.tsv"), "Contig\tTPM\nB\t12.5\n")
	writeTestFile(t, filepath.Join(dir, "quant", "S2.tsv"), "Contig\tTPM\nC\t3\nB\t0.5\n")

	run := newTestRun(t, testConfig(dir))
	require.NoError(t, run.Execute())

	require.Equal(t, "sequence_id\tvOTU\nA\tvOTU_1\nB\tvOTU_1\nC\tvOTU_2\n", readTestFile(t, filepath.Join(run.Dir, ClusterMapFile)))
	require.Equal(t, "vOTU\tS1\tS2\nB\t12.5\t0.5\nC\t0\t3\n", readTestFile(t, run.MatrixPath()))
	require.Equal(t, filepath.Join(run.Dir, MatrixFile), run.MatrixPath())
}

func TestRunMissingSample(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "derep.fna"), testSequences)
	writeTestFile(t, filepath.Join(dir, "ani.tsv"), testSimilarity)
	writeTestFile(t, filepath.Join(dir, "quant", "S1.tsv"), "Contig\tTPM\nB\t12.5\n")

	run := newTestRun(t, testConfig(dir))
	err := run.Execute()
	require.True(t, errors.Is(err, abundance.ErrMissingSample))
	_, err = os.Stat(run.MatrixPath())
	require.True(t, os.IsNotExist(err))
}

func TestRunStrict(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "derep.fna"), testSequences)
	writeTestFile(t, filepath.Join(dir, "ani.tsv"), testSimilarity)

	cfg := testConfig(dir)
	cfg.Strict = true
	run := newTestRun(t, cfg)
	require.True(t, errors.Is(run.Execute(), similarity.ErrMalformed))
	_, err := os.Stat(filepath.Join(run.Dir, ClusterMapFile))
	require.True(t, os.IsNotExist(err))
}

func TestRunDry(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Compare = &Command{Args: []string{"compare-tool", "{sequences}", "{output}"}}
	cfg.Quantify = &Command{Args: []string{"quantify-tool", "{representatives}", "{reads}", "{output}"}}
	cfg.Samples = []Sample{{Name: "S1", Reads: []string{"S1.fq"}}}

	run := newTestRun(t, cfg)
	run.DryRun = true
	require.NoError(t, run.Execute())
	require.Equal(t, filepath.Join(run.Dir, SimilarityFile), run.SimilarityPath())
	_, err := os.Stat(run.Dir)
	require.True(t, os.IsNotExist(err))
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell available")
	}
}

func TestRunWithCommands(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "derep.fna"), testSequences)
	writeTestFile(t, filepath.Join(dir, "ani.tsv"), testSimilarity)

	cfg := testConfig(dir)
	cfg.QuantificationDir = ""
	cfg.Compare = &Command{Args: []string{"cp", filepath.Join(dir, "ani.tsv"), "{output}"}}
	// The "reads" of these samples are the row the command writes.
	cfg.Quantify = &Command{Args: []string{"sh", "-c",
		`printf 'Contig\tTPM\n%s\t%s\n' "$2" "$3" > "$1"`, "quantify", "{output}", "{reads}"}}
	cfg.Samples = []Sample{
		{Name: "S1", Reads: []string{"B", "7"}},
		{Name: "S2", Reads: []string{"C", "1.5"}},
	}
	cfg.Matrix = filepath.Join(dir, "matrix.tsv")

	run := newTestRun(t, cfg)
	require.NoError(t, run.Execute())
	require.FileExists(t, filepath.Join(run.Dir, SimilarityFile))
	require.FileExists(t, run.QuantificationPath("S1"))
	require.Equal(t, "vOTU\tS1\tS2\nB\t7\t0\nC\t0\t1.5\n", readTestFile(t, cfg.Matrix))
}

func TestRunFailingQuantification(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "derep.fna"), testSequences)
	writeTestFile(t, filepath.Join(dir, "ani.tsv"), testSimilarity)

	cfg := testConfig(dir)
	cfg.QuantificationDir = ""
	cfg.Quantify = &Command{Args: []string{"sh", "-c",
		`if [ "$1" = S2 ]; then echo "no reads" >&2; exit 3; fi; printf 'Contig\tTPM\nB\t1\n' > "$2"`, "quantify", "{sample}", "{output}"}}
	cfg.Matrix = filepath.Join(dir, "matrix.tsv")

	run := newTestRun(t, cfg)
	err := run.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "sample S2")
	_, err = os.Stat(cfg.Matrix)
	require.True(t, os.IsNotExist(err))
}
