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
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/exascience/pargo/parallel"
	"github.com/google/uuid"

	"github.com/exascience/elvotu/abundance"
	"github.com/exascience/elvotu/internal"
	"github.com/exascience/elvotu/similarity"
	"github.com/exascience/elvotu/utils"
)

// Names of the files a run creates in its directory, in addition to
// those of the cluster stage.
const (
	SimilarityFile    = "similarity.tsv"
	QuantificationDir = "quantification"
	MatrixFile        = "abundance.tsv"
)

// A Run executes a configured aggregation in its own directory below
// the configured work directory.
type Run struct {
	ID      string
	Dir     string
	Config  Config
	Metrics *utils.Metrics

	// DryRun only logs the external commands and artifact paths.
	DryRun bool
}

// NewRun assigns a unique identifier and directory to a run.
func NewRun(cfg Config) (*Run, error) {
	uid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	workDir, err := internal.FullPathname(cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	return &Run{
		ID:      uid.String(),
		Dir:     filepath.Join(workDir, "elvotu-"+uid.String()),
		Config:  cfg,
		Metrics: utils.NewMetrics(),
	}, nil
}

func (r *Run) threads() int {
	if r.Config.Threads > 0 {
		return r.Config.Threads
	}
	return runtime.NumCPU()
}

// SimilarityPath is the similarity table the run clusters.
func (r *Run) SimilarityPath() string {
	if r.Config.Compare != nil {
		return filepath.Join(r.Dir, SimilarityFile)
	}
	return r.Config.Similarity
}

// MatrixPath is where the abundance matrix is written.
func (r *Run) MatrixPath() string {
	if r.Config.Matrix != "" {
		return r.Config.Matrix
	}
	return filepath.Join(r.Dir, MatrixFile)
}

// QuantificationPath is the table the quantify command writes for a
// sample.
func (r *Run) QuantificationPath(sample string) string {
	return filepath.Join(r.Dir, QuantificationDir, sample+".tsv")
}

// Expand substitutes placeholders of the form {name} in args. An
// argument that is exactly {reads} is replaced by all read files.
func Expand(args []string, vars map[string]string, reads []string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	replacer := strings.NewReplacer(pairs...)
	result := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "{reads}" {
			result = append(result, reads...)
			continue
		}
		result = append(result, replacer.Replace(arg))
	}
	return result
}

func (r *Run) runCommand(args []string) error {
	log.Println("Running", strings.Join(args, " "))
	if r.DryRun {
		return nil
	}
	return internal.RunCmd(exec.Command(args[0], args[1:]...))
}

func (r *Run) compare() error {
	defer phase(r.Metrics, "compare", time.Now())
	args := Expand(r.Config.Compare.Args, map[string]string{
		"sequences": r.Config.Sequences,
		"output":    r.SimilarityPath(),
		"threads":   strconv.Itoa(r.threads()),
		"dir":       r.Dir,
	}, nil)
	if err := r.runCommand(args); err != nil {
		return fmt.Errorf("%v, while comparing sequences", err)
	}
	return nil
}

// quantify runs the quantify command for every sample, with at most
// Threads commands at the same time. It returns the tables in sample
// order, or the first failure in sample order.
func (r *Run) quantify(representatives string) ([]string, error) {
	defer phase(r.Metrics, "quantify", time.Now())
	samples := r.Config.Samples
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples to quantify", abundance.ErrMissingSample)
	}
	if !r.DryRun {
		if err := os.MkdirAll(filepath.Join(r.Dir, QuantificationDir), 0700); err != nil {
			return nil, err
		}
	}
	concurrent := r.threads()
	if concurrent > len(samples) {
		concurrent = len(samples)
	}
	perProcess := r.threads() / concurrent
	if perProcess < 1 {
		perProcess = 1
	}
	files := make([]string, len(samples))
	errs := make([]error, len(samples))
	parallel.Range(0, len(samples), concurrent, func(low, high int) {
		for i := low; i < high; i++ {
			s := samples[i]
			files[i] = r.QuantificationPath(s.Name)
			args := Expand(r.Config.Quantify.Args, map[string]string{
				"sample":          s.Name,
				"representatives": representatives,
				"output":          files[i],
				"threads":         strconv.Itoa(perProcess),
				"dir":             r.Dir,
			}, s.Reads)
			if err := r.runCommand(args); err != nil {
				errs[i] = fmt.Errorf("%v, while quantifying sample %v", err, s.Name)
			}
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (r *Run) sampleNames() []string {
	names := make([]string, len(r.Config.Samples))
	for i, s := range r.Config.Samples {
		names[i] = s.Name
	}
	return names
}

// Execute runs all stages in order. A failure of any stage aborts the
// run; in particular, the matrix is not assembled if the
// quantification of any sample fails.
func (r *Run) Execute() (err error) {
	cfg := r.Config
	log.Printf("Starting run %v in %v.\n", r.ID, r.Dir)
	if !r.DryRun {
		if err := os.MkdirAll(r.Dir, 0700); err != nil {
			return err
		}
	}

	if cfg.Compare != nil {
		if err := r.compare(); err != nil {
			return err
		}
	}

	representatives := filepath.Join(r.Dir, RepresentativeSequencesFile)
	if r.DryRun {
		log.Printf("Would cluster %v using %v into %v.\n", cfg.Sequences, r.SimilarityPath(), r.Dir)
	} else {
		result, err := Cluster(ClusterOptions{
			Similarity: r.SimilarityPath(),
			Sequences:  cfg.Sequences,
			Filter: similarity.Options{
				Thresholds: cfg.Thresholds,
				Strict:     cfg.Strict,
				Threads:    cfg.Threads,
			},
			AllowUnknown:    cfg.AllowUnknown,
			Prefix:          cfg.ClusterPrefix,
			SampleSeparator: cfg.SampleSeparator,
			OutputDir:       r.Dir,
		}, r.Metrics)
		if err != nil {
			return err
		}
		representatives = result.RepresentativeSequences
	}

	source, err := abundance.ParseSampleSource(cfg.SampleFrom)
	if err != nil {
		return err
	}
	opts := MatrixOptions{
		Dir:      cfg.QuantificationDir,
		Suffix:   cfg.QuantificationSuffix,
		Source:   source,
		Expected: r.sampleNames(),
		Output:   r.MatrixPath(),
		Threads:  cfg.Threads,
	}
	if cfg.Quantify != nil {
		if opts.Files, err = r.quantify(representatives); err != nil {
			return err
		}
		opts.Suffix = ".tsv"
		opts.Source = abundance.FromFilename
	}
	if r.DryRun {
		log.Printf("Would write abundance matrix to %v.\n", opts.Output)
		return nil
	}
	if _, err = Matrix(opts, r.Metrics); err != nil {
		return err
	}
	log.Printf("Finished run %v.\n", r.ID)
	return nil
}
