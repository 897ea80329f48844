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

package cmd

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/exascience/elvotu/driver"
)

// MetricsFile is the name of the metrics file a run writes to its
// directory when no --metrics-file is given.
const MetricsFile = "metrics.prom"

// RunHelp is the help string for this command.
const RunHelp = "\nrun parameters:\n" +
	"elvotu run config-file\n" +
	"[--dry-run]\n" +
	"[--nr-of-threads n]\n" +
	"[--timed]\n" +
	"[--log-path path]\n" +
	"[--metrics-file file]\n"

// RunExtendedHelp is the extended help string for this command.
const RunExtendedHelp = RunHelp +
	"\nThe config file is YAML with the following keys:\n" +
	"work_dir: directory for the per-run directories (required)\n" +
	"sequences: dereplicated FASTA file of all samples (required)\n" +
	"similarity: existing similarity table, or\n" +
	"compare: {args: [tool, ..., \"{sequences}\", ..., \"{output}\"]}\n" +
	"thresholds: {ani: 0.95, min_coverage: 0.85}\n" +
	"strict, allow_unknown: true or false\n" +
	"cluster_prefix, sample_separator: as for elvotu cluster\n" +
	"samples: [{name: S1, reads: [S1_R1.fq.gz, S1_R2.fq.gz]}, ...]\n" +
	"quantify: {args: [tool, ..., \"{representatives}\", \"{reads}\", ..., \"{output}\"]}, or\n" +
	"quantification_dir, quantification_suffix, sample_from: as for elvotu matrix\n" +
	"matrix: output file (default: " + driver.MatrixFile + " in the run directory)\n" +
	"threads: thread budget for parsing and concurrent quantification\n" +
	"\nCommand arguments may use {sequences}, {representatives}, {sample},\n" +
	"{reads}, {output}, {threads} and {dir}, the run directory.\n"

// Run implements the elvotu run command.
func Run() error {
	var (
		profile, logPath, metrics string
		nrOfThreads               int
		dryRun, timed             bool
	)

	flags := flag.NewFlagSet("run", flag.ContinueOnError)

	flags.BoolVar(&dryRun, "dry-run", false, "only print the commands that would be run")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads, overrides the config file")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	flags.StringVar(&metrics, "metrics-file", "", "write run metrics to the specified file")

	parseFlags(flags, 3, RunHelp)

	configFile := getFilename(os.Args[2], RunHelp)

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	var cfg driver.Config
	if !checkExist("", configFile) {
		sanityChecksFailed = true
	} else {
		var err error
		if cfg, err = driver.LoadConfig(configFile); err != nil {
			log.Printf("Error: %v in %v.\n", err, configFile)
			sanityChecksFailed = true
		} else {
			if !checkExist("sequences", cfg.Sequences) {
				sanityChecksFailed = true
			}
			if cfg.Compare == nil && !checkExist("similarity", cfg.Similarity) {
				sanityChecksFailed = true
			}
			if cfg.Quantify == nil && !checkDir("quantification_dir", cfg.QuantificationDir) {
				sanityChecksFailed = true
			}
			if cfg.Matrix != "" && !checkCreate("matrix", cfg.Matrix) {
				sanityChecksFailed = true
			}
			if !checkCreateDir("work_dir", cfg.WorkDir) {
				sanityChecksFailed = true
			}
		}
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}
	if metrics != "" && !checkCreate("--metrics-file", metrics) {
		sanityChecksFailed = true
	}
	if !checkThreads(nrOfThreads) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, RunHelp)
		os.Exit(1)
	}

	if nrOfThreads > 0 {
		cfg.Threads = nrOfThreads
	}
	if cfg.Threads > 0 {
		runtime.GOMAXPROCS(cfg.Threads)
	}

	run, err := driver.NewRun(cfg)
	if err != nil {
		return err
	}
	run.DryRun = dryRun
	if metrics == "" && !dryRun {
		metrics = filepath.Join(run.Dir, MetricsFile)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " run ", configFile)
	if dryRun {
		fmt.Fprint(&command, " --dry-run")
	}
	if nrOfThreads > 0 {
		fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
	}
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if profile != "" {
		fmt.Fprint(&command, " --profile ", profile)
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}
	if metrics != "" {
		fmt.Fprint(&command, " --metrics-file ", metrics)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	if err := timedRun(timed, profile, "Running vOTU aggregation.", 1, run.Execute); err != nil {
		return fmt.Errorf("%v, in run %v", err, run.ID)
	}
	if dryRun {
		return nil
	}
	return writeMetrics(metrics, run.Metrics)
}
