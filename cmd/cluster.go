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
	"runtime"

	"github.com/exascience/elvotu/cluster"
	"github.com/exascience/elvotu/driver"
	"github.com/exascience/elvotu/similarity"
	"github.com/exascience/elvotu/utils"
)

// ClusterHelp is the help string for this command.
const ClusterHelp = "\ncluster parameters:\n" +
	"elvotu cluster similarity-file sequences-file output-directory\n" +
	"[--ani f]\n" +
	"[--min-coverage f]\n" +
	"[--strict]\n" +
	"[--lengths]\n" +
	"[--prefix label]\n" +
	"[--sample-separator s]\n" +
	"[--allow-unknown]\n" +
	"[--nr-of-threads n]\n" +
	"[--timed]\n" +
	"[--log-path path]\n" +
	"[--metrics-file file]\n"

// ClusterExtendedHelp is the extended help string for this command.
const ClusterExtendedHelp = ClusterHelp +
	"\nThe sequences file is a FASTA file, or with --lengths a table of\n" +
	"id<TAB>length rows. All sequences connected by qualifying pairs form\n" +
	"one vOTU. The output directory receives " + driver.EdgesFile + ", " + driver.ClusterMapFile + ",\n" +
	driver.RepresentativesFile + " and, for FASTA input, " + driver.RepresentativeSequencesFile + ".\n" +
	"The representative of a vOTU is its longest member, ties broken by\n" +
	"the smallest identifier. The sample of a sequence is the part of its\n" +
	"identifier before --sample-separator (default _).\n"

// Cluster implements the elvotu cluster command.
func Cluster() error {
	opts := driver.ClusterOptions{Filter: similarity.DefaultOptions()}
	var (
		profile, logPath, metrics string
		timed                     bool
	)

	flags := flag.NewFlagSet("cluster", flag.ContinueOnError)

	flags.Float64Var(&opts.Filter.ANI, "ani", similarity.DefaultANI, "minimum identity as a fraction")
	flags.Float64Var(&opts.Filter.MinCoverage, "min-coverage", similarity.DefaultMinCoverage, "minimum aligned fraction of the query")
	flags.BoolVar(&opts.Filter.Strict, "strict", false, "fail on the first malformed similarity record")
	flags.BoolVar(&opts.LengthsOnly, "lengths", false, "the sequences file is an id<TAB>length table")
	flags.StringVar(&opts.Prefix, "prefix", cluster.DefaultPrefix, "label prefix of the vOTUs")
	flags.StringVar(&opts.SampleSeparator, "sample-separator", "_", "separator between sample and contig in sequence identifiers")
	flags.BoolVar(&opts.AllowUnknown, "allow-unknown", false, "skip pairs with sequences that are not in the sequences file")
	flags.IntVar(&opts.Filter.Threads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	flags.StringVar(&metrics, "metrics-file", "", "write run metrics to the specified file")

	parseFlags(flags, 5, ClusterHelp)

	opts.Similarity = getFilename(os.Args[2], ClusterHelp)
	opts.Sequences = getFilename(os.Args[3], ClusterHelp)
	opts.OutputDir = getFilename(os.Args[4], ClusterHelp)

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", opts.Similarity) {
		sanityChecksFailed = true
	}
	if !checkExist("", opts.Sequences) {
		sanityChecksFailed = true
	}
	if !checkCreateDir("", opts.OutputDir) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}
	if metrics != "" && !checkCreate("--metrics-file", metrics) {
		sanityChecksFailed = true
	}
	if !checkThresholds(opts.Filter.Thresholds) {
		sanityChecksFailed = true
	}
	if !checkThreads(opts.Filter.Threads) {
		sanityChecksFailed = true
	}
	if opts.Prefix == "" {
		log.Println("Error: Empty vOTU label prefix.")
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, ClusterHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " cluster ", opts.Similarity, " ", opts.Sequences, " ", opts.OutputDir)
	fmt.Fprint(&command, " --ani ", opts.Filter.ANI, " --min-coverage ", opts.Filter.MinCoverage)
	if opts.Filter.Strict {
		fmt.Fprint(&command, " --strict")
	}
	if opts.LengthsOnly {
		fmt.Fprint(&command, " --lengths")
	}
	fmt.Fprint(&command, " --prefix ", opts.Prefix)
	fmt.Fprintf(&command, " --sample-separator %q", opts.SampleSeparator)
	if opts.AllowUnknown {
		fmt.Fprint(&command, " --allow-unknown")
	}
	if opts.Filter.Threads > 0 {
		runtime.GOMAXPROCS(opts.Filter.Threads)
		fmt.Fprint(&command, " --nr-of-threads ", opts.Filter.Threads)
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

	m := utils.NewMetrics()
	if err := timedRun(timed, profile, "Clustering sequences into vOTUs.", 1, func() error {
		_, err := driver.Cluster(opts, m)
		return err
	}); err != nil {
		return err
	}
	return writeMetrics(metrics, m)
}
