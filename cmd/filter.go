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

	"github.com/exascience/elvotu/driver"
	"github.com/exascience/elvotu/similarity"
	"github.com/exascience/elvotu/utils"
)

// FilterHelp is the help string for this command.
const FilterHelp = "\nfilter parameters:\n" +
	"elvotu filter similarity-file edges-output-file\n" +
	"[--ani f]\n" +
	"[--min-coverage f]\n" +
	"[--strict]\n" +
	"[--nr-of-threads n]\n" +
	"[--timed]\n" +
	"[--log-path path]\n" +
	"[--metrics-file file]\n"

// FilterExtendedHelp is the extended help string for this command.
const FilterExtendedHelp = FilterHelp +
	"\nThe similarity file has one comparison per line:\n" +
	"query reference percent-identity aligned-fragments total-fragments\n" +
	"separated by tabs or spaces, as written by fastANI. Lines starting\n" +
	"with # are comments. A pair qualifies if its identity, as a fraction,\n" +
	"is at least --ani (default 0.95) and aligned/total is at least\n" +
	"--min-coverage (default 0.85). Malformed lines are skipped and\n" +
	"counted, unless --strict is given.\n"

// Filter implements the elvotu filter command.
func Filter() error {
	opts := similarity.DefaultOptions()
	var (
		profile, logPath, metrics string
		timed                     bool
	)

	flags := flag.NewFlagSet("filter", flag.ContinueOnError)

	flags.Float64Var(&opts.ANI, "ani", similarity.DefaultANI, "minimum identity as a fraction")
	flags.Float64Var(&opts.MinCoverage, "min-coverage", similarity.DefaultMinCoverage, "minimum aligned fraction of the query")
	flags.BoolVar(&opts.Strict, "strict", false, "fail on the first malformed similarity record")
	flags.IntVar(&opts.Threads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	flags.StringVar(&metrics, "metrics-file", "", "write run metrics to the specified file")

	parseFlags(flags, 4, FilterHelp)

	input := getFilename(os.Args[2], FilterHelp)
	output := getFilename(os.Args[3], FilterHelp)

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}
	if metrics != "" && !checkCreate("--metrics-file", metrics) {
		sanityChecksFailed = true
	}
	if !checkThresholds(opts.Thresholds) {
		sanityChecksFailed = true
	}
	if !checkThreads(opts.Threads) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, FilterHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " filter ", input, " ", output)
	fmt.Fprint(&command, " --ani ", opts.ANI, " --min-coverage ", opts.MinCoverage)
	if opts.Strict {
		fmt.Fprint(&command, " --strict")
	}
	if opts.Threads > 0 {
		runtime.GOMAXPROCS(opts.Threads)
		fmt.Fprint(&command, " --nr-of-threads ", opts.Threads)
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
	if err := timedRun(timed, profile, "Filtering similarity records.", 1, func() error {
		_, err := driver.FilterEdges(input, output, opts, m)
		return err
	}); err != nil {
		return err
	}
	return writeMetrics(metrics, m)
}
