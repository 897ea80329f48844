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
	"strings"

	"github.com/exascience/elvotu/abundance"
	"github.com/exascience/elvotu/driver"
	"github.com/exascience/elvotu/utils"
)

// MatrixHelp is the help string for this command.
const MatrixHelp = "\nmatrix parameters:\n" +
	"elvotu matrix quantification-directory matrix-output-file\n" +
	"[--suffix s]\n" +
	"[--samples sample1,sample2,...]\n" +
	"[--sample-from filename|header]\n" +
	"[--nr-of-threads n]\n" +
	"[--timed]\n" +
	"[--log-path path]\n" +
	"[--metrics-file file]\n"

// MatrixExtendedHelp is the extended help string for this command.
const MatrixExtendedHelp = MatrixHelp +
	"\nEvery file in the quantification directory that ends in --suffix is\n" +
	"one sample's table: a header row followed by representative<TAB>value\n" +
	"rows. The sample is the file name without --suffix (without its\n" +
	"extension if no suffix is given), or with --sample-from header the\n" +
	"label of the value column. All listed --samples must have a table.\n" +
	"Cells without a value are written as 0.\n"

// Matrix implements the elvotu matrix command.
func Matrix() error {
	var (
		suffix, samples, sampleFrom string
		profile, logPath, metrics   string
		nrOfThreads                 int
		timed                       bool
	)

	flags := flag.NewFlagSet("matrix", flag.ContinueOnError)

	flags.StringVar(&suffix, "suffix", "", "file name suffix of the quantification tables")
	flags.StringVar(&samples, "samples", "", "comma-separated list of samples that must be present")
	flags.StringVar(&sampleFrom, "sample-from", "filename", "take sample names from the file name or the header")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	flags.StringVar(&metrics, "metrics-file", "", "write run metrics to the specified file")

	parseFlags(flags, 4, MatrixHelp)

	input := getFilename(os.Args[2], MatrixHelp)
	output := getFilename(os.Args[3], MatrixHelp)

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkDir("", input) {
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
	source, err := abundance.ParseSampleSource(sampleFrom)
	if err != nil {
		log.Printf("Error: %v for command line parameter --sample-from.\n", err)
		sanityChecksFailed = true
	}
	if !checkThreads(nrOfThreads) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, MatrixHelp)
		os.Exit(1)
	}

	// building output command line

	expected := splitList(samples)

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " matrix ", input, " ", output)
	if suffix != "" {
		fmt.Fprint(&command, " --suffix ", suffix)
	}
	if len(expected) > 0 {
		fmt.Fprint(&command, " --samples ", strings.Join(expected, ","))
	}
	fmt.Fprint(&command, " --sample-from ", sampleFrom)
	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
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

	m := utils.NewMetrics()
	if err := timedRun(timed, profile, "Assembling abundance matrix.", 1, func() error {
		_, err := driver.Matrix(driver.MatrixOptions{
			Dir:      input,
			Suffix:   suffix,
			Source:   source,
			Expected: expected,
			Output:   output,
			Threads:  nrOfThreads,
		}, m)
		return err
	}); err != nil {
		return err
	}
	return writeMetrics(metrics, m)
}
