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

// elvotu aggregates viral contigs from many samples into vOTUs, picks
// a representative sequence per vOTU, and merges per-sample
// quantification tables into one abundance matrix.
//
// Please see https://github.com/exascience/elvotu for a documentation
// of the tool.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/exascience/elvotu/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: filter, cluster, matrix, run")
	fmt.Fprint(os.Stderr, "\n", cmd.FilterHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.ClusterHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.MatrixHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.RunHelp)
}

func printExtendedHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: filter, cluster, matrix, run")
	fmt.Fprint(os.Stderr, "\n", cmd.FilterExtendedHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.ClusterExtendedHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.MatrixExtendedHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.RunExtendedHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage)
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "filter":
		err = cmd.Filter()
	case "cluster":
		err = cmd.Cluster()
	case "matrix":
		err = cmd.Matrix()
	case "run":
		err = cmd.Run()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	case "help-extended", "-help-extended", "--help-extended", "-he", "--he":
		printExtendedHelp()
	default:
		log.Println("Unknown command", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
