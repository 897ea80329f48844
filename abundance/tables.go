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

// Package abundance merges per-sample quantification tables into one
// abundance matrix.
package abundance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elvotu/internal"
	"github.com/exascience/elvotu/utils"
)

// ErrMissingSample is returned when an expected sample has no
// quantification table.
var ErrMissingSample = errors.New("missing quantification table")

// SampleSource decides where a table's sample identifier comes from.
type SampleSource int

const (
	// FromFilename derives the sample from the table's file name.
	FromFilename SampleSource = iota
	// FromHeader uses the label of the value column in the header row.
	FromHeader
)

// ParseSampleSource parses "filename" or "header".
func ParseSampleSource(s string) (SampleSource, error) {
	switch strings.ToLower(s) {
	case "", "filename":
		return FromFilename, nil
	case "header":
		return FromHeader, nil
	default:
		return FromFilename, fmt.Errorf("invalid sample source %v", s)
	}
}

// A Table holds the values of one sample, keyed by representative.
type Table struct {
	Sample string
	Values map[string]float64
	// Order lists the representatives in file order.
	Order []string
}

// ReadTable parses a quantification table with a header row followed by
// "representative<TAB>value" rows. If source is FromHeader, the sample
// is the header label of the value column, otherwise it is the given
// sample.
func ReadTable(r io.Reader, sample string, source SampleSource) (*Table, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("empty quantification table - missing header row")
	}
	if source == FromHeader {
		header := strings.Fields(scanner.Text())
		if len(header) < 2 {
			return nil, errors.New("quantification table header has no value column label")
		}
		sample = header[1]
	}
	if sample == "" {
		return nil, errors.New("quantification table without sample identifier")
	}
	table := &Table{Sample: sample, Values: make(map[string]float64)}
	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("invalid quantification entry on line %v - expected two columns", line)
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%v, while parsing value of %v on line %v", err, fields[0], line)
		}
		if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("invalid value %v for %v on line %v - expected a non-negative number", fields[1], fields[0], line)
		}
		id := utils.Intern(fields[0])
		if _, found := table.Values[id]; found {
			return nil, fmt.Errorf("duplicate representative %v on line %v", id, line)
		}
		table.Values[id] = value
		table.Order = append(table.Order, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// SampleFromFilename strips the directory and the given suffix from a
// file name. If suffix is empty or does not match, a ".gz" ending and
// then the extension are stripped instead.
func SampleFromFilename(filename, suffix string) string {
	base := filepath.Base(filename)
	if suffix != "" && strings.HasSuffix(base, suffix) && len(base) > len(suffix) {
		return base[:len(base)-len(suffix)]
	}
	base = strings.TrimSuffix(base, ".gz")
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReadTableFile reads one sample's table. Any problem with the file is
// reported as an error for that sample.
func ReadTableFile(filename, suffix string, source SampleSource) (table *Table, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer internal.CloseWithErr(file, &err)
	r, err := utils.HandleGzip(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%v, while opening %v", err, filename)
	}
	if table, err = ReadTable(r, SampleFromFilename(filename, suffix), source); err != nil {
		return nil, fmt.Errorf("%v, in quantification table %v", err, filename)
	}
	return table, nil
}

// FindTables lists the quantification tables in a directory: all
// regular files ending in suffix, or all regular files that do not
// start with a dot if suffix is empty. The result is sorted.
func FindTables(dir, suffix string) ([]string, error) {
	names, err := internal.Directory(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, name := range names {
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			continue
		}
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no quantification tables found in %v", ErrMissingSample, dir)
	}
	return files, nil
}

// ReadTables reads the given files concurrently, using at most threads
// goroutines (0 means runtime.GOMAXPROCS(0)). The result is in the
// order of the files. The first error in file order is returned.
func ReadTables(files []string, suffix string, source SampleSource, threads int) ([]*Table, error) {
	if len(files) == 0 {
		return nil, nil
	}
	tables := make([]*Table, len(files))
	errs := make([]error, len(files))
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if threads > len(files) {
		threads = len(files)
	}
	parallel.Range(0, len(files), threads, func(low, high int) {
		for i := low; i < high; i++ {
			tables[i], errs[i] = ReadTableFile(files[i], suffix, source)
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return tables, nil
}

// CheckExpected verifies that every expected sample has a table.
func CheckExpected(tables []*Table, expected []string) error {
	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[t.Sample] = true
	}
	var missing []string
	for _, sample := range expected {
		if !present[sample] {
			missing = append(missing, sample)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w for samples %v", ErrMissingSample, strings.Join(missing, ", "))
	}
	return nil
}
