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

package abundance

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/exascience/elvotu/internal"
)

// RowHeader is the name of the first column of a matrix.
const RowHeader = "vOTU"

// A Matrix is a dense representative × sample abundance matrix.
// Samples are sorted, and so are Rows. Values[i][j] is the value of
// Rows[i] in Samples[j]; it is 0 if the sample's table has no entry
// for the representative.
type Matrix struct {
	Samples []string
	Rows    []string
	Values  [][]float64
}

// Assemble performs an outer join of the given tables on the
// representative identifiers. Sample identifiers must be unique.
func Assemble(tables []*Table) (*Matrix, error) {
	sorted := make([]*Table, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Sample < sorted[j].Sample
	})
	m := &Matrix{Samples: make([]string, len(sorted))}
	rows := make(map[string]bool)
	for i, t := range sorted {
		if i > 0 && sorted[i-1].Sample == t.Sample {
			return nil, fmt.Errorf("duplicate sample identifier %v", t.Sample)
		}
		m.Samples[i] = t.Sample
		for id := range t.Values {
			if !rows[id] {
				rows[id] = true
				m.Rows = append(m.Rows, id)
			}
		}
	}
	sort.Strings(m.Rows)
	m.Values = make([][]float64, len(m.Rows))
	for i, id := range m.Rows {
		row := make([]float64, len(sorted))
		for j, t := range sorted {
			row[j] = t.Values[id]
		}
		m.Values[i] = row
	}
	return m, nil
}

// Get returns the value of a cell, and false if the representative or
// sample is not part of the matrix.
func (m *Matrix) Get(row, sample string) (float64, bool) {
	i := sort.SearchStrings(m.Rows, row)
	if i == len(m.Rows) || m.Rows[i] != row {
		return 0, false
	}
	j := sort.SearchStrings(m.Samples, sample)
	if j == len(m.Samples) || m.Samples[j] != sample {
		return 0, false
	}
	return m.Values[i][j], true
}

// NonZero returns the number of cells with a value other than 0.
func (m *Matrix) NonZero() (n int) {
	for _, row := range m.Values {
		for _, v := range row {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

// Write writes the matrix as a tab-separated table with a header row of
// sample identifiers.
func (m *Matrix) Write(w io.Writer) error {
	out := bufio.NewWriter(w)
	buf := []byte(RowHeader)
	for _, sample := range m.Samples {
		buf = append(buf, '\t')
		buf = append(buf, sample...)
	}
	buf = append(buf, '\n')
	if _, err := out.Write(buf); err != nil {
		return err
	}
	for i, id := range m.Rows {
		buf = append(buf[:0], id...)
		for _, v := range m.Values[i] {
			buf = append(buf, '\t')
			buf = strconv.AppendFloat(buf, v, 'f', -1, 64)
		}
		buf = append(buf, '\n')
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
	return out.Flush()
}

// WriteFile writes the matrix to a file. The file is written to a
// temporary name first and renamed on success, so that no partial
// matrix is left behind.
func (m *Matrix) WriteFile(filename string) (err error) {
	tmp := filename + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = m.Write(file)
	internal.CloseWithErr(file, &err)
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filename)
}
