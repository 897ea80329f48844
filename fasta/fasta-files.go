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

// Package fasta reads and writes the sequence collections that elvotu
// consumes and produces.
package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/exascience/elvotu/internal"
	"github.com/exascience/elvotu/utils"
)

// Record is one named sequence of a FASTA file.
type Record struct {
	ID  string
	Seq []byte
}

// LineWidth is the number of bases per line used by Write.
const LineWidth = 80

func idFromHeader(b []byte) string {
	i := 1
	for ; i < len(b); i++ {
		if c := b[i]; c >= '!' && c <= '~' {
			break
		}
	}
	j := i + 1
	for ; j < len(b); j++ {
		if c := b[j]; c < '!' || c > '~' {
			break
		}
	}
	if i >= len(b) {
		return ""
	}
	return string(b[i:j])
}

func openInput(filename string) (file *os.File, r io.Reader, err error) {
	if file, err = os.Open(filename); err != nil {
		return nil, nil, err
	}
	if r, err = utils.HandleGzip(bufio.NewReader(file)); err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("%v, while opening %v", err, filename)
	}
	return file, r, nil
}

// Parse sequentially parses FASTA input. Records are returned in input
// order. Identifiers are the first word of each header line and must
// be unique, and every sequence must have at least one base.
func Parse(r io.Reader) (records []Record, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<30)

	seen := make(map[string]bool)
	var current *Record
	finish := func() error {
		if current == nil {
			return nil
		}
		if len(current.Seq) == 0 {
			return fmt.Errorf("empty sequence %v", current.ID)
		}
		records = append(records, *current)
		return nil
	}

	for scanner.Scan() {
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		if b[0] == '>' {
			if err := finish(); err != nil {
				return nil, err
			}
			id := idFromHeader(b)
			if id == "" {
				return nil, fmt.Errorf("invalid fasta header %q - missing identifier", b)
			}
			if seen[id] {
				return nil, fmt.Errorf("duplicate sequence identifier %v", id)
			}
			seen[id] = true
			current = &Record{ID: id}
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("invalid fasta input - missing first header")
		}
		current.Seq = append(current.Seq, b...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return records, nil
}

// ParseFile parses a FASTA file, which may be gzip compressed.
func ParseFile(filename string) (records []Record, err error) {
	file, r, err := openInput(filename)
	if err != nil {
		return nil, err
	}
	defer internal.CloseWithErr(file, &err)
	if records, err = Parse(r); err != nil {
		return nil, fmt.Errorf("%v, while parsing fasta file %v", err, filename)
	}
	return records, nil
}

// Lengths returns the identifiers of the given records in input order,
// together with a map from identifier to sequence length.
func Lengths(records []Record) (ids []string, lengths map[string]int) {
	ids = make([]string, len(records))
	lengths = make(map[string]int, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		lengths[rec.ID] = len(rec.Seq)
	}
	return ids, lengths
}

// ParseLengths parses a table of sequence lengths, one "id<TAB>length"
// entry per line, as found in the first two columns of .fai files. An
// initial line whose length column is not a number is treated as a
// header.
func ParseLengths(r io.Reader) (ids []string, lengths map[string]int, err error) {
	scanner := bufio.NewScanner(r)
	lengths = make(map[string]int)
	line := 0
	for scanner.Scan() {
		line++
		fields := bytes.Fields(scanner.Bytes())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, nil, fmt.Errorf("invalid length entry on line %v - expected at least two columns", line)
		}
		id := string(fields[0])
		length, perr := strconv.Atoi(string(fields[1]))
		if perr != nil {
			if len(ids) == 0 && line == 1 {
				continue
			}
			return nil, nil, fmt.Errorf("%v, while parsing length of %v on line %v", perr, id, line)
		}
		if length <= 0 {
			return nil, nil, fmt.Errorf("invalid length %v for %v on line %v", length, id, line)
		}
		if _, found := lengths[id]; found {
			return nil, nil, fmt.Errorf("duplicate sequence identifier %v on line %v", id, line)
		}
		ids = append(ids, id)
		lengths[id] = length
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return ids, lengths, nil
}

// ParseLengthsFile parses a sequence length table from a file, which
// may be gzip compressed.
func ParseLengthsFile(filename string) (ids []string, lengths map[string]int, err error) {
	file, r, err := openInput(filename)
	if err != nil {
		return nil, nil, err
	}
	defer internal.CloseWithErr(file, &err)
	if ids, lengths, err = ParseLengths(r); err != nil {
		return nil, nil, fmt.Errorf("%v, while parsing length file %v", err, filename)
	}
	return ids, lengths, nil
}

// Write writes the given records in FASTA format, with sequence lines
// of at most LineWidth bases.
func Write(w io.Writer, records []Record) error {
	out := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := fmt.Fprintf(out, ">%s\n", rec.ID); err != nil {
			return err
		}
		for seq := rec.Seq; len(seq) > 0; {
			n := LineWidth
			if n > len(seq) {
				n = len(seq)
			}
			if _, err := out.Write(seq[:n]); err != nil {
				return err
			}
			if err := out.WriteByte('\n'); err != nil {
				return err
			}
			seq = seq[n:]
		}
	}
	return out.Flush()
}

// WriteFile writes the given records to a FASTA file.
func WriteFile(filename string, records []Record) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer internal.CloseWithErr(file, &err)
	return Write(file, records)
}
