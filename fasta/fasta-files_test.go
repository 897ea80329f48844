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

package fasta

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := ">s1_k141_1 flag=1 multi=2.0\nACGT\nAC\n\n>s1_k141_2\nGGGG\n>s2_k141_1\nT\n"
	records, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %v", len(records))
	}
	if records[0].ID != "s1_k141_1" || string(records[0].Seq) != "ACGTAC" {
		t.Error("Parse 1 failed")
	}
	if records[1].ID != "s1_k141_2" || string(records[1].Seq) != "GGGG" {
		t.Error("Parse 2 failed")
	}
	if records[2].ID != "s2_k141_1" || string(records[2].Seq) != "T" {
		t.Error("Parse 3 failed")
	}
	ids, lengths := Lengths(records)
	if len(ids) != 3 || ids[1] != "s1_k141_2" || lengths["s1_k141_1"] != 6 || lengths["s2_k141_1"] != 1 {
		t.Error("Lengths failed")
	}
}

func TestParseErrors(t *testing.T) {
	for i, input := range []string{
		"ACGT\n>a\nAC\n",
		">a\nAC\n>a\nGT\n",
		">a\n>b\nAC\n",
		">\nAC\n",
	} {
		if _, err := Parse(strings.NewReader(input)); err == nil {
			t.Errorf("Parse error %v not detected", i)
		}
	}
	records, err := Parse(strings.NewReader(""))
	if err != nil || len(records) != 0 {
		t.Error("empty Parse failed")
	}
}

func TestParseLengths(t *testing.T) {
	ids, lengths, err := ParseLengths(strings.NewReader("contig\tlength\nA\t10000\nB\t11000\n\nC\t3000\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 || ids[0] != "A" || lengths["B"] != 11000 || lengths["C"] != 3000 {
		t.Error("ParseLengths failed")
	}
	if _, _, err := ParseLengths(strings.NewReader("A\t10\nB\tx\n")); err == nil {
		t.Error("ParseLengths non-numeric failed")
	}
	if _, _, err := ParseLengths(strings.NewReader("A\t10\nA\t12\n")); err == nil {
		t.Error("ParseLengths duplicate failed")
	}
	if _, _, err := ParseLengths(strings.NewReader("A\t0\n")); err == nil {
		t.Error("ParseLengths zero length failed")
	}
}

func TestWriteWraps(t *testing.T) {
	var buf bytes.Buffer
	seq := strings.Repeat("A", LineWidth) + "CC"
	if err := Write(&buf, []Record{{ID: "x", Seq: []byte(seq)}, {ID: "y", Seq: []byte("G")}}); err != nil {
		t.Fatal(err)
	}
	expected := ">x\n" + strings.Repeat("A", LineWidth) + "\nCC\n>y\nG\n"
	if buf.String() != expected {
		t.Errorf("Write failed: %q", buf.String())
	}
}

func TestParseGzipFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "seqs.fna.gz")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(">a\nACGT\n>b\nAC\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0666); err != nil {
		t.Fatal(err)
	}
	records, err := ParseFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[1].ID != "b" || string(records[1].Seq) != "AC" {
		t.Error("ParseFile gzip failed")
	}
}
