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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/exascience/elvotu/cluster"
	"github.com/exascience/elvotu/similarity"
)

var validate = validator.New()

// Command is an external program invocation. Arguments may contain
// placeholders such as {sequences} or {output}, which are substituted
// before the command runs. An argument that consists of {reads} alone
// expands to one argument per read file.
type Command struct {
	Args []string `yaml:"args" validate:"required,min=1,dive,required"`
}

// Sample is one sequenced sample whose reads are quantified against
// the representative sequences.
type Sample struct {
	Name  string   `yaml:"name" validate:"required,excludesall=/"`
	Reads []string `yaml:"reads"`
}

// Config describes a complete aggregation run.
type Config struct {
	// WorkDir holds one subdirectory per run for intermediate files.
	WorkDir string `yaml:"work_dir" validate:"required"`

	// Sequences is the dereplicated FASTA file of all samples.
	Sequences string `yaml:"sequences" validate:"required"`

	// Similarity is an existing similarity table. It is ignored when a
	// Compare command is given, which then produces the table.
	Similarity string                `yaml:"similarity" validate:"required_without=Compare"`
	Compare    *Command              `yaml:"compare"`
	Thresholds similarity.Thresholds `yaml:"thresholds"`

	Strict          bool   `yaml:"strict"`
	AllowUnknown    bool   `yaml:"allow_unknown"`
	ClusterPrefix   string `yaml:"cluster_prefix"`
	SampleSeparator string `yaml:"sample_separator"`

	Samples  []Sample `yaml:"samples" validate:"dive"`
	Quantify *Command `yaml:"quantify"`

	// QuantificationDir holds existing per-sample tables when no
	// Quantify command is given.
	QuantificationDir    string `yaml:"quantification_dir" validate:"required_without=Quantify"`
	QuantificationSuffix string `yaml:"quantification_suffix"`
	SampleFrom           string `yaml:"sample_from" validate:"omitempty,oneof=filename header"`

	Matrix  string `yaml:"matrix"`
	Threads int    `yaml:"threads" validate:"gte=0"`
}

// DefaultConfig returns a configuration with default thresholds and
// labels, to be completed from a YAML file.
func DefaultConfig() Config {
	return Config{
		Thresholds:           similarity.DefaultThresholds(),
		ClusterPrefix:        cluster.DefaultPrefix,
		SampleSeparator:      "_",
		QuantificationSuffix: ".tsv",
		SampleFrom:           "filename",
	}
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates a YAML configuration.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%v, while parsing configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration before any processing starts.
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		var msgs []string
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("%v fails %v", e.Namespace(), e.Tag()))
		}
		return fmt.Errorf("invalid configuration: %v", strings.Join(msgs, "; "))
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return err
	}
	names := make(map[string]bool, len(cfg.Samples))
	for _, s := range cfg.Samples {
		if names[s.Name] {
			return fmt.Errorf("invalid configuration: duplicate sample %v", s.Name)
		}
		names[s.Name] = true
	}
	if cfg.Quantify != nil && len(cfg.Samples) == 0 {
		return errors.New("invalid configuration: quantify command without samples")
	}
	return nil
}
