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

package similarity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultANI is the default minimum identity, as a fraction.
	DefaultANI = 0.95

	// DefaultMinCoverage is the default minimum aligned fraction.
	DefaultMinCoverage = 0.85
)

var validate = validator.New()

// Thresholds decide which records become edges.
type Thresholds struct {
	ANI         float64 `yaml:"ani" validate:"gte=0,lte=1"`
	MinCoverage float64 `yaml:"min_coverage" validate:"gte=0,lte=1"`
}

// DefaultThresholds returns 95% identity over 85% of the query.
func DefaultThresholds() Thresholds {
	return Thresholds{ANI: DefaultANI, MinCoverage: DefaultMinCoverage}
}

// Validate checks that both thresholds are fractions in [0,1].
func (t Thresholds) Validate() error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var msgs []string
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%v must be within [0,1], got %v", e.Field(), e.Value()))
	}
	return fmt.Errorf("invalid thresholds: %v", strings.Join(msgs, "; "))
}

// Accept reports whether the record passes both thresholds.
func (t Thresholds) Accept(r Record) bool {
	return r.Identity/100 >= t.ANI && r.Coverage() >= t.MinCoverage
}
