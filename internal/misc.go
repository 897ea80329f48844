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

package internal

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// RunCmd runs the given external command and waits for it to finish.
// On failure, the returned error includes the command line and the
// combined output of the command.
func RunCmd(cmd *exec.Cmd) error {
	var output bytes.Buffer
	if cmd.Stdout == nil {
		cmd.Stdout = &output
	}
	if cmd.Stderr == nil {
		cmd.Stderr = &output
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%v, while running %v: %s", err, strings.Join(cmd.Args, " "), bytes.TrimSpace(output.Bytes()))
	}
	return nil
}
