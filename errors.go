/*
Copyright © 2026 the Voromesh authors.
This file is part of Voromesh.

Voromesh is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Voromesh is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Voromesh.  If not, see <http://www.gnu.org/licenses/>.
*/

package voromesh

import (
	"errors"
	"fmt"
)

// Conditions that abort a simulation step. None of them is retried: the
// same inputs would reproduce the same failure.
var (
	// ErrGeometryDegenerate indicates a cell or face with a non-positive
	// measure.
	ErrGeometryDegenerate = errors.New("degenerate geometry")

	// ErrTopology indicates that the tessellation could not be built or
	// that a real cell was truncated by an insufficient ghost layer.
	ErrTopology = errors.New("topology error")

	// ErrNonPhysicalState indicates a non-positive density or pressure, or
	// a NaN in a reconstructed or fluxed quantity.
	ErrNonPhysicalState = errors.New("non-physical state")

	// ErrTimestepOverflow indicates that no cell produced a finite,
	// positive admissible time step.
	ErrTimestepOverflow = errors.New("no admissible time step")
)

// A StepError reports a failure in one stage of a simulation step.
type StepError struct {
	// Err is one of the sentinel errors above.
	Err error

	// Stage is the name of the stage that failed.
	Stage string

	// Step is the iteration during which the failure happened.
	Step int

	// Index is the offending generator or face index, or -1.
	Index int

	// Detail describes the failure.
	Detail string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("voromesh: step %d: %s: %v", e.Step, e.Stage, e.Err)
	if e.Index >= 0 {
		msg += fmt.Sprintf(" at index %d", e.Index)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap allows errors.Is to match both the sentinel and the cause.
func (e *StepError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func stepError(kind error, stage string, index int, format string, args ...interface{}) *StepError {
	return &StepError{
		Err:    kind,
		Stage:  stage,
		Index:  index,
		Detail: fmt.Sprintf(format, args...),
	}
}
