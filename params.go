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
	"fmt"
	"math"
	"strings"
)

// Params holds the recognized simulation options.
type Params struct {
	// Gamma is the adiabatic index of the ideal gas.
	Gamma float64

	// CFL is the Courant number.
	CFL float64

	// Regularize enables steering of generators toward their cell
	// centroids, with strength set by Eta.
	Regularize bool
	Eta        float64

	// The run ends when FinalTime is reached or after MaxIterations
	// steps, whichever comes first. MaxIterations <= 0 means no limit.
	FinalTime     float64
	MaxIterations int

	// Snapshots are written every OutputEvery iterations and every
	// OutputInterval units of simulation time. Zero disables either.
	OutputEvery    int
	OutputInterval float64

	// InitialTimestepFactor multiplies the time step of the first
	// iteration.
	InitialTimestepFactor float64

	// MaxDtChange limits the time step to MaxDtChange times the previous
	// one. Zero disables the limit.
	MaxDtChange float64

	// Reconstruction is "constant" or "linear". Limiter and Predictor
	// apply to linear reconstruction.
	Reconstruction string
	Limiter        bool
	Predictor      bool

	// Riemann is "hll" or "hllc".
	Riemann string

	// RelaxIterations is the number of Lloyd iterations applied to the
	// generators before the run.
	RelaxIterations int
}

// DefaultParams returns the default options.
func DefaultParams() Params {
	return Params{
		Gamma:                 1.4,
		CFL:                   0.5,
		Regularize:            true,
		Eta:                   0.25,
		FinalTime:             1,
		InitialTimestepFactor: 1,
		Reconstruction:        "linear",
		Limiter:               true,
		Predictor:             true,
		Riemann:               "hllc",
	}
}

// Validate checks that the options are in range.
func (p *Params) Validate() error {
	if !(p.Gamma > 1) {
		return fmt.Errorf("voromesh: Gamma=%g but should be >1", p.Gamma)
	}
	if !(p.CFL > 0 && p.CFL <= 1) {
		return fmt.Errorf("voromesh: CFL=%g but should be in (0, 1]", p.CFL)
	}
	if p.Regularize && !(p.Eta > 0) {
		return fmt.Errorf("voromesh: Eta=%g but should be >0", p.Eta)
	}
	if !(p.FinalTime > 0) || math.IsInf(p.FinalTime, 0) {
		return fmt.Errorf("voromesh: FinalTime=%g but should be >0 and finite", p.FinalTime)
	}
	if p.OutputEvery < 0 {
		return fmt.Errorf("voromesh: OutputEvery=%d but should be >=0", p.OutputEvery)
	}
	if p.OutputInterval < 0 {
		return fmt.Errorf("voromesh: OutputInterval=%g but should be >=0", p.OutputInterval)
	}
	if !(p.InitialTimestepFactor > 0) {
		return fmt.Errorf("voromesh: InitialTimestepFactor=%g but should be >0", p.InitialTimestepFactor)
	}
	if p.MaxDtChange != 0 && !(p.MaxDtChange >= 1) {
		return fmt.Errorf("voromesh: MaxDtChange=%g but should be 0 or >=1", p.MaxDtChange)
	}
	if p.RelaxIterations < 0 {
		return fmt.Errorf("voromesh: RelaxIterations=%d but should be >=0", p.RelaxIterations)
	}
	if _, err := NewReconstructor(p.Reconstruction, p.Limiter, p.Predictor); err != nil {
		return err
	}
	if _, err := NewRiemannSolver(p.Riemann); err != nil {
		return err
	}
	return nil
}

func (p Params) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Gamma=%g CFL=%g", p.Gamma, p.CFL)
	if p.Regularize {
		fmt.Fprintf(&b, " Eta=%g", p.Eta)
	} else {
		b.WriteString(" Regularize=false")
	}
	fmt.Fprintf(&b, " FinalTime=%g Reconstruction=%s Riemann=%s", p.FinalTime, p.Reconstruction, p.Riemann)
	return b.String()
}
