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
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func absDifferent(a, b, tolerance float64) bool {
	if math.Abs(a-b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func vecDifferent(a, b r3.Vec, tolerance float64) bool {
	return absDifferent(a.X, b.X, tolerance) || absDifferent(a.Y, b.Y, tolerance) ||
		absDifferent(a.Z, b.Z, tolerance)
}

// gridPoints returns the centers of an n^dim grid in the unit box, each
// coordinate displaced by up to perturb times the spacing.
func gridPoints(dim, n int, perturb float64, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	dx := 1 / float64(n)
	total := 1
	for k := 0; k < dim; k++ {
		total *= n
	}
	points := make([][]float64, total)
	for c := range points {
		r := c
		x := make([]float64, dim)
		for k := 0; k < dim; k++ {
			x[k] = (float64(r%n) + 0.5) * dx
			if perturb > 0 {
				x[k] += perturb * dx * (2*rng.Float64() - 1)
			}
			r /= n
		}
		points[c] = x
	}
	return points
}

func uniform(rho, p float64, v r3.Vec) InitialCondition {
	return func(r3.Vec) Vars {
		return Vars{Density: rho, VelocityX: v.X, VelocityY: v.Y, VelocityZ: v.Z, Pressure: p}
	}
}

// wavy is a smooth, non-uniform state that is periodic on the unit box.
func wavy(x r3.Vec) Vars {
	return Vars{
		Density:   1 + 0.2*math.Sin(2*math.Pi*x.X)*math.Cos(2*math.Pi*x.Y),
		VelocityX: 0.3 + 0.1*math.Sin(2*math.Pi*x.Y),
		VelocityY: -0.2 + 0.1*math.Cos(2*math.Pi*x.X),
		Pressure:  1 + 0.1*math.Cos(2*math.Pi*(x.X+x.Y)),
	}
}

// newSimulation returns an initialized simulation of the unit box with the
// same boundary treatment on every side.
func newSimulation(t *testing.T, points [][]float64, bt BoundaryType, ic InitialCondition, edit func(*Params)) *Simulation {
	t.Helper()
	params := DefaultParams()
	if edit != nil {
		edit(&params)
	}
	s := &Simulation{
		Params:    params,
		Boundary:  NewBoundary([3]float64{}, [3]float64{1, 1, 1}, bt),
		InitFuncs: []DomainManipulator{SetInitialConditions(points, ic)},
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	return s
}

// prepare runs the stages of a step up to and including the gradients.
func prepare(t *testing.T, s *Simulation) {
	t.Helper()
	for _, f := range []DomainManipulator{SetTimestep(), AssignVelocities(), ComputeFaces(), ComputeGradients()} {
		if err := f(s); err != nil {
			t.Fatal(err)
		}
	}
}
