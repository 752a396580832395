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

// Package problem sets up standard initial value problems for voromesh
// simulations.
package problem

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/spatialmodel/voromesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// A Problem is a set of generators, the domain they fill, and the initial
// state of the fluid.
type Problem struct {
	Name     string
	Points   [][]float64
	Boundary *voromesh.Boundary
	Initial  voromesh.InitialCondition
	Params   voromesh.Params
}

// Setup returns a function that installs the problem's parameters and
// boundary in a simulation and sets its initial conditions. It is meant
// for Simulation.InitFuncs.
func (p *Problem) Setup() voromesh.DomainManipulator {
	ic := voromesh.SetInitialConditions(p.Points, p.Initial)
	return func(s *voromesh.Simulation) error {
		s.Params = p.Params
		s.Boundary = p.Boundary
		return ic(s)
	}
}

// Names lists the problems available from New.
var Names = []string{"kh", "sedov", "sod", "uniform"}

// New returns the named problem with n generators along each axis.
func New(name string, n int, seed int64) (*Problem, error) {
	if n < 2 {
		return nil, fmt.Errorf("problem: resolution %d should be at least 2", n)
	}
	switch name {
	case "kh":
		return KelvinHelmholtz(n, seed), nil
	case "sedov":
		return Sedov(n), nil
	case "sod":
		return Sod(n), nil
	case "uniform":
		w := voromesh.Vars{voromesh.Density: 1, voromesh.Pressure: 1}
		return Uniform(2, n, w, voromesh.Periodic), nil
	}
	return nil, fmt.Errorf("problem: unknown problem %q; options are %v", name, Names)
}

// Grid returns generators at the centers of a regular grid with res[k]
// cells along axis k of the box [min, max). If perturb > 0, each
// coordinate is displaced by a uniform random amount of at most perturb
// times the grid spacing.
func Grid(dim int, min, max [3]float64, res [3]int, perturb float64, rng *rand.Rand) [][]float64 {
	var d [3]float64
	n := 1
	for k := 0; k < dim; k++ {
		d[k] = (max[k] - min[k]) / float64(res[k])
		n *= res[k]
	}
	points := make([][]float64, 0, n)
	var idx [3]int
	for c := 0; c < n; c++ {
		r := c
		for k := 0; k < dim; k++ {
			idx[k] = r % res[k]
			r /= res[k]
		}
		x := make([]float64, dim)
		for k := 0; k < dim; k++ {
			x[k] = min[k] + (float64(idx[k])+0.5)*d[k]
			if perturb > 0 {
				x[k] += perturb * d[k] * (2*rng.Float64() - 1)
			}
		}
		points = append(points, x)
	}
	return points
}

func cube(dim, n int) [3]int {
	var res [3]int
	for k := 0; k < dim; k++ {
		res[k] = n
	}
	return res
}

// KelvinHelmholtz returns a two-dimensional shear layer in the unit box,
// periodic in x and reflective in y: a dense band moving in -x between
// y=0.25 and y=0.75 inside a light medium moving in +x, seeded with a
// sinusoidal transverse velocity. The n×n generators are displaced from
// a regular grid by up to 0.05 of the spacing.
func KelvinHelmholtz(n int, seed int64) *Problem {
	b := voromesh.NewBoundary([3]float64{}, [3]float64{1, 1, 1}, voromesh.Reflective)
	b.Lower[0], b.Upper[0] = voromesh.Periodic, voromesh.Periodic
	p := voromesh.DefaultParams()
	p.Gamma = 5. / 3.
	p.FinalTime = 2
	return &Problem{
		Name:     "kh",
		Points:   Grid(2, b.Min, b.Max, cube(2, n), 0.05, rand.New(rand.NewSource(seed))),
		Boundary: b,
		Params:   p,
		Initial: func(x r3.Vec) voromesh.Vars {
			w := voromesh.Vars{
				voromesh.Density:   1,
				voromesh.VelocityX: 0.5,
				voromesh.VelocityY: 0.01 * math.Sin(4*math.Pi*x.X),
				voromesh.Pressure:  2.5,
			}
			if math.Abs(x.Y-0.5) < 0.25 {
				w[voromesh.Density] = 2
				w[voromesh.VelocityX] = -0.5
			}
			return w
		},
	}
}

// Sedov returns a point explosion in the unit cube with reflective walls:
// the generator nearest the center of an n³ grid holds unit energy in a
// cold, uniform, resting gas.
func Sedov(n int) *Problem {
	b := voromesh.NewBoundary([3]float64{}, [3]float64{1, 1, 1}, voromesh.Reflective)
	p := voromesh.DefaultParams()
	p.Gamma = 5. / 3.
	p.FinalTime = 0.05
	p.InitialTimestepFactor = 0.1
	p.MaxDtChange = 1.5
	points := Grid(3, b.Min, b.Max, cube(3, n), 0, nil)
	center := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	var hot r3.Vec
	best := math.Inf(1)
	for _, x := range points {
		v := r3.Vec{X: x[0], Y: x[1], Z: x[2]}
		if d := r3.Norm2(r3.Sub(v, center)); d < best {
			best, hot = d, v
		}
	}
	vol := b.Volume(3) / float64(len(points))
	const energy = 1.
	return &Problem{
		Name:     "sedov",
		Points:   points,
		Boundary: b,
		Params:   p,
		Initial: func(x r3.Vec) voromesh.Vars {
			w := voromesh.Vars{voromesh.Density: 1, voromesh.Pressure: 1e-5}
			if x == hot {
				w[voromesh.Pressure] = (p.Gamma - 1) * energy / vol
			}
			return w
		},
	}
}

// Sod returns the Sod shock tube along x in a two-dimensional channel of
// length 1 and width 0.1 with reflective walls, with n generators along
// the tube.
func Sod(n int) *Problem {
	b := voromesh.NewBoundary([3]float64{}, [3]float64{1, 0.1, 1}, voromesh.Reflective)
	width := n / 10
	if width < 2 {
		width = 2
	}
	p := voromesh.DefaultParams()
	p.FinalTime = 0.2
	return &Problem{
		Name:     "sod",
		Points:   Grid(2, b.Min, b.Max, [3]int{n, width}, 0, nil),
		Boundary: b,
		Params:   p,
		Initial: func(x r3.Vec) voromesh.Vars {
			if x.X < 0.5 {
				return voromesh.Vars{voromesh.Density: 1, voromesh.Pressure: 1}
			}
			return voromesh.Vars{voromesh.Density: 0.125, voromesh.Pressure: 0.1}
		},
	}
}

// Uniform returns a fluid at rest, or in uniform motion, filling the unit
// box on a regular grid of n generators per axis, with treatment t on
// every side.
func Uniform(dim, n int, w voromesh.Vars, t voromesh.BoundaryType) *Problem {
	b := voromesh.NewBoundary([3]float64{}, [3]float64{1, 1, 1}, t)
	return &Problem{
		Name:     "uniform",
		Points:   Grid(dim, b.Min, b.Max, cube(dim, n), 0, nil),
		Boundary: b,
		Params:   voromesh.DefaultParams(),
		Initial:  func(r3.Vec) voromesh.Vars { return w },
	}
}
