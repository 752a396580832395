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

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Gradient holds the spatial gradient of each primitive variable.
type Gradient [NumFields]r3.Vec

// A Reconstructor estimates the primitive state on either side of a face
// from cell averages.
type Reconstructor interface {
	// Gradients returns the gradient of each primitive variable for every
	// generator, ghosts included.
	Gradients(s *Simulation) ([]Gradient, error)

	// Extrapolate returns the primitive states on the Pair[0] and
	// Pair[1] sides of face s.Faces[face], advanced by half of dt.
	Extrapolate(s *Simulation, face int, dt float64) (left, right Vars, err error)
}

// NewReconstructor returns the reconstruction named kind, either
// "constant" or "linear".
func NewReconstructor(kind string, limit, predict bool) (Reconstructor, error) {
	switch strings.ToLower(kind) {
	case "constant", "piecewise-constant":
		return PiecewiseConstant{}, nil
	case "linear", "piecewise-linear":
		return Linear{Limit: limit, Predict: predict}, nil
	}
	return nil, fmt.Errorf("voromesh: invalid reconstruction %q", kind)
}

// PiecewiseConstant uses the cell average on each side of a face.
type PiecewiseConstant struct{}

// Gradients implements Reconstructor. All gradients are zero.
func (PiecewiseConstant) Gradients(s *Simulation) ([]Gradient, error) {
	return make([]Gradient, s.Particles.Len()), nil
}

// Extrapolate implements Reconstructor.
func (PiecewiseConstant) Extrapolate(s *Simulation, face int, dt float64) (left, right Vars, err error) {
	f := &s.Faces[face]
	return s.Primitive.Get(f.Pair[0]), s.Primitive.Get(f.Pair[1]), nil
}

// Linear reconstructs a linear profile in each cell from a least-squares
// fit of the neighboring cell averages, weighted by face area.
type Linear struct {
	// Limit restricts each gradient so that the extrapolated face values
	// stay within the range of the cell and its neighbors.
	Limit bool

	// Predict advances face states by half a time step using the
	// primitive equations, in the frame moving with the cell.
	Predict bool
}

// Gradients implements Reconstructor.
func (l Linear) Gradients(s *Simulation) ([]Gradient, error) {
	p := s.Particles
	D := p.Dim
	grad := make([]Gradient, p.Len())
	err := calculations(p.NumReal, func(i int) error {
		ci := s.Cells.Centroid[i]
		wi := s.Primitive.Get(i)
		a := mat.NewDense(D, D, nil)
		b := mat.NewDense(D, int(NumFields), nil)
		for _, fi := range s.cellFaces[i] {
			f := &s.Faces[fi]
			j := f.Pair[0]
			if j == i {
				j = f.Pair[1]
			}
			dx := r3.Sub(s.centroid(j), ci)
			for r := 0; r < D; r++ {
				dr := component(dx, r)
				for c := 0; c < D; c++ {
					a.Set(r, c, a.At(r, c)+f.Area*dr*component(dx, c))
				}
				for fld := Field(0); fld < NumFields; fld++ {
					b.Set(r, int(fld), b.At(r, int(fld))+f.Area*dr*(s.Primitive[fld][j]-wi[fld]))
				}
			}
		}
		var x mat.Dense
		if err := x.Solve(a, b); err != nil {
			return stepError(ErrGeometryDegenerate, "gradients", i, "least squares: %v", err)
		}
		for fld := Field(0); fld < NumFields; fld++ {
			var g r3.Vec
			for r := 0; r < D; r++ {
				setComponent(&g, r, x.At(r, int(fld)))
			}
			grad[i][fld] = g
		}
		if l.Limit {
			s.limit(i, &grad[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := p.NumReal; i < p.Len(); i++ {
		g := p.Ghost(i)
		if g.Source < 0 {
			continue
		}
		for fld := Field(0); fld < NumFields; fld++ {
			grad[i][fld] = g.gradient(fld, grad[g.Source][fld])
		}
	}
	return grad, nil
}

// limit scales each gradient of real generator i so that the
// extrapolation to every face centroid stays within the minimum and
// maximum of the cell and its neighbors.
func (s *Simulation) limit(i int, g *Gradient) {
	ci := s.Cells.Centroid[i]
	for fld := Field(0); fld < NumFields; fld++ {
		wi := s.Primitive[fld][i]
		lo, hi := wi, wi
		for _, fi := range s.cellFaces[i] {
			f := &s.Faces[fi]
			j := f.Pair[0]
			if j == i {
				j = f.Pair[1]
			}
			lo = math.Min(lo, s.Primitive[fld][j])
			hi = math.Max(hi, s.Primitive[fld][j])
		}
		alpha := 1.
		for _, fi := range s.cellFaces[i] {
			d := r3.Dot(g[fld], r3.Sub(s.Faces[fi].Centroid, ci))
			switch {
			case d > 0:
				alpha = math.Min(alpha, (hi-wi)/d)
			case d < 0:
				alpha = math.Min(alpha, (lo-wi)/d)
			}
		}
		g[fld] = r3.Scale(alpha, g[fld])
	}
}

// Extrapolate implements Reconstructor.
func (l Linear) Extrapolate(s *Simulation, face int, dt float64) (left, right Vars, err error) {
	f := &s.Faces[face]
	var out [2]Vars
	for side, i := range f.Pair {
		w := s.Primitive.Get(i)
		g := &s.Gradients[i]
		dx := r3.Sub(f.Centroid, s.centroid(i))
		var dw Vars
		if l.Predict {
			dw = timeDerivative(w, g, s.MeshVelocity[i], s.Params.Gamma)
		}
		for fld := Field(0); fld < NumFields; fld++ {
			out[side][fld] = w[fld] + r3.Dot(g[fld], dx) + 0.5*dt*dw[fld]
		}
		if err := physical(out[side]); err != nil {
			return left, right, stepError(ErrNonPhysicalState, "reconstruction", face,
				"state of generator %d extrapolated to face: %v", i, err)
		}
	}
	return out[0], out[1], nil
}

// timeDerivative returns the rate of change of primitive state w with
// gradient g, seen from a cell moving with velocity wm.
func timeDerivative(w Vars, g *Gradient, wm r3.Vec, gamma float64) Vars {
	v := r3.Vec{X: w[VelocityX], Y: w[VelocityY], Z: w[VelocityZ]}
	u := r3.Sub(v, wm)
	rho, p := w[Density], w[Pressure]
	div := g[VelocityX].X + g[VelocityY].Y + g[VelocityZ].Z
	var dw Vars
	dw[Density] = -(r3.Dot(u, g[Density]) + rho*div)
	for k := 0; k < 3; k++ {
		vk := velocity(k)
		dw[vk] = -(r3.Dot(u, g[vk]) + component(g[Pressure], k)/rho)
	}
	dw[Pressure] = -(r3.Dot(u, g[Pressure]) + gamma*p*div)
	return dw
}
