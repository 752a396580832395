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
	"gonum.org/v1/gonum/spatial/r3"
)

// Tag classifies a generator.
type Tag uint8

const (
	// TagReal generators own authoritative fluid state.
	TagReal Tag = iota

	// TagGhost generators are synthesized at domain edges or supplied by a
	// neighboring partition. They hold a copy of their source's state that
	// is valid for the current tessellation only.
	TagGhost

	// TagBoundary marks a real generator whose cell borders a ghost.
	TagBoundary
)

func (t Tag) String() string {
	switch t {
	case TagReal:
		return "Real"
	case TagGhost:
		return "Ghost"
	case TagBoundary:
		return "Boundary"
	}
	return "Tag(?)"
}

// A Ghost describes how a ghost generator is derived from its source.
// Along each axis the source coordinate is either mirrored across Plane or
// translated by Shift.
type Ghost struct {
	// Source is the index of the real generator this ghost images, or -1
	// for a ghost supplied externally. It is a plain index into the
	// current Particles and does not imply ownership.
	Source int

	Mirror [3]bool
	Plane  [3]float64
	Shift  [3]float64

	// Flip marks velocity components that are negated.
	Flip [3]bool

	// Position and State are used only when Source is -1.
	Position r3.Vec
	State    Vars
}

// point returns the image of x under g.
func (g *Ghost) point(x r3.Vec) r3.Vec {
	if g.Source < 0 {
		return g.Position
	}
	var y [3]float64
	for k, xk := range [3]float64{x.X, x.Y, x.Z} {
		if g.Mirror[k] {
			y[k] = 2*g.Plane[k] - xk
		} else {
			y[k] = xk + g.Shift[k]
		}
	}
	return r3.Vec{X: y[0], Y: y[1], Z: y[2]}
}

// motion returns the image of mesh velocity v under g: components along
// mirrored axes are negated, so a ghost moves as the mirror image of its
// source whatever its boundary treatment.
func (g *Ghost) motion(v r3.Vec) r3.Vec {
	if g.Mirror[0] {
		v.X = -v.X
	}
	if g.Mirror[1] {
		v.Y = -v.Y
	}
	if g.Mirror[2] {
		v.Z = -v.Z
	}
	return v
}

// state returns the image of primitive state w under g.
func (g *Ghost) state(w Vars) Vars {
	if g.Source < 0 {
		return g.State
	}
	for k := 0; k < 3; k++ {
		if g.Flip[k] {
			w[velocity(k)] = -w[velocity(k)]
		}
	}
	return w
}

// gradient returns the image of the gradient of the source's field f.
func (g *Ghost) gradient(f Field, grad r3.Vec) r3.Vec {
	if g.Mirror[0] {
		grad.X = -grad.X
	}
	if g.Mirror[1] {
		grad.Y = -grad.Y
	}
	if g.Mirror[2] {
		grad.Z = -grad.Z
	}
	for k := 0; k < 3; k++ {
		if g.Flip[k] && f == velocity(k) {
			grad = r3.Scale(-1, grad)
		}
	}
	return grad
}

// Particles is the ordered generator set of the current step: real
// generators occupy indices [0, NumReal) and ghosts follow.
type Particles struct {
	Dim     int
	NumReal int

	// Pos holds the coordinates of every generator along each axis.
	// Pos[2] is zero in 2D.
	Pos [3][]float64

	Tag []Tag

	// Ghosts[i] describes generator NumReal+i.
	Ghosts []Ghost
}

// NewParticles returns a set of real generators at the given positions.
// points[i] holds the coordinates of generator i.
func NewParticles(dim int, points [][]float64) *Particles {
	p := &Particles{Dim: dim, NumReal: len(points)}
	for k := range p.Pos {
		p.Pos[k] = make([]float64, len(points))
	}
	for i, x := range points {
		for k := 0; k < dim; k++ {
			p.Pos[k][i] = x[k]
		}
	}
	p.Tag = make([]Tag, len(points))
	return p
}

// Len returns the total number of generators.
func (p *Particles) Len() int { return len(p.Tag) }

// Position returns the position of generator i.
func (p *Particles) Position(i int) r3.Vec {
	return r3.Vec{X: p.Pos[0][i], Y: p.Pos[1][i], Z: p.Pos[2][i]}
}

// SetPosition sets the position of generator i.
func (p *Particles) SetPosition(i int, x r3.Vec) {
	p.Pos[0][i], p.Pos[1][i] = x.X, x.Y
	if p.Dim == 3 {
		p.Pos[2][i] = x.Z
	}
}

// Ghost returns the ghost description of generator i, or nil if i is real.
func (p *Particles) Ghost(i int) *Ghost {
	if i < p.NumReal {
		return nil
	}
	return &p.Ghosts[i-p.NumReal]
}

// clearGhosts removes all ghost generators.
func (p *Particles) clearGhosts() {
	for k := range p.Pos {
		p.Pos[k] = p.Pos[k][:p.NumReal]
	}
	p.Tag = p.Tag[:p.NumReal]
	for i := range p.Tag {
		p.Tag[i] = TagReal
	}
	p.Ghosts = p.Ghosts[:0]
}

// removeReal deletes the real generators in drop, keeping the order of
// the others, and removes all ghosts.
func (p *Particles) removeReal(drop map[int]bool) {
	p.clearGhosts()
	n := 0
	for i := 0; i < p.NumReal; i++ {
		if drop[i] {
			continue
		}
		for k := range p.Pos {
			p.Pos[k][n] = p.Pos[k][i]
		}
		n++
	}
	p.NumReal = n
	p.clearGhosts()
}

// addGhosts appends ghost generators.
func (p *Particles) addGhosts(gs []Ghost) {
	for _, g := range gs {
		var x r3.Vec
		if g.Source >= 0 {
			x = g.point(p.Position(g.Source))
		} else {
			x = g.Position
		}
		p.Pos[0] = append(p.Pos[0], x.X)
		p.Pos[1] = append(p.Pos[1], x.Y)
		if p.Dim == 3 {
			p.Pos[2] = append(p.Pos[2], x.Z)
		} else {
			p.Pos[2] = append(p.Pos[2], 0)
		}
		p.Tag = append(p.Tag, TagGhost)
		p.Ghosts = append(p.Ghosts, g)
	}
}

// points returns the generator coordinates in the form used by
// voronoi.Oracle.
func (p *Particles) points() [][]float64 {
	pts := make([][]float64, p.Len())
	buf := make([]float64, p.Len()*p.Dim)
	for i := range pts {
		pts[i] = buf[i*p.Dim : (i+1)*p.Dim : (i+1)*p.Dim]
		for k := 0; k < p.Dim; k++ {
			pts[i][k] = p.Pos[k][i]
		}
	}
	return pts
}

func component(v r3.Vec, k int) float64 {
	switch k {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

func setComponent(v *r3.Vec, k int, x float64) {
	switch k {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
}
