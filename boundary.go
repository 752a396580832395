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

// BoundaryType is the treatment of one side of the domain.
type BoundaryType int

const (
	// Reflective sides mirror generators across the boundary plane and
	// negate the velocity component normal to it.
	Reflective BoundaryType = iota

	// Periodic sides translate generators by the domain period. Both
	// sides along an axis must be periodic.
	Periodic

	// Outflow sides mirror generators across the boundary plane and copy
	// their state unchanged. Generators that cross an outflow side are
	// removed.
	Outflow
)

func (b BoundaryType) String() string {
	switch b {
	case Reflective:
		return "reflective"
	case Periodic:
		return "periodic"
	case Outflow:
		return "outflow"
	}
	return fmt.Sprintf("BoundaryType(%d)", int(b))
}

// ParseBoundaryType returns the BoundaryType named s.
func ParseBoundaryType(s string) (BoundaryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reflective", "reflect", "wall":
		return Reflective, nil
	case "periodic":
		return Periodic, nil
	case "outflow":
		return Outflow, nil
	}
	return 0, fmt.Errorf("voromesh: invalid boundary type %q", s)
}

// Boundary is a rectangular domain with a boundary treatment for each side.
type Boundary struct {
	Min, Max [3]float64

	// Lower and Upper are the treatments of the sides at Min and Max
	// along each axis.
	Lower, Upper [3]BoundaryType

	// Depth is the initial thickness of the ghost layer. If zero, it is
	// set from the mean generator spacing.
	Depth float64
}

// NewBoundary returns a Boundary with the same treatment on every side.
func NewBoundary(min, max [3]float64, t BoundaryType) *Boundary {
	b := &Boundary{Min: min, Max: max}
	for k := 0; k < 3; k++ {
		b.Lower[k], b.Upper[k] = t, t
	}
	return b
}

// Validate checks that b is usable in dim dimensions.
func (b *Boundary) Validate(dim int) error {
	for k := 0; k < dim; k++ {
		if !(b.Max[k] > b.Min[k]) {
			return fmt.Errorf("voromesh: boundary: Max[%d]=%g should be > Min[%d]=%g", k, b.Max[k], k, b.Min[k])
		}
		if (b.Lower[k] == Periodic) != (b.Upper[k] == Periodic) {
			return fmt.Errorf("voromesh: boundary: axis %d is periodic on only one side", k)
		}
	}
	if b.Depth < 0 {
		return fmt.Errorf("voromesh: boundary: Depth=%g but should be >= 0", b.Depth)
	}
	return nil
}

// Volume returns the domain volume (area in 2D).
func (b *Boundary) Volume(dim int) float64 {
	v := 1.
	for k := 0; k < dim; k++ {
		v *= b.Max[k] - b.Min[k]
	}
	return v
}

// spacing returns the mean generator spacing for n generators.
func (b *Boundary) spacing(dim, n int) float64 {
	return math.Pow(b.Volume(dim)/float64(n), 1/float64(dim))
}

// maxDepth is the largest ghost depth the boundary supports: a periodic
// image is never translated by more than one period.
func (b *Boundary) maxDepth(dim int) float64 {
	d := math.Inf(1)
	for k := 0; k < dim; k++ {
		d = math.Min(d, b.Max[k]-b.Min[k])
	}
	return d
}

// image is one way of imaging a coordinate along an axis.
type image struct {
	mirror bool
	plane  float64
	shift  float64
	flip   bool
}

// Ghosts returns the ghost generators for the real generators of p that
// lie within depth of a side, including the images across edges and
// corners.
func (b *Boundary) Ghosts(p *Particles, depth float64) []Ghost {
	dim := p.Dim
	var ghosts []Ghost
	var opts [3][]image
	var choice [3]int
	for i := 0; i < p.NumReal; i++ {
		n := 1
		for k := 0; k < dim; k++ {
			x := p.Pos[k][i]
			opts[k] = append(opts[k][:0], image{})
			L := b.Max[k] - b.Min[k]
			if b.Lower[k] == Periodic {
				if x > b.Max[k]-depth {
					opts[k] = append(opts[k], image{shift: -L})
				}
				if x < b.Min[k]+depth {
					opts[k] = append(opts[k], image{shift: L})
				}
			} else {
				if x < b.Min[k]+depth {
					opts[k] = append(opts[k], image{mirror: true, plane: b.Min[k], flip: b.Lower[k] == Reflective})
				}
				if x > b.Max[k]-depth {
					opts[k] = append(opts[k], image{mirror: true, plane: b.Max[k], flip: b.Upper[k] == Reflective})
				}
			}
			n *= len(opts[k])
		}
		// Enumerate every combination except the identity.
		for c := 1; c < n; c++ {
			r := c
			for k := 0; k < dim; k++ {
				choice[k] = r % len(opts[k])
				r /= len(opts[k])
			}
			g := Ghost{Source: i}
			for k := 0; k < dim; k++ {
				im := opts[k][choice[k]]
				g.Mirror[k] = im.mirror
				g.Plane[k] = im.plane
				g.Shift[k] = im.shift
				g.Flip[k] = im.flip
			}
			ghosts = append(ghosts, g)
		}
	}
	return ghosts
}

// wrap moves real generators that have left a periodic domain back inside.
// It returns the generators that left through an outflow side, and the
// index of a generator that left through a reflective side or -1.
func (b *Boundary) wrap(p *Particles) (escaped []int, wall int) {
	wall = -1
	for i := 0; i < p.NumReal; i++ {
		out := false
		for k := 0; k < p.Dim; k++ {
			x := p.Pos[k][i]
			L := b.Max[k] - b.Min[k]
			var side BoundaryType
			switch {
			case x < b.Min[k]:
				side = b.Lower[k]
				if side == Periodic {
					p.Pos[k][i] = x + L
				}
			case x >= b.Max[k]:
				side = b.Upper[k]
				if side == Periodic {
					p.Pos[k][i] = x - L
				}
			default:
				continue
			}
			switch side {
			case Outflow:
				out = true
			case Reflective:
				if wall < 0 {
					wall = i
				}
			}
		}
		if out {
			escaped = append(escaped, i)
		}
	}
	return escaped, wall
}

// requiredDepth returns the ghost depth needed for the cell of real
// generator i, whose farthest Voronoi vertex is at distance rmax: every
// point within 2·rmax of the generator must be either inside the domain
// or covered by the ghost layer.
func (b *Boundary) requiredDepth(p *Particles, i int, rmax float64) float64 {
	var d float64
	for k := 0; k < p.Dim; k++ {
		x := p.Pos[k][i]
		d = math.Max(d, 2*rmax-(x-b.Min[k]))
		d = math.Max(d, 2*rmax-(b.Max[k]-x))
	}
	return d
}
