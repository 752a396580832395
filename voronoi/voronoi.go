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

// Package voronoi computes Voronoi diagrams of 2D and 3D point sets as the
// dual of a Delaunay triangulation.
package voronoi

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrDuplicatePoint is returned when two input points coincide.
	ErrDuplicatePoint = errors.New("voronoi: duplicate point")

	// ErrDegenerate is returned when the input cannot be triangulated,
	// for example when there are fewer than D+1 points or the
	// coordinates are not finite.
	ErrDegenerate = errors.New("voronoi: degenerate input")
)

// Infinity is the vertex index used in a Ridge for a vertex at infinity.
const Infinity = -1

// A Ridge is the face shared by the Voronoi cells of two input points.
type Ridge struct {
	// Points holds the indices of the two input points, with
	// Points[0] < Points[1].
	Points [2]int

	// Vertices holds the indices into Diagram.Vertices of the ridge's
	// corners. In 3D they are ordered around the ridge. A value of
	// Infinity means the ridge is unbounded.
	Vertices []int
}

// Unbounded returns whether the ridge extends to infinity.
func (r Ridge) Unbounded() bool {
	for _, v := range r.Vertices {
		if v == Infinity {
			return true
		}
	}
	return false
}

// Diagram is a Voronoi diagram.
type Diagram struct {
	Dim      int
	Vertices [][]float64
	Ridges   []Ridge
}

// An Oracle computes the Voronoi diagram of a set of D-dimensional points.
type Oracle interface {
	Voronoi(points [][]float64) (*Diagram, error)
}

// Incremental is an Oracle that builds the Delaunay triangulation of the
// points by incremental insertion with exact geometric predicates, and
// returns its dual.
type Incremental struct {
	// Log, if set, receives a debug entry for each diagram computed.
	Log logrus.FieldLogger
}

// Voronoi implements Oracle.
func (o Incremental) Voronoi(points [][]float64) (*Diagram, error) {
	start := time.Now()
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrDegenerate)
	}
	dim := len(points[0])
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: dimension %d is not supported", ErrDegenerate, dim)
	}
	if len(points) < dim+1 {
		return nil, fmt.Errorf("%w: %d points in %d dimensions", ErrDegenerate, len(points), dim)
	}
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("%w: point %d has %d coordinates, expected %d", ErrDegenerate, i, len(p), dim)
		}
		for _, x := range p {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("%w: point %d is not finite", ErrDegenerate, i)
			}
		}
	}
	if i, j, ok := findDuplicate(points); ok {
		return nil, fmt.Errorf("%w: points %d and %d", ErrDuplicatePoint, i, j)
	}
	t := newTriangulation(points, dim)
	for _, i := range insertionOrder(points, dim) {
		if err := t.insert(i); err != nil {
			return nil, err
		}
	}
	d, err := t.dual()
	if err != nil {
		return nil, err
	}
	if o.Log != nil {
		o.Log.WithFields(logrus.Fields{
			"points":      len(points),
			"vertices":    len(d.Vertices),
			"ridges":      len(d.Ridges),
			"exact_calls": t.exactCalls,
			"duration":    time.Since(start),
		}).Debug("voronoi: computed diagram")
	}
	return d, nil
}
