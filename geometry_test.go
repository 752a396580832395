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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestVolumePartition(t *testing.T) {
	for _, test := range []struct {
		name    string
		dim, n  int
		perturb float64
		bt      BoundaryType
	}{
		{name: "2D uniform reflective", dim: 2, n: 10, bt: Reflective},
		{name: "2D perturbed reflective", dim: 2, n: 12, perturb: 0.2, bt: Reflective},
		{name: "2D perturbed periodic", dim: 2, n: 12, perturb: 0.2, bt: Periodic},
		{name: "2D perturbed outflow", dim: 2, n: 9, perturb: 0.2, bt: Outflow},
		{name: "3D perturbed reflective", dim: 3, n: 5, perturb: 0.2, bt: Reflective},
		{name: "3D perturbed periodic", dim: 3, n: 5, perturb: 0.2, bt: Periodic},
	} {
		t.Run(test.name, func(t *testing.T) {
			s := newSimulation(t, gridPoints(test.dim, test.n, test.perturb, 1), test.bt, uniform(1, 1, r3.Vec{}), nil)
			if v := s.TotalVolume(); absDifferent(v, 1, 1e-10) {
				t.Errorf("total volume: have %.15g, want 1", v)
			}
			for i, v := range s.Cells.Volume {
				if !(v > 0) {
					t.Errorf("cell %d: volume %g", i, v)
				}
			}
		})
	}
}

func TestCentroidUniformGrid(t *testing.T) {
	for _, dim := range []int{2, 3} {
		s := newSimulation(t, gridPoints(dim, 6, 0, 1), Reflective, uniform(1, 1, r3.Vec{}), nil)
		want := 1 / math.Pow(6, float64(dim))
		for i := 0; i < s.Particles.NumReal; i++ {
			if c, x := s.Cells.Centroid[i], s.Particles.Position(i); vecDifferent(c, x, 1e-12) {
				t.Errorf("%dD cell %d: centroid %v, generator %v", dim, i, c, x)
			}
			if absDifferent(s.Cells.Volume[i], want, 1e-12) {
				t.Errorf("%dD cell %d: volume %g, want %g", dim, i, s.Cells.Volume[i], want)
			}
		}
	}
}

func TestFaces(t *testing.T) {
	s := newSimulation(t, gridPoints(2, 8, 0.2, 3), Periodic, uniform(1, 1, r3.Vec{}), nil)
	prepare(t, s)
	nReal := s.Particles.NumReal
	perimeter := make([]float64, nReal)
	for _, f := range s.Faces {
		i, j := f.Pair[0], f.Pair[1]
		require.True(t, i < j, "face %v is not ordered", f.Pair)
		require.True(t, i < nReal, "face %v has no real side", f.Pair)
		assert.InDelta(t, 1, r3.Norm(f.Normal), 1e-12)
		d := r3.Sub(s.Particles.Position(j), s.Particles.Position(i))
		assert.True(t, r3.Dot(d, f.Normal) > 0, "normal of face %v points from the higher index", f.Pair)
		// The face lies on the perpendicular bisector of its generators.
		mid := r3.Scale(0.5, r3.Add(s.Particles.Position(i), s.Particles.Position(j)))
		assert.InDelta(t, 0, r3.Dot(r3.Sub(f.Centroid, mid), f.Normal), 1e-12)
		perimeter[i] += f.Area
		if j < nReal {
			perimeter[j] += f.Area
		}
	}
	// Every face appears once, so the face area vectors of each closed cell
	// sum to zero.
	closure := make([]r3.Vec, nReal)
	for _, f := range s.Faces {
		a := r3.Scale(f.Area, f.Normal)
		closure[f.Pair[0]] = r3.Add(closure[f.Pair[0]], a)
		if f.Pair[1] < nReal {
			closure[f.Pair[1]] = r3.Sub(closure[f.Pair[1]], a)
		}
	}
	for i, c := range closure {
		if r3.Norm(c) > 1e-12 {
			t.Errorf("cell %d is not closed: %v", i, c)
		}
		if !(perimeter[i] > 0) {
			t.Errorf("cell %d has perimeter %g", i, perimeter[i])
		}
	}
}

func TestFacePolygon(t *testing.T) {
	// Unit square in the z=0 plane, corners out of order.
	verts := []r3.Vec{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	area, c := facePolygon(3, verts, r3.Vec{Z: 1})
	assert.InDelta(t, 1, area, 1e-15)
	assert.False(t, vecDifferent(c, r3.Vec{X: 0.5, Y: 0.5}, 1e-15))

	// Segment in 2D.
	area, c = facePolygon(2, []r3.Vec{{X: 1, Y: 3}, {X: 1, Y: 1}}, r3.Vec{X: 1})
	assert.InDelta(t, 2, area, 1e-15)
	assert.False(t, vecDifferent(c, r3.Vec{X: 1, Y: 2}, 1e-15))

	// Degenerate faces have zero measure.
	area, _ = facePolygon(2, []r3.Vec{{X: 1, Y: 1}, {X: 1, Y: 1}}, r3.Vec{X: 1})
	assert.Equal(t, 0., area)
	area, _ = facePolygon(3, []r3.Vec{{X: 1}, {X: 2}, {X: 3}}, r3.Vec{Z: 1})
	assert.Equal(t, 0., area)

	// A lattice face between diagonal neighbors is a segment whose
	// corners differ by round-off. It has no area and its centroid stays
	// on the segment.
	seg := []r3.Vec{
		{X: 0.7, Y: -6.9e-18, Z: 0.7}, {X: 0.7, Z: 0.7},
		{X: 0.6, Y: -6.9e-18, Z: 0.7}, {X: 0.6, Z: 0.7},
		{X: 0.65, Y: -3e-18, Z: 0.7},
	}
	area, c = facePolygon(3, seg, r3.Vec{Y: -1})
	assert.Equal(t, 0., area)
	assert.InDelta(t, 0.66, c.X, 1e-12)
	assert.InDelta(t, 0.7, c.Z, 1e-12)

	// Small faces that are not degenerate keep their area.
	const h = 1e-4
	area, c = facePolygon(3, []r3.Vec{{X: 0.5, Y: 0.5}, {X: 0.5 + h, Y: 0.5}, {X: 0.5 + h, Y: 0.5 + h}, {X: 0.5, Y: 0.5 + h}}, r3.Vec{Z: 1})
	assert.InDelta(t, h*h, area, 1e-20)
	assert.False(t, vecDifferent(c, r3.Vec{X: 0.5 + h/2, Y: 0.5 + h/2}, 1e-12))
}

func TestLatticeFaces3D(t *testing.T) {
	// Exact lattices have many faces that degenerate to segments and
	// points; none of them may reach the face list.
	s := newSimulation(t, gridPoints(3, 6, 0, 1), Reflective, wavy, nil)
	prepare(t, s)
	for fi, f := range s.Faces {
		x := s.Particles.Position(f.Pair[0])
		if d := r3.Norm(r3.Sub(f.Centroid, x)); d > 0.5 {
			t.Errorf("face %d %v: centroid %v is %g from its generator", fi, f.Pair, f.Centroid, d)
		}
		if f.Area < 1e-10 {
			t.Errorf("face %d %v: area %g", fi, f.Pair, f.Area)
		}
	}
	runSteps(t, s, 8)
	assert.InDelta(t, 1, s.TotalVolume(), 1e-10)
}

func TestFaceVelocity(t *testing.T) {
	xl, xr := r3.Vec{X: 0}, r3.Vec{X: 1}
	c := r3.Vec{X: 0.5, Y: 0.3}
	if v := FaceVelocity(xl, xr, r3.Vec{}, r3.Vec{}, c); v != (r3.Vec{}) {
		t.Errorf("stationary generators: face velocity %v", v)
	}
	w := r3.Vec{X: 0.2, Y: -1, Z: 3}
	if v := FaceVelocity(xl, xr, w, w, c); vecDifferent(v, w, 1e-15) {
		t.Errorf("translation: face velocity %v, want %v", v, w)
	}
	// Generators approaching each other symmetrically leave the face
	// at rest.
	v := FaceVelocity(xl, xr, r3.Vec{X: 1}, r3.Vec{X: -1}, r3.Vec{X: 0.5})
	assert.False(t, vecDifferent(v, r3.Vec{}, 1e-15))
	// A face off the midpoint picks up the relative motion.
	v = FaceVelocity(xl, xr, r3.Vec{Y: 1}, r3.Vec{}, c)
	assert.InDelta(t, 0.5, v.Y, 1e-15)
	assert.InDelta(t, 0.3, v.X, 1e-15)
}

func TestCellPolygons(t *testing.T) {
	s := newSimulation(t, gridPoints(2, 7, 0.2, 5), Reflective, uniform(1, 1, r3.Vec{}), nil)
	polys, err := s.CellPolygons()
	require.NoError(t, err)
	require.Len(t, polys, s.Particles.NumReal)
	areas := make([]float64, len(polys))
	for i, p := range polys {
		areas[i] = p.Area()
		if different(areas[i], s.Cells.Volume[i], 1e-10) {
			t.Errorf("cell %d: polygon area %g, volume %g", i, areas[i], s.Cells.Volume[i])
		}
	}
	assert.InDelta(t, 1, floats.Sum(areas), 1e-10)

	s3 := newSimulation(t, gridPoints(3, 3, 0, 1), Reflective, uniform(1, 1, r3.Vec{}), nil)
	_, err = s3.CellPolygons()
	assert.Error(t, err)
}
