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

package voronoi

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func randomPoints(n, dim int, seed int64) [][]float64 {
	r := rand.New(rand.NewSource(seed))
	p := make([][]float64, n)
	for i := range p {
		p[i] = make([]float64, dim)
		for c := range p[i] {
			p[i][c] = r.Float64()
		}
	}
	return p
}

func dist(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += (a[i] - b[i]) * (a[i] - b[i])
	}
	return math.Sqrt(s)
}

func TestPredicates(t *testing.T) {
	tri := &triangulation{dim: 2, pts: [][3]float64{{0, 0}, {1, 0}, {0, 1}, {0.25, 0.25}, {1, 1}, {2, 2}}}
	if o := tri.orient([]int{0, 1, 2}); o != 1 {
		t.Errorf("orient = %d, want 1", o)
	}
	if o := tri.orient([]int{0, 2, 1}); o != -1 {
		t.Errorf("orient = %d, want -1", o)
	}
	if o := tri.orient([]int{0, 4, 5}); o != 0 {
		t.Errorf("collinear orient = %d, want 0", o)
	}
	if s := tri.inSphere([]int{0, 1, 2}, 3); s != 1 {
		t.Errorf("inside inSphere = %d, want 1", s)
	}
	if s := tri.inSphere([]int{0, 1, 2}, 5); s != -1 {
		t.Errorf("outside inSphere = %d, want -1", s)
	}
	if s := tri.inSphere([]int{0, 1, 2}, 4); s != 0 {
		t.Errorf("cocircular inSphere = %d, want 0", s)
	}

	tri3 := &triangulation{dim: 3, pts: [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.1, 0.1, 0.1}, {1, 1, 0}, {3, 3, 3}}}
	if o := tri3.orient([]int{0, 1, 2, 3}); o != 1 {
		t.Errorf("3d orient = %d, want 1", o)
	}
	if s := tri3.inSphere([]int{0, 1, 2, 3}, 4); s != -1 {
		t.Errorf("3d inside inSphere = %d, want -1", s)
	}
	if s := tri3.inSphere([]int{0, 1, 2, 3}, 6); s != 1 {
		t.Errorf("3d outside inSphere = %d, want 1", s)
	}
	if s := tri3.inSphere([]int{0, 1, 2, 3}, 5); s != 0 {
		t.Errorf("3d cospherical inSphere = %d, want 0", s)
	}
}

// checkDiagram verifies that every finite Voronoi vertex of a ridge is
// equidistant from the ridge's two points and that no input point is
// closer to it.
func checkDiagram(t *testing.T, pts [][]float64, d *Diagram) {
	t.Helper()
	const tol = 1e-9
	for _, r := range d.Ridges {
		a, b := pts[r.Points[0]], pts[r.Points[1]]
		if r.Points[0] >= r.Points[1] {
			t.Fatalf("ridge points not ordered: %v", r.Points)
		}
		for _, vi := range r.Vertices {
			if vi == Infinity {
				continue
			}
			v := d.Vertices[vi]
			da, db := dist(v, a), dist(v, b)
			if math.Abs(da-db) > tol {
				t.Fatalf("ridge %v vertex %d: distances %g and %g", r.Points, vi, da, db)
			}
			for i, p := range pts {
				if dist(v, p) < da-tol {
					t.Fatalf("ridge %v vertex %d: point %d is closer (%g < %g)", r.Points, vi, i, dist(v, p), da)
				}
			}
		}
	}
}

func TestVoronoiRandom2D(t *testing.T) {
	pts := randomPoints(300, 2, 1)
	d, err := Incremental{}.Voronoi(pts)
	if err != nil {
		t.Fatal(err)
	}
	checkDiagram(t, pts, d)
	// Every point has at least 3 neighbors in 2D.
	nn := make([]int, len(pts))
	for _, r := range d.Ridges {
		nn[r.Points[0]]++
		nn[r.Points[1]]++
	}
	for i, n := range nn {
		if n < 2 {
			t.Errorf("point %d has %d neighbors", i, n)
		}
	}
}

func TestVoronoiRandom3D(t *testing.T) {
	pts := randomPoints(200, 3, 2)
	d, err := Incremental{}.Voronoi(pts)
	if err != nil {
		t.Fatal(err)
	}
	checkDiagram(t, pts, d)
	for _, r := range d.Ridges {
		if len(r.Vertices) < 3 {
			t.Errorf("3d ridge %v has %d vertices", r.Points, len(r.Vertices))
		}
	}
}

func TestVoronoiGrid(t *testing.T) {
	// A square lattice is fully cocircular.
	const n = 6
	var pts [][]float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pts = append(pts, []float64{float64(i), float64(j)})
		}
	}
	d, err := Incremental{}.Voronoi(pts)
	if err != nil {
		t.Fatal(err)
	}
	checkDiagram(t, pts, d)
	// Interior point (2,2) must border (1,2), (3,2), (2,1), (2,3) with
	// unit-length bounded ridges.
	center := 2*n + 2
	want := map[int]bool{1*n + 2: true, 3*n + 2: true, 2*n + 1: true, 2*n + 3: true}
	for _, r := range d.Ridges {
		var other int
		switch center {
		case r.Points[0]:
			other = r.Points[1]
		case r.Points[1]:
			other = r.Points[0]
		default:
			continue
		}
		if r.Unbounded() {
			t.Errorf("ridge %v is unbounded", r.Points)
			continue
		}
		l := dist(d.Vertices[r.Vertices[0]], d.Vertices[r.Vertices[1]])
		if want[other] {
			if math.Abs(l-1) > 1e-12 {
				t.Errorf("ridge %v has length %g, want 1", r.Points, l)
			}
			delete(want, other)
		} else if l > 1e-12 {
			t.Errorf("diagonal ridge %v has length %g, want 0", r.Points, l)
		}
	}
	if len(want) != 0 {
		t.Errorf("missing neighbors %v", want)
	}
}

func TestVoronoiErrors(t *testing.T) {
	_, err := Incremental{}.Voronoi([][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 0}})
	if !errors.Is(err, ErrDuplicatePoint) {
		t.Errorf("duplicate: got %v", err)
	}
	_, err = Incremental{}.Voronoi([][]float64{{0, 0}, {1, 0}})
	if !errors.Is(err, ErrDegenerate) {
		t.Errorf("too few points: got %v", err)
	}
	_, err = Incremental{}.Voronoi([][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}})
	if !errors.Is(err, ErrDegenerate) {
		t.Errorf("collinear: got %v", err)
	}
	_, err = Incremental{}.Voronoi([][]float64{{0, 0}, {1, math.NaN()}, {0, 1}})
	if !errors.Is(err, ErrDegenerate) {
		t.Errorf("nan: got %v", err)
	}
}
