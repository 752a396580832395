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
	"sort"

	"github.com/spatialmodel/voromesh/voronoi"
	"gonum.org/v1/gonum/spatial/r3"
)

// CellInfo holds the geometry of the real cells.
type CellInfo struct {
	Volume   []float64
	Centroid []r3.Vec
}

// Face is a face with non-zero area shared by two generators, at least one
// of them real.
type Face struct {
	// Pair holds the adjacent generators, Pair[0] < Pair[1].
	Pair [2]int

	Area float64

	// Normal is the unit normal pointing from Pair[0] to Pair[1].
	Normal r3.Vec

	Centroid r3.Vec
	Velocity r3.Vec
}

// CellGeometry returns the volume and centroid of the cell of each real
// generator. Each cell is decomposed into pyramids with apex at the
// generator and base on one face; faces with zero area contribute nothing.
func CellGeometry(p *Particles, g *Graph) (*CellInfo, error) {
	c := &CellInfo{
		Volume:   make([]float64, p.NumReal),
		Centroid: make([]r3.Vec, p.NumReal),
	}
	D := float64(p.Dim)
	err := calculations(p.NumReal, func(i int) error {
		x := p.Position(i)
		var vol float64
		var com r3.Vec
		var buf []r3.Vec
		for k, j := range g.Neighbors[i] {
			var ok bool
			buf, ok = faceVertices(buf[:0], g, g.Faces[i][k])
			if !ok {
				return stepError(ErrTopology, "cell geometry", i, "face with generator %d is unbounded", j)
			}
			dx := r3.Sub(p.Position(j), x)
			dist := r3.Norm(dx)
			area, fc := facePolygon(p.Dim, buf, r3.Scale(1/dist, dx))
			if area == 0 {
				continue
			}
			v := area * dist / 2 / D
			vol += v
			com = r3.Add(com, r3.Scale(v, r3.Add(x, r3.Scale(D/(D+1), r3.Sub(fc, x)))))
		}
		if !(vol > 0) {
			return stepError(ErrGeometryDegenerate, "cell geometry", i, "volume=%g", vol)
		}
		c.Volume[i] = vol
		c.Centroid[i] = r3.Scale(1/vol, com)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FaceGeometry returns the faces of non-zero area that border at least one
// real generator. Each face is listed once and its normal points from the
// lower to the higher generator index.
func FaceGeometry(p *Particles, g *Graph) ([]Face, error) {
	var faces []Face
	var buf []r3.Vec
	for i := 0; i < p.NumReal; i++ {
		x := p.Position(i)
		for k, j := range g.Neighbors[i] {
			if j < i {
				continue
			}
			var ok bool
			buf, ok = faceVertices(buf[:0], g, g.Faces[i][k])
			if !ok {
				return nil, stepError(ErrTopology, "face geometry", i, "face with generator %d is unbounded", j)
			}
			dx := r3.Sub(p.Position(j), x)
			dist := r3.Norm(dx)
			if !(dist > 0) {
				return nil, stepError(ErrGeometryDegenerate, "face geometry", i, "generator %d coincides", j)
			}
			n := r3.Scale(1/dist, dx)
			area, c := facePolygon(p.Dim, buf, n)
			if area == 0 {
				continue
			}
			if math.IsNaN(area) {
				return nil, stepError(ErrGeometryDegenerate, "face geometry", i, "face with generator %d has area %g", j, area)
			}
			faces = append(faces, Face{Pair: [2]int{i, j}, Area: area, Normal: n, Centroid: c})
		}
	}
	return faces, nil
}

// faceVertices appends the coordinates of vertex ids to dst. It returns
// false if any vertex is at infinity.
func faceVertices(dst []r3.Vec, g *Graph, ids []int) ([]r3.Vec, bool) {
	for _, v := range ids {
		if v == voronoi.Infinity {
			return dst, false
		}
		dst = append(dst, g.Vertices[v])
	}
	return dst, true
}

// degenerateArea is the area, relative to the squared extent of its
// corners, below which a 3D face is treated as a segment or a point.
const degenerateArea = 1e-12

// facePolygon returns the measure and centroid of a face with normal n and
// the given corners, which need not be ordered. In 2D the face is a
// segment; in 3D it is a convex polygon split into triangles around the
// mean of its corners. A 3D face whose corners are collinear or
// coincident up to round-off has zero area.
func facePolygon(dim int, verts []r3.Vec, n r3.Vec) (float64, r3.Vec) {
	if len(verts) < dim {
		return 0, r3.Vec{}
	}
	if dim == 2 {
		t := r3.Vec{X: -n.Y, Y: n.X}
		lo, hi := 0, 0
		for i, v := range verts {
			if r3.Dot(v, t) < r3.Dot(verts[lo], t) {
				lo = i
			}
			if r3.Dot(v, t) > r3.Dot(verts[hi], t) {
				hi = i
			}
		}
		a, b := verts[lo], verts[hi]
		return r3.Norm(r3.Sub(b, a)), r3.Scale(0.5, r3.Add(a, b))
	}

	var m r3.Vec
	for _, v := range verts {
		m = r3.Add(m, v)
	}
	m = r3.Scale(1/float64(len(verts)), m)

	var extent2 float64
	for _, v := range verts {
		extent2 = math.Max(extent2, r3.Norm2(r3.Sub(v, m)))
	}

	var e1 r3.Vec
	for _, v := range verts {
		d := r3.Sub(v, m)
		d = r3.Sub(d, r3.Scale(r3.Dot(d, n), n))
		if l := r3.Norm(d); l > 0 {
			e1 = r3.Scale(1/l, d)
			break
		}
	}
	if e1 == (r3.Vec{}) {
		return 0, m
	}
	e2 := r3.Cross(n, e1)
	angle := make([]float64, len(verts))
	idx := make([]int, len(verts))
	for i, v := range verts {
		d := r3.Sub(v, m)
		angle[i] = math.Atan2(r3.Dot(d, e2), r3.Dot(d, e1))
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return angle[idx[a]] < angle[idx[b]] })

	var area float64
	var c r3.Vec
	for k := range idx {
		a := r3.Sub(verts[idx[k]], m)
		b := r3.Sub(verts[idx[(k+1)%len(idx)]], m)
		t := 0.5 * r3.Dot(n, r3.Cross(a, b))
		area += t
		c = r3.Add(c, r3.Scale(t, r3.Add(m, r3.Scale(1./3, r3.Add(a, b)))))
	}
	if math.IsNaN(area) {
		return area, m
	}
	if !(area > degenerateArea*extent2) {
		return 0, m
	}
	return area, r3.Scale(1/area, c)
}

// FaceVelocity returns the velocity of the face with centroid c between
// generators at xl and xr moving with velocities wl and wr. It is the mean
// of the two velocities plus the motion induced by the face centroid being
// off the midpoint of the generators (Springel 2010, eq. 33). A face
// between stationary generators is stationary.
func FaceVelocity(xl, xr, wl, wr, c r3.Vec) r3.Vec {
	mid := r3.Scale(0.5, r3.Add(xl, xr))
	dx := r3.Sub(xr, xl)
	corr := r3.Dot(r3.Sub(wl, wr), r3.Sub(c, mid)) / r3.Norm2(dx)
	return r3.Add(r3.Scale(0.5, r3.Add(wl, wr)), r3.Scale(corr, dx))
}

// cellRadius returns the radius of a sphere (circle in 2D) with the given
// volume.
func cellRadius(dim int, volume float64) float64 {
	if dim == 2 {
		return math.Sqrt(volume / math.Pi)
	}
	return math.Cbrt(3 * volume / (4 * math.Pi))
}
