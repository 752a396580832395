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
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// simplex is a triangle (2D) or tetrahedron (3D). nb[k] is the simplex
// across the facet opposite v[k], or -1 on the outer hull. Every live
// simplex is positively oriented.
type simplex struct {
	v  [4]int
	nb [4]int

	// circumsphere center and squared radius.
	c  [3]float64
	r2 float64

	// exact is set for badly shaped simplices, whose floating point
	// circumsphere is not trusted by the in-sphere filter.
	exact bool
	dead  bool
}

// facetRef identifies facet k of simplex s.
type facetRef struct{ s, k int }

// boundaryFacet is a facet of the insertion cavity, already joined to the
// inserted point.
type boundaryFacet struct {
	v             [4]int
	k             int
	outer, outerK int
}

type triangulation struct {
	dim  int
	n    int // number of input points; super vertices follow them
	pts  [][3]float64
	s    []simplex
	free []int
	last int

	exactCalls int

	cavity   []int
	boundary []boundaryFacet
	mark     []int32
	tested   []int32
	stamp    int32
	facets   map[[2]int]facetRef
	rng      *rand.Rand
}

// superScale sets the distance of the enclosing simplex's vertices from
// the input, in units of the input's half extent.
const superScale = 50.

const sliverQuality = 1e-4

func newTriangulation(points [][]float64, dim int) *triangulation {
	t := &triangulation{
		dim:    dim,
		n:      len(points),
		pts:    make([][3]float64, len(points), len(points)+dim+1),
		facets: make(map[[2]int]facetRef),
		rng:    rand.New(rand.NewSource(1)),
	}
	lo := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i, p := range points {
		for c := 0; c < dim; c++ {
			t.pts[i][c] = p[c]
			lo[c] = math.Min(lo[c], p[c])
			hi[c] = math.Max(hi[c], p[c])
		}
	}
	var h float64
	var mid [3]float64
	for c := 0; c < dim; c++ {
		h = math.Max(h, (hi[c]-lo[c])/2)
		mid[c] = (hi[c] + lo[c]) / 2
	}
	if h == 0 {
		h = 1
	}
	// Corner simplex {x >= a, sum(x-a) <= S} around the bounding box.
	r := superScale * h
	size := 3 * float64(dim) * (r + h)
	var v0 [3]float64
	for c := 0; c < dim; c++ {
		v0[c] = mid[c] - r
	}
	t.pts = append(t.pts, v0)
	for c := 0; c < dim; c++ {
		p := v0
		p[c] += size
		t.pts = append(t.pts, p)
	}
	var v [4]int
	for k := 0; k <= dim; k++ {
		v[k] = t.n + k
	}
	t.last = t.newSimplex(v)
	return t
}

// super returns whether i is a vertex of the enclosing simplex.
func (t *triangulation) super(i int) bool { return i >= t.n }

func (t *triangulation) newSimplex(v [4]int) int {
	s := simplex{v: v, nb: [4]int{-1, -1, -1, -1}}
	t.circumsphere(&s)
	if n := len(t.free); n > 0 {
		i := t.free[n-1]
		t.free = t.free[:n-1]
		t.s[i] = s
		return i
	}
	t.s = append(t.s, s)
	t.mark = append(t.mark, 0)
	t.tested = append(t.tested, 0)
	return len(t.s) - 1
}

func (t *triangulation) kill(i int) {
	t.s[i].dead = true
	t.free = append(t.free, i)
}

// circumsphere sets the cached circumsphere of s.
func (t *triangulation) circumsphere(s *simplex) {
	p0 := t.pts[s.v[0]]
	var e [3][3]float64
	var l [3]float64
	maxEdge := 0.
	for k := 0; k < t.dim; k++ {
		p := t.pts[s.v[k+1]]
		for c := 0; c < t.dim; c++ {
			e[k][c] = p[c] - p0[c]
			l[k] += e[k][c] * e[k][c]
		}
		maxEdge = math.Max(maxEdge, l[k])
	}
	maxEdge = math.Sqrt(maxEdge)
	var c [3]float64
	var det float64
	if t.dim == 2 {
		det = e[0][0]*e[1][1] - e[0][1]*e[1][0]
		c[0] = (e[1][1]*l[0] - e[0][1]*l[1]) / (2 * det)
		c[1] = (e[0][0]*l[1] - e[1][0]*l[0]) / (2 * det)
	} else {
		a, b, d := e[0], e[1], e[2]
		bxd := cross(b, d)
		dxa := cross(d, a)
		axb := cross(a, b)
		det = a[0]*bxd[0] + a[1]*bxd[1] + a[2]*bxd[2]
		for i := 0; i < 3; i++ {
			c[i] = (l[0]*bxd[i] + l[1]*dxa[i] + l[2]*axb[i]) / (2 * det)
		}
	}
	s.r2 = 0
	for i := 0; i < t.dim; i++ {
		s.r2 += c[i] * c[i]
		s.c[i] = c[i] + p0[i]
	}
	s.exact = !(math.Abs(det) > sliverQuality*math.Pow(maxEdge, float64(t.dim)))
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// inside reports whether point p is strictly inside the circumsphere of
// simplex i.
func (t *triangulation) inside(i, p int) bool {
	s := &t.s[i]
	if !s.exact {
		var d2 float64
		for c := 0; c < t.dim; c++ {
			x := t.pts[p][c] - s.c[c]
			d2 += x * x
		}
		if d2 < s.r2*(1-1e-9) {
			return true
		}
		if d2 > s.r2*(1+1e-9) {
			return false
		}
	}
	sign := t.inSphere(s.v[:t.dim+1], p)
	if t.dim%2 == 1 {
		sign = -sign
	}
	return sign > 0
}

// locate returns a simplex containing point p, found by a stochastic
// visibility walk from the most recently created simplex.
func (t *triangulation) locate(p int) (int, error) {
	D := t.dim
	s := t.last
	for step := 0; step < 4*len(t.s)+100; step++ {
		off := t.rng.Intn(D + 1)
		moved := false
		for kk := 0; kk <= D; kk++ {
			k := (off + kk) % (D + 1)
			v := t.s[s].v
			v[k] = p
			if t.orient(v[:D+1]) < 0 {
				n := t.s[s].nb[k]
				if n < 0 {
					return -1, fmt.Errorf("%w: point %d is outside the enclosing simplex", ErrDegenerate, p)
				}
				s = n
				moved = true
				break
			}
		}
		if !moved {
			return s, nil
		}
	}
	return -1, errors.New("voronoi: point location did not terminate")
}

// insert adds point p to the triangulation, replacing every simplex whose
// circumsphere strictly contains p.
func (t *triangulation) insert(p int) error {
	D := t.dim
	s, err := t.locate(p)
	if err != nil {
		return err
	}
	for _, q := range t.s[s].v[:D+1] {
		if t.pts[q] == t.pts[p] {
			return fmt.Errorf("%w: points %d and %d", ErrDuplicatePoint, q, p)
		}
	}

	t.stamp++
	cav := append(t.cavity[:0], s)
	t.mark[s] = t.stamp
	for i := 0; i < len(cav); i++ {
		c := cav[i]
		for k := 0; k <= D; k++ {
			n := t.s[c].nb[k]
			if n < 0 || t.mark[n] == t.stamp || t.tested[n] == t.stamp {
				continue
			}
			if t.inside(n, p) {
				t.mark[n] = t.stamp
				cav = append(cav, n)
			} else {
				t.tested[n] = t.stamp
			}
		}
	}
	t.cavity = cav

	bfs := t.boundary[:0]
	for _, c := range cav {
		sc := &t.s[c]
		for k := 0; k <= D; k++ {
			n := sc.nb[k]
			if n >= 0 && t.mark[n] == t.stamp {
				continue
			}
			f := boundaryFacet{v: sc.v, k: k, outer: n, outerK: -1}
			f.v[k] = p
			if n >= 0 {
				for j := 0; j <= D; j++ {
					if t.s[n].nb[j] == c {
						f.outerK = j
						break
					}
				}
			}
			bfs = append(bfs, f)
		}
	}
	t.boundary = bfs
	for _, c := range cav {
		t.kill(c)
	}

	for key := range t.facets {
		delete(t.facets, key)
	}
	for _, f := range bfs {
		ns := t.newSimplex(f.v)
		t.s[ns].nb[f.k] = f.outer
		if f.outer >= 0 {
			t.s[f.outer].nb[f.outerK] = ns
		}
		for j := 0; j <= D; j++ {
			if j == f.k {
				continue
			}
			key := [2]int{-1, -1}
			m := 0
			for i := 0; i <= D; i++ {
				if i != j && i != f.k {
					key[m] = f.v[i]
					m++
				}
			}
			if key[1] >= 0 && key[1] < key[0] {
				key[0], key[1] = key[1], key[0]
			}
			if o, ok := t.facets[key]; ok {
				t.s[ns].nb[j] = o.s
				t.s[o.s].nb[o.k] = ns
				delete(t.facets, key)
			} else {
				t.facets[key] = facetRef{s: ns, k: j}
			}
		}
		t.last = ns
	}
	if len(t.facets) != 0 {
		return fmt.Errorf("%w: cavity of point %d is not closed", ErrDegenerate, p)
	}
	return nil
}

// dual returns the Voronoi diagram of the input points.
func (t *triangulation) dual() (*Diagram, error) {
	D := t.dim
	d := &Diagram{Dim: D}
	vid := make([]int, len(t.s))
	for i := range t.s {
		vid[i] = Infinity
		s := &t.s[i]
		if s.dead {
			continue
		}
		hasSuper := false
		for _, v := range s.v[:D+1] {
			if t.super(v) {
				hasSuper = true
				break
			}
		}
		if hasSuper {
			continue
		}
		vid[i] = len(d.Vertices)
		d.Vertices = append(d.Vertices, append([]float64(nil), s.c[:D]...))
	}
	if len(d.Vertices) == 0 {
		return nil, fmt.Errorf("%w: all points are collinear or coplanar", ErrDegenerate)
	}

	for i := range t.s {
		s := &t.s[i]
		if s.dead {
			continue
		}
		if D == 2 {
			for k := 0; k < 3; k++ {
				n := s.nb[k]
				if n >= 0 && n < i {
					continue
				}
				a, b := s.v[(k+1)%3], s.v[(k+2)%3]
				if t.super(a) || t.super(b) {
					continue
				}
				r := Ridge{Points: ordered(a, b), Vertices: []int{vid[i], Infinity}}
				if n >= 0 {
					r.Vertices[1] = vid[n]
				}
				d.Ridges = append(d.Ridges, r)
			}
			continue
		}
		for a := 0; a < 4; a++ {
			for b := a + 1; b < 4; b++ {
				va, vb := s.v[a], s.v[b]
				if t.super(va) || t.super(vb) {
					continue
				}
				ring, ok := t.ring(i, a, b)
				if !ok {
					continue
				}
				r := Ridge{Points: ordered(va, vb), Vertices: make([]int, len(ring))}
				for j, si := range ring {
					r.Vertices[j] = vid[si]
				}
				d.Ridges = append(d.Ridges, r)
			}
		}
	}
	sort.Slice(d.Ridges, func(i, j int) bool {
		ri, rj := d.Ridges[i].Points, d.Ridges[j].Points
		if ri[0] != rj[0] {
			return ri[0] < rj[0]
		}
		return ri[1] < rj[1]
	})
	return d, nil
}

// ring returns the simplices around the edge between local vertices a and b
// of simplex s0, in cyclic order. ok is false if s0 is not the lowest
// indexed simplex of the ring, so that each edge is reported once.
func (t *triangulation) ring(s0, a, b int) (ring []int, ok bool) {
	va, vb := t.s[s0].v[a], t.s[s0].v[b]
	var other [2]int
	m := 0
	for k := 0; k < 4; k++ {
		if k != a && k != b {
			other[m] = t.s[s0].v[k]
			m++
		}
	}
	// Cross the facet opposite other[0], which keeps other[1].
	ring = append(ring, s0)
	cur, leave := s0, other[0]
	for {
		sc := &t.s[cur]
		next := -1
		for k := 0; k < 4; k++ {
			if sc.v[k] == leave {
				next = sc.nb[k]
				break
			}
		}
		if next < 0 {
			return ring, true
		}
		if next == s0 {
			return ring, true
		}
		if next < s0 {
			return nil, false
		}
		// Leave next through the facet opposite the vertex it shares
		// with cur.
		sn := &t.s[next]
		var shared int
		for k := 0; k < 4; k++ {
			w := sn.v[k]
			if w != va && w != vb && contains(sc.v, w) {
				shared = w
			}
		}
		ring = append(ring, next)
		cur, leave = next, shared
	}
}

func contains(v [4]int, w int) bool {
	for _, x := range v {
		if x == w {
			return true
		}
	}
	return false
}

func ordered(a, b int) [2]int {
	if a > b {
		return [2]int{b, a}
	}
	return [2]int{a, b}
}

// findDuplicate returns the indices of two identical points, if any.
func findDuplicate(points [][]float64) (int, int, bool) {
	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	less := func(a, b []float64) bool {
		for c := range a {
			if a[c] != b[c] {
				return a[c] < b[c]
			}
		}
		return false
	}
	sort.Slice(idx, func(i, j int) bool { return less(points[idx[i]], points[idx[j]]) })
	for i := 1; i < len(idx); i++ {
		if !less(points[idx[i-1]], points[idx[i]]) {
			a, b := idx[i-1], idx[i]
			if a > b {
				a, b = b, a
			}
			return a, b, true
		}
	}
	return 0, 0, false
}

// insertionOrder sorts the points along a Z-order curve so that
// consecutive insertions are spatially close.
func insertionOrder(points [][]float64, dim int) []int {
	bits := uint(16)
	if dim == 3 {
		bits = 10
	}
	var lo, hi [3]float64
	for c := 0; c < dim; c++ {
		lo[c], hi[c] = math.Inf(1), math.Inf(-1)
	}
	for _, p := range points {
		for c := 0; c < dim; c++ {
			lo[c] = math.Min(lo[c], p[c])
			hi[c] = math.Max(hi[c], p[c])
		}
	}
	scale := float64(uint(1)<<bits - 1)
	keys := make([]uint64, len(points))
	for i, p := range points {
		var q [3]uint64
		for c := 0; c < dim; c++ {
			if hi[c] > lo[c] {
				q[c] = uint64((p[c] - lo[c]) / (hi[c] - lo[c]) * scale)
			}
		}
		var key uint64
		for b := uint(0); b < bits; b++ {
			for c := 0; c < dim; c++ {
				key |= (q[c] >> b & 1) << (b*uint(dim) + uint(c))
			}
		}
		keys[i] = key
	}
	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return keys[idx[i]] < keys[idx[j]] })
	return idx
}
