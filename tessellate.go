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

	"github.com/spatialmodel/voromesh/voronoi"
	"gonum.org/v1/gonum/spatial/r3"
)

// Graph is the connectivity of a tessellation.
type Graph struct {
	// Neighbors[i] holds the generators that share a face with generator
	// i. The relation is symmetric and has no self edges.
	Neighbors [][]int

	// Faces[i][k] holds the Voronoi vertex indices bounding the face
	// between generator i and Neighbors[i][k]. Both sides of a face share
	// the same slice. voronoi.Infinity marks a vertex at infinity.
	Faces [][][]int

	// Vertices holds the Voronoi vertex coordinates.
	Vertices []r3.Vec
}

// Tessellate computes the Voronoi tessellation of the generators in p with
// oracle o and returns its neighbor and face graphs. Ridges reported more
// than once for the same pair of generators are merged into one face.
func Tessellate(o voronoi.Oracle, p *Particles) (*Graph, error) {
	d, err := o.Voronoi(p.points())
	if err != nil {
		return nil, &StepError{Err: ErrTopology, Stage: "tessellate", Index: -1, Cause: err}
	}
	n := p.Len()
	g := &Graph{
		Neighbors: make([][]int, n),
		Faces:     make([][][]int, n),
		Vertices:  make([]r3.Vec, len(d.Vertices)),
	}
	for i, v := range d.Vertices {
		g.Vertices[i] = r3.Vec{X: v[0], Y: v[1]}
		if len(v) > 2 {
			g.Vertices[i].Z = v[2]
		}
	}
	type slots struct{ a, b int }
	seen := make(map[[2]int]slots, len(d.Ridges))
	for _, r := range d.Ridges {
		a, b := r.Points[0], r.Points[1]
		if a == b || a < 0 || b < 0 || a >= n || b >= n {
			return nil, stepError(ErrTopology, "tessellate", a, "invalid ridge between generators %d and %d", a, b)
		}
		if a > b {
			a, b = b, a
		}
		key := [2]int{a, b}
		if s, ok := seen[key]; ok {
			verts := g.Faces[a][s.a]
			for _, v := range r.Vertices {
				if !containsInt(verts, v) {
					verts = append(verts, v)
				}
			}
			g.Faces[a][s.a] = verts
			g.Faces[b][s.b] = verts
			continue
		}
		var verts []int
		for _, v := range r.Vertices {
			if !containsInt(verts, v) {
				verts = append(verts, v)
			}
		}
		seen[key] = slots{a: len(g.Neighbors[a]), b: len(g.Neighbors[b])}
		g.Neighbors[a] = append(g.Neighbors[a], b)
		g.Faces[a] = append(g.Faces[a], verts)
		g.Neighbors[b] = append(g.Neighbors[b], a)
		g.Faces[b] = append(g.Faces[b], verts)
	}
	return g, nil
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// checkCells verifies that every real generator has a bounded cell and
// returns, over all real generators, the largest ghost depth needed so
// that the cell is not truncated, and the generator that needs it. b may be
// nil, in which case only boundedness is checked.
func checkCells(p *Particles, g *Graph, b *Boundary) (need float64, worst int, err error) {
	worst = -1
	for i := 0; i < p.NumReal; i++ {
		if len(g.Neighbors[i]) == 0 {
			return 0, i, stepError(ErrTopology, "tessellate", i, "generator has no neighbors")
		}
		x := p.Position(i)
		var rmax float64
		bounded := true
		for _, f := range g.Faces[i] {
			for _, v := range f {
				if v == voronoi.Infinity {
					bounded = false
					break
				}
				if d := r3.Norm(r3.Sub(g.Vertices[v], x)); d > rmax {
					rmax = d
				}
			}
		}
		if b == nil {
			if !bounded {
				return 0, i, stepError(ErrTopology, "tessellate", i, "cell is unbounded")
			}
			continue
		}
		var d float64
		if !bounded {
			d = b.maxDepth(p.Dim) * 2
		} else {
			d = b.requiredDepth(p, i, rmax)
		}
		if d > need {
			need, worst = d, i
		}
	}
	return need, worst, nil
}

// markBoundary tags real generators whose cells border a ghost.
func markBoundary(p *Particles, g *Graph) {
	for i := 0; i < p.NumReal; i++ {
		p.Tag[i] = TagReal
		for _, j := range g.Neighbors[i] {
			if j >= p.NumReal {
				p.Tag[i] = TagBoundary
				break
			}
		}
	}
}

func (g *Graph) String() string {
	var nf int
	for _, n := range g.Neighbors {
		nf += len(n)
	}
	return fmt.Sprintf("Graph{generators: %d, faces: %d, vertices: %d}", len(g.Neighbors), nf/2, len(g.Vertices))
}
