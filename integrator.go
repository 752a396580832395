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

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

// maxGhostAttempts is the number of times the ghost layer is deepened
// before a truncated cell is reported.
const maxGhostAttempts = 8

// InitialCondition returns the primitive state at position x.
type InitialCondition func(x r3.Vec) Vars

// MovingMesh returns the stages of one time step in the order they must
// run. The observers run once the primitive state has been updated, when
// positions, cell geometry, and primitive state all correspond to s.Time.
func MovingMesh(observers ...DomainManipulator) []DomainManipulator {
	stages := []DomainManipulator{
		GenerateGhosts(),
		BuildTessellation(),
		ComputeCellGeometry(),
		UpdatePrimitive(),
	}
	stages = append(stages, observers...)
	return append(stages,
		SetTimestep(),
		AssignVelocities(),
		ComputeFaces(),
		ComputeGradients(),
		ComputeFluxes(),
		UpdateConserved(),
		MoveGenerators(),
	)
}

// SetInitialConditions returns a function that places real generators at
// points and sets their state from ic. If Params.RelaxIterations > 0, the
// generators are first moved to their cell centroids that many times.
func SetInitialConditions(points [][]float64, ic InitialCondition) DomainManipulator {
	return func(s *Simulation) error {
		if err := s.setup(); err != nil {
			return err
		}
		if len(points) == 0 {
			return fmt.Errorf("voromesh: no generators")
		}
		dim := len(points[0])
		if dim != 2 && dim != 3 {
			return fmt.Errorf("voromesh: %d dimensions are not supported", dim)
		}
		if s.Boundary != nil {
			if err := s.Boundary.Validate(dim); err != nil {
				return err
			}
		}
		for i, x := range points {
			if len(x) != dim {
				return fmt.Errorf("voromesh: generator %d has %d coordinates, expected %d", i, len(x), dim)
			}
			if s.Boundary != nil {
				for k := 0; k < dim; k++ {
					if !(x[k] >= s.Boundary.Min[k] && x[k] < s.Boundary.Max[k]) {
						return fmt.Errorf("voromesh: generator %d at %v is outside the domain", i, x)
					}
				}
			}
		}
		s.Particles = NewParticles(dim, points)
		for it := 0; it < s.Params.RelaxIterations; it++ {
			if err := s.refresh(); err != nil {
				return fmt.Errorf("voromesh: relaxing mesh: %w", err)
			}
			for i := 0; i < s.Particles.NumReal; i++ {
				s.Particles.SetPosition(i, s.Cells.Centroid[i])
			}
			if s.Boundary != nil {
				escaped, i := s.Boundary.wrap(s.Particles)
				if i < 0 && len(escaped) > 0 {
					i = escaped[0]
				}
				if i >= 0 {
					return stepError(ErrTopology, "relax", i, "generator left the domain")
				}
			}
		}
		if err := s.refresh(); err != nil {
			return err
		}
		p := s.Particles
		s.Primitive = NewState(p.Len())
		s.Conserved = NewState(p.NumReal)
		for i := 0; i < p.NumReal; i++ {
			w := ic(p.Position(i))
			if err := physical(w); err != nil {
				return stepError(ErrNonPhysicalState, "initial conditions", i, "%v", err)
			}
			s.Primitive.Set(i, w)
			s.Conserved.Set(i, ToConserved(w, s.Cells.Volume[i], s.Params.Gamma))
		}
		s.propagateGhosts()
		s.Log.WithFields(logrus.Fields{
			"generators": p.NumReal,
			"ghosts":     p.Len() - p.NumReal,
			"dim":        dim,
			"volume":     s.TotalVolume(),
		}).Info("voromesh: initialized")
		return nil
	}
}

// refresh rebuilds the ghosts, the tessellation, and the cell geometry for
// the current positions.
func (s *Simulation) refresh() error {
	s.generateGhosts()
	if err := s.tessellate(); err != nil {
		return err
	}
	var err error
	s.Cells, err = CellGeometry(s.Particles, s.Graph)
	return err
}

// GenerateGhosts returns a function that replaces the ghost generators with
// images of the current real generators, followed by s.ExternalGhosts.
func GenerateGhosts() DomainManipulator {
	return func(s *Simulation) error {
		s.generateGhosts()
		return nil
	}
}

func (s *Simulation) generateGhosts() {
	p := s.Particles
	p.clearGhosts()
	if b := s.Boundary; b != nil {
		if s.ghostDepth == 0 {
			s.ghostDepth = b.Depth
			if s.ghostDepth == 0 {
				s.ghostDepth = 2.5 * b.spacing(p.Dim, p.NumReal)
			}
			s.ghostDepth = math.Min(s.ghostDepth, b.maxDepth(p.Dim))
		}
		p.addGhosts(b.Ghosts(p, s.ghostDepth))
	}
	p.addGhosts(s.ExternalGhosts)
}

// BuildTessellation returns a function that computes the tessellation of the
// current generators. If a real cell could be truncated by the ghost
// layer, the layer is deepened and the tessellation rebuilt.
func BuildTessellation() DomainManipulator {
	return func(s *Simulation) error {
		return s.tessellate()
	}
}

func (s *Simulation) tessellate() error {
	p := s.Particles
	for attempt := 0; ; attempt++ {
		g, err := Tessellate(s.Oracle, p)
		if err != nil {
			return err
		}
		need, worst, err := checkCells(p, g, s.Boundary)
		if err != nil {
			return err
		}
		if s.Boundary == nil || need <= s.ghostDepth {
			s.Graph = g
			markBoundary(p, g)
			return nil
		}
		max := s.Boundary.maxDepth(p.Dim)
		if attempt == maxGhostAttempts || s.ghostDepth >= max {
			return stepError(ErrTopology, "tessellate", worst,
				"cell is truncated: ghost depth %g, %g needed", s.ghostDepth, need)
		}
		s.ghostDepth = math.Min(math.Max(2*s.ghostDepth, 1.1*need), max)
		s.Log.WithFields(logrus.Fields{
			"depth":     s.ghostDepth,
			"generator": worst,
		}).Debug("voromesh: deepening ghost layer")
		s.generateGhosts()
	}
}

// ComputeCellGeometry returns a function that computes the volume and
// centroid of every real cell.
func ComputeCellGeometry() DomainManipulator {
	return func(s *Simulation) error {
		var err error
		s.Cells, err = CellGeometry(s.Particles, s.Graph)
		return err
	}
}

// UpdatePrimitive returns a function that computes the primitive state of
// real generators from their conserved state and cell volume, and copies
// it to the ghosts.
func UpdatePrimitive() DomainManipulator {
	return func(s *Simulation) error {
		p := s.Particles
		s.Primitive = s.Primitive.resize(p.Len())
		err := calculations(p.NumReal, func(i int) error {
			w, err := ToPrimitive(s.Conserved.Get(i), s.Cells.Volume[i], s.Params.Gamma)
			if err != nil {
				return stepError(ErrNonPhysicalState, "primitive update", i, "%v", err)
			}
			s.Primitive.Set(i, w)
			return nil
		})
		if err != nil {
			return err
		}
		s.propagateGhosts()
		return nil
	}
}

// propagateGhosts sets the primitive state of each ghost from its source:
// reflective images negate the velocity normal to the boundary, other
// images copy it.
func (s *Simulation) propagateGhosts() {
	p := s.Particles
	for i := p.NumReal; i < p.Len(); i++ {
		g := p.Ghost(i)
		var w Vars
		if g.Source >= 0 {
			w = s.Primitive.Get(g.Source)
		}
		s.Primitive.Set(i, g.state(w))
	}
}

// SetTimestep returns a function that sets s.Dt from the CFL condition,
// limited by Params.InitialTimestepFactor on the first iteration, by
// Params.MaxDtChange, and by the time remaining.
func SetTimestep() DomainManipulator {
	return func(s *Simulation) error {
		dt, i := Timestep(s.Particles, s.Cells, s.Primitive, s.Params.Gamma, s.Params.CFL)
		if !(dt > 0) || math.IsInf(dt, 0) {
			return stepError(ErrTimestepOverflow, "timestep", i, "dt=%g", dt)
		}
		if s.Iteration == 0 {
			dt *= s.Params.InitialTimestepFactor
		}
		if s.Params.MaxDtChange > 0 && s.prevDt > 0 {
			dt = math.Min(dt, s.Params.MaxDtChange*s.prevDt)
		}
		if !(dt > 0) || math.IsInf(dt, 0) {
			return stepError(ErrTimestepOverflow, "timestep", i, "dt=%g", dt)
		}
		if s.Time+dt > s.Params.FinalTime {
			dt = s.Params.FinalTime - s.Time
		}
		s.Dt = dt
		return nil
	}
}

// AssignVelocities returns a function that sets the velocity of every
// generator: the fluid velocity, plus the regularization velocity if
// enabled. Ghosts move as images of their sources.
func AssignVelocities() DomainManipulator {
	return func(s *Simulation) error {
		p := s.Particles
		s.MeshVelocity = make([]r3.Vec, p.Len())
		var reg []r3.Vec
		if s.Params.Regularize {
			reg = RegularizationVelocity(p, s.Cells, s.Primitive, s.Params.Gamma, s.Params.Eta)
		}
		for i := 0; i < p.NumReal; i++ {
			v := r3.Vec{X: s.Primitive[VelocityX][i], Y: s.Primitive[VelocityY][i], Z: s.Primitive[VelocityZ][i]}
			if reg != nil {
				v = r3.Add(v, reg[i])
			}
			s.MeshVelocity[i] = v
		}
		for i := p.NumReal; i < p.Len(); i++ {
			g := p.Ghost(i)
			if g.Source >= 0 {
				s.MeshVelocity[i] = g.motion(s.MeshVelocity[g.Source])
			} else {
				s.MeshVelocity[i] = r3.Vec{X: g.State[VelocityX], Y: g.State[VelocityY], Z: g.State[VelocityZ]}
			}
		}
		return nil
	}
}

// ComputeFaces returns a function that builds the face list with the
// velocity of each face.
func ComputeFaces() DomainManipulator {
	return func(s *Simulation) error {
		p := s.Particles
		faces, err := FaceGeometry(p, s.Graph)
		if err != nil {
			return err
		}
		for fi := range faces {
			f := &faces[fi]
			i, j := f.Pair[0], f.Pair[1]
			f.Velocity = FaceVelocity(p.Position(i), p.Position(j), s.MeshVelocity[i], s.MeshVelocity[j], f.Centroid)
		}
		s.Faces = faces
		s.indexFaces()
		return nil
	}
}

// ComputeGradients returns a function that computes the primitive state
// gradients with s.Reconstructor.
func ComputeGradients() DomainManipulator {
	return func(s *Simulation) error {
		var err error
		s.Gradients, err = s.Reconstructor.Gradients(s)
		return err
	}
}

// ComputeFluxes returns a function that computes the flux through every
// face from the reconstructed states on either side.
func ComputeFluxes() DomainManipulator {
	return func(s *Simulation) error {
		s.Fluxes = make([]Vars, len(s.Faces))
		return calculations(len(s.Faces), func(fi int) error {
			l, r, err := s.Reconstructor.Extrapolate(s, fi, s.Dt)
			if err != nil {
				return err
			}
			f := &s.Faces[fi]
			flux, err := s.Riemann.Flux(l, r, f.Normal, f.Velocity, s.Params.Gamma)
			if err != nil {
				return stepError(ErrNonPhysicalState, "flux", fi, "%s: %v", s.Riemann.Name(), err)
			}
			s.Fluxes[fi] = flux
			return nil
		})
	}
}

// UpdateConserved returns a function that applies the face fluxes to the
// conserved state. Face normals point from the lower to the higher
// generator index and a positive flux runs along the normal, so the amount
// flux·area·dt crossing each face is subtracted from the lower-index
// generator and added to the higher-index one. Flux between real
// generators cancels exactly in the domain total. Ghosts are not updated.
func UpdateConserved() DomainManipulator {
	return func(s *Simulation) error {
		nReal := s.Particles.NumReal
		for fi, f := range s.Faces {
			a := f.Area * s.Dt
			i, j := f.Pair[0], f.Pair[1]
			for fld := range s.Conserved {
				d := a * s.Fluxes[fi][fld]
				s.Conserved[fld][i] -= d
				if j < nReal {
					s.Conserved[fld][j] += d
				}
			}
		}
		return nil
	}
}

// MoveGenerators returns a function that advances real generators by
// dt times their assigned velocity and advances the simulation clock.
// Generators leaving a periodic domain re-enter on the opposite side.
// Generators leaving through an outflow side are removed and their
// conserved content is added to the remaining neighbor they share the
// largest face with. Leaving through a reflective side is an error.
func MoveGenerators() DomainManipulator {
	return func(s *Simulation) error {
		p := s.Particles
		for i := 0; i < p.NumReal; i++ {
			p.SetPosition(i, r3.Add(p.Position(i), r3.Scale(s.Dt, s.MeshVelocity[i])))
		}
		s.Time += s.Dt
		s.Iteration++
		s.prevDt = s.Dt
		if s.Boundary == nil {
			return nil
		}
		escaped, i := s.Boundary.wrap(p)
		if i >= 0 {
			return stepError(ErrTopology, "move", i, "generator left the domain through a reflective side")
		}
		if len(escaped) > 0 {
			return s.removeOutflow(escaped)
		}
		return nil
	}
}

// removeOutflow deletes the real generators in escaped. The faces of the
// step that moved them must still be in place.
func (s *Simulation) removeOutflow(escaped []int) error {
	nReal := s.Particles.NumReal
	gone := make(map[int]bool, len(escaped))
	for _, i := range escaped {
		gone[i] = true
	}
	for _, i := range escaped {
		heir, area := -1, 0.
		for _, fi := range s.cellFaces[i] {
			f := &s.Faces[fi]
			j := f.Pair[0]
			if j == i {
				j = f.Pair[1]
			}
			if j >= nReal || gone[j] {
				continue
			}
			if f.Area > area {
				heir, area = j, f.Area
			}
		}
		if heir < 0 {
			return stepError(ErrTopology, "outflow", i, "no remaining neighbor to take the cell's content")
		}
		for fld := range s.Conserved {
			s.Conserved[fld][heir] += s.Conserved[fld][i]
		}
	}
	s.Particles.removeReal(gone)
	s.Conserved = s.Conserved.without(gone)
	s.Primitive = s.Primitive.without(gone)
	s.Faces, s.cellFaces, s.Fluxes, s.Gradients, s.MeshVelocity = nil, nil, nil, nil, nil
	s.Log.WithFields(logrus.Fields{
		"removed":    len(escaped),
		"generators": s.Particles.NumReal,
	}).Debug("voromesh: generators left through outflow sides")
	if s.Particles.NumReal == 0 {
		return stepError(ErrTopology, "outflow", -1, "every generator has left the domain")
	}
	return nil
}

// Finished returns a function that sets s.Done once the final time or the
// maximum number of iterations is reached.
func Finished() DomainManipulator {
	return func(s *Simulation) error {
		if s.finished() {
			s.Done = true
		}
		return nil
	}
}

func (s *Simulation) finished() bool {
	if s.Time >= s.Params.FinalTime*(1-1e-12) {
		return true
	}
	return s.Params.MaxIterations > 0 && s.Iteration >= s.Params.MaxIterations
}

// Refresh returns a function that rebuilds ghosts, tessellation, cell
// geometry, and primitive state for the current positions. It is used
// before inspecting the final state of a run.
func Refresh() DomainManipulator {
	update := UpdatePrimitive()
	return func(s *Simulation) error {
		if err := s.refresh(); err != nil {
			return err
		}
		return update(s)
	}
}
