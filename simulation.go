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

// Package voromesh is a moving-mesh finite-volume hydrodynamics solver.
// Fluid state is carried by generator points whose Voronoi cells are the
// control volumes; the generators move with the flow and conserved
// quantities are advanced with Godunov-type fluxes through the moving
// faces.
package voromesh

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/voromesh/voronoi"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Simulation holds the state of a moving-mesh simulation and the functions
// that set it up and advance it.
type Simulation struct {
	// InitFuncs are run once by Init.
	InitFuncs []DomainManipulator

	// RunFuncs are run in order, repeatedly, by Run until Done is set.
	RunFuncs []DomainManipulator

	// CleanupFuncs are run once by Cleanup.
	CleanupFuncs []DomainManipulator

	Params   Params
	Boundary *Boundary

	// Oracle computes Voronoi diagrams. If nil, voronoi.Incremental is
	// used.
	Oracle voronoi.Oracle

	// Reconstructor and Riemann are selected from Params when nil.
	Reconstructor Reconstructor
	Riemann       RiemannSolver

	// ExternalGhosts are appended to the boundary ghosts at every step,
	// for example by a neighboring partition. Their Source must be -1.
	ExternalGhosts []Ghost

	// Log receives status messages. If nil, messages are discarded.
	Log logrus.FieldLogger

	Particles *Particles

	// Primitive holds the primitive state of every generator, ghosts
	// included; Conserved holds the conserved state of real generators.
	Primitive State
	Conserved State

	// Step-scoped data, rebuilt every step.
	Graph        *Graph
	Cells        *CellInfo
	Faces        []Face
	MeshVelocity []r3.Vec
	Gradients    []Gradient
	Fluxes       []Vars
	cellFaces    [][]int

	Iteration int
	Time      float64
	Dt        float64
	Done      bool

	prevDt     float64
	ghostDepth float64
}

// DomainManipulator is a function that operates on a simulation.
type DomainManipulator func(s *Simulation) error

// Init initializes the simulation by running s.InitFuncs.
func (s *Simulation) Init() error {
	if s.Log == nil {
		l := logrus.New()
		l.Out = io.Discard
		s.Log = l
	}
	if s.Oracle == nil {
		s.Oracle = voronoi.Incremental{Log: s.Log}
	}
	for _, f := range s.InitFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation by running s.RunFuncs until s.Done is
// true. It stops at the first error.
func (s *Simulation) Run() error {
	if len(s.RunFuncs) == 0 {
		return errors.New("voromesh: no RunFuncs")
	}
	for !s.Done {
		for _, f := range s.RunFuncs {
			if err := f(s); err != nil {
				var se *StepError
				if errors.As(err, &se) {
					se.Step = s.Iteration
				}
				return err
			}
		}
	}
	return nil
}

// Cleanup finishes the simulation by running s.CleanupFuncs.
func (s *Simulation) Cleanup() error {
	for _, f := range s.CleanupFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// setup fills in collaborators that were not set explicitly.
func (s *Simulation) setup() error {
	if err := s.Params.Validate(); err != nil {
		return err
	}
	if s.Boundary == nil && len(s.ExternalGhosts) == 0 {
		return errors.New("voromesh: a Boundary or ExternalGhosts are required")
	}
	if s.Reconstructor == nil {
		r, err := NewReconstructor(s.Params.Reconstruction, s.Params.Limiter, s.Params.Predictor)
		if err != nil {
			return err
		}
		s.Reconstructor = r
	}
	if s.Riemann == nil {
		r, err := NewRiemannSolver(s.Params.Riemann)
		if err != nil {
			return err
		}
		s.Riemann = r
	}
	for i, g := range s.ExternalGhosts {
		if g.Source != -1 {
			return fmt.Errorf("voromesh: external ghost %d has Source=%d, should be -1", i, g.Source)
		}
	}
	return nil
}

// calculations runs f for every index in [0, n), spread over the available
// processors. It returns the first error encountered.
func calculations(n int, f func(i int) error) error {
	nprocs := runtime.GOMAXPROCS(0)
	var g errgroup.Group
	for pp := 0; pp < nprocs; pp++ {
		pp := pp
		g.Go(func() error {
			for ii := pp; ii < n; ii += nprocs {
				if err := f(ii); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// centroid returns the cell centroid of generator i. Ghost centroids are
// images of their source's centroid.
func (s *Simulation) centroid(i int) r3.Vec {
	if i < s.Particles.NumReal {
		return s.Cells.Centroid[i]
	}
	g := s.Particles.Ghost(i)
	if g.Source < 0 {
		return g.Position
	}
	return g.point(s.Cells.Centroid[g.Source])
}

// indexFaces records, for each real generator, the faces it borders.
func (s *Simulation) indexFaces() {
	s.cellFaces = make([][]int, s.Particles.NumReal)
	for fi, f := range s.Faces {
		for _, i := range f.Pair {
			if i < s.Particles.NumReal {
				s.cellFaces[i] = append(s.cellFaces[i], fi)
			}
		}
	}
}

// TotalVolume returns the summed volume of the real cells.
func (s *Simulation) TotalVolume() float64 {
	return floats.Sum(s.Cells.Volume)
}

// Totals returns the sum over real generators of each conserved variable.
func (s *Simulation) Totals() Vars {
	var t Vars
	for f := range s.Conserved {
		t[f] = floats.Sum(s.Conserved[f])
	}
	return t
}
