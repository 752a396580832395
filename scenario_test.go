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

package voromesh_test

import (
	"errors"
	"math"
	"testing"

	"github.com/spatialmodel/voromesh"
	"github.com/spatialmodel/voromesh/problem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initProblem(t *testing.T, p *problem.Problem) *voromesh.Simulation {
	t.Helper()
	s := &voromesh.Simulation{InitFuncs: []voromesh.DomainManipulator{p.Setup()}}
	require.NoError(t, s.Init())
	return s
}

func TestKelvinHelmholtzStep(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large problem in short mode")
	}
	s := initProblem(t, problem.KelvinHelmholtz(128, 1))
	require.Equal(t, 128*128, s.Particles.NumReal)
	before := s.Totals()
	s.Params.MaxIterations = 1
	s.RunFuncs = append(voromesh.MovingMesh(), voromesh.Finished())
	err := s.Run()
	if errors.Is(err, voromesh.ErrNonPhysicalState) {
		t.Fatalf("non-physical state: %v", err)
	}
	require.NoError(t, err)
	require.NoError(t, voromesh.Refresh()(s))
	assert.InDelta(t, 1, s.TotalVolume(), 1e-10)
	after := s.Totals()
	for _, f := range []voromesh.Field{voromesh.Mass, voromesh.MomentumX, voromesh.Energy} {
		assert.InDelta(t, before[f], after[f], 1e-10*math.Max(1, math.Abs(before[f])), f.ConservedName())
	}
}

func TestSedovTimestep(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large problem in short mode")
	}
	s := initProblem(t, problem.Sedov(50))
	require.Equal(t, 50*50*50, s.Particles.NumReal)
	require.NoError(t, voromesh.SetTimestep()(s))
	assert.True(t, s.Dt > 0 && !math.IsInf(s.Dt, 0), "dt=%g", s.Dt)
	assert.True(t, s.Dt < s.Params.FinalTime)
}

func TestSedovSteps(t *testing.T) {
	s := initProblem(t, problem.Sedov(10))
	before := s.Totals()
	s.Params.MaxIterations = 10
	s.RunFuncs = append(voromesh.MovingMesh(), voromesh.Finished())
	require.NoError(t, s.Run())
	assert.Equal(t, 10, s.Iteration)
	require.NoError(t, voromesh.Refresh()(s))
	assert.InDelta(t, 1, s.TotalVolume(), 1e-10)
	after := s.Totals()
	for _, f := range []voromesh.Field{voromesh.Mass, voromesh.Energy} {
		assert.InDelta(t, before[f], after[f], 1e-10*math.Max(1, math.Abs(before[f])), f.ConservedName())
	}
}
