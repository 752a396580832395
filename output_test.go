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
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewOutputter(t *testing.T) {
	_, err := NewOutputter("out.txt", nil, nil)
	assert.Error(t, err)
	_, err = NewOutputter("out.nc", map[string]string{"A": "Density +"}, nil)
	assert.Error(t, err)
	o, err := NewOutputter("dir/out.nc", map[string]string{"A": "2*Density"}, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("dir", "out_000042.nc"), o.fileFor(42))
}

func TestCheckOutputVars(t *testing.T) {
	s := newSimulation(t, gridPoints(2, 4, 0, 1), Periodic, wavy, nil)
	tests := []struct {
		name    string
		file    string
		vars    map[string]string
		wantErr bool
	}{
		{name: "ok", file: "o.nc", vars: map[string]string{"Momentum": "Density*VelocityX"}},
		{name: "chained", file: "o.nc", vars: map[string]string{
			"C": "B*2", "B": "A+1", "A": "sqrt(Pressure)",
		}},
		{name: "shadow", file: "o.nc", vars: map[string]string{"Density": "Pressure"}, wantErr: true},
		{name: "undefined", file: "o.nc", vars: map[string]string{"A": "Temperature"}, wantErr: true},
		{name: "cycle", file: "o.nc", vars: map[string]string{"A": "B", "B": "A"}, wantErr: true},
		{name: "long shapefile name", file: "o.shp", vars: map[string]string{"SpecificEnergy": "Pressure/Density"}, wantErr: true},
		{name: "long netcdf name", file: "o.nc", vars: map[string]string{"SpecificEnergy": "Pressure/Density"}},
		{name: "bad name", file: "o.nc", vars: map[string]string{"_A": "Pressure"}, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			o, err := NewOutputter(test.file, test.vars, nil)
			require.NoError(t, err)
			err = o.CheckOutputVars()(s)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, o.order, len(test.vars))
		})
	}
}

func TestResults(t *testing.T) {
	s := newSimulation(t, gridPoints(2, 4, 0.1, 1), Periodic, wavy, nil)
	o, err := NewOutputter("o.nc", map[string]string{
		"Mass":  "Density*Volume",
		"Twice": "sum(Mass, Mass)",
		"Sound": "sqrt(1.4*Pressure/Density)",
	}, nil)
	require.NoError(t, err)
	snap, err := o.Results(s)
	require.NoError(t, err)
	n := s.Particles.NumReal
	require.Equal(t, n, snap.Len())
	for i := 0; i < n; i++ {
		w := s.Primitive.Get(i)
		assert.InDelta(t, w[Density]*s.Cells.Volume[i], snap.Fields["Mass"][i], 1e-15)
		assert.InDelta(t, 2*snap.Fields["Mass"][i], snap.Fields["Twice"][i], 1e-15)
		assert.InDelta(t, SoundSpeed(w, 1.4), snap.Fields["Sound"][i], 1e-12)
	}
}

func TestSnapshotFields(t *testing.T) {
	s2 := newSimulation(t, gridPoints(2, 4, 0, 1), Periodic, wavy, nil)
	assert.Equal(t, []string{"Density", "Pressure", "VelocityX", "VelocityY", "Volume", "X", "Y"},
		s2.Snapshot().Names())
	s3 := newSimulation(t, gridPoints(3, 3, 0, 1), Periodic, wavy, nil)
	snap := s3.Snapshot()
	assert.Equal(t, []string{"Density", "Pressure", "VelocityX", "VelocityY", "VelocityZ", "Volume", "X", "Y", "Z"},
		snap.Names())
	assert.Equal(t, 27, snap.Len())
	assert.Equal(t, 3, snap.Dim)
}

func TestOutputCadence(t *testing.T) {
	dir := t.TempDir()
	s := newSimulation(t, gridPoints(2, 6, 0.1, 2), Periodic, wavy, nil)
	o, err := NewOutputter(filepath.Join(dir, "run.nc"), nil, nil)
	require.NoError(t, err)
	s.Params.OutputEvery = 2
	s.Params.MaxIterations = 5
	s.RunFuncs = append(MovingMesh(o.Output()), Finished())
	require.NoError(t, s.Run())
	require.NoError(t, o.FinalOutput()(s))
	want := []string{
		filepath.Join(dir, "run_000000.nc"),
		filepath.Join(dir, "run_000002.nc"),
		filepath.Join(dir, "run_000004.nc"),
		filepath.Join(dir, "run_000005.nc"),
	}
	assert.Equal(t, want, o.Files)
}

func TestOutputInterval(t *testing.T) {
	const interval = 0.05
	dir := t.TempDir()
	s := newSimulation(t, gridPoints(2, 6, 0.1, 2), Periodic, wavy, nil)
	o, err := NewOutputter(filepath.Join(dir, "run.nc"), nil, nil)
	require.NoError(t, err)
	s.Params.FinalTime = 0.2
	s.Params.OutputInterval = interval
	last := math.Inf(-1)
	record := func(s *Simulation) error {
		n := len(o.Files)
		if err := o.Output()(s); err != nil {
			return err
		}
		wrote := len(o.Files) > n
		want := math.Floor(s.Time/interval+1e-12) > math.Floor(last/interval+1e-12)
		assert.Equal(t, want, wrote, "time %g, last snapshot at %g", s.Time, last)
		if wrote {
			last = s.Time
		}
		return nil
	}
	s.RunFuncs = append(MovingMesh(record), Finished())
	require.NoError(t, s.Run())
	assert.True(t, len(o.Files) >= 3, "%d snapshots", len(o.Files))
	assert.Equal(t, filepath.Join(dir, "run_000000.nc"), o.Files[0])
}

func TestNetCDFRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := newSimulation(t, gridPoints(3, 3, 0.1, 3), Reflective, wavy, nil)
	o, err := NewOutputter(filepath.Join(dir, "snap.nc"), map[string]string{"Mass": "Density*Volume"}, nil)
	require.NoError(t, err)
	require.NoError(t, o.CheckOutputVars()(s))
	require.NoError(t, o.Output()(s)) // OutputEvery=0, OutputInterval=0: nothing due.
	assert.Empty(t, o.Files)
	require.NoError(t, o.FinalOutput()(s))
	require.Len(t, o.Files, 1)

	f, err := os.Open(o.Files[0])
	require.NoError(t, err)
	defer f.Close()
	got, err := LoadSnapshot(f)
	require.NoError(t, err)
	want, err := o.Results(s)
	require.NoError(t, err)
	assert.Equal(t, want.Dim, got.Dim)
	assert.Equal(t, want.Iteration, got.Iteration)
	assert.Equal(t, want.Time, got.Time)
	assert.Equal(t, want.Names(), got.Names())
	for _, name := range want.Names() {
		assert.Equal(t, want.Fields[name], got.Fields[name], name)
	}
}

func TestShapefileOutput(t *testing.T) {
	dir := t.TempDir()
	s := newSimulation(t, gridPoints(2, 5, 0.2, 8), Reflective, wavy, nil)
	o, err := NewOutputter(filepath.Join(dir, "cells.shp"), map[string]string{"Mass": "Density*Volume"}, nil)
	require.NoError(t, err)
	require.NoError(t, o.FinalOutput()(s))
	require.Len(t, o.Files, 1)

	d, err := shp.NewDecoder(o.Files[0])
	require.NoError(t, err)
	defer d.Close()
	var i int
	for {
		g, fields, more := d.DecodeRowFields("Volume", "Density", "Mass")
		if !more {
			break
		}
		p, ok := g.(geom.Polygon)
		require.True(t, ok, "row %d is %T", i, g)
		vol, err := strconv.ParseFloat(fields["Volume"], 64)
		require.NoError(t, err)
		assert.InDelta(t, s.Cells.Volume[i], vol, 1e-7)
		assert.InDelta(t, vol, p.Area(), 1e-7)
		rho, err := strconv.ParseFloat(fields["Density"], 64)
		require.NoError(t, err)
		assert.InDelta(t, s.Primitive[Density][i], rho, 1e-7)
		i++
	}
	require.NoError(t, d.Error())
	assert.Equal(t, s.Particles.NumReal, i)
}

func TestShapefile3D(t *testing.T) {
	s := newSimulation(t, gridPoints(3, 3, 0, 1), Reflective, uniform(1, 1, r3.Vec{}), nil)
	o, err := NewOutputter(filepath.Join(t.TempDir(), "cells.shp"), nil, nil)
	require.NoError(t, err)
	assert.Error(t, o.FinalOutput()(s))
	assert.Empty(t, o.Files)
}
