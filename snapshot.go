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
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Snapshot is the state of a simulation at one instant, as exposed to
// output writers. Fields are keyed by name and hold one value per real
// generator: the coordinates "X", "Y" (and "Z"), the primitive variables,
// and the cell "Volume".
type Snapshot struct {
	Dim       int
	Iteration int
	Time      float64
	Dt        float64
	Fields    map[string][]float64
}

// Snapshot returns the current state of the real generators. It should
// be called when the primitive state and cell geometry correspond to the
// current positions, for instance from an observer passed to MovingMesh.
func (s *Simulation) Snapshot() *Snapshot {
	p := s.Particles
	n := p.NumReal
	snap := &Snapshot{
		Dim:       p.Dim,
		Iteration: s.Iteration,
		Time:      s.Time,
		Dt:        s.Dt,
		Fields:    make(map[string][]float64),
	}
	for k, name := range []string{"X", "Y", "Z"}[:p.Dim] {
		snap.Fields[name] = append([]float64(nil), p.Pos[k][:n]...)
	}
	for f := Field(0); f < NumFields; f++ {
		if f == VelocityZ && p.Dim == 2 {
			continue
		}
		snap.Fields[f.String()] = append([]float64(nil), s.Primitive[f][:n]...)
	}
	if s.Cells != nil {
		snap.Fields["Volume"] = append([]float64(nil), s.Cells.Volume...)
	}
	return snap
}

// Names returns the sorted field names.
func (snap *Snapshot) Names() []string {
	names := make([]string, 0, len(snap.Fields))
	for n := range snap.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of generators in the snapshot.
func (snap *Snapshot) Len() int {
	return len(snap.Fields["X"])
}

var fieldDescriptions = map[string]string{
	"X":         "generator x coordinate",
	"Y":         "generator y coordinate",
	"Z":         "generator z coordinate",
	"Density":   "mass density",
	"VelocityX": "fluid velocity along x",
	"VelocityY": "fluid velocity along y",
	"VelocityZ": "fluid velocity along z",
	"Pressure":  "thermal pressure",
	"Volume":    "cell volume (area in 2D)",
}

// Write writes snap to netcdf file w. All fields share the dimension
// "generator"; the iteration, time, time step and dimensionality are
// stored as global attributes.
func (snap *Snapshot) Write(w *os.File) error {
	n := snap.Len()
	h := cdf.NewHeader([]string{"generator"}, []int{n})
	h.AddAttribute("", "comment", "Voromesh moving-mesh snapshot")
	h.AddAttribute("", "iteration", []int32{int32(snap.Iteration)})
	h.AddAttribute("", "time", []float64{snap.Time})
	h.AddAttribute("", "dt", []float64{snap.Dt})
	h.AddAttribute("", "dim", []int32{int32(snap.Dim)})

	names := snap.Names()
	for _, name := range names {
		h.AddVariable(name, []string{"generator"}, []float64{0})
		desc, ok := fieldDescriptions[name]
		if !ok {
			desc = "derived variable"
		}
		h.AddAttribute(name, "description", desc)
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}
	for _, name := range names {
		data := sparse.ZerosDense(n)
		copy(data.Elements, snap.Fields[name])
		if err = writeNCF(f, name, data); err != nil {
			return fmt.Errorf("voromesh: writing variable %s to netcdf file: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeNCF(f *cdf.File, Var string, data *sparse.DenseArray) error {
	// Check that data matches dimensions.
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	end := f.Header.Lengths(Var)
	start := make([]int, len(end))
	w := f.Writer(Var, start, end)
	_, err := w.Write(data.Elements)
	return err
}

// LoadSnapshot reads a snapshot from a netcdf file written by
// Snapshot.Write.
func LoadSnapshot(rw cdf.ReaderWriterAt) (*Snapshot, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("voromesh.LoadSnapshot: %v", err)
	}
	snap := &Snapshot{Fields: make(map[string][]float64)}
	if v, ok := f.Header.GetAttribute("", "iteration").([]int32); ok && len(v) > 0 {
		snap.Iteration = int(v[0])
	}
	if v, ok := f.Header.GetAttribute("", "dim").([]int32); ok && len(v) > 0 {
		snap.Dim = int(v[0])
	}
	if v, ok := f.Header.GetAttribute("", "time").([]float64); ok && len(v) > 0 {
		snap.Time = v[0]
	}
	if v, ok := f.Header.GetAttribute("", "dt").([]float64); ok && len(v) > 0 {
		snap.Dt = v[0]
	}
	for _, v := range f.Header.Variables() {
		dims := f.Header.Lengths(v)
		data := sparse.ZerosDense(dims...)
		r := f.Reader(v, nil, nil)
		if _, err := r.Read(data.Elements); err != nil {
			return nil, fmt.Errorf("voromesh.LoadSnapshot: reading %s: %v", v, err)
		}
		snap.Fields[v] = data.Elements
	}
	return snap, nil
}
