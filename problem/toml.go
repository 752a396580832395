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

package problem

import (
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/voromesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// State is a primitive fluid state as written in a problem file.
type State struct {
	Density  float64   `toml:"density"`
	Velocity []float64 `toml:"velocity"`
	Pressure float64   `toml:"pressure"`
}

func (st State) vars() voromesh.Vars {
	w := voromesh.Vars{voromesh.Density: st.Density, voromesh.Pressure: st.Pressure}
	for k, v := range st.Velocity {
		if k < 3 {
			w[voromesh.VelocityX+voromesh.Field(k)] = v
		}
	}
	return w
}

// Region overrides the background state inside a box or a sphere.
type Region struct {
	State
	Shape  string    `toml:"shape"`
	Min    []float64 `toml:"min"`
	Max    []float64 `toml:"max"`
	Center []float64 `toml:"center"`
	Radius float64   `toml:"radius"`
}

func (r *Region) contains(x r3.Vec) bool {
	c := [3]float64{x.X, x.Y, x.Z}
	switch r.Shape {
	case "sphere":
		var d2 float64
		for k, ck := range r.Center {
			d2 += (c[k] - ck) * (c[k] - ck)
		}
		return d2 <= r.Radius*r.Radius
	default:
		for k := range r.Min {
			if c[k] < r.Min[k] || c[k] > r.Max[k] {
				return false
			}
		}
		return true
	}
}

// File is the layout of a problem file.
type File struct {
	Name         string    `toml:"name"`
	Dim          int       `toml:"dim"`
	Min          []float64 `toml:"min"`
	Max          []float64 `toml:"max"`
	Resolution   []int     `toml:"resolution"`
	Perturbation float64   `toml:"perturbation"`
	Seed         int64     `toml:"seed"`

	// Boundary is the treatment of every side; Lower and Upper, if set,
	// give it per axis.
	Boundary   string   `toml:"boundary"`
	Lower      []string `toml:"lower"`
	Upper      []string `toml:"upper"`
	GhostDepth float64  `toml:"ghost_depth"`

	Background State    `toml:"background"`
	Regions    []Region `toml:"region"`

	// Params overrides the default simulation parameters.
	Params voromesh.Params `toml:"params"`
}

// FromTOML reads a problem from a TOML file. Regions are applied in
// order, so later regions take precedence.
func FromTOML(r io.Reader) (*Problem, error) {
	f := File{Params: voromesh.DefaultParams(), Boundary: "reflective", Seed: 1}
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("problem: reading TOML: %v", err)
	}
	return f.Problem()
}

// Problem checks f and builds the problem it describes.
func (f *File) Problem() (*Problem, error) {
	dim := f.Dim
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("problem: dim=%d but should be 2 or 3", dim)
	}
	if len(f.Min) != dim || len(f.Max) != dim || len(f.Resolution) != dim {
		return nil, fmt.Errorf("problem: min, max, and resolution should have %d values", dim)
	}
	var min, max [3]float64
	var res [3]int
	for k := 0; k < dim; k++ {
		min[k], max[k], res[k] = f.Min[k], f.Max[k], f.Resolution[k]
		if res[k] < 1 {
			return nil, fmt.Errorf("problem: resolution[%d]=%d but should be >0", k, res[k])
		}
	}
	if f.Perturbation < 0 || f.Perturbation >= 0.5 {
		return nil, fmt.Errorf("problem: perturbation=%g but should be in [0, 0.5)", f.Perturbation)
	}
	t, err := voromesh.ParseBoundaryType(f.Boundary)
	if err != nil {
		return nil, err
	}
	if len(f.Lower) > dim || len(f.Upper) > dim {
		return nil, fmt.Errorf("problem: lower and upper should have at most %d values", dim)
	}
	b := voromesh.NewBoundary(min, max, t)
	b.Depth = f.GhostDepth
	for k, s := range f.Lower {
		if b.Lower[k], err = voromesh.ParseBoundaryType(s); err != nil {
			return nil, err
		}
	}
	for k, s := range f.Upper {
		if b.Upper[k], err = voromesh.ParseBoundaryType(s); err != nil {
			return nil, err
		}
	}
	if err := b.Validate(dim); err != nil {
		return nil, err
	}
	if err := f.Params.Validate(); err != nil {
		return nil, err
	}
	for i := range f.Regions {
		rg := &f.Regions[i]
		rg.Shape = strings.ToLower(rg.Shape)
		switch rg.Shape {
		case "box", "":
			if len(rg.Min) != dim || len(rg.Max) != dim {
				return nil, fmt.Errorf("problem: region %d: box needs %d-dimensional min and max", i, dim)
			}
		case "sphere":
			if len(rg.Center) != dim || !(rg.Radius > 0) {
				return nil, fmt.Errorf("problem: region %d: sphere needs a %d-dimensional center and a positive radius", i, dim)
			}
		default:
			return nil, fmt.Errorf("problem: region %d: unknown shape %q", i, rg.Shape)
		}
	}
	name := f.Name
	if name == "" {
		name = "custom"
	}
	background := f.Background.vars()
	regions := f.Regions
	return &Problem{
		Name:     name,
		Points:   Grid(dim, min, max, res, f.Perturbation, rand.New(rand.NewSource(f.Seed))),
		Boundary: b,
		Params:   f.Params,
		Initial: func(x r3.Vec) voromesh.Vars {
			w := background
			for i := range regions {
				if regions[i].contains(x) {
					w = regions[i].vars()
				}
			}
			return w
		},
	}, nil
}
