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
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/voromesh/voronoi"
	"gonum.org/v1/gonum/floats"
)

// Outputter writes snapshots, optionally with derived variables, to
// netcdf (".nc") or, in 2D, shapefile (".shp") files.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	outputFunctions map[string]govaluate.ExpressionFunction
	expressions     map[string]*govaluate.EvaluableExpression
	order           []string
	nextTime        float64

	// Files holds the names of the files written so far.
	Files []string
}

// NewOutputter initializes a new Outputter. Each snapshot is written to
// fileName with the iteration number inserted before the extension.
// outputVariables maps the names of derived variables to expressions of
// snapshot fields or other derived variables, for example
// "Mach": "sqrt(VelocityX**2+VelocityY**2)/sqrt(1.4*Pressure/Density)".
// outputFunctions adds to the built-in functions exp, sqrt, abs, log, and
// sum.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	switch filepath.Ext(fileName) {
	case ".nc", ".shp":
	default:
		return nil, fmt.Errorf("voromesh: output file %q should end in .nc or .shp", fileName)
	}
	unary := func(name string, f func(float64) float64) govaluate.ExpressionFunction {
		return func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("voromesh: got %d arguments for function '%s', but needs 1", len(arg), name)
			}
			x, ok := arg[0].(float64)
			if !ok {
				return nil, fmt.Errorf("voromesh: argument of '%s' is %T, not a number", name, arg[0])
			}
			return f(x), nil
		}
	}
	funcs := map[string]govaluate.ExpressionFunction{
		"exp":  unary("exp", math.Exp),
		"sqrt": unary("sqrt", math.Sqrt),
		"abs":  unary("abs", math.Abs),
		"log":  unary("log", math.Log),
		"sum": func(arg ...interface{}) (interface{}, error) {
			var x []float64
			for _, a := range arg {
				v, ok := a.(float64)
				if !ok {
					return nil, fmt.Errorf("voromesh: argument of 'sum' is %T, not a number", a)
				}
				x = append(x, v)
			}
			return floats.Sum(x), nil
		},
	}
	for key, val := range outputFunctions {
		funcs[key] = val
	}
	o := &Outputter{
		fileName:        fileName,
		outputVariables: outputVariables,
		outputFunctions: funcs,
		expressions:     make(map[string]*govaluate.EvaluableExpression),
	}
	for name, expr := range outputVariables {
		e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, funcs)
		if err != nil {
			return nil, fmt.Errorf("voromesh: output variable %s: %v", name, err)
		}
		o.expressions[name] = e
	}
	return o, nil
}

var outputNameRegexp = regexp.MustCompile(`^[A-Za-z]\w*$`)

// CheckOutputVars returns a function that ensures the output variables can
// be calculated from the snapshot fields of s, and sorts them so that
// every variable is evaluated after the ones it depends on.
func (o *Outputter) CheckOutputVars() DomainManipulator {
	return func(s *Simulation) error {
		available := make(map[string]bool)
		for _, n := range s.Snapshot().Names() {
			available[n] = true
		}
		names := make([]string, 0, len(o.expressions))
		for n := range o.expressions {
			if available[n] {
				return fmt.Errorf("voromesh: output variable %s shadows a model variable", n)
			}
			if !outputNameRegexp.MatchString(n) {
				return fmt.Errorf("voromesh: output variable name '%s' includes unsupported characters", n)
			}
			if strings.HasSuffix(o.fileName, ".shp") && len(n) > 10 {
				return fmt.Errorf("voromesh: output variable name '%s' exceeds 10 characters", n)
			}
			names = append(names, n)
		}
		sort.Strings(names)
		o.order = o.order[:0]
		for len(names) > 0 {
			var rest []string
			for _, n := range names {
				ready := true
				for _, v := range o.expressions[n].Vars() {
					if available[v] {
						continue
					}
					if _, ok := o.expressions[v]; !ok {
						return fmt.Errorf("voromesh: undefined variable name '%s' in output variable %s", v, n)
					}
					ready = false
				}
				if ready {
					o.order = append(o.order, n)
					available[n] = true
				} else {
					rest = append(rest, n)
				}
			}
			if len(rest) == len(names) {
				return fmt.Errorf("voromesh: output variables %v depend on each other", rest)
			}
			names = rest
		}
		return nil
	}
}

// Output returns a function that writes a snapshot when one is due: every
// Params.OutputEvery iterations and every Params.OutputInterval of
// simulation time.
func (o *Outputter) Output() DomainManipulator {
	return func(s *Simulation) error {
		due := s.Params.OutputEvery > 0 && s.Iteration%s.Params.OutputEvery == 0
		if dt := s.Params.OutputInterval; dt > 0 && s.Time >= o.nextTime*(1-1e-12) {
			due = true
			o.nextTime = (math.Floor(s.Time/dt+1e-12) + 1) * dt
		}
		if !due {
			return nil
		}
		return o.write(s)
	}
}

// FinalOutput returns a function that writes a snapshot of the state after
// the last step, for use in CleanupFuncs.
func (o *Outputter) FinalOutput() DomainManipulator {
	refresh := Refresh()
	return func(s *Simulation) error {
		if err := refresh(s); err != nil {
			return err
		}
		return o.write(s)
	}
}

// Results returns the snapshot of s with the derived output variables
// added.
func (o *Outputter) Results(s *Simulation) (*Snapshot, error) {
	snap := s.Snapshot()
	if len(o.order) != len(o.expressions) {
		if err := o.CheckOutputVars()(s); err != nil {
			return nil, err
		}
	}
	n := snap.Len()
	params := make(map[string]interface{}, len(snap.Fields))
	for _, name := range o.order {
		e := o.expressions[name]
		vars := e.Vars()
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			for _, v := range vars {
				params[v] = snap.Fields[v][i]
			}
			r, err := e.Evaluate(params)
			if err != nil {
				return nil, fmt.Errorf("voromesh: evaluating %s: %v", name, err)
			}
			x, ok := r.(float64)
			if !ok {
				return nil, fmt.Errorf("voromesh: output variable %s evaluates to %T, not a number", name, r)
			}
			out[i] = x
		}
		snap.Fields[name] = out
	}
	return snap, nil
}

// fileFor returns the name of the file for iteration it.
func (o *Outputter) fileFor(it int) string {
	ext := filepath.Ext(o.fileName)
	return fmt.Sprintf("%s_%06d%s", strings.TrimSuffix(o.fileName, ext), it, ext)
}

func (o *Outputter) write(s *Simulation) error {
	snap, err := o.Results(s)
	if err != nil {
		return err
	}
	name := o.fileFor(s.Iteration)
	switch filepath.Ext(name) {
	case ".shp":
		polys, err := s.CellPolygons()
		if err != nil {
			return err
		}
		if err := writeShapefile(name, snap, polys); err != nil {
			return err
		}
	default:
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("voromesh: creating output file: %v", err)
		}
		if err := snap.Write(f); err != nil {
			f.Close()
			return fmt.Errorf("voromesh: writing output file: %v", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	o.Files = append(o.Files, name)
	s.Log.WithField("file", name).Info("voromesh: wrote snapshot")
	return nil
}

func writeShapefile(fileName string, snap *Snapshot, polys []geom.Polygon) error {
	vars := snap.Names()
	fields := make([]goshp.Field, len(vars))
	for i, v := range vars {
		fields[i] = goshp.FloatField(v, 14, 8)
	}
	shape, err := shp.NewEncoderFromFields(fileName, goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("error creating output shapefile: %v", err)
	}
	defer shape.Close()
	for i, poly := range polys {
		outFields := make([]interface{}, len(vars))
		for j, v := range vars {
			outFields[j] = snap.Fields[v][i]
		}
		if err = shape.EncodeFields(poly, outFields...); err != nil {
			return fmt.Errorf("error writing output shapefile: %v", err)
		}
	}
	return nil
}

// CellPolygons returns the boundary of each real cell. It is only
// available in 2D.
func (s *Simulation) CellPolygons() ([]geom.Polygon, error) {
	p := s.Particles
	if p.Dim != 2 {
		return nil, fmt.Errorf("voromesh: cell polygons need 2 dimensions, have %d", p.Dim)
	}
	polys := make([]geom.Polygon, p.NumReal)
	for i := range polys {
		x := p.Position(i)
		var ids []int
		for _, f := range s.Graph.Faces[i] {
			for _, v := range f {
				if v == voronoi.Infinity {
					return nil, stepError(ErrTopology, "cell polygons", i, "cell is unbounded")
				}
				if !containsInt(ids, v) {
					ids = append(ids, v)
				}
			}
		}
		angle := make(map[int]float64, len(ids))
		for _, v := range ids {
			c := s.Graph.Vertices[v]
			angle[v] = math.Atan2(c.Y-x.Y, c.X-x.X)
		}
		sort.Slice(ids, func(a, b int) bool { return angle[ids[a]] < angle[ids[b]] })
		ring := make([]geom.Point, 0, len(ids)+1)
		for _, v := range ids {
			c := s.Graph.Vertices[v]
			pt := geom.Point{X: c.X, Y: c.Y}
			if n := len(ring); n > 0 && ring[n-1] == pt {
				continue
			}
			ring = append(ring, pt)
		}
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		ring = append(ring, ring[0])
		polys[i] = geom.Polygon{ring}
	}
	return polys, nil
}
