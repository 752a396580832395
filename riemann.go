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
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// A RiemannSolver computes the flux of conserved variables through a
// moving face.
type RiemannSolver interface {
	// Flux returns the flux per unit area and time through a face with
	// unit normal n, moving with velocity w, between primitive states
	// left (on the side n points away from) and right. The flux is
	// positive when directed along n.
	Flux(left, right Vars, n, w r3.Vec, gamma float64) (Vars, error)

	Name() string
}

// NewRiemannSolver returns the solver named name, either "hll" or "hllc".
func NewRiemannSolver(name string) (RiemannSolver, error) {
	switch strings.ToLower(name) {
	case "hll":
		return HLL{}, nil
	case "hllc":
		return HLLC{}, nil
	}
	return nil, fmt.Errorf("voromesh: invalid Riemann solver %q", name)
}

// faceState is a primitive state seen from a face: velocity relative to
// the face's normal motion, split into the normal component and the
// tangential vector.
type faceState struct {
	rho, un, p float64
	vt         r3.Vec
	c, e       float64
}

// normalVars holds conserved variables or fluxes with momentum split into
// normal and tangential parts.
type normalVars struct {
	mass, momN float64
	momT       r3.Vec
	energy     float64
}

func (a normalVars) add(b normalVars) normalVars {
	return normalVars{a.mass + b.mass, a.momN + b.momN, r3.Add(a.momT, b.momT), a.energy + b.energy}
}

func (a normalVars) scale(f float64) normalVars {
	return normalVars{f * a.mass, f * a.momN, r3.Scale(f, a.momT), f * a.energy}
}

func toFaceFrame(w Vars, n r3.Vec, wn, gamma float64) faceState {
	v := r3.Vec{X: w[VelocityX], Y: w[VelocityY], Z: w[VelocityZ]}
	vn := r3.Dot(v, n)
	s := faceState{
		rho: w[Density],
		p:   w[Pressure],
		un:  vn - wn,
		vt:  r3.Sub(v, r3.Scale(vn, n)),
	}
	s.c = math.Sqrt(gamma * s.p / s.rho)
	s.e = s.p/(gamma-1) + 0.5*s.rho*(s.un*s.un+r3.Norm2(s.vt))
	return s
}

func (s faceState) conserved() normalVars {
	return normalVars{s.rho, s.rho * s.un, r3.Scale(s.rho, s.vt), s.e}
}

func (s faceState) flux() normalVars {
	return normalVars{
		mass:   s.rho * s.un,
		momN:   s.rho*s.un*s.un + s.p,
		momT:   r3.Scale(s.rho*s.un, s.vt),
		energy: (s.e + s.p) * s.un,
	}
}

// toLab returns flux f, computed in the frame moving with normal velocity
// wn, as the flux of lab frame conserved variables through the moving face.
func toLab(f normalVars, n r3.Vec, wn float64) (Vars, error) {
	mom := r3.Add(r3.Scale(f.momN+f.mass*wn, n), f.momT)
	var out Vars
	out[Mass] = f.mass
	out[MomentumX], out[MomentumY], out[MomentumZ] = mom.X, mom.Y, mom.Z
	out[Energy] = f.energy + wn*f.momN + 0.5*wn*wn*f.mass
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return out, fmt.Errorf("%s flux is %g", Field(i).ConservedName(), v)
		}
	}
	return out, nil
}

// waveSpeeds returns the Davis estimates of the slowest and fastest
// signal speeds.
func waveSpeeds(l, r faceState) (sl, sr float64) {
	return math.Min(l.un-l.c, r.un-r.c), math.Max(l.un+l.c, r.un+r.c)
}

// HLL is the two-wave Harten-Lax-van Leer solver.
type HLL struct{}

// Name implements RiemannSolver.
func (HLL) Name() string { return "hll" }

// Flux implements RiemannSolver.
func (HLL) Flux(left, right Vars, n, w r3.Vec, gamma float64) (Vars, error) {
	wn := r3.Dot(w, n)
	l, r := toFaceFrame(left, n, wn, gamma), toFaceFrame(right, n, wn, gamma)
	sl, sr := waveSpeeds(l, r)
	var f normalVars
	switch {
	case sl >= 0:
		f = l.flux()
	case sr <= 0:
		f = r.flux()
	default:
		ul, ur := l.conserved(), r.conserved()
		f = l.flux().scale(sr).
			add(r.flux().scale(-sl)).
			add(ur.add(ul.scale(-1)).scale(sl * sr)).
			scale(1 / (sr - sl))
	}
	return toLab(f, n, wn)
}

// HLLC adds the contact wave to HLL, resolving the two intermediate states.
type HLLC struct{}

// Name implements RiemannSolver.
func (HLLC) Name() string { return "hllc" }

// Flux implements RiemannSolver.
func (HLLC) Flux(left, right Vars, n, w r3.Vec, gamma float64) (Vars, error) {
	wn := r3.Dot(w, n)
	l, r := toFaceFrame(left, n, wn, gamma), toFaceFrame(right, n, wn, gamma)
	sl, sr := waveSpeeds(l, r)
	if sl >= 0 {
		return toLab(l.flux(), n, wn)
	}
	if sr <= 0 {
		return toLab(r.flux(), n, wn)
	}
	ml := l.rho * (sl - l.un)
	mr := r.rho * (sr - r.un)
	ss := (r.p - l.p + l.un*ml - r.un*mr) / (ml - mr)
	k, sk := l, sl
	if ss < 0 {
		k, sk = r, sr
	}
	// Intermediate state on the side of the contact containing the face.
	f := sk - k.un
	d := k.rho * f / (sk - ss)
	star := normalVars{
		mass:   d,
		momN:   d * ss,
		momT:   r3.Scale(d, k.vt),
		energy: d * (k.e/k.rho + (ss-k.un)*(ss+k.p/(k.rho*f))),
	}
	flux := k.flux().add(star.add(k.conserved().scale(-1)).scale(sk))
	return toLab(flux, n, wn)
}

// Timestep returns CFL × the minimum over real cells of R/(|v|+c), where R
// is the radius of a sphere with the cell's volume and c the sound speed,
// along with the index of the limiting cell. With no real cells it returns
// +Inf and -1.
func Timestep(p *Particles, cells *CellInfo, prim State, gamma, cfl float64) (float64, int) {
	if p.NumReal == 0 {
		return math.Inf(1), -1
	}
	dt := make([]float64, p.NumReal)
	for i := range dt {
		w := prim.Get(i)
		v := math.Sqrt(w[VelocityX]*w[VelocityX] + w[VelocityY]*w[VelocityY] + w[VelocityZ]*w[VelocityZ])
		dt[i] = cellRadius(p.Dim, cells.Volume[i]) / (v + SoundSpeed(w, gamma))
		if math.IsNaN(dt[i]) {
			dt[i] = math.Inf(1)
		}
	}
	i := floats.MinIdx(dt)
	return cfl * dt[i], i
}
