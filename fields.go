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
)

// Field identifies one fluid variable. Primitive and conserved state share
// the same layout: Mass is stored at Density, the momentum components at
// the velocity components, and Energy at Pressure.
type Field int

// Primitive variables.
const (
	Density Field = iota
	VelocityX
	VelocityY
	VelocityZ
	Pressure

	// NumFields is the number of fluid variables.
	NumFields
)

// Conserved variables.
const (
	Mass      = Density
	MomentumX = VelocityX
	MomentumY = VelocityY
	MomentumZ = VelocityZ
	Energy    = Pressure
)

var fieldNames = [NumFields]string{"Density", "VelocityX", "VelocityY", "VelocityZ", "Pressure"}
var conservedNames = [NumFields]string{"Mass", "MomentumX", "MomentumY", "MomentumZ", "Energy"}

func (f Field) String() string {
	if f < 0 || f >= NumFields {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// ConservedName returns the name of the conserved variable stored at f.
func (f Field) ConservedName() string { return conservedNames[f] }

// velocity returns the velocity field along axis k.
func velocity(k int) Field { return VelocityX + Field(k) }

// Vars holds all fluid variables of one generator.
type Vars [NumFields]float64

// State holds one value per generator for each fluid variable.
type State [NumFields][]float64

// NewState returns a zeroed State for n generators.
func NewState(n int) State {
	var s State
	for f := range s {
		s[f] = make([]float64, n)
	}
	return s
}

// Len returns the number of generators in s.
func (s State) Len() int { return len(s[Density]) }

// Get returns the variables of generator i.
func (s State) Get(i int) Vars {
	var v Vars
	for f := range s {
		v[f] = s[f][i]
	}
	return v
}

// Set sets the variables of generator i.
func (s State) Set(i int, v Vars) {
	for f := range s {
		s[f][i] = v[f]
	}
}

// resize returns s with length n, keeping the first min(n, s.Len())
// values.
func (s State) resize(n int) State {
	for f := range s {
		if cap(s[f]) >= n {
			old := len(s[f])
			s[f] = s[f][:n]
			for i := old; i < n; i++ {
				s[f][i] = 0
			}
			continue
		}
		v := make([]float64, n)
		copy(v, s[f])
		s[f] = v
	}
	return s
}

// without returns s with the entries in drop removed.
func (s State) without(drop map[int]bool) State {
	for f := range s {
		n := 0
		for i, v := range s[f] {
			if drop[i] {
				continue
			}
			s[f][n] = v
			n++
		}
		s[f] = s[f][:n]
	}
	return s
}

// SoundSpeed returns the adiabatic sound speed of primitive state w.
func SoundSpeed(w Vars, gamma float64) float64 {
	return math.Sqrt(gamma * w[Pressure] / w[Density])
}

// ToConserved returns the conserved variables of a cell of the given
// volume with primitive state w. The energy is the sum of the internal
// energy of an ideal gas and the kinetic energy.
func ToConserved(w Vars, volume, gamma float64) Vars {
	var u Vars
	rho := w[Density]
	u[Mass] = rho * volume
	var v2 float64
	for k := 0; k < 3; k++ {
		vk := w[velocity(k)]
		u[MomentumX+Field(k)] = u[Mass] * vk
		v2 += vk * vk
	}
	u[Energy] = (w[Pressure]/(gamma-1) + 0.5*rho*v2) * volume
	return u
}

// ToPrimitive returns the primitive state of a cell of the given volume
// holding conserved variables u. It fails when the resulting density or
// pressure is not positive.
func ToPrimitive(u Vars, volume, gamma float64) (Vars, error) {
	var w Vars
	w[Density] = u[Mass] / volume
	if !(w[Density] > 0) {
		return w, fmt.Errorf("density=%g", w[Density])
	}
	var v2 float64
	for k := 0; k < 3; k++ {
		vk := u[MomentumX+Field(k)] / u[Mass]
		w[velocity(k)] = vk
		v2 += vk * vk
	}
	w[Pressure] = (gamma - 1) * (u[Energy]/volume - 0.5*w[Density]*v2)
	if !(w[Pressure] > 0) || math.IsInf(w[Pressure], 0) {
		return w, fmt.Errorf("pressure=%g", w[Pressure])
	}
	return w, nil
}

// physical returns an error if w has a non-positive density or pressure
// or a NaN in any variable.
func physical(w Vars) error {
	for f, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%v=%g", Field(f), v)
		}
	}
	if !(w[Density] > 0) {
		return fmt.Errorf("density=%g", w[Density])
	}
	if !(w[Pressure] > 0) {
		return fmt.Errorf("pressure=%g", w[Pressure])
	}
	return nil
}
