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
	"gonum.org/v1/gonum/spatial/r3"
)

// Fraction of the steering strength reached by the mesh regularization,
// as a function of the distance between a generator and its cell centroid
// divided by η times the cell radius: none below regularizeStart, a
// linear ramp up to regularizeFull, and full strength beyond.
const (
	regularizeStart = 0.9
	regularizeFull  = 1.1
)

// RegularizationVelocity returns, for each real generator, a velocity that
// steers it toward the centroid of its cell at up to the local sound
// speed. Generators that are close to their centroid get no correction.
func RegularizationVelocity(p *Particles, cells *CellInfo, prim State, gamma, eta float64) []r3.Vec {
	w := make([]r3.Vec, p.NumReal)
	for i := range w {
		d := r3.Sub(cells.Centroid[i], p.Position(i))
		dist := r3.Norm(d)
		etaR := eta * cellRadius(p.Dim, cells.Volume[i])
		c := SoundSpeed(prim.Get(i), gamma)
		switch ratio := dist / etaR; {
		case ratio >= regularizeFull:
			w[i] = r3.Scale(c/dist, d)
		case ratio >= regularizeStart:
			w[i] = r3.Scale(c*(dist-regularizeStart*etaR)/(dist*(regularizeFull-regularizeStart)*etaR), d)
		}
	}
	return w
}
