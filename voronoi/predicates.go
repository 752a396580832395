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

package voronoi

import (
	"math"
	"math/big"
)

// filterBound is the relative size, compared to the permanent of the
// absolute matrix entries, below which a floating point determinant is not
// trusted and the sign is recomputed exactly.
const filterBound = 1e-12

// matrix holds up to a 4×4 determinant.
type matrix [4][4]float64

// det returns the determinant of the leading n×n block of m along with the
// permanent of its absolute entries.
func (m *matrix) det(n int) (d, perm float64) {
	return m.minor(0, n, 1<<uint(n)-1)
}

func (m *matrix) minor(row, n int, cols uint8) (d, perm float64) {
	if row == n-1 {
		for c := 0; c < n; c++ {
			if cols&(1<<uint(c)) != 0 {
				return m[row][c], math.Abs(m[row][c])
			}
		}
	}
	sign := 1.
	for c := 0; c < n; c++ {
		if cols&(1<<uint(c)) == 0 {
			continue
		}
		sd, sp := m.minor(row+1, n, cols&^(1<<uint(c)))
		v := m[row][c]
		d += sign * v * sd
		perm += math.Abs(v) * sp
		sign = -sign
	}
	return d, perm
}

func signOf(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// orient returns the sign of det[p1-p0, ..., pD-p0] for the D+1 points
// indexed by v.
func (t *triangulation) orient(v []int) int {
	D := t.dim
	var m matrix
	p0 := t.pts[v[0]]
	for r := 0; r < D; r++ {
		p := t.pts[v[r+1]]
		for c := 0; c < D; c++ {
			m[r][c] = p[c] - p0[c]
		}
	}
	d, perm := m.det(D)
	if math.Abs(d) > filterBound*perm {
		return signOf(d)
	}
	t.exactCalls++
	rows := make([][]*big.Rat, D)
	q0 := t.rat(v[0])
	for r := 0; r < D; r++ {
		q := t.rat(v[r+1])
		rows[r] = make([]*big.Rat, D)
		for c := 0; c < D; c++ {
			rows[r][c] = new(big.Rat).Sub(q[c], q0[c])
		}
	}
	return ratDetSign(rows)
}

// inSphere reports the sign of the lifted determinant of the D+1 points
// indexed by v relative to point p. For a positively oriented simplex the
// point is strictly inside the circumsphere when the returned value has the
// sign (-1)^D.
func (t *triangulation) inSphere(v []int, p int) int {
	D := t.dim
	n := D + 1
	var m matrix
	pp := t.pts[p]
	for r := 0; r < n; r++ {
		a := t.pts[v[r]]
		var l float64
		for c := 0; c < D; c++ {
			x := a[c] - pp[c]
			m[r][c] = x
			l += x * x
		}
		m[r][D] = l
	}
	d, perm := m.det(n)
	if math.Abs(d) > filterBound*perm {
		return signOf(d)
	}
	t.exactCalls++
	rows := make([][]*big.Rat, n)
	qp := t.rat(p)
	for r := 0; r < n; r++ {
		q := t.rat(v[r])
		rows[r] = make([]*big.Rat, n)
		l := new(big.Rat)
		for c := 0; c < D; c++ {
			x := new(big.Rat).Sub(q[c], qp[c])
			rows[r][c] = x
			l.Add(l, new(big.Rat).Mul(x, x))
		}
		rows[r][D] = l
	}
	return ratDetSign(rows)
}

// rat returns the exact rational coordinates of point i.
func (t *triangulation) rat(i int) []*big.Rat {
	q := make([]*big.Rat, t.dim)
	for c := 0; c < t.dim; c++ {
		q[c] = new(big.Rat).SetFloat64(t.pts[i][c])
	}
	return q
}

// ratDetSign returns the sign of the determinant of the square matrix m
// using exact Gaussian elimination. m is overwritten.
func ratDetSign(m [][]*big.Rat) int {
	n := len(m)
	sign := 1
	for col := 0; col < n; col++ {
		piv := -1
		for r := col; r < n; r++ {
			if m[r][col].Sign() != 0 {
				piv = r
				break
			}
		}
		if piv < 0 {
			return 0
		}
		if piv != col {
			m[piv], m[col] = m[col], m[piv]
			sign = -sign
		}
		sign *= m[col][col].Sign()
		for r := col + 1; r < n; r++ {
			if m[r][col].Sign() == 0 {
				continue
			}
			f := new(big.Rat).Quo(m[r][col], m[col][col])
			for c := col; c < n; c++ {
				m[r][c].Sub(m[r][c], new(big.Rat).Mul(f, m[col][c]))
			}
		}
	}
	return sign
}
