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
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// checkpoint is the saved form of a simulation. Everything else is
// rebuilt from the generator positions and conserved state.
type checkpoint struct {
	Dim        int
	Positions  [3][]float64
	Conserved  State
	Time, Dt   float64
	PrevDt     float64
	Iteration  int
	GhostDepth float64
}

// Save returns a function that writes a zstd-compressed checkpoint of the
// simulation to w.
func Save(w io.Writer) DomainManipulator {
	return func(s *Simulation) error {
		p := s.Particles
		c := checkpoint{
			Dim:        p.Dim,
			Conserved:  s.Conserved,
			Time:       s.Time,
			Dt:         s.Dt,
			PrevDt:     s.prevDt,
			Iteration:  s.Iteration,
			GhostDepth: s.ghostDepth,
		}
		for k := 0; k < 3; k++ {
			c.Positions[k] = p.Pos[k][:p.NumReal]
		}
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("voromesh.Simulation.Save: %v", err)
		}
		if err := gob.NewEncoder(zw).Encode(c); err != nil {
			zw.Close()
			return fmt.Errorf("voromesh.Simulation.Save: %v", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("voromesh.Simulation.Save: %v", err)
		}
		return nil
	}
}

// Load returns a function that restores a simulation from a checkpoint
// written by Save. The ghosts, tessellation, and primitive state are
// rebuilt from the restored positions.
func Load(r io.Reader) DomainManipulator {
	return func(s *Simulation) error {
		if err := s.setup(); err != nil {
			return err
		}
		zr, err := zstd.NewReader(r)
		if err != nil {
			return fmt.Errorf("voromesh.Simulation.Load: %v", err)
		}
		defer zr.Close()
		var c checkpoint
		if err := gob.NewDecoder(zr).Decode(&c); err != nil {
			return fmt.Errorf("voromesh.Simulation.Load: %v", err)
		}
		n := len(c.Positions[0])
		if c.Dim != 2 && c.Dim != 3 {
			return fmt.Errorf("voromesh.Simulation.Load: checkpoint has %d dimensions", c.Dim)
		}
		if c.Conserved.Len() != n {
			return fmt.Errorf("voromesh.Simulation.Load: %d generators but %d conserved states", n, c.Conserved.Len())
		}
		points := make([][]float64, n)
		for i := range points {
			points[i] = make([]float64, c.Dim)
			for k := 0; k < c.Dim; k++ {
				points[i][k] = c.Positions[k][i]
			}
		}
		s.Particles = NewParticles(c.Dim, points)
		s.Conserved = c.Conserved
		s.Time, s.Dt, s.prevDt = c.Time, c.Dt, c.PrevDt
		s.Iteration = c.Iteration
		s.ghostDepth = c.GhostDepth
		s.Done = false
		return Refresh()(s)
	}
}
