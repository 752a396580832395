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
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Log returns a function that writes simulation status messages to l.
// The first ten steps are logged, then at most one step per interval,
// and always the step that finishes the simulation.
func Log(l logrus.FieldLogger, interval time.Duration) DomainManipulator {
	startTime := time.Now()
	timeStepTime := time.Now()
	sometimes := rate.Sometimes{First: 10, Interval: interval}

	return func(s *Simulation) error {
		logStep := func() {
			l.WithFields(logrus.Fields{
				"iteration":  s.Iteration,
				"time":       s.Time,
				"dt":         s.Dt,
				"walltime":   time.Since(startTime).Round(time.Millisecond).String(),
				"Δwalltime":  time.Since(timeStepTime).Round(time.Microsecond).String(),
				"generators": s.Particles.NumReal,
			}).Info("voromesh: step")
		}
		if s.Done || s.finished() {
			logStep()
		} else {
			sometimes.Do(logStep)
		}
		timeStepTime = time.Now()
		return nil
	}
}
