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

package voromeshutil

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/voromesh"
	"github.com/spf13/cobra"
)

// Run runs the simulation configured in cfg. Log messages are written to
// the output of cmd and, if the LogFile option is set, to that file.
func Run(cmd *cobra.Command, cfg *viper.Viper) error {
	startTime := time.Now()

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("voromesh: reading 'LogLevel': %v", err)
	}
	log.SetLevel(level)
	var out io.Writer = os.Stdout
	if cmd != nil {
		out = cmd.OutOrStdout()
	}
	if logFile := os.ExpandEnv(cfg.GetString("LogFile")); logFile != "" {
		f, err := os.Create(logFile)
		if err != nil {
			return fmt.Errorf("voromesh: problem creating log file: %v", err)
		}
		defer f.Close()
		out = io.MultiWriter(out, f)
	}
	log.Out = out

	p, err := Problem(cfg)
	if err != nil {
		return err
	}
	outputFile, err := checkOutputFile(cfg.GetString("OutputFile"))
	if err != nil {
		return err
	}
	vars, err := GetStringMapString("OutputVariables", cfg)
	if err != nil {
		return err
	}
	o, err := voromesh.NewOutputter(outputFile, outputVars(vars), nil)
	if err != nil {
		return err
	}
	interval, err := logInterval(cfg)
	if err != nil {
		return err
	}

	var initFuncs []voromesh.DomainManipulator
	if restart := os.ExpandEnv(cfg.GetString("Restart")); restart != "" {
		f, err := os.Open(restart)
		if err != nil {
			return fmt.Errorf("voromesh: problem opening restart file: %v", err)
		}
		defer f.Close()
		initFuncs = []voromesh.DomainManipulator{
			func(s *voromesh.Simulation) error {
				s.Params = p.Params
				s.Boundary = p.Boundary
				return nil
			},
			voromesh.Load(f),
		}
	} else {
		initFuncs = []voromesh.DomainManipulator{p.Setup()}
	}
	initFuncs = append(initFuncs, o.CheckOutputVars())

	cleanupFuncs := []voromesh.DomainManipulator{o.FinalOutput()}
	if checkpoint := os.ExpandEnv(cfg.GetString("Checkpoint")); checkpoint != "" {
		f, err := os.Create(checkpoint)
		if err != nil {
			return fmt.Errorf("voromesh: problem creating checkpoint file: %v", err)
		}
		defer f.Close()
		cleanupFuncs = append(cleanupFuncs, voromesh.Save(f))
	}

	s := &voromesh.Simulation{
		InitFuncs: initFuncs,
		RunFuncs: append(voromesh.MovingMesh(o.Output()),
			voromesh.Finished(),
			voromesh.Log(log, interval),
		),
		CleanupFuncs: cleanupFuncs,
		Log:          log,
	}

	log.WithField("problem", p.Name).Infof("voromesh: %s", p.Params)
	if err = s.Init(); err != nil {
		return fmt.Errorf("voromesh: problem initializing simulation: %w", err)
	}
	if err = s.Run(); err != nil {
		return fmt.Errorf("voromesh: problem running simulation: %w", err)
	}
	if err = s.Cleanup(); err != nil {
		return fmt.Errorf("voromesh: problem shutting down simulation: %w", err)
	}

	totals := s.Totals()
	log.WithFields(logrus.Fields{
		"mass":    totals[voromesh.Mass],
		"energy":  totals[voromesh.Energy],
		"volume":  s.TotalVolume(),
		"files":   len(o.Files),
		"elapsed": time.Since(startTime).Round(time.Millisecond).String(),
	}).Info("voromesh: finished")
	return nil
}
