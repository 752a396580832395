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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/voromesh"
	"github.com/spatialmodel/voromesh/problem"
	"github.com/spf13/cast"
)

// isSet reports whether the option name was given explicitly: as a
// changed flag, in the configuration file, in the environment, or with
// Set.
func isSet(name string, cfg *viper.Viper) bool {
	f := runCmd.Flags().Lookup(name)
	if f != nil && f.Changed {
		return true
	}
	if fileCfg != nil && fileCfg.IsSet(name) {
		return true
	}
	env := "VOROMESH_" + strings.ToUpper(strings.Replace(name, ".", "_", -1))
	if _, ok := os.LookupEnv(env); ok {
		return true
	}
	return f != nil && cast.ToString(cfg.Get(name)) != f.DefValue
}

// Problem returns the configured problem with any explicitly configured
// parameters and boundary settings applied.
func Problem(cfg *viper.Viper) (*problem.Problem, error) {
	name := os.ExpandEnv(cfg.GetString("Problem"))
	var p *problem.Problem
	if strings.HasSuffix(name, ".toml") {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("voromesh: opening problem file: %v", err)
		}
		defer f.Close()
		if p, err = problem.FromTOML(f); err != nil {
			return nil, err
		}
	} else {
		n, err := cast.ToIntE(cfg.Get("Resolution"))
		if err != nil {
			return nil, fmt.Errorf("voromesh: reading 'Resolution': %v", err)
		}
		seed, err := cast.ToInt64E(cfg.Get("Seed"))
		if err != nil {
			return nil, fmt.Errorf("voromesh: reading 'Seed': %v", err)
		}
		if p, err = problem.New(name, n, seed); err != nil {
			return nil, err
		}
	}
	var err error
	if p.Params, err = Params(cfg, p.Params); err != nil {
		return nil, err
	}
	if isSet("Boundary", cfg) {
		t, err := voromesh.ParseBoundaryType(cfg.GetString("Boundary"))
		if err != nil {
			return nil, err
		}
		for k := 0; k < 3; k++ {
			p.Boundary.Lower[k], p.Boundary.Upper[k] = t, t
		}
	}
	if isSet("GhostDepth", cfg) {
		if p.Boundary.Depth, err = cast.ToFloat64E(cfg.Get("GhostDepth")); err != nil {
			return nil, fmt.Errorf("voromesh: reading 'GhostDepth': %v", err)
		}
	}
	return p, nil
}

// Params returns base with the explicitly configured Params.* options
// applied.
func Params(cfg *viper.Viper, base voromesh.Params) (voromesh.Params, error) {
	p := base
	floats := map[string]*float64{
		"Params.Gamma":                 &p.Gamma,
		"Params.CFL":                   &p.CFL,
		"Params.Eta":                   &p.Eta,
		"Params.FinalTime":             &p.FinalTime,
		"Params.OutputInterval":        &p.OutputInterval,
		"Params.InitialTimestepFactor": &p.InitialTimestepFactor,
		"Params.MaxDtChange":           &p.MaxDtChange,
	}
	ints := map[string]*int{
		"Params.MaxIterations":   &p.MaxIterations,
		"Params.OutputEvery":     &p.OutputEvery,
		"Params.RelaxIterations": &p.RelaxIterations,
	}
	bools := map[string]*bool{
		"Params.Regularize": &p.Regularize,
		"Params.Limiter":    &p.Limiter,
		"Params.Predictor":  &p.Predictor,
	}
	strs := map[string]*string{
		"Params.Reconstruction": &p.Reconstruction,
		"Params.Riemann":        &p.Riemann,
	}
	var err error
	for name, v := range floats {
		if isSet(name, cfg) {
			if *v, err = cast.ToFloat64E(cfg.Get(name)); err != nil {
				return p, fmt.Errorf("voromesh: reading '%s': %v", name, err)
			}
		}
	}
	for name, v := range ints {
		if isSet(name, cfg) {
			if *v, err = cast.ToIntE(cfg.Get(name)); err != nil {
				return p, fmt.Errorf("voromesh: reading '%s': %v", name, err)
			}
		}
	}
	for name, v := range bools {
		if isSet(name, cfg) {
			if *v, err = cast.ToBoolE(cfg.Get(name)); err != nil {
				return p, fmt.Errorf("voromesh: reading '%s': %v", name, err)
			}
		}
	}
	for name, v := range strs {
		if isSet(name, cfg) {
			*v = strings.ToLower(os.ExpandEnv(cast.ToString(cfg.Get(name))))
		}
	}
	return p, p.Validate()
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.nc")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("voromesh: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(v) == "" {
			return o, nil
		}
		if err := json.NewDecoder(bytes.NewBufferString(v)).Decode(&o); err != nil {
			return nil, fmt.Errorf("voromesh: reading '%s': %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("voromesh: invalid type for variable %s: %#v", varName, i)
	}
}

// outputVars removes end lines and expands environment variables in the
// output variables.
func outputVars(vars map[string]string) map[string]string {
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o
}

// logInterval parses the LogInterval option.
func logInterval(cfg *viper.Viper) (time.Duration, error) {
	d, err := cast.ToDurationE(cfg.Get("LogInterval"))
	if err != nil {
		return 0, fmt.Errorf("voromesh: reading 'LogInterval': %v", err)
	}
	return d, nil
}
