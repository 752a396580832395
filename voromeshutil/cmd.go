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

// Package voromeshutil is the command-line interface of voromesh.
package voromeshutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/voromesh"
	"github.com/spatialmodel/voromesh/problem"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// fileCfg holds only the contents of the configuration file.
var fileCfg *viper.Viper

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

var options []option

func init() {
	d := voromesh.DefaultParams()

	// Options are the configuration options available to voromesh.
	options = []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Problem",
			usage: `
              Problem is the name of a built-in problem (` + strings.Join(problem.Names, ", ") + `)
              or the path to a problem file ending in .toml.`,
			shorthand:  "p",
			defaultVal: "kh",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Resolution",
			usage: `
              Resolution is the number of generators along each axis of a
              built-in problem.`,
			shorthand:  "n",
			defaultVal: 64,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Seed",
			usage: `
              Seed seeds the random displacement of generators in built-in
              problems that use one.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path of the snapshot files. The iteration
              number is inserted before the extension, which must be .nc
              or, for two-dimensional problems, .shp.`,
			shorthand:  "o",
			defaultVal: "voromesh.nc",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies derived variables to include in the
              snapshots, as a map of variable names to expressions of the
              snapshot fields, for example
              {"Mach": "sqrt(VelocityX**2+VelocityY**2)/sqrt(1.4*Pressure/Density)"}.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path of a file receiving a copy of the log. If
              empty, messages are only written to the terminal.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of logged messages (debug, info,
              warn, or error).`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogInterval",
			usage: `
              LogInterval is the shortest wall time between logged steps.`,
			defaultVal: "5s",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Checkpoint",
			usage: `
              Checkpoint is the path where the final state is saved for
              restarting. If empty, no checkpoint is saved.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Restart",
			usage: `
              Restart is the path of a checkpoint to continue from instead of
              setting initial conditions. The problem still defines the
              domain.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Boundary",
			usage: `
              Boundary overrides the problem's treatment of every side of the
              domain (reflective, periodic, or outflow).`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "GhostDepth",
			usage: `
              GhostDepth is the initial thickness of the ghost layer. If 0,
              it is 2.5 generator spacings.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.Gamma",
			usage: `
              Params.Gamma is the adiabatic index.`,
			defaultVal: d.Gamma,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.CFL",
			usage: `
              Params.CFL is the Courant number.`,
			defaultVal: d.CFL,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.Regularize",
			usage: `
              Params.Regularize specifies whether generators are steered
              toward their cell centroids.`,
			defaultVal: d.Regularize,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.Eta",
			usage: `
              Params.Eta is the strength of the regularization.`,
			defaultVal: d.Eta,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.FinalTime",
			usage: `
              Params.FinalTime is the simulation time at which the run ends.`,
			defaultVal: d.FinalTime,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.MaxIterations",
			usage: `
              Params.MaxIterations is the maximum number of steps. If 0,
              there is no limit.`,
			defaultVal: d.MaxIterations,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.OutputEvery",
			usage: `
              Params.OutputEvery is the number of steps between snapshots.
              If 0, snapshots are not written by step count.`,
			defaultVal: d.OutputEvery,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.OutputInterval",
			usage: `
              Params.OutputInterval is the simulation time between snapshots.
              If 0, snapshots are not written by simulation time.`,
			defaultVal: d.OutputInterval,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.InitialTimestepFactor",
			usage: `
              Params.InitialTimestepFactor multiplies the first time step.`,
			defaultVal: d.InitialTimestepFactor,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.MaxDtChange",
			usage: `
              Params.MaxDtChange is the largest allowed ratio between
              consecutive time steps. If 0, there is no limit.`,
			defaultVal: d.MaxDtChange,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.Reconstruction",
			usage: `
              Params.Reconstruction is "constant" or "linear".`,
			defaultVal: d.Reconstruction,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.Limiter",
			usage: `
              Params.Limiter specifies whether reconstructed face values are
              kept within the range of neighboring values.`,
			defaultVal: d.Limiter,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.Predictor",
			usage: `
              Params.Predictor specifies whether face values are advanced by
              half a time step before the Riemann problem is solved.`,
			defaultVal: d.Predictor,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.Riemann",
			usage: `
              Params.Riemann is the Riemann solver, "hll" or "hllc".`,
			defaultVal: d.Riemann,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Params.RelaxIterations",
			usage: `
              Params.RelaxIterations is the number of Lloyd iterations
              applied to the generators before the run.`,
			defaultVal: d.RelaxIterations,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("VOROMESH")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(v)
				set.StringP(option.name, option.shorthand, strings.TrimSpace(b.String()), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}

	// Link the commands together.
	// RunE is set here rather than in the runCmd literal to avoid an
	// initialization cycle: Run reaches isSet, which looks up runCmd's flags.
	runCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return Run(cmd, Cfg)
	}
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("voromesh: problem reading configuration file: %v", err)
		}
		fileCfg = viper.New()
		fileCfg.SetConfigFile(cfgpath)
		if err := fileCfg.ReadInConfig(); err != nil {
			return fmt.Errorf("voromesh: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "voromesh",
	Short: "A moving-mesh hydrodynamics solver.",
	Long: `voromesh solves the equations of compressible gas dynamics on a Voronoi
mesh whose generators move with the flow.
Use the subcommands specified below to access the model functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'VOROMESH_var' where 'var' is
the name of the variable to be set, with '.' replaced by '_'.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of voromesh.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("voromesh v%s\n", voromesh.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation.",
	Long: `run sets up the configured problem, advances it to the final time, and
writes snapshots of the state along the way.`,
	DisableAutoGenTag: true,
}
