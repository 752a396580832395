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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spatialmodel/voromesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	var b bytes.Buffer
	Root.SetOutput(&b)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	require.NoError(t, Root.Execute())
	assert.Equal(t, "voromesh v"+voromesh.Version+"\n", b.String())
}

func TestParams(t *testing.T) {
	base := voromesh.DefaultParams()
	base.Gamma = 5. / 3.

	p, err := Params(Cfg, base)
	require.NoError(t, err)
	assert.Equal(t, base, p, "unset options keep the problem's values")

	Cfg.Set("Params.CFL", 0.3)
	Cfg.Set("Params.Riemann", "HLL")
	defer Cfg.Set("Params.CFL", voromesh.DefaultParams().CFL)
	defer Cfg.Set("Params.Riemann", voromesh.DefaultParams().Riemann)
	p, err = Params(Cfg, base)
	require.NoError(t, err)
	assert.Equal(t, 0.3, p.CFL)
	assert.Equal(t, "hll", p.Riemann)
	assert.Equal(t, 5./3., p.Gamma)

	Cfg.Set("Params.CFL", 2.0)
	_, err = Params(Cfg, base)
	assert.Error(t, err)
}

func TestOutputVariables(t *testing.T) {
	Cfg.Set("OutputVariables", `{"Mach": "sqrt(VelocityX**2+VelocityY**2)/sqrt(1.4*Pressure/Density)"}`)
	defer Cfg.Set("OutputVariables", "{}")
	v, err := GetStringMapString("OutputVariables", Cfg)
	require.NoError(t, err)
	assert.Contains(t, v, "Mach")

	Cfg.Set("OutputVariables", map[string]interface{}{"Speed": "abs(VelocityX)"})
	v, err = GetStringMapString("OutputVariables", Cfg)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Speed": "abs(VelocityX)"}, v)

	Cfg.Set("OutputVariables", "{not json")
	_, err = GetStringMapString("OutputVariables", Cfg)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "sod.nc")
	checkpoint := filepath.Join(dir, "sod.ckpt")
	logFile := filepath.Join(dir, "sod.log")
	var b bytes.Buffer
	Root.SetOutput(&b)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"run",
		"--Problem=sod",
		"--Resolution=20",
		"--OutputFile=" + output,
		"--LogFile=" + logFile,
		"--Checkpoint=" + checkpoint,
		"--Params.MaxIterations=3",
		"--Params.OutputEvery=2",
	})
	require.NoError(t, Root.Execute())

	for _, f := range []string{"sod_000000.nc", "sod_000002.nc", "sod_000003.nc", "sod.ckpt"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, f)
	}
	log, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(log), "voromesh: finished"))
	assert.True(t, strings.Contains(b.String(), "voromesh: finished"))

	// Continue from the checkpoint.
	restarted := filepath.Join(dir, "restart.nc")
	Root.SetArgs([]string{"run",
		"--Problem=sod",
		"--Resolution=20",
		"--OutputFile=" + restarted,
		"--LogFile=",
		"--Checkpoint=",
		"--Restart=" + checkpoint,
		"--Params.MaxIterations=5",
		"--Params.OutputEvery=0",
	})
	require.NoError(t, Root.Execute())
	_, err = os.Stat(filepath.Join(dir, "restart_000005.nc"))
	assert.NoError(t, err)
}
