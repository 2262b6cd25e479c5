package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	addRunFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestFlagConfig_OnlyChangedFlags(t *testing.T) {
	cmd := newRunCmd(t, "-n", "42", "-S", "1", "--normalize")
	c := flagConfig(cmd)

	require.NotNil(t, c.Iters)
	assert.Equal(t, 42, *c.Iters)
	require.NotNil(t, c.Retain)
	assert.Equal(t, 1, *c.Retain)
	require.NotNil(t, c.Normalize)
	assert.True(t, *c.Normalize)

	assert.Nil(t, c.Rate)
	assert.Nil(t, c.CentralForce)
	assert.Nil(t, c.Seed)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("n_iters: 7\nrate: 0.5\nretain: 2\n"), 0644))

	cmd := newRunCmd(t, "--rate", "0.25")
	configFile, preset = path, "line"
	t.Cleanup(func() { configFile, preset = "", "" })

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, 7, *cfg.Iters)
	assert.Equal(t, 0.25, *cfg.Rate)
	assert.Equal(t, 2, *cfg.Retain)
	assert.Equal(t, 400.0, *cfg.SqueezeFinalForce)
}

func TestLoadConfig_UnknownPreset(t *testing.T) {
	cmd := newRunCmd(t)
	preset = "nope"
	t.Cleanup(func() { preset = "" })

	_, err := loadConfig(cmd)
	assert.ErrorContains(t, err, "unknown preset")
}

const points = `name,x,y
a,0,0
b,1,0
c,0,1
d,1,1
e,0.5,0.5
f,0.2,0.9
`

func TestRunReduce_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "points.csv")
	require.NoError(t, os.WriteFile(in, []byte(points), 0644))

	cmd := &cobra.Command{Use: "run", Args: cobra.RangeArgs(2, 3), RunE: runReduce}
	addRunFlags(cmd)
	cmd.PersistentFlags().StringVar(&dataDir, "data", ".dimreduce", "")
	t.Cleanup(func() { record, metricsFile = false, "" })

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{
		"2:3", "2", in,
		"-n", "20", "-S", "1",
		"--record", "--data", filepath.Join(dir, "runs"),
		"--metrics-file", filepath.Join(dir, "m.prom"),
	})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "coord1,coord2,,name,x,y", lines[0])
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		require.Len(t, fields, 6)
		for _, f := range fields[:2] {
			v, err := strconv.ParseFloat(f, 64)
			require.NoError(t, err)
			assert.True(t, v >= 0 && v <= 1, "coordinate %v out of range", v)
		}
		assert.Equal(t, "", fields[2])
	}
	assert.True(t, strings.HasSuffix(lines[1], ",,a,0,0"), lines[1])

	assert.Contains(t, stderr.String(), "msg=done")
	assert.Contains(t, stderr.String(), "iterations=60")
	assert.FileExists(t, filepath.Join(dir, "m.prom"))

	entries, err := os.ReadDir(filepath.Join(dir, "runs"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
