package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/meshfilter"
	"github.com/soypat/meshfilter/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunShortEdge(t *testing.T) {
	dir := t.TempDir()
	stl := filepath.Join(dir, "out.stl")
	png := filepath.Join(dir, "out.png")
	plt := filepath.Join(dir, "history.png")
	cmd := newRootCmd()
	cmd.SetArgs([]string{
		"--short-edge", "0.01", "--min-len", "0.1", "--log-level", "error",
		"--stl", stl, "--png", png, "--plot", plt,
	})
	require.NoError(t, cmd.Execute())

	fp, err := os.Open(stl)
	require.NoError(t, err)
	defer fp.Close()
	tris, err := render.ReadSTL(fp)
	require.NoError(t, err)
	assert.NotEmpty(t, tris)
	for _, path := range []string{png, plt} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestRunBadConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--min-len=-1"})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorIs(t, cmd.Execute(), meshfilter.ErrInvalidConfig)

	cmd = newRootCmd()
	cmd.SetArgs([]string{"--div", "1,2"})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestDefaultsRoundTrip(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"defaults"})
	require.NoError(t, cmd.Execute())

	cfg, err := meshfilter.LoadConfig(&out)
	require.NoError(t, err)
	assert.Equal(t, meshfilter.DefaultConfig(), cfg)
}

func TestPlotHistoryEmpty(t *testing.T) {
	assert.Error(t, plotHistory(filepath.Join(t.TempDir(), "h.png"), nil))
}

func TestVolumeChange(t *testing.T) {
	change := volumeChange([]float64{2, 0, -1}, []float64{1, 0.5, -1})
	require.Len(t, change, 3)
	assert.InDelta(t, 0.5, change[0], 1e-12)
	assert.False(t, math.IsInf(change[1], 0) || math.IsNaN(change[1]), "zero volume source gives %v", change[1])
	assert.Zero(t, change[2])
}

func TestRunTetrahedra(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--tet", "--div", "2,2,2", "--min-len", "0.2", "--log-level", "error"})
	require.NoError(t, cmd.Execute())
}
