// Command meshfilter generates a block mesh, filters it and reports the
// result. It writes the boundary surface as STL, a PNG preview and a plot of
// the filter history on request.
package main

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"github.com/soypat/meshfilter"
	"github.com/soypat/meshfilter/helpers/meshgen"
	"github.com/soypat/meshfilter/internal/d3"
	"github.com/soypat/meshfilter/mesh"
	"github.com/soypat/meshfilter/quality"
	"github.com/soypat/meshfilter/remap"
	"github.com/soypat/meshfilter/render"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MESHFILTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "meshfilter",
		Short: "Collapse short edges and small faces of a generated block mesh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
		SilenceUsage: true,
	}
	flags := root.Flags()
	flags.String("config", "", "TOML filter configuration")
	flags.String("log-level", "info", "logging level")
	flags.IntSlice("div", []int{4, 4, 4}, "block divisions along x,y,z")
	flags.Float64Slice("size", []float64{1, 1, 1}, "block size along x,y,z")
	flags.Bool("tet", false, "split hexahedra into tetrahedra")
	flags.Float64("jitter", 0.08, "interior node displacement as a fraction of node spacing, below 1/12 for tetrahedra")
	flags.Int64("seed", 1, "jitter seed")
	flags.StringSlice("processor", nil, "sides generated as processor patches (xmin, ..., zmax)")
	flags.Float64("short-edge", 0, "filter a single hexahedron with one edge of this length instead of a block")
	flags.Float64("min-len", 0, "override minLen")
	flags.Int("max-iterations", 0, "override maxIterations")
	flags.Bool("edges-only", false, "only collapse edges")
	flags.Int("prior-bad", -1, "tolerated bad faces, -1 uses the input mesh count")
	flags.String("stl", "", "write the filtered boundary surface to this STL file")
	flags.String("png", "", "write a preview of the filtered boundary surface to this PNG file")
	flags.String("plot", "", "plot the filter history to this file")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	root.AddCommand(newDefaultsCmd())
	return root
}

func newDefaultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the default configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(meshfilter.DefaultConfig())
		},
	}
}

func loadConfig(v *viper.Viper) (meshfilter.Config, error) {
	cfg := meshfilter.DefaultConfig()
	if path := v.GetString("config"); path != "" {
		fp, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer fp.Close()
		if cfg, err = meshfilter.LoadConfig(fp); err != nil {
			return cfg, err
		}
	}
	if v.IsSet("min-len") {
		cfg.MinLen = v.GetFloat64("min-len")
	}
	if v.IsSet("max-iterations") {
		cfg.MaxIterations = v.GetInt("max-iterations")
	}
	return cfg, cfg.Validate()
}

func inputMesh(v *viper.Viper) (*mesh.Mesh, error) {
	if eps := v.GetFloat64("short-edge"); eps > 0 {
		return meshgen.ShortEdgeCube(eps)
	}
	div := v.GetIntSlice("div")
	size, err := floatSlice(v, "size")
	if err != nil {
		return nil, err
	}
	if len(div) != 3 || len(size) != 3 {
		return nil, fmt.Errorf("div and size need three values, got %v and %v", div, size)
	}
	b := meshgen.Block{
		Bounds:     r3.Box{Max: r3.Vec{X: size[0], Y: size[1], Z: size[2]}},
		Div:        [3]int{div[0], div[1], div[2]},
		Tetrahedra: v.GetBool("tet"),
		Jitter:     v.GetFloat64("jitter"),
		Seed:       v.GetInt64("seed"),
	}
	for _, name := range v.GetStringSlice("processor") {
		side, err := meshgen.ParseSide(name)
		if err != nil {
			return nil, err
		}
		b.Processor = append(b.Processor, side)
	}
	return b.Mesh()
}

// floatSlice reads a float list from a flag or a comma separated variable.
// Viper hands slice flags it does not know as their bracketed string form.
func floatSlice(v *viper.Viper, key string) ([]float64, error) {
	switch val := v.Get(key).(type) {
	case []float64:
		return val, nil
	case string:
		var out []float64
		for _, s := range strings.Split(strings.Trim(val, "[]"), ",") {
			var f float64
			if _, err := fmt.Sscan(strings.TrimSpace(s), &f); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out = append(out, f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: unexpected value %v", key, val)
	}
}

func badFaces(m *mesh.Mesh, cfg meshfilter.Config) int {
	return quality.Evaluate(m, cfg.MeshQuality).Len()
}

// volumeChange returns the relative change of every cell volume.
func volumeChange(before, after []float64) []float64 {
	change := make([]float64, len(after))
	for c, vol := range after {
		change[c] = math.Abs(vol-before[c]) / (math.Abs(before[c]) + d3.VSmall)
	}
	return change
}

func run(v *viper.Viper) error {
	log := logrus.New()
	level, err := logrus.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return err
	}
	log.SetLevel(level)

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	m, err := inputMesh(v)
	if err != nil {
		return err
	}
	prior := v.GetInt("prior-bad")
	if prior < 0 {
		prior = 0
		if cfg.ControlMeshQuality {
			prior = badFaces(m, cfg)
		}
	}
	log.WithFields(logrus.Fields{
		"points": m.NPoints(), "faces": m.NFaces(), "cells": m.NCells(), "bad": prior,
	}).Info("input mesh")

	f, err := meshfilter.New(m, cfg, meshfilter.WithLogger(log))
	if err != nil {
		return err
	}
	if n, err := f.FilterIndirectPatchFaces(); err != nil {
		return err
	} else if n > 0 {
		log.WithField("faces", n).Info("collapsed indirect patch faces")
	}
	filter := f.Filter
	if v.GetBool("edges-only") {
		filter = f.FilterEdges
	}
	bad, err := filter(prior)
	if err != nil {
		return err
	}
	out := f.FilteredMesh()
	if err := out.CheckTopology(); err != nil {
		return err
	}
	vols, err := remap.CellField(m, m.CellVolumes(), out)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"points": out.NPoints(), "faces": out.NFaces(), "cells": out.NCells(), "bad": bad,
		"meanVolumeChange": stat.Mean(volumeChange(vols, out.CellVolumes()), nil),
	}).Info("filtered mesh")

	if path := v.GetString("stl"); path != "" {
		if err := render.CreateSTL(path, render.NewSurface(out)); err != nil {
			return err
		}
	}
	if path := v.GetString("png"); path != "" {
		if err := render.SavePNG(path, render.Surface(out), render.DefaultView()); err != nil {
			return err
		}
	}
	if path := v.GetString("plot"); path != "" {
		if err := plotHistory(path, f.History()); err != nil {
			return err
		}
	}
	return nil
}
