package main

import (
	"errors"

	"github.com/soypat/meshfilter"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// xys implements the plotter.XYer interface.
type xys []xy

type xy struct{ X, Y float64 }

func (s xys) Len() int                    { return len(s) }
func (s xys) XY(i int) (float64, float64) { return s[i].X, s[i].Y }

// plotHistory plots collapses and bad face counts against filter attempt.
func plotHistory(path string, history []meshfilter.IterationStats) error {
	var edges, faces, bad xys
	for i, s := range history {
		x := float64(i)
		edges = append(edges, xy{x, float64(s.EdgesCollapsed)})
		faces = append(faces, xy{x, float64(s.FacesCollapsed)})
		if s.Bad >= 0 {
			bad = append(bad, xy{x, float64(s.Bad)})
		}
	}
	if len(edges) == 0 {
		return errors.New("empty filter history")
	}
	p := plot.New()
	p.Title.Text = "Mesh filter history"
	p.X.Label.Text = "attempt"
	p.Y.Label.Text = "count"
	for i, series := range []struct {
		name string
		data xys
	}{
		{"edges collapsed", edges},
		{"faces collapsed", faces},
		{"bad faces", bad},
	} {
		if len(series.data) == 0 {
			continue
		}
		line, err := plotter.NewLine(series.data)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(series.name, line)
	}
	p.Add(plotter.NewGrid())
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
