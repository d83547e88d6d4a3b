package meshfilter

import (
	"github.com/sirupsen/logrus"
	"github.com/soypat/meshfilter/mesh"
	"github.com/soypat/meshfilter/remap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// thresholds are the local collapse controls of the working mesh.
type thresholds struct {
	minEdgeLen []float64 // per edge
	faceFactor []float64 // per face
}

func seedThresholds(m *mesh.Mesh, cfg Config) thresholds {
	t := thresholds{
		minEdgeLen: make([]float64, m.NEdges()),
		faceFactor: make([]float64, m.NFaces()),
	}
	floats.AddConst(cfg.MinLen, t.minEdgeLen)
	floats.AddConst(cfg.InitialFaceLengthFactor, t.faceFactor)
	return t
}

// relax scales down the threshold of every edge and face of m using a
// flagged point. It returns the number of edges and faces relaxed.
func (t *thresholds) relax(m *mesh.Mesh, errorPoint []bool, edgeFactor, faceFactor float64) (nEdges, nFaces int) {
	for e, edge := range m.Edges() {
		if errorPoint[edge[0]] || errorPoint[edge[1]] {
			t.minEdgeLen[e] *= edgeFactor
			nEdges++
		}
	}
	for f, face := range m.Faces() {
		for _, p := range face {
			if errorPoint[p] {
				t.faceFactor[f] *= faceFactor
				nFaces++
				break
			}
		}
	}
	return nEdges, nFaces
}

// remap carries the thresholds of from onto to.
func (t thresholds) remap(from *mesh.Mesh, mp *mesh.Map, to *mesh.Mesh) (thresholds, error) {
	edges, err := remap.EdgeField(from, t.minEdgeLen, mp, to)
	if err != nil {
		return thresholds{}, err
	}
	faces, err := remap.FaceField(t.faceFactor, mp, to.NFaces())
	if err != nil {
		return thresholds{}, err
	}
	return thresholds{minEdgeLen: edges, faceFactor: faces}, nil
}

func logFieldStats(log logrus.FieldLogger, name string, values []float64) {
	if len(values) == 0 {
		return
	}
	log.WithFields(logrus.Fields{
		"field": name,
		"min":   floats.Min(values),
		"mean":  stat.Mean(values, nil),
		"max":   floats.Max(values),
	}).Debug("field statistics")
}
