// Package remap carries per entity data from one mesh generation to the next.
package remap

import (
	"fmt"
	"math"

	"github.com/soypat/meshfilter/mesh"
	"gonum.org/v1/gonum/floats"
)

// FaceField maps a per face field of the old mesh onto the nFaces faces of the
// new mesh described by mp. Faces merged into one take the minimum of their
// sources. New faces without a source take the minimum of the whole field.
func FaceField(values []float64, mp *mesh.Map, nFaces int) ([]float64, error) {
	if len(values) != len(mp.ReverseFaceMap) {
		return nil, fmt.Errorf("remap: %d face values for %d old faces", len(values), len(mp.ReverseFaceMap))
	}
	out := make([]float64, nFaces)
	floats.AddConst(math.Inf(1), out)
	for f, n := range mp.ReverseFaceMap {
		if n < 0 {
			continue
		}
		if n >= nFaces {
			return nil, fmt.Errorf("remap: face %d maps to %d beyond %d faces", f, n, nFaces)
		}
		out[n] = math.Min(out[n], values[f])
	}
	fillUnset(out, values)
	return out, nil
}

// EdgeField maps a per edge field of from onto the edges of to using the
// point correspondence of mp. Every edge of from whose end points survive as
// two distinct points of an edge of to contributes to that edge. Edges receiving
// several values keep the minimum and edges receiving none take the minimum
// of the whole field.
func EdgeField(from *mesh.Mesh, values []float64, mp *mesh.Map, to *mesh.Mesh) ([]float64, error) {
	if len(values) != from.NEdges() {
		return nil, fmt.Errorf("remap: %d edge values for %d old edges", len(values), from.NEdges())
	}
	if len(mp.ReversePointMap) != from.NPoints() {
		return nil, fmt.Errorf("remap: point map of %d points for mesh of %d", len(mp.ReversePointMap), from.NPoints())
	}
	rev := mp.ReversePointMap
	out := make([]float64, to.NEdges())
	floats.AddConst(math.Inf(1), out)
	for e, edge := range from.Edges() {
		a, b := rev[edge[0]], rev[edge[1]]
		if a < 0 || b < 0 || a == b {
			continue
		}
		if ne := to.FindEdge(a, b); ne >= 0 {
			out[ne] = math.Min(out[ne], values[e])
		}
	}
	fillUnset(out, values)
	return out, nil
}

func fillUnset(out, values []float64) {
	fallback := 0.0
	if len(values) > 0 {
		fallback = floats.Min(values)
	}
	for i, v := range out {
		if math.IsInf(v, 1) {
			out[i] = fallback
		}
	}
}
