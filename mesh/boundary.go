package mesh

import (
	"github.com/soypat/meshfilter/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Point classification labels returned by ClassifyPoints. Points on a
// processor patch are labelled with the patch index plus one.
const (
	Interior = -1
	Boundary = 0
)

// ClassifyPoints labels every point as Interior, Boundary when it lies on a
// true boundary patch, or patchIndex+1 when it lies on a processor patch.
// Processor classification takes precedence over true boundaries and the
// lowest processor patch index wins.
func ClassifyPoints(m *Mesh) []int {
	labels := make([]int, len(m.points))
	for i := range labels {
		labels[i] = Interior
	}
	for _, p := range m.patches {
		if p.Kind == Processor {
			continue
		}
		for f := p.Start; f < p.Start+p.Size; f++ {
			for _, v := range m.faces[f] {
				labels[v] = Boundary
			}
		}
	}
	for pi, p := range m.patches {
		if p.Kind != Processor {
			continue
		}
		for f := p.Start; f < p.Start+p.Size; f++ {
			for _, v := range m.faces[f] {
				if labels[v] <= Boundary {
					labels[v] = pi + 1
				}
			}
		}
	}
	return labels
}

// BoundaryEdges flags every edge used by at least one boundary face.
func BoundaryEdges(m *Mesh) []bool {
	flags := make([]bool, len(m.edges))
	for f := len(m.neighbour); f < len(m.faces); f++ {
		for _, e := range m.faceEdges[f] {
			flags[e] = true
		}
	}
	return flags
}

// FeatureRanks counts, for every point, the number of distinct directions
// among the normals of the true boundary faces using the point. Normals
// whose cosine exceeds featureCos are treated as the same direction. Interior
// points rank 0, points on flat boundary rank 1, points on feature edges
// rank 2 and corners rank 3 or more.
func FeatureRanks(m *Mesh, featureCos float64) []int {
	ranks := make([]int, len(m.points))
	dirs := make([][]r3.Vec, len(m.points))
	for _, p := range m.patches {
		if p.Kind == Processor {
			continue
		}
		for f := p.Start; f < p.Start+p.Size; f++ {
			n := d3.SafeUnit(m.faceAreas[f])
			if n == (r3.Vec{}) {
				continue
			}
		outer:
			for _, v := range m.faces[f] {
				for _, d := range dirs[v] {
					if r3.Dot(d, n) > featureCos {
						continue outer
					}
				}
				dirs[v] = append(dirs[v], n)
			}
		}
	}
	for i, d := range dirs {
		ranks[i] = len(d)
	}
	return ranks
}
