package collapse

import (
	"fmt"
	"math"
	"sort"

	"github.com/soypat/meshfilter/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// EdgeParams configures an edge collapse pass.
type EdgeParams struct {
	// MinEdgeLen holds the collapse threshold of every edge. Edges shorter
	// than their threshold are collapsed. Non-positive values disable.
	MinEdgeLen []float64
	// MaxCos merges points with exactly two edges into the far end of their
	// shorter edge when the absolute cosine between the edges exceeds it.
	// Values of 1 or above disable.
	MaxCos float64
	// Excluded points never take part in a collapse. May be nil.
	Excluded []bool
}

type edgeCandidate struct {
	length float64
	edge   int
	// point is the two-edge point merged away or -1 for short edges.
	point int
}

// Edges collapses short edges of m and removes points joining two nearly
// collinear edges. Candidates are processed shortest first.
func Edges(m *mesh.Mesh, params EdgeParams) (*Result, error) {
	if len(params.MinEdgeLen) != m.NEdges() {
		return nil, fmt.Errorf("collapse: %d edge thresholds for %d edges", len(params.MinEdgeLen), m.NEdges())
	}
	if params.Excluded != nil && len(params.Excluded) != m.NPoints() {
		return nil, fmt.Errorf("collapse: %d exclusion flags for %d points", len(params.Excluded), m.NPoints())
	}
	cands := edgeCandidates(m, params)
	p := newPlanner(m, params.Excluded)
	bEdges := mesh.BoundaryEdges(m)
	edges := m.Edges()
	pts := m.Points()
	for _, c := range cands {
		e := edges[c.edge]
		g := mergeGroup{points: []int{e[0], e[1]}, master: -1}
		if c.point >= 0 {
			g.master = e.Other(c.point)
		} else {
			g.pos = r3.Scale(0.5, r3.Add(pts[e[0]], pts[e[1]]))
		}
		p.tryMerge([]mergeGroup{g}, bEdges[c.edge])
	}
	return p.commit()
}

func edgeCandidates(m *mesh.Mesh, params EdgeParams) []edgeCandidate {
	var cands []edgeCandidate
	for e, threshold := range params.MinEdgeLen {
		if threshold <= 0 {
			continue
		}
		if l := m.EdgeLength(e); l < threshold {
			cands = append(cands, edgeCandidate{length: l, edge: e, point: -1})
		}
	}
	if params.MaxCos < 1 {
		pts := m.Points()
		edges := m.Edges()
		for p, pe := range m.PointEdges() {
			if len(pe) != 2 {
				continue
			}
			e0, e1 := edges[pe[0]], edges[pe[1]]
			d0 := r3.Sub(pts[e0.Other(p)], pts[p])
			d1 := r3.Sub(pts[e1.Other(p)], pts[p])
			l0, l1 := r3.Norm(d0), r3.Norm(d1)
			if l0 == 0 || l1 == 0 {
				continue
			}
			if math.Abs(r3.Dot(d0, d1))/(l0*l1) <= params.MaxCos {
				continue
			}
			short, l := pe[0], l0
			if l1 < l0 || (l1 == l0 && pe[1] < pe[0]) {
				short, l = pe[1], l1
			}
			cands = append(cands, edgeCandidate{length: l, edge: short, point: p})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.length != b.length {
			return a.length < b.length
		}
		if a.edge != b.edge {
			return a.edge < b.edge
		}
		return a.point < b.point
	})
	return cands
}
