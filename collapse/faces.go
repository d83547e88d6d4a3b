package collapse

import (
	"fmt"
	"math"
	"sort"

	"github.com/soypat/meshfilter/internal/d3"
	"github.com/soypat/meshfilter/mesh"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// FaceCoeffs controls how small faces are collapsed.
type FaceCoeffs struct {
	// MaxCollapseFaceToPointSideLengthCoeff sets the largest face extent,
	// relative to the target face size, that is collapsed to a point rather
	// than an edge.
	MaxCollapseFaceToPointSideLengthCoeff float64 `toml:"maxCollapseFaceToPointSideLengthCoeff"`
	// AllowEarlyCollapseToPoint collapses faces with an extent below
	// AllowEarlyCollapseCoeff times the point collapse length to a point
	// regardless of their area.
	AllowEarlyCollapseToPoint bool    `toml:"allowEarlyCollapseToPoint"`
	AllowEarlyCollapseCoeff   float64 `toml:"allowEarlyCollapseCoeff"`
	// GuardFraction is the smallest fraction of the face extent each end of
	// an edge collapse must lie from the face centre. Faces failing it are
	// collapsed to a point instead.
	GuardFraction float64 `toml:"guardFraction"`
}

// DefaultFaceCoeffs returns the usual face collapse coefficients.
func DefaultFaceCoeffs() FaceCoeffs {
	return FaceCoeffs{
		MaxCollapseFaceToPointSideLengthCoeff: 0.3,
		AllowEarlyCollapseToPoint:             true,
		AllowEarlyCollapseCoeff:               0.2,
		GuardFraction:                         0.1,
	}
}

// FaceParams configures a face collapse pass.
type FaceParams struct {
	// FilterFactor scales the target size of every face. Non-positive
	// values disable collapsing the face.
	FilterFactor []float64
	// Excluded points never take part in a collapse. May be nil.
	Excluded []bool
	Coeffs   FaceCoeffs
}

type collapseKind int

const (
	noCollapse collapseKind = iota
	toPoint
	toEdge
)

type faceCandidate struct {
	area float64
	face int
	kind collapseKind
	// ends are the edge end positions for edge collapses.
	ends [2]r3.Vec
	// split assigns each face point to ends[0] or ends[1].
	split []int
}

// Faces collapses faces that are small compared to the cells they bound.
// Candidates are processed smallest area first.
func Faces(m *mesh.Mesh, params FaceParams) (*Result, error) {
	if len(params.FilterFactor) != m.NFaces() {
		return nil, fmt.Errorf("collapse: %d face factors for %d faces", len(params.FilterFactor), m.NFaces())
	}
	if params.Excluded != nil && len(params.Excluded) != m.NPoints() {
		return nil, fmt.Errorf("collapse: %d exclusion flags for %d points", len(params.Excluded), m.NPoints())
	}
	var cands []faceCandidate
	for f, factor := range params.FilterFactor {
		if factor <= 0 {
			continue
		}
		if c := classifyFace(m, f, factor, params.Coeffs); c.kind != noCollapse {
			cands = append(cands, c)
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].area != cands[j].area {
			return cands[i].area < cands[j].area
		}
		return cands[i].face < cands[j].face
	})

	p := newPlanner(m, params.Excluded)
	for _, c := range cands {
		p.tryMerge(faceGroups(m, c), !m.IsInternalFace(c.face))
	}
	return p.commit()
}

// Zone collapses every face in faces to a point regardless of its size.
func Zone(m *mesh.Mesh, faces []int, excluded []bool) (*Result, error) {
	if excluded != nil && len(excluded) != m.NPoints() {
		return nil, fmt.Errorf("collapse: %d exclusion flags for %d points", len(excluded), m.NPoints())
	}
	p := newPlanner(m, excluded)
	for _, f := range faces {
		if f < 0 || f >= m.NFaces() {
			return nil, fmt.Errorf("collapse: zone face %d out of range", f)
		}
		c := faceCandidate{face: f, kind: toPoint}
		p.tryMerge(faceGroups(m, c), !m.IsInternalFace(f))
	}
	return p.commit()
}

func faceGroups(m *mesh.Mesh, c faceCandidate) []mergeGroup {
	f := m.Faces()[c.face]
	if c.kind == toPoint {
		return []mergeGroup{{
			points: append([]int(nil), f...),
			pos:    m.FaceCentres()[c.face],
			master: -1,
		}}
	}
	groups := []mergeGroup{{pos: c.ends[0], master: -1}, {pos: c.ends[1], master: -1}}
	for i, p := range f {
		g := &groups[c.split[i]]
		g.points = append(g.points, p)
	}
	return groups
}

// classifyFace decides whether face f should collapse and how.
func classifyFace(m *mesh.Mesh, f int, factor float64, coeffs FaceCoeffs) faceCandidate {
	c := faceCandidate{face: f, area: m.FaceArea(f)}
	vols := m.CellVolumes()
	minVol := math.Abs(vols[m.Owner()[f]])
	if nei := m.FaceNeighbour(f); nei >= 0 {
		minVol = math.Min(minVol, math.Abs(vols[nei]))
	}
	target := factor * math.Cbrt(minVol)
	pointLen := target * coeffs.MaxCollapseFaceToPointSideLengthCoeff

	pts := m.FacePoints(nil, f)
	centre := m.FaceCentres()[f]
	axis, aspect := principalAxis(pts, centre)
	d := make([]float64, len(pts))
	dmin, dmax := 0.0, 0.0
	for i, p := range pts {
		d[i] = r3.Dot(r3.Sub(p, centre), axis)
		dmin = math.Min(dmin, d[i])
		dmax = math.Max(dmax, d[i])
	}
	extent := dmax - dmin

	switch {
	case coeffs.AllowEarlyCollapseToPoint && extent < pointLen*coeffs.AllowEarlyCollapseCoeff:
		c.kind = toPoint
	case c.area < aspect*target*target:
		c.kind = toEdge
		guard := coeffs.GuardFraction * extent
		if extent <= 0 || extent < pointLen || -dmin <= guard || dmax <= guard {
			c.kind = toPoint
		}
	default:
		return c
	}
	if c.kind == toEdge {
		c.ends = [2]r3.Vec{
			r3.Add(centre, r3.Scale(dmin, axis)),
			r3.Add(centre, r3.Scale(dmax, axis)),
		}
		c.split = make([]int, len(pts))
		for i := range d {
			if d[i] > 0 {
				c.split[i] = 1
			}
		}
	}
	return c
}

// principalAxis returns the direction of largest spread of the face loop pts
// about centre and the aspect ratio sqrt(l3/l2) of the two largest
// eigenvalues of their second moment. When the spread is isotropic the axis
// follows the longest edge and the aspect ratio is 1.
func principalAxis(pts []r3.Vec, centre r3.Vec) (axis r3.Vec, aspect float64) {
	var xx, xy, xz, yy, yz, zz float64
	for _, p := range pts {
		v := r3.Sub(p, centre)
		xx += v.X * v.X
		xy += v.X * v.Y
		xz += v.X * v.Z
		yy += v.Y * v.Y
		yz += v.Y * v.Z
		zz += v.Z * v.Z
	}
	sym := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})
	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return r3.Vec{}, 1
	}
	vals := eig.Values(nil) // ascending
	l2, l3 := vals[1], vals[2]
	if l3 <= d3.VSmall {
		return r3.Vec{}, 1
	}
	if l2 <= d3.VSmall {
		aspect = math.Inf(1)
	} else {
		aspect = math.Sqrt(l3 / l2)
	}
	if l3-l2 <= 1e-6*l3 {
		return longestEdge(pts), 1
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	axis = r3.Vec{X: vecs.At(0, 2), Y: vecs.At(1, 2), Z: vecs.At(2, 2)}
	return axis, aspect
}

func longestEdge(pts []r3.Vec) r3.Vec {
	var best r3.Vec
	bestLen := 0.0
	for i, p := range pts {
		e := r3.Sub(pts[(i+1)%len(pts)], p)
		if l := r3.Norm(e); l > bestLen {
			best, bestLen = r3.Scale(1/l, e), l
		}
	}
	return best
}
