// Package quality evaluates geometric quality criteria on the faces of a
// polyhedral mesh.
package quality

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/soypat/meshfilter/internal/d3"
	"github.com/soypat/meshfilter/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Coeffs bounds the quality of mesh faces. Every check can be switched off
// with the value noted on its field.
type Coeffs struct {
	// MaxNonOrtho is the largest angle in degrees between an internal face
	// normal and the line joining its cell centres. 180 disables.
	MaxNonOrtho float64 `toml:"maxNonOrtho"`
	// MaxBoundarySkewness bounds boundary face skewness. Negative disables.
	MaxBoundarySkewness float64 `toml:"maxBoundarySkewness"`
	// MaxInternalSkewness bounds internal face skewness. Negative disables.
	MaxInternalSkewness float64 `toml:"maxInternalSkewness"`
	// MaxConcave is the largest concave corner angle in degrees. 180 disables.
	MaxConcave float64 `toml:"maxConcave"`
	// MinVol is the smallest face pyramid volume. -1e30 disables.
	MinVol float64 `toml:"minVol"`
	// MinArea is the smallest face area. Negative disables.
	MinArea float64 `toml:"minArea"`
	// MinTwist is the smallest cosine between a face normal and the normals
	// of its fan triangles. Values below -1 disable.
	MinTwist float64 `toml:"minTwist"`
	// MinFaceWeight is the smallest interpolation weight of an internal face.
	// Negative disables.
	MinFaceWeight float64 `toml:"minFaceWeight"`
	// MinVolRatio is the smallest volume ratio of the cells either side of
	// an internal face. Negative disables.
	MinVolRatio float64 `toml:"minVolRatio"`
	// MaxFaceAspectRatio is the largest ratio of longest to shortest face
	// edge. Zero or negative disables.
	MaxFaceAspectRatio float64 `toml:"maxFaceAspectRatio"`
}

// DefaultCoeffs returns the customary snapping quality bounds.
func DefaultCoeffs() Coeffs {
	return Coeffs{
		MaxNonOrtho:         65,
		MaxBoundarySkewness: 20,
		MaxInternalSkewness: 4,
		MaxConcave:          80,
		MinVol:              1e-13,
		MinArea:             -1,
		MinTwist:            0.02,
		MinFaceWeight:       0.02,
		MinVolRatio:         0.01,
		MaxFaceAspectRatio:  -1,
	}
}

var errBadCoeffs = errors.New("bad quality coefficient")

// Validate checks the coefficients are within their meaningful ranges.
func (c Coeffs) Validate() error {
	switch {
	case !(c.MaxNonOrtho > 0 && c.MaxNonOrtho <= 180):
		return fmt.Errorf("%w: maxNonOrtho %g outside (0,180]", errBadCoeffs, c.MaxNonOrtho)
	case !(c.MaxConcave > 0 && c.MaxConcave <= 180):
		return fmt.Errorf("%w: maxConcave %g outside (0,180]", errBadCoeffs, c.MaxConcave)
	case !(c.MinTwist <= 1):
		return fmt.Errorf("%w: minTwist %g above 1", errBadCoeffs, c.MinTwist)
	case !(c.MinFaceWeight <= 0.5):
		return fmt.Errorf("%w: minFaceWeight %g above 0.5", errBadCoeffs, c.MinFaceWeight)
	case !(c.MinVolRatio <= 1):
		return fmt.Errorf("%w: minVolRatio %g above 1", errBadCoeffs, c.MinVolRatio)
	case math.IsNaN(c.MinVol) || math.IsNaN(c.MinArea) || math.IsNaN(c.MaxFaceAspectRatio) ||
		math.IsNaN(c.MaxBoundarySkewness) || math.IsNaN(c.MaxInternalSkewness):
		return fmt.Errorf("%w: NaN bound", errBadCoeffs)
	}
	return nil
}

// Check identifies one quality criterion.
type Check int

// Quality checks in evaluation order. NumChecks counts them.
const (
	NonOrtho Check = iota
	Skewness
	Concave
	Area
	Pyramid
	Twist
	Weight
	VolRatio
	AspectRatio
	NumChecks
)

var checkNames = [NumChecks]string{
	"nonOrtho", "skewness", "concave", "area", "pyramid",
	"twist", "weight", "volRatio", "aspectRatio",
}

func (c Check) String() string {
	if c < 0 || c >= NumChecks {
		return fmt.Sprintf("Check(%d)", int(c))
	}
	return checkNames[c]
}

// Report lists the faces failing at least one check.
type Report struct {
	// Faces holds the sorted indices of bad faces.
	Faces []int
	// Counts holds the number of faces failing each check. A face failing
	// several checks is counted once per check.
	Counts [NumChecks]int
}

// Len returns the number of bad faces.
func (r *Report) Len() int { return len(r.Faces) }

// ErrorPoints flags every point used by a bad face of m.
func (r *Report) ErrorPoints(m *mesh.Mesh) []bool {
	flags := make([]bool, m.NPoints())
	faces := m.Faces()
	for _, f := range r.Faces {
		for _, p := range faces[f] {
			flags[p] = true
		}
	}
	return flags
}

// Fields returns the non-zero check counts as structured log fields.
func (r *Report) Fields() logrus.Fields {
	fields := logrus.Fields{"bad": r.Len()}
	for c, n := range r.Counts {
		if n > 0 {
			fields[Check(c).String()] = n
		}
	}
	return fields
}

// Evaluate runs every enabled check on m.
func Evaluate(m *mesh.Mesh, c Coeffs) *Report {
	e := evaluator{m: m, c: c, bad: make([]bool, m.NFaces())}
	e.nonOrtho()
	e.skewness()
	e.concave()
	e.area()
	e.pyramids()
	e.twist()
	e.weights()
	e.volRatio()
	e.aspectRatio()
	r := &Report{Counts: e.counts}
	for f, b := range e.bad {
		if b {
			r.Faces = append(r.Faces, f)
		}
	}
	sort.Ints(r.Faces)
	return r
}

type evaluator struct {
	m      *mesh.Mesh
	c      Coeffs
	bad    []bool
	counts [NumChecks]int
}

func (e *evaluator) mark(f int, c Check) {
	e.bad[f] = true
	e.counts[c]++
}

func (e *evaluator) nonOrtho() {
	if e.c.MaxNonOrtho >= 180 {
		return
	}
	m := e.m
	minCos := math.Cos(e.c.MaxNonOrtho * math.Pi / 180)
	cc, sf := m.CellCentres(), m.FaceAreas()
	own, nei := m.Owner(), m.Neighbour()
	for f := range nei {
		d := r3.Sub(cc[nei[f]], cc[own[f]])
		dDotS := r3.Dot(d, sf[f]) / (r3.Norm(d)*r3.Norm(sf[f]) + d3.VSmall)
		if dDotS < minCos {
			e.mark(f, NonOrtho)
		}
	}
}

func (e *evaluator) skewness() {
	m := e.m
	cc, cf, sf := m.CellCentres(), m.FaceCentres(), m.FaceAreas()
	own, nei := m.Owner(), m.Neighbour()
	if e.c.MaxInternalSkewness >= 0 {
		for f := range nei {
			co, cn := cc[own[f]], cc[nei[f]]
			dOwn := math.Abs(r3.Dot(sf[f], r3.Sub(cf[f], co)))
			dNei := math.Abs(r3.Dot(sf[f], r3.Sub(cn, cf[f])))
			sum := dOwn + dNei + d3.VSmall
			intersect := r3.Add(r3.Scale(dNei/sum, co), r3.Scale(dOwn/sum, cn))
			skew := r3.Norm(r3.Sub(cf[f], intersect)) / (r3.Norm(r3.Sub(cn, co)) + d3.VSmall)
			if skew > e.c.MaxInternalSkewness {
				e.mark(f, Skewness)
			}
		}
	}
	if e.c.MaxBoundarySkewness >= 0 {
		for f := len(nei); f < m.NFaces(); f++ {
			cpf := r3.Sub(cf[f], cc[own[f]])
			n := d3.SafeUnit(sf[f])
			d := r3.Scale(r3.Dot(n, cpf), n)
			skew := r3.Norm(r3.Sub(cpf, d)) / (r3.Norm(d) + d3.VSmall)
			if skew > e.c.MaxBoundarySkewness {
				e.mark(f, Skewness)
			}
		}
	}
}

// concave flags faces with a corner that turns against the face normal by
// more than MaxConcave.
func (e *evaluator) concave() {
	if e.c.MaxConcave >= 180 {
		return
	}
	const small = 1e-15
	maxSin := math.Sin(e.c.MaxConcave * math.Pi / 180)
	pts, sf := e.m.Points(), e.m.FaceAreas()
	for fi, f := range e.m.Faces() {
		n := d3.SafeUnit(sf[fi])
		ePrev := r3.Sub(pts[f[0]], pts[f[len(f)-1]])
		magPrev := r3.Norm(ePrev)
		for i := range f {
			e10 := r3.Sub(pts[f[(i+1)%len(f)]], pts[f[i]])
			mag10 := r3.Norm(e10)
			if magPrev > small && mag10 > small {
				edgeNormal := r3.Cross(r3.Scale(1/magPrev, ePrev), r3.Scale(1/mag10, e10))
				magEdgeNormal := r3.Norm(edgeNormal)
				if magEdgeNormal >= maxSin && r3.Dot(edgeNormal, n) < small {
					e.mark(fi, Concave)
					break
				}
			}
			ePrev, magPrev = e10, mag10
		}
	}
}

func (e *evaluator) area() {
	if e.c.MinArea < 0 {
		return
	}
	for f := range e.m.Faces() {
		if e.m.FaceArea(f) < e.c.MinArea {
			e.mark(f, Area)
		}
	}
}

// pyramids flags faces whose pyramid towards either cell centre has a volume
// below MinVol.
func (e *evaluator) pyramids() {
	m := e.m
	cc, cf, sf := m.CellCentres(), m.FaceCentres(), m.FaceAreas()
	own, nei := m.Owner(), m.Neighbour()
	for f := range m.Faces() {
		vol := r3.Dot(sf[f], r3.Sub(cf[f], cc[own[f]])) / 3
		if f < len(nei) {
			vol = math.Min(vol, r3.Dot(sf[f], r3.Sub(cc[nei[f]], cf[f]))/3)
		}
		if vol < e.c.MinVol {
			e.mark(f, Pyramid)
		}
	}
}

func (e *evaluator) twist() {
	if e.c.MinTwist < -1 {
		return
	}
	pts, cf, sf := e.m.Points(), e.m.FaceCentres(), e.m.FaceAreas()
	for fi, f := range e.m.Faces() {
		if len(f) == 3 {
			continue
		}
		n := d3.SafeUnit(sf[fi])
		for i := range f {
			a, b := pts[f[i]], pts[f[(i+1)%len(f)]]
			tri := r3.Cross(r3.Sub(a, cf[fi]), r3.Sub(b, cf[fi]))
			magTri := r3.Norm(tri)
			if magTri > d3.VSmall && r3.Dot(n, tri)/magTri < e.c.MinTwist {
				e.mark(fi, Twist)
				break
			}
		}
	}
}

func (e *evaluator) weights() {
	if e.c.MinFaceWeight < 0 {
		return
	}
	m := e.m
	cc, cf, sf := m.CellCentres(), m.FaceCentres(), m.FaceAreas()
	own, nei := m.Owner(), m.Neighbour()
	for f := range nei {
		dOwn := math.Abs(r3.Dot(sf[f], r3.Sub(cf[f], cc[own[f]])))
		dNei := math.Abs(r3.Dot(sf[f], r3.Sub(cc[nei[f]], cf[f])))
		w := math.Min(dOwn, dNei) / (dOwn + dNei + d3.VSmall)
		if w < e.c.MinFaceWeight {
			e.mark(f, Weight)
		}
	}
}

func (e *evaluator) volRatio() {
	if e.c.MinVolRatio < 0 {
		return
	}
	vols := e.m.CellVolumes()
	own, nei := e.m.Owner(), e.m.Neighbour()
	for f := range nei {
		vo, vn := math.Abs(vols[own[f]]), math.Abs(vols[nei[f]])
		ratio := math.Min(vo, vn) / (math.Max(vo, vn) + d3.VSmall)
		if ratio < e.c.MinVolRatio {
			e.mark(f, VolRatio)
		}
	}
}

func (e *evaluator) aspectRatio() {
	if e.c.MaxFaceAspectRatio <= 0 {
		return
	}
	pts := e.m.Points()
	for fi, f := range e.m.Faces() {
		lmin, lmax := math.Inf(1), 0.0
		for i := range f {
			l := r3.Norm(r3.Sub(pts[f[(i+1)%len(f)]], pts[f[i]]))
			lmin = math.Min(lmin, l)
			lmax = math.Max(lmax, l)
		}
		if lmax > e.c.MaxFaceAspectRatio*lmin {
			e.mark(fi, AspectRatio)
		}
	}
}
