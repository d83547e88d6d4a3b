package mesh

import (
	"math"

	"github.com/soypat/meshfilter/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

func (m *Mesh) calcGeometry() {
	m.faceCentres = make([]r3.Vec, len(m.faces))
	m.faceAreas = make([]r3.Vec, len(m.faces))
	var buf []r3.Vec
	for fi := range m.faces {
		buf = m.FacePoints(buf[:0], fi)
		m.faceCentres[fi], m.faceAreas[fi] = d3.Polygon(buf)
	}

	// Cell centres and volumes by pyramid decomposition about an estimated
	// centre taken as the mean of the face centres.
	nc := m.nCells
	est := make([]r3.Vec, nc)
	for c, faces := range m.cellFaces {
		for _, fi := range faces {
			est[c] = r3.Add(est[c], m.faceCentres[fi])
		}
		if len(faces) > 0 {
			est[c] = r3.Scale(1/float64(len(faces)), est[c])
		}
	}
	m.cellCentres = make([]r3.Vec, nc)
	m.cellVolumes = make([]float64, nc)
	weight := make([]float64, nc)
	addPyramid := func(c int, pyr3Vol float64, cf r3.Vec) {
		w := math.Max(pyr3Vol, d3.VSmall)
		pc := r3.Add(r3.Scale(0.75, cf), r3.Scale(0.25, est[c]))
		m.cellCentres[c] = r3.Add(m.cellCentres[c], r3.Scale(w, pc))
		weight[c] += w
		m.cellVolumes[c] += pyr3Vol
	}
	for fi, own := range m.owner {
		cf := m.faceCentres[fi]
		addPyramid(own, r3.Dot(m.faceAreas[fi], r3.Sub(cf, est[own])), cf)
	}
	for fi, nei := range m.neighbour {
		cf := m.faceCentres[fi]
		addPyramid(nei, r3.Dot(m.faceAreas[fi], r3.Sub(est[nei], cf)), cf)
	}
	for c := range m.cellCentres {
		if weight[c] > d3.VSmall {
			m.cellCentres[c] = r3.Scale(1/weight[c], m.cellCentres[c])
		} else {
			m.cellCentres[c] = est[c]
		}
		m.cellVolumes[c] /= 3
	}
}

// FacePoints appends the coordinates of the vertices of face f to dst.
func (m *Mesh) FacePoints(dst []r3.Vec, f int) []r3.Vec {
	for _, p := range m.faces[f] {
		dst = append(dst, m.points[p])
	}
	return dst
}

// FaceCentres returns the area weighted centre of every face.
func (m *Mesh) FaceCentres() []r3.Vec { return m.faceCentres }

// FaceAreas returns the area vector of every face. Its magnitude is the face
// area and it points out of the owner cell.
func (m *Mesh) FaceAreas() []r3.Vec { return m.faceAreas }

// CellCentres returns the volume weighted centre of every cell.
func (m *Mesh) CellCentres() []r3.Vec { return m.cellCentres }

// CellVolumes returns the signed volume of every cell.
func (m *Mesh) CellVolumes() []float64 { return m.cellVolumes }

// FaceArea returns the scalar area of face f.
func (m *Mesh) FaceArea(f int) float64 { return r3.Norm(m.faceAreas[f]) }

// Bounds returns the bounding box of the mesh points.
func (m *Mesh) Bounds() r3.Box {
	return r3.Box(d3.BoundingBox(m.points))
}

func edgeLength(pts []r3.Vec, e Edge) float64 {
	return r3.Norm(r3.Sub(pts[e[1]], pts[e[0]]))
}
