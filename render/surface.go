package render

import (
	"io"

	"github.com/soypat/meshfilter/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// SurfaceRenderer streams the boundary faces of a mesh as triangles. Faces
// with more than three points are split into a fan about the face centre.
type SurfaceRenderer struct {
	m       *mesh.Mesh
	faces   []int
	next    int
	pending triangleBuffer
	scratch []r3.Triangle
}

// NewSurface returns a renderer of the faces of the given patches of m. With
// no patches every patch except processor patches is rendered.
func NewSurface(m *mesh.Mesh, patches ...int) *SurfaceRenderer {
	if len(patches) == 0 {
		for i, p := range m.Patches() {
			if p.Kind != mesh.Processor {
				patches = append(patches, i)
			}
		}
	}
	s := &SurfaceRenderer{m: m}
	for _, pi := range patches {
		p := m.Patches()[pi]
		for f := p.Start; f < p.Start+p.Size; f++ {
			s.faces = append(s.faces, f)
		}
	}
	return s
}

// ReadTriangles implements Renderer.
func (s *SurfaceRenderer) ReadTriangles(t []r3.Triangle) (int, error) {
	n := s.pending.Read(t)
	for n < len(t) && s.next < len(s.faces) {
		s.scratch = faceTriangles(s.scratch[:0], s.m, s.faces[s.next])
		s.next++
		s.pending.Write(s.scratch)
		n += s.pending.Read(t[n:])
	}
	if n == 0 && s.pending.Len() == 0 && s.next == len(s.faces) {
		return 0, io.EOF
	}
	return n, nil
}

// Surface returns the triangles of every non processor boundary face of m.
func Surface(m *mesh.Mesh) []r3.Triangle {
	tris, _ := RenderAll(NewSurface(m))
	return tris
}

// faceTriangles appends the triangles of face f to dst.
func faceTriangles(dst []r3.Triangle, m *mesh.Mesh, f int) []r3.Triangle {
	pts := m.Points()
	face := m.Faces()[f]
	if len(face) == 3 {
		return append(dst, r3.Triangle{pts[face[0]], pts[face[1]], pts[face[2]]})
	}
	c := m.FaceCentres()[f]
	for i, p := range face {
		q := face[(i+1)%len(face)]
		dst = append(dst, r3.Triangle{pts[p], pts[q], c})
	}
	return dst
}
