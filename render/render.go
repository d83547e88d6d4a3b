// Package render turns the boundary of a polyhedral mesh into triangles and
// writes them out as STL files or PNG previews.
package render

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Renderer streams triangles. ReadTriangles fills t and returns the number
// of triangles written. It returns io.EOF once every triangle has been read.
type Renderer interface {
	ReadTriangles(t []r3.Triangle) (int, error)
}
