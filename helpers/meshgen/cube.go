package meshgen

import (
	"github.com/soypat/meshfilter/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// ShortEdgeCube returns a single unit hexahedron whose top front edge is
// split by an extra point at distance eps from the corner (0,0,1), giving the
// cell one edge of length eps. The split point has index 8 and the corner
// index 4. The top and front faces are pentagons.
func ShortEdgeCube(eps float64) (*mesh.Mesh, error) {
	points := []r3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
		{X: eps, Y: 0, Z: 1},
	}
	faces := []mesh.Face{
		{0, 3, 2, 1},    // zmin
		{4, 8, 5, 6, 7}, // zmax
		{0, 1, 5, 8, 4}, // ymin
		{3, 7, 6, 2},    // ymax
		{0, 4, 7, 3},    // xmin
		{1, 2, 6, 5},    // xmax
	}
	patches := []mesh.Patch{{Name: "walls", Kind: mesh.Wall, Size: len(faces)}}
	return mesh.New(points, faces, make([]int, len(faces)), nil, patches, nil)
}
