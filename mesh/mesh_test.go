package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitCube(t *testing.T) *Mesh {
	t.Helper()
	points := []r3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
	}
	faces := []Face{
		{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4},
		{3, 7, 6, 2}, {0, 4, 7, 3}, {1, 2, 6, 5},
	}
	m, err := New(points, faces, make([]int, 6), nil, []Patch{{Name: "walls", Kind: Wall, Start: 0, Size: 6}}, nil)
	require.NoError(t, err)
	return m
}

// hexCell returns the faces of the hexahedron with corners c ordered as
// (000, 100, 110, 010, 001, 101, 111, 011).
func hexCell(c [8]int) Cell {
	return Cell{
		{c[0], c[3], c[2], c[1]}, {c[4], c[5], c[6], c[7]}, {c[0], c[1], c[5], c[4]},
		{c[3], c[7], c[6], c[2]}, {c[0], c[4], c[7], c[3]}, {c[1], c[2], c[6], c[5]},
	}
}

// twoCubeCells returns the points and cells of two unit cubes side by side
// along x.
func twoCubeCells() ([]r3.Vec, []Cell) {
	var points []r3.Vec
	id := func(i, j, k int) int { return i + 3*j + 6*k }
	for k := 0; k < 2; k++ {
		for j := 0; j < 2; j++ {
			for i := 0; i < 3; i++ {
				points = append(points, r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)})
			}
		}
	}
	var cells []Cell
	for i := 0; i < 2; i++ {
		cells = append(cells, hexCell([8]int{
			id(i, 0, 0), id(i+1, 0, 0), id(i+1, 1, 0), id(i, 1, 0),
			id(i, 0, 1), id(i+1, 0, 1), id(i+1, 1, 1), id(i, 1, 1),
		}))
	}
	return points, cells
}

// twoCubes returns two unit cubes side by side along x. Faces on x=2 are put
// on a processor patch when proc is set.
func twoCubes(t *testing.T, proc bool) *Mesh {
	t.Helper()
	points, cells := twoCubeCells()
	patches := []Patch{{Name: "walls", Kind: Wall}, {Name: "procBoundary0to1", Kind: Processor, NeighbProc: 1}}
	m, err := Assemble(points, cells, patches, func(f Face, centre, normal r3.Vec) int {
		if proc && centre.X > 1.5 && normal.X > 0.5 {
			return 1
		}
		return 0
	})
	require.NoError(t, err)
	return m
}

func TestUnitCube(t *testing.T) {
	m := unitCube(t)
	assert.Equal(t, 1, m.NCells())
	assert.Equal(t, 12, m.NEdges())
	assert.Equal(t, 0, m.NInternalFaces())
	assert.InDelta(t, 1.0, m.CellVolumes()[0], 1e-12)
	c := m.CellCentres()[0]
	assert.InDelta(t, 0.5, c.X, 1e-12)
	assert.InDelta(t, 0.5, c.Y, 1e-12)
	assert.InDelta(t, 0.5, c.Z, 1e-12)
	for f := range m.Faces() {
		assert.InDelta(t, 1.0, m.FaceArea(f), 1e-12)
		out := r3.Sub(m.FaceCentres()[f], c)
		assert.Positive(t, r3.Dot(out, m.FaceAreas()[f]), "face %d points into its owner", f)
	}
	for p, edges := range m.PointEdges() {
		assert.Len(t, edges, 3, "point %d", p)
		assert.Len(t, m.PointFaces()[p], 3, "point %d", p)
	}
	for e, faces := range m.EdgeFaces() {
		assert.Len(t, faces, 2, "edge %d", e)
	}
	require.NoError(t, m.CheckTopology())
	assert.Equal(t, -1, m.FindEdge(0, 6))
	e := m.FindEdge(6, 2)
	require.GreaterOrEqual(t, e, 0)
	assert.Equal(t, Edge{2, 6}, m.Edges()[e])
	assert.InDelta(t, 1.0, m.EdgeLength(e), 1e-12)
}

func TestNewRejectsInvalid(t *testing.T) {
	pts := []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}}
	tet := []Face{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}}
	walls := []Patch{{Name: "walls", Start: 0, Size: 4}}
	_, err := New(pts, tet, make([]int, 4), nil, walls, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		faces   []Face
		owner   []int
		patches []Patch
		zones   []Zone
	}{
		{name: "owner count", faces: tet, owner: make([]int, 3), patches: walls},
		{name: "point range", faces: []Face{{0, 2, 9}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}}, owner: make([]int, 4), patches: walls},
		{name: "repeated point", faces: []Face{{0, 2, 2}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}}, owner: make([]int, 4), patches: walls},
		{name: "short face", faces: []Face{{0, 2}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}}, owner: make([]int, 4), patches: walls},
		{name: "patch coverage", faces: tet, owner: make([]int, 4), patches: []Patch{{Name: "walls", Start: 0, Size: 3}}},
		{name: "zone range", faces: tet, owner: make([]int, 4), patches: walls, zones: []Zone{{Name: "z", Faces: []int{7}}}},
	}
	for _, tt := range tests {
		_, err := New(pts, tt.faces, tt.owner, nil, tt.patches, tt.zones)
		if !errors.Is(err, ErrInvalidMesh) {
			t.Errorf("%s: expected ErrInvalidMesh, got %v", tt.name, err)
		}
	}
}

func TestAssembleTwoCubes(t *testing.T) {
	m := twoCubes(t, true)
	require.Equal(t, 2, m.NCells())
	require.Equal(t, 1, m.NInternalFaces())
	assert.Equal(t, 11, m.NFaces())
	assert.Equal(t, 0, m.Owner()[0])
	assert.Equal(t, 1, m.Neighbour()[0])
	assert.InDelta(t, 1.0, m.FaceAreas()[0].X, 1e-12)
	for c, v := range m.CellVolumes() {
		assert.InDelta(t, 1.0, v, 1e-12, "cell %d", c)
	}
	patches := m.Patches()
	require.Len(t, patches, 2)
	assert.Equal(t, 1, patches[0].Start)
	assert.Equal(t, 9, patches[0].Size)
	assert.Equal(t, 1, patches[1].Size)
	assert.Equal(t, 1, m.WhichPatch(10))
	assert.Equal(t, -1, m.WhichPatch(0))
	assert.Equal(t, 1, m.FindPatch("procBoundary0to1"))
	require.NoError(t, m.CheckTopology())
	assert.Equal(t, []int{0, 1}, m.PointCells()[1])
	assert.Len(t, m.CellPoints()[1], 8)
}

func TestAssembleOrientation(t *testing.T) {
	walls := []Patch{{Name: "walls", Kind: Wall}}
	anyWall := func(Face, r3.Vec, r3.Vec) int { return 0 }

	// Cells listed inside out are turned around as a whole.
	points, cells := twoCubeCells()
	for i, f := range cells[1] {
		cells[1][i] = f.Reverse()
	}
	m, err := Assemble(points, cells, walls, anyWall)
	require.NoError(t, err)
	require.NoError(t, m.CheckTopology())
	for c, v := range m.CellVolumes() {
		assert.InDelta(t, 1.0, v, 1e-12, "cell %d", c)
	}

	// A single loop against the rest of its cell is rejected, whether the
	// face is shared or on the boundary.
	for _, face := range []int{4, 1} {
		points, cells = twoCubeCells()
		cells[1][face] = cells[1][face].Reverse()
		_, err = Assemble(points, cells, walls, anyWall)
		assert.ErrorIs(t, err, ErrInvalidMesh, "face %d", face)
	}
}

func TestCheckTopologyDetectsFlip(t *testing.T) {
	m := unitCube(t)
	faces := make([]Face, m.NFaces())
	for i, f := range m.Faces() {
		faces[i] = append(Face(nil), f...)
	}
	faces[2] = faces[2].Reverse()
	bad, err := New(m.Points(), faces, m.Owner(), nil, m.Patches(), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, bad.CheckTopology(), ErrTopology)
}

func TestCheckTopologyUnusedPoint(t *testing.T) {
	m := unitCube(t)
	pts := append(append([]r3.Vec(nil), m.Points()...), r3.Vec{X: 5})
	bad, err := New(pts, m.Faces(), m.Owner(), nil, m.Patches(), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, bad.CheckTopology(), ErrTopology)
}

func TestCopyIsIndependent(t *testing.T) {
	m := twoCubes(t, false)
	c := m.Copy()
	c.points[0] = r3.Vec{X: -1}
	c.faces[0][0] = 99
	assert.Equal(t, r3.Vec{}, m.Points()[0])
	assert.NotEqual(t, 99, m.Faces()[0][0])
	assert.Equal(t, m.NEdges(), c.NEdges())
}

func TestWithZones(t *testing.T) {
	m := twoCubes(t, false)
	z, err := m.WithZones(Zone{Name: "mid", Faces: []int{0}})
	require.NoError(t, err)
	assert.Equal(t, 0, z.FindZone("mid"))
	assert.Equal(t, -1, m.FindZone("mid"))
	_, err = m.WithZones(Zone{Name: "bad", Faces: []int{100}})
	assert.ErrorIs(t, err, ErrInvalidMesh)
}

func TestFaceReverse(t *testing.T) {
	f := Face{3, 4, 5, 6}
	assert.Equal(t, Face{3, 6, 5, 4}, f.Reverse())
	assert.True(t, f.Contains(5))
	assert.False(t, f.Contains(7))
	assert.Equal(t, FaceKey(f), FaceKey(Face{5, 4, 3, 6}))
	assert.Equal(t, "3,4,5,6", FaceKey(f))
}

func TestGeometryDegenerateFace(t *testing.T) {
	// A face collapsed onto a line has zero area and a finite centre.
	pts := []r3.Vec{{}, {X: 1}, {X: 2}, {X: 3}}
	m := &Mesh{points: pts, faces: []Face{{0, 1, 2, 3}}, owner: []int{0}, nCells: 1}
	m.build()
	assert.InDelta(t, 0, m.FaceArea(0), 1e-15)
	c := m.FaceCentres()[0]
	assert.False(t, math.IsNaN(c.X))
	assert.InDelta(t, 1.5, c.X, 1e-12)
}
