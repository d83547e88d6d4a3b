// Package meshgen generates structured block meshes of hexahedra or
// tetrahedra. The meshes are mainly used as filter input in tests and by the
// command line demo.
package meshgen

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/soypat/meshfilter/internal/d3"
	"github.com/soypat/meshfilter/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Side identifies one of the six sides of a block. Every side becomes a patch
// of the generated mesh named by Side.String.
type Side int

const (
	XMin Side = iota
	XMax
	YMin
	YMax
	ZMin
	ZMax
	nSides
)

var sideNames = [nSides]string{"xmin", "xmax", "ymin", "ymax", "zmin", "zmax"}

func (s Side) String() string {
	if s < 0 || s >= nSides {
		return fmt.Sprintf("Side(%d)", int(s))
	}
	return sideNames[s]
}

// ParseSide returns the side named name.
func ParseSide(name string) (Side, error) {
	for i, n := range sideNames {
		if n == name {
			return Side(i), nil
		}
	}
	return -1, fmt.Errorf("unknown block side %q", name)
}

// Block describes a structured block mesh.
type Block struct {
	Bounds r3.Box
	// Div is the number of cells along each axis.
	Div [3]int
	// Coords overrides the uniform node spacing along an axis when set. It
	// must hold Div[axis]+1 increasing values.
	Coords [3][]float64
	// Tetrahedra splits every hexahedron into six tetrahedra.
	Tetrahedra bool
	// Jitter displaces interior nodes randomly by up to this fraction of the
	// local node spacing along each axis. It must be below MaxHexJitter, or
	// below MaxTetJitter for tetrahedra, so no cell is turned inside out.
	Jitter float64
	Seed   int64
	// Processor lists the sides that are generated as processor patches.
	Processor []Side
}

type nodeMatrix struct {
	div   [3]int // nodes along each axis
	nodes []r3.Vec
}

func (m *nodeMatrix) index(i, j, k int) int {
	if i < 0 || j < 0 || k < 0 || i >= m.div[0] || j >= m.div[1] || k >= m.div[2] {
		panic("oob node matrix access")
	}
	return i*m.div[1]*m.div[2] + j*m.div[2] + k
}

func (m *nodeMatrix) foreach(f func(i, j, k int, node *r3.Vec)) {
	for i := 0; i < m.div[0]; i++ {
		ii := i * m.div[1] * m.div[2]
		for j := 0; j < m.div[1]; j++ {
			jj := j * m.div[2]
			for k := 0; k < m.div[2]; k++ {
				f(i, j, k, &m.nodes[ii+jj+k])
			}
		}
	}
}

// Jitter limits. A hexahedron node moving less than half the node spacing
// cannot pass its neighbours. A Kuhn tetrahedron keeps a positive volume as
// long as no edge vector component changes by a sixth of the spacing.
const (
	MaxHexJitter = 0.5
	MaxTetJitter = 1.0 / 12
)

// Mesh generates the block mesh.
func (b Block) Mesh() (*mesh.Mesh, error) {
	maxJitter := MaxHexJitter
	if b.Tetrahedra {
		maxJitter = MaxTetJitter
	}
	if !(b.Jitter >= 0 && b.Jitter < maxJitter) {
		return nil, fmt.Errorf("jitter %g not in [0,%g)", b.Jitter, maxJitter)
	}
	coords, err := b.axisCoords()
	if err != nil {
		return nil, err
	}
	nm := nodeMatrix{div: [3]int{b.Div[0] + 1, b.Div[1] + 1, b.Div[2] + 1}}
	nm.nodes = make([]r3.Vec, nm.div[0]*nm.div[1]*nm.div[2])
	rng := rand.New(rand.NewSource(b.Seed))
	nm.foreach(func(i, j, k int, node *r3.Vec) {
		*node = r3.Vec{X: coords[0][i], Y: coords[1][j], Z: coords[2][k]}
		interior := i > 0 && j > 0 && k > 0 && i < b.Div[0] && j < b.Div[1] && k < b.Div[2]
		if b.Jitter > 0 && interior {
			amp := r3.Vec{
				X: b.Jitter * min(coords[0][i]-coords[0][i-1], coords[0][i+1]-coords[0][i]),
				Y: b.Jitter * min(coords[1][j]-coords[1][j-1], coords[1][j+1]-coords[1][j]),
				Z: b.Jitter * min(coords[2][k]-coords[2][k-1], coords[2][k+1]-coords[2][k]),
			}
			*node = d3.Jitter(rng, *node, amp)
		}
	})

	var cells []mesh.Cell
	for i := 0; i < b.Div[0]; i++ {
		for j := 0; j < b.Div[1]; j++ {
			for k := 0; k < b.Div[2]; k++ {
				h := hexCorners{
					nm.index(i, j, k), nm.index(i+1, j, k), nm.index(i+1, j+1, k), nm.index(i, j+1, k),
					nm.index(i, j, k+1), nm.index(i+1, j, k+1), nm.index(i+1, j+1, k+1), nm.index(i, j+1, k+1),
				}
				if b.Tetrahedra {
					for _, tet := range h.tetras() {
						cells = append(cells, tetCell(tet))
					}
				} else {
					cells = append(cells, h.cell())
				}
			}
		}
	}

	patches := make([]mesh.Patch, nSides)
	for s := Side(0); s < nSides; s++ {
		patches[s] = mesh.Patch{Name: s.String(), Kind: mesh.Wall}
	}
	for i, s := range b.Processor {
		if s < 0 || s >= nSides {
			return nil, fmt.Errorf("invalid processor side %d", int(s))
		}
		patches[s].Kind = mesh.Processor
		patches[s].NeighbProc = i + 1
	}
	m, err := mesh.Assemble(nm.nodes, cells, patches, sideOf)
	if err != nil {
		return nil, err
	}
	for c, v := range m.CellVolumes() {
		if v <= 0 {
			return nil, fmt.Errorf("%w: jittered cell %d has volume %g", mesh.ErrInvalidMesh, c, v)
		}
	}
	return m, nil
}

func (b Block) axisCoords() ([3][]float64, error) {
	var coords [3][]float64
	lo := [3]float64{b.Bounds.Min.X, b.Bounds.Min.Y, b.Bounds.Min.Z}
	hi := [3]float64{b.Bounds.Max.X, b.Bounds.Max.Y, b.Bounds.Max.Z}
	for axis := 0; axis < 3; axis++ {
		n := b.Div[axis]
		if n < 1 {
			return coords, errors.New("block needs at least one division per axis")
		}
		if c := b.Coords[axis]; c != nil {
			if len(c) != n+1 {
				return coords, fmt.Errorf("axis %d needs %d coordinates, got %d", axis, n+1, len(c))
			}
			for i := 1; i < len(c); i++ {
				if c[i] <= c[i-1] {
					return coords, fmt.Errorf("axis %d coordinates not increasing at %d", axis, i)
				}
			}
			coords[axis] = c
			continue
		}
		if hi[axis] <= lo[axis] {
			return coords, fmt.Errorf("empty block bounds along axis %d", axis)
		}
		coords[axis] = make([]float64, n+1)
		for i := range coords[axis] {
			coords[axis][i] = lo[axis] + (hi[axis]-lo[axis])*float64(i)/float64(n)
		}
	}
	return coords, nil
}

// sideOf picks the block side of a boundary face by its dominant normal
// direction.
func sideOf(_ mesh.Face, _, n r3.Vec) int {
	switch {
	case n.X < -0.5:
		return int(XMin)
	case n.X > 0.5:
		return int(XMax)
	case n.Y < -0.5:
		return int(YMin)
	case n.Y > 0.5:
		return int(YMax)
	case n.Z < -0.5:
		return int(ZMin)
	}
	return int(ZMax)
}
