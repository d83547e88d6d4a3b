// Package mesh implements a polyhedral mesh described by face loops with
// owner/neighbour cell addressing. Faces are stored with internal faces first
// in upper-triangular order followed by the boundary faces grouped by patch.
//
// A Mesh is immutable once built: every topological edit produces a new Mesh
// together with a Map describing the correspondence between both generations.
package mesh

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidMesh is wrapped by every error returned when mesh data is
// inconsistent.
var ErrInvalidMesh = errors.New("invalid mesh")

// Face is an ordered loop of point indices. The right hand normal of the loop
// points out of the owner cell.
type Face []int

// Reverse returns the face with opposite orientation. The first point is kept.
func (f Face) Reverse() Face {
	r := make(Face, len(f))
	r[0] = f[0]
	for i := 1; i < len(f); i++ {
		r[i] = f[len(f)-i]
	}
	return r
}

// Contains reports whether point p is a vertex of the face.
func (f Face) Contains(p int) bool {
	for _, v := range f {
		if v == p {
			return true
		}
	}
	return false
}

// PatchKind distinguishes true domain boundaries from partition interfaces.
type PatchKind int

const (
	// Generic is a true domain boundary with no further semantics.
	Generic PatchKind = iota
	// Wall is a true domain boundary.
	Wall
	// Processor is an interface between mesh partitions.
	Processor
)

func (k PatchKind) String() string {
	switch k {
	case Generic:
		return "patch"
	case Wall:
		return "wall"
	case Processor:
		return "processor"
	}
	return fmt.Sprintf("PatchKind(%d)", int(k))
}

// Patch is a contiguous range of boundary faces.
type Patch struct {
	Name  string
	Kind  PatchKind
	Start int
	Size  int
	// NeighbProc is the partition on the other side of a Processor patch.
	NeighbProc int
}

// Zone is a named group of faces.
type Zone struct {
	Name  string
	Faces []int
}

// Mesh is an immutable polyhedral mesh. Slices returned by its accessors are
// shared with the mesh and must not be modified.
type Mesh struct {
	points    []r3.Vec
	faces     []Face
	owner     []int
	neighbour []int
	patches   []Patch
	zones     []Zone
	nCells    int

	edges      []Edge
	edgeIndex  map[Edge]int
	pointEdges [][]int
	faceEdges  [][]int
	edgeFaces  [][]int
	pointFaces [][]int
	pointCells [][]int
	cellFaces  [][]int
	cellPoints [][]int

	faceCentres []r3.Vec
	faceAreas   []r3.Vec
	cellCentres []r3.Vec
	cellVolumes []float64
}

// New validates the mesh description and builds its addressing and geometry.
// New takes ownership of its arguments. neighbour holds one entry per internal
// face; the remaining faces must be covered by patches in order.
func New(points []r3.Vec, faces []Face, owner, neighbour []int, patches []Patch, zones []Zone) (*Mesh, error) {
	m := &Mesh{
		points:    points,
		faces:     faces,
		owner:     owner,
		neighbour: neighbour,
		patches:   patches,
		zones:     zones,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	m.build()
	return m, nil
}

func (m *Mesh) validate() error {
	np := len(m.points)
	if len(m.owner) != len(m.faces) {
		return fmt.Errorf("%w: %d faces but %d owners", ErrInvalidMesh, len(m.faces), len(m.owner))
	}
	if len(m.neighbour) > len(m.faces) {
		return fmt.Errorf("%w: more neighbours (%d) than faces (%d)", ErrInvalidMesh, len(m.neighbour), len(m.faces))
	}
	seen := make(map[int]int)
	for fi, f := range m.faces {
		if len(f) < 3 {
			return fmt.Errorf("%w: face %d has %d points", ErrInvalidMesh, fi, len(f))
		}
		for _, p := range f {
			if p < 0 || p >= np {
				return fmt.Errorf("%w: face %d references point %d out of range [0,%d)", ErrInvalidMesh, fi, p, np)
			}
			if seen[p] == fi+1 {
				return fmt.Errorf("%w: face %d visits point %d twice", ErrInvalidMesh, fi, p)
			}
			seen[p] = fi + 1
		}
	}
	nCells := 0
	for fi, own := range m.owner {
		if own < 0 {
			return fmt.Errorf("%w: face %d has no owner", ErrInvalidMesh, fi)
		}
		nCells = max(nCells, own+1)
	}
	for fi, nei := range m.neighbour {
		if nei <= m.owner[fi] {
			return fmt.Errorf("%w: internal face %d neighbour %d not above owner %d", ErrInvalidMesh, fi, nei, m.owner[fi])
		}
		nCells = max(nCells, nei+1)
	}
	m.nCells = nCells
	next := len(m.neighbour)
	for pi, p := range m.patches {
		if p.Start != next || p.Size < 0 {
			return fmt.Errorf("%w: patch %q range [%d,%d) not contiguous at face %d", ErrInvalidMesh, p.Name, p.Start, p.Start+p.Size, next)
		}
		if p.Kind == Processor && p.NeighbProc < 0 {
			return fmt.Errorf("%w: processor patch %d has negative neighbour processor", ErrInvalidMesh, pi)
		}
		next += p.Size
	}
	if next != len(m.faces) {
		return fmt.Errorf("%w: patches cover %d faces, mesh has %d", ErrInvalidMesh, next, len(m.faces))
	}
	for _, z := range m.zones {
		for _, f := range z.Faces {
			if f < 0 || f >= len(m.faces) {
				return fmt.Errorf("%w: zone %q references face %d out of range", ErrInvalidMesh, z.Name, f)
			}
		}
	}
	return nil
}

func (m *Mesh) build() {
	m.calcAddressing()
	m.calcGeometry()
}

// Copy returns an independently allocated duplicate of m.
func (m *Mesh) Copy() *Mesh {
	faces := make([]Face, len(m.faces))
	for i, f := range m.faces {
		faces[i] = append(Face(nil), f...)
	}
	zones := make([]Zone, len(m.zones))
	for i, z := range m.zones {
		zones[i] = Zone{Name: z.Name, Faces: append([]int(nil), z.Faces...)}
	}
	c := &Mesh{
		points:    append([]r3.Vec(nil), m.points...),
		faces:     faces,
		owner:     append([]int(nil), m.owner...),
		neighbour: append([]int(nil), m.neighbour...),
		patches:   append([]Patch(nil), m.patches...),
		zones:     zones,
		nCells:    m.nCells,
	}
	c.build()
	return c
}

// WithZones returns a copy of m whose face zones are replaced by zones.
func (m *Mesh) WithZones(zones ...Zone) (*Mesh, error) {
	c := m.Copy()
	c.zones = zones
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *Mesh) NPoints() int        { return len(m.points) }
func (m *Mesh) NFaces() int         { return len(m.faces) }
func (m *Mesh) NInternalFaces() int { return len(m.neighbour) }
func (m *Mesh) NCells() int         { return m.nCells }
func (m *Mesh) NEdges() int         { return len(m.edges) }

func (m *Mesh) Points() []r3.Vec { return m.points }
func (m *Mesh) Faces() []Face    { return m.faces }
func (m *Mesh) Owner() []int     { return m.owner }

// Neighbour returns the neighbour cell of every internal face.
func (m *Mesh) Neighbour() []int { return m.neighbour }
func (m *Mesh) Patches() []Patch { return m.patches }
func (m *Mesh) Zones() []Zone    { return m.zones }

// IsInternalFace reports whether face f has a neighbour cell.
func (m *Mesh) IsInternalFace(f int) bool { return f < len(m.neighbour) }

// FaceNeighbour returns the neighbour cell of face f or -1 for boundary faces.
func (m *Mesh) FaceNeighbour(f int) int {
	if f < len(m.neighbour) {
		return m.neighbour[f]
	}
	return -1
}

// WhichPatch returns the patch index of face f or -1 if f is internal.
func (m *Mesh) WhichPatch(f int) int {
	if f < len(m.neighbour) {
		return -1
	}
	for i, p := range m.patches {
		if f < p.Start+p.Size {
			return i
		}
	}
	return -1
}

// FindPatch returns the index of the patch named name or -1.
func (m *Mesh) FindPatch(name string) int {
	for i, p := range m.patches {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// FindZone returns the index of the face zone named name or -1.
func (m *Mesh) FindZone(name string) int {
	for i, z := range m.zones {
		if z.Name == name {
			return i
		}
	}
	return -1
}
