package mesh

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/soypat/meshfilter/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Cell lists the face loops bounding a polyhedral cell. The loops must be
// consistently oriented, all pointing out of the cell or all into it.
type Cell []Face

// PatchFunc returns the patch index of a boundary face given its vertices,
// centre and outward unit normal.
type PatchFunc func(f Face, centre, normal r3.Vec) int

// FaceKey returns a key identifying a face by its vertex set regardless of
// orientation and starting point.
func FaceKey(f Face) string {
	sorted := append([]int(nil), f...)
	sort.Ints(sorted)
	var sb strings.Builder
	for i, v := range sorted {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

type assembledFace struct {
	loop      Face
	owner     int
	neighbour int
}

// Assemble builds a mesh from cells given by their face loops. Faces shared by
// two cells become internal faces owned by the lower cell index. Unshared
// faces are assigned to patches by patchOf. patches provide names and kinds;
// their Start and Size are computed.
func Assemble(points []r3.Vec, cells []Cell, patches []Patch, patchOf PatchFunc) (*Mesh, error) {
	var faces []assembledFace
	index := make(map[string]int)
	var buf []r3.Vec
	for c, cell := range cells {
		var cellPts []r3.Vec
		for _, f := range cell {
			for _, p := range f {
				if p < 0 || p >= len(points) {
					return nil, fmt.Errorf("%w: cell %d references point %d", ErrInvalidMesh, c, p)
				}
				cellPts = append(cellPts, points[p])
			}
		}
		if len(cell) < 4 {
			return nil, fmt.Errorf("%w: cell %d has %d faces", ErrInvalidMesh, c, len(cell))
		}
		centroid := d3.Set(cellPts).Centroid()
		// A cell listed inside out has all its loops reversed.
		var vol float64
		for _, f := range cell {
			buf = buf[:0]
			for _, p := range f {
				buf = append(buf, points[p])
			}
			cf, sf := d3.Polygon(buf)
			vol += r3.Dot(sf, r3.Sub(cf, centroid))
		}
		for _, f := range cell {
			loop := append(Face(nil), f...)
			if vol < 0 {
				loop = loop.Reverse()
			}
			key := FaceKey(loop)
			fi, ok := index[key]
			if !ok {
				index[key] = len(faces)
				faces = append(faces, assembledFace{loop: loop, owner: c, neighbour: -1})
				continue
			}
			if faces[fi].neighbour >= 0 || faces[fi].owner == c {
				return nil, fmt.Errorf("%w: face %v shared by more than two cells", ErrInvalidMesh, f)
			}
			if sameDirection(faces[fi].loop, loop) {
				return nil, fmt.Errorf("%w: face %v points the same way out of cells %d and %d", ErrInvalidMesh, f, faces[fi].owner, c)
			}
			faces[fi].neighbour = c
		}
	}

	var internal []assembledFace
	byPatch := make([][]assembledFace, len(patches))
	for _, f := range faces {
		if f.neighbour >= 0 {
			internal = append(internal, f)
			continue
		}
		buf = buf[:0]
		for _, p := range f.loop {
			buf = append(buf, points[p])
		}
		cf, sf := d3.Polygon(buf)
		pi := patchOf(f.loop, cf, d3.SafeUnit(sf))
		if pi < 0 || pi >= len(patches) {
			return nil, fmt.Errorf("%w: boundary face %v assigned to patch %d of %d", ErrInvalidMesh, f.loop, pi, len(patches))
		}
		byPatch[pi] = append(byPatch[pi], f)
	}
	sort.SliceStable(internal, func(i, j int) bool {
		if internal[i].owner != internal[j].owner {
			return internal[i].owner < internal[j].owner
		}
		return internal[i].neighbour < internal[j].neighbour
	})

	nf := len(faces)
	outFaces := make([]Face, 0, nf)
	owner := make([]int, 0, nf)
	neighbour := make([]int, 0, len(internal))
	for _, f := range internal {
		outFaces = append(outFaces, f.loop)
		owner = append(owner, f.owner)
		neighbour = append(neighbour, f.neighbour)
	}
	outPatches := make([]Patch, len(patches))
	for pi, group := range byPatch {
		outPatches[pi] = patches[pi]
		outPatches[pi].Start = len(outFaces)
		outPatches[pi].Size = len(group)
		for _, f := range group {
			outFaces = append(outFaces, f.loop)
			owner = append(owner, f.owner)
		}
	}
	m, err := New(points, outFaces, owner, neighbour, outPatches, nil)
	if err != nil {
		return nil, err
	}
	if err := m.CheckTopology(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMesh, err)
	}
	return m, nil
}

// sameDirection reports whether loop b runs through the vertices of loop a in
// the same cyclic order. Both loops hold the same vertex set.
func sameDirection(a, b Face) bool {
	for k, p := range b {
		if p == a[0] {
			return b[(k+1)%len(b)] == a[1]
		}
	}
	return false
}
