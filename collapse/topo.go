package collapse

import (
	"errors"
	"fmt"
	"sort"

	"github.com/soypat/meshfilter/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	errPinched     = errors.New("face visits a point twice")
	errDangling    = errors.New("face left next to a removed cell")
	errCoincident  = errors.New("coincident faces cannot be merged")
	errOpenCell    = errors.New("cell no longer closed")
	errNonManifold = errors.New("boundary edge not shared by two boundary faces")
)

// side identifies what lies on one side of a face: a cell when >= 0 or a
// patch encoded as -(patch+1).
type side int

func patchSide(patch int) side { return side(-patch - 1) }

func (s side) isCell() bool { return s >= 0 }
func (s side) patch() int   { return int(-s - 1) }

// newFace is a face of the mesh being built.
type newFace struct {
	loop mesh.Face
	// owner is always a cell; nei is a cell or a patch.
	owner, nei side
	// sources are the old faces merged into this face, sorted.
	sources []int
}

// change is the outcome of applying a point merge map to a set of cells.
type change struct {
	faceSet []int // old faces of the affected cells, sorted
	faces   []newFace
	dead    map[int]bool // affected cells that vanish
}

// topology applies point merges to the neighbourhood of a set of cells.
type topology struct {
	m      *mesh.Mesh
	target []int // point -> point it merges into, itself when unmerged
}

func newTopology(m *mesh.Mesh) *topology {
	t := &topology{m: m, target: make([]int, m.NPoints())}
	for i := range t.target {
		t.target[i] = i
	}
	return t
}

// mapFace applies the merge map to f and removes repeated consecutive
// points. ok is false when fewer than three points remain.
func (t *topology) mapFace(f mesh.Face) (loop mesh.Face, ok bool, err error) {
	loop = make(mesh.Face, 0, len(f))
	for _, p := range f {
		q := t.target[p]
		if len(loop) == 0 || loop[len(loop)-1] != q {
			loop = append(loop, q)
		}
	}
	for len(loop) > 1 && loop[0] == loop[len(loop)-1] {
		loop = loop[:len(loop)-1]
	}
	if len(loop) < 3 {
		return nil, false, nil
	}
	seen := make(map[int]bool, len(loop))
	for _, p := range loop {
		if seen[p] {
			return nil, false, errPinched
		}
		seen[p] = true
	}
	return loop, true, nil
}

func (t *topology) sides(f int) (side, side) {
	m := t.m
	if m.IsInternalFace(f) {
		return side(m.Owner()[f]), side(m.Neighbour()[f])
	}
	return side(m.Owner()[f]), patchSide(m.WhichPatch(f))
}

// apply computes the new faces of cells after merging points. cells must
// contain every cell with a merged point.
func (t *topology) apply(cells []int) (*change, error) {
	m := t.m
	cellFaces := m.CellFaces()
	ch := &change{dead: make(map[int]bool)}
	inSet := make(map[int]bool)
	for _, c := range cells {
		for _, f := range cellFaces[c] {
			if !inSet[f] {
				inSet[f] = true
				ch.faceSet = append(ch.faceSet, f)
			}
		}
	}
	sort.Ints(ch.faceSet)

	loops := make(map[int]mesh.Face, len(ch.faceSet))
	for _, f := range ch.faceSet {
		loop, ok, err := t.mapFace(m.Faces()[f])
		if err != nil {
			return nil, err
		}
		if ok {
			loops[f] = loop
		}
	}
	for _, c := range cells {
		alive := 0
		for _, f := range cellFaces[c] {
			if _, ok := loops[f]; ok {
				alive++
			}
		}
		if alive < 4 {
			ch.dead[c] = true
		}
	}

	// Group surviving faces by vertex set in face order.
	var groups [][]int
	byKey := make(map[string]int)
	for _, f := range ch.faceSet {
		loop, ok := loops[f]
		if !ok {
			continue
		}
		key := mesh.FaceKey(loop)
		gi, ok := byKey[key]
		if !ok {
			gi = len(groups)
			byKey[key] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], f)
	}
	isDead := func(s side) bool { return s.isCell() && ch.dead[int(s)] }
	for _, g := range groups {
		switch len(g) {
		case 1:
			f := g[0]
			own, nei := t.sides(f)
			if isDead(own) || isDead(nei) {
				return nil, errDangling
			}
			ch.faces = append(ch.faces, newFace{loop: loops[f], owner: own, nei: nei, sources: g})
		case 2:
			nf, err := t.mergePair(g[0], g[1], loops, isDead)
			if err != nil {
				return nil, err
			}
			ch.faces = append(ch.faces, nf)
		default:
			return nil, errCoincident
		}
	}
	if err := t.checkClosed(cells, ch); err != nil {
		return nil, err
	}
	if err := t.checkBoundary(ch, inSet); err != nil {
		return nil, err
	}
	return ch, nil
}

// mergePair joins two coincident faces either side of a removed cell into a
// single face between the remaining sides.
func (t *topology) mergePair(f1, f2 int, loops map[int]mesh.Face, isDead func(side) bool) (newFace, error) {
	o1, n1 := t.sides(f1)
	o2, n2 := t.sides(f2)
	var shared side = -1
	nShared := 0
	for _, a := range [2]side{o1, n1} {
		for _, b := range [2]side{o2, n2} {
			if a == b && isDead(a) {
				shared = a
				nShared++
			}
		}
	}
	if nShared != 1 {
		return newFace{}, errCoincident
	}
	// Loops oriented out of the remaining side of each face.
	r1, l1 := o1, loops[f1]
	if o1 == shared {
		r1, l1 = n1, l1.Reverse()
	}
	r2, l2 := o2, loops[f2]
	if o2 == shared {
		r2, l2 = n2, l2.Reverse()
	}
	if isDead(r1) || isDead(r2) || r1 == r2 || (!r1.isCell() && !r2.isCell()) {
		return newFace{}, errCoincident
	}
	nf := newFace{sources: []int{f1, f2}}
	switch {
	case !r2.isCell():
		nf.loop, nf.owner, nf.nei = l1, r1, r2
	case !r1.isCell():
		nf.loop, nf.owner, nf.nei = l2, r2, r1
	case r1 < r2:
		nf.loop, nf.owner, nf.nei = l1, r1, r2
	default:
		nf.loop, nf.owner, nf.nei = l2, r2, r1
	}
	return nf, nil
}

// checkClosed verifies every surviving cell is a closed shell with
// consistently oriented faces.
func (t *topology) checkClosed(cells []int, ch *change) error {
	directed := make(map[int]map[[2]int]int)
	for _, c := range cells {
		if !ch.dead[c] {
			directed[c] = make(map[[2]int]int)
		}
	}
	add := func(c side, loop mesh.Face, flip bool) {
		d, ok := directed[int(c)]
		if !c.isCell() || !ok {
			return
		}
		for i := range loop {
			a, b := loop[i], loop[(i+1)%len(loop)]
			if flip {
				a, b = b, a
			}
			d[[2]int{a, b}]++
		}
	}
	for _, f := range ch.faces {
		add(f.owner, f.loop, false)
		add(f.nei, f.loop, true)
	}
	for _, c := range cells {
		d, ok := directed[c]
		if !ok {
			continue
		}
		for e, n := range d {
			if n != 1 || d[[2]int{e[1], e[0]}] != 1 {
				return fmt.Errorf("%w: cell %d", errOpenCell, c)
			}
		}
	}
	return nil
}

// checkBoundary verifies boundary edges touched by the change are used by
// exactly two boundary faces.
func (t *topology) checkBoundary(ch *change, inSet map[int]bool) error {
	m := t.m
	count := make(map[mesh.Edge]int)
	var edges []mesh.Edge
	visit := func(e mesh.Edge, n int) {
		if _, ok := count[e]; !ok {
			edges = append(edges, e)
		}
		count[e] += n
	}
	for _, f := range ch.faces {
		if f.nei.isCell() {
			continue
		}
		for i, p := range f.loop {
			visit(mesh.MakeEdge(p, f.loop[(i+1)%len(f.loop)]), 1)
		}
	}
	for _, f := range ch.faceSet {
		if m.IsInternalFace(f) {
			continue
		}
		loop := m.Faces()[f]
		for i, p := range loop {
			a, b := t.target[p], t.target[loop[(i+1)%len(loop)]]
			if a != b {
				visit(mesh.MakeEdge(a, b), 0)
			}
		}
	}
	edgeFaces := m.EdgeFaces()
	for _, e := range edges {
		n := count[e]
		if ei := m.FindEdge(e[0], e[1]); ei >= 0 {
			for _, f := range edgeFaces[ei] {
				if !inSet[f] && !m.IsInternalFace(f) {
					n++
				}
			}
		}
		if n != 0 && n != 2 {
			return fmt.Errorf("%w: %v used %d times", errNonManifold, e, n)
		}
	}
	return nil
}

// rebuild assembles the new mesh from the accepted change. pos holds the
// coordinates of every old point after merging.
func (t *topology) rebuild(ch *change, pos []r3.Vec) (*mesh.Mesh, *mesh.Map, error) {
	m := t.m
	inSet := make(map[int]bool, len(ch.faceSet))
	for _, f := range ch.faceSet {
		inSet[f] = true
	}
	faces := make([]newFace, 0, m.NFaces())
	for f, loop := range m.Faces() {
		if inSet[f] {
			continue
		}
		own, nei := t.sides(f)
		faces = append(faces, newFace{loop: loop, owner: own, nei: nei, sources: []int{f}})
	}
	faces = append(faces, ch.faces...)

	// Cells.
	revCell := make([]int, m.NCells())
	var cellMap []int
	for c := range revCell {
		if ch.dead[c] {
			revCell[c] = -1
			continue
		}
		revCell[c] = len(cellMap)
		cellMap = append(cellMap, c)
	}

	// Points: referenced points keep their relative order.
	used := make([]bool, m.NPoints())
	for _, f := range faces {
		for _, p := range f.loop {
			used[p] = true
		}
	}
	revPoint := make([]int, m.NPoints())
	var pointMap []int
	var points []r3.Vec
	for p, u := range used {
		revPoint[p] = -1
		if u {
			revPoint[p] = len(pointMap)
			pointMap = append(pointMap, p)
			points = append(points, pos[p])
		}
	}
	for p, q := range t.target {
		if q != p {
			revPoint[p] = revPoint[q]
		}
	}

	// Faces: internal in upper-triangular order then boundary by patch.
	for i := range faces {
		f := &faces[i]
		loop := make(mesh.Face, len(f.loop))
		for j, p := range f.loop {
			loop[j] = revPoint[p]
		}
		f.loop = loop
		f.owner = side(revCell[f.owner])
		if f.nei.isCell() {
			f.nei = side(revCell[f.nei])
			if f.nei < f.owner {
				f.owner, f.nei = f.nei, f.owner
				f.loop = f.loop.Reverse()
			}
		}
	}
	sort.SliceStable(faces, func(i, j int) bool {
		a, b := faces[i], faces[j]
		if a.nei.isCell() != b.nei.isCell() {
			return a.nei.isCell()
		}
		if a.nei.isCell() {
			if a.owner != b.owner {
				return a.owner < b.owner
			}
			if a.nei != b.nei {
				return a.nei < b.nei
			}
		} else if a.nei != b.nei {
			return a.nei.patch() < b.nei.patch()
		}
		return a.sources[0] < b.sources[0]
	})

	nf := len(faces)
	outFaces := make([]mesh.Face, nf)
	owner := make([]int, nf)
	var neighbour []int
	faceMap := make([]int, nf)
	revFace := make([]int, m.NFaces())
	for i := range revFace {
		revFace[i] = -1
	}
	patches := append([]mesh.Patch(nil), m.Patches()...)
	for i := range patches {
		patches[i].Size = 0
	}
	for i, f := range faces {
		outFaces[i] = f.loop
		owner[i] = int(f.owner)
		if f.nei.isCell() {
			neighbour = append(neighbour, int(f.nei))
		} else {
			patches[f.nei.patch()].Size++
		}
		faceMap[i] = f.sources[0]
		for _, s := range f.sources {
			revFace[s] = i
		}
	}
	start := len(neighbour)
	for i := range patches {
		patches[i].Start = start
		start += patches[i].Size
	}

	var zones []mesh.Zone
	for _, z := range m.Zones() {
		nz := mesh.Zone{Name: z.Name}
		seen := make(map[int]bool)
		for _, f := range z.Faces {
			if g := revFace[f]; g >= 0 && !seen[g] {
				seen[g] = true
				nz.Faces = append(nz.Faces, g)
			}
		}
		sort.Ints(nz.Faces)
		zones = append(zones, nz)
	}

	out, err := mesh.New(points, outFaces, owner, neighbour, patches, zones)
	if err != nil {
		return nil, nil, err
	}
	if err := out.CheckTopology(); err != nil {
		return nil, nil, err
	}
	mp := &mesh.Map{
		PointMap:        pointMap,
		ReversePointMap: revPoint,
		FaceMap:         faceMap,
		ReverseFaceMap:  revFace,
		CellMap:         cellMap,
		ReverseCellMap:  revCell,
	}
	return out, mp, nil
}
