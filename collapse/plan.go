// Package collapse implements edge and face collapsing on polyhedral meshes.
// A collapse pass selects candidates in a deterministic priority order,
// merges their points when the merge is compatible with the point labels and
// leaves a valid mesh, and rebuilds the mesh once per pass.
package collapse

import (
	"math"
	"sort"

	"github.com/soypat/meshfilter/internal/d3"
	"github.com/soypat/meshfilter/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// featureCos is the cosine above which two boundary normals are considered
// the same direction when ranking boundary points.
const featureCos = 0.9

// Result is the outcome of a collapse pass.
type Result struct {
	// Mesh is the collapsed mesh. It is the input mesh when nothing collapsed.
	Mesh *mesh.Mesh
	// Map relates the input mesh to Mesh.
	Map *mesh.Map
	// Collapsed is the number of collapsed edges or faces.
	Collapsed int
	// Rejected is the number of candidates skipped because the merge was not
	// allowed.
	Rejected int
	// Touched flags the points of Mesh that were the target of a merge or
	// were moved.
	Touched []bool
}

// mergeGroup is a set of points that become a single point.
type mergeGroup struct {
	points []int
	// pos is the proposed position for interior groups.
	pos r3.Vec
	// master forces the surviving point and its position when >= 0.
	master int
}

// planner accumulates independent merges on a mesh.
type planner struct {
	m        *mesh.Mesh
	topo     *topology
	labels   []int
	ranks    []int
	excluded []bool
	locked   []bool
	pos      []r3.Vec
	moved    []bool
	cells    []int // cells around accepted merges
	accepted int
	rejected int
}

func newPlanner(m *mesh.Mesh, excluded []bool) *planner {
	p := &planner{
		m:        m,
		topo:     newTopology(m),
		labels:   mesh.ClassifyPoints(m),
		ranks:    mesh.FeatureRanks(m, featureCos),
		excluded: excluded,
		locked:   make([]bool, m.NPoints()),
		pos:      append([]r3.Vec(nil), m.Points()...),
		moved:    make([]bool, m.NPoints()),
	}
	return p
}

// available reports whether none of the points are excluded or locked.
func (p *planner) available(pts []int) bool {
	for _, q := range pts {
		if p.locked[q] || (p.excluded != nil && p.excluded[q]) {
			return false
		}
	}
	return true
}

// resolve checks the labels of a group and returns the surviving point and
// its position. onBoundary tells whether the collapsed entity lies on the
// true boundary.
func (p *planner) resolve(g mergeGroup, onBoundary bool) (master int, pos r3.Vec, ok bool) {
	label := p.labels[g.points[0]]
	for _, q := range g.points[1:] {
		if p.labels[q] != label {
			return -1, pos, false
		}
	}
	switch {
	case label > mesh.Boundary:
		// Processor points never move.
		return -1, pos, false
	case label == mesh.Boundary && !onBoundary:
		return -1, pos, false
	}
	if g.master >= 0 {
		if label == mesh.Boundary {
			for _, q := range g.points {
				if p.ranks[q] > p.ranks[g.master] {
					return -1, pos, false
				}
			}
		}
		return g.master, p.pos[g.master], true
	}
	pos = g.pos
	if label == mesh.Boundary {
		pos = p.featurePosition(g.points)
	}
	master = g.points[0]
	best := math.Inf(1)
	for _, q := range g.points {
		d := r3.Norm2(r3.Sub(p.pos[q], pos))
		if d < best || (d == best && q < master) {
			master, best = q, d
		}
	}
	return master, pos, true
}

// featurePosition returns the mean position of the highest ranked points.
func (p *planner) featurePosition(pts []int) r3.Vec {
	top := -1
	for _, q := range pts {
		top = max(top, p.ranks[q])
	}
	var best d3.Set
	for _, q := range pts {
		if p.ranks[q] == top {
			best = append(best, p.pos[q])
		}
	}
	return best.Centroid()
}

// tryMerge attempts to merge every group at once. Groups of a single point
// move the point. The merge is kept only when all groups are allowed and the
// surrounding cells remain valid.
func (p *planner) tryMerge(groups []mergeGroup, onBoundary bool) bool {
	var all []int
	for _, g := range groups {
		all = append(all, g.points...)
	}
	if !p.available(all) {
		return false
	}
	masters := make([]int, len(groups))
	positions := make([]r3.Vec, len(groups))
	for i, g := range groups {
		m, pos, ok := p.resolve(g, onBoundary)
		if !ok {
			p.rejected++
			return false
		}
		masters[i], positions[i] = m, pos
	}

	cells := p.cellsAround(all)
	for i, g := range groups {
		for _, q := range g.points {
			p.topo.target[q] = masters[i]
		}
	}
	if _, err := p.topo.apply(cells); err != nil {
		for _, q := range all {
			p.topo.target[q] = q
		}
		p.rejected++
		return false
	}
	for i := range groups {
		if len(groups[i].points) > 1 || p.pos[masters[i]] != positions[i] {
			p.moved[masters[i]] = true
		}
		p.pos[masters[i]] = positions[i]
	}
	cellPoints := p.m.CellPoints()
	for _, c := range cells {
		for _, q := range cellPoints[c] {
			p.locked[q] = true
		}
	}
	p.cells = append(p.cells, cells...)
	p.accepted++
	return true
}

func (p *planner) cellsAround(pts []int) []int {
	pointCells := p.m.PointCells()
	var cells []int
	seen := make(map[int]bool)
	for _, q := range pts {
		for _, c := range pointCells[q] {
			if !seen[c] {
				seen[c] = true
				cells = append(cells, c)
			}
		}
	}
	sort.Ints(cells)
	return cells
}

// commit rebuilds the mesh with every accepted merge.
func (p *planner) commit() (*Result, error) {
	if p.accepted == 0 {
		return &Result{
			Mesh:     p.m,
			Map:      mesh.IdentityMap(p.m),
			Rejected: p.rejected,
			Touched:  make([]bool, p.m.NPoints()),
		}, nil
	}
	sort.Ints(p.cells)
	ch, err := p.topo.apply(p.cells)
	if err != nil {
		return nil, err
	}
	out, mp, err := p.topo.rebuild(ch, p.pos)
	if err != nil {
		return nil, err
	}
	touched := make([]bool, out.NPoints())
	for q, moved := range p.moved {
		if moved {
			if n := mp.ReversePointMap[q]; n >= 0 {
				touched[n] = true
			}
		}
	}
	return &Result{Mesh: out, Map: mp, Collapsed: p.accepted, Rejected: p.rejected, Touched: touched}, nil
}
