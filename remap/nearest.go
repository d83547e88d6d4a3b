package remap

import (
	"fmt"

	"github.com/soypat/meshfilter/internal/d3"
	"github.com/soypat/meshfilter/mesh"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// NearestCells returns for every cell of to the cell of from whose centre is
// closest to its own centre.
func NearestCells(from, to *mesh.Mesh) []int {
	tree := newCentreTree(from.CellCentres())
	src := make([]int, to.NCells())
	for c, x := range to.CellCentres() {
		src[c] = tree.nearest(x)
	}
	return src
}

// CellField maps a per cell field of from onto the cells of to by nearest
// cell centre.
func CellField(from *mesh.Mesh, values []float64, to *mesh.Mesh) ([]float64, error) {
	if len(values) != from.NCells() {
		return nil, fmt.Errorf("remap: %d cell values for %d cells", len(values), from.NCells())
	}
	out := make([]float64, to.NCells())
	for c, s := range NearestCells(from, to) {
		out[c] = values[s]
	}
	return out, nil
}

type centreTree struct {
	tree kdtree.Tree
}

func newCentreTree(centres []r3.Vec) centreTree {
	cs := make(centres3, len(centres))
	for i, c := range centres {
		cs[i] = centre{C: c, cell: i}
	}
	return centreTree{tree: *kdtree.New(cs, true)}
}

// nearest returns the cell closest to x.
func (t *centreTree) nearest(x r3.Vec) int {
	c, _ := t.tree.Nearest(centre{C: x, cell: -1})
	return c.(centre).cell
}

// centre is a cell centre stored in the kd-tree.
type centre struct {
	C    r3.Vec
	cell int
}

func (c centre) Compare(q kdtree.Comparable, d kdtree.Dim) float64 {
	p := q.(centre)
	switch d {
	case 0:
		return c.C.X - p.C.X
	case 1:
		return c.C.Y - p.C.Y
	case 2:
		return c.C.Z - p.C.Z
	}
	panic("unreachable")
}

func (c centre) Dims() int { return 3 }

func (c centre) Distance(q kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(c.C, q.(centre).C))
}

type centres3 []centre

func (cs centres3) Index(i int) kdtree.Comparable { return cs[i] }

func (cs centres3) Len() int { return len(cs) }

func (cs centres3) Pivot(d kdtree.Dim) int {
	p := centrePlane{dim: d, centres3: cs}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (cs centres3) Slice(start, end int) kdtree.Interface { return cs[start:end] }

// Bounds implements kdtree.Bounder.
func (cs centres3) Bounds() *kdtree.Bounding {
	set := make(d3.Set, len(cs))
	for i, c := range cs {
		set[i] = c.C
	}
	bb := d3.BoundingBox(set)
	return &kdtree.Bounding{
		Min: centre{C: bb.Min},
		Max: centre{C: bb.Max},
	}
}

type centrePlane struct {
	dim kdtree.Dim
	centres3
}

func (p centrePlane) Less(i, j int) bool {
	return p.centres3[i].Compare(p.centres3[j], p.dim) < 0
}

func (p centrePlane) Swap(i, j int) {
	p.centres3[i], p.centres3[j] = p.centres3[j], p.centres3[i]
}

func (p centrePlane) Slice(start, end int) kdtree.SortSlicer {
	p.centres3 = p.centres3[start:end]
	return p
}
