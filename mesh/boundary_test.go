package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPoints(t *testing.T) {
	m := twoCubes(t, true)
	labels := ClassifyPoints(m)
	for p, x := range m.Points() {
		want := Boundary
		if x.X > 1.5 {
			want = 2 // processor patch index 1 plus one
		}
		assert.Equal(t, want, labels[p], "point %d at %v", p, x)
	}

	m = twoCubes(t, false)
	for p, l := range ClassifyPoints(m) {
		assert.Equal(t, Boundary, l, "point %d", p)
	}
}

func TestBoundaryEdges(t *testing.T) {
	m := twoCubes(t, false)
	flags := BoundaryEdges(m)
	// Every edge of two cubes lies on the outer surface.
	for e, b := range flags {
		assert.True(t, b, "edge %v", m.Edges()[e])
	}
}

func TestFeatureRanks(t *testing.T) {
	m := twoCubes(t, false)
	ranks := FeatureRanks(m, 0.9)
	for p, x := range m.Points() {
		want := 3
		if x.X == 1 {
			// Middle points lie on a cube edge of the combined box.
			want = 2
		}
		assert.Equal(t, want, ranks[p], "point %d at %v", p, x)
	}
	// Processor faces carry no features.
	m = twoCubes(t, true)
	ranks = FeatureRanks(m, 0.9)
	for p, x := range m.Points() {
		if x.X > 1.5 {
			assert.Equal(t, 2, ranks[p], "point %d at %v", p, x)
		}
	}
}

func TestMapCompose(t *testing.T) {
	a := &Map{
		PointMap:        []int{0, 2, 3},
		ReversePointMap: []int{0, 0, 1, 2},
		FaceMap:         []int{1},
		ReverseFaceMap:  []int{-1, 0},
		CellMap:         []int{0},
		ReverseCellMap:  []int{0},
	}
	b := &Map{
		PointMap:        []int{0, 2},
		ReversePointMap: []int{0, 0, 1},
		FaceMap:         []int{0},
		ReverseFaceMap:  []int{0},
		CellMap:         []int{0},
		ReverseCellMap:  []int{0},
	}
	c := a.Compose(b)
	assert.Equal(t, []int{0, 3}, c.PointMap)
	assert.Equal(t, []int{0, 0, 0, 1}, c.ReversePointMap)
	assert.Equal(t, []int{1}, c.FaceMap)
	assert.Equal(t, []int{-1, 0}, c.ReverseFaceMap)

	id := IdentityMap(twoCubes(t, false))
	assert.Equal(t, id.PointMap, id.Compose(id).PointMap)
}
