package mesh

// Map relates the entities of an old mesh to those of a new mesh produced by a
// topological change. Forward maps are indexed by new entity and hold the old
// entity it was taken from. Reverse maps are indexed by old entity and hold
// the new entity it became or -1 if it was removed. Points merged into
// another point map to the image of the surviving point.
type Map struct {
	PointMap        []int
	ReversePointMap []int
	FaceMap         []int
	ReverseFaceMap  []int
	CellMap         []int
	ReverseCellMap  []int
}

// IdentityMap returns the map of m onto itself.
func IdentityMap(m *Mesh) *Map {
	return &Map{
		PointMap:        identity(m.NPoints()),
		ReversePointMap: identity(m.NPoints()),
		FaceMap:         identity(m.NFaces()),
		ReverseFaceMap:  identity(m.NFaces()),
		CellMap:         identity(m.NCells()),
		ReverseCellMap:  identity(m.NCells()),
	}
}

// Compose returns the map from the old mesh of a to the new mesh of b where
// the new mesh of a is the old mesh of b.
func (a *Map) Compose(b *Map) *Map {
	return &Map{
		PointMap:        forward(a.PointMap, b.PointMap),
		ReversePointMap: reverse(a.ReversePointMap, b.ReversePointMap),
		FaceMap:         forward(a.FaceMap, b.FaceMap),
		ReverseFaceMap:  reverse(a.ReverseFaceMap, b.ReverseFaceMap),
		CellMap:         forward(a.CellMap, b.CellMap),
		ReverseCellMap:  reverse(a.ReverseCellMap, b.ReverseCellMap),
	}
}

func forward(a, b []int) []int {
	out := make([]int, len(b))
	for i, mid := range b {
		if mid < 0 {
			out[i] = -1
			continue
		}
		out[i] = a[mid]
	}
	return out
}

func reverse(a, b []int) []int {
	out := make([]int, len(a))
	for i, mid := range a {
		if mid < 0 {
			out[i] = -1
			continue
		}
		out[i] = b[mid]
	}
	return out
}

func identity(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}
