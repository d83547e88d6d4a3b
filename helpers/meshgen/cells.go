package meshgen

import "github.com/soypat/meshfilter/mesh"

// hexCorners holds the node indices of a hexahedron ordered
// 000, 100, 110, 010, 001, 101, 111, 011.
type hexCorners [8]int

// Corner offsets used to address hexCorners by bit pattern xyz.
const (
	c000 = 0
	c100 = 1
	c110 = 2
	c010 = 3
	c001 = 4
	c101 = 5
	c111 = 6
	c011 = 7
)

// cell returns the outward loops of the hexahedron.
func (h hexCorners) cell() mesh.Cell {
	return mesh.Cell{
		{h[c000], h[c010], h[c110], h[c100]},
		{h[c001], h[c101], h[c111], h[c011]},
		{h[c000], h[c100], h[c101], h[c001]},
		{h[c010], h[c011], h[c111], h[c110]},
		{h[c000], h[c001], h[c011], h[c010]},
		{h[c100], h[c110], h[c111], h[c101]},
	}
}

// tetras splits the hexahedron along its 000-111 diagonal into the six Kuhn
// tetrahedra. Neighbouring blocks split their shared faces along the same
// diagonal so the result is conforming. Every tetrahedron a,b,c,d is
// positively oriented: d lies on the side of abc its right hand normal
// points to.
func (h hexCorners) tetras() [][4]int {
	order := [6][4]int{
		{c000, c100, c110, c111},
		{c000, c101, c100, c111},
		{c000, c110, c010, c111},
		{c000, c010, c011, c111},
		{c000, c001, c101, c111},
		{c000, c011, c001, c111},
	}
	tets := make([][4]int, len(order))
	for i, o := range order {
		tets[i] = [4]int{h[o[0]], h[o[1]], h[o[2]], h[o[3]]}
	}
	return tets
}

// tetCell returns the outward loops of a positively oriented tetrahedron.
func tetCell(t [4]int) mesh.Cell {
	return mesh.Cell{
		{t[0], t[2], t[1]},
		{t[0], t[1], t[3]},
		{t[0], t[3], t[2]},
		{t[1], t[2], t[3]},
	}
}
