package mesh

import "sort"

// Edge is an undirected edge stored with its smaller point index first.
type Edge [2]int

// MakeEdge returns the canonical edge between points a and b.
func MakeEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

// Other returns the end of e that is not p.
func (e Edge) Other(p int) int {
	if e[0] == p {
		return e[1]
	}
	return e[0]
}

func (m *Mesh) calcAddressing() {
	nf, np := len(m.faces), len(m.points)
	m.edges = m.edges[:0]
	m.edgeIndex = make(map[Edge]int, 2*nf)
	m.edgeFaces = m.edgeFaces[:0]
	m.faceEdges = make([][]int, nf)
	m.pointFaces = make([][]int, np)
	for fi, f := range m.faces {
		fe := make([]int, len(f))
		for i, p := range f {
			e := MakeEdge(p, f[(i+1)%len(f)])
			ei, ok := m.edgeIndex[e]
			if !ok {
				ei = len(m.edges)
				m.edgeIndex[e] = ei
				m.edges = append(m.edges, e)
				m.edgeFaces = append(m.edgeFaces, nil)
			}
			fe[i] = ei
			m.edgeFaces[ei] = append(m.edgeFaces[ei], fi)
			m.pointFaces[p] = append(m.pointFaces[p], fi)
		}
		m.faceEdges[fi] = fe
	}
	m.pointEdges = make([][]int, np)
	for ei, e := range m.edges {
		m.pointEdges[e[0]] = append(m.pointEdges[e[0]], ei)
		m.pointEdges[e[1]] = append(m.pointEdges[e[1]], ei)
	}

	m.cellFaces = make([][]int, m.nCells)
	for fi, own := range m.owner {
		m.cellFaces[own] = append(m.cellFaces[own], fi)
	}
	for fi, nei := range m.neighbour {
		m.cellFaces[nei] = append(m.cellFaces[nei], fi)
	}
	m.cellPoints = make([][]int, m.nCells)
	m.pointCells = make([][]int, np)
	mark := make([]int, np)
	for c, faces := range m.cellFaces {
		sort.Ints(faces)
		var pts []int
		for _, fi := range faces {
			for _, p := range m.faces[fi] {
				if mark[p] != c+1 {
					mark[p] = c + 1
					pts = append(pts, p)
				}
			}
		}
		sort.Ints(pts)
		m.cellPoints[c] = pts
		for _, p := range pts {
			m.pointCells[p] = append(m.pointCells[p], c)
		}
	}
}

// Edges returns the unique edges of all faces.
func (m *Mesh) Edges() []Edge { return m.edges }

// FindEdge returns the index of the edge between points a and b or -1.
func (m *Mesh) FindEdge(a, b int) int {
	if ei, ok := m.edgeIndex[MakeEdge(a, b)]; ok {
		return ei
	}
	return -1
}

// EdgeLength returns the length of edge e.
func (m *Mesh) EdgeLength(e int) float64 {
	return edgeLength(m.points, m.edges[e])
}

// PointEdges returns the edges using every point.
func (m *Mesh) PointEdges() [][]int { return m.pointEdges }

// FaceEdges returns the edges of every face with FaceEdges()[f][i] running
// from point i to point i+1 of f.
func (m *Mesh) FaceEdges() [][]int { return m.faceEdges }

// EdgeFaces returns the faces using every edge.
func (m *Mesh) EdgeFaces() [][]int { return m.edgeFaces }

// PointFaces returns the faces using every point.
func (m *Mesh) PointFaces() [][]int { return m.pointFaces }

// PointCells returns the cells using every point, sorted.
func (m *Mesh) PointCells() [][]int { return m.pointCells }

// CellFaces returns the faces of every cell, sorted.
func (m *Mesh) CellFaces() [][]int { return m.cellFaces }

// CellPoints returns the points of every cell, sorted.
func (m *Mesh) CellPoints() [][]int { return m.cellPoints }
