package mesh

import (
	"errors"
	"fmt"
)

// ErrTopology is wrapped by errors returned from CheckTopology.
var ErrTopology = errors.New("mesh topology check failed")

// CheckTopology verifies that every cell is a closed, consistently oriented
// polyhedron, that the boundary surface is manifold and that every point is
// used by some face.
func (m *Mesh) CheckTopology() error {
	for c, faces := range m.cellFaces {
		if err := m.checkCell(c, faces); err != nil {
			return err
		}
	}
	for e, faces := range m.edgeFaces {
		nb := 0
		for _, f := range faces {
			if f >= len(m.neighbour) {
				nb++
			}
		}
		if nb != 0 && nb != 2 {
			return fmt.Errorf("%w: boundary edge %v used by %d boundary faces", ErrTopology, m.edges[e], nb)
		}
	}
	for p, faces := range m.pointFaces {
		if len(faces) == 0 {
			return fmt.Errorf("%w: point %d unused", ErrTopology, p)
		}
	}
	return nil
}

func (m *Mesh) checkCell(c int, faces []int) error {
	if len(faces) < 4 {
		return fmt.Errorf("%w: cell %d has %d faces", ErrTopology, c, len(faces))
	}
	directed := make(map[[2]int]int, 4*len(faces))
	walk := func(fn func(a, b int)) {
		for _, f := range faces {
			loop := m.faces[f]
			flip := m.owner[f] != c
			for i := range loop {
				a, b := loop[i], loop[(i+1)%len(loop)]
				if flip {
					a, b = b, a
				}
				fn(a, b)
			}
		}
	}
	walk(func(a, b int) { directed[[2]int{a, b}]++ })
	var err error
	walk(func(a, b int) {
		if err != nil {
			return
		}
		if n := directed[[2]int{a, b}]; n != 1 {
			err = fmt.Errorf("%w: cell %d traverses edge %d->%d %d times", ErrTopology, c, a, b, n)
		} else if directed[[2]int{b, a}] != 1 {
			err = fmt.Errorf("%w: cell %d open or misoriented at edge %d-%d", ErrTopology, c, a, b)
		}
	})
	return err
}
