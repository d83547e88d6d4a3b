package meshfilter

import "fmt"

// PointErrors counts how many times each point of the original mesh was
// implicated in a bad face. Points whose count exceeds the ceiling are
// excluded from collapsing for the rest of the run.
type PointErrors struct {
	counts  []int
	ceiling int
	// current maps original points to points of the current mesh.
	current []int
}

// NewPointErrors returns a tracker for a mesh of nPoints points which is
// also the current mesh.
func NewPointErrors(nPoints, ceiling int) *PointErrors {
	pe := &PointErrors{
		counts:  make([]int, nPoints),
		ceiling: ceiling,
		current: make([]int, nPoints),
	}
	for i := range pe.current {
		pe.current[i] = i
	}
	return pe
}

// Increment adds one to the count of every original point whose current
// point maps through rev onto a flagged point. rev maps current points to
// the points errorPoint is defined on. It returns the number of incremented
// points.
func (pe *PointErrors) Increment(errorPoint []bool, rev []int) (n int) {
	for o, c := range pe.current {
		if c < 0 || c >= len(rev) {
			continue
		}
		if p := rev[c]; p >= 0 && errorPoint[p] {
			pe.counts[o]++
			n++
		}
	}
	return n
}

// Exceeded reports whether original point o is past the error ceiling.
func (pe *PointErrors) Exceeded(o int) bool {
	return pe.counts[o] > pe.ceiling
}

// Excluded flags the points of a current mesh of nCurrent points that carry
// an original point past the error ceiling.
func (pe *PointErrors) Excluded(nCurrent int) []bool {
	excl := make([]bool, nCurrent)
	for o, c := range pe.current {
		if c >= 0 && pe.Exceeded(o) {
			excl[c] = true
		}
	}
	return excl
}

// Remap moves the tracker onto a new current mesh given the reverse point
// map from the old current mesh.
func (pe *PointErrors) Remap(rev []int) error {
	for o, c := range pe.current {
		if c < 0 {
			continue
		}
		if c >= len(rev) {
			return fmt.Errorf("meshfilter: point %d missing from reverse map of %d points", c, len(rev))
		}
		pe.current[o] = rev[c]
	}
	return nil
}

// Counts returns a copy of the error count of every original point.
func (pe *PointErrors) Counts() []int {
	return append([]int(nil), pe.counts...)
}

// Current returns a copy of the original to current point map.
func (pe *PointErrors) Current() []int {
	return append([]int(nil), pe.current...)
}
