package d3

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is a 3d axis aligned bounding box.
type Box r3.Box

// BoundingBox returns the smallest box containing every point of s.
func BoundingBox(s Set) Box {
	if len(s) == 0 {
		return Box{}
	}
	return Box{Min: s.Min(), Max: s.Max()}
}

// Jitter returns v displaced by a uniformly random offset in [-amp, amp]
// along each axis drawn from rng.
func Jitter(rng *rand.Rand, v, amp r3.Vec) r3.Vec {
	return r3.Vec{
		X: v.X + amp.X*(2*rng.Float64()-1),
		Y: v.Y + amp.Y*(2*rng.Float64()-1),
		Z: v.Z + amp.Z*(2*rng.Float64()-1),
	}
}
