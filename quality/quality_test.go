package quality

import (
	"math"
	"testing"

	"github.com/soypat/meshfilter/helpers/meshgen"
	"github.com/soypat/meshfilter/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func block(t *testing.T, b meshgen.Block) *mesh.Mesh {
	t.Helper()
	if b.Bounds == (r3.Box{}) {
		b.Bounds = r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}
	}
	m, err := b.Mesh()
	require.NoError(t, err)
	return m
}

func TestDefaultCoeffsGoodMesh(t *testing.T) {
	require.NoError(t, DefaultCoeffs().Validate())
	for _, tets := range []bool{false, true} {
		m := block(t, meshgen.Block{Div: [3]int{3, 3, 3}, Tetrahedra: tets})
		r := Evaluate(m, DefaultCoeffs())
		assert.Zero(t, r.Len(), "tetrahedra=%v: %v", tets, r.Fields())
	}
}

func TestMinArea(t *testing.T) {
	m := block(t, meshgen.Block{Div: [3]int{2, 2, 2}})
	c := DefaultCoeffs()
	c.MinArea = 2
	r := Evaluate(m, c)
	assert.Equal(t, m.NFaces(), r.Len())
	assert.Equal(t, m.NFaces(), r.Counts[Area])
	for _, flagged := range r.ErrorPoints(m) {
		assert.True(t, flagged)
	}
	assert.Equal(t, m.NFaces(), r.Fields()["area"])
}

func TestThinLayer(t *testing.T) {
	m := block(t, meshgen.Block{
		Div:    [3]int{3, 1, 1},
		Coords: [3][]float64{{0, 1, 1.001, 2}},
	})
	r := Evaluate(m, DefaultCoeffs())
	// Both faces of the thin cell fail the weight and volume ratio bounds.
	assert.Equal(t, 2, r.Counts[Weight])
	assert.Equal(t, 2, r.Counts[VolRatio])
	assert.Equal(t, []int{0, 1}, r.Faces)
}

func TestNonOrtho(t *testing.T) {
	m := block(t, meshgen.Block{Div: [3]int{2, 1, 1}, Bounds: r3.Box{Max: r3.Vec{X: 2, Y: 1, Z: 1}}})
	pts := append([]r3.Vec(nil), m.Points()...)
	for i, p := range pts {
		if p.X > 1.5 {
			pts[i].Y += 10
		}
	}
	sheared, err := mesh.New(pts, m.Faces(), m.Owner(), m.Neighbour(), m.Patches(), nil)
	require.NoError(t, err)
	r := Evaluate(sheared, DefaultCoeffs())
	assert.Equal(t, 1, r.Counts[NonOrtho])
	assert.Contains(t, r.Faces, 0)

	c := DefaultCoeffs()
	c.MaxNonOrtho = 180
	assert.Zero(t, Evaluate(sheared, c).Counts[NonOrtho])
}

// lPrism returns a single cell extruded from an L shaped polygon with a
// reflex corner at (1,1).
func lPrism(t *testing.T) *mesh.Mesh {
	t.Helper()
	base := []r3.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2}}
	var pts []r3.Vec
	for z := 0.; z <= 1; z++ {
		for _, b := range base {
			pts = append(pts, r3.Vec{X: b.X, Y: b.Y, Z: z})
		}
	}
	faces := []mesh.Face{{6, 7, 8, 9, 10, 11}, {0, 5, 4, 3, 2, 1}}
	for i := 0; i < 6; i++ {
		j := (i + 1) % 6
		faces = append(faces, mesh.Face{i, j, j + 6, i + 6})
	}
	m, err := mesh.New(pts, faces, make([]int, len(faces)), nil, []mesh.Patch{{Name: "walls", Kind: mesh.Wall, Size: len(faces)}}, nil)
	require.NoError(t, err)
	require.NoError(t, m.CheckTopology())
	return m
}

func TestConcave(t *testing.T) {
	m := lPrism(t)
	r := Evaluate(m, DefaultCoeffs())
	assert.Equal(t, 2, r.Counts[Concave])
	assert.Contains(t, r.Faces, 0)
	assert.Contains(t, r.Faces, 1)

	c := DefaultCoeffs()
	c.MaxConcave = 180
	c.MinTwist = -2
	r = Evaluate(m, c)
	assert.Zero(t, r.Counts[Concave])
	assert.Zero(t, r.Counts[Twist])
}

func TestAspectRatio(t *testing.T) {
	m := block(t, meshgen.Block{Div: [3]int{1, 1, 1}, Bounds: r3.Box{Max: r3.Vec{X: 10, Y: 1, Z: 1}}})
	c := DefaultCoeffs()
	assert.Zero(t, Evaluate(m, c).Counts[AspectRatio])
	c.MaxFaceAspectRatio = 5
	// Four side faces are 10x1, the two end faces are square.
	assert.Equal(t, 4, Evaluate(m, c).Counts[AspectRatio])
}

func TestValidate(t *testing.T) {
	bad := []func(*Coeffs){
		func(c *Coeffs) { c.MaxNonOrtho = 0 },
		func(c *Coeffs) { c.MaxNonOrtho = 190 },
		func(c *Coeffs) { c.MaxConcave = -1 },
		func(c *Coeffs) { c.MinTwist = 2 },
		func(c *Coeffs) { c.MinFaceWeight = 0.6 },
		func(c *Coeffs) { c.MinVolRatio = 1.5 },
		func(c *Coeffs) { c.MaxNonOrtho = math.NaN() },
		func(c *Coeffs) { c.MaxConcave = math.NaN() },
		func(c *Coeffs) { c.MinTwist = math.NaN() },
		func(c *Coeffs) { c.MinFaceWeight = math.NaN() },
		func(c *Coeffs) { c.MinVolRatio = math.NaN() },
		func(c *Coeffs) { c.MaxInternalSkewness = math.NaN() },
	}
	for i, mod := range bad {
		c := DefaultCoeffs()
		mod(&c)
		assert.ErrorIs(t, c.Validate(), errBadCoeffs, "case %d", i)
	}
}

func TestCheckString(t *testing.T) {
	assert.Equal(t, "nonOrtho", NonOrtho.String())
	assert.Equal(t, "aspectRatio", AspectRatio.String())
	assert.Equal(t, "Check(42)", Check(42).String())
}
