package meshgen

import (
	"testing"

	"github.com/soypat/meshfilter/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitBox() r3.Box {
	return r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}
}

func totalVolume(m *mesh.Mesh) (v float64) {
	for _, cv := range m.CellVolumes() {
		v += cv
	}
	return v
}

func TestHexBlock(t *testing.T) {
	m, err := Block{Bounds: unitBox(), Div: [3]int{2, 2, 2}}.Mesh()
	require.NoError(t, err)
	assert.Equal(t, 27, m.NPoints())
	assert.Equal(t, 8, m.NCells())
	assert.Equal(t, 12, m.NInternalFaces())
	assert.Equal(t, 36, m.NFaces())
	assert.Equal(t, 54, m.NEdges())
	assert.InDelta(t, 1.0, totalVolume(m), 1e-12)
	require.NoError(t, m.CheckTopology())
	for s, p := range m.Patches() {
		assert.Equal(t, Side(s).String(), p.Name)
		assert.Equal(t, 4, p.Size, "patch %s", p.Name)
		assert.Equal(t, mesh.Wall, p.Kind)
	}
}

func TestTetBlock(t *testing.T) {
	m, err := Block{Bounds: unitBox(), Div: [3]int{2, 2, 2}, Tetrahedra: true}.Mesh()
	require.NoError(t, err)
	assert.Equal(t, 48, m.NCells())
	assert.InDelta(t, 1.0, totalVolume(m), 1e-12)
	for c, v := range m.CellVolumes() {
		assert.InDelta(t, 1.0/48, v, 1e-12, "cell %d", c)
	}
	require.NoError(t, m.CheckTopology())
	for _, p := range m.Patches() {
		assert.Equal(t, 8, p.Size, "patch %s", p.Name)
	}
}

func TestJitteredBlock(t *testing.T) {
	b := Block{Bounds: unitBox(), Div: [3]int{3, 3, 3}, Jitter: 0.2, Seed: 7, Processor: []Side{XMax}}
	m, err := b.Mesh()
	require.NoError(t, err)
	require.NoError(t, m.CheckTopology())
	assert.InDelta(t, 1.0, totalVolume(m), 1e-9)
	for c, v := range m.CellVolumes() {
		assert.Positive(t, v, "cell %d", c)
	}
	assert.Equal(t, mesh.Processor, m.Patches()[XMax].Kind)

	again, err := b.Mesh()
	require.NoError(t, err)
	assert.Equal(t, m.Points(), again.Points())
}

func TestJitterSeeds(t *testing.T) {
	for _, tets := range []bool{false, true} {
		jitter := 0.3
		if tets {
			jitter = 0.08
		}
		for seed := int64(0); seed < 50; seed++ {
			b := Block{Bounds: unitBox(), Div: [3]int{4, 4, 4}, Tetrahedra: tets, Jitter: jitter, Seed: seed}
			m, err := b.Mesh()
			require.NoError(t, err, "tets=%v seed %d", tets, seed)
			require.NoError(t, m.CheckTopology(), "tets=%v seed %d", tets, seed)
			assert.InDelta(t, 1.0, totalVolume(m), 1e-9, "tets=%v seed %d", tets, seed)
		}
	}
}

func TestJitterLimits(t *testing.T) {
	for _, b := range []Block{
		{Jitter: -0.1},
		{Jitter: MaxHexJitter},
		{Jitter: 0.3, Tetrahedra: true},
		{Jitter: MaxTetJitter, Tetrahedra: true},
	} {
		b.Bounds, b.Div = unitBox(), [3]int{2, 2, 2}
		_, err := b.Mesh()
		assert.Error(t, err, "jitter %g tets=%v", b.Jitter, b.Tetrahedra)
	}
}

func TestBlockCoords(t *testing.T) {
	b := Block{
		Bounds: unitBox(),
		Div:    [3]int{3, 1, 1},
		Coords: [3][]float64{{0, 1, 1.01, 2}},
	}
	m, err := b.Mesh()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, totalVolume(m), 1e-12)
	assert.InDelta(t, 0.01, m.CellVolumes()[1], 1e-12)

	b.Coords[0] = []float64{0, 1, 1}
	_, err = b.Mesh()
	assert.Error(t, err)
	b.Coords[0] = []float64{0, 1, 0.5, 2}
	_, err = b.Mesh()
	assert.Error(t, err)
	_, err = Block{Bounds: unitBox()}.Mesh()
	assert.Error(t, err)
}

func TestParseSide(t *testing.T) {
	for s := Side(0); s < nSides; s++ {
		got, err := ParseSide(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseSide("top")
	assert.Error(t, err)
}

func TestShortEdgeCube(t *testing.T) {
	m, err := ShortEdgeCube(0.001)
	require.NoError(t, err)
	require.NoError(t, m.CheckTopology())
	assert.Equal(t, 13, m.NEdges())
	assert.InDelta(t, 1.0, totalVolume(m), 1e-12)
	e := m.FindEdge(4, 8)
	require.GreaterOrEqual(t, e, 0)
	assert.InDelta(t, 0.001, m.EdgeLength(e), 1e-15)
	assert.Len(t, m.PointEdges()[8], 2)
}
