package render

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fogleman/fauxgl"
	"github.com/soypat/meshfilter/helpers/meshgen"
	"github.com/soypat/meshfilter/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitBlock(t *testing.T, div int, procs ...meshgen.Side) *mesh.Mesh {
	t.Helper()
	m, err := meshgen.Block{
		Bounds:    r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}},
		Div:       [3]int{div, div, div},
		Processor: procs,
	}.Mesh()
	require.NoError(t, err)
	return m
}

func surfaceArea(tris []r3.Triangle) (a float64) {
	for _, t := range tris {
		a += 0.5 * r3.Norm(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
	}
	return a
}

func TestSurface(t *testing.T) {
	m := unitBlock(t, 2)
	tris := Surface(m)
	// 24 boundary quads split into four triangles each.
	assert.Len(t, tris, 96)
	assert.InDelta(t, 6.0, surfaceArea(tris), 1e-12)

	// Triangles face out of the block.
	centre := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	for i, tri := range tris {
		n := r3.Cross(r3.Sub(tri[1], tri[0]), r3.Sub(tri[2], tri[0]))
		assert.Positive(t, r3.Dot(n, r3.Sub(tri[0], centre)), "triangle %d", i)
	}
}

func TestSurfaceSkipsProcessorPatches(t *testing.T) {
	m := unitBlock(t, 1, meshgen.XMax)
	assert.InDelta(t, 5.0, surfaceArea(Surface(m)), 1e-12)
	proc := NewSurface(m, int(meshgen.XMax))
	tris, err := RenderAll(proc)
	require.NoError(t, err)
	assert.Len(t, tris, 4)
}

func TestSurfaceRendererSmallBuffer(t *testing.T) {
	m := unitBlock(t, 2)
	r := NewSurface(m)
	var got []r3.Triangle
	buf := make([]r3.Triangle, 3)
	for {
		n, err := r.ReadTriangles(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, Surface(m), got)
}

func TestSTLWriteReadback(t *testing.T) {
	m, err := meshgen.Block{Bounds: r3.Box{Max: r3.Vec{X: 3, Y: 2, Z: 1}}, Div: [3]int{3, 2, 1}}.Mesh()
	require.NoError(t, err)
	input := Surface(m)
	var b bytes.Buffer
	require.NoError(t, WriteSTL(&b, input))
	assert.Equal(t, 84+50*len(input), b.Len())

	output, err := ReadSTL(&b)
	require.NoError(t, err)
	require.Len(t, output, len(input))
	for i := range input {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, 0, r3.Norm(r3.Sub(input[i][j], output[i][j])), 1e-6)
		}
	}

	assert.Error(t, WriteSTL(&b, nil))
	_, err = ReadSTL(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestReadSTLNormalMismatch(t *testing.T) {
	tri := r3.Triangle{{}, {X: 1}, {Y: 1}}
	var b bytes.Buffer
	require.NoError(t, WriteSTL(&b, []r3.Triangle{tri}))
	raw := b.Bytes()
	// Flip the stored normal.
	d := toSTL(tri)
	d.Normal[2] = -d.Normal[2]
	d.put(raw[84:])
	out, err := ReadSTL(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrNormalMismatch)
	assert.Len(t, out, 1)
}

func TestCreateSTLMatchesWriteSTL(t *testing.T) {
	m := unitBlock(t, 3)
	path := filepath.Join(t.TempDir(), "block.stl")
	require.NoError(t, CreateSTL(path, NewSurface(m)))
	file, err := os.ReadFile(path)
	require.NoError(t, err)

	var b bytes.Buffer
	require.NoError(t, WriteSTL(&b, Surface(m)))
	assert.Equal(t, b.Bytes(), file)

	// fauxgl reads back the same surface.
	fm, err := fauxgl.LoadSTL(path)
	require.NoError(t, err)
	assert.Len(t, fm.Triangles, 54*4)
	box := fm.BoundingBox()
	assert.InDelta(t, 0, box.Min.X, 1e-6)
	assert.InDelta(t, 1, box.Max.Z, 1e-6)
}

func TestPreview(t *testing.T) {
	view := DefaultView()
	view.Width, view.Height = 64, 48
	img, err := Preview(Surface(unitBlock(t, 1)), view)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())

	// The block covers the centre of the image.
	bg := fauxgl.HexColor(view.Background)
	r, g, bl, _ := img.At(32, 24).RGBA()
	br, bgG, bb, _ := bg.NRGBA().RGBA()
	assert.False(t, r == br && g == bgG && bl == bb)

	_, err = Preview(nil, view)
	assert.Error(t, err)
}
