package render

import (
	"errors"
	"image"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/meshfilter/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// View configures the camera of a preview image.
type View struct {
	// Width and Height of the output image in pixels.
	Width, Height int
	// Scale supersamples the image before downsampling it for antialiasing.
	Scale int
	// LookAt is the point looked at, Up the up direction and Eye the camera
	// position, all in the bi-unit cube the model is fitted into.
	LookAt, Up, Eye r3.Vec
	Near, Far       float64
	// Fovy is the vertical field of view in degrees.
	Fovy float64
	// Color and Background are hex colors.
	Color, Background string
}

// DefaultView returns an isometric view.
func DefaultView() View {
	return View{
		Width:      768,
		Height:     432,
		Scale:      2,
		Up:         r3.Vec{Z: 1},
		Eye:        d3.Elem(2.4),
		Near:       1,
		Far:        10,
		Fovy:       30,
		Color:      "#468966",
		Background: "#FFF8E3",
	}
}

// Preview shades the triangles as seen from view.
func Preview(model []r3.Triangle, view View) (image.Image, error) {
	if len(model) == 0 {
		return nil, errors.New("empty triangle slice")
	}
	if view.Width <= 0 || view.Height <= 0 {
		return nil, errors.New("preview size must be positive")
	}
	scale := max(view.Scale, 1)
	tris := make([]*fauxgl.Triangle, len(model))
	for i, t := range model {
		tris[i] = fauxgl.NewTriangleForPoints(fauxglVec(t[0]), fauxglVec(t[1]), fauxglVec(t[2]))
	}
	mesh := fauxgl.NewTriangleMesh(tris)
	// fit mesh in a bi-unit cube centered at the origin
	mesh.BiUnitCube()

	var (
		eye    = fauxglVec(view.Eye)
		center = fauxglVec(view.LookAt)
		up     = fauxglVec(view.Up)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		aspect = float64(view.Width) / float64(view.Height)
	)
	context := fauxgl.NewContext(view.Width*scale, view.Height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor(view.Background))
	matrix := fauxgl.LookAt(eye, center, up).Perspective(view.Fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = fauxgl.HexColor(view.Color)
	context.Shader = shader
	context.DrawMesh(mesh)
	img := context.Image()
	if scale > 1 {
		img = resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear)
	}
	return img, nil
}

// SavePNG writes a preview of model to a PNG file at path.
func SavePNG(path string, model []r3.Triangle, view View) error {
	img, err := Preview(model, view)
	if err != nil {
		return err
	}
	return fauxgl.SavePNG(path, img)
}

func fauxglVec(v r3.Vec) fauxgl.Vector {
	return fauxgl.V(v.X, v.Y, v.Z)
}
