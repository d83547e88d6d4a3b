package d3

import "gonum.org/v1/gonum/spatial/r3"

// Polygon returns the centre and area vector of the planar or warped polygon
// with vertices pts. The polygon is decomposed into a triangle fan about the
// vertex average and the centre is the area weighted mean of the triangle
// centres. The area vector follows the right hand rule of the vertex order.
func Polygon(pts []r3.Vec) (centre, area r3.Vec) {
	if len(pts) == 3 {
		centre = r3.Scale(1./3, r3.Add(pts[0], r3.Add(pts[1], pts[2])))
		area = r3.Scale(0.5, r3.Cross(r3.Sub(pts[1], pts[0]), r3.Sub(pts[2], pts[0])))
		return centre, area
	}
	avg := Set(pts).Centroid()
	var sumN, sumAc r3.Vec
	var sumA float64
	for i, p := range pts {
		next := pts[(i+1)%len(pts)]
		c := r3.Add(p, r3.Add(next, avg))
		n := r3.Cross(r3.Sub(next, p), r3.Sub(avg, p))
		a := r3.Norm(n)
		sumN = r3.Add(sumN, n)
		sumA += a
		sumAc = r3.Add(sumAc, r3.Scale(a, c))
	}
	if sumA < VSmall {
		centre = avg
	} else {
		centre = r3.Scale(1/(3*sumA), sumAc)
	}
	return centre, r3.Scale(0.5, sumN)
}
