// Package transform provides image transformations that keep the COCO
// annotations of the image in step with its pixels.
package transform

import (
	"fmt"
	"math"

	"github.com/swdee/go-cocohelper"
	"github.com/swdee/go-cocohelper/segmentation"
	"gocv.io/x/gocv"
)

// SizeMode tells how crop coordinates are interpreted
type SizeMode int

const (
	// Pixels are absolute image coordinates
	Pixels SizeMode = iota
	// Percentage are fractions of the image width and height in [0, 1]
	Percentage
)

// Compose runs transforms one after the other
type Compose []cocohelper.Transform

// Apply implements cocohelper.Transform.  An empty Compose returns a copy of
// the image and the annotations unchanged.
func (c Compose) Apply(img gocv.Mat, anns []cocohelper.Annotation) (gocv.Mat, []cocohelper.Annotation, error) {

	cur := img
	owned := false

	for i, t := range c {

		out, tanns, err := t.Apply(cur, anns)

		if owned {
			cur.Close()
		}

		if err != nil {
			return gocv.NewMat(), nil, fmt.Errorf("error in transform %d: %w", i, err)
		}

		cur, anns, owned = out, tanns, true
	}

	if !owned {
		return img.Clone(), anns, nil
	}

	return cur, anns, nil
}

// geometry maps a polygon point to its transformed position
type geometry func(x, y float64) (float64, float64)

// polygonsOf returns the segmentation as polygons, decoding run length
// encodings with the image size
func polygonsOf(s segmentation.Segmentation, height, width int) ([]segmentation.Polygon, error) {

	if s.Mode == segmentation.ModePolygon {
		return s.Polygons, nil
	}

	p, err := segmentation.Convert(s, segmentation.ModePolygon, height, width, segmentation.PolygonOptions{})

	if err != nil {
		return nil, err
	}

	return p.Polygons, nil
}

// restore encodes polygons of a height x width image back into mode
func restore(polys []segmentation.Polygon, mode segmentation.Mode, height, width int) (segmentation.Segmentation, error) {

	if mode == segmentation.ModePolygon {
		return segmentation.FromPolygons(polys...), nil
	}

	m, err := segmentation.DecodePolygons(polys, height, width, 0)

	if err != nil {
		return segmentation.Segmentation{}, err
	}

	return segmentation.Encode(m, mode, segmentation.PolygonOptions{})
}

// mapSegmentation moves every vertex of the segmentation with g.  The source
// image is srcH x srcW, the result is encoded for a dstH x dstW image in the
// mode of the input.
func mapSegmentation(s segmentation.Segmentation, srcH, srcW, dstH, dstW int, g geometry) (segmentation.Segmentation, error) {

	if s.IsEmpty() {
		return s, nil
	}

	polys, err := polygonsOf(s, srcH, srcW)

	if err != nil {
		return segmentation.Segmentation{}, fmt.Errorf("error converting segmentation to polygons: %w", err)
	}

	out := make([]segmentation.Polygon, 0, len(polys))

	for _, p := range polys {
		np := make(segmentation.Polygon, 0, len(p))
		for i := 0; i+1 < len(p); i += 2 {
			x, y := g(p[i], p[i+1])
			np = append(np, x, y)
		}
		out = append(out, np)
	}

	return restore(out, s.Mode, dstH, dstW)
}

// roundBox rounds every bbox value to the nearest integer
func roundBox(b cocohelper.BBox) cocohelper.BBox {
	return cocohelper.BBox{math.Round(b[0]), math.Round(b[1]), math.Round(b[2]), math.Round(b[3])}
}
