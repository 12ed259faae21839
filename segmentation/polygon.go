package segmentation

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// DefaultSimplifyTolerance is the Douglas-Peucker tolerance used when
// extracting polygons from masks
const DefaultSimplifyTolerance = 1.0

// PolygonOptions control mask to polygon conversion.  A SimplifyTolerance of
// zero keeps every contour vertex, use DefaultPolygonOptions for the usual
// tolerance.  A CompressionFactor above 1 downsamples the mask by that factor
// before tracing the contours and scales the coordinates back up.
type PolygonOptions struct {
	SimplifyTolerance float64
	CompressionFactor float64
	// Background is the label written to empty pixels when rasterising
	Background uint8
}

// DefaultPolygonOptions returns the options used when none are given
func DefaultPolygonOptions() PolygonOptions {
	return PolygonOptions{SimplifyTolerance: DefaultSimplifyTolerance, CompressionFactor: 1}
}

// EncodePolygons traces the outer contour of every non-zero label of the mask
// and returns them as flat coordinate polygons.  Contours with less than three
// vertices after simplification are discarded.
func EncodePolygons(m Mask, opts PolygonOptions) ([]Polygon, error) {

	work := m
	scaleX, scaleY := 1.0, 1.0

	if f := opts.CompressionFactor; f > 1 {
		h := max(1, int(math.Round(float64(m.Height)/f)))
		w := max(1, int(math.Round(float64(m.Width)/f)))

		var err error
		work, err = resizeNearest(m, h, w)

		if err != nil {
			return nil, fmt.Errorf("error downsampling mask: %w", err)
		}

		scaleX = float64(m.Width) / float64(w)
		scaleY = float64(m.Height) / float64(h)
	}

	labels, err := work.ToMat()

	if err != nil {
		return nil, err
	}

	defer labels.Close()

	polys := make([]Polygon, 0)

	for _, cls := range work.Classes() {

		// isolate the pixels of this label
		objMask := gocv.NewMat()
		lowerBound := gocv.Scalar{Val1: float64(cls)}
		upperBound := gocv.Scalar{Val1: float64(cls)}
		gocv.InRangeWithScalar(labels, lowerBound, upperBound, &objMask)

		contours := gocv.FindContours(objMask, gocv.RetrievalExternal, gocv.ChainApproxSimple)

		for i := 0; i < contours.Size(); i++ {
			contour := contours.At(i)

			if contour.Size() < 3 {
				continue
			}

			pts := contour.ToPoints()

			if opts.SimplifyTolerance > 0 {
				approx := gocv.ApproxPolyDP(contour, opts.SimplifyTolerance, true)
				pts = approx.ToPoints()
				approx.Close()
			}

			if len(pts) < 3 {
				continue
			}

			poly := make(Polygon, 0, len(pts)*2)

			for _, pt := range pts {
				poly = append(poly, float64(pt.X)*scaleX, float64(pt.Y)*scaleY)
			}

			polys = append(polys, poly)
		}

		contours.Close()
		objMask.Close()
	}

	return polys, nil
}

// DecodePolygons rasterises the polygons onto a height x width mask by filling
// and outlining each of them with label 1.  Pixels left empty receive the
// background label.
func DecodePolygons(polys []Polygon, height, width int, background uint8) (Mask, error) {

	canvas := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
	defer canvas.Close()

	canvas.SetTo(gocv.NewScalar(0, 0, 0, 0))

	fg := color.RGBA{R: 1, G: 1, B: 1, A: 1}

	for _, poly := range polys {

		if len(poly)%2 != 0 {
			return Mask{}, fmt.Errorf("%w: polygon has an odd number of coordinates", ErrFormat)
		}

		if len(poly) < 6 {
			continue
		}

		pts := make([]image.Point, 0, len(poly)/2)

		for i := 0; i < len(poly); i += 2 {
			pts = append(pts, image.Pt(int(math.Round(poly[i])), int(math.Round(poly[i+1]))))
		}

		ptsVec := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
		gocv.FillPoly(&canvas, ptsVec, fg)
		gocv.Polylines(&canvas, ptsVec, true, fg, 1)
		ptsVec.Close()
	}

	m, err := MaskFromMat(canvas)

	if err != nil {
		return Mask{}, err
	}

	if background != 0 {
		for i, v := range m.Data {
			if v == 0 {
				m.Data[i] = background
			}
		}
	}

	return m, nil
}

// PolygonArea returns the area enclosed by a flat coordinate polygon using the
// shoelace formula.  Polygons with less than three vertices have no area, a
// trailing unpaired coordinate is ignored.
func PolygonArea(p Polygon) float64 {

	n := len(p) / 2

	if n < 3 {
		return 0
	}

	var sum float64

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p[2*i]*p[2*j+1] - p[2*j]*p[2*i+1]
	}

	return math.Abs(sum) / 2
}

// Area returns the total area of a set of polygons
func Area(polys []Polygon) float64 {

	var total float64

	for _, p := range polys {
		total += PolygonArea(p)
	}

	return total
}
