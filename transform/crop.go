package transform

import (
	"fmt"
	"image"
	"math/rand"

	clipper "github.com/ctessum/go.clipper"
	"github.com/swdee/go-cocohelper"
	"github.com/swdee/go-cocohelper/internal/logging"
	"github.com/swdee/go-cocohelper/segmentation"
	"gocv.io/x/gocv"
)

// clipScale converts polygon coordinates to the integer grid used by clipper
const clipScale = 1000

// checkBox validates a crop window given in mode units
func checkBox(x, y, w, h float64, mode SizeMode) error {

	if x < 0 || y < 0 {
		return fmt.Errorf("crop origin must not be negative, got (%v, %v)", x, y)
	}

	if w <= 0 || h <= 0 {
		return fmt.Errorf("crop size must be positive, got %vx%v", w, h)
	}

	if mode == Percentage && (x+w > 1 || y+h > 1) {
		return fmt.Errorf("percentage crop window must fit in [0, 1], got x+w=%v y+h=%v", x+w, y+h)
	}

	return nil
}

// toPixels converts a crop window to pixels of a width x height image
func toPixels(x, y, w, h float64, mode SizeMode, width, height int) image.Rectangle {

	if mode == Percentage {
		x *= float64(width)
		w *= float64(width)
		y *= float64(height)
		h *= float64(height)
	}

	return image.Rect(int(x), int(y), int(x)+int(w), int(y)+int(h))
}

// Crop cuts a fixed window out of every image
type Crop struct {
	x, y, w, h float64
	mode       SizeMode
}

// NewCrop returns a Crop of the window at x, y of size w x h.  In Percentage
// mode the values are fractions of the image size.
func NewCrop(x, y, w, h float64, mode SizeMode) (*Crop, error) {

	if err := checkBox(x, y, w, h, mode); err != nil {
		return nil, err
	}

	return &Crop{x: x, y: y, w: w, h: h, mode: mode}, nil
}

// Apply implements cocohelper.Transform
func (c *Crop) Apply(img gocv.Mat, anns []cocohelper.Annotation) (gocv.Mat, []cocohelper.Annotation, error) {
	return cropImage(img, anns, toPixels(c.x, c.y, c.w, c.h, c.mode, img.Cols(), img.Rows()))
}

// CenterCrop cuts a window of fixed size around the image centre
type CenterCrop struct {
	w, h float64
	mode SizeMode
}

// NewCenterCrop returns a CenterCrop of size w x h
func NewCenterCrop(w, h float64, mode SizeMode) (*CenterCrop, error) {

	if err := checkBox(0, 0, w, h, mode); err != nil {
		return nil, err
	}

	return &CenterCrop{w: w, h: h, mode: mode}, nil
}

// Apply implements cocohelper.Transform
func (c *CenterCrop) Apply(img gocv.Mat, anns []cocohelper.Annotation) (gocv.Mat, []cocohelper.Annotation, error) {

	r := toPixels(0, 0, c.w, c.h, c.mode, img.Cols(), img.Rows())
	x := img.Cols()/2 - r.Dx()/2
	y := img.Rows()/2 - r.Dy()/2

	return cropImage(img, anns, r.Add(image.Pt(x, y)))
}

// RandomCrop cuts a window of fixed size at a random position
type RandomCrop struct {
	w, h float64
	mode SizeMode
	rng  *rand.Rand
}

// NewRandomCrop returns a RandomCrop of size w x h placed with rng
func NewRandomCrop(rng *rand.Rand, w, h float64, mode SizeMode) (*RandomCrop, error) {

	if err := checkBox(0, 0, w, h, mode); err != nil {
		return nil, err
	}

	if rng == nil {
		return nil, fmt.Errorf("a random source is required")
	}

	return &RandomCrop{w: w, h: h, mode: mode, rng: rng}, nil
}

// Apply implements cocohelper.Transform
func (c *RandomCrop) Apply(img gocv.Mat, anns []cocohelper.Annotation) (gocv.Mat, []cocohelper.Annotation, error) {

	r := toPixels(0, 0, c.w, c.h, c.mode, img.Cols(), img.Rows())

	var x, y int

	if maxX := img.Cols() - r.Dx(); maxX > 0 {
		x = int(c.rng.Float64() * float64(maxX))
	}

	if maxY := img.Rows() - r.Dy(); maxY > 0 {
		y = int(c.rng.Float64() * float64(maxY))
	}

	return cropImage(img, anns, r.Add(image.Pt(x, y)))
}

// cropImage cuts win out of img, clipping the window to the image first.
// Annotations are clipped to the window and moved to its origin, those left
// without a box are dropped.
func cropImage(img gocv.Mat, anns []cocohelper.Annotation, win image.Rectangle) (gocv.Mat, []cocohelper.Annotation, error) {

	bounds := image.Rect(0, 0, img.Cols(), img.Rows())

	if !win.In(bounds) {
		logging.Logger().Warn("crop window clipped to the image", "window", win, "image", bounds)
		win = win.Intersect(bounds)
	}

	if win.Empty() {
		return gocv.NewMat(), nil, fmt.Errorf("crop window does not overlap the %dx%d image", bounds.Dx(), bounds.Dy())
	}

	region := img.Region(win)
	dst := region.Clone()
	region.Close()

	out := make([]cocohelper.Annotation, 0, len(anns))

	for _, a := range anns {

		b, ok := cropBox(a.BBox, win)

		if !ok {
			continue
		}

		a.BBox = b
		a.Area = b.Area()

		seg, err := cropSegmentation(a.Segmentation, img.Rows(), img.Cols(), win)

		if err != nil {
			dst.Close()
			return gocv.NewMat(), nil, fmt.Errorf("error cropping annotation %d: %w", a.ID, err)
		}

		a.Segmentation = seg
		out = append(out, a)
	}

	return dst, out, nil
}

// cropBox intersects a box with the window and returns it relative to the
// window origin, ok is false when nothing is left
func cropBox(b cocohelper.BBox, win image.Rectangle) (cocohelper.BBox, bool) {

	x0 := max(b[0], float64(win.Min.X))
	y0 := max(b[1], float64(win.Min.Y))
	x1 := min(b[0]+b[2], float64(win.Max.X))
	y1 := min(b[1]+b[3], float64(win.Max.Y))

	if x1 <= x0 || y1 <= y0 {
		return cocohelper.BBox{}, false
	}

	ox, oy := float64(win.Min.X), float64(win.Min.Y)

	return cocohelper.BBox{x0 - ox, y0 - oy, x1 - x0, y1 - y0}, true
}

// cropSegmentation clips the segmentation polygons to the window and encodes
// the result for the cropped image in the original mode
func cropSegmentation(s segmentation.Segmentation, height, width int, win image.Rectangle) (segmentation.Segmentation, error) {

	if s.IsEmpty() {
		return s, nil
	}

	polys, err := polygonsOf(s, height, width)

	if err != nil {
		return segmentation.Segmentation{}, fmt.Errorf("error converting segmentation to polygons: %w", err)
	}

	var out []segmentation.Polygon

	for _, p := range polys {
		out = append(out, clipPolygon(p, win)...)
	}

	return restore(out, s.Mode, win.Dy(), win.Dx())
}

// clipPolygon intersects one polygon with the window, the pieces are returned
// relative to the window origin
func clipPolygon(p segmentation.Polygon, win image.Rectangle) []segmentation.Polygon {

	if len(p) < 6 {
		return nil
	}

	var subj clipper.Path

	for i := 0; i+1 < len(p); i += 2 {
		subj = append(subj, &clipper.IntPoint{
			X: clipper.CInt(p[i] * clipScale),
			Y: clipper.CInt(p[i+1] * clipScale),
		})
	}

	x0, y0 := clipper.CInt(win.Min.X*clipScale), clipper.CInt(win.Min.Y*clipScale)
	x1, y1 := clipper.CInt(win.Max.X*clipScale), clipper.CInt(win.Max.Y*clipScale)

	clip := clipper.Path{
		&clipper.IntPoint{X: x0, Y: y0},
		&clipper.IntPoint{X: x1, Y: y0},
		&clipper.IntPoint{X: x1, Y: y1},
		&clipper.IntPoint{X: x0, Y: y1},
	}

	c := clipper.NewClipper(clipper.IoNone)
	c.AddPath(subj, clipper.PtSubject, true)
	c.AddPath(clip, clipper.PtClip, true)

	sol, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero, clipper.PftNonZero)

	if !ok {
		return nil
	}

	var out []segmentation.Polygon

	for _, path := range sol {

		if len(path) < 3 {
			continue
		}

		np := make(segmentation.Polygon, 0, 2*len(path))

		for _, pt := range path {
			np = append(np,
				float64(pt.X)/clipScale-float64(win.Min.X),
				float64(pt.Y)/clipScale-float64(win.Min.Y))
		}

		out = append(out, np)
	}

	return out
}
