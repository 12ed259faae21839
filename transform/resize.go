package transform

import (
	"fmt"
	"image"

	"github.com/swdee/go-cocohelper"
	"gocv.io/x/gocv"
)

// Resize scales images to a fixed size without keeping the aspect ratio
type Resize struct {
	width  int
	height int
}

// NewResize returns a Resize to width x height pixels
func NewResize(width, height int) (*Resize, error) {

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("resize size must be positive, got %dx%d", width, height)
	}

	return &Resize{width: width, height: height}, nil
}

// Size returns the output width and height
func (r *Resize) Size() (int, int) {
	return r.width, r.height
}

// interpolation picks area sampling when shrinking and cubic when enlarging
func interpolation(srcW, srcH, dstW, dstH int) gocv.InterpolationFlags {

	switch src, dst := srcW*srcH, dstW*dstH; {
	case src > dst:
		return gocv.InterpolationArea
	case src < dst:
		return gocv.InterpolationCubic
	}

	return gocv.InterpolationLinear
}

// Apply implements cocohelper.Transform
func (r *Resize) Apply(img gocv.Mat, anns []cocohelper.Annotation) (gocv.Mat, []cocohelper.Annotation, error) {

	srcW, srcH := img.Cols(), img.Rows()

	if srcW == 0 || srcH == 0 {
		return gocv.NewMat(), nil, fmt.Errorf("can not resize an empty image")
	}

	var dst gocv.Mat

	if srcW == r.width && srcH == r.height {
		dst = img.Clone()
	} else {
		dst = gocv.NewMat()
		gocv.Resize(img, &dst, image.Pt(r.width, r.height), 0, 0,
			interpolation(srcW, srcH, r.width, r.height))
	}

	rx := float64(r.width) / float64(srcW)
	ry := float64(r.height) / float64(srcH)

	scale := func(x, y float64) (float64, float64) {
		return x * rx, y * ry
	}

	out := make([]cocohelper.Annotation, 0, len(anns))

	for _, a := range anns {

		b := a.BBox
		a.BBox = roundBox(cocohelper.BBox{b[0] * rx, b[1] * ry, b[2] * rx, b[3] * ry})
		a.Area = a.BBox.Area()

		seg, err := mapSegmentation(a.Segmentation, srcH, srcW, r.height, r.width, scale)

		if err != nil {
			dst.Close()
			return gocv.NewMat(), nil, fmt.Errorf("error resizing annotation %d: %w", a.ID, err)
		}

		a.Segmentation = seg
		out = append(out, a)
	}

	return dst, out, nil
}
