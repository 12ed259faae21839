package transform

import (
	"fmt"
	"math/rand"

	"github.com/swdee/go-cocohelper"
	"gocv.io/x/gocv"
)

// Flip mirrors images around their vertical axis (Horizontal) and or their
// horizontal axis (Vertical)
type Flip struct {
	Horizontal bool
	Vertical   bool
}

// Apply implements cocohelper.Transform
func (f Flip) Apply(img gocv.Mat, anns []cocohelper.Annotation) (gocv.Mat, []cocohelper.Annotation, error) {

	if !f.Horizontal && !f.Vertical {
		return img.Clone(), append([]cocohelper.Annotation(nil), anns...), nil
	}

	dst := gocv.NewMat()

	switch {
	case f.Horizontal && f.Vertical:
		gocv.Flip(img, &dst, -1)
	case f.Horizontal:
		gocv.Flip(img, &dst, 1)
	default:
		gocv.Flip(img, &dst, 0)
	}

	w, h := float64(img.Cols()), float64(img.Rows())

	mirror := func(x, y float64) (float64, float64) {
		if f.Horizontal {
			x = w - x
		}
		if f.Vertical {
			y = h - y
		}
		return x, y
	}

	out := make([]cocohelper.Annotation, 0, len(anns))

	for _, a := range anns {

		b := a.BBox

		if f.Horizontal {
			b[0] = w - (b[0] + b[2])
		}

		if f.Vertical {
			b[1] = h - (b[1] + b[3])
		}

		a.BBox = b

		seg, err := mapSegmentation(a.Segmentation, img.Rows(), img.Cols(), img.Rows(), img.Cols(), mirror)

		if err != nil {
			dst.Close()
			return gocv.NewMat(), nil, fmt.Errorf("error flipping annotation %d: %w", a.ID, err)
		}

		a.Segmentation = seg
		out = append(out, a)
	}

	return dst, out, nil
}

// RandomFlip flips each image horizontally and vertically with the given
// probabilities
type RandomFlip struct {
	HorizontalProb float64
	VerticalProb   float64
	rng            *rand.Rand
}

// NewRandomFlip returns a RandomFlip drawing from rng.  Probabilities must be
// in [0, 1].
func NewRandomFlip(rng *rand.Rand, horizontalProb, verticalProb float64) (*RandomFlip, error) {

	if horizontalProb < 0 || horizontalProb > 1 || verticalProb < 0 || verticalProb > 1 {
		return nil, fmt.Errorf("flip probabilities must be in [0, 1], got %v and %v",
			horizontalProb, verticalProb)
	}

	if rng == nil {
		return nil, fmt.Errorf("a random source is required")
	}

	return &RandomFlip{HorizontalProb: horizontalProb, VerticalProb: verticalProb, rng: rng}, nil
}

// Apply implements cocohelper.Transform
func (r *RandomFlip) Apply(img gocv.Mat, anns []cocohelper.Annotation) (gocv.Mat, []cocohelper.Annotation, error) {

	f := Flip{
		Horizontal: r.rng.Float64() < r.HorizontalProb,
		Vertical:   r.rng.Float64() < r.VerticalProb,
	}

	return f.Apply(img, anns)
}
