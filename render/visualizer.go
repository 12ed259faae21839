package render

import (
	"fmt"

	"github.com/swdee/go-cocohelper"
	"gocv.io/x/gocv"
)

// Options select what Draw renders
type Options struct {
	Font          Font
	LineThickness int
	// Alpha is the opacity of the segmentation overlay
	Alpha    float32
	Boxes    bool
	Masks    bool
	Outlines bool
	// MinArea and Epsilon filter and simplify the outline contours
	MinArea float64
	Epsilon float64
}

// DefaultOptions draws boxes and translucent masks
func DefaultOptions() Options {
	return Options{
		Font:          DefaultFont(),
		LineThickness: 1,
		Alpha:         0.5,
		Boxes:         true,
		Masks:         true,
		MinArea:       1,
		Epsilon:       1,
	}
}

// CategoryIndex maps the categories by id
func CategoryIndex(cats []cocohelper.Category) map[int64]cocohelper.Category {

	out := make(map[int64]cocohelper.Category, len(cats))

	for _, c := range cats {
		out[c.ID] = c
	}

	return out
}

// Draw renders the annotations on img.  Grey images are converted to colour
// in place first.
func Draw(img *gocv.Mat, anns []cocohelper.Annotation, cats map[int64]cocohelper.Category, opts Options) error {

	if img.Channels() == 1 {
		gocv.CvtColor(*img, img, gocv.ColorGrayToBGR)
	}

	if opts.Masks {
		if err := SegmentMask(img, anns, opts.Alpha); err != nil {
			return err
		}
	}

	if opts.Outlines {
		if err := SegmentOutline(img, anns, cats, opts.Font, opts.LineThickness, opts.MinArea, opts.Epsilon); err != nil {
			return err
		}
	}

	if opts.Boxes {
		Boxes(img, anns, cats, opts.Font, opts.LineThickness)
	}

	return nil
}

// Sample loads an image of the dataset and renders its annotations, the
// caller must Close the returned Mat
func Sample(d *cocohelper.Dataset, l cocohelper.Lookup, opts Options) (gocv.Mat, error) {

	s, err := d.GetImgSample(l, nil)

	if err != nil {
		return gocv.NewMat(), err
	}

	if err := Draw(&s.Image, s.Annotations, CategoryIndex(d.Categories()), opts); err != nil {
		s.Image.Close()
		return gocv.NewMat(), fmt.Errorf("error rendering image %d: %w", s.Data.ID, err)
	}

	return s.Image, nil
}
