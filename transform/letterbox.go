package transform

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-cocohelper"
	"gocv.io/x/gocv"
)

// Letterbox scales images to fit a fixed size keeping their aspect ratio and
// pads the remaining border with Color
type Letterbox struct {
	width  int
	height int
	Color  color.RGBA
}

// NewLetterbox returns a Letterbox to width x height pixels with black padding
func NewLetterbox(width, height int) (*Letterbox, error) {

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("letterbox size must be positive, got %dx%d", width, height)
	}

	return &Letterbox{width: width, height: height, Color: color.RGBA{A: 255}}, nil
}

// letterbox parameters of one source image size
type letterbox struct {
	scale   float64
	xPad    int
	yPad    int
	resizeW int
	resizeH int
}

// fit calculates the scale and padding placing a srcW x srcH image in the
// letterbox
func (l *Letterbox) fit(srcW, srcH int) letterbox {

	p := letterbox{resizeW: l.width, resizeH: l.height}

	scaleW := float64(l.width) / float64(srcW)
	scaleH := float64(l.height) / float64(srcH)
	p.scale = scaleH

	if scaleW < scaleH {
		p.scale = scaleW
		p.resizeH = max(1, int(float64(srcH)*p.scale))
	} else {
		p.resizeW = max(1, int(float64(srcW)*p.scale))
	}

	p.yPad = (l.height - p.resizeH) / 2
	p.xPad = (l.width - p.resizeW) / 2

	return p
}

// Apply implements cocohelper.Transform
func (l *Letterbox) Apply(img gocv.Mat, anns []cocohelper.Annotation) (gocv.Mat, []cocohelper.Annotation, error) {

	srcW, srcH := img.Cols(), img.Rows()

	if srcW == 0 || srcH == 0 {
		return gocv.NewMat(), nil, fmt.Errorf("can not letterbox an empty image")
	}

	p := l.fit(srcW, srcH)

	tmp := gocv.NewMat()
	defer tmp.Close()

	gocv.Resize(img, &tmp, image.Pt(p.resizeW, p.resizeH), 0, 0,
		interpolation(srcW, srcH, p.resizeW, p.resizeH))

	dst := gocv.NewMat()

	gocv.CopyMakeBorder(tmp, &dst, p.yPad, l.height-p.resizeH-p.yPad,
		p.xPad, l.width-p.resizeW-p.xPad, gocv.BorderConstant, l.Color)

	rx := float64(p.resizeW) / float64(srcW)
	ry := float64(p.resizeH) / float64(srcH)
	xPad, yPad := float64(p.xPad), float64(p.yPad)

	move := func(x, y float64) (float64, float64) {
		return x*rx + xPad, y*ry + yPad
	}

	out := make([]cocohelper.Annotation, 0, len(anns))

	for _, a := range anns {

		b := a.BBox
		x, y := move(b[0], b[1])
		a.BBox = roundBox(cocohelper.BBox{x, y, b[2] * rx, b[3] * ry})
		a.Area = a.BBox.Area()

		seg, err := mapSegmentation(a.Segmentation, srcH, srcW, l.height, l.width, move)

		if err != nil {
			dst.Close()
			return gocv.NewMat(), nil, fmt.Errorf("error letterboxing annotation %d: %w", a.ID, err)
		}

		a.Segmentation = seg
		out = append(out, a)
	}

	return dst, out, nil
}
