package render

import (
	"fmt"
	"image"

	"github.com/swdee/go-cocohelper"
	"github.com/swdee/go-cocohelper/segmentation"
	"gocv.io/x/gocv"
)

// decode rasterises the segmentation of an annotation at the image size
func decode(a cocohelper.Annotation, height, width int) (segmentation.Mask, error) {

	m, err := segmentation.Decode(a.Segmentation, height, width, segmentation.PolygonOptions{})

	if err != nil {
		return segmentation.Mask{}, fmt.Errorf("error decoding segmentation of annotation %d: %w", a.ID, err)
	}

	return m, nil
}

// SegmentMask renders the segmentation of every annotation as a transparent
// overlay in the colour of its category.  img must be a CV_8UC3 image.
func SegmentMask(img *gocv.Mat, anns []cocohelper.Annotation, alpha float32) error {

	if img.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("segment mask needs a CV_8UC3 image, got %v", img.Type())
	}

	width := img.Cols()
	height := img.Rows()

	// it is too slow to manipulate pixel by pixel using GoCV due to slowness
	// over CGO.  So we copy the bytes from the source image and manipulate
	// the bytes directly before copying back to a Mat
	imgData := img.ToBytes()

	for _, a := range anns {

		if a.Segmentation.IsEmpty() {
			continue
		}

		m, err := decode(a, height, width)

		if err != nil {
			return err
		}

		clr := CategoryColor(a.CategoryID)

		for idx, v := range m.Data {

			if v == 0 {
				continue
			}

			pixelPos := idx * 3

			b, g, r := imgData[pixelPos+0], imgData[pixelPos+1], imgData[pixelPos+2]

			imgData[pixelPos+0] = uint8(float32(b)*(1-alpha) + float32(clr.B)*alpha)
			imgData[pixelPos+1] = uint8(float32(g)*(1-alpha) + float32(clr.G)*alpha)
			imgData[pixelPos+2] = uint8(float32(r)*(1-alpha) + float32(clr.R)*alpha)
		}
	}

	tmpImg, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, imgData)

	if err != nil {
		return fmt.Errorf("error creating overlay Mat: %w", err)
	}

	defer tmpImg.Close()

	tmpImg.CopyTo(img)

	return nil
}

// findTopPoint finds the highest point (Y axis) of the given point vector
func findTopPoint(approx gocv.PointVector) image.Point {
	topPoint := approx.At(0)
	for i := 1; i < approx.Size(); i++ {
		pt := approx.At(i)
		if pt.Y < topPoint.Y {
			topPoint = pt
		}
	}
	return topPoint
}

// SegmentOutline renders the outline of every annotation segmentation with
// the category name above its top most point.  Contours smaller than minArea
// are skipped and the remaining ones simplified with epsilon.
func SegmentOutline(img *gocv.Mat, anns []cocohelper.Annotation, cats map[int64]cocohelper.Category,
	font Font, lineThickness int, minArea, epsilon float64) error {

	width := img.Cols()
	height := img.Rows()

	labels := make([]label, 0, len(anns))

	for _, a := range anns {

		if a.Segmentation.IsEmpty() {
			continue
		}

		m, err := decode(a, height, width)

		if err != nil {
			return err
		}

		maskMat, err := m.ToMat()

		if err != nil {
			return err
		}

		contours := gocv.FindContours(maskMat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
		clr := CategoryColor(a.CategoryID)
		rect := boxRect(a.BBox)
		labelled := false

		for i := 0; i < contours.Size(); i++ {

			contour := contours.At(i)

			// filter out small contours picked up from aliasing in the raster
			if gocv.ContourArea(contour) < minArea {
				continue
			}

			approx := gocv.ApproxPolyDP(contour, epsilon, true)
			ptsVec := gocv.NewPointsVector()
			ptsVec.Append(approx)

			gocv.Polylines(img, ptsVec, true, clr, lineThickness)

			if !labelled {
				top := findTopPoint(approx)
				labels = append(labels, font.place(categoryName(a, cats), rect.Min.X, rect.Max.X, top.Y,
					clr, lineThickness))
				labelled = true
			}

			approx.Close()
			ptsVec.Close()
		}

		contours.Close()
		maskMat.Close()
	}

	drawLabels(img, font, labels)

	return nil
}

// PaintSegmentToFile paints the segmentations of anns on a black image of the
// given size and writes it to filename
func PaintSegmentToFile(filename string, height, width int, anns []cocohelper.Annotation, alpha float32) error {

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
	defer img.Close()

	if err := SegmentMask(&img, anns, alpha); err != nil {
		return err
	}

	if gocv.IMWrite(filename, img) {
		return nil
	}

	return fmt.Errorf("failed to write to file %s", filename)
}
