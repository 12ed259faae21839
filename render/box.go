package render

import (
	"image"
	"math"

	"github.com/swdee/go-cocohelper"
	"gocv.io/x/gocv"
)

// categoryName returns the label text of an annotation
func categoryName(a cocohelper.Annotation, cats map[int64]cocohelper.Category) string {

	if c, ok := cats[a.CategoryID]; ok && c.Name != "" {
		return c.Name
	}

	return "unknown"
}

// boxRect converts a COCO box to integer pixel corners
func boxRect(b cocohelper.BBox) image.Rectangle {
	return image.Rect(int(math.Round(b.X())), int(math.Round(b.Y())),
		int(math.Round(b.X()+b.W())), int(math.Round(b.Y()+b.H())))
}

// Boxes renders the bounding box of every annotation in the colour of its
// category with the category name as label
func Boxes(img *gocv.Mat, anns []cocohelper.Annotation, cats map[int64]cocohelper.Category,
	font Font, lineThickness int) {

	labels := make([]label, 0, len(anns))

	for _, a := range anns {

		clr := CategoryColor(a.CategoryID)
		rect := boxRect(a.BBox)

		gocv.Rectangle(img, rect, clr, lineThickness)

		labels = append(labels, font.place(categoryName(a, cats), rect.Min.X, rect.Max.X, rect.Min.Y,
			clr, lineThickness))
	}

	drawLabels(img, font, labels)
}
