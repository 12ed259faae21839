package segmentation

import (
	"fmt"
	"image"
	"slices"

	"gocv.io/x/gocv"
)

// Mask is a single channel label raster stored in row-major order, zero is
// background
type Mask struct {
	Height int
	Width  int
	Data   []uint8
}

// NewMask returns an all background mask
func NewMask(height, width int) Mask {
	return Mask{Height: height, Width: width, Data: make([]uint8, height*width)}
}

// At returns the label at column x and row y
func (m Mask) At(x, y int) uint8 {
	return m.Data[y*m.Width+x]
}

// Set sets the label at column x and row y
func (m Mask) Set(x, y int, v uint8) {
	m.Data[y*m.Width+x] = v
}

// Fill sets the label of the rectangle with top left corner x,y
func (m Mask) Fill(x, y, w, h int, v uint8) {
	for j := y; j < y+h && j < m.Height; j++ {
		for i := x; i < x+w && i < m.Width; i++ {
			m.Set(i, j, v)
		}
	}
}

// Equal reports whether both masks have the same size and labels
func (m Mask) Equal(o Mask) bool {
	return m.Height == o.Height && m.Width == o.Width && slices.Equal(m.Data, o.Data)
}

// Classes returns the sorted distinct non-zero labels
func (m Mask) Classes() []uint8 {

	var seen [256]bool

	for _, v := range m.Data {
		seen[v] = true
	}

	var out []uint8

	for v := 1; v < len(seen); v++ {
		if seen[v] {
			out = append(out, uint8(v))
		}
	}

	return out
}

// Binary returns a mask with 1 where the label equals value and 0 elsewhere
func (m Mask) Binary(value uint8) Mask {

	out := NewMask(m.Height, m.Width)

	for i, v := range m.Data {
		if v == value {
			out.Data[i] = 1
		}
	}

	return out
}

// Count returns the number of non-zero pixels
func (m Mask) Count() int {

	n := 0

	for _, v := range m.Data {
		if v != 0 {
			n++
		}
	}

	return n
}

// ToMat copies the mask into a CV_8U Mat, the caller must Close it
func (m Mask) ToMat() (gocv.Mat, error) {

	if len(m.Data) != m.Height*m.Width {
		return gocv.NewMat(), fmt.Errorf("mask data length %d does not match size %dx%d",
			len(m.Data), m.Height, m.Width)
	}

	return gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8U, slices.Clone(m.Data))
}

// MaskFromMat copies a single channel CV_8U Mat into a Mask
func MaskFromMat(mat gocv.Mat) (Mask, error) {

	if mat.Type() != gocv.MatTypeCV8U {
		return Mask{}, fmt.Errorf("mask Mat must be CV_8U single channel, got %v", mat.Type())
	}

	data := mat.ToBytes()

	if len(data) != mat.Rows()*mat.Cols() {
		return Mask{}, fmt.Errorf("unexpected mask Mat data length %d", len(data))
	}

	return Mask{Height: mat.Rows(), Width: mat.Cols(), Data: data}, nil
}

// BBox returns the [x, y, w, h] extent of the non-zero pixels where w and h
// are the distance between the extreme pixel coordinates
func (m Mask) BBox() [4]int {

	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) == 0 {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}

	if maxX < 0 {
		return [4]int{}
	}

	return [4]int{minX, minY, maxX - minX, maxY - minY}
}

// resizeNearest resamples the mask with nearest neighbour interpolation
func resizeNearest(m Mask, height, width int) (Mask, error) {

	src, err := m.ToMat()

	if err != nil {
		return Mask{}, err
	}

	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationNearestNeighbor)

	return MaskFromMat(dst)
}
