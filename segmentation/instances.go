package segmentation

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Connectivity selects the pixel neighbourhood used to group instances
type Connectivity int

const (
	Connectivity4 Connectivity = 4
	Connectivity8 Connectivity = 8
)

// Instance is one connected region of a single label
type Instance struct {
	Class uint8
	Mask  Mask
	// BBox is [x, y, w, h] as returned by Mask.BBox
	BBox [4]int
}

// Instances splits a label mask into connected regions, each label is
// processed separately so touching regions of different labels stay apart
func Instances(m Mask, conn Connectivity) ([]Instance, error) {

	if conn != Connectivity4 && conn != Connectivity8 {
		return nil, fmt.Errorf("connectivity must be 4 or 8, got %d", conn)
	}

	var out []Instance

	for _, cls := range m.Classes() {

		bin, err := m.Binary(cls).ToMat()

		if err != nil {
			return nil, err
		}

		labels := gocv.NewMat()
		n := gocv.ConnectedComponentsWithParams(bin, &labels, int(conn), gocv.MatTypeCV32S, gocv.CCL_DEFAULT)

		// label 0 is the background
		regions := make([]Mask, n)

		for i := 1; i < n; i++ {
			regions[i] = NewMask(m.Height, m.Width)
		}

		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				if l := int(labels.GetIntAt(y, x)); l > 0 && l < n {
					regions[l].Set(x, y, 1)
				}
			}
		}

		labels.Close()
		bin.Close()

		for i := 1; i < n; i++ {
			out = append(out, Instance{Class: cls, Mask: regions[i], BBox: regions[i].BBox()})
		}
	}

	return out, nil
}
