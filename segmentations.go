package cocohelper

import (
	"fmt"

	"github.com/swdee/go-cocohelper/segmentation"
)

// ConvertSegmentations re-encodes every annotation segmentation to mode at the
// size of its image.  Annotations without segmentation and those already in
// mode are kept as they are.
func (d *Dataset) ConvertSegmentations(mode segmentation.Mode, opts segmentation.PolygonOptions) (*Dataset, error) {

	doc := d.ToDocument()

	sizes := make(map[int64][2]int, len(doc.Images))

	for _, img := range doc.Images {
		sizes[img.ID] = [2]int{img.Height, img.Width}
	}

	for i, a := range doc.Annotations {

		if a.Segmentation.IsEmpty() || a.Segmentation.Mode == mode {
			continue
		}

		size, ok := sizes[a.ImageID]

		if !ok || size[0] <= 0 || size[1] <= 0 {
			return nil, fmt.Errorf("annotation %d: %w", a.ID, &ImageNotFoundError{ImageID: a.ImageID})
		}

		s, err := segmentation.Convert(a.Segmentation, mode, size[0], size[1], opts)

		if err != nil {
			return nil, fmt.Errorf("error converting segmentation of annotation %d: %w", a.ID, err)
		}

		doc.Annotations[i].Segmentation = s
	}

	return New(doc, Options{Root: d.root, Paths: d.paths, Validate: d.validate, Loader: d.loader})
}
