package cocohelper

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/swdee/go-cocohelper/segmentation"
)

// LabelMaskSuffix is appended to the image file stem to name its label mask
const LabelMaskSuffix = "_annotation.png"

// ExportLabelMasks writes one grayscale label mask per image into dir.  Pixels
// covered by an annotation get the value (category_id+1)*scaling, later
// annotations overwrite earlier ones and uncovered pixels stay 0.  Images
// without annotations get an empty mask.
func (d *Dataset) ExportLabelMasks(dir string, scaling int, writer ImageWriter) error {

	if scaling <= 0 {
		return fmt.Errorf("%w: mask scaling must be positive, got %d", ErrUsage, scaling)
	}

	if writer == nil {
		writer = DefaultWriter()
	}

	doc := d.ToDocument()

	labels := make(map[int64]uint8, len(doc.Categories))

	for _, c := range doc.Categories {
		v := (c.ID + 1) * int64(scaling)
		if c.ID < 0 || v > 255 {
			return fmt.Errorf("%w: category %d with scaling %d does not fit an 8 bit mask",
				ErrUsage, c.ID, scaling)
		}
		labels[c.ID] = uint8(v)
	}

	anns := make(map[int64][]Annotation, len(doc.Images))

	for _, a := range doc.Annotations {
		anns[a.ImageID] = append(anns[a.ImageID], a)
	}

	opts := segmentation.DefaultPolygonOptions()

	for _, img := range doc.Images {

		label := segmentation.NewMask(img.Height, img.Width)

		for _, a := range anns[img.ID] {

			if a.Segmentation.IsEmpty() {
				continue
			}

			m, err := segmentation.Decode(a.Segmentation, img.Height, img.Width, opts)

			if err != nil {
				return fmt.Errorf("error decoding segmentation of annotation %d: %w", a.ID, err)
			}

			for i, v := range m.Data {
				if v != 0 {
					label.Data[i] = labels[a.CategoryID]
				}
			}
		}

		mat, err := label.ToMat()

		if err != nil {
			return fmt.Errorf("error building label mask of image %d: %w", img.ID, err)
		}

		stem := strings.TrimSuffix(filepath.Base(img.FileName), filepath.Ext(img.FileName))
		err = writer.Write(filepath.Join(dir, stem+LabelMaskSuffix), mat)
		mat.Close()

		if err != nil {
			return err
		}
	}

	return nil
}
