// Package adapter converts datasets in other formats to COCO.  A
// DatasetAdapter exposes a foreign dataset sample by sample and the Importer
// assembles the samples into a cocohelper.Dataset.
package adapter

import (
	"fmt"
	"sort"

	"github.com/swdee/go-cocohelper"
	"github.com/swdee/go-cocohelper/segmentation"
	"gocv.io/x/gocv"
)

// Sample is one image record with its annotations
type Sample struct {
	Image       cocohelper.Image
	Annotations []cocohelper.Annotation
}

// DatasetAdapter exposes a dataset in a foreign format
type DatasetAdapter interface {
	// Categories returns the COCO categories of the dataset
	Categories() []cocohelper.Category
	// Len returns the number of samples
	Len() int
	// Sample converts sample idx, annotation ids are drawn from ids
	Sample(idx int, ids *IDGenerator) (Sample, error)
	// ReadImage loads the raster of sample idx, the caller must Close it
	ReadImage(idx int) (gocv.Mat, error)
}

// Entry pairs an image file with the label mask files annotating it
type Entry struct {
	Image string
	Masks []string
}

// BinaryMaskOptions configure a BinaryMaskAdapter, zero values take the
// defaults
type BinaryMaskOptions struct {
	// Images reads the image files, defaults to cocohelper.DefaultLoader
	Images cocohelper.ImageLoader
	// Masks reads the mask files, defaults to DefaultMaskLoader
	Masks MaskLoader
	// Mode is the segmentation encoding of the annotations
	Mode segmentation.Mode
	// Polygon controls polygon extraction, defaults to
	// segmentation.DefaultPolygonOptions
	Polygon *segmentation.PolygonOptions
	// Connectivity used to split a class into instances, defaults to 8
	Connectivity segmentation.Connectivity
}

// BinaryMaskAdapter converts images annotated with label masks.  Every
// connected region of a mask value becomes one annotation of the category
// mapped to that value.
type BinaryMaskAdapter struct {
	entries    []Entry
	categories map[uint8]cocohelper.Category
	images     cocohelper.ImageLoader
	masks      MaskLoader
	mode       segmentation.Mode
	polygon    segmentation.PolygonOptions
	conn       segmentation.Connectivity
}

// NewBinaryMaskAdapter returns an adapter over entries where categories maps
// mask values to categories
func NewBinaryMaskAdapter(entries []Entry, categories map[uint8]cocohelper.Category,
	opts BinaryMaskOptions) *BinaryMaskAdapter {

	a := &BinaryMaskAdapter{
		entries:    entries,
		categories: categories,
		images:     opts.Images,
		masks:      opts.Masks,
		mode:       opts.Mode,
		polygon:    segmentation.DefaultPolygonOptions(),
		conn:       opts.Connectivity,
	}

	if a.images == nil {
		a.images = cocohelper.DefaultLoader()
	}

	if a.masks == nil {
		a.masks = DefaultMaskLoader()
	}

	if opts.Polygon != nil {
		a.polygon = *opts.Polygon
	}

	if a.conn == 0 {
		a.conn = segmentation.Connectivity8
	}

	return a
}

// Categories implements DatasetAdapter, categories are ordered by id
func (a *BinaryMaskAdapter) Categories() []cocohelper.Category {

	out := make([]cocohelper.Category, 0, len(a.categories))

	for _, c := range a.categories {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Len implements DatasetAdapter
func (a *BinaryMaskAdapter) Len() int {
	return len(a.entries)
}

// ReadImage implements DatasetAdapter
func (a *BinaryMaskAdapter) ReadImage(idx int) (gocv.Mat, error) {

	if idx < 0 || idx >= len(a.entries) {
		return gocv.NewMat(), fmt.Errorf("sample index %d out of range [0, %d)", idx, len(a.entries))
	}

	return a.images.Load(a.entries[idx].Image)
}

// Sample implements DatasetAdapter.  The image id is the sample index.
func (a *BinaryMaskAdapter) Sample(idx int, ids *IDGenerator) (Sample, error) {

	img, err := a.ReadImage(idx)

	if err != nil {
		return Sample{}, err
	}

	height, width := img.Rows(), img.Cols()
	img.Close()

	e := a.entries[idx]

	s := Sample{
		Image: cocohelper.Image{ID: int64(idx), FileName: e.Image, Width: width, Height: height},
	}

	for _, path := range e.Masks {

		m, err := a.masks.LoadMask(path)

		if err != nil {
			return Sample{}, err
		}

		anns, err := a.annotate(m, int64(idx), ids)

		if err != nil {
			return Sample{}, fmt.Errorf("error converting mask %s: %w", path, err)
		}

		s.Annotations = append(s.Annotations, anns...)
	}

	return s, nil
}

// annotate turns every instance of the mask into an annotation of imageID
func (a *BinaryMaskAdapter) annotate(m segmentation.Mask, imageID int64, ids *IDGenerator) ([]cocohelper.Annotation, error) {

	insts, err := segmentation.Instances(m, a.conn)

	if err != nil {
		return nil, err
	}

	out := make([]cocohelper.Annotation, 0, len(insts))

	for _, inst := range insts {

		cat, ok := a.categories[inst.Class]

		if !ok {
			return nil, fmt.Errorf("mask value %d has no category", inst.Class)
		}

		seg, err := segmentation.Encode(inst.Mask, a.mode, a.polygon)

		if err != nil {
			return nil, err
		}

		area, err := segmentation.PixelArea(seg, m.Height, m.Width)

		if err != nil {
			return nil, err
		}

		b := inst.BBox

		out = append(out, cocohelper.Annotation{
			ID:           ids.GetNext(),
			ImageID:      imageID,
			CategoryID:   cat.ID,
			BBox:         cocohelper.BBox{float64(b[0]), float64(b[1]), float64(b[2]), float64(b[3])},
			Area:         area,
			Segmentation: seg,
		})
	}

	return out, nil
}
