package cocohelper

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/swdee/go-cocohelper/table"
	"gocv.io/x/gocv"
)

// ImageLoader reads the raster of an image file
type ImageLoader interface {
	Load(path string) (gocv.Mat, error)
}

// ImageWriter saves a raster to an image file
type ImageWriter interface {
	Write(path string, img gocv.Mat) error
}

// Transform changes an image and its annotations together.  Apply must leave
// img open and return a new Mat owned by the caller.
type Transform interface {
	Apply(img gocv.Mat, anns []Annotation) (gocv.Mat, []Annotation, error)
}

// TransformFunc adapts a function to the Transform interface
type TransformFunc func(img gocv.Mat, anns []Annotation) (gocv.Mat, []Annotation, error)

// Apply calls f
func (f TransformFunc) Apply(img gocv.Mat, anns []Annotation) (gocv.Mat, []Annotation, error) {
	return f(img, anns)
}

// cvImage reads and writes images with OpenCV
type cvImage struct {
	flags gocv.IMReadFlag
}

// DefaultLoader returns a loader reading colour images with OpenCV
func DefaultLoader() ImageLoader {
	return cvImage{flags: gocv.IMReadColor}
}

// GrayscaleLoader returns a loader reading images as a single channel
func GrayscaleLoader() ImageLoader {
	return cvImage{flags: gocv.IMReadGrayScale}
}

// DefaultWriter returns a writer encoding images with OpenCV by file extension
func DefaultWriter() ImageWriter {
	return cvImage{}
}

// Load implements ImageLoader
func (c cvImage) Load(path string) (gocv.Mat, error) {

	img := gocv.IMRead(path, c.flags)

	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("error reading image file: %s", path)
	}

	return img, nil
}

// Write implements ImageWriter
func (c cvImage) Write(path string, img gocv.Mat) error {

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating image directory: %w", err)
	}

	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("error writing image file: %s", path)
	}

	return nil
}

// Lookup selects a row either by id or by position, exactly one field must be
// set
type Lookup struct {
	ID    *int64
	Index *int
}

// ByID looks a row up by its id
func ByID(id int64) Lookup {
	return Lookup{ID: &id}
}

// ByIndex looks a row up by its position in the table
func ByIndex(i int) Lookup {
	return Lookup{Index: &i}
}

// resolve returns the row position selected by the lookup
func (l Lookup) resolve(t *table.Table) (int, bool, error) {

	if (l.ID == nil) == (l.Index == nil) {
		return 0, false, fmt.Errorf("%w: exactly one of id or index must be given", ErrUsage)
	}

	if l.Index != nil {
		if *l.Index < 0 || *l.Index >= t.Len() {
			return 0, false, fmt.Errorf("%w: index %d out of range [0, %d)", ErrUsage, *l.Index, t.Len())
		}
		return *l.Index, true, nil
	}

	for i := 0; i < t.Len(); i++ {
		if t.Key(i) == *l.ID {
			return i, true, nil
		}
	}

	return 0, false, nil
}

// ImageSample is an image with its record and annotations.  Image must be
// closed by the caller.
type ImageSample struct {
	Image       gocv.Mat
	Data        Image
	Annotations []Annotation
}

// AnnotationSample is an annotation with its category and image.  Image must
// be closed by the caller.
type AnnotationSample struct {
	Annotation Annotation
	Category   Category
	Image      gocv.Mat
	Data       Image
}

// GetImg returns the record of the image with the given id
func (d *Dataset) GetImg(id int64) (Image, error) {

	i, ok, err := ByID(id).resolve(d.imgs)

	if err != nil {
		return Image{}, err
	}

	if !ok {
		return Image{}, &ImageNotFoundError{ImageID: id}
	}

	return imageFromRow(d.imgs.Row(i)), nil
}

// ImagePath returns the path of the image file of img
func (d *Dataset) ImagePath(img Image) string {
	return d.paths.ImagePath(d.root, img.FileName)
}

// ImgAnns returns the annotations of the image with the given id
func (d *Dataset) ImgAnns(id int64) []Annotation {

	var out []Annotation

	for _, r := range d.anns.Rows() {
		if table.Normalize(r["image_id"]) == id {
			out = append(out, annotationFromRow(r))
		}
	}

	return out
}

// GetImgSample loads an image with its annotations, running the optional
// transform over both
func (d *Dataset) GetImgSample(l Lookup, tf Transform) (*ImageSample, error) {

	i, ok, err := l.resolve(d.imgs)

	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, &ImageNotFoundError{ImageID: *l.ID}
	}

	data := imageFromRow(d.imgs.Row(i))
	anns := d.ImgAnns(data.ID)

	img, err := d.loader.Load(d.ImagePath(data))

	if err != nil {
		return nil, err
	}

	if tf != nil {
		out, tanns, err := tf.Apply(img, anns)
		img.Close()
		if err != nil {
			return nil, fmt.Errorf("error transforming image %d: %w", data.ID, err)
		}
		img, anns = out, tanns
	}

	return &ImageSample{Image: img, Data: data, Annotations: anns}, nil
}

// GetAnnSample loads an annotation with its category and image, running the
// optional transform over the image and the annotation
func (d *Dataset) GetAnnSample(l Lookup, tf Transform) (*AnnotationSample, error) {

	i, ok, err := l.resolve(d.anns)

	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, &AnnotationNotFoundError{AnnotationID: *l.ID}
	}

	ann := annotationFromRow(d.anns.Row(i))

	data, err := d.GetImg(ann.ImageID)

	if err != nil {
		return nil, err
	}

	var cat Category

	if j, ok, _ := ByID(ann.CategoryID).resolve(d.cats); ok {
		cat = categoryFromRow(d.cats.Row(j))
	}

	img, err := d.loader.Load(d.ImagePath(data))

	if err != nil {
		return nil, err
	}

	if tf != nil {
		out, tanns, err := tf.Apply(img, []Annotation{ann})
		img.Close()
		if err != nil {
			return nil, fmt.Errorf("error transforming annotation %d: %w", ann.ID, err)
		}
		img = out
		if len(tanns) > 0 {
			ann = tanns[0]
		}
	}

	return &AnnotationSample{Annotation: ann, Category: cat, Image: img, Data: data}, nil
}

// TransformDataset runs the transform over every image of the dataset, writes
// the images below outDir with writer (nil uses DefaultWriter) and saves the
// transformed annotations there.  The returned dataset is rooted at outDir.
func (d *Dataset) TransformDataset(tf Transform, outDir string, writer ImageWriter) (*Dataset, error) {

	if tf == nil {
		return nil, fmt.Errorf("%w: a transform is required", ErrUsage)
	}

	if writer == nil {
		writer = DefaultWriter()
	}

	doc := d.ToDocument()
	doc.Annotations = doc.Annotations[:0:0]

	for i, data := range doc.Images {

		img, err := d.loader.Load(d.ImagePath(data))

		if err != nil {
			return nil, err
		}

		out, anns, err := tf.Apply(img, d.ImgAnns(data.ID))
		img.Close()

		if err != nil {
			return nil, fmt.Errorf("error transforming image %d: %w", data.ID, err)
		}

		err = writer.Write(d.paths.ImagePath(outDir, data.FileName), out)
		doc.Images[i].Width, doc.Images[i].Height = out.Cols(), out.Rows()
		out.Close()

		if err != nil {
			return nil, err
		}

		doc.Annotations = append(doc.Annotations, anns...)
	}

	res, err := New(doc, Options{Root: outDir, Paths: d.paths, Loader: d.loader})

	if err != nil {
		return nil, err
	}

	if err := res.Save(""); err != nil {
		return nil, err
	}

	if d.validate {
		res.validate = true
		if err := res.checkValid(); err != nil {
			return nil, err
		}
	}

	return res, nil
}
