package cocohelper

import (
	"fmt"
	"log/slog"

	"github.com/swdee/go-cocohelper/colmap"
	"github.com/swdee/go-cocohelper/internal/logging"
	"github.com/swdee/go-cocohelper/table"
	"github.com/swdee/go-cocohelper/validator"
)

// entity names of the four COCO tables
const (
	EntityImage      = "image"
	EntityAnnotation = "annotation"
	EntityCategory   = "category"
	EntityLicense    = "license"
)

// SetLogger sets the logger used to report soft conditions such as filtering on
// a missing column, nil restores slog.Default()
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}

// Options configure a Dataset
type Options struct {
	// Root is the dataset root directory, defaults to "./"
	Root string
	// Paths is the layout below Root, empty fields take the default layout
	Paths Paths
	// Validate runs the validator on construction and on every derived
	// dataset
	Validate bool
	// Loader reads image files, defaults to OpenCV
	Loader ImageLoader
}

// Dataset is an immutable COCO dataset.  Every operation returns a new Dataset
// and leaves the receiver unchanged.
type Dataset struct {
	imgs     *table.Table
	anns     *table.Table
	cats     *table.Table
	lics     *table.Table
	info     Info
	root     string
	paths    Paths
	validate bool
	loader   ImageLoader
}

// New creates a Dataset from typed records
func New(doc Document, opts Options) (*Dataset, error) {

	imgs := make([]table.Row, len(doc.Images))
	for i, img := range doc.Images {
		imgs[i] = imageRow(img)
	}

	anns := make([]table.Row, len(doc.Annotations))
	for i, a := range doc.Annotations {
		anns[i] = annotationRow(a)
	}

	cats := make([]table.Row, len(doc.Categories))
	for i, c := range doc.Categories {
		cats[i] = categoryRow(c)
	}

	lics := make([]table.Row, len(doc.Licenses))
	for i, l := range doc.Licenses {
		lics[i] = licenseRow(l)
	}

	info := doc.Info

	if info.isZero() {
		info = NewInfo()
	}

	return fromRecords(imgs, anns, cats, lics, info, opts)
}

// fromRecords builds the entity tables from records keyed by json field names
func fromRecords(imgs, anns, cats, lics []table.Row, info Info, opts Options) (*Dataset, error) {

	d := &Dataset{
		imgs:     table.New(EntityImage, recordColumns(imageColumns, imgs), imgs, colmap.Image),
		anns:     table.New(EntityAnnotation, recordColumns(annotationColumns, anns), anns, colmap.Annotation),
		cats:     table.New(EntityCategory, recordColumns(categoryColumns, cats), cats, colmap.Category),
		lics:     table.New(EntityLicense, recordColumns(licenseColumns, lics), lics, colmap.License),
		info:     info,
		root:     opts.Root,
		paths:    opts.Paths.withDefaults(),
		validate: opts.Validate,
		loader:   opts.Loader,
	}

	if d.root == "" {
		d.root = "./"
	}

	if d.loader == nil {
		d.loader = DefaultLoader()
	}

	if d.validate {
		if err := d.checkValid(); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// CopyOptions select the tables replaced by Copy, nil fields keep the current
// table
type CopyOptions struct {
	Cats     *table.Table
	Imgs     *table.Table
	Anns     *table.Table
	Licenses *table.Table
	Info     *Info
	Validate bool
}

// Copy returns a new Dataset with the given tables replaced.  Annotations
// referencing a missing image or category are always removed.  With Validate
// the result is checked and a *ValidationError returned if it is invalid.
func (d *Dataset) Copy(opts CopyOptions) (*Dataset, error) {

	out := *d

	if opts.Cats != nil {
		out.cats = opts.Cats.As(EntityCategory, colmap.Category)
	}

	if opts.Imgs != nil {
		out.imgs = opts.Imgs.As(EntityImage, colmap.Image)
	}

	if opts.Anns != nil {
		out.anns = opts.Anns.As(EntityAnnotation, colmap.Annotation)
	}

	if opts.Licenses != nil {
		out.lics = opts.Licenses.As(EntityLicense, colmap.License)
	}

	if opts.Info != nil {
		out.info = *opts.Info
	}

	out.removeUnlinkedAnns()

	if opts.Validate {
		if err := out.checkValid(); err != nil {
			return nil, err
		}
	}

	return &out, nil
}

// derive copies the dataset validating when the dataset was built to validate
func (d *Dataset) derive(opts CopyOptions) (*Dataset, error) {
	opts.Validate = opts.Validate || d.validate
	return d.Copy(opts)
}

// removeUnlinkedAnns drops annotations with a missing image or category
func (d *Dataset) removeUnlinkedAnns() {

	imgIDs := d.imgs.KeySet()
	catIDs := d.cats.KeySet()

	d.anns = d.anns.Where(func(_ int, r table.Row) bool {
		_, img := imgIDs[table.Normalize(r["image_id"])]
		_, cat := catIDs[table.Normalize(r["category_id"])]
		return img && cat
	})
}

// Validator returns a validator over the dataset document and root directory
func (d *Dataset) Validator() *validator.Validator {
	return validator.New(d.JSONDocument(), d.root)
}

// Validate runs every validation check
func (d *Dataset) Validate() validator.Report {
	return d.Validator().Validate()
}

func (d *Dataset) checkValid() error {

	rep := d.Validate()

	if !rep.Valid() {
		return &ValidationError{Report: rep}
	}

	return nil
}

// Imgs returns the image table indexed by image_id
func (d *Dataset) Imgs() *table.Table { return d.imgs }

// Anns returns the annotation table indexed by annotation_id
func (d *Dataset) Anns() *table.Table { return d.anns }

// Cats returns the category table indexed by category_id
func (d *Dataset) Cats() *table.Table { return d.cats }

// LicensesTable returns the license table indexed by license_id
func (d *Dataset) LicensesTable() *table.Table { return d.lics }

// Info returns the dataset info
func (d *Dataset) Info() Info { return d.info }

// Root returns the dataset root directory
func (d *Dataset) Root() string { return d.root }

// Paths returns the dataset layout
func (d *Dataset) Paths() Paths { return d.paths }

// WithRoot returns a copy of the dataset rooted at another directory
func (d *Dataset) WithRoot(root string) *Dataset {
	out := *d
	out.root = root
	return &out
}

// Images returns the image records
func (d *Dataset) Images() []Image {

	out := make([]Image, d.imgs.Len())

	for i, r := range d.imgs.Rows() {
		out[i] = imageFromRow(r)
	}

	return out
}

// Annotations returns the annotation records
func (d *Dataset) Annotations() []Annotation {

	out := make([]Annotation, d.anns.Len())

	for i, r := range d.anns.Rows() {
		out[i] = annotationFromRow(r)
	}

	return out
}

// Categories returns the category records
func (d *Dataset) Categories() []Category {

	out := make([]Category, d.cats.Len())

	for i, r := range d.cats.Rows() {
		out[i] = categoryFromRow(r)
	}

	return out
}

// Licenses returns the license records
func (d *Dataset) Licenses() []License {

	out := make([]License, d.lics.Len())

	for i, r := range d.lics.Rows() {
		out[i] = licenseFromRow(r)
	}

	return out
}

// ToDocument returns the dataset as typed records
func (d *Dataset) ToDocument() Document {
	return Document{
		Info:        d.info,
		Licenses:    d.Licenses(),
		Categories:  d.Categories(),
		Images:      d.Images(),
		Annotations: d.Annotations(),
	}
}

// LabelledImgs returns the images referenced by at least one annotation
func (d *Dataset) LabelledImgs() *table.Table {
	return d.imgs.WhereKeys(d.anns.ValueSet("image_id"))
}

// UnlabelledImgs returns the images no annotation references
func (d *Dataset) UnlabelledImgs() *table.Table {
	return d.imgs.WhereNotKeys(d.anns.ValueSet("image_id"))
}

// DropUnlabelled returns a dataset without unlabelled images
func (d *Dataset) DropUnlabelled() (*Dataset, error) {
	return d.derive(CopyOptions{Imgs: d.LabelledImgs()})
}

// DropLabelled returns a dataset holding only the unlabelled images
func (d *Dataset) DropLabelled() (*Dataset, error) {
	return d.derive(CopyOptions{Imgs: d.UnlabelledImgs()})
}

// String summarises the dataset sizes
func (d *Dataset) String() string {
	return fmt.Sprintf("Dataset{images: %d, annotations: %d, categories: %d, licenses: %d}",
		d.imgs.Len(), d.anns.Len(), d.cats.Len(), d.lics.Len())
}
