package adapter

import (
	"fmt"
	"path/filepath"

	"github.com/swdee/go-cocohelper"
	"github.com/swdee/go-cocohelper/internal/logging"
)

// Contributor is the info contributor of imported datasets
const Contributor = "COCO Helpers Generator"

// Importer builds a COCO dataset from a DatasetAdapter
type Importer struct {
	adapter DatasetAdapter
}

// NewImporter returns an Importer reading from a
func NewImporter(a DatasetAdapter) *Importer {
	return &Importer{adapter: a}
}

// CreateOptions configure Importer.Create
type CreateOptions struct {
	// OutDir is the root of the new dataset, required with SaveImages
	OutDir string
	// Paths is the layout below OutDir
	Paths cocohelper.Paths
	// SaveImages writes every image below OutDir and keeps only its base
	// name as file name
	SaveImages bool
	// Writer saves the images, defaults to cocohelper.DefaultWriter
	Writer cocohelper.ImageWriter
	// IDs generates the annotation ids, defaults to a generator starting at 1
	IDs *IDGenerator
	// Validate checks the created dataset
	Validate bool
}

// Create converts every sample of the adapter and returns the dataset.  The
// annotation file is not written, call Save on the result for that.
func (im *Importer) Create(opts CreateOptions) (*cocohelper.Dataset, error) {

	if opts.SaveImages && opts.OutDir == "" {
		return nil, fmt.Errorf("%w: saving images requires an output directory", cocohelper.ErrUsage)
	}

	paths := opts.Paths

	if paths.ImgDir == "" {
		paths.ImgDir = cocohelper.DefaultPaths().ImgDir
	}

	ids := opts.IDs

	if ids == nil {
		ids = NewIDGenerator(1)
	}

	writer := opts.Writer

	if writer == nil {
		writer = cocohelper.DefaultWriter()
	}

	info := cocohelper.NewInfo()
	info.Contributor = Contributor

	doc := cocohelper.Document{
		Info:       info,
		Categories: im.adapter.Categories(),
	}

	for i := 0; i < im.adapter.Len(); i++ {

		s, err := im.adapter.Sample(i, ids)

		if err != nil {
			return nil, fmt.Errorf("error reading sample %d: %w", i, err)
		}

		if opts.SaveImages {
			if err := im.saveImage(i, &s, opts.OutDir, paths, writer); err != nil {
				return nil, err
			}
		}

		doc.Images = append(doc.Images, s.Image)
		doc.Annotations = append(doc.Annotations, s.Annotations...)
	}

	logging.Logger().Info("imported dataset", "images", len(doc.Images),
		"annotations", len(doc.Annotations), "categories", len(doc.Categories))

	return cocohelper.New(doc, cocohelper.Options{
		Root:     opts.OutDir,
		Paths:    paths,
		Validate: opts.Validate,
	})
}

// saveImage writes the image of sample idx below outDir and renames its file
// to the base name
func (im *Importer) saveImage(idx int, s *Sample, outDir string, paths cocohelper.Paths, w cocohelper.ImageWriter) error {

	img, err := im.adapter.ReadImage(idx)

	if err != nil {
		return err
	}

	defer img.Close()

	name := filepath.Base(s.Image.FileName)

	if err := w.Write(paths.ImagePath(outDir, name), img); err != nil {
		return fmt.Errorf("error saving image of sample %d: %w", idx, err)
	}

	s.Image.FileName = name

	return nil
}
