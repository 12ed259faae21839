package cocohelper

import (
	"path/filepath"
)

// Paths describes where annotations and images live relative to the dataset
// root directory
type Paths struct {
	AnnFile string
	AnnDir  string
	ImgDir  string
}

// DefaultPaths returns the standard layout: annotations/coco.json and images/
func DefaultPaths() Paths {
	return Paths{
		AnnFile: "coco.json",
		AnnDir:  "annotations/",
		ImgDir:  "images/",
	}
}

// withDefaults fills empty fields with the default layout
func (p Paths) withDefaults() Paths {

	def := DefaultPaths()

	if p.AnnFile == "" {
		p.AnnFile = def.AnnFile
	}

	if p.AnnDir == "" {
		p.AnnDir = def.AnnDir
	}

	if p.ImgDir == "" {
		p.ImgDir = def.ImgDir
	}

	return p
}

// AnnotationFile returns the annotation file path under root
func (p Paths) AnnotationFile(root string) string {
	return filepath.Join(root, p.AnnDir, p.AnnFile)
}

// ImagePath returns the path of an image file under root
func (p Paths) ImagePath(root, fileName string) string {
	return filepath.Join(root, p.ImgDir, fileName)
}
