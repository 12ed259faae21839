package adapter

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"os"

	"github.com/swdee/go-cocohelper/segmentation"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// MaskLoader reads a label mask where 0 is background and every other value
// is a class
type MaskLoader interface {
	LoadMask(path string) (segmentation.Mask, error)
}

// MaskLoaderFunc adapts a function to the MaskLoader interface
type MaskLoaderFunc func(path string) (segmentation.Mask, error)

// LoadMask calls f
func (f MaskLoaderFunc) LoadMask(path string) (segmentation.Mask, error) {
	return f(path)
}

// DefaultMaskLoader reads PNG, BMP and TIFF label masks with LoadMask
func DefaultMaskLoader() MaskLoader {
	return MaskLoaderFunc(LoadMask)
}

// LoadMask decodes a PNG, BMP or TIFF file into a label mask.  Paletted images
// keep their palette index as label, other images are converted to 8 bit
// grey.
func LoadMask(path string) (segmentation.Mask, error) {

	f, err := os.Open(path)

	if err != nil {
		return segmentation.Mask{}, fmt.Errorf("error opening mask file: %w", err)
	}

	defer f.Close()

	img, _, err := image.Decode(f)

	if err != nil {
		return segmentation.Mask{}, fmt.Errorf("error decoding mask file %s: %w", path, err)
	}

	b := img.Bounds()
	m := segmentation.NewMask(b.Dy(), b.Dx())

	switch src := img.(type) {
	case *image.Paletted:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				m.Set(x-b.Min.X, y-b.Min.Y, src.ColorIndexAt(x, y))
			}
		}

	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				m.Set(x-b.Min.X, y-b.Min.Y, src.GrayAt(x, y).Y)
			}
		}

	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
				m.Set(x-b.Min.X, y-b.Min.Y, g.Y)
			}
		}
	}

	return m, nil
}
