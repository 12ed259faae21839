package segmentation

import (
	"fmt"
)

// Encode converts a mask to a segmentation of the given mode
func Encode(m Mask, mode Mode, opts PolygonOptions) (Segmentation, error) {

	switch mode {
	case ModePolygon:
		polys, err := EncodePolygons(m, opts)
		if err != nil {
			return Segmentation{}, fmt.Errorf("error encoding polygons: %w", err)
		}
		return FromPolygons(polys...), nil

	case ModeRLE:
		return FromRLE(EncodeRLE(m)), nil

	case ModeCompressedRLE:
		s, err := EncodeCompressedRLE(m)
		if err != nil {
			return Segmentation{}, err
		}
		return FromCompressed(s), nil
	}

	return Segmentation{}, fmt.Errorf("%w: unknown mode %v", ErrFormat, mode)
}

// Decode rasterises a segmentation into a height x width mask.  RLE
// segmentations carry their own size, a mismatch with the requested size is
// an error.
func Decode(s Segmentation, height, width int, opts PolygonOptions) (Mask, error) {

	switch s.Mode {
	case ModePolygon:
		return DecodePolygons(s.Polygons, height, width, opts.Background)

	case ModeRLE:
		if s.RLE == nil {
			return NewMask(height, width), nil
		}
		if s.RLE.Height() != height || s.RLE.Width() != width {
			return Mask{}, fmt.Errorf("%w: RLE size %v does not match %dx%d",
				ErrFormat, s.RLE.Size, height, width)
		}
		return DecodeRLE(*s.RLE)

	case ModeCompressedRLE:
		return DecodeCompressedRLE(s.Compressed, height, width)
	}

	return Mask{}, fmt.Errorf("%w: unknown mode %v", ErrFormat, s.Mode)
}

// Convert re-encodes a segmentation in another mode going through a mask of
// the given size.  A segmentation already in the requested mode is returned
// unchanged.
func Convert(s Segmentation, mode Mode, height, width int, opts PolygonOptions) (Segmentation, error) {

	if s.Mode == mode {
		return s, nil
	}

	m, err := Decode(s, height, width, PolygonOptions{})

	if err != nil {
		return Segmentation{}, fmt.Errorf("error decoding %v segmentation: %w", s.Mode, err)
	}

	return Encode(m, mode, opts)
}

// PixelArea returns the area of any segmentation, polygons use the shoelace
// formula and run length encodings count foreground pixels
func PixelArea(s Segmentation, height, width int) (float64, error) {

	switch s.Mode {
	case ModePolygon:
		return Area(s.Polygons), nil
	case ModeRLE:
		if s.RLE == nil {
			return 0, nil
		}
		total := 0
		for i := 1; i < len(s.RLE.Counts); i += 2 {
			total += s.RLE.Counts[i]
		}
		return float64(total), nil
	}

	m, err := DecodeCompressedRLE(s.Compressed, height, width)

	if err != nil {
		return 0, err
	}

	return float64(m.Count()), nil
}
