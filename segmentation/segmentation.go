// Package segmentation converts COCO segmentations between polygon, RLE and
// compressed RLE form and label masks.
package segmentation

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/swdee/go-cocohelper/table"
)

// ErrFormat is returned when a segmentation value can not be interpreted
var ErrFormat = errors.New("invalid segmentation")

// Mode is the encoding of a segmentation
type Mode int

const (
	ModePolygon Mode = iota
	ModeRLE
	ModeCompressedRLE
)

// String returns the COCO helper name of the mode
func (m Mode) String() string {
	switch m {
	case ModePolygon:
		return "polygon"
	case ModeRLE:
		return "RLE"
	case ModeCompressedRLE:
		return "cRLE"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts "polygon", "RLE" or "cRLE" to a Mode
func ParseMode(s string) (Mode, error) {

	switch s {
	case "polygon":
		return ModePolygon, nil
	case "RLE", "rle":
		return ModeRLE, nil
	case "cRLE", "crle":
		return ModeCompressedRLE, nil
	}

	return 0, fmt.Errorf("%w: unknown segmentation mode %q", ErrFormat, s)
}

// Polygon is a flat list of vertex coordinates x1,y1,x2,y2,...
type Polygon []float64

// RLE is an uncompressed run length encoding of a binary mask scanned in
// column-major order, Counts start with a background run
type RLE struct {
	Counts []int  `json:"counts"`
	Size   [2]int `json:"size"`
}

// Height of the encoded mask
func (r RLE) Height() int { return r.Size[0] }

// Width of the encoded mask
func (r RLE) Width() int { return r.Size[1] }

// Segmentation holds exactly one of the three encodings selected by Mode
type Segmentation struct {
	Mode       Mode
	Polygons   []Polygon
	RLE        *RLE
	Compressed string
}

// FromPolygons returns a polygon segmentation
func FromPolygons(polys ...Polygon) Segmentation {
	return Segmentation{Mode: ModePolygon, Polygons: polys}
}

// FromRLE returns an RLE segmentation
func FromRLE(r RLE) Segmentation {
	return Segmentation{Mode: ModeRLE, RLE: &r}
}

// FromCompressed returns a compressed RLE segmentation
func FromCompressed(s string) Segmentation {
	return Segmentation{Mode: ModeCompressedRLE, Compressed: s}
}

// IsEmpty reports whether the segmentation holds no geometry
func (s Segmentation) IsEmpty() bool {
	switch s.Mode {
	case ModePolygon:
		return len(s.Polygons) == 0
	case ModeRLE:
		return s.RLE == nil || len(s.RLE.Counts) == 0
	}
	return s.Compressed == ""
}

// FromValue detects the segmentation encoding from a decoded JSON value: lists
// are polygons, objects are RLE and strings are compressed RLE
func FromValue(v any) (Segmentation, error) {

	switch x := v.(type) {
	case Segmentation:
		return x, nil
	case *Segmentation:
		return *x, nil
	case nil:
		return FromPolygons(), nil
	case string:
		return FromCompressed(x), nil
	case RLE:
		return FromRLE(x), nil
	case *RLE:
		return FromRLE(*x), nil
	case []Polygon:
		return FromPolygons(x...), nil
	case [][]float64:
		polys := make([]Polygon, len(x))
		for i, p := range x {
			polys[i] = Polygon(p)
		}
		return FromPolygons(polys...), nil
	case []any:
		return polygonsFromList(x)
	case map[string]any:
		return rleFromMap(x)
	}

	return Segmentation{}, fmt.Errorf("%w: unsupported value of type %T", ErrFormat, v)
}

func polygonsFromList(list []any) (Segmentation, error) {

	if len(list) == 0 {
		return FromPolygons(), nil
	}

	// a flat coordinate list is a single polygon
	if _, ok := table.ToFloat(list[0]); ok {
		p, err := floatsFromList(list)
		if err != nil {
			return Segmentation{}, err
		}
		return FromPolygons(p), nil
	}

	polys := make([]Polygon, 0, len(list))

	for _, item := range list {
		coords, ok := item.([]any)
		if !ok {
			return Segmentation{}, fmt.Errorf("%w: polygon must be a list of numbers, got %T", ErrFormat, item)
		}
		p, err := floatsFromList(coords)
		if err != nil {
			return Segmentation{}, err
		}
		polys = append(polys, p)
	}

	return FromPolygons(polys...), nil
}

func floatsFromList(list []any) (Polygon, error) {

	p := make(Polygon, len(list))

	for i, c := range list {
		f, ok := table.ToFloat(c)
		if !ok {
			return nil, fmt.Errorf("%w: polygon coordinate %v is not a number", ErrFormat, c)
		}
		p[i] = f
	}

	return p, nil
}

func rleFromMap(m map[string]any) (Segmentation, error) {

	var r RLE

	size, ok := m["size"].([]any)
	if !ok || len(size) != 2 {
		return Segmentation{}, fmt.Errorf("%w: RLE size must be [height, width]", ErrFormat)
	}

	for i := range size {
		n, ok := table.ToInt(size[i])
		if !ok {
			return Segmentation{}, fmt.Errorf("%w: RLE size must hold integers", ErrFormat)
		}
		r.Size[i] = int(n)
	}

	switch counts := m["counts"].(type) {
	case []any:
		r.Counts = make([]int, len(counts))
		for i, c := range counts {
			n, ok := table.ToInt(c)
			if !ok {
				return Segmentation{}, fmt.Errorf("%w: RLE counts must hold integers", ErrFormat)
			}
			r.Counts[i] = int(n)
		}
	case string:
		// COCO crowd annotations store the compact counts string inline
		cnts, err := countsFromString([]byte(counts))
		if err != nil {
			return Segmentation{}, err
		}
		r.Counts = cnts
	default:
		return Segmentation{}, fmt.Errorf("%w: RLE counts missing", ErrFormat)
	}

	return FromRLE(r), nil
}

// String returns the COCO json form of the segmentation
func (s Segmentation) String() string {

	b, err := s.MarshalJSON()

	if err != nil {
		return s.Mode.String()
	}

	return string(b)
}

// MarshalJSON writes the segmentation in its COCO form
func (s Segmentation) MarshalJSON() ([]byte, error) {

	switch s.Mode {
	case ModeRLE:
		if s.RLE == nil {
			return json.Marshal(RLE{Counts: []int{}})
		}
		return json.Marshal(s.RLE)
	case ModeCompressedRLE:
		return json.Marshal(s.Compressed)
	}

	polys := s.Polygons

	if polys == nil {
		polys = []Polygon{}
	}

	return json.Marshal(polys)
}

// UnmarshalJSON detects the segmentation mode from the JSON value
func (s *Segmentation) UnmarshalJSON(data []byte) error {

	var v any

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("error decoding segmentation: %w", err)
	}

	seg, err := FromValue(v)

	if err != nil {
		return err
	}

	*s = seg

	return nil
}
