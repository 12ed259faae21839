// Package stats computes descriptive statistics of a COCO dataset, mainly to
// choose an input size that keeps the smallest annotations visible.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/swdee/go-cocohelper"
	"github.com/swdee/go-cocohelper/internal/logging"
	"github.com/swdee/go-cocohelper/table"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmpty is returned when a statistic needs at least one image
var ErrEmpty = errors.New("dataset has no images")

// missingName and missingID stand for annotations or images without category
// in the category ratios
const (
	missingName       = "<NA>"
	missingID   int64 = -1
)

// eps keeps the height to width ratio finite for zero width images
const eps = 1e-16

// Statistic names the image size statistic used by OptimalImageSize
type Statistic string

const (
	Mean   Statistic = "mean"
	Median Statistic = "median"
	Mode   Statistic = "mode"
)

// Size is a height and width pair
type Size struct {
	Height float64 `json:"height" yaml:"height"`
	Width  float64 `json:"width" yaml:"width"`
}

// ImageSizes holds per axis statistics of the image sizes
type ImageSizes struct {
	Min      Size `json:"min" yaml:"min"`
	Max      Size `json:"max" yaml:"max"`
	Mean     Size `json:"mean" yaml:"mean"`
	Median   Size `json:"median" yaml:"median"`
	Std      Size `json:"std" yaml:"std"`
	Mode     Size `json:"mode" yaml:"mode"`
	IQR      Size `json:"iqr" yaml:"iqr"`
	Skewness Size `json:"skewness" yaml:"skewness"`
	Kurtosis Size `json:"kurtosis" yaml:"kurtosis"`
	// AvgSizeRatio is the mean height over width ratio
	AvgSizeRatio float64 `json:"avg_size_ratio" yaml:"avg_size_ratio"`
}

// Get returns the statistic named s
func (s ImageSizes) Get(st Statistic) (Size, error) {

	switch st {
	case Mean:
		return s.Mean, nil
	case Median:
		return s.Median, nil
	case Mode:
		return s.Mode, nil
	}

	return Size{}, fmt.Errorf("unknown image size statistic %q, use mean, median or mode", st)
}

// Stats computes statistics over one dataset
type Stats struct {
	d *cocohelper.Dataset
}

// New returns the statistics of d
func New(d *cocohelper.Dataset) *Stats {
	return &Stats{d: d}
}

// NumImgs returns the number of images
func (s *Stats) NumImgs() int { return s.d.Imgs().Len() }

// NumCats returns the number of categories
func (s *Stats) NumCats() int { return s.d.Cats().Len() }

// NumAnns returns the number of annotations
func (s *Stats) NumAnns() int { return s.d.Anns().Len() }

// axis returns the summary statistics of one axis of the image sizes
type axis struct {
	min, max, mean, median, std, mode, iqr, skew, kurt float64
}

func summarize(x []float64) axis {

	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)
	mode, _ := stat.Mode(sorted, nil)

	return axis{
		min:    floats.Min(sorted),
		max:    floats.Max(sorted),
		mean:   mean,
		median: stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		std:    std,
		mode:   mode,
		iqr:    stat.Quantile(0.75, stat.LinInterp, sorted, nil) - stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		skew:   stat.Skew(sorted, nil),
		kurt:   stat.ExKurtosis(sorted, nil),
	}
}

// ImageSizeStats returns statistics of the image heights and widths
func (s *Stats) ImageSizeStats() (ImageSizes, error) {

	imgs := s.d.Images()

	if len(imgs) == 0 {
		return ImageSizes{}, ErrEmpty
	}

	hs := make([]float64, len(imgs))
	ws := make([]float64, len(imgs))
	ratios := make([]float64, len(imgs))

	for i, img := range imgs {
		hs[i] = float64(img.Height)
		ws[i] = float64(img.Width)
		ratios[i] = hs[i] / (ws[i] + eps)
	}

	h, w := summarize(hs), summarize(ws)

	return ImageSizes{
		Min:          Size{h.min, w.min},
		Max:          Size{h.max, w.max},
		Mean:         Size{h.mean, w.mean},
		Median:       Size{h.median, w.median},
		Std:          Size{h.std, w.std},
		Mode:         Size{h.mode, w.mode},
		IQR:          Size{h.iqr, w.iqr},
		Skewness:     Size{h.skew, w.skew},
		Kurtosis:     Size{h.kurt, w.kurt},
		AvgSizeRatio: stat.Mean(ratios, nil),
	}, nil
}

// AnnotationSizeStats maps every image size to the smallest annotation box of
// each image of that size.  Height and width minimums are taken separately
// and images without annotations are left out.
func (s *Stats) AnnotationSizeStats() map[Size][]Size {

	smallest := make(map[int64]Size)

	for _, a := range s.d.Annotations() {

		cur, ok := smallest[a.ImageID]

		if !ok {
			smallest[a.ImageID] = Size{Height: a.BBox.H(), Width: a.BBox.W()}
			continue
		}

		smallest[a.ImageID] = Size{
			Height: math.Min(cur.Height, a.BBox.H()),
			Width:  math.Min(cur.Width, a.BBox.W()),
		}
	}

	out := make(map[Size][]Size)

	for _, img := range s.d.Images() {
		if m, ok := smallest[img.ID]; ok {
			k := Size{Height: float64(img.Height), Width: float64(img.Width)}
			out[k] = append(out[k], m)
		}
	}

	return out
}

// OptimalImageSize returns the height and width to resize every image to so
// that the smallest annotation keeps at least nPixels on each axis, but never
// below the image size statistic st
func (s *Stats) OptimalImageSize(st Statistic, nPixels int) (int, int, error) {

	if nPixels < 1 {
		return 0, 0, fmt.Errorf("minimum number of pixels must be >= 1, got %d", nPixels)
	}

	sizes, err := s.ImageSizeStats()

	if err != nil {
		return 0, 0, err
	}

	base, err := sizes.Get(st)

	if err != nil {
		return 0, 0, err
	}

	var hs, ws []float64
	n := float64(nPixels)

	for img, anns := range s.AnnotationSizeStats() {

		hmin := make([]float64, 0, len(anns))
		wmin := make([]float64, 0, len(anns))

		for _, a := range anns {
			if a.Height > 0 {
				hmin = append(hmin, a.Height)
			}
			if a.Width > 0 {
				wmin = append(wmin, a.Width)
			}
		}

		if len(hmin) > 0 {
			hs = append(hs, n*img.Height/floats.Min(hmin))
		}

		if len(wmin) > 0 {
			ws = append(ws, n*img.Width/floats.Min(wmin))
		}
	}

	h, w := base.Height, base.Width

	if len(hs) > 0 {
		h = math.Max(h, floats.Max(hs))
	}

	if len(ws) > 0 {
		w = math.Max(w, floats.Max(ws))
	}

	logging.Logger().Info("computed optimal image size", "statistic", st, "n_pixels", nPixels,
		"height", int(h), "width", int(w))

	return int(h), int(w), nil
}

// ratios counts the values of col over the images joined with their
// annotations and categories, normalised by the number of joined rows
func (s *Stats) ratios(col string, key func(v any) any) (map[any]float64, error) {

	t, err := s.d.Joins().ImgsAnnsCats()

	if err != nil {
		return nil, err
	}

	out := make(map[any]float64)

	if t.Len() == 0 {
		return out, nil
	}

	for _, v := range t.Column(col) {
		out[key(v)]++
	}

	for k := range out {
		out[k] /= float64(t.Len())
	}

	return out, nil
}

// CategoryNameRatios returns the fraction of joined image and annotation rows
// per category name.  Images without annotations count under "<NA>".
func (s *Stats) CategoryNameRatios() (map[string]float64, error) {

	r, err := s.ratios("category_name", func(v any) any {
		if v == nil {
			return missingName
		}
		return fmt.Sprint(v)
	})

	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(r))

	for k, v := range r {
		out[k.(string)] = v
	}

	return out, nil
}

// CategoryIDRatios returns the fraction of joined image and annotation rows
// per category id.  Images without annotations count under -1.
func (s *Stats) CategoryIDRatios() (map[int64]float64, error) {

	r, err := s.ratios("category_id", func(v any) any {
		if id, ok := table.ToInt(v); ok {
			return id
		}
		return missingID
	})

	if err != nil {
		return nil, err
	}

	out := make(map[int64]float64, len(r))

	for k, v := range r {
		out[k.(int64)] = v
	}

	return out, nil
}
