// Package splitter partitions a COCO dataset by image into disjoint subsets
// for training and validation workflows.
package splitter

import (
	"errors"
	"fmt"
	"sort"

	cocohelper "github.com/swdee/go-cocohelper"
	"github.com/swdee/go-cocohelper/table"
)

// ErrUsage is returned for invalid splitter parameters
var ErrUsage = errors.New("invalid splitter usage")

// unlabelled is the label given to images without annotations
const unlabelled = int64(-1)

// Splitter splits a dataset into subsets, every image lands in exactly one
// subset
type Splitter interface {
	Split(d *cocohelper.Dataset) ([]*cocohelper.Dataset, error)
}

// normalize returns the proportions scaled to sum to 1
func normalize(proportions []float64) ([]float64, error) {

	if len(proportions) <= 1 {
		return nil, fmt.Errorf("%w: a split requires more than one proportion, got %d", ErrUsage, len(proportions))
	}

	var sum float64

	for _, p := range proportions {
		if p < 0 {
			return nil, fmt.Errorf("%w: negative proportion %v", ErrUsage, p)
		}
		sum += p
	}

	if sum <= 0 {
		return nil, fmt.Errorf("%w: the proportions must sum to a positive value", ErrUsage)
	}

	out := make([]float64, len(proportions))

	for i, p := range proportions {
		out[i] = p / sum
	}

	return out, nil
}

// imagesByLabel groups the image ids by the categories annotated on them,
// images without annotations are grouped under the unlabelled label.  The
// labels are returned in ascending order.
func imagesByLabel(d *cocohelper.Dataset) (map[int64][]int64, []int64, error) {

	ia, err := d.Joins().ImgsAnns()

	if err != nil {
		return nil, nil, err
	}

	byLabel := make(map[int64][]int64)
	seen := make(map[[2]int64]struct{})

	for _, r := range ia.Rows() {

		img, _ := table.ToInt(r["image_id"])
		lbl, ok := table.ToInt(r["category_id"])

		if !ok {
			lbl = unlabelled
		}

		k := [2]int64{lbl, img}

		if _, dup := seen[k]; dup {
			continue
		}

		seen[k] = struct{}{}
		byLabel[lbl] = append(byLabel[lbl], img)
	}

	labels := make([]int64, 0, len(byLabel))

	for l := range byLabel {
		labels = append(labels, l)
	}

	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	return byLabel, labels, nil
}

// subsets builds one dataset per id list
func subsets(d *cocohelper.Dataset, ids [][]int64) ([]*cocohelper.Dataset, error) {

	out := make([]*cocohelper.Dataset, len(ids))

	for i, s := range ids {

		if s == nil {
			// an empty selection, not an unconstrained one
			s = []int64{}
		}

		sub, err := d.FilterImgs(nil, cocohelper.Selectors{ImgIDs: s})

		if err != nil {
			return nil, fmt.Errorf("error building split %d: %w", i, err)
		}

		out[i] = sub
	}

	return out, nil
}
