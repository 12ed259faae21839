package splitter

import (
	"fmt"
	"math/rand"

	cocohelper "github.com/swdee/go-cocohelper"
)

// Fold pairs a validation split with the training set made of every other
// image
type Fold struct {
	Train      *cocohelper.Dataset
	Validation *cocohelper.Dataset
}

// KFold splits a dataset into n folds of equal size
type KFold struct {
	n        int
	splitter Splitter
	rng      *rand.Rand
}

// NewKFold returns a k-fold splitter for n > 1 folds, stratified by category
// when requested
func NewKFold(rng *rand.Rand, n int, stratified bool) (*KFold, error) {

	if n <= 1 {
		return nil, fmt.Errorf("%w: the number of folds must be greater than 1, got %d", ErrUsage, n)
	}

	props := make([]float64, n)

	for i := range props {
		props[i] = 1
	}

	k := &KFold{n: n, rng: rng}

	if stratified {
		k.splitter, _ = NewStratified(rng, props...)
	} else {
		k.splitter, _ = NewProportional(rng, props...)
	}

	return k, nil
}

// Split implements Splitter returning the n validation splits
func (k *KFold) Split(d *cocohelper.Dataset) ([]*cocohelper.Dataset, error) {
	return k.splitter.Split(d)
}

// Folds returns the n folds in random order
func (k *KFold) Folds(d *cocohelper.Dataset) ([]Fold, error) {

	splits, err := k.Split(d)

	if err != nil {
		return nil, err
	}

	k.rng.Shuffle(len(splits), func(i, j int) { splits[i], splits[j] = splits[j], splits[i] })

	folds := make([]Fold, len(splits))

	for i, val := range splits {

		ids := make([]int64, 0, val.Imgs().Len())

		for _, img := range val.Images() {
			ids = append(ids, img.ID)
		}

		train, err := d.FilterImgs(nil, cocohelper.Selectors{ImgIDs: ids, Invert: true})

		if err != nil {
			return nil, fmt.Errorf("error building training set of fold %d: %w", i, err)
		}

		folds[i] = Fold{Train: train, Validation: val}
	}

	return folds, nil
}
