package splitter

import (
	"math"
	"math/rand"

	cocohelper "github.com/swdee/go-cocohelper"
)

// Proportional splits the images at random following the given proportions
type Proportional struct {
	proportions []float64
	rng         *rand.Rand
}

// NewProportional returns a splitter for two or more proportions, they are
// normalised to sum to 1
func NewProportional(rng *rand.Rand, proportions ...float64) (*Proportional, error) {

	p, err := normalize(proportions)

	if err != nil {
		return nil, err
	}

	return &Proportional{proportions: p, rng: rng}, nil
}

// Proportions returns the normalised proportions
func (p *Proportional) Proportions() []float64 {
	return append([]float64(nil), p.proportions...)
}

// Split implements Splitter
func (p *Proportional) Split(d *cocohelper.Dataset) ([]*cocohelper.Dataset, error) {

	ids, err := p.ids(d)

	if err != nil {
		return nil, err
	}

	return subsets(d, ids)
}

func (p *Proportional) ids(d *cocohelper.Dataset) ([][]int64, error) {

	byLabel, labels, err := imagesByLabel(d)

	if err != nil {
		return nil, err
	}

	var all []int64
	seen := make(map[int64]struct{})

	for _, l := range labels {
		for _, img := range byLabel[l] {
			if _, ok := seen[img]; !ok {
				seen[img] = struct{}{}
				all = append(all, img)
			}
		}
	}

	p.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

	out := make([][]int64, len(p.proportions))
	rest := all

	for i, prop := range p.proportions {

		n := int(math.Round(prop * float64(len(all))))

		if n > len(rest) || i == len(p.proportions)-1 {
			// the last split takes what rounding left over
			n = len(rest)
		}

		out[i] = append([]int64{}, rest[:n]...)
		rest = rest[n:]
	}

	return out, nil
}
