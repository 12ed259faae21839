package splitter

import (
	"math/rand"

	cocohelper "github.com/swdee/go-cocohelper"
	"github.com/swdee/go-cocohelper/table"
)

// Stratified splits the images following the given proportions while keeping
// the share of every category similar across the splits.  Images are assigned
// by iterative stratification, rarest label first.
type Stratified struct {
	proportions []float64
	rng         *rand.Rand
}

// NewStratified returns a stratified splitter for two or more proportions
func NewStratified(rng *rand.Rand, proportions ...float64) (*Stratified, error) {

	p, err := normalize(proportions)

	if err != nil {
		return nil, err
	}

	return &Stratified{proportions: p, rng: rng}, nil
}

// Split implements Splitter
func (s *Stratified) Split(d *cocohelper.Dataset) ([]*cocohelper.Dataset, error) {

	ids, err := s.ids(d)

	if err != nil {
		return nil, err
	}

	return subsets(d, ids)
}

// labelsByImage returns the category of every annotation grouped by image
func labelsByImage(d *cocohelper.Dataset) map[int64][]int64 {

	out := make(map[int64][]int64)

	for _, r := range d.Anns().Rows() {
		img, _ := table.ToInt(r["image_id"])
		cat, _ := table.ToInt(r["category_id"])
		out[img] = append(out[img], cat)
	}

	return out
}

func (s *Stratified) ids(d *cocohelper.Dataset) ([][]int64, error) {

	byLabel, labels, err := imagesByLabel(d)

	if err != nil {
		return nil, err
	}

	n := len(s.proportions)
	total := float64(d.Imgs().Len())
	imgLabels := labelsByImage(d)

	// label ratios over the image lists of every label
	var count float64

	for _, l := range labels {
		count += float64(len(byLabel[l]))
	}

	desired := make([]float64, n)
	desiredFor := make([]map[int64]float64, n)

	for i, p := range s.proportions {
		desired[i] = p * total
		desiredFor[i] = make(map[int64]float64, len(labels))
		for _, l := range labels {
			desiredFor[i][l] = desired[i] * float64(len(byLabel[l])) / count
		}
	}

	out := make([][]int64, n)

	for {

		// pick the label with the fewest remaining images
		fewest := -1
		var candidates []int64

		for _, l := range labels {
			k := len(byLabel[l])
			switch {
			case k == 0:
				continue
			case fewest < 0 || k < fewest:
				fewest = k
				candidates = []int64{l}
			case k == fewest:
				candidates = append(candidates, l)
			}
		}

		if fewest < 0 {
			break
		}

		lbl := candidates[s.rng.Intn(len(candidates))]

		for _, img := range append([]int64(nil), byLabel[lbl]...) {

			best := 0

			for i := 1; i < n; i++ {
				want, have := desiredFor[i][lbl], desiredFor[best][lbl]
				switch {
				case want > have:
					best = i
				case want == have && desired[i] > desired[best]:
					best = i
				case want == have && desired[i] == desired[best] && s.rng.Intn(2) == 1:
					best = i
				}
			}

			out[best] = append(out[best], img)

			for _, l := range labels {
				byLabel[l] = remove(byLabel[l], img)
			}

			for _, l := range imgLabels[img] {
				desiredFor[best][l]--
			}
		}
	}

	return out, nil
}

func remove(ids []int64, id int64) []int64 {

	out := ids[:0:0]

	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}

	return out
}
