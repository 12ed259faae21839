package splitter

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cocohelper "github.com/swdee/go-cocohelper"
	"github.com/swdee/go-cocohelper/segmentation"
)

func fixture(t *testing.T) *cocohelper.Dataset {

	t.Helper()

	d, err := cocohelper.Load("../testdata/coco", cocohelper.Options{})
	require.NoError(t, err)

	return d
}

// balanced builds 8 images, 4 annotated with category 0 and 4 with category 1
func balanced(t *testing.T) *cocohelper.Dataset {

	t.Helper()

	doc := cocohelper.Document{
		Categories: []cocohelper.Category{{ID: 0, Name: "a"}, {ID: 1, Name: "b"}},
	}

	for i := 0; i < 8; i++ {
		doc.Images = append(doc.Images, cocohelper.Image{ID: int64(i), FileName: "x.png", Width: 10, Height: 10})
		doc.Annotations = append(doc.Annotations, cocohelper.Annotation{
			ID: int64(i), ImageID: int64(i), CategoryID: int64(i % 2),
			BBox: cocohelper.BBox{0, 0, 1, 1}, Area: 1,
			Segmentation: segmentation.FromPolygons(),
		})
	}

	d, err := cocohelper.New(doc, cocohelper.Options{})
	require.NoError(t, err)

	return d
}

func imageIDs(d *cocohelper.Dataset) []int64 {

	var ids []int64

	for _, img := range d.Images() {
		ids = append(ids, img.ID)
	}

	return ids
}

// assertPartition checks that every image is in exactly one split
func assertPartition(t *testing.T, d *cocohelper.Dataset, splits []*cocohelper.Dataset) {

	t.Helper()

	seen := make(map[int64]int)

	for _, s := range splits {
		for _, id := range imageIDs(s) {
			seen[id]++
		}
	}

	assert.Len(t, seen, d.Imgs().Len())

	for id, n := range seen {
		assert.Equal(t, 1, n, "image %d", id)
	}
}

func TestNewProportionalUsage(t *testing.T) {

	rng := rand.New(rand.NewSource(1))

	_, err := NewProportional(rng, 1)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = NewProportional(rng, 0, 0)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = NewStratified(rng, 1, -1)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = NewKFold(rng, 1, false)
	assert.ErrorIs(t, err, ErrUsage)

	p, err := NewProportional(rng, 70, 30)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.7, 0.3}, p.Proportions(), 1e-9)
}

func TestProportionalSplit(t *testing.T) {

	d := fixture(t)

	tests := []struct {
		proportions []float64
		sizes       []int
	}{
		{[]float64{0.7, 0.3}, []int{10, 4}},
		{[]float64{70, 30}, []int{10, 4}},
		{[]float64{1, 2, 1}, []int{4, 7, 3}},
	}

	for _, tc := range tests {

		p, err := NewProportional(rand.New(rand.NewSource(42)), tc.proportions...)
		require.NoError(t, err)

		splits, err := p.Split(d)
		require.NoError(t, err)
		require.Len(t, splits, len(tc.sizes))

		for i, s := range splits {
			assert.Equal(t, tc.sizes[i], s.Imgs().Len(), "split %d of %v", i, tc.proportions)
		}

		assertPartition(t, d, splits)
	}
}

func TestProportionalIsReproducible(t *testing.T) {

	d := fixture(t)

	a, err := NewProportional(rand.New(rand.NewSource(7)), 0.5, 0.5)
	require.NoError(t, err)

	b, err := NewProportional(rand.New(rand.NewSource(7)), 0.5, 0.5)
	require.NoError(t, err)

	sa, err := a.Split(d)
	require.NoError(t, err)

	sb, err := b.Split(d)
	require.NoError(t, err)

	for i := range sa {
		assert.Equal(t, imageIDs(sa[i]), imageIDs(sb[i]))
	}
}

func TestStratifiedSplit(t *testing.T) {

	d := balanced(t)

	s, err := NewStratified(rand.New(rand.NewSource(3)), 0.5, 0.5)
	require.NoError(t, err)

	splits, err := s.Split(d)
	require.NoError(t, err)
	require.Len(t, splits, 2)

	assertPartition(t, d, splits)

	for i, sp := range splits {
		perCat := make(map[int64]int)
		for _, a := range sp.Annotations() {
			perCat[a.CategoryID]++
		}
		assert.Equal(t, map[int64]int{0: 2, 1: 2}, perCat, "split %d", i)
	}
}

func TestKFold(t *testing.T) {

	d := fixture(t)

	k, err := NewKFold(rand.New(rand.NewSource(5)), 7, false)
	require.NoError(t, err)

	splits, err := k.Split(d)
	require.NoError(t, err)
	require.Len(t, splits, 7)

	for _, s := range splits {
		assert.Equal(t, 2, s.Imgs().Len())
	}

	folds, err := k.Folds(d)
	require.NoError(t, err)
	require.Len(t, folds, 7)

	for _, f := range folds {
		assert.Equal(t, 12, f.Train.Imgs().Len())
		assert.Equal(t, 2, f.Validation.Imgs().Len())
		assert.Equal(t, d.Anns().Len(), f.Train.Anns().Len()+f.Validation.Anns().Len())
	}
}

func TestStratifiedKFold(t *testing.T) {

	d := balanced(t)

	k, err := NewKFold(rand.New(rand.NewSource(9)), 2, true)
	require.NoError(t, err)

	folds, err := k.Folds(d)
	require.NoError(t, err)
	require.Len(t, folds, 2)

	for _, f := range folds {
		assert.Equal(t, 4, f.Train.Imgs().Len())
		assert.Equal(t, 4, f.Validation.Imgs().Len())
	}
}
