package cocohelper

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-cocohelper/filter"
	"github.com/swdee/go-cocohelper/segmentation"
	"github.com/swdee/go-cocohelper/table"
	"github.com/swdee/go-cocohelper/validator"
	"gocv.io/x/gocv"
)

const fixtureDir = "testdata/coco"

func loadFixture(t *testing.T) *Dataset {

	t.Helper()

	d, err := Load(fixtureDir, Options{Validate: true})
	require.NoError(t, err)

	return d
}

// smallDoc builds a dataset of two images with the given category names all
// under the same supercategory
func smallDoc(names ...string) Document {

	doc := Document{
		Licenses: []License{{ID: 7, Name: "lic", URL: "http://example.com"}},
	}

	lic := int64(7)

	for i, n := range names {
		doc.Categories = append(doc.Categories, Category{ID: int64(10 + i), Name: n, Supercategory: "thing"})
	}

	for i := 0; i < 2; i++ {
		doc.Images = append(doc.Images, Image{ID: int64(100 + i), FileName: names[0] + "-" + string(rune('a'+i)) + ".png",
			Width: 32, Height: 32, LicenseID: &lic})
	}

	for i := 0; i < 3; i++ {
		doc.Annotations = append(doc.Annotations, Annotation{
			ID:           int64(1000 + i),
			ImageID:      int64(100 + i%2),
			CategoryID:   int64(10 + i%len(names)),
			BBox:         BBox{1, 1, float64(i + 1), 2},
			Area:         float64(2 * (i + 1)),
			Segmentation: segmentation.FromPolygons(segmentation.Polygon{1, 1, float64(i + 2), 1, float64(i + 2), 3, 1, 3}),
		})
	}

	return doc
}

func sizes(d *Dataset) [4]int {
	return [4]int{d.Imgs().Len(), d.Anns().Len(), d.Cats().Len(), d.LicensesTable().Len()}
}

func TestLoadFixture(t *testing.T) {

	d := loadFixture(t)

	assert.Equal(t, [4]int{14, 46, 3, 1}, sizes(d))
	assert.Equal(t, "annotation_id", d.Anns().IndexName())
	assert.Equal(t, "image_id", d.Imgs().IndexName())
	assert.Equal(t, "shapes fixture", d.Info().Description)
	assert.Equal(t, fixtureDir, d.Root())

	for _, a := range d.Annotations() {
		if a.ID == 40 {
			assert.Equal(t, segmentation.ModeRLE, a.Segmentation.Mode)
			continue
		}
		assert.Equal(t, segmentation.ModePolygon, a.Segmentation.Mode, "annotation %d", a.ID)
	}

	img, err := d.GetImg(13)
	require.NoError(t, err)
	assert.Equal(t, "img_13.png", img.FileName)
	require.NotNil(t, img.LicenseID)
	assert.Equal(t, int64(0), *img.LicenseID)
}

func TestFilterImgs(t *testing.T) {

	d := loadFixture(t)

	out, err := d.FilterImgs(nil, Selectors{ImgIDs: []int64{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Imgs().Len())
	assert.Equal(t, 22, out.Anns().Len())
	assert.Equal(t, 3, out.Cats().Len())

	inv, err := d.FilterImgs(nil, Selectors{ImgIDs: []int64{1, 2, 3}, Invert: true})
	require.NoError(t, err)
	assert.Equal(t, 11, inv.Imgs().Len())
	assert.Equal(t, 24, inv.Anns().Len())

	// the receiver is unchanged
	assert.Equal(t, [4]int{14, 46, 3, 1}, sizes(d))
}

func TestFilterCats(t *testing.T) {

	d := loadFixture(t)

	out, err := d.FilterCats(nil, Selectors{CatIDs: []int64{0, 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Cats().Len())
	assert.Equal(t, 45, out.Anns().Len())

	inv, err := d.FilterCats(nil, Selectors{CatIDs: []int64{0, 1}, Invert: true})
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Cats().Len())
	assert.Equal(t, 1, inv.Anns().Len())
}

func TestFilterByCategoryName(t *testing.T) {

	d := loadFixture(t)

	imgs, err := d.FilteredImgs(nil, Selectors{CatNames: []string{"triangle"}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(13)}, imgs.Keys())

	cats := d.FilteredCats(nil, Selectors{SupercatNames: []string{"shape"}})
	assert.Equal(t, 3, cats.Len())
}

func TestFilterAnnsArea(t *testing.T) {

	d := loadFixture(t)

	out, err := d.FilterAnns(nil, Selectors{AreaRange: &filter.Range{Min: 2, Max: 10}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0), int64(1), int64(2), int64(3), int64(4)}, out.Anns().Keys())
	assert.Equal(t, 14, out.Imgs().Len())

	// image 0 holds annotations 22 to 25, category 2 only annotation 45
	anns, err := d.FilteredAnns(nil, Selectors{ImgIDs: []int64{0}, CatIDs: []int64{2}, Composition: filter.ComposeOr})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(22), int64(23), int64(24), int64(25), int64(45)}, anns.Keys())
}

func TestFilterDropsOrphans(t *testing.T) {

	d := loadFixture(t)

	out, err := d.Filter(FilterOptions{Selectors: Selectors{CatIDs: []int64{2}}})
	require.NoError(t, err)
	assert.Equal(t, [4]int{1, 1, 1, 1}, sizes(out))
	assert.Equal(t, []any{int64(13)}, out.Imgs().Keys())

	// applied per table the image table has no category_id column and is kept
	kept, err := d.Filter(FilterOptions{Selectors: Selectors{CatIDs: []int64{2}}, KeepOrphans: true})
	require.NoError(t, err)
	assert.Equal(t, [4]int{14, 1, 1, 1}, sizes(kept))
}

func TestCustomFilter(t *testing.T) {

	d := loadFixture(t)

	f := filter.And(
		filter.NewValueFilter("image_id", filter.Ints([]int64{1}), filter.HavingValue),
		filter.Value("category_id", 0),
	)

	out, err := d.Filter(FilterOptions{Filter: f})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Anns().Len())
	assert.Equal(t, 1, out.Imgs().Len())
	assert.Equal(t, 1, out.Cats().Len())

	// the selectors are ignored when a custom filter is given
	same, err := d.Filter(FilterOptions{Filter: f, Selectors: Selectors{ImgIDs: []int64{5}}})
	require.NoError(t, err)
	assert.Equal(t, sizes(out), sizes(same))
}

func TestCopyPrunesOrphans(t *testing.T) {

	d := loadFixture(t)

	keep := map[any]struct{}{int64(0): {}}

	out, err := d.Copy(CopyOptions{Imgs: d.Imgs().WhereKeys(keep)})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Imgs().Len())
	assert.Equal(t, []any{int64(22), int64(23), int64(24), int64(25)}, out.Anns().Keys())

	for _, a := range out.Annotations() {
		assert.Equal(t, int64(0), a.ImageID)
	}

	assert.Equal(t, 1, out.LabelledImgs().Len())
	assert.Equal(t, 0, out.UnlabelledImgs().Len())
}

func TestLabelledImgs(t *testing.T) {

	d := loadFixture(t)

	keep := map[any]struct{}{int64(22): {}}

	out, err := d.Copy(CopyOptions{Anns: d.Anns().WhereKeys(keep)})
	require.NoError(t, err)

	assert.Equal(t, []any{int64(0)}, out.LabelledImgs().Keys())
	assert.Equal(t, 13, out.UnlabelledImgs().Len())

	lab, err := out.DropUnlabelled()
	require.NoError(t, err)
	assert.Equal(t, [4]int{1, 1, 3, 1}, sizes(lab))

	unlab, err := out.DropLabelled()
	require.NoError(t, err)
	assert.Equal(t, [4]int{13, 0, 3, 1}, sizes(unlab))
}

func TestCopyValidation(t *testing.T) {

	d, err := New(smallDoc("cat", "dog"), Options{Root: t.TempDir()})
	require.NoError(t, err)

	_, err = d.Copy(CopyOptions{Validate: true})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, verr.Report.Failed(), validator.CheckDatasetTree)
}

func TestJoins(t *testing.T) {

	d := loadFixture(t)
	j := d.Joins()

	tests := []struct {
		name  string
		join  func() (*table.Table, error)
		index string
		rows  int
	}{
		{"anns_imgs", j.AnnsImgs, "annotation_id", 46},
		{"imgs_anns", j.ImgsAnns, "image_id", 46},
		{"anns_cats", j.AnnsCats, "annotation_id", 46},
		{"cats_anns", j.CatsAnns, "category_id", 46},
		{"anns_cats_imgs", j.AnnsCatsImgs, "annotation_id", 46},
		{"anns_imgs_cats", j.AnnsImgsCats, "annotation_id", 46},
		{"imgs_anns_cats", j.ImgsAnnsCats, "image_id", 46},
		{"imgs_cats_anns", j.ImgsCatsAnns, "image_id", 46},
		{"cats_anns_imgs", j.CatsAnnsImgs, "category_id", 46},
		{"cats_imgs_anns", j.CatsImgsAnns, "category_id", 46},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.join()
			require.NoError(t, err)
			assert.Equal(t, tc.index, out.IndexName())
			assert.Equal(t, tc.rows, out.Len())
		})
	}

	ac, err := j.AnnsCats()
	require.NoError(t, err)
	assert.True(t, ac.HasColumn("category_name"))
	assert.Equal(t, "triangle", ac.Row(45)["category_name"])

	_, err = j.ExtractImgs(d.Cats())
	assert.Error(t, err, "the category table holds no image_id column")

	aci, err := j.AnnsCatsImgs()
	require.NoError(t, err)

	for name, extract := range map[string]func(*table.Table) (*table.Table, error){
		"cats": j.ExtractCats, "imgs": j.ExtractImgs, "anns": j.ExtractAnns,
	} {
		out, err := extract(aci)
		require.NoError(t, err, name)
		assert.Equal(t, map[string]int{"cats": 3, "imgs": 14, "anns": 46}[name], out.Len(), name)
	}
}

func TestImgsAnnsKeepsUnlabelled(t *testing.T) {

	doc := smallDoc("cat")
	doc.Images = append(doc.Images, Image{ID: 500, FileName: "empty.png", Width: 8, Height: 8})

	d, err := New(doc, Options{})
	require.NoError(t, err)

	ia, err := d.Joins().ImgsAnns()
	require.NoError(t, err)
	assert.Equal(t, 4, ia.Len())

	imgs, err := d.Joins().ExtractImgs(ia)
	require.NoError(t, err)
	assert.Equal(t, 3, imgs.Len())

	assert.Equal(t, []any{int64(500)}, d.UnlabelledImgs().Keys())
}

func TestDropDuplicateCats(t *testing.T) {

	doc := smallDoc("cat", "cat", "dog")

	d, err := New(doc, Options{})
	require.NoError(t, err)

	out, err := d.DropDuplicateCats()
	require.NoError(t, err)

	assert.Equal(t, []any{int64(10), int64(12)}, out.Cats().Keys())

	for _, a := range out.Annotations() {
		assert.NotEqual(t, int64(11), a.CategoryID, "annotation %d still points at the dropped category", a.ID)
	}

	assert.Equal(t, 3, out.Anns().Len())
}

func TestDropDuplicateImgs(t *testing.T) {

	doc := smallDoc("cat")
	doc.Images[1].FileName = doc.Images[0].FileName

	d, err := New(doc, Options{})
	require.NoError(t, err)

	out, err := d.DropDuplicateImgs()
	require.NoError(t, err)

	assert.Equal(t, []any{int64(100)}, out.Imgs().Keys())
	assert.Equal(t, 3, out.Anns().Len())

	for _, a := range out.Annotations() {
		assert.Equal(t, int64(100), a.ImageID)
	}
}

func TestDropDuplicateAnnsIgnoreList(t *testing.T) {

	doc := smallDoc("cat")
	// same image, category and area as annotation 1000 but another box
	doc.Annotations = append(doc.Annotations, Annotation{
		ID: 2000, ImageID: 100, CategoryID: 10, BBox: BBox{5, 5, 1, 2}, Area: 2,
		Segmentation: segmentation.FromPolygons(segmentation.Polygon{5, 5, 6, 5, 6, 7, 5, 7}),
	})

	d, err := New(doc, Options{})
	require.NoError(t, err)

	// geometry is ignored by default so the annotations collapse
	out, err := d.DropDuplicateAnns(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Anns().Len())
	assert.NotContains(t, out.Anns().Keys(), int64(2000))

	// comparing the geometry keeps both
	all, err := d.DropDuplicateAnns([]string{})
	require.NoError(t, err)
	assert.Equal(t, 4, all.Anns().Len())
}

func TestDropDuplicateLicenses(t *testing.T) {

	doc := smallDoc("cat")
	doc.Licenses = append(doc.Licenses, License{ID: 8, Name: "lic", URL: "http://example.com"})
	other := int64(8)
	doc.Images[1].LicenseID = &other

	d, err := New(doc, Options{})
	require.NoError(t, err)

	out, err := d.DropDuplicateLicenses()
	require.NoError(t, err)

	assert.Equal(t, []any{int64(7)}, out.LicensesTable().Keys())

	for _, img := range out.Images() {
		require.NotNil(t, img.LicenseID)
		assert.Equal(t, int64(7), *img.LicenseID)
	}
}

func TestMergeCardinality(t *testing.T) {

	a, err := New(smallDoc("cat", "dog"), Options{})
	require.NoError(t, err)

	b, err := New(smallDoc("car"), Options{})
	require.NoError(t, err)

	m, err := a.Merge(false, b)
	require.NoError(t, err)

	assert.Equal(t, [4]int{4, 6, 3, 2}, sizes(m))
	assert.Equal(t, []any{int64(0), int64(1), int64(2), int64(3), int64(4), int64(5)}, m.Anns().Keys())
	assert.Equal(t, []any{int64(0), int64(1), int64(2)}, m.Cats().Keys())

	// annotations of the second dataset point at its remapped image and category
	for _, ann := range m.Annotations()[3:] {
		assert.Contains(t, []int64{2, 3}, ann.ImageID)
		assert.Equal(t, int64(2), ann.CategoryID)
	}

	for _, img := range m.Images()[2:] {
		require.NotNil(t, img.LicenseID)
		assert.Equal(t, int64(1), *img.LicenseID)
	}

	info := m.Info()
	assert.Equal(t, DefaultContributor+mergeContributor, info.Contributor)
	assert.Len(t, info.MergedInfos, 2)
}

func TestMergeCollapsesCategories(t *testing.T) {

	a, err := New(smallDoc("cat", "dog"), Options{})
	require.NoError(t, err)

	b, err := New(smallDoc("dog"), Options{})
	require.NoError(t, err)

	m, err := Merge([]*Dataset{a, b}, false)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Cats().Len())
	assert.Equal(t, 6, m.Anns().Len())

	for _, ann := range m.Annotations()[3:] {
		assert.Equal(t, int64(1), ann.CategoryID)
	}
}

func TestSelfMerge(t *testing.T) {

	d := loadFixture(t)

	m, err := d.Merge(true, d)
	require.NoError(t, err)
	assert.Equal(t, sizes(d), sizes(m))

	dup, err := d.Merge(false, d)
	require.NoError(t, err)
	assert.Equal(t, [4]int{28, 92, 3, 2}, sizes(dup))
}

func TestMergeUsage(t *testing.T) {

	d := loadFixture(t)

	_, err := Merge([]*Dataset{d}, false)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = d.Merge(false)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestLookupErrors(t *testing.T) {

	d := loadFixture(t)

	_, err := d.GetImgSample(Lookup{}, nil)
	assert.ErrorIs(t, err, ErrUsage)

	id, idx := int64(1), 1
	_, err = d.GetImgSample(Lookup{ID: &id, Index: &idx}, nil)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = d.GetImgSample(ByID(99), nil)
	var inf *ImageNotFoundError
	require.True(t, errors.As(err, &inf))
	assert.Equal(t, int64(99), inf.ImageID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.GetAnnSample(ByID(1000), nil)
	var anf *AnnotationNotFoundError
	require.True(t, errors.As(err, &anf))
	assert.Equal(t, int64(1000), anf.AnnotationID)

	_, err = d.GetImg(-1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetSamples(t *testing.T) {

	d := loadFixture(t)

	s, err := d.GetImgSample(ByID(1), nil)
	require.NoError(t, err)
	defer s.Image.Close()

	assert.Equal(t, 48, s.Image.Rows())
	assert.Equal(t, 64, s.Image.Cols())
	assert.Len(t, s.Annotations, 8)
	assert.Equal(t, "img_01.png", s.Data.FileName)

	first := TransformFunc(func(img gocv.Mat, anns []Annotation) (gocv.Mat, []Annotation, error) {
		return img.Clone(), anns[:1], nil
	})

	s2, err := d.GetImgSample(ByIndex(1), first)
	require.NoError(t, err)
	defer s2.Image.Close()
	assert.Len(t, s2.Annotations, 1)

	a, err := d.GetAnnSample(ByID(45), nil)
	require.NoError(t, err)
	defer a.Image.Close()

	assert.Equal(t, "triangle", a.Category.Name)
	assert.Equal(t, int64(13), a.Data.ID)
	assert.Equal(t, BBox{9, 5, 46, 2}, a.Annotation.BBox)
}

func TestTransformDataset(t *testing.T) {

	d := loadFixture(t)
	out := t.TempDir()

	mirror := TransformFunc(func(img gocv.Mat, anns []Annotation) (gocv.Mat, []Annotation, error) {
		dst := gocv.NewMat()
		gocv.Flip(img, &dst, 1)
		return dst, anns, nil
	})

	res, err := d.TransformDataset(mirror, out, nil)
	require.NoError(t, err)

	assert.Equal(t, out, res.Root())
	assert.Equal(t, sizes(d), sizes(res))
	assert.FileExists(t, filepath.Join(out, "images", "img_00.png"))
	assert.FileExists(t, filepath.Join(out, "annotations", "coco.json"))

	back, err := Load(out, Options{Validate: true})
	require.NoError(t, err)
	assert.Equal(t, sizes(d), sizes(back))
}

func TestSaveLoadRoundTrip(t *testing.T) {

	d := loadFixture(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "labels", "train.json")

	require.NoError(t, d.WriteAnnotationsFile(file))

	back, err := LoadJSON(file, Options{})
	require.NoError(t, err)

	assert.Equal(t, dir, back.Root())
	assert.Equal(t, "labels/", back.Paths().AnnDir)
	assert.Equal(t, "train.json", back.Paths().AnnFile)
	assert.Equal(t, sizes(d), sizes(back))
	assert.Equal(t, d.Info().Description, back.Info().Description)
	assert.Equal(t, d.Annotations(), back.Annotations())
	assert.Equal(t, d.Categories(), back.Categories())
	assert.Equal(t, d.Images(), back.Images())
}

func TestLoadDataValidation(t *testing.T) {

	raw := map[string]any{
		"images":      []any{map[string]any{"id": 1, "file_name": "a.png", "width": 4, "height": 4}},
		"categories":  []any{map[string]any{"id": 1, "name": "a", "supercategory": "s"}},
		"annotations": []any{map[string]any{"id": 1, "image_id": 1, "category_id": 9, "area": 1.0, "bbox": []any{0, 0, 1, 1}, "segmentation": []any{}, "iscrowd": 0}},
	}

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "annotations"), 0o755))

	_, err := LoadData(raw, Options{Root: dir, Validate: true})
	assert.ErrorIs(t, err, ErrValidation)

	// without validation the dangling annotation is kept as loaded
	d, err := LoadData(raw, Options{Root: dir})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Anns().Len())
}

func TestLoadLabels(t *testing.T) {

	file := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(file, []byte("person, human\n\ncar\n  bicycle ,vehicle\n"), 0o644))

	cats, err := LoadLabels(file)
	require.NoError(t, err)

	assert.Equal(t, []Category{
		{ID: 0, Name: "person", Supercategory: "human"},
		{ID: 1, Name: "car"},
		{ID: 2, Name: "bicycle", Supercategory: "vehicle"},
	}, cats)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestConvertSegmentations(t *testing.T) {

	d := loadFixture(t)

	rle, err := d.ConvertSegmentations(segmentation.ModeRLE, segmentation.DefaultPolygonOptions())
	require.NoError(t, err)
	assert.Equal(t, sizes(d), sizes(rle))

	for _, a := range rle.Annotations() {
		if !a.Segmentation.IsEmpty() {
			assert.Equal(t, segmentation.ModeRLE, a.Segmentation.Mode, "annotation %d", a.ID)
			assert.Equal(t, [2]int{48, 64}, a.Segmentation.RLE.Size, "annotation %d", a.ID)
		}
	}

	poly, err := rle.ConvertSegmentations(segmentation.ModePolygon, segmentation.DefaultPolygonOptions())
	require.NoError(t, err)

	for _, a := range poly.Annotations() {
		if a.ID == 40 {
			assert.Equal(t, segmentation.ModePolygon, a.Segmentation.Mode)
			assert.NotEmpty(t, a.Segmentation.Polygons)
		}
	}

	// the source dataset is left untouched
	for _, a := range d.Annotations() {
		if a.ID == 40 {
			assert.Equal(t, segmentation.ModeRLE, a.Segmentation.Mode)
		}
	}
}

func TestExportLabelMasks(t *testing.T) {

	d := loadFixture(t)

	tests := []struct {
		name    string
		scaling int
		file    string
		pixels  map[[2]int]uint8
	}{
		{
			name:    "circle and square",
			scaling: 1,
			file:    "img_00" + LabelMaskSuffix,
			pixels:  map[[2]int]uint8{{30, 1}: 1, {40, 6}: 2, {0, 47}: 0},
		},
		{
			name:    "scaled triangle",
			scaling: 50,
			file:    "img_13" + LabelMaskSuffix,
			pixels:  map[[2]int]uint8{{30, 1}: 50, {12, 6}: 150, {0, 47}: 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			dir := t.TempDir()
			require.NoError(t, d.ExportLabelMasks(dir, tc.scaling, nil))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 14)

			mat := gocv.IMRead(filepath.Join(dir, tc.file), gocv.IMReadUnchanged)
			defer mat.Close()
			require.False(t, mat.Empty())

			m, err := segmentation.MaskFromMat(mat)
			require.NoError(t, err)
			assert.Equal(t, 48, m.Height)
			assert.Equal(t, 64, m.Width)

			for pt, want := range tc.pixels {
				assert.Equal(t, want, m.At(pt[0], pt[1]), "pixel %v", pt)
			}
		})
	}
}

func TestExportLabelMasksScaling(t *testing.T) {

	d := loadFixture(t)

	for _, scaling := range []int{0, -1, 100} {
		err := d.ExportLabelMasks(t.TempDir(), scaling, nil)
		assert.ErrorIs(t, err, ErrUsage, "scaling %d", scaling)
	}
}

func TestFilterKeepOrphansInvert(t *testing.T) {

	d, err := Load(fixtureDir, Options{})
	require.NoError(t, err)

	sel := Selectors{ImgIDs: []int64{0}}

	kept, err := d.Filter(FilterOptions{Selectors: sel, KeepOrphans: true})
	require.NoError(t, err)
	assert.Equal(t, [4]int{1, 4, 3, 1}, sizes(kept))

	// the category table has no image_id, inverting its no-op removes it all
	sel.Invert = true
	inverted, err := d.Filter(FilterOptions{Selectors: sel, KeepOrphans: true})
	require.NoError(t, err)
	assert.Equal(t, [4]int{13, 0, 0, 1}, sizes(inverted))
}

func TestExtractSharedColumn(t *testing.T) {

	raw := map[string]any{
		"images":      []any{map[string]any{"id": 1, "file_name": "a.png", "width": 4, "height": 4, "source": "camera"}},
		"categories":  []any{map[string]any{"id": 0, "name": "a", "supercategory": "s"}},
		"annotations": []any{map[string]any{"id": 5, "image_id": 1, "category_id": 0, "area": 1.0, "bbox": []any{0, 0, 1, 1}, "segmentation": []any{}, "iscrowd": 0, "source": "manual"}},
	}

	d, err := LoadData(raw, Options{})
	require.NoError(t, err)

	sel := Selectors{ImgIDs: []int64{1}}

	imgs, err := d.FilteredImgs(nil, sel)
	require.NoError(t, err)
	assert.Equal(t, []any{"camera"}, imgs.Column("source"))
	assert.False(t, imgs.HasColumn("image_source"))

	anns, err := d.FilteredAnns(nil, sel)
	require.NoError(t, err)
	assert.Equal(t, []any{"manual"}, anns.Column("source"))
	assert.False(t, anns.HasColumn("annotation_source"))
}
