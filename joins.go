package cocohelper

import (
	"fmt"

	"github.com/swdee/go-cocohelper/colmap"
	"github.com/swdee/go-cocohelper/table"
)

// Joins builds the joined views of a dataset.  Every view is a left join
// driven by its first entity and indexed by that entity's id, so the rows of
// the first entity are never lost.
type Joins struct {
	d *Dataset
}

// Joins returns the join router of the dataset
func (d *Dataset) Joins() Joins {
	return Joins{d: d}
}

// withCategoryName aliases the category name column as category_name
func withCategoryName(t *table.Table) *table.Table {

	col := "name"

	if !t.HasColumn(col) {
		// the name collided with an image or annotation column during the join
		col = EntityCategory + "_name"
	}

	if !t.HasColumn(col) {
		return t
	}

	return t.WithColumn("category_name", func(r table.Row) any {
		return r[col]
	})
}

func joinOn(a, b *table.Table, index string) (*table.Table, error) {

	j, err := a.CocoJoin(b, table.Left)

	if err != nil {
		return nil, fmt.Errorf("error joining %s with %s: %w", a.Name(), b.Name(), err)
	}

	return j.Reindex(index, false)
}

// AnnsImgs joins every annotation with its image
func (j Joins) AnnsImgs() (*table.Table, error) {
	return joinOn(j.d.anns, j.d.imgs, "annotation_id")
}

// ImgsAnns joins every image with its annotations, unlabelled images are kept
// with null annotation columns
func (j Joins) ImgsAnns() (*table.Table, error) {
	return joinOn(j.d.imgs, j.d.anns, "image_id")
}

// AnnsCats joins every annotation with its category
func (j Joins) AnnsCats() (*table.Table, error) {

	t, err := joinOn(j.d.anns, j.d.cats, "annotation_id")

	if err != nil {
		return nil, err
	}

	return withCategoryName(t), nil
}

// CatsAnns joins every category with its annotations
func (j Joins) CatsAnns() (*table.Table, error) {

	t, err := joinOn(j.d.cats, j.d.anns, "category_id")

	if err != nil {
		return nil, err
	}

	return withCategoryName(t), nil
}

// AnnsCatsImgs joins annotations with their category and then their image
func (j Joins) AnnsCatsImgs() (*table.Table, error) {

	ac, err := j.AnnsCats()

	if err != nil {
		return nil, err
	}

	return joinOn(table.Wrap(ac.ResetIndex(), EntityAnnotation), j.d.imgs, "annotation_id")
}

// AnnsImgsCats joins annotations with their image and then their category
func (j Joins) AnnsImgsCats() (*table.Table, error) {

	ai, err := j.AnnsImgs()

	if err != nil {
		return nil, err
	}

	t, err := joinOn(table.Wrap(ai.ResetIndex(), EntityAnnotation), j.d.cats, "annotation_id")

	if err != nil {
		return nil, err
	}

	return withCategoryName(t), nil
}

// ImgsAnnsCats joins images with their annotations and their categories
func (j Joins) ImgsAnnsCats() (*table.Table, error) {

	ac, err := j.AnnsCats()

	if err != nil {
		return nil, err
	}

	return joinOn(j.d.imgs, table.Wrap(ac.ResetIndex(), EntityAnnotation), "image_id")
}

// ImgsCatsAnns joins images with their annotations grouped by category
func (j Joins) ImgsCatsAnns() (*table.Table, error) {

	ca, err := j.CatsAnns()

	if err != nil {
		return nil, err
	}

	return joinOn(j.d.imgs, table.Wrap(ca.ResetIndex(), EntityAnnotation), "image_id")
}

// CatsAnnsImgs joins categories with their annotations and their images
func (j Joins) CatsAnnsImgs() (*table.Table, error) {

	ca, err := j.CatsAnns()

	if err != nil {
		return nil, err
	}

	return joinOn(table.Wrap(ca.ResetIndex(), EntityCategory), j.d.imgs, "category_id")
}

// CatsImgsAnns joins categories with the images and annotations using them
func (j Joins) CatsImgsAnns() (*table.Table, error) {

	ia, err := j.ImgsAnns()

	if err != nil {
		return nil, err
	}

	t, err := joinOn(j.d.cats, table.Wrap(ia.ResetIndex(), EntityImage), "category_id")

	if err != nil {
		return nil, err
	}

	return withCategoryName(t), nil
}

// extract re-derives the entity table of name from a joined table
func extract(t *table.Table, name string, base *table.Table, mapper colmap.ColMap) (*table.Table, error) {

	key := name + "_id"

	out, err := t.Reindex(key, true)

	if err != nil {
		return nil, fmt.Errorf("error extracting %s table: %w", name, err)
	}

	// a column shared by both sides of a join carries the entity prefix on
	// the right side, the prefixed copy belongs to this entity
	cols := base.Columns()
	src := make([]string, len(cols))

	for i, c := range cols {
		src[i] = c
		if prefixed := name + "_" + c; out.HasColumn(prefixed) {
			src[i] = prefixed
		}
	}

	out = out.Project(src).DropNullKeys().DropDuplicateIndex()

	for i, c := range cols {
		if src[i] != c {
			out = out.Rename(colmap.ColMap{Orig: src[i], New: c})
		}
	}

	return out.As(name, mapper), nil
}

// ExtractCats returns the category rows held in a joined table
func (j Joins) ExtractCats(t *table.Table) (*table.Table, error) {
	return extract(t, EntityCategory, j.d.cats, colmap.Category)
}

// ExtractImgs returns the image rows held in a joined table
func (j Joins) ExtractImgs(t *table.Table) (*table.Table, error) {
	return extract(t, EntityImage, j.d.imgs, colmap.Image)
}

// ExtractAnns returns the annotation rows held in a joined table
func (j Joins) ExtractAnns(t *table.Table) (*table.Table, error) {
	return extract(t, EntityAnnotation, j.d.anns, colmap.Annotation)
}
