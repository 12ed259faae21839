package cocohelper

import (
	"fmt"
	"slices"

	"github.com/swdee/go-cocohelper/internal/logging"
	"github.com/swdee/go-cocohelper/segmentation"
	"github.com/swdee/go-cocohelper/table"
)

// DefaultAnnIgnore lists the annotation columns left out when comparing
// annotations for duplicates.  Annotations differing only by geometry are
// therefore collapsed.
var DefaultAnnIgnore = []string{"bbox", "segmentation"}

// groupable reports whether v has a canonical printed form to group on
func groupable(v any) bool {

	switch v.(type) {
	case []float64, segmentation.Segmentation:
		return true
	}

	return table.IsScalar(v)
}

// dropDuplicateRows keeps the first row of every group of rows equal on all
// columns but the index and the ignored ones.  Columns holding values other
// than scalars, boxes and segmentations are left out with a warning.
func dropDuplicateRows(t *table.Table, ignore []string) (*table.Table, map[any]any, error) {

	var cols []string

	for _, c := range t.Columns() {

		if slices.Contains(ignore, c) {
			continue
		}

		ok := true

		for _, v := range t.Column(c) {
			if !groupable(v) {
				ok = false
				break
			}
		}

		if !ok {
			logging.Logger().Warn("column holds non-scalar values and is ignored when dropping duplicates",
				"table", t.Name(), "column", c)
			continue
		}

		cols = append(cols, c)
	}

	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("%w: no comparable column left in table %q to drop duplicates on",
			ErrUsage, t.Name())
	}

	out, dropped := t.DropDuplicates(cols)

	return out, dropped, nil
}

// remapKeys points foreign key values of dropped rows at the kept rows
func remapKeys(t *table.Table, fk string, dropped map[any]any) *table.Table {

	if len(dropped) == 0 || !t.HasColumn(fk) {
		return t
	}

	return t.MapColumn(fk, func(v any) any {
		if kept, ok := dropped[table.Normalize(v)]; ok {
			return kept
		}
		return v
	})
}

// DropDuplicateCats removes categories equal to an earlier one and points
// their annotations at the kept category
func (d *Dataset) DropDuplicateCats() (*Dataset, error) {

	cats, dropped, err := dropDuplicateRows(d.cats, nil)

	if err != nil {
		return nil, err
	}

	return d.derive(CopyOptions{Cats: cats, Anns: remapKeys(d.anns, "category_id", dropped)})
}

// DropDuplicateImgs removes images equal to an earlier one and points their
// annotations at the kept image
func (d *Dataset) DropDuplicateImgs() (*Dataset, error) {

	imgs, dropped, err := dropDuplicateRows(d.imgs, nil)

	if err != nil {
		return nil, err
	}

	return d.derive(CopyOptions{Imgs: imgs, Anns: remapKeys(d.anns, "image_id", dropped)})
}

// DropDuplicateAnns removes annotations equal to an earlier one on every
// column outside ignore.  A nil ignore uses DefaultAnnIgnore, an empty one
// compares every comparable column.
func (d *Dataset) DropDuplicateAnns(ignore []string) (*Dataset, error) {

	if ignore == nil {
		ignore = DefaultAnnIgnore
	}

	anns, _, err := dropDuplicateRows(d.anns, ignore)

	if err != nil {
		return nil, err
	}

	return d.derive(CopyOptions{Anns: anns})
}

// DropDuplicateLicenses removes licenses equal to an earlier one and points
// the images using them at the kept license
func (d *Dataset) DropDuplicateLicenses() (*Dataset, error) {

	if d.lics.IsEmpty() {
		return d, nil
	}

	lics, dropped, err := dropDuplicateRows(d.lics, nil)

	if err != nil {
		return nil, err
	}

	return d.derive(CopyOptions{Licenses: lics, Imgs: remapKeys(d.imgs, "license_id", dropped)})
}

// DropDuplicates removes duplicate licenses, categories, images and
// annotations in that order so that each pass compares already remapped keys
func (d *Dataset) DropDuplicates() (*Dataset, error) {

	out, err := d.DropDuplicateLicenses()

	if err != nil {
		return nil, err
	}

	if out, err = out.DropDuplicateCats(); err != nil {
		return nil, err
	}

	if out, err = out.DropDuplicateImgs(); err != nil {
		return nil, err
	}

	return out.DropDuplicateAnns(nil)
}
