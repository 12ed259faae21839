package cocohelper

import (
	"fmt"

	"github.com/swdee/go-cocohelper/colmap"
	"github.com/swdee/go-cocohelper/table"
)

// mergeContributor is appended to the contributor of a merged dataset info
const mergeContributor = " -- Merger"

// idMap maps the old ids of one input dataset to the merged ids
type idMap map[any]int64

func (m idMap) remap(v any) any {

	if id, ok := m[table.Normalize(v)]; ok {
		return id
	}

	return nil
}

// columnUnion returns every column of the tables in first seen order
func columnUnion(tables []*table.Table) []string {

	var out []string
	seen := make(map[string]struct{})

	for _, t := range tables {
		for _, c := range t.AllColumns() {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}

	return out
}

// Merge combines the receiver with others, the receiver comes first.  See
// Merge for the rules applied.
func (d *Dataset) Merge(dropDuplicates bool, others ...*Dataset) (*Dataset, error) {
	return Merge(append([]*Dataset{d}, others...), dropDuplicates)
}

// Merge concatenates the datasets giving every license, category, image and
// annotation a new dense id starting at 0.  Categories with the same name and
// supercategory collapse into one, foreign keys are remapped and annotations
// whose image or category can not be resolved are dropped.  With
// dropDuplicates duplicate rows are removed from the merged dataset.  The
// result takes its root and options from the first dataset.
func Merge(datasets []*Dataset, dropDuplicates bool) (*Dataset, error) {

	if len(datasets) < 2 {
		return nil, fmt.Errorf("%w: merging requires at least 2 datasets, got %d", ErrUsage, len(datasets))
	}

	for i, d := range datasets {
		if d == nil {
			return nil, fmt.Errorf("%w: dataset %d to merge is nil", ErrUsage, i)
		}
	}

	var licTables, catTables, imgTables, annTables []*table.Table

	for _, d := range datasets {
		licTables = append(licTables, d.lics)
		catTables = append(catTables, d.cats)
		imgTables = append(imgTables, d.imgs)
		annTables = append(annTables, d.anns)
	}

	// licenses
	var lics []table.Row
	licMaps := make([]idMap, len(datasets))

	for i, d := range datasets {
		licMaps[i] = make(idMap, d.lics.Len())
		for j, r := range d.lics.Rows() {
			id := int64(len(lics))
			licMaps[i][d.lics.Key(j)] = id
			nr := r.Clone()
			nr["license_id"] = id
			lics = append(lics, nr)
		}
	}

	// categories collapse on name and supercategory
	var cats []table.Row
	catMaps := make([]idMap, len(datasets))
	byName := make(map[[2]any]int64)

	for i, d := range datasets {
		catMaps[i] = make(idMap, d.cats.Len())
		for j, r := range d.cats.Rows() {
			k := [2]any{table.Normalize(r["name"]), table.Normalize(r["supercategory"])}
			id, ok := byName[k]
			if !ok {
				id = int64(len(cats))
				byName[k] = id
				nr := r.Clone()
				nr["category_id"] = id
				cats = append(cats, nr)
			}
			catMaps[i][d.cats.Key(j)] = id
		}
	}

	// images
	var imgs []table.Row
	imgMaps := make([]idMap, len(datasets))

	for i, d := range datasets {
		imgMaps[i] = make(idMap, d.imgs.Len())
		for j, r := range d.imgs.Rows() {
			id := int64(len(imgs))
			imgMaps[i][d.imgs.Key(j)] = id
			nr := r.Clone()
			nr["image_id"] = id
			if v, ok := nr["license_id"]; ok && v != nil {
				nr["license_id"] = licMaps[i].remap(v)
			}
			imgs = append(imgs, nr)
		}
	}

	// annotations
	var anns []table.Row

	for i, d := range datasets {
		for _, r := range d.anns.Rows() {
			nr := r.Clone()
			nr["annotation_id"] = int64(len(anns))
			nr["image_id"] = imgMaps[i].remap(r["image_id"])
			nr["category_id"] = catMaps[i].remap(r["category_id"])
			anns = append(anns, nr)
		}
	}

	info := NewInfo()
	info.Contributor += mergeContributor

	for _, d := range datasets {
		info.MergedInfos = append(info.MergedInfos, d.info)
	}

	first := datasets[0]

	out, err := first.Copy(CopyOptions{
		Licenses: table.New(EntityLicense, columnUnion(licTables), lics, colmap.License),
		Cats:     table.New(EntityCategory, columnUnion(catTables), cats, colmap.Category),
		Imgs:     table.New(EntityImage, columnUnion(imgTables), imgs, colmap.Image),
		Anns:     table.New(EntityAnnotation, columnUnion(annTables), anns, colmap.Annotation),
		Info:     &info,
	})

	if err != nil {
		return nil, err
	}

	if dropDuplicates {
		if out, err = out.DropDuplicates(); err != nil {
			return nil, err
		}
	}

	if first.validate {
		if err := out.checkValid(); err != nil {
			return nil, err
		}
	}

	return out, nil
}
