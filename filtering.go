package cocohelper

import (
	"github.com/swdee/go-cocohelper/filter"
	"github.com/swdee/go-cocohelper/table"
)

// Selectors are the named filter parameters understood by the filtering
// methods.  Nil fields place no constraint.
type Selectors struct {
	AnnIDs        []int64
	AreaRange     *filter.Range
	IsCrowd       *bool
	ImgIDs        []int64
	ImgNames      []string
	CatIDs        []int64
	CatNames      []string
	SupercatNames []string
	// Composition combines the selector filters, defaults to AND
	Composition filter.Composition
	// Invert keeps the rows the filter would remove
	Invert bool
}

func (s Selectors) annFilter() filter.Filter {
	return filter.Anns(filter.AnnParams{IDs: s.AnnIDs, AreaRange: s.AreaRange, IsCrowd: s.IsCrowd}, s.Composition)
}

func (s Selectors) imgFilter() filter.Filter {
	return filter.Imgs(filter.ImgParams{IDs: s.ImgIDs, Names: s.ImgNames}, s.Composition)
}

func (s Selectors) catFilter() filter.Filter {
	return filter.Cats(filter.CatParams{IDs: s.CatIDs, Names: s.CatNames, SupercatNames: s.SupercatNames}, s.Composition)
}

// build picks the custom filter over the selector filters and applies the
// inversion
func (s Selectors) build(custom filter.Filter, selectors ...filter.Filter) filter.Filter {

	f := custom

	if f == nil {
		var used []filter.Filter
		for _, sf := range selectors {
			if !unconstrained(sf) {
				used = append(used, sf)
			}
		}
		if len(used) == 1 {
			f = used[0]
		} else {
			f = filter.Compose(s.Composition, used...)
		}
	}

	if s.Invert {
		f = filter.Not(f)
	}

	return f
}

// unconstrained reports a builder result with no selector set, it must not
// take part in an OR composition where it would keep every row
func unconstrained(f filter.Filter) bool {

	switch v := f.(type) {
	case *filter.AndFilter:
		return len(v.Filters) == 0
	case *filter.OrFilter:
		return len(v.Filters) == 0
	}

	return false
}

// FilteredCats returns the categories kept by the custom filter or, when it is
// nil, by the category selectors
func (d *Dataset) FilteredCats(custom filter.Filter, sel Selectors) *table.Table {

	out := filter.Apply(sel.build(custom, sel.catFilter()), d.cats)
	out, _ = out.DropDuplicates(out.AllColumns())

	return out
}

// FilteredImgs returns the images kept by the filter.  The filter runs on the
// images joined with their annotations and categories so category selectors
// select the images holding such categories.
func (d *Dataset) FilteredImgs(custom filter.Filter, sel Selectors) (*table.Table, error) {

	j := d.Joins()

	t, err := j.ImgsAnnsCats()

	if err != nil {
		return nil, err
	}

	f := sel.build(custom, sel.imgFilter(), sel.catFilter())

	return j.ExtractImgs(filter.Apply(f, t))
}

// FilteredAnns returns the annotations kept by the filter, run on the
// annotations joined with their categories and images
func (d *Dataset) FilteredAnns(custom filter.Filter, sel Selectors) (*table.Table, error) {

	j := d.Joins()

	t, err := j.AnnsCatsImgs()

	if err != nil {
		return nil, err
	}

	f := sel.build(custom, sel.imgFilter(), sel.catFilter(), sel.annFilter())

	return j.ExtractAnns(filter.Apply(f, t))
}

// FilterCats returns a dataset holding only the selected categories and the
// annotations using them
func (d *Dataset) FilterCats(custom filter.Filter, sel Selectors) (*Dataset, error) {
	return d.derive(CopyOptions{Cats: d.FilteredCats(custom, sel)})
}

// FilterImgs returns a dataset holding only the selected images and their
// annotations
func (d *Dataset) FilterImgs(custom filter.Filter, sel Selectors) (*Dataset, error) {

	imgs, err := d.FilteredImgs(custom, sel)

	if err != nil {
		return nil, err
	}

	return d.derive(CopyOptions{Imgs: imgs})
}

// FilterAnns returns a dataset holding only the selected annotations
func (d *Dataset) FilterAnns(custom filter.Filter, sel Selectors) (*Dataset, error) {

	anns, err := d.FilteredAnns(custom, sel)

	if err != nil {
		return nil, err
	}

	return d.derive(CopyOptions{Anns: anns})
}

// FilterOptions configure Filter
type FilterOptions struct {
	// Filter is a custom filter used instead of the selectors
	Filter filter.Filter
	Selectors
	// KeepOrphans applies the filter to each table on its own instead of the
	// joined view.  Annotations left without image or category are still
	// pruned by Copy.  A selector on a column a table lacks keeps that table
	// whole, so with Invert the same table is emptied: inverted image
	// selectors drop every category and with them every annotation.
	KeepOrphans bool
}

// Filter returns a dataset holding the images, categories and annotations that
// survive the filter
func (d *Dataset) Filter(opts FilterOptions) (*Dataset, error) {

	sel := opts.Selectors
	f := sel.build(opts.Filter, sel.imgFilter(), sel.catFilter(), sel.annFilter())

	if opts.KeepOrphans {
		return d.derive(CopyOptions{
			Cats: filter.Apply(f, d.cats),
			Imgs: filter.Apply(f, d.imgs),
			Anns: filter.Apply(f, d.anns),
		})
	}

	j := d.Joins()

	t, err := j.AnnsCatsImgs()

	if err != nil {
		return nil, err
	}

	t = filter.Apply(f, t)

	cats, err := j.ExtractCats(t)

	if err != nil {
		return nil, err
	}

	imgs, err := j.ExtractImgs(t)

	if err != nil {
		return nil, err
	}

	anns, err := j.ExtractAnns(t)

	if err != nil {
		return nil, err
	}

	return d.derive(CopyOptions{Cats: cats, Imgs: imgs, Anns: anns})
}
