package filter

// Ints converts ids into filter values, a nil slice stays nil so it means no
// constraint
func Ints(ids []int64) []any {

	if ids == nil {
		return nil
	}

	out := make([]any, len(ids))

	for i, id := range ids {
		out[i] = id
	}

	return out
}

// Strings converts names into filter values, a nil slice stays nil so it means
// no constraint
func Strings(names []string) []any {

	if names == nil {
		return nil
	}

	out := make([]any, len(names))

	for i, n := range names {
		out[i] = n
	}

	return out
}

// build returns a lone filter as is and composes anything else
func build(c Composition, filters []Filter) Filter {

	if len(filters) == 1 {
		return filters[0]
	}

	return Compose(c, filters...)
}

// AnnParams holds the annotation selectors, nil fields are unconstrained
type AnnParams struct {
	IDs       []int64
	AreaRange *Range
	IsCrowd   *bool
}

// Anns builds a filter over annotation_id, area and iscrowd
func Anns(p AnnParams, c Composition) Filter {

	var filters []Filter

	if p.IDs != nil {
		filters = append(filters, NewValueFilter("annotation_id", Ints(p.IDs), HavingValue))
	}

	if p.AreaRange != nil {
		filters = append(filters, &RangeFilter{Column: "area", Range: p.AreaRange, Strategy: InRange})
	}

	if p.IsCrowd != nil {
		filters = append(filters, Value("iscrowd", *p.IsCrowd))
	}

	return build(c, filters)
}

// CatParams holds the category selectors, nil fields are unconstrained
type CatParams struct {
	IDs           []int64
	Names         []string
	SupercatNames []string
}

// Cats builds a filter over category_id, name and supercategory
func Cats(p CatParams, c Composition) Filter {

	var filters []Filter

	if p.IDs != nil {
		filters = append(filters, NewValueFilter("category_id", Ints(p.IDs), HavingValue))
	}

	if p.Names != nil {
		filters = append(filters, NewValueFilter("name", Strings(p.Names), HavingValue))
	}

	if p.SupercatNames != nil {
		filters = append(filters, NewValueFilter("supercategory", Strings(p.SupercatNames), HavingValue))
	}

	return build(c, filters)
}

// ImgParams holds the image selectors, nil fields are unconstrained
type ImgParams struct {
	IDs   []int64
	Names []string
}

// Imgs builds a filter over image_id and file_name
func Imgs(p ImgParams, c Composition) Filter {

	var filters []Filter

	if p.IDs != nil {
		filters = append(filters, NewValueFilter("image_id", Ints(p.IDs), HavingValue))
	}

	if p.Names != nil {
		filters = append(filters, NewValueFilter("file_name", Strings(p.Names), HavingValue))
	}

	return build(c, filters)
}
