// Package filter provides composable row filters over a table.Table.  Filters
// are a closed set of variants dispatched by Apply.
package filter

import (
	"errors"
	"fmt"

	"github.com/swdee/go-cocohelper/internal/logging"
	"github.com/swdee/go-cocohelper/table"
)

// ErrUsage is returned when a filter is constructed with invalid parameters
var ErrUsage = errors.New("invalid filter usage")

// Kind identifies a filter variant
type Kind int

const (
	KindValue Kind = iota
	KindRange
	KindAnd
	KindOr
	KindNot
)

// Filter is implemented by ValueFilter, RangeFilter, AndFilter, OrFilter and
// NotFilter only
type Filter interface {
	Kind() Kind
	sealed()
}

// ValueStrategy selects how a ValueFilter matches rows
type ValueStrategy int

const (
	// HavingValue keeps every row whose column value is one of the values
	HavingValue ValueStrategy = iota
	// AnyValue keeps all rows of every index key having at least one row
	// matching any of the values
	AnyValue
	// AllValues keeps all rows of every index key that, for each value, has a
	// row matching it
	AllValues
)

// RangeStrategy selects whether a RangeFilter keeps values inside or outside
// the range
type RangeStrategy int

const (
	InRange RangeStrategy = iota
	NotInRange
)

// Inclusive selects which range bounds are inclusive.  InclusiveDefault means
// Both for InRange and Neither for NotInRange.
type Inclusive int

const (
	InclusiveDefault Inclusive = iota
	Both
	LeftBound
	RightBound
	Neither
)

// ParseInclusive converts "both", "left", "right" or "none"
func ParseInclusive(s string) (Inclusive, error) {

	switch s {
	case "":
		return InclusiveDefault, nil
	case "both":
		return Both, nil
	case "left":
		return LeftBound, nil
	case "right":
		return RightBound, nil
	case "none", "neither":
		return Neither, nil
	}

	return InclusiveDefault, fmt.Errorf("%w: unknown range inclusivity %q", ErrUsage, s)
}

// ValueFilter matches column values against a set of values
type ValueFilter struct {
	Column   string
	Values   []any
	Strategy ValueStrategy
}

// NewValueFilter returns a ValueFilter, a nil values slice means no constraint
// and the filter keeps every row
func NewValueFilter(column string, values []any, strategy ValueStrategy) *ValueFilter {
	return &ValueFilter{Column: column, Values: values, Strategy: strategy}
}

// Value returns a HavingValue filter for a single scalar value
func Value(column string, v any) *ValueFilter {
	return NewValueFilter(column, []any{v}, HavingValue)
}

// Kind implements Filter
func (f *ValueFilter) Kind() Kind { return KindValue }
func (f *ValueFilter) sealed()    {}

// Range holds the bounds of a RangeFilter
type Range struct {
	Min, Max float64
}

// RangeFilter matches numeric column values against a range
type RangeFilter struct {
	Column    string
	Range     *Range
	Strategy  RangeStrategy
	Inclusive Inclusive
}

// NewRangeFilter returns a RangeFilter, a nil range means no constraint
func NewRangeFilter(column string, rng *Range, strategy RangeStrategy, inclusive Inclusive) (*RangeFilter, error) {

	if inclusive < InclusiveDefault || inclusive > Neither {
		return nil, fmt.Errorf("%w: invalid range inclusivity %d", ErrUsage, int(inclusive))
	}

	if strategy != InRange && strategy != NotInRange {
		return nil, fmt.Errorf("%w: invalid range strategy %d", ErrUsage, int(strategy))
	}

	return &RangeFilter{Column: column, Range: rng, Strategy: strategy, Inclusive: inclusive}, nil
}

// Kind implements Filter
func (f *RangeFilter) Kind() Kind { return KindRange }
func (f *RangeFilter) sealed()    {}

// AndFilter keeps the index keys surviving every filter
type AndFilter struct {
	Filters []Filter
}

// And composes filters by intersection, with no filters it is the identity
func And(filters ...Filter) *AndFilter {
	return &AndFilter{Filters: filters}
}

// Kind implements Filter
func (f *AndFilter) Kind() Kind { return KindAnd }
func (f *AndFilter) sealed()    {}

// OrFilter keeps the index keys surviving any filter
type OrFilter struct {
	Filters []Filter
}

// Or composes filters by union, with no filters it is the identity
func Or(filters ...Filter) *OrFilter {
	return &OrFilter{Filters: filters}
}

// Kind implements Filter
func (f *OrFilter) Kind() Kind { return KindOr }
func (f *OrFilter) sealed()    {}

// NotFilter keeps the rows whose index key the wrapped filter rejects
type NotFilter struct {
	Filter Filter
}

// Not inverts a filter
func Not(f Filter) *NotFilter {
	return &NotFilter{Filter: f}
}

// Kind implements Filter
func (f *NotFilter) Kind() Kind { return KindNot }
func (f *NotFilter) sealed()    {}

// Composition selects how builders combine several filters
type Composition int

const (
	ComposeAnd Composition = iota
	ComposeOr
)

// Compose combines filters with the given composition
func Compose(c Composition, filters ...Filter) Filter {

	if c == ComposeOr {
		return Or(filters...)
	}

	return And(filters...)
}

// Apply runs the filter against t and returns the surviving rows.  Filters on
// a column that is neither a column nor the index of t are no-ops that return
// t unchanged and log a warning, use Missing to detect them up front.
func Apply(f Filter, t *table.Table) *table.Table {

	switch v := f.(type) {
	case nil:
		return t
	case *ValueFilter:
		return applyValue(v, t)
	case *RangeFilter:
		return applyRange(v, t)
	case *AndFilter:
		return applyComposite(v.Filters, t, intersect)
	case *OrFilter:
		return applyComposite(v.Filters, t, union)
	case *NotFilter:
		keys := Apply(v.Filter, t).KeySet()
		return t.WhereNotKeys(keys)
	}

	panic(fmt.Sprintf("unknown filter kind %T", f))
}

// Missing returns the columns referenced by f that t does not provide
func Missing(f Filter, t *table.Table) []string {

	var out []string

	switch v := f.(type) {
	case *ValueFilter:
		if !resolves(t, v.Column) {
			out = append(out, v.Column)
		}
	case *RangeFilter:
		if !resolves(t, v.Column) {
			out = append(out, v.Column)
		}
	case *AndFilter:
		for _, sub := range v.Filters {
			out = append(out, Missing(sub, t)...)
		}
	case *OrFilter:
		for _, sub := range v.Filters {
			out = append(out, Missing(sub, t)...)
		}
	case *NotFilter:
		out = Missing(v.Filter, t)
	}

	return out
}

// resolves reports whether column names a column or the index of t
func resolves(t *table.Table, column string) bool {
	return t.HasColumn(column) || (column != "" && t.IndexName() == column)
}

// missingColumn is the documented no-op branch for absent columns
func missingColumn(t *table.Table, column string) *table.Table {

	logging.Logger().Warn("filtering on a column that does not exist, returning the data unchanged",
		"table", t.Name(), "column", column)

	return t
}

func intersect(sets []map[any]struct{}) map[any]struct{} {

	out := make(map[any]struct{})

	if len(sets) == 0 {
		return out
	}

	for k := range sets[0] {
		keep := true
		for _, s := range sets[1:] {
			if _, ok := s[k]; !ok {
				keep = false
				break
			}
		}
		if keep {
			out[k] = struct{}{}
		}
	}

	return out
}

func union(sets []map[any]struct{}) map[any]struct{} {

	out := make(map[any]struct{})

	for _, s := range sets {
		for k := range s {
			out[k] = struct{}{}
		}
	}

	return out
}

func applyComposite(filters []Filter, t *table.Table, combine func([]map[any]struct{}) map[any]struct{}) *table.Table {

	if len(filters) == 0 {
		return t
	}

	sets := make([]map[any]struct{}, len(filters))

	for i, f := range filters {
		sets[i] = Apply(f, t).KeySet()
	}

	return t.WhereKeys(combine(sets)).SortByIndex()
}
