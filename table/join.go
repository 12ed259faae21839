package table

import (
	"fmt"
	"slices"

	"github.com/swdee/go-cocohelper/internal/logging"
)

// How selects which side of a join keeps its unmatched rows
type How int

const (
	Left How = iota
	Right
	Inner
	Outer
)

// String returns the join type name
func (h How) String() string {
	switch h {
	case Left:
		return "left"
	case Right:
		return "right"
	case Inner:
		return "inner"
	case Outer:
		return "outer"
	}
	return fmt.Sprintf("How(%d)", int(h))
}

// Invert swaps left and right joins, inner and outer joins are symmetric
func (h How) Invert() How {
	switch h {
	case Left:
		return Right
	case Right:
		return Left
	}
	return h
}

// CocoJoin joins the table with other following the COCO foreign key naming.
// When other's index name ({other}_id) is one of the receiver columns the
// receiver drives the join, when the receiver's index name is one of other's
// columns other drives and how is inverted.  The joined table is named
// {left}_{right} and has no index.
func (t *Table) CocoJoin(other *Table, how How) (*Table, error) {

	if other == nil {
		logging.Logger().Warn("joining with a nil table, returning the original table", "table", t.name)
		return t, nil
	}

	if other.IsEmpty() {
		logging.Logger().Warn("joining with an empty table", "table", t.name, "other", other.name)
	}

	switch {
	case t.HasColumn(other.name + "_id"):
		return join(t, other, other.name+"_id", how), nil

	case other.HasColumn(t.name + "_id"):
		return join(other, t, t.name+"_id", how.Invert()), nil
	}

	return nil, fmt.Errorf("error joining tables: neither %q has column %s_id nor %q has column %s_id",
		t.name, other.name, other.name, t.name)
}

// join matches left[fk] against the index of right
func join(left, right *Table, fk string, how How) *Table {

	leftCols := left.AllColumns()
	rightCols := make([]string, 0, len(right.columns))
	rename := make(map[string]string)

	for _, c := range right.columns {
		if c == right.index {
			continue
		}
		name := c
		if slices.Contains(leftCols, c) {
			name = right.name + "_" + c
		}
		rename[c] = name
		rightCols = append(rightCols, c)
	}

	out := &Table{
		name:    left.name + "_" + right.name,
		columns: append([]string(nil), leftCols...),
		mappers: append(left.Mappers(), right.mappers...),
	}

	for _, c := range rightCols {
		out.columns = append(out.columns, rename[c])
	}

	// index the right table rows by key
	byKey := make(map[any][]int, right.Len())

	for i := range right.rows {
		k := right.Key(i)
		byKey[k] = append(byKey[k], i)
	}

	combine := func(l, r Row, key any) Row {
		row := make(Row, len(out.columns))
		for _, c := range leftCols {
			if l != nil {
				row[c] = l[c]
			} else {
				row[c] = nil
			}
		}
		if l == nil {
			row[fk] = key
		}
		for _, c := range rightCols {
			if r != nil {
				row[rename[c]] = r[c]
			} else {
				row[rename[c]] = nil
			}
		}
		return row
	}

	switch how {
	case Right:
		byFK := make(map[any][]int, left.Len())
		for i, r := range left.rows {
			k := Normalize(r[fk])
			byFK[k] = append(byFK[k], i)
		}
		for j, r := range right.rows {
			matches := byFK[right.Key(j)]
			if len(matches) == 0 {
				out.rows = append(out.rows, combine(nil, r, r[right.index]))
				continue
			}
			for _, i := range matches {
				out.rows = append(out.rows, combine(left.rows[i], r, nil))
			}
		}

	default:
		matched := make(map[int]struct{})
		for _, l := range left.rows {
			matches := byKey[Normalize(l[fk])]
			if len(matches) == 0 {
				if how != Inner {
					out.rows = append(out.rows, combine(l, nil, nil))
				}
				continue
			}
			for _, j := range matches {
				matched[j] = struct{}{}
				out.rows = append(out.rows, combine(l, right.rows[j], nil))
			}
		}
		if how == Outer {
			for j, r := range right.rows {
				if _, ok := matched[j]; !ok {
					out.rows = append(out.rows, combine(nil, r, r[right.index]))
				}
			}
		}
	}

	return out
}
