package filter

import (
	"github.com/swdee/go-cocohelper/table"
)

func valueSet(values []any) map[any]struct{} {

	set := make(map[any]struct{}, len(values))

	for _, v := range values {
		set[table.Normalize(v)] = struct{}{}
	}

	return set
}

func applyValue(f *ValueFilter, t *table.Table) *table.Table {

	if f.Values == nil {
		return t
	}

	if !resolves(t, f.Column) {
		return missingColumn(t, f.Column)
	}

	switch f.Strategy {
	case AnyValue:
		set := valueSet(f.Values)
		keys := make(map[any]struct{})
		for i, r := range t.Rows() {
			if _, ok := set[table.Normalize(r[f.Column])]; ok {
				keys[t.Key(i)] = struct{}{}
			}
		}
		return t.WhereKeys(keys)

	case AllValues:
		var sets []map[any]struct{}
		for _, v := range f.Values {
			want := table.Normalize(v)
			keys := make(map[any]struct{})
			for i, r := range t.Rows() {
				if table.Normalize(r[f.Column]) == want {
					keys[t.Key(i)] = struct{}{}
				}
			}
			sets = append(sets, keys)
		}
		if len(sets) == 0 {
			return t.WhereKeys(nil)
		}
		return t.WhereKeys(intersect(sets))
	}

	set := valueSet(f.Values)

	return t.Where(func(_ int, r table.Row) bool {
		_, ok := set[table.Normalize(r[f.Column])]
		return ok
	})
}

func applyRange(f *RangeFilter, t *table.Table) *table.Table {

	if f.Range == nil {
		return t
	}

	if !resolves(t, f.Column) {
		return missingColumn(t, f.Column)
	}

	lo, hi := f.Range.Min, f.Range.Max
	inclusive := f.Inclusive

	if inclusive == InclusiveDefault {
		if f.Strategy == NotInRange {
			inclusive = Neither
		} else {
			inclusive = Both
		}
	}

	incLo := inclusive == Both || inclusive == LeftBound
	incHi := inclusive == Both || inclusive == RightBound

	return t.Where(func(_ int, r table.Row) bool {

		v, ok := table.ToFloat(r[f.Column])

		if !ok {
			return false
		}

		if f.Strategy == NotInRange {
			// bounds flagged inclusive also count as outside the range
			below := v < lo || (incLo && v == lo)
			above := v > hi || (incHi && v == hi)
			return below || above
		}

		aboveLo := v > lo || (incLo && v == lo)
		belowHi := v < hi || (incHi && v == hi)

		return aboveLo && belowHi
	})
}
