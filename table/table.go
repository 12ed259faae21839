// Package table implements the indexed relational table used to hold the COCO
// entities in memory and join them together.
package table

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/swdee/go-cocohelper/colmap"
	"github.com/swdee/go-cocohelper/internal/logging"
)

// Row is a single record keyed by column name.  Rows returned by a Table must
// be treated as read only.
type Row map[string]any

// Clone returns a shallow copy of the row
func (r Row) Clone() Row {

	out := make(Row, len(r))

	for k, v := range r {
		out[k] = v
	}

	return out
}

// Table is an ordered collection of rows with an optional index column.  All
// operations return new tables and never modify the receiver.
type Table struct {
	name    string
	index   string
	columns []string
	rows    []Row
	mappers []colmap.ColMap
}

// New creates a table for the named entity.  The column mappers are applied to
// the records and when a column named {name}_id results it becomes the index.
func New(name string, columns []string, rows []Row, mappers ...colmap.ColMap) *Table {

	t := &Table{
		name:    name,
		columns: append([]string(nil), columns...),
		rows:    make([]Row, len(rows)),
		mappers: append([]colmap.ColMap(nil), mappers...),
	}

	for i, r := range rows {
		t.rows[i] = r.Clone()
	}

	for _, m := range mappers {
		t.rename(m)
	}

	if idx := name + "_id"; t.HasColumn(idx) {
		t.columns = slices.DeleteFunc(t.columns, func(c string) bool { return c == idx })
		t.index = idx
	}

	return t
}

// Wrap gives an existing table a new entity name.  Wrapping a table that is
// already indexed shares its rows and is reported with a warning, use Copy to
// obtain an independent table.
func Wrap(src *Table, name string) *Table {

	if src.index != "" {
		logging.Logger().Warn("constructing a table from an already indexed table without copy",
			"table", src.name, "index", src.index)
	}

	t := src.shallow()
	t.name = name

	return t
}

// rename applies a column mapper in place, used only during construction
func (t *Table) rename(m colmap.ColMap) {

	if m.Orig == m.New {
		return
	}

	i := slices.Index(t.columns, m.Orig)

	if i < 0 && t.HasColumn(m.New) {
		// already renamed
		return
	}

	if i < 0 {
		logging.Logger().Warn("column mapper source column does not exist",
			"table", t.name, "column", m.Orig)
		return
	}

	t.columns[i] = m.New

	for _, r := range t.rows {
		if v, ok := r[m.Orig]; ok {
			r[m.New] = v
			delete(r, m.Orig)
		}
	}
}

// Rename returns a copy of the table with the mapper applied
func (t *Table) Rename(m colmap.ColMap) *Table {

	out := t.Copy()

	if m.Orig == t.index {
		logging.Logger().Warn("renaming the index column is not supported",
			"table", t.name, "column", m.Orig)
		return out
	}

	out.rename(m)
	out.mappers = composeMapper(out.mappers, m)

	return out
}

// composeMapper records m so that the mappers keep one net rename per
// original column.  A rename back to the original name drops the mapper.
func composeMapper(mappers []colmap.ColMap, m colmap.ColMap) []colmap.ColMap {

	for i, prev := range mappers {
		if prev.New != m.Orig {
			continue
		}

		if prev.Orig == m.New {
			return slices.Delete(mappers, i, i+1)
		}

		mappers[i] = colmap.ColMap{Orig: prev.Orig, New: m.New}
		return mappers
	}

	return append(mappers, m)
}

func (t *Table) shallow() *Table {
	return &Table{
		name:    t.name,
		index:   t.index,
		columns: append([]string(nil), t.columns...),
		rows:    append([]Row(nil), t.rows...),
		mappers: append([]colmap.ColMap(nil), t.mappers...),
	}
}

// Copy returns a deep copy of the table rows.  Non-scalar cell values are
// shared as they are never modified in place.
func (t *Table) Copy() *Table {

	out := t.shallow()

	for i, r := range out.rows {
		out.rows[i] = r.Clone()
	}

	return out
}

// As returns a copy of the table named after an entity with the given column
// mappers.  The {name}_id column becomes the index when it is not already.
func (t *Table) As(name string, mappers ...colmap.ColMap) *Table {

	out := t.Copy()
	out.name = name
	out.mappers = append([]colmap.ColMap(nil), mappers...)

	if idx := name + "_id"; out.index != idx && out.HasColumn(idx) {
		if out.index != "" && !out.HasColumn(out.index) {
			out.columns = append([]string{out.index}, out.columns...)
		}
		out.columns = slices.DeleteFunc(out.columns, func(c string) bool { return c == idx })
		out.index = idx
	}

	return out
}

// Name returns the entity name of the table
func (t *Table) Name() string {
	return t.name
}

// IndexName returns the name of the index column or "" when the table has no
// index
func (t *Table) IndexName() string {
	return t.index
}

// Columns returns the non-index column names in order
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Mappers returns the column mappers applied to the table
func (t *Table) Mappers() []colmap.ColMap {
	return append([]colmap.ColMap(nil), t.mappers...)
}

// HasColumn reports whether col is one of the table columns
func (t *Table) HasColumn(col string) bool {
	return slices.Contains(t.columns, col)
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// IsEmpty reports whether the table has no rows
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// Row returns the i-th row
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Rows returns the rows in order
func (t *Table) Rows() []Row {
	return append([]Row(nil), t.rows...)
}

// Value returns the value of column col in the i-th row
func (t *Table) Value(i int, col string) any {
	return t.rows[i][col]
}

// Key returns the normalised index value of the i-th row, or its position when
// the table has no index
func (t *Table) Key(i int) any {

	if t.index == "" {
		return int64(i)
	}

	return Normalize(t.rows[i][t.index])
}

// Keys returns the index values of all rows in order
func (t *Table) Keys() []any {

	keys := make([]any, len(t.rows))

	for i := range t.rows {
		keys[i] = t.Key(i)
	}

	return keys
}

// KeySet returns the set of index values
func (t *Table) KeySet() map[any]struct{} {

	set := make(map[any]struct{}, len(t.rows))

	for i := range t.rows {
		set[t.Key(i)] = struct{}{}
	}

	return set
}

// Column returns the values of col in row order
func (t *Table) Column(col string) []any {

	vals := make([]any, len(t.rows))

	for i, r := range t.rows {
		vals[i] = r[col]
	}

	return vals
}

// ValueSet returns the normalised distinct values of col
func (t *Table) ValueSet(col string) map[any]struct{} {

	set := make(map[any]struct{}, len(t.rows))

	for _, r := range t.rows {
		set[Normalize(r[col])] = struct{}{}
	}

	return set
}

// Reindex resets any named index back to a column and makes key the index.
// With drop the key is no longer listed among the columns.
func (t *Table) Reindex(key string, drop bool) (*Table, error) {

	out := t.ResetIndex()

	if !out.HasColumn(key) {
		return nil, fmt.Errorf("error setting index: column %q not found in table %q", key, t.name)
	}

	if drop {
		out.columns = slices.DeleteFunc(out.columns, func(c string) bool { return c == key })
	}

	out.index = key

	return out, nil
}

// ResetIndex moves the index back into the columns
func (t *Table) ResetIndex() *Table {

	out := t.shallow()

	if out.index != "" && !out.HasColumn(out.index) {
		out.columns = append([]string{out.index}, out.columns...)
	}

	out.index = ""

	return out
}

// Where returns the rows for which keep returns true, in order
func (t *Table) Where(keep func(i int, r Row) bool) *Table {

	out := t.shallow()
	out.rows = out.rows[:0:0]

	for i, r := range t.rows {
		if keep(i, r) {
			out.rows = append(out.rows, r)
		}
	}

	return out
}

// WhereKeys returns the rows whose index value is in keys, in order
func (t *Table) WhereKeys(keys map[any]struct{}) *Table {
	return t.Where(func(i int, _ Row) bool {
		_, ok := keys[t.Key(i)]
		return ok
	})
}

// WhereNotKeys returns the rows whose index value is not in keys, in order
func (t *Table) WhereNotKeys(keys map[any]struct{}) *Table {
	return t.Where(func(i int, _ Row) bool {
		_, ok := keys[t.Key(i)]
		return !ok
	})
}

// SortByIndex returns the rows stably sorted by index value
func (t *Table) SortByIndex() *Table {

	out := t.shallow()
	keys := t.Keys()
	order := make([]int, len(keys))

	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return Compare(keys[order[a]], keys[order[b]]) < 0
	})

	for i, o := range order {
		out.rows[i] = t.rows[o]
	}

	return out
}

// Project keeps the index and the given columns, missing columns are skipped
func (t *Table) Project(columns []string) *Table {

	out := t.shallow()
	out.columns = out.columns[:0:0]

	for _, c := range columns {
		if c != t.index && t.HasColumn(c) && !slices.Contains(out.columns, c) {
			out.columns = append(out.columns, c)
		}
	}

	for i, r := range t.rows {
		nr := make(Row, len(out.columns)+1)
		if t.index != "" {
			nr[t.index] = r[t.index]
		}
		for _, c := range out.columns {
			if v, ok := r[c]; ok {
				nr[c] = v
			}
		}
		out.rows[i] = nr
	}

	return out
}

// WithColumn returns a copy of the table with col set on every row to the
// value returned by fn
func (t *Table) WithColumn(col string, fn func(r Row) any) *Table {

	out := t.Copy()

	if !out.HasColumn(col) && col != out.index {
		out.columns = append(out.columns, col)
	}

	for _, r := range out.rows {
		r[col] = fn(r)
	}

	return out
}

// DropNullKeys removes rows whose index value is null
func (t *Table) DropNullKeys() *Table {

	if t.index == "" {
		return t.shallow()
	}

	return t.Where(func(_ int, r Row) bool {
		return r[t.index] != nil
	})
}

// DropDuplicateIndex keeps the first row of every index value
func (t *Table) DropDuplicateIndex() *Table {

	seen := make(map[any]struct{}, len(t.rows))

	return t.Where(func(i int, _ Row) bool {
		k := t.Key(i)
		if _, ok := seen[k]; ok {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
}

// RowKey builds a comparable key from the normalised values of columns in the
// i-th row
func (t *Table) RowKey(i int, columns []string) string {

	var b strings.Builder

	for _, c := range columns {
		v := Normalize(t.rows[i][c])
		fmt.Fprintf(&b, "%T:%v\x1f", v, v)
	}

	return b.String()
}

// DropDuplicates keeps the first row of each group of rows sharing the same
// values in columns.  The returned map associates the index value of every
// dropped row with the index value of the row kept in its place.
func (t *Table) DropDuplicates(columns []string) (*Table, map[any]any) {

	first := make(map[string]any, len(t.rows))
	dropped := make(map[any]any)

	out := t.Where(func(i int, _ Row) bool {
		rk := t.RowKey(i, columns)
		if kept, ok := first[rk]; ok {
			dropped[t.Key(i)] = kept
			return false
		}
		first[rk] = t.Key(i)
		return true
	})

	return out, dropped
}

// MapColumn returns a copy of the table with fn applied to every value of col
func (t *Table) MapColumn(col string, fn func(v any) any) *Table {

	out := t.Copy()

	for _, r := range out.rows {
		if v, ok := r[col]; ok {
			r[col] = fn(v)
		}
	}

	return out
}

// Records returns the rows with the index included and the column mappers
// reversed, ready to be written out
func (t *Table) Records() []Row {

	reverse := make(map[string]string, len(t.mappers))

	for _, m := range t.mappers {
		reverse[m.New] = m.Orig
	}

	out := make([]Row, len(t.rows))

	for i, r := range t.rows {
		nr := make(Row, len(r))
		for k, v := range r {
			if orig, ok := reverse[k]; ok {
				k = orig
			}
			nr[k] = v
		}
		out[i] = nr
	}

	return out
}

// AllColumns returns the index name followed by the columns
func (t *Table) AllColumns() []string {

	if t.index == "" || t.HasColumn(t.index) {
		return t.Columns()
	}

	return append([]string{t.index}, t.columns...)
}
