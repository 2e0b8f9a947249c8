// Package membership implements the cluster membership table: one row per
// template (keyed by name), one column per clustering method, and a durable
// id_no column that cross-references distance-matrix indices.
//
// Rows keep their historical id_no across later removals; only ordinal row
// positions shift. A roaring-bitmap inverted index over row positions backs
// fast group-membership lookups per (method, group).
package membership

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Unassigned is the sentinel group id for a row a method's most recent run
// did not evaluate.
const Unassigned = -1

// IDColumn is the reserved column holding each row's durable id.
const IDColumn = "id_no"

// ErrDuplicateRow is returned when adding a row whose name already exists.
var ErrDuplicateRow = errors.New("membership: duplicate row name")

// Table is a row-per-template, column-per-method assignment table.
type Table struct {
	names   []string // row order
	ids     map[string]int
	methods []string // column order, excluding id_no
	cells   map[string]map[string]int // method -> name -> group

	// index maps method -> group -> bitmap of row positions.
	// Rebuilt on any structural change; positions are only valid until the
	// next Add/Drop.
	index map[string]map[int]*roaring.Bitmap
}

// NewTable creates an empty membership table.
func NewTable() *Table {
	return &Table{
		ids:   make(map[string]int),
		cells: make(map[string]map[string]int),
		index: make(map[string]map[int]*roaring.Bitmap),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.names) }

// Has reports whether a row exists for the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.ids[name]
	return ok
}

// Names returns the row names in row order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Methods returns the method column names in insertion order.
func (t *Table) Methods() []string {
	out := make([]string, len(t.methods))
	copy(out, t.methods)
	return out
}

// HasMethod reports whether a method column exists.
func (t *Table) HasMethod(method string) bool {
	_, ok := t.cells[method]
	return ok
}

// ID returns the durable id recorded for a row.
func (t *Table) ID(name string) (int, bool) {
	id, ok := t.ids[name]
	return id, ok
}

// NameByID returns the row whose durable id equals id. With historical ids
// retained across removals, an id can be absent even when rows exist.
func (t *Table) NameByID(id int) (string, bool) {
	for _, name := range t.names {
		if t.ids[name] == id {
			return name, true
		}
	}
	return "", false
}

// RenumberIDs resets every row's durable id to its current ordinal position.
// Called when a fresh distance matrix is captured, so matrix indices and
// id_no agree from that point on.
func (t *Table) RenumberIDs() {
	for pos, name := range t.names {
		t.ids[name] = pos
	}
}

// Get returns the group assigned to a row by a method.
func (t *Table) Get(name, method string) (int, bool) {
	col, ok := t.cells[method]
	if !ok {
		return 0, false
	}
	if !t.Has(name) {
		return 0, false
	}
	g, ok := col[name]
	if !ok {
		return Unassigned, true
	}
	return g, true
}

// Add appends a row with the given durable id. The id is the template's
// ordinal position at insert time and is never renumbered afterwards.
func (t *Table) Add(name string, id int) error {
	if t.Has(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateRow, name)
	}
	t.names = append(t.names, name)
	t.ids[name] = id
	t.rebuildIndex()
	return nil
}

// Drop removes a row. Unknown names are a no-op; the caller decides whether
// that is worth logging.
func (t *Table) Drop(name string) {
	if !t.Has(name) {
		return
	}
	for i, n := range t.names {
		if n == name {
			t.names = append(t.names[:i], t.names[i+1:]...)
			break
		}
	}
	delete(t.ids, name)
	for _, col := range t.cells {
		delete(col, name)
	}
	t.rebuildIndex()
}

// SetColumn records a method run. An existing column is overwritten cell by
// cell, keyed by name; rows absent from assign get the Unassigned sentinel,
// never a stale value. Names in assign without a row are ignored.
func (t *Table) SetColumn(method string, assign map[string]int) {
	if !t.HasMethod(method) {
		t.methods = append(t.methods, method)
		t.cells[method] = make(map[string]int, len(t.names))
	}
	col := t.cells[method]
	for _, name := range t.names {
		if g, ok := assign[name]; ok {
			col[name] = g
		} else {
			col[name] = Unassigned
		}
	}
	t.rebuildIndex()
}

// GroupNames returns the names of all rows assigned to the given group by a
// method, in row order. ok is false when the method column does not exist.
func (t *Table) GroupNames(method string, group int) (names []string, ok bool) {
	groups, found := t.index[method]
	if !found {
		return nil, false
	}
	bm, found := groups[group]
	if !found {
		return nil, true
	}
	it := bm.Iterator()
	for it.HasNext() {
		names = append(names, t.names[it.Next()])
	}
	return names, true
}

// Groups returns the distinct group ids present in a method column, sorted.
func (t *Table) Groups(method string) []int {
	groups, ok := t.index[method]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(groups))
	for g := range groups {
		out = append(out, g)
	}
	sort.Ints(out)
	return out
}

// Column returns a method's assignments keyed by row name.
func (t *Table) Column(method string) (map[string]int, bool) {
	col, ok := t.cells[method]
	if !ok {
		return nil, false
	}
	out := make(map[string]int, len(t.names))
	for _, name := range t.names {
		if g, found := col[name]; found {
			out[name] = g
		} else {
			out[name] = Unassigned
		}
	}
	return out, true
}

// Subset returns a new table containing only the given rows, in the given
// order, with all columns and durable ids preserved. Unknown names are
// skipped; the caller validates membership beforehand.
func (t *Table) Subset(names []string) *Table {
	s := NewTable()
	s.methods = append(s.methods, t.methods...)
	for _, m := range t.methods {
		s.cells[m] = make(map[string]int)
	}
	for _, name := range names {
		id, ok := t.ids[name]
		if !ok {
			continue
		}
		s.names = append(s.names, name)
		s.ids[name] = id
		for _, m := range t.methods {
			if g, found := t.cells[m][name]; found {
				s.cells[m][name] = g
			}
		}
	}
	s.rebuildIndex()
	return s
}

// Merge appends rows from other that are not already present, preserving
// other's durable ids, and unions the column sets. Conflicting ids are
// possible when merging into a non-empty table; any distance matrix keyed on
// the incoming ids must be treated as stale by the caller.
func (t *Table) Merge(other *Table) {
	for _, m := range other.methods {
		if !t.HasMethod(m) {
			t.methods = append(t.methods, m)
			t.cells[m] = make(map[string]int)
		}
	}
	for _, name := range other.names {
		if t.Has(name) {
			continue
		}
		t.names = append(t.names, name)
		t.ids[name] = other.ids[name]
		for _, m := range other.methods {
			if g, found := other.cells[m][name]; found {
				t.cells[m][name] = g
			}
		}
	}
	t.rebuildIndex()
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	return t.Subset(t.names)
}

// Equal reports whether two tables hold identical rows, ids, columns and
// cells, ignoring bitmap index state.
func (t *Table) Equal(other *Table) bool {
	if t.Len() != other.Len() || len(t.methods) != len(other.methods) {
		return false
	}
	for i, name := range t.names {
		if other.names[i] != name || other.ids[name] != t.ids[name] {
			return false
		}
	}
	for i, m := range t.methods {
		if other.methods[i] != m {
			return false
		}
		for _, name := range t.names {
			g1, ok1 := t.Get(name, m)
			g2, ok2 := other.Get(name, m)
			if ok1 != ok2 || g1 != g2 {
				return false
			}
		}
	}
	return true
}

func (t *Table) rebuildIndex() {
	t.index = make(map[string]map[int]*roaring.Bitmap, len(t.methods))
	for _, m := range t.methods {
		groups := make(map[int]*roaring.Bitmap)
		for pos, name := range t.names {
			g, found := t.cells[m][name]
			if !found {
				g = Unassigned
			}
			bm, ok := groups[g]
			if !ok {
				bm = roaring.New()
				groups[g] = bm
			}
			bm.Add(uint32(pos))
		}
		t.index[m] = groups
	}
}
