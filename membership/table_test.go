package membership

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T, names ...string) *Table {
	t.Helper()
	tbl := NewTable()
	for i, name := range names {
		require.NoError(t, tbl.Add(name, i))
	}
	return tbl
}

func TestTableAdd(t *testing.T) {
	tbl := newTestTable(t, "eqA", "eqB")

	require.True(t, tbl.Has("eqA"))
	id, ok := tbl.ID("eqB")
	require.True(t, ok)
	assert.Equal(t, 1, id)

	err := tbl.Add("eqA", 2)
	require.ErrorIs(t, err, ErrDuplicateRow)
	assert.Equal(t, 2, tbl.Len())
}

func TestTableDropKeepsIDs(t *testing.T) {
	tbl := newTestTable(t, "eqA", "eqB", "eqC")
	tbl.Drop("eqB")

	assert.Equal(t, 2, tbl.Len())
	assert.False(t, tbl.Has("eqB"))

	// eqC keeps the id it was assigned at insert time.
	id, ok := tbl.ID("eqC")
	require.True(t, ok)
	assert.Equal(t, 2, id)

	// Dropping an unknown row is a no-op.
	tbl.Drop("nope")
	assert.Equal(t, 2, tbl.Len())
}

func TestTableRenumberIDs(t *testing.T) {
	tbl := newTestTable(t, "eqA", "eqB", "eqC")
	tbl.Drop("eqA")
	tbl.RenumberIDs()

	id, _ := tbl.ID("eqB")
	assert.Equal(t, 0, id)
	id, _ = tbl.ID("eqC")
	assert.Equal(t, 1, id)

	name, ok := tbl.NameByID(1)
	require.True(t, ok)
	assert.Equal(t, "eqC", name)
}

func TestSetColumn(t *testing.T) {
	tbl := newTestTable(t, "eqA", "eqB", "eqC")
	tbl.SetColumn("geometry", map[string]int{"eqA": 0, "eqB": 0, "eqC": 1})

	g, ok := tbl.Get("eqB", "geometry")
	require.True(t, ok)
	assert.Equal(t, 0, g)

	// A re-run that no longer covers eqC must not leave a stale value.
	tbl.SetColumn("geometry", map[string]int{"eqA": 0, "eqB": 1})
	g, ok = tbl.Get("eqC", "geometry")
	require.True(t, ok)
	assert.Equal(t, Unassigned, g)

	// Names without a row are ignored.
	tbl.SetColumn("geometry", map[string]int{"eqA": 0, "ghost": 5})
	_, ok = tbl.Get("ghost", "geometry")
	assert.False(t, ok)
}

func TestGroupNames(t *testing.T) {
	tbl := newTestTable(t, "eqA", "eqB", "eqC", "eqD")
	tbl.SetColumn("correlation", map[string]int{"eqA": 1, "eqB": 0, "eqC": 1, "eqD": 0})

	names, ok := tbl.GroupNames("correlation", 1)
	require.True(t, ok)
	assert.Equal(t, []string{"eqA", "eqC"}, names)

	// Empty group of a known method is ok but empty.
	names, ok = tbl.GroupNames("correlation", 7)
	require.True(t, ok)
	assert.Empty(t, names)

	// Unknown method is not ok.
	_, ok = tbl.GroupNames("geometry", 0)
	assert.False(t, ok)

	assert.Equal(t, []int{0, 1}, tbl.Groups("correlation"))
}

func TestSubsetPreservesIDsAndOrder(t *testing.T) {
	tbl := newTestTable(t, "eqA", "eqB", "eqC")
	tbl.SetColumn("geometry", map[string]int{"eqA": 0, "eqB": 1, "eqC": 1})

	s := tbl.Subset([]string{"eqC", "eqA"})
	assert.Equal(t, []string{"eqC", "eqA"}, s.Names())

	id, _ := s.ID("eqC")
	assert.Equal(t, 2, id)
	id, _ = s.ID("eqA")
	assert.Equal(t, 0, id)

	g, ok := s.Get("eqC", "geometry")
	require.True(t, ok)
	assert.Equal(t, 1, g)
}

func TestMergeSkipsExisting(t *testing.T) {
	a := newTestTable(t, "eqA", "eqB")
	a.SetColumn("geometry", map[string]int{"eqA": 0, "eqB": 1})

	b := NewTable()
	require.NoError(t, b.Add("eqB", 7))
	require.NoError(t, b.Add("eqC", 9))
	b.SetColumn("correlation", map[string]int{"eqB": 0, "eqC": 0})

	a.Merge(b)

	assert.Equal(t, []string{"eqA", "eqB", "eqC"}, a.Names())
	// The existing eqB row wins, the incoming eqC keeps its archived id.
	id, _ := a.ID("eqB")
	assert.Equal(t, 1, id)
	id, _ = a.ID("eqC")
	assert.Equal(t, 9, id)

	g, ok := a.Get("eqC", "correlation")
	require.True(t, ok)
	assert.Equal(t, 0, g)
	g, ok = a.Get("eqA", "correlation")
	require.True(t, ok)
	assert.Equal(t, Unassigned, g)
}

func TestCloneEqual(t *testing.T) {
	tbl := newTestTable(t, "eqA", "eqB")
	tbl.SetColumn("geometry", map[string]int{"eqA": 0, "eqB": 1})

	c := tbl.Clone()
	assert.True(t, tbl.Equal(c))

	c.SetColumn("geometry", map[string]int{"eqA": 1, "eqB": 1})
	assert.False(t, tbl.Equal(c))
}

func TestCSVRoundTrip(t *testing.T) {
	tbl := newTestTable(t, "eqA", "eqB", "eqC")
	tbl.Drop("eqB")
	tbl.SetColumn("geometry", map[string]int{"eqA": 0, "eqC": 1})
	tbl.SetColumn("correlation", map[string]int{"eqA": 0})

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(got))

	// eqC was outside the correlation run and must come back Unassigned.
	g, ok := got.Get("eqC", "correlation")
	require.True(t, ok)
	assert.Equal(t, Unassigned, g)
}

func TestReadCSVFloatCells(t *testing.T) {
	in := strings.Join([]string{
		",id_no,correlation",
		"eqA,0.0,1.0",
		"eqB,1.0,",
		"",
	}, "\n")

	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	id, _ := tbl.ID("eqB")
	assert.Equal(t, 1, id)
	g, ok := tbl.Get("eqA", "correlation")
	require.True(t, ok)
	assert.Equal(t, 1, g)
	g, _ = tbl.Get("eqB", "correlation")
	assert.Equal(t, Unassigned, g)
}

func TestReadCSVMalformedHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("name,group\neqA,0\n"))
	require.Error(t, err)
}
