package seisclust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/seisclust/template"
	"github.com/hupe1980/seisclust/testutil"
)

var testOrigin = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestTribe(t *testing.T, names ...string) *Tribe {
	t.Helper()
	rng := testutil.NewRNG(21)
	tribe := New(WithLogger(NoopLogger()))
	for i, name := range names {
		tpl := testutil.MakeTemplate(rng, name, -41.3+float64(i)*0.005, 174.8, 20, testOrigin.Add(time.Duration(i)*time.Minute))
		require.NoError(t, tribe.AddTemplate(tpl))
	}
	return tribe
}

func TestAddTemplate(t *testing.T) {
	tribe := newTestTribe(t, "eqA", "eqB")
	assert.Equal(t, 2, tribe.Len())
	assert.Equal(t, []string{"eqA", "eqB"}, tribe.Names())

	rng := testutil.NewRNG(1)
	dup := testutil.MakeTemplate(rng, "eqA", -41, 174, 10, testOrigin)
	err := tribe.AddTemplate(dup)
	var dupErr *ErrDuplicateName
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "eqA", dupErr.Name)

	invalid := &template.Template{Name: "", Waveform: dup.Waveform}
	require.ErrorIs(t, tribe.AddTemplate(invalid), template.ErrEmptyName)
}

func TestAddRenamed(t *testing.T) {
	tribe := newTestTribe(t, "eq")
	rng := testutil.NewRNG(2)

	tests := []struct {
		insert string
		want   string
	}{
		{"eq", "eq__0"},
		{"eq", "eq__1"},
		// A suffixed name dedupes against the same base family.
		{"eq__0", "eq__2"},
		// A fresh name is kept as is.
		{"other", "other"},
	}

	for _, tt := range tests {
		tpl := testutil.MakeTemplate(rng, tt.insert, -41, 174, 10, testOrigin)
		got, err := tribe.AddRenamed(tpl)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		// The template object is renamed in place.
		assert.Equal(t, tt.want, tpl.Name)
	}
	assert.Equal(t, []string{"eq", "eq__0", "eq__1", "eq__2", "other"}, tribe.Names())
}

func TestExtendIsAtomic(t *testing.T) {
	tribe := newTestTribe(t, "eqA")
	rng := testutil.NewRNG(3)

	batch := []*template.Template{
		testutil.MakeTemplate(rng, "eqB", -41, 174, 10, testOrigin),
		testutil.MakeTemplate(rng, "eqA", -41, 174, 10, testOrigin), // collides
	}
	var dupErr *ErrDuplicateName
	require.ErrorAs(t, tribe.Extend(batch), &dupErr)
	// Nothing from the failed batch was applied.
	assert.Equal(t, []string{"eqA"}, tribe.Names())

	// Intra-batch duplicates also fail up front.
	batch = []*template.Template{
		testutil.MakeTemplate(rng, "eqB", -41, 174, 10, testOrigin),
		testutil.MakeTemplate(rng, "eqB", -41, 174, 10, testOrigin),
	}
	require.ErrorAs(t, tribe.Extend(batch), &dupErr)
	assert.Equal(t, 1, tribe.Len())

	require.NoError(t, tribe.Extend([]*template.Template{
		testutil.MakeTemplate(rng, "eqB", -41, 174, 10, testOrigin),
		testutil.MakeTemplate(rng, "eqC", -41, 174, 10, testOrigin),
	}))
	assert.Equal(t, []string{"eqA", "eqB", "eqC"}, tribe.Names())
}

func TestExtendRenamed(t *testing.T) {
	tribe := newTestTribe(t, "eqA")
	rng := testutil.NewRNG(4)

	require.NoError(t, tribe.ExtendRenamed([]*template.Template{
		testutil.MakeTemplate(rng, "eqA", -41, 174, 10, testOrigin),
		testutil.MakeTemplate(rng, "eqB", -41, 174, 10, testOrigin),
	}))
	assert.Equal(t, []string{"eqA", "eqA__0", "eqB"}, tribe.Names())
}

func TestRemove(t *testing.T) {
	tribe := newTestTribe(t, "eqA", "eqB", "eqC")
	tribe.Remove("eqB")

	assert.Equal(t, []string{"eqA", "eqC"}, tribe.Names())
	_, ok := tribe.Select("eqB")
	assert.False(t, ok)

	// Unknown removals are silent no-ops.
	tribe.Remove("eqZ")
	assert.Equal(t, 2, tribe.Len())

	// Removing then re-adding restores the original row set.
	rng := testutil.NewRNG(5)
	require.NoError(t, tribe.AddTemplate(testutil.MakeTemplate(rng, "eqB", -41, 174, 10, testOrigin)))
	assert.ElementsMatch(t, []string{"eqA", "eqB", "eqC"}, tribe.Names())
}

func TestSelectTraces(t *testing.T) {
	tribe := newTestTribe(t, "eqA", "eqB")
	// Give eqB a waveform with no vertical channel.
	tpl, ok := tribe.Select("eqB")
	require.True(t, ok)
	tpl.Waveform = &template.Waveform{Traces: []template.Trace{
		{ID: "NZ.BFZ.10.HHN", SampleRate: 100, Data: []float32{1, 2, 3}},
	}}

	tribe.SelectTraces("*.HHZ", false)
	a, _ := tribe.Select("eqA")
	assert.Len(t, a.Waveform.Traces, 1)
	b, _ := tribe.Select("eqB")
	assert.Empty(t, b.Waveform.Traces)
	assert.Equal(t, 2, tribe.Len())

	// With removeEmpty the now-empty template goes away.
	tribe.SelectTraces("*.HHZ", true)
	assert.Equal(t, []string{"eqA"}, tribe.Names())
}

func TestCopyIsDeep(t *testing.T) {
	tribe := newTestTribe(t, "eqA", "eqB")
	cp := tribe.Copy()

	cp.Remove("eqA")
	tplCopy, ok := cp.Select("eqB")
	require.True(t, ok)
	tplCopy.Waveform.Traces[0].Data[0] = 99

	assert.Equal(t, 2, tribe.Len())
	orig, _ := tribe.Select("eqB")
	assert.NotEqual(t, float32(99), orig.Waveform.Traces[0].Data[0])
}

func TestAccessorsCopy(t *testing.T) {
	tribe := newTestTribe(t, "eqA", "eqB")

	tbl := tribe.Membership()
	tbl.Drop("eqA")
	assert.Equal(t, 2, tribe.Len())

	assert.Nil(t, tribe.DistanceMatrix())

	assert.Equal(t, "Tribe of 2 templates", tribe.String())
}
