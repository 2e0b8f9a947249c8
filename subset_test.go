package seisclust

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubset(t *testing.T) {
	tribe := newCorrelatedTribe(t)

	sub, err := tribe.Subset("eqC", "eqA")
	require.NoError(t, err)
	assert.Equal(t, []string{"eqC", "eqA"}, sub.Names())

	// The submatrix is indexed by selection order but its values come
	// from the durable ids: d(eqC, eqA) is the original d(2, 0) = 0.5.
	mat := sub.DistanceMatrix()
	require.NotNil(t, mat)
	require.Equal(t, 2, mat.Size())
	assert.InDelta(t, 0.5, mat.At(0, 1), 1e-12)
	assert.Zero(t, mat.At(0, 0))
	assert.Zero(t, mat.At(1, 1))

	// The subset's ids are renumbered to match the projected matrix.
	tbl := sub.Membership()
	id, _ := tbl.ID("eqC")
	assert.Equal(t, 0, id)
	id, _ = tbl.ID("eqA")
	assert.Equal(t, 1, id)

	// Parameter records come along as a deep copy.
	kw := sub.ClusterParams()[MethodCorrelation]
	require.NotNil(t, kw)
	kw["corr_thresh"] = 0.99
	v, _ := tribe.ClusterParams()[MethodCorrelation].Float("corr_thresh")
	assert.InDelta(t, 0.7, v, 1e-12)
}

func TestSubsetAfterRemoval(t *testing.T) {
	tribe := newCorrelatedTribe(t)
	tribe.Remove("eqB")

	// eqC still carries id 2; its distances index the captured matrix
	// correctly even though it now sits at position 1.
	sub, err := tribe.Subset("eqA", "eqC")
	require.NoError(t, err)
	mat := sub.DistanceMatrix()
	require.NotNil(t, mat)
	assert.InDelta(t, 0.5, mat.At(0, 1), 1e-12)
}

func TestSubsetIsDeep(t *testing.T) {
	tribe := newCorrelatedTribe(t)

	sub, err := tribe.Subset("eqA")
	require.NoError(t, err)
	tpl, ok := sub.Select("eqA")
	require.True(t, ok)
	tpl.Waveform.Traces[0].Data[0] = 42

	orig, _ := tribe.Select("eqA")
	assert.NotEqual(t, float32(42), orig.Waveform.Traces[0].Data[0])
}

func TestSubsetUnknownName(t *testing.T) {
	tribe := newCorrelatedTribe(t)

	_, err := tribe.Subset("eqA", "eqZ")
	var unknown *ErrUnknownName
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "eqZ", unknown.Name)
}

func TestSubsetIdempotent(t *testing.T) {
	tribe := newCorrelatedTribe(t)

	once, err := tribe.Subset("eqB", "eqC")
	require.NoError(t, err)
	twice, err := once.Subset("eqB", "eqC")
	require.NoError(t, err)

	assert.Equal(t, once.Names(), twice.Names())
	assert.True(t, once.Membership().Equal(twice.Membership()))
	assert.True(t, once.DistanceMatrix().Equal(twice.DistanceMatrix()))
	// d(eqB, eqC) survives the second projection.
	assert.InDelta(t, 0.3, twice.DistanceMatrix().At(0, 1), 1e-12)
}

func TestSubsetWithoutMatrix(t *testing.T) {
	tribe := newTestTribe(t, "eqA", "eqB")

	sub, err := tribe.Subset("eqB")
	require.NoError(t, err)
	assert.Nil(t, sub.DistanceMatrix())

	// Without a matrix there is nothing to re-index, so the durable id
	// stays untouched.
	id, _ := sub.Membership().ID("eqB")
	assert.Equal(t, 1, id)
}

func TestSubsetRowOutsideMatrix(t *testing.T) {
	tribe := newCorrelatedTribe(t)
	// A template added after the correlation run has an id beyond the
	// captured matrix; its distances are unknown.
	donor := newTestTribe(t, "seed")
	extra, _ := donor.Select("seed")
	extra.Name = "eqD"
	require.NoError(t, tribe.AddTemplate(extra))

	sub, err := tribe.Subset("eqA", "eqD")
	require.NoError(t, err)
	mat := sub.DistanceMatrix()
	require.NotNil(t, mat)
	assert.True(t, math.IsNaN(mat.At(0, 1)))
	// The diagonal is still a known zero, even for an uncovered row.
	assert.Zero(t, mat.At(1, 1))
}

func TestSelectClusterUnknownMethod(t *testing.T) {
	tribe := newCorrelatedTribe(t)

	sub := tribe.SelectCluster("geometry", 0)
	assert.Zero(t, sub.Len())

	// Known method, empty group: also an empty tribe.
	sub = tribe.SelectCluster(MethodCorrelation, 99)
	assert.Zero(t, sub.Len())

	sub = tribe.SelectCluster(MethodCorrelation, 1)
	assert.Equal(t, []string{"eqC"}, sub.Names())
}
