package seisclust

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/seisclust/archive"
	"github.com/hupe1980/seisclust/blobstore"
	"github.com/hupe1980/seisclust/params"
)

func TestSaveAndRead(t *testing.T) {
	tribe := newCorrelatedTribe(t)
	path := filepath.Join(t.TempDir(), "wellington.tgz")

	require.NoError(t, tribe.Save(path))

	loaded := New(WithLogger(NoopLogger()))
	require.NoError(t, loaded.Read(path))

	assert.Equal(t, tribe.Names(), loaded.Names())
	assert.True(t, tribe.Membership().Equal(loaded.Membership()))
	assert.True(t, tribe.DistanceMatrix().Equal(loaded.DistanceMatrix()))
	assert.True(t, tribe.ClusterParams()[MethodCorrelation].Equal(loaded.ClusterParams()[MethodCorrelation]))

	tpl, ok := loaded.Select("eqA")
	require.True(t, ok)
	require.NotNil(t, tpl.Event)
	orig, _ := tribe.Select("eqA")
	assert.InDelta(t, orig.Event.Latitude, tpl.Event.Latitude, 1e-9)
}

func TestReadMergesSkippingDuplicates(t *testing.T) {
	tribe := newCorrelatedTribe(t)
	path := filepath.Join(t.TempDir(), "wellington.tgz")
	require.NoError(t, tribe.Save(path))

	// A tribe that already holds eqB plus its own template.
	other := newTestTribe(t, "eqB", "eqX")
	require.NoError(t, other.Read(path))

	// eqB was skipped, the rest merged in.
	assert.ElementsMatch(t, []string{"eqB", "eqX", "eqA", "eqC"}, other.Names())

	// The merged distance matrix replaces the (absent) current one, and
	// the correlation params arrive with it.
	assert.NotNil(t, other.DistanceMatrix())
	assert.Contains(t, other.ClusterParams(), MethodCorrelation)
}

func TestReadKeepsExistingParams(t *testing.T) {
	tribe := newCorrelatedTribe(t)
	path := filepath.Join(t.TempDir(), "wellington.tgz")
	require.NoError(t, tribe.Save(path))

	other := New(WithLogger(NoopLogger()))
	other.cparams[MethodCorrelation] = mustParams(t, 0.9)
	require.NoError(t, other.Read(path))

	// An existing record is never overwritten by a merge.
	v, _ := other.ClusterParams()[MethodCorrelation].Float("corr_thresh")
	assert.InDelta(t, 0.9, v, 1e-12)
}

func TestSnapshotSaveRead(t *testing.T) {
	tribe := newCorrelatedTribe(t)
	path := filepath.Join(t.TempDir(), "wellington.json")

	require.NoError(t, tribe.SaveSnapshot(path))

	loaded := New(WithLogger(NoopLogger()))
	require.NoError(t, loaded.ReadSnapshot(path))
	assert.Equal(t, tribe.Names(), loaded.Names())
	assert.True(t, tribe.DistanceMatrix().Equal(loaded.DistanceMatrix()))

	// Tribe.Read dispatches snapshots by extension too.
	again := New(WithLogger(NoopLogger()))
	require.NoError(t, again.Read(path))
	assert.Equal(t, tribe.Names(), again.Names())
}

func TestSaveToReadFrom(t *testing.T) {
	tribe := newCorrelatedTribe(t)
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	key, err := tribe.SaveTo(ctx, store, "tribes/wellington")
	require.NoError(t, err)
	assert.Equal(t, "tribes/wellington.tgz", key)

	loaded := New(WithLogger(NoopLogger()))
	require.NoError(t, loaded.ReadFrom(ctx, store, key))
	assert.Equal(t, tribe.Names(), loaded.Names())
	assert.True(t, tribe.Membership().Equal(loaded.Membership()))
}

func TestSaveUncompressedDirectory(t *testing.T) {
	tribe := newCorrelatedTribe(t)
	dir := filepath.Join(t.TempDir(), "wellington")

	require.NoError(t, tribe.Save(dir, archive.WithCompression(archive.CompressionNone)))

	loaded := New(WithLogger(NoopLogger()))
	require.NoError(t, loaded.Read(dir))
	assert.Equal(t, tribe.Names(), loaded.Names())
}

func mustParams(t *testing.T, thresh float64) params.Params {
	t.Helper()
	return params.Params{params.KeyCorrThresh: thresh}
}
