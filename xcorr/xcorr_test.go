package xcorr

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/seisclust/distmat"
	"github.com/hupe1980/seisclust/template"
	"github.com/hupe1980/seisclust/testutil"
)

func TestPairDistance(t *testing.T) {
	rng := testutil.NewRNG(1)
	a := testutil.MakeWaveform(rng, 2.0, 200)

	t.Run("Identical", func(t *testing.T) {
		d := pairDistance(a, a.Clone(), 0.2)
		assert.InDelta(t, 0, d, 1e-6)
	})

	t.Run("Shifted", func(t *testing.T) {
		// Shift every trace by 10 samples; within a 0.2 s tolerance at
		// 100 Hz the alignment is recovered.
		shifted := a.Clone()
		for i, tr := range shifted.Traces {
			shifted.Traces[i].Data = append(make([]float32, 10), tr.Data[:len(tr.Data)-10]...)
		}
		d := pairDistance(a, shifted, 0.2)
		assert.Less(t, d, 0.1)

		// Without shift tolerance the sine misaligns badly.
		d0 := pairDistance(a, shifted, 0)
		assert.Greater(t, d0, d)
	})

	t.Run("Dissimilar", func(t *testing.T) {
		b := testutil.MakeWaveform(rng, 7.3, 200)
		d := pairDistance(a, b, 0.2)
		assert.Greater(t, d, 0.5)
	})

	t.Run("NoCommonChannels", func(t *testing.T) {
		b := &template.Waveform{Traces: []template.Trace{
			{ID: "XX.OTHER.00.HHZ", SampleRate: 100, Data: []float32{1, 2, 3}},
		}}
		assert.True(t, math.IsNaN(pairDistance(a, b, 0.2)))
	})
}

func TestMaxNormCorr(t *testing.T) {
	x := []float32{0, 1, 0, -1, 0, 1, 0, -1}

	assert.InDelta(t, 1.0, maxNormCorr(x, x, 0), 1e-6)

	// Anti-phase at zero lag, recovered with a 2-sample shift allowance.
	y := []float32{0, -1, 0, 1, 0, -1, 0, 1}
	assert.InDelta(t, -1.0, maxNormCorr(x, y, 0), 1e-6)
	assert.Greater(t, maxNormCorr(x, y, 2), 0.7)

	// All-zero input cannot be normalized.
	assert.Zero(t, maxNormCorr(x, []float32{0, 0, 0, 0}, 0))
}

func TestCorrelate(t *testing.T) {
	rng := testutil.NewRNG(7)
	// Two correlated family members plus one unrelated waveform.
	base := testutil.MakeWaveform(rng, 2.0, 200)
	twin := testutil.MakeWaveform(rng, 2.0, 200)
	odd := testutil.MakeWaveform(rng, 9.1, 200)

	pairs := []Pair{{base, 0}, {twin, 1}, {odd, 2}}
	opts := DefaultOptions()
	opts.CorrThresh = 0.6

	groups, matFile, err := Correlate(context.Background(), pairs, opts)
	require.NoError(t, err)
	defer os.Remove(matFile)

	require.Len(t, groups, 2)
	assert.Equal(t, []int{0, 1}, []int{groups[0][0].ID, groups[0][1].ID})
	assert.Equal(t, 2, groups[1][0].ID)

	// The side-channel file is a readable distance matrix aligned with
	// input order.
	f, err := os.Open(matFile)
	require.NoError(t, err)
	defer f.Close()
	mat, err := distmat.ReadNPY(f)
	require.NoError(t, err)
	require.Equal(t, 3, mat.Size())
	assert.Less(t, mat.At(0, 1), 1-opts.CorrThresh)
	assert.Greater(t, mat.At(0, 2), mat.At(0, 1))
}

func TestCorrelateTooFew(t *testing.T) {
	_, _, err := Correlate(context.Background(), []Pair{{}}, DefaultOptions())
	require.ErrorIs(t, err, ErrTooFewPairs)
}

func TestCorrelateCanceled(t *testing.T) {
	rng := testutil.NewRNG(3)
	pairs := []Pair{
		{testutil.MakeWaveform(rng, 2.0, 200), 0},
		{testutil.MakeWaveform(rng, 2.0, 200), 1},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Correlate(ctx, pairs, DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestCorrelateRateLimited(t *testing.T) {
	rng := testutil.NewRNG(5)
	pairs := []Pair{
		{testutil.MakeWaveform(rng, 2.0, 100), 0},
		{testutil.MakeWaveform(rng, 2.0, 100), 1},
		{testutil.MakeWaveform(rng, 2.0, 100), 2},
	}
	opts := DefaultOptions()
	opts.PairsPerSec = 1000 // generous, just exercises the limiter path

	groups, matFile, err := Correlate(context.Background(), pairs, opts)
	require.NoError(t, err)
	os.Remove(matFile)
	assert.NotEmpty(t, groups)
}
