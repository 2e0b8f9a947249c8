package params

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessors(t *testing.T) {
	p := Params{
		KeyCorrThresh:      0.3,
		KeyShiftLen:        2,
		KeyMethod:          "single",
		KeyOptimalOrdering: true,
	}

	v, ok := p.Float(KeyCorrThresh)
	require.True(t, ok)
	assert.InDelta(t, 0.3, v, 1e-12)

	// Int values count as numeric.
	v, ok = p.Float(KeyShiftLen)
	require.True(t, ok)
	assert.InDelta(t, 2, v, 1e-12)

	s, ok := p.String(KeyMethod)
	require.True(t, ok)
	assert.Equal(t, "single", s)

	b, ok := p.Bool(KeyOptimalOrdering)
	require.True(t, ok)
	assert.True(t, b)

	_, ok = p.Float(KeyMethod)
	assert.False(t, ok)
	_, ok = p.Float("missing")
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	p := Params{KeyCorrThresh: 0.3}
	c := p.Clone()
	c[KeyCorrThresh] = 0.5

	v, _ := p.Float(KeyCorrThresh)
	assert.InDelta(t, 0.3, v, 1e-12)
}

func TestKV(t *testing.T) {
	p := Params{
		KeyCorrThresh:      0.3,
		KeyShiftLen:        1.0,
		KeyMethod:          "single",
		KeyMetric:          "euclidean",
		KeyOptimalOrdering: false,
		KeyReplaceNaN:      "mean",
	}

	var buf bytes.Buffer
	require.NoError(t, p.WriteKV(&buf))

	got, err := ReadKV(&buf)
	require.NoError(t, err)
	assert.True(t, p.Equal(got))

	// Scalars come back typed, not as strings.
	_, ok := got.Float(KeyCorrThresh)
	assert.True(t, ok)
	_, ok = got.Bool(KeyOptimalOrdering)
	assert.True(t, ok)
	s, ok := got.String(KeyReplaceNaN)
	require.True(t, ok)
	assert.Equal(t, "mean", s)
}

func TestReadKVCoercion(t *testing.T) {
	in := strings.Join([]string{
		"corr_thresh,0.3",
		"optimal_ordering,False",
		"save_corrmat,True",
		"metric,euclidean",
		"",
	}, "\n")

	p, err := ReadKV(strings.NewReader(in))
	require.NoError(t, err)

	b, ok := p.Bool("optimal_ordering")
	require.True(t, ok)
	assert.False(t, b)
	b, ok = p.Bool("save_corrmat")
	require.True(t, ok)
	assert.True(t, b)
	_, ok = p.Float("corr_thresh")
	assert.True(t, ok)
}

func TestReadKVMalformed(t *testing.T) {
	_, err := ReadKV(strings.NewReader("no separator here\n"))
	require.Error(t, err)
}

func TestRecordsClone(t *testing.T) {
	r := Records{"correlation": Params{KeyCorrThresh: 0.3}}
	c := r.Clone()
	c["correlation"][KeyCorrThresh] = 0.9

	v, _ := r["correlation"].Float(KeyCorrThresh)
	assert.InDelta(t, 0.3, v, 1e-12)
}
