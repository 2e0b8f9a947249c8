package geocluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHypocentralDistanceKm(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{"SamePoint", Point{Lat: -41.3, Lon: 174.8, DepthKm: 20}, Point{Lat: -41.3, Lon: 174.8, DepthKm: 20}, 0, 1e-9},
		{"DepthOnly", Point{DepthKm: 5}, Point{DepthKm: 25}, 20, 1e-9},
		// One degree of latitude is about 111.2 km on the sphere used here.
		{"OneDegreeLat", Point{Lat: 0}, Point{Lat: 1}, 111.2, 0.2},
		{"Combined", Point{Lat: 0, DepthKm: 0}, Point{Lat: 1, DepthKm: 111.2}, 157.2, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HypocentralDistanceKm(tt.a, tt.b), tt.tol)
			// Symmetric by construction.
			assert.InDelta(t, HypocentralDistanceKm(tt.a, tt.b), HypocentralDistanceKm(tt.b, tt.a), 1e-9)
		})
	}
}

func TestGroup(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	// Two dense spots about 90 km apart, plus a lone deep event.
	points := []Point{
		{Lat: -41.30, Lon: 174.80, DepthKm: 20, Time: t0},
		{Lat: -41.31, Lon: 174.81, DepthKm: 21, Time: t0.Add(30 * time.Second)},
		{Lat: -42.10, Lon: 174.80, DepthKm: 20, Time: t0},
		{Lat: -42.11, Lon: 174.82, DepthKm: 19, Time: t0.Add(10 * time.Second)},
		{Lat: -41.30, Lon: 174.80, DepthKm: 200, Time: t0},
	}

	groups, err := Group(points, 5, 0, false)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {2, 3}, {4}}, groups)
}

func TestGroupChaining(t *testing.T) {
	// Single linkage: 0-1 and 1-2 are within threshold but 0-2 is not;
	// all three still end up in one group through the chain.
	points := []Point{
		{Lon: 0.00},
		{Lon: 0.04},
		{Lon: 0.08},
	}
	groups, err := Group(points, 5, 0, false)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}}, groups)
}

func TestGroupTimeGate(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := []Point{
		{Time: t0},
		{Time: t0.Add(30 * time.Second)},
		{Time: t0.Add(2 * time.Hour)},
	}

	// Spatially identical; only the time gate separates them.
	groups, err := Group(points, 5, time.Minute, true)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {2}}, groups)

	// Without the gate they collapse into one group.
	groups, err = Group(points, 5, time.Minute, false)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}}, groups)
}

func TestGroupEmpty(t *testing.T) {
	_, err := Group(nil, 5, 0, false)
	require.ErrorIs(t, err, ErrNoPoints)
}
