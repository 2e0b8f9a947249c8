// Package geocluster implements the default geometric/temporal grouping
// delegate: single-linkage threshold clustering on hypocentral distance,
// optionally gated by origin-time separation.
package geocluster

import (
	"errors"
	"math"
	"time"
)

// earthRadiusKm is the mean Earth radius used by the haversine distance.
const earthRadiusKm = 6371.0

// ErrNoPoints is returned when grouping an empty point set.
var ErrNoPoints = errors.New("geocluster: no points to group")

// Point is a hypocenter with origin time.
type Point struct {
	Lat     float64
	Lon     float64
	DepthKm float64
	Time    time.Time
}

// HypocentralDistanceKm returns the 3-D separation of two points: haversine
// epicentral distance combined with the depth difference.
func HypocentralDistanceKm(a, b Point) float64 {
	h := haversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
	dz := a.DepthKm - b.DepthKm
	return math.Sqrt(h*h + dz*dz)
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	phi1, phi2 := lat1*rad, lat2*rad
	dPhi := (lat2 - lat1) * rad
	dLambda := (lon2 - lon1) * rad

	s := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(s))
}

// Group partitions points into disjoint groups by single-linkage threshold
// clustering: a point joins a group when it lies within dKm of any current
// member (and, when useTime is set, within tSep of that member's origin
// time). Groups are returned in order of their seed point; each group lists
// point indices in discovery order.
func Group(points []Point, dKm float64, tSep time.Duration, useTime bool) ([][]int, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}

	visited := make([]bool, len(points))
	var groups [][]int

	for i := range points {
		if visited[i] {
			continue
		}
		group := []int{i}
		visited[i] = true

		// Grow the group until no unvisited point is close to any member.
		for grew := true; grew; {
			grew = false
			for j := range points {
				if visited[j] {
					continue
				}
				for _, m := range group {
					if !linked(points[j], points[m], dKm, tSep, useTime) {
						continue
					}
					group = append(group, j)
					visited[j] = true
					grew = true
					break
				}
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func linked(a, b Point, dKm float64, tSep time.Duration, useTime bool) bool {
	if HypocentralDistanceKm(a, b) > dKm {
		return false
	}
	if !useTime {
		return true
	}
	dt := a.Time.Sub(b.Time)
	if dt < 0 {
		dt = -dt
	}
	return dt <= tSep
}
