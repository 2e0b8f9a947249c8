// Package distmat holds the square symmetric distance matrix produced by
// correlation clustering.
//
// Entries where no distance could be computed (e.g. two templates share no
// common channels) carry NaN. The matrix is stored row-major in a flat
// slice and is indexed by each template's durable id_no, not by its live
// position in the index.
package distmat

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotSquare is returned when constructing a matrix from ragged rows.
	ErrNotSquare = errors.New("distmat: matrix must be square")
	// ErrUnknownEntries is returned when condensing a matrix that still
	// carries NaN entries.
	ErrUnknownEntries = errors.New("distmat: matrix has unknown (NaN) entries; apply a fill policy first")
	// ErrUnsupportedFill is returned for an unrecognized fill policy value.
	ErrUnsupportedFill = errors.New("distmat: unsupported fill policy")
)

// Matrix is a square symmetric distance matrix with NaN as the unknown
// sentinel.
type Matrix struct {
	n    int
	data []float64
}

// New creates an n×n matrix with every entry set to NaN.
func New(n int) *Matrix {
	m := &Matrix{n: n, data: make([]float64, n*n)}
	for i := range m.data {
		m.data[i] = math.NaN()
	}
	return m
}

// FromRows builds a matrix from row slices. All rows must have length
// equal to the row count.
func FromRows(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	m := &Matrix{n: n, data: make([]float64, 0, n*n)}
	for _, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row of length %d in %d-row matrix", ErrNotSquare, len(row), n)
		}
		m.data = append(m.data, row...)
	}
	return m, nil
}

// fromFlat wraps an existing row-major slice. len(data) must equal n*n.
func fromFlat(n int, data []float64) (*Matrix, error) {
	if len(data) != n*n {
		return nil, fmt.Errorf("%w: %d values for size %d", ErrNotSquare, len(data), n)
	}
	return &Matrix{n: n, data: data}, nil
}

// Size returns the matrix dimension N.
func (m *Matrix) Size() int { return m.n }

// At returns entry [i,j].
func (m *Matrix) At(i, j int) float64 { return m.data[i*m.n+j] }

// InRange reports whether [i,j] is a valid entry.
func (m *Matrix) InRange(i, j int) bool {
	return i >= 0 && i < m.n && j >= 0 && j < m.n
}

// Set sets entry [i,j] and its mirror [j,i].
func (m *Matrix) Set(i, j int, v float64) {
	m.data[i*m.n+j] = v
	m.data[j*m.n+i] = v
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	data := make([]float64, len(m.data))
	copy(data, m.data)
	return &Matrix{n: m.n, data: data}
}

// Equal reports exact numeric equality, treating NaN entries as equal.
func (m *Matrix) Equal(other *Matrix) bool {
	if other == nil || m.n != other.n {
		return false
	}
	for i, v := range m.data {
		o := other.data[i]
		if math.IsNaN(v) && math.IsNaN(o) {
			continue
		}
		if v != o {
			return false
		}
	}
	return true
}

// Filled returns a copy with NaN entries replaced per the fill policy:
// a numeric value fills verbatim, "mean" and "min" fill with the respective
// statistic over the known off-diagonal entries.
func (m *Matrix) Filled(policy any) (*Matrix, error) {
	fill, err := m.fillValue(policy)
	if err != nil {
		return nil, err
	}
	out := m.Clone()
	for i := range out.data {
		if math.IsNaN(out.data[i]) {
			out.data[i] = fill
		}
	}
	return out, nil
}

func (m *Matrix) fillValue(policy any) (float64, error) {
	switch p := policy.(type) {
	case float64:
		return p, nil
	case int:
		return float64(p), nil
	case string:
		switch p {
		case "mean":
			sum, count := 0.0, 0
			for i := 0; i < m.n; i++ {
				for j := 0; j < m.n; j++ {
					if i == j {
						continue
					}
					if v := m.At(i, j); !math.IsNaN(v) {
						sum += v
						count++
					}
				}
			}
			if count == 0 {
				return 0, fmt.Errorf("%w: no known entries for mean fill", ErrUnsupportedFill)
			}
			return sum / float64(count), nil
		case "min":
			best := math.Inf(1)
			for i := 0; i < m.n; i++ {
				for j := 0; j < m.n; j++ {
					if i == j {
						continue
					}
					if v := m.At(i, j); !math.IsNaN(v) && v < best {
						best = v
					}
				}
			}
			if math.IsInf(best, 1) {
				return 0, fmt.Errorf("%w: no known entries for min fill", ErrUnsupportedFill)
			}
			return best, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFill, p)
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedFill, policy)
	}
}

// Condensed flattens the matrix to its upper-triangular condensed form
// (row-major, i < j), the input shape hierarchical linkage expects.
// NaN entries must have been filled first.
func (m *Matrix) Condensed() ([]float64, error) {
	out := make([]float64, 0, m.n*(m.n-1)/2)
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				return nil, ErrUnknownEntries
			}
			out = append(out, v)
		}
	}
	return out, nil
}
