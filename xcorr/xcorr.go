// Package xcorr implements the default correlation clustering delegate:
// pairwise normalized cross-correlation with shift tolerance over common
// channels, followed by hierarchical grouping at a correlation threshold.
//
// The delegate contract mirrors the engine's expectation: it returns the
// partition into correlation groups plus a side-channel file holding the
// raw distance matrix, which the engine consumes and removes unless asked
// to keep it.
package xcorr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/seisclust/distmat"
	"github.com/hupe1980/seisclust/linkage"
	"github.com/hupe1980/seisclust/template"
)

// Pair couples a waveform with the durable id the caller indexes it by.
type Pair struct {
	Waveform *template.Waveform
	ID       int
}

// Options configures a correlation run.
type Options struct {
	// CorrThresh is the correlation threshold for grouping; templates whose
	// linkage distance stays below 1-CorrThresh end up in one group.
	CorrThresh float64

	// ShiftLen is the shift tolerance in seconds allowed when aligning two
	// traces for correlation.
	ShiftLen float64

	// ReplaceNaN is the fill policy for unknown distances before linkage:
	// a number, "mean" or "min".
	ReplaceNaN any

	// Method, Metric and OptimalOrdering parameterize the linkage step.
	// Metric is recorded for replay but does not alter precomputed
	// distances.
	Method          linkage.Method
	Metric          string
	OptimalOrdering bool

	// Workers bounds the pairwise fan-out; 0 means GOMAXPROCS.
	Workers int

	// PairsPerSec rate-limits pairwise computations; 0 means unlimited.
	PairsPerSec float64
}

// DefaultOptions returns the options used when a parameter is not supplied.
func DefaultOptions() Options {
	return Options{
		CorrThresh: 0.3,
		ShiftLen:   1.0,
		ReplaceNaN: "mean",
		Method:     linkage.MethodSingle,
		Metric:     "euclidean",
	}
}

// ErrTooFewPairs is returned when fewer than two waveforms are correlated.
var ErrTooFewPairs = errors.New("xcorr: need at least two waveforms")

// Correlate computes the pairwise distance matrix (1 - max correlation,
// NaN where two waveforms share no common channel), writes it to a
// side-channel .npy file, and partitions the pairs by cutting the linkage
// tree at 1-CorrThresh.
//
// Groups are ordered by first appearance in the input; within a group,
// pairs keep input order. The returned file is the caller's to remove.
func Correlate(ctx context.Context, pairs []Pair, opts Options) (groups [][]Pair, matFile string, err error) {
	if len(pairs) < 2 {
		return nil, "", ErrTooFewPairs
	}

	mat, err := distanceMatrix(ctx, pairs, opts)
	if err != nil {
		return nil, "", err
	}

	matFile, err = writeSideChannel(mat)
	if err != nil {
		return nil, "", err
	}

	filled, err := mat.Filled(opts.ReplaceNaN)
	if err != nil {
		os.Remove(matFile)
		return nil, "", err
	}
	condensed, err := filled.Condensed()
	if err != nil {
		os.Remove(matFile)
		return nil, "", err
	}
	tree, err := linkage.Linkage(condensed, len(pairs), opts.Method, opts.OptimalOrdering)
	if err != nil {
		os.Remove(matFile)
		return nil, "", err
	}
	labels := linkage.FCluster(tree, len(pairs), 1-opts.CorrThresh)

	byLabel := make(map[int]int)
	for i, l := range labels {
		gi, ok := byLabel[l]
		if !ok {
			gi = len(groups)
			byLabel[l] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], pairs[i])
	}
	return groups, matFile, nil
}

// distanceMatrix fans the pairwise correlations out across workers. Matrix
// indices follow input order; the caller maps them to durable ids.
func distanceMatrix(ctx context.Context, pairs []Pair, opts Options) (*distmat.Matrix, error) {
	n := len(pairs)
	mat := distmat.New(n)
	for i := 0; i < n; i++ {
		mat.Set(i, i, 0)
	}

	var limiter *rate.Limiter
	if opts.PairsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.PairsPerSec), 1)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			i, j := i, j
			g.Go(func() error {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return err
					}
				} else if err := ctx.Err(); err != nil {
					return err
				}
				d := pairDistance(pairs[i].Waveform, pairs[j].Waveform, opts.ShiftLen)
				mu.Lock()
				mat.Set(i, j, d)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mat, nil
}

// pairDistance is 1 minus the mean of the per-channel maximum normalized
// cross-correlations over common channels, or NaN when the waveforms share
// none.
func pairDistance(a, b *template.Waveform, shiftLen float64) float64 {
	var sum float64
	var count int
	for _, ta := range a.Traces {
		tb, ok := b.Trace(ta.ID)
		if !ok {
			continue
		}
		maxShift := int(shiftLen * ta.SampleRate)
		sum += maxNormCorr(ta.Data, tb.Data, maxShift)
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	corr := sum / float64(count)
	d := 1 - corr
	if d < 0 {
		d = 0
	}
	return d
}

// maxNormCorr returns the maximum normalized cross-correlation of x and y
// over lags in [-maxShift, maxShift].
func maxNormCorr(x, y []float32, maxShift int) float64 {
	nx, ny := norm(x), norm(y)
	if nx == 0 || ny == 0 {
		return 0
	}
	best := math.Inf(-1)
	for lag := -maxShift; lag <= maxShift; lag++ {
		var dot float64
		for i := range x {
			j := i + lag
			if j < 0 || j >= len(y) {
				continue
			}
			dot += float64(x[i]) * float64(y[j])
		}
		if c := dot / (nx * ny); c > best {
			best = c
		}
	}
	if math.IsInf(best, -1) {
		return 0
	}
	return best
}

func norm(x []float32) float64 {
	var s float64
	for _, v := range x {
		s += float64(v) * float64(v)
	}
	return math.Sqrt(s)
}

func writeSideChannel(mat *distmat.Matrix) (string, error) {
	f, err := os.CreateTemp("", "dist_mat-*.npy")
	if err != nil {
		return "", err
	}
	if err := mat.WriteNPY(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("xcorr: write distance matrix: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
