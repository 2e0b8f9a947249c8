// Package linkage implements hierarchical agglomerative clustering over a
// condensed (upper-triangular) distance vector, plus the threshold cut and
// leaf ordering needed for regrouping and dendrogram rendering.
//
// Cluster ids follow the usual linkage convention: leaves are 0..n-1, the
// cluster formed by merge k is n+k. The package operates on precomputed
// distances only; the metric that produced them is the producer's concern.
package linkage

import (
	"errors"
	"fmt"
	"math"
)

// Method selects how the distance between two merged clusters and a third
// cluster is derived.
type Method string

const (
	MethodSingle   Method = "single"
	MethodComplete Method = "complete"
	MethodAverage  Method = "average"
	MethodWeighted Method = "weighted"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodSingle, MethodComplete, MethodAverage, MethodWeighted:
		return Method(s), nil
	}
	return "", fmt.Errorf("linkage: unknown method %q", s)
}

// Merge is one agglomeration step. A and B are cluster ids; Size is the
// leaf count of the merged cluster.
type Merge struct {
	A, B     int
	Distance float64
	Size     int
}

// Tree is the ordered sequence of n-1 merges.
type Tree []Merge

// ErrTooFewObservations is returned when fewer than two observations are
// linked.
var ErrTooFewObservations = errors.New("linkage: need at least two observations")

// Linkage computes the merge tree for n observations from their condensed
// distance vector (row-major upper triangle, length n*(n-1)/2).
//
// When optimalOrdering is set, each merge's children are oriented so that
// the closest leaves across the merge boundary end up adjacent in leaf
// order. This is a greedy pass, cheaper than exact optimal leaf ordering,
// and only affects presentation order, never cluster assignment.
func Linkage(condensed []float64, n int, method Method, optimalOrdering bool) (Tree, error) {
	if n < 2 {
		return nil, ErrTooFewObservations
	}
	if len(condensed) != n*(n-1)/2 {
		return nil, fmt.Errorf("linkage: condensed length %d does not match n=%d", len(condensed), n)
	}
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}

	// Working set of active clusters with a dense distance matrix that
	// shrinks as clusters merge.
	ids := make([]int, n)
	sizes := make([]int, n)
	for i := range ids {
		ids[i] = i
		sizes[i] = 1
	}
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := condensed[condensedIndex(n, i, j)]
			d[i][j] = v
			d[j][i] = v
		}
	}

	tree := make(Tree, 0, n-1)
	for step := 0; step < n-1; step++ {
		// Closest active pair; ties break on lower indices.
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				if d[i][j] < best {
					best = d[i][j]
					bi, bj = i, j
				}
			}
		}

		a, b := ids[bi], ids[bj]
		if a > b {
			a, b = b, a
		}
		na, nb := sizes[bi], sizes[bj]
		tree = append(tree, Merge{A: a, B: b, Distance: best, Size: na + nb})

		// Lance-Williams update against every other active cluster; the
		// merged cluster takes slot bi, slot bj is removed.
		for k := 0; k < len(ids); k++ {
			if k == bi || k == bj {
				continue
			}
			dai, dbi := d[bi][k], d[bj][k]
			var nd float64
			switch method {
			case MethodSingle:
				nd = math.Min(dai, dbi)
			case MethodComplete:
				nd = math.Max(dai, dbi)
			case MethodAverage:
				nd = (float64(na)*dai + float64(nb)*dbi) / float64(na+nb)
			case MethodWeighted:
				nd = (dai + dbi) / 2
			}
			d[bi][k] = nd
			d[k][bi] = nd
		}
		ids[bi] = n + step
		sizes[bi] = na + nb

		ids = append(ids[:bj], ids[bj+1:]...)
		sizes = append(sizes[:bj], sizes[bj+1:]...)
		d = append(d[:bj], d[bj+1:]...)
		for i := range d {
			d[i] = append(d[i][:bj], d[i][bj+1:]...)
		}
	}

	if optimalOrdering {
		orientTree(tree, n, condensed)
	}
	return tree, nil
}

// FCluster cuts the tree at the given distance and returns one group label
// per leaf. Labels are 1-based and numbered by first appearance in leaf
// index order.
func FCluster(t Tree, n int, maxDist float64) []int {
	parent := make([]int, n+len(t))
	for i := range parent {
		parent[i] = i
	}
	var find func(x int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for k, m := range t {
		node := n + k
		if m.Distance <= maxDist {
			parent[find(m.A)] = node
			parent[find(m.B)] = node
		}
	}

	labels := make([]int, n)
	next := 1
	byRoot := make(map[int]int, n)
	for i := 0; i < n; i++ {
		root := find(i)
		l, ok := byRoot[root]
		if !ok {
			l = next
			next++
			byRoot[root] = l
		}
		labels[i] = l
	}
	return labels
}

// LeafOrder returns leaf indices in dendrogram order (depth-first, first
// child before second).
func LeafOrder(t Tree, n int) []int {
	if n == 1 {
		return []int{0}
	}
	order := make([]int, 0, n)
	stack := []int{n + len(t) - 1}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node < n {
			order = append(order, node)
			continue
		}
		m := t[node-n]
		// Push B first so A is visited first.
		stack = append(stack, m.B, m.A)
	}
	return order
}

// orientTree swaps merge children so that adjacent leaves across each merge
// boundary are as close as possible.
func orientTree(t Tree, n int, condensed []float64) {
	seq := make([][]int, n+len(t))
	for i := 0; i < n; i++ {
		seq[i] = []int{i}
	}
	for k := range t {
		a, b := seq[t[k].A], seq[t[k].B]
		ab := leafDist(n, condensed, a[len(a)-1], b[0])
		ba := leafDist(n, condensed, b[len(b)-1], a[0])
		if ba < ab {
			t[k].A, t[k].B = t[k].B, t[k].A
			a, b = b, a
		}
		merged := make([]int, 0, len(a)+len(b))
		merged = append(merged, a...)
		merged = append(merged, b...)
		seq[n+k] = merged
	}
}

func leafDist(n int, condensed []float64, i, j int) float64 {
	if i == j {
		return 0
	}
	return condensed[condensedIndex(n, i, j)]
}

func condensedIndex(n, i, j int) int {
	if i > j {
		i, j = j, i
	}
	return i*n - i*(i+1)/2 + (j - i - 1)
}
