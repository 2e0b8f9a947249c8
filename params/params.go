// Package params records the exact keyword parameters of each clustering
// run. Records round-trip through the archive's per-method key,value files
// and are replayed verbatim by the linkage re-threshold path.
package params

import (
	"fmt"
	"sort"
	"strconv"
)

// Well-known parameter keys.
const (
	KeyCorrThresh      = "corr_thresh"
	KeyShiftLen        = "shift_len"
	KeyReplaceNaN      = "replace_nan_distances_with"
	KeyMethod          = "method"
	KeyMetric          = "metric"
	KeyOptimalOrdering = "optimal_ordering"
	KeySaveCorrmat     = "save_corrmat"
	KeyDistThreshKm    = "d_thresh_km"
	KeyTimeThreshSec   = "t_thresh_sec"
)

// Params is the keyword-parameter set of a single clustering run. Values are
// restricted to what the key,value file format can carry: string, bool,
// float64 and int.
type Params map[string]any

// Clone returns a shallow copy (values are scalars).
func (p Params) Clone() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Keys returns the parameter keys, sorted.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Float returns a numeric parameter, accepting int and float64 values.
func (p Params) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// String returns a string parameter.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// Bool returns a boolean parameter.
func (p Params) Bool(key string) (bool, bool) {
	v, ok := p[key].(bool)
	return v, ok
}

// Equal compares two parameter sets by formatted value, so that a record
// that went through the archive's literal form still compares equal.
func (p Params) Equal(other Params) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		o, ok := other[k]
		if !ok || formatValue(v) != formatValue(o) {
			return false
		}
	}
	return true
}

// Records maps a clustering method name to its most recent run's parameters.
type Records map[string]Params

// Clone deep-copies the records.
func (r Records) Clone() Records {
	c := make(Records, len(r))
	for method, p := range r {
		c[method] = p.Clone()
	}
	return c
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
