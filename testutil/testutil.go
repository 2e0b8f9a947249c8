// Package testutil provides fixture builders for seisclust tests.
//
// This package is intended for use in tests and benchmarks only. It
// provides seeded synthetic waveforms, template fixtures with event
// metadata, and helpers for asserting on partitions.
//
//	rng := testutil.NewRNG(42)
//	tpl := testutil.MakeTemplate(rng, "eq_001", 34.05, -118.25, 7.5, t0)
package testutil

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/seisclust/template"
)

// RNG is a seed-stable random source, safe for concurrent use.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{rand: rand.New(rand.NewSource(seed)), seed: seed}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillNoise fills dst with uniform noise in [-amp, amp).
func (r *RNG) FillNoise(dst []float32, amp float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = float32((r.rand.Float64()*2 - 1) * amp)
	}
}

// DefaultChannels are the trace ids fixture waveforms carry.
var DefaultChannels = []string{"NZ.WEL.10.HHZ", "NZ.WEL.10.HHN", "NZ.WEL.10.HHE"}

// MakeWaveform builds a multi-channel waveform whose samples are a sine
// at freq Hz plus seeded noise. Waveforms built from the same RNG state
// and freq correlate strongly; different freqs do not.
func MakeWaveform(rng *RNG, freq float64, n int) *template.Waveform {
	w := &template.Waveform{}
	for _, ch := range DefaultChannels {
		data := make([]float32, n)
		rng.FillNoise(data, 0.05)
		for i := range data {
			data[i] += float32(math.Sin(2 * math.Pi * freq * float64(i) / 100.0))
		}
		w.Traces = append(w.Traces, template.Trace{ID: ch, SampleRate: 100, Data: data})
	}
	return w
}

// MakeTemplate builds a template with a synthetic waveform and full event
// metadata.
func MakeTemplate(rng *RNG, name string, lat, lon, depthKm float64, origin time.Time) *template.Template {
	ev := &template.Event{
		ResourceID: "smi:local/" + name,
		Latitude:   lat,
		Longitude:  lon,
		DepthKm:    depthKm,
		OriginTime: origin,
	}
	ev.Tag(name)
	tpl, err := template.New(name, MakeWaveform(rng, 2.0, 200), ev)
	if err != nil {
		panic(err)
	}
	return tpl
}

// MakeTemplateFreq is MakeTemplate with an explicit signal frequency, for
// correlation tests that need dissimilar waveforms.
func MakeTemplateFreq(rng *RNG, name string, freq float64, lat, lon, depthKm float64, origin time.Time) *template.Template {
	tpl := MakeTemplate(rng, name, lat, lon, depthKm, origin)
	tpl.Waveform = MakeWaveform(rng, freq, 200)
	return tpl
}

// GroupsByValue inverts a name->group assignment into value-keyed name
// sets, for order-insensitive partition assertions.
func GroupsByValue(assign map[string]int) map[int][]string {
	out := make(map[int][]string)
	for name, g := range assign {
		out[g] = append(out[g], name)
	}
	return out
}

// SamePartition reports whether two assignments induce the same partition,
// ignoring the numeric labels.
func SamePartition(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	fwd := make(map[int]int)
	rev := make(map[int]int)
	for name, ga := range a {
		gb, ok := b[name]
		if !ok {
			return false
		}
		if g, seen := fwd[ga]; seen && g != gb {
			return false
		}
		if g, seen := rev[gb]; seen && g != ga {
			return false
		}
		fwd[ga] = gb
		rev[gb] = ga
	}
	return true
}
