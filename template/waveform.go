package template

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
)

const (
	// waveformMagic identifies seisclust waveform files (ASCII: "SCW0").
	waveformMagic = 0x53435730
	// waveformVersion is the current waveform file format version.
	waveformVersion = 1

	maxTraceIDLen = 1 << 10
	maxTraceCount = 1 << 16
)

var (
	ErrInvalidWaveformMagic   = errors.New("invalid waveform magic number")
	ErrInvalidWaveformVersion = errors.New("unsupported waveform format version")
)

// Trace is a single channel of waveform samples.
//
// The ID follows the usual dotted channel convention
// (e.g. "UW.GNW..HHZ") and is what correlation uses to match
// channels across templates.
type Trace struct {
	ID         string    `json:"id"`
	SampleRate float64   `json:"sample_rate"`
	Data       []float32 `json:"data"`
}

// Clone returns a deep copy of the trace.
func (tr Trace) Clone() Trace {
	data := make([]float32, len(tr.Data))
	copy(data, tr.Data)
	return Trace{ID: tr.ID, SampleRate: tr.SampleRate, Data: data}
}

// Waveform is the multi-channel payload attached to a template.
type Waveform struct {
	Traces []Trace `json:"traces"`
}

// Clone returns a deep copy of the waveform.
func (w *Waveform) Clone() *Waveform {
	c := &Waveform{Traces: make([]Trace, len(w.Traces))}
	for i, tr := range w.Traces {
		c.Traces[i] = tr.Clone()
	}
	return c
}

// Select returns a new waveform containing only traces whose ID matches the
// glob pattern (path.Match syntax, e.g. "*.HHZ" or "UW.*").
func (w *Waveform) Select(pattern string) *Waveform {
	out := &Waveform{}
	for _, tr := range w.Traces {
		ok, err := path.Match(pattern, tr.ID)
		if err == nil && ok {
			out.Traces = append(out.Traces, tr.Clone())
		}
	}
	return out
}

// Trace returns the trace with the given ID, if present.
func (w *Waveform) Trace(id string) (Trace, bool) {
	for _, tr := range w.Traces {
		if tr.ID == id {
			return tr, true
		}
	}
	return Trace{}, false
}

// Encode writes the waveform in the binary waveform format:
// a magic+version header followed by a length-prefixed trace list,
// all little-endian.
func (w *Waveform) Encode(dst io.Writer) error {
	bw := bufio.NewWriter(dst)

	if err := binary.Write(bw, binary.LittleEndian, uint32(waveformMagic)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(waveformVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(w.Traces))); err != nil {
		return err
	}

	for _, tr := range w.Traces {
		id := []byte(tr.ID)
		if len(id) > maxTraceIDLen {
			return fmt.Errorf("trace id too long: %d bytes", len(id))
		}
		if err := binary.Write(bw, binary.LittleEndian, uint16(len(id))); err != nil {
			return err
		}
		if _, err := bw.Write(id); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, math.Float64bits(tr.SampleRate)); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(tr.Data))); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, tr.Data); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// DecodeWaveform reads a waveform written by Encode.
func DecodeWaveform(src io.Reader) (*Waveform, error) {
	br := bufio.NewReader(src)

	var magic, version, count uint32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != waveformMagic {
		return nil, ErrInvalidWaveformMagic
	}
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != waveformVersion {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWaveformVersion, version)
	}
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	if count > maxTraceCount {
		return nil, fmt.Errorf("trace count %d exceeds limit", count)
	}

	w := &Waveform{Traces: make([]Trace, 0, count)}
	for i := uint32(0); i < count; i++ {
		var idLen uint16
		if err := binary.Read(br, binary.LittleEndian, &idLen); err != nil {
			return nil, err
		}
		if int(idLen) > maxTraceIDLen {
			return nil, fmt.Errorf("trace id length %d exceeds limit", idLen)
		}
		id := make([]byte, idLen)
		if _, err := io.ReadFull(br, id); err != nil {
			return nil, err
		}
		var rateBits uint64
		if err := binary.Read(br, binary.LittleEndian, &rateBits); err != nil {
			return nil, err
		}
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		data := make([]float32, n)
		if err := binary.Read(br, binary.LittleEndian, data); err != nil {
			return nil, err
		}
		w.Traces = append(w.Traces, Trace{
			ID:         string(id),
			SampleRate: math.Float64frombits(rateBits),
			Data:       data,
		})
	}

	return w, nil
}
