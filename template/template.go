// Package template defines the unit of clustering: a named waveform with
// optional event metadata.
//
// Identity is by name. A Template's waveform payload is the multi-channel
// trace collection used by correlation clustering; its event record carries
// the hypocenter used by geometric grouping.
package template

import (
	"errors"
	"fmt"
)

// WaveformExt is the file extension used for per-template waveform files
// inside an archive.
const WaveformExt = ".ms"

var (
	// ErrEmptyName is returned when constructing a template without a name.
	ErrEmptyName = errors.New("template name must not be empty")
	// ErrNilWaveform is returned when constructing a template without a waveform.
	ErrNilWaveform = errors.New("template waveform must not be nil")
)

// Template is a named waveform with optional event metadata.
type Template struct {
	Name     string    `json:"name"`
	Waveform *Waveform `json:"waveform"`
	Event    *Event    `json:"event,omitempty"`
}

// New creates a Template. The event may be nil; name and waveform are required.
func New(name string, wf *Waveform, ev *Event) (*Template, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if wf == nil {
		return nil, ErrNilWaveform
	}
	return &Template{Name: name, Waveform: wf, Event: ev}, nil
}

// Validate reports whether the template is usable as an index member.
func (t *Template) Validate() error {
	if t == nil {
		return errors.New("nil template")
	}
	if t.Name == "" {
		return ErrEmptyName
	}
	if t.Waveform == nil {
		return fmt.Errorf("template %q: %w", t.Name, ErrNilWaveform)
	}
	return nil
}

// Clone returns a deep copy of the template.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	c := &Template{Name: t.Name}
	if t.Waveform != nil {
		c.Waveform = t.Waveform.Clone()
	}
	if t.Event != nil {
		c.Event = t.Event.Clone()
	}
	return c
}

func (t *Template) String() string {
	nt := 0
	if t.Waveform != nil {
		nt = len(t.Waveform.Traces)
	}
	return fmt.Sprintf("Template %s (%d traces)", t.Name, nt)
}
