package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// Waveform samples and the membership table serialize to plain JSON
// structures; this keeps legacy snapshots inspectable with ordinary tools
// at the cost of size.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used for newly written snapshots. Existing snapshot
// files are self-describing and are opened with the codec they name.
var Default Codec = JSON{}
