package template

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// markerPrefix tags the comment that binds an event record back to its
// template inside a combined event collection file.
const markerPrefix = "seisclust_template_"

// CatalogExtMap maps supported event-collection formats to file extensions.
// Only formats listed here can be written by the archive codec.
var CatalogExtMap = map[string]string{
	"JSON": "json",
}

// Event is the minimal event record attached to a template: the hypocenter
// and origin time used for geometric grouping, plus free-form comments.
type Event struct {
	ResourceID string    `json:"resource_id,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	DepthKm    float64   `json:"depth_km"`
	OriginTime time.Time `json:"origin_time"`
	Comments   []string  `json:"comments,omitempty"`
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	c := *e
	c.Comments = make([]string, len(e.Comments))
	copy(c.Comments, e.Comments)
	return &c
}

// MarkerComment returns the marker comment text for a template name.
func MarkerComment(name string) string {
	return markerPrefix + name
}

// Tag sets the event's marker comment to reference the given template name,
// replacing any existing marker.
func (e *Event) Tag(name string) {
	marker := MarkerComment(name)
	for i, c := range e.Comments {
		if strings.HasPrefix(c, markerPrefix) {
			e.Comments[i] = marker
			return
		}
	}
	e.Comments = append(e.Comments, marker)
}

// MatchesTemplate reports whether the event's marker comment references the
// given template name.
func (e *Event) MatchesTemplate(name string) bool {
	marker := MarkerComment(name)
	for _, c := range e.Comments {
		if c == marker {
			return true
		}
	}
	return false
}

// WriteCatalog writes a combined event collection in the given format.
// Unsupported formats are the caller's error to surface; this function
// assumes the format has already been validated against CatalogExtMap.
func WriteCatalog(dst io.Writer, events []*Event, format string) error {
	if _, ok := CatalogExtMap[format]; !ok {
		return fmt.Errorf("catalog format %q is not supported", format)
	}
	enc := json.NewEncoder(dst)
	enc.SetIndent("", "  ")
	return enc.Encode(events)
}

// ReadCatalog reads a combined event collection written by WriteCatalog.
func ReadCatalog(src io.Reader) ([]*Event, error) {
	var events []*Event
	if err := json.NewDecoder(src).Decode(&events); err != nil {
		return nil, err
	}
	return events, nil
}
